// Package api hosts the HTTP server, middleware, and handlers for the
// search service. Notable routes:
//   - POST /api/search to submit a crawl-and-search job.
//   - GET /ws/{search_id} for the WebSocket progress stream.
//   - GET /api/results/{search_id} for ranked results.
//   - GET /api/status/{search_id} for a point-in-time snapshot.
//   - POST /api/search/{search_id}/cancel to stop a running job.
//   - GET /healthz and /metrics for probes and Prometheus scraping.
package api
