// The main package for the sitescout executable.
package main

import (
	"github.com/sitescout/sitescout/cmd"
)

func main() {
	cmd.Execute()
}
