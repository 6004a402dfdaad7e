// Command dicombids writes dcm2niibatch configuration files that map the
// series directories of a Siemens MR session onto BIDS file names.
package main

import (
	"fmt"
	"os"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
