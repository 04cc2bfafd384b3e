// Command ladderctl converts, lints and inspects ladder project files
// without running the server.
package main

import (
	"fmt"
	"os"
)

// Exit codes
const (
	exitSuccess = 0
	exitInvalid = 1 // Validation found errors
	exitError   = 2
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if _, ok := err.(*invalidProjectError); ok {
			os.Exit(exitInvalid)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
	os.Exit(exitSuccess)
}
