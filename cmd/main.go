package main

import (
	"fmt"
	"os"
)

// MAIN: CLI del monitor (check, test, status, schedule, serve)
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
