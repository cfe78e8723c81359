package config

import (
	"fmt"
	"os"
)

// Exitf prints the formatted message to stderr and terminates the
// process with exit code 1. One-shot tools and mains use it in place
// of log.Fatalf so output stays free of timestamps.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
