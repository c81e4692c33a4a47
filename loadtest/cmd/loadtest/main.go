// Package main is the entry point for the signaling load test binary.
// It provides subcommands for different load testing scenarios:
//
//   - saturate: Connection saturation test
//   - match:    Matchmaking and signaling flow load test
//
// Usage:
//
//	loadtest <command> [options]
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "saturate":
		runSaturate(os.Args[2:])
	case "match":
		runMatch(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: loadtest <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  saturate    Connection saturation test — opens N idle connections")
	fmt.Println("  match       Matchmaking flow load test — pairs join queues, match, exchange signals")
	fmt.Println()
	fmt.Println("Run 'loadtest <command> -h' for command-specific options.")
}
