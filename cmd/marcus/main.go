// Command marcus runs the Marcus MCP coordination server: a single
// process exposing task-assignment, lifecycle, and reconciliation
// tools to AI worker agents over MCP, backed by a kanban board.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
