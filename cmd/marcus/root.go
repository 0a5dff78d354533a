package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "marcus",
	Short: "Marcus is an MCP server that coordinates AI worker agents against a kanban board",
	Long: `Marcus exposes task assignment, progress reporting, blocker
escalation, and board reconciliation as MCP tools, so a fleet of AI
agents can pull work from a shared board without stepping on each
other.`,
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a marcus.yaml config file (optional; defaults and MARCUS_ env vars still apply)")
}
