package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus-mcp/marcus/internal/config"
	"github.com/marcus-mcp/marcus/internal/instance"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show status of a running marcus instance",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	mgr := instance.NewManager(filepath.Join("data", "marcus.pid"), cfg.Server.Port)
	info, err := mgr.CheckExistingInstance()
	if err != nil {
		return err
	}
	if info == nil {
		fmt.Println("No marcus instance is currently running")
		return nil
	}

	statusIcon := "✓"
	if !info.IsResponding {
		statusIcon = "✗"
	}

	fmt.Println()
	fmt.Printf("Instance:  %s RUNNING\n", statusIcon)
	fmt.Printf("  PID:     %d\n", info.PID)
	fmt.Printf("  Port:    %d\n", info.Port)
	fmt.Printf("  Started: %s (%s ago)\n", info.StartTime.Format("2006-01-02 15:04:05"), time.Since(info.StartTime).Round(time.Second))
	fmt.Printf("  Health:  ")
	if info.IsResponding {
		fmt.Println("OK (responding)")
	} else {
		fmt.Println("DEGRADED (not responding)")
	}
	fmt.Println()
	return nil
}
