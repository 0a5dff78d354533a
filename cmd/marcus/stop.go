package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus-mcp/marcus/internal/config"
	"github.com/marcus-mcp/marcus/internal/instance"
)

var forceStop bool

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running marcus instance",
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().BoolVar(&forceStop, "force", false, "force kill instead of requesting graceful shutdown")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
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

	if forceStop {
		fmt.Printf("Force killing process %d...\n", info.PID)
		if err := instance.KillProcess(info.PID); err != nil {
			return fmt.Errorf("failed to kill process: %w", err)
		}
		time.Sleep(1 * time.Second)
		mgr.RemovePIDFile()
		fmt.Println("Instance terminated ✓")
		return nil
	}

	fmt.Printf("Sending graceful shutdown request to instance on port %d...\n", info.Port)
	if err := instance.SendShutdownRequest(info.Port); err != nil {
		return fmt.Errorf("failed to send shutdown request (try --force): %w", err)
	}

	fmt.Println("Waiting for graceful shutdown...")
	if instance.WaitForPortToBeAvailable(info.Port, 5*time.Second) {
		fmt.Println("Instance stopped successfully ✓")
	} else {
		fmt.Println("Warning: instance may still be running. Try: marcus stop --force")
	}
	return nil
}
