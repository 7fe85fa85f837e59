package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"eir-go/services/agent"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve the session and log device events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := agent.SetupLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		s, err := start(ctx, cancel, cfg, log)
		if err != nil {
			return err
		}
		logEvents(ctx, s.bus, log)
		s.ex.Wait()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
