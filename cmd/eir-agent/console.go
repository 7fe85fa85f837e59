package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"eir-go/services/agent"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Serve the session and send commands typed on stdin",
	Long: `console runs the agent like "run" and reads one command per line:

  led 255 0 0      set the strip colour
  int 42           publish an Int32 to pico_subscriber
  srv true         call the pico_srv SetBool service
  entities         list what the board declared`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// keep stdout for the console
		cfg.Log.Outputs = []string{"stderr"}
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
		go logEvents(ctx, s.bus, log)

		c := agent.NewConsole(s.bus.NewConnection("console"), cmd.OutOrStdout())
		err = c.Run(ctx, cmd.InOrStdin())
		cancel()
		s.ex.Wait()
		return err
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
