package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"postreel/internal/app"
	"postreel/internal/model"
	"postreel/pkg/config"
)

var (
	runInterval time.Duration
	runScripted bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Worker mode: process posts needing videos until stopped",
	Long: `Run in continuous mode, claiming posts without videos and generating
one video per post. Polls for new work at the configured interval.`,
	RunE: runWorker,
}

func init() {
	runCmd.Flags().DurationVarP(&runInterval, "interval", "i", 0, "Poll interval (default from config)")
	runCmd.Flags().BoolVar(&runScripted, "scripted", false, "Generate scripted slideshow videos instead of scrolling captures")
	rootCmd.AddCommand(runCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg := config.Load()
	rt, err := app.BuildRuntime(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if runScripted {
		rt.Worker.WithVideoType(model.VideoTypeScripted)
	}

	interval := runInterval
	if interval == 0 {
		interval = time.Duration(cfg.Worker.PollSeconds) * time.Second
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Shutting down...")
		cancel()
	}()

	err = rt.Worker.Run(ctx, interval)
	if err == context.Canceled {
		return nil
	}
	return err
}
