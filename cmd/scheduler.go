package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/asset-attestation/pkg/logger"
	"github.com/spf13/cobra"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Attestation reminders, escalations and auto-close",
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scheduler pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScheduler(false)
	},
}

var schedulerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run scheduler passes on a fixed interval until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScheduler(true)
	},
}

var schedulerInterval time.Duration

func runScheduler(loop bool) error {
	cfg, db, gdb, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	log := logger.LoggerWrapper()
	svc, err := buildServices(cfg, gdb, log, true)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !loop {
		if _, err := svc.Scheduler.Run(ctx); err != nil {
			return fmt.Errorf("scheduler pass failed: %w", err)
		}
		return nil
	}

	interval := schedulerInterval
	if interval <= 0 {
		interval = cfg.Scheduler.Interval
	}
	if interval <= 0 {
		interval = time.Hour
	}

	log.Info("scheduler started", "interval", interval, "run_on_start", cfg.Scheduler.RunOnStart)

	pass := func() {
		if _, err := svc.Scheduler.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("scheduler pass failed", "error", err)
		}
	}
	if cfg.Scheduler.RunOnStart {
		pass()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			pass()
		}
	}
}

func init() {
	schedulerStartCmd.Flags().DurationVar(&schedulerInterval, "interval", 0, "time between passes (overrides config)")

	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
}
