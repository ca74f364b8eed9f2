/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/heroverse/apiserver/config"
	"github.com/heroverse/apiserver/internal/events"
	"github.com/heroverse/apiserver/internal/mq"
	"github.com/heroverse/apiserver/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect user change events on the message broker",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log user events as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		if err := checkTailBackend(cfg.MQ); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer func() { _ = queue.Close() }()

		logger.Info("tailing user events", zap.String("channel", cfg.MQ.Channel))
		err = events.Consume(ctx, queue, cfg.MQ.Channel, func(ctx context.Context, event types.UserEvent) error {
			logger.Info("user event",
				zap.String("type", string(event.Type)),
				zap.String("user_id", event.UserID),
				zap.String("actor_id", event.ActorID),
				zap.Time("occurred_at", event.OccurredAt),
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

// checkTailBackend rejects brokers that only live inside this process,
// where nothing else can publish.
func checkTailBackend(cfg config.MQConfig) error {
	switch cfg.Backend {
	case config.MQNone, "":
		return errors.New("MQ_BACKEND is not configured")
	case config.MQMemory:
		return fmt.Errorf("MQ_BACKEND=%s is private to this process; use rabbitmq or pubsub", cfg.Backend)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
