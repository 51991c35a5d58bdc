package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nysc/volunteers/internal/domain"
	"github.com/nysc/volunteers/internal/infra"
)

func eventsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect published volunteer events",
	}

	var group string
	var limit int
	tail := &cobra.Command{
		Use:       "tail [registered|status_changed]",
		Short:     "Print volunteer events as they arrive on Kafka",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"registered", "status_changed"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var evt domain.EventType
			switch args[0] {
			case "registered":
				evt = domain.EventVolunteerRegistered
			case "status_changed":
				evt = domain.EventVolunteerStatusChanged
			default:
				return fmt.Errorf("unknown event %q", args[0])
			}

			topic := domain.OutboxDraft{EventType: evt}.Topic(c.cfg.KafkaTopicPrefix)
			tailer := infra.NewEventTail(c.cfg.KafkaBrokers, topic, group, c.cfg.KafkaEnabled)
			if !tailer.Enabled() {
				return errors.New("kafka is disabled; set KAFKA_ENABLED=true and KAFKA_BROKERS")
			}
			defer tailer.Close()

			for n := 0; limit <= 0 || n < limit; n++ {
				ev, err := tailer.Next(cmd.Context())
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("read %s: %w", topic, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s volunteer=%s %s\n", ev.At.Format(time.RFC3339), ev.VolunteerID, ev.Payload)
			}
			return nil
		},
	}
	tail.Flags().StringVar(&group, "group", "volunteerctl", "consumer group id")
	tail.Flags().IntVar(&limit, "limit", 0, "stop after this many events; 0 runs until interrupted")
	cmd.AddCommand(tail)

	return cmd
}
