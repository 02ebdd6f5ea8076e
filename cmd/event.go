package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/invoice-management/internal/core/events"
	"github.com/frahmantamala/invoice-management/internal/notify/amqp"
	"github.com/frahmantamala/invoice-management/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect and publish invoice lifecycle events`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test invoice event on the bus, and to AMQP when events.amqp_url is configured`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(cmd.Context(), args[0])
	},
}

var listEventsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the invoice event types",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range events.EventTypes {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
	},
}

var (
	eventInvoiceID string
	eventUserID    string
)

func testEvent(eventType string) (events.Event, error) {
	switch eventType {
	case events.EventTypeInvoiceCreated:
		return events.NewInvoiceCreatedEvent(eventInvoiceID, eventUserID, "100.00", "USD", "Other"), nil
	case events.EventTypeInvoiceUpdated:
		return events.NewInvoiceUpdatedEvent(eventInvoiceID, eventUserID), nil
	case events.EventTypeInvoiceStatusChanged:
		return events.NewInvoiceStatusChangedEvent(eventInvoiceID, eventUserID, "pending", "approved"), nil
	case events.EventTypeInvoiceDeleted:
		return events.NewInvoiceDeletedEvent(eventInvoiceID, eventUserID), nil
	case events.EventTypeInvoiceFileUploaded:
		return events.NewFileUploadedEvent(eventUserID, "http://localhost:8080/files/test.pdf", "test.pdf", 1024), nil
	default:
		return nil, fmt.Errorf("unknown event type %q, expected one of %s", eventType, strings.Join(events.EventTypes, ", "))
	}
}

func publishTestEvent(ctx context.Context, eventType string) error {
	event, err := testEvent(eventType)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.LoggerWrapper()

	eventBus := events.NewEventBus(log)
	eventBus.Subscribe(events.AllEvents, func(ctx context.Context, event events.Event) error {
		log.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	if cfg.Events.AMQPURL != "" {
		forwarder, err := amqp.Dial(cfg.Events.AMQPURL, cfg.Events.Exchange, log)
		if err != nil {
			return err
		}
		defer forwarder.Close()
		forwarder.Attach(eventBus)
	}

	log.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())
	if err := eventBus.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := eventBus.Wait(waitCtx); err != nil {
		return err
	}

	log.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventInvoiceID, "invoice", "inv_test", "invoice id carried by the event")
	publishEventCmd.Flags().StringVar(&eventUserID, "user", "demo-user", "user id carried by the event")

	eventCmd.AddCommand(publishEventCmd)
	eventCmd.AddCommand(listEventsCmd)

	rootCmd.AddCommand(eventCmd)
}
