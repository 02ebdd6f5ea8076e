package events_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/frahmantamala/invoice-management/internal/core/events"
	"github.com/frahmantamala/invoice-management/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(logger.Discard())
	})

	It("delivers to type and wildcard subscribers", func() {
		var mu sync.Mutex
		var got []string
		record := func(tag string) events.Handler {
			return func(ctx context.Context, e events.Event) error {
				mu.Lock()
				defer mu.Unlock()
				got = append(got, tag+":"+e.EventType())
				return nil
			}
		}
		bus.Subscribe(events.EventTypeInvoiceCreated, record("created"))
		bus.Subscribe(events.AllEvents, record("all"))

		Expect(bus.Publish(context.Background(), events.NewInvoiceCreatedEvent("inv_1", "u1", "10", "USD", "Travel"))).To(Succeed())
		Expect(bus.Publish(context.Background(), events.NewInvoiceDeletedEvent("inv_1", "u1"))).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(bus.Wait(ctx)).To(Succeed())

		Expect(got).To(ConsistOf("created:invoice.created", "all:invoice.created", "all:invoice.deleted"))
	})

	It("detaches handlers from the caller's cancellation", func() {
		errCh := make(chan error, 1)
		bus.Subscribe(events.EventTypeInvoiceUpdated, func(ctx context.Context, e events.Event) error {
			errCh <- ctx.Err()
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(bus.Publish(ctx, events.NewInvoiceUpdatedEvent("inv_1", "u1"))).To(Succeed())
		Eventually(errCh).Should(Receive(BeNil()))
	})

	It("returns handler errors from PublishSync", func() {
		bus.Subscribe(events.EventTypeInvoiceStatusChanged, func(ctx context.Context, e events.Event) error {
			return errors.New("boom")
		})

		err := bus.PublishSync(context.Background(), events.NewInvoiceStatusChangedEvent("inv_1", "u1", "pending", "paid"))
		Expect(err).To(MatchError(ContainSubstring("boom")))
	})

	It("ignores events nobody listens to", func() {
		Expect(bus.PublishSync(context.Background(), events.NewFileUploadedEvent("u1", "http://x/f.pdf", "f.pdf", 3))).To(Succeed())
	})

	It("fills the payload map", func() {
		e := events.NewInvoiceStatusChangedEvent("inv_1", "u1", "pending", "paid")
		Expect(e.Payload()).To(HaveKeyWithValue("to_status", "paid"))
		Expect(e.EventID()).NotTo(BeEmpty())
	})
})
