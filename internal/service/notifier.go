package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"notedeck/internal/models"
	"notedeck/internal/repository"
	"notedeck/pkg/logger"
	"notedeck/pkg/metrics"
)

// Notifier is the best-effort notification sink. Implementations must never
// block the caller on delivery; failures are reported only through the error
// return and are swallowed by the dispatcher.
type Notifier interface {
	Notify(ctx context.Context, notification *models.Notification) error
}

// NotificationInput describes one fan-out: a single kind and message sent to
// one or more recipients.
type NotificationInput struct {
	ActorID     string
	Recipients  []string
	Kind        string
	Title       string
	Message     string
	ReferenceID string
	URL         string
}

// storeNotifier persists notifications to the feed, one row per recipient.
type storeNotifier struct {
	repo repository.NotificationRepository
}

// NewStoreNotifier creates a notifier backed by the notification repository.
func NewStoreNotifier(repo repository.NotificationRepository) Notifier {
	return &storeNotifier{repo: repo}
}

func (n *storeNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	return n.repo.Create(ctx, notification)
}

// Dispatcher sends notification batches asynchronously. Each Dispatch call
// runs in its own goroutine, joined by a WaitGroup that Wait drains at
// shutdown. Individual delivery failures are logged and swallowed; a
// notification outcome never reaches the caller and never rolls back the
// mutation that triggered it.
type Dispatcher struct {
	notifier Notifier
	log      *logger.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher with a per-batch delivery timeout.
func NewDispatcher(notifier Notifier, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		log:      log,
		metrics:  m,
		timeout:  10 * time.Second,
	}
}

// Dispatch sends the given batches without blocking the caller. The request
// context is deliberately not used: the mutation has already committed and
// delivery attempts should not be cancelled by the response being written.
func (d *Dispatcher) Dispatch(inputs ...NotificationInput) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		for _, input := range inputs {
			d.send(ctx, input)
		}
	}()
}

func (d *Dispatcher) send(ctx context.Context, input NotificationInput) {
	for _, recipient := range input.Recipients {
		notification := &models.Notification{
			UserID:      recipient,
			ActorID:     input.ActorID,
			Kind:        input.Kind,
			Title:       input.Title,
			Message:     input.Message,
			ReferenceID: input.ReferenceID,
			URL:         input.URL,
		}

		if err := d.notifier.Notify(ctx, notification); err != nil {
			if d.log != nil {
				d.log.WithFields(logrus.Fields{
					"kind":      input.Kind,
					"recipient": recipient,
					"error":     err.Error(),
				}).Warn("notification dispatch failed")
			}
			if d.metrics != nil {
				d.metrics.NotificationsSent.WithLabelValues(input.Kind, "failed").Inc()
			}
			continue
		}
		if d.metrics != nil {
			d.metrics.NotificationsSent.WithLabelValues(input.Kind, "ok").Inc()
		}
	}
}

// Wait blocks until all in-flight dispatches have finished. Called during
// shutdown so the process does not exit before delivery attempts complete.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
