package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/hashicorp/go-hclog"

	"novasport-checker/internal/ledger"
	"novasport-checker/internal/model"
)

// queueFactor sizes the jobs buffer relative to the number of workers.
const queueFactor = 8

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of the relay store used by the workers.
type SubscriptionStore interface {
	SubscriptionsForSport(ctx context.Context, sport string) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Payload is the JSON body pushed to subscribed browsers.
type Payload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Sport     string `json:"sport"`
	ClassID   string `json:"class_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

// WorkerPool sends a push notification for every booking it receives.
type WorkerPool struct {
	size    int
	jobs    chan ledger.Record
	subs    SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	logger  hclog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, subs SubscriptionStore, webpushOptions *webpush.Options, logger hclog.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan ledger.Record, size*queueFactor),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// Start launches the worker goroutines. They stop when ctx is done.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.logger.With("worker", id)
	log.Debug("worker started")
	for {
		select {
		case rec := <-wp.jobs:
			log.Debug("processing booking", "sport", rec.Sport, "class_id", rec.ClassID)
			wp.notifyBooking(ctx, rec)
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		}
	}
}

// Dispatch queues a booking without blocking. The record is dropped when the queue is full.
func (wp *WorkerPool) Dispatch(rec ledger.Record) {
	select {
	case wp.jobs <- rec:
	default:
		wp.logger.Warn("notification queue is full, dropping booking notification", "class_id", rec.ClassID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan ledger.Record {
	return wp.jobs
}

// notifyBooking sends the booking to every subscription following its sport.
func (wp *WorkerPool) notifyBooking(ctx context.Context, rec ledger.Record) {
	subscriptions, err := wp.subs.SubscriptionsForSport(ctx, rec.Sport)
	if err != nil {
		wp.logger.Error("failed to fetch subscriptions", "sport", rec.Sport, "error", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(NewPayload(rec))
	if err != nil {
		wp.logger.Error("failed to encode notification", "error", err)
		return
	}

	wp.logger.Info("sending booking notifications", "sport", rec.Sport, "class_id", rec.ClassID, "subscriptions", len(subscriptions))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// NewPayload describes a booking for the browser.
func NewPayload(rec ledger.Record) Payload {
	return Payload{
		Title:     "NovaSport: class booked",
		Body:      fmt.Sprintf("%s on %s at %s (class %s)", rec.Sport, rec.Date, rec.StartTime, rec.ClassID),
		Sport:     rec.Sport,
		ClassID:   rec.ClassID,
		Date:      rec.Date,
		StartTime: rec.StartTime,
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("failed to send notification", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	// Expired subscription
	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("subscription expired, deleting", "endpoint", sub.Endpoint)
		if err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("failed to delete expired subscription", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
