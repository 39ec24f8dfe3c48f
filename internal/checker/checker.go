// Package checker runs the polling loop: wait, look for wanted sessions, book them.
package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"novasport-checker/config"
	"novasport-checker/internal/ledger"
	"novasport-checker/internal/matcher"
	"novasport-checker/internal/novasport"
	"novasport-checker/internal/timegate"
)

// API is the part of the NovaSport client used by the loop.
type API interface {
	ListDates(ctx context.Context, sport string, params novasport.Params) ([]string, error)
	ListSessions(ctx context.Context, sport, date string, params novasport.Params) ([]novasport.Session, error)
	Book(ctx context.Context, classID string) (*novasport.Session, error)
}

// Notifier receives confirmed bookings. Dispatch must not block.
type Notifier interface {
	Dispatch(rec ledger.Record)
}

// Service orchestrates the checking cycles.
type Service struct {
	queries  []config.SportQuery
	api      API
	gate     *timegate.Gate
	ledger   *ledger.Ledger
	notifier Notifier
	logger   hclog.Logger
	now      func() time.Time
	wait     func(ctx context.Context, d time.Duration) error
}

// Option customises a Service.
type Option func(*Service)

// WithNotifier sends every confirmed booking to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithGate replaces the gate built from the configured intervals.
func WithGate(g *timegate.Gate) Option {
	return func(s *Service) { s.gate = g }
}

// WithWait replaces the interruptible sleep between cycles.
func WithWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.wait = wait }
}

// WithClock replaces time.Now for booking timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a checker for the sports declared in cfg.
func NewService(cfg *config.Config, api API, logger hclog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Service{
		queries: cfg.ParamQueries,
		api:     api,
		gate:    timegate.New(cfg.MinInterval, cfg.MaxInterval, cfg.FixedInterval),
		ledger:  ledger.New(),
		logger:  logger,
		now:     time.Now,
		wait:    sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ledger returns the bookings confirmed so far.
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

// Run loops until ctx is cancelled and returns ctx.Err().
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting checker", "sports", len(s.queries),
		"min_interval", s.gate.MinInterval, "max_interval", s.gate.MaxInterval)

	for {
		d := s.gate.Next()
		if d.Reason == timegate.ReasonBoundary {
			s.logger.Info("close to the hour boundary, waiting for the new hour",
				"until_boundary", d.UntilBoundary, "wait", d.Wait)
		} else {
			s.logger.Debug("waiting before next check", "wait", d.Wait)
		}

		if err := s.wait(ctx, d.Wait); err != nil {
			s.logger.Info("checker shutting down")
			return err
		}

		s.CheckOnce(ctx)
		if err := ctx.Err(); err != nil {
			s.logger.Info("checker shutting down")
			return err
		}
	}
}

// CheckOnce scans every sport once, in configuration order. Failures are
// logged and skip the current unit of work; the next cycle is the retry.
func (s *Service) CheckOnce(ctx context.Context) {
	log := s.logger.With("cycle", uuid.NewString())
	log.Debug("executing check cycle")

	for _, q := range s.queries {
		if ctx.Err() != nil {
			return
		}
		s.checkSport(ctx, log.With("sport", q.Sport), q)
	}
}

func (s *Service) checkSport(ctx context.Context, log hclog.Logger, q config.SportQuery) {
	params := novasport.Params(q.Params)

	dates, err := s.api.ListDates(ctx, q.Sport, params)
	if err != nil {
		log.Error("failed to list session dates, skipping sport for this cycle", "error", err)
		return
	}

	matches := matcher.ByWeekday(dates, q.Sessions)
	log.Debug("dates matching the schedule", "dates", len(dates), "matched", len(matches))

	for _, m := range matches {
		if ctx.Err() != nil {
			return
		}
		dlog := log.With("date", m.Date)

		sessions, err := s.api.ListSessions(ctx, q.Sport, m.Date, params)
		if err != nil {
			dlog.Error("failed to list sessions", "error", err)
			continue
		}

		selected := matcher.ByHourAndAvailability(sessions, m.Entry)
		if len(selected) == 0 {
			dlog.Debug("no available session at the wanted hours", "hours", m.Entry.Hours.String())
			continue
		}

		for _, sel := range selected {
			if ctx.Err() != nil {
				return
			}
			if !q.Autobooking {
				dlog.Info("session available", "start_time", sel.StartTime, "class_id", sel.ClassID)
				continue
			}
			s.book(ctx, dlog, q.Sport, m.Date, sel)
		}
	}
}

// book tries a session exactly once.
func (s *Service) book(ctx context.Context, log hclog.Logger, sport, date string, sel matcher.SessionMatch) {
	log = log.With("class_id", sel.ClassID, "start_time", sel.StartTime)

	res, err := s.api.Book(ctx, sel.ClassID)
	switch {
	case err != nil:
		log.Warn("class not booked", "error", err)
		return
	case res == nil:
		log.Warn("class not booked, maybe already booked for this sport the same day", "response", "empty")
		return
	case !res.IsBooked:
		log.Warn("class not booked, maybe already booked for this sport the same day", "response", fmt.Sprintf("%+v", *res))
		return
	}

	rec := ledger.Record{
		Sport:     sport,
		ClassID:   sel.ClassID,
		Date:      date,
		StartTime: sel.StartTime,
		BookedAt:  s.now(),
	}
	s.ledger.Append(rec)
	log.Info("BOOKED " + sel.ClassID)

	if s.notifier != nil {
		s.notifier.Dispatch(rec)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
