package reconcile

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultPollInterval = 15 * time.Second
	DefaultDebounce     = 250 * time.Millisecond
)

// RefreshFunc reloads the cache from the authoritative store.
type RefreshFunc func(ctx context.Context) error

// Scheduler is the single place refreshes are started from. Overlapping callers share
// one load, push triggers are debounced, and a poll ticker refreshes regardless so a
// dead push channel still converges.
type Scheduler struct {
	PollInterval time.Duration
	Debounce     time.Duration

	refresh RefreshFunc
	group   singleflight.Group
	trigger chan struct{}
	logger  *logrus.Logger
}

func NewScheduler(refresh RefreshFunc, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scheduler{
		PollInterval: DefaultPollInterval,
		Debounce:     DefaultDebounce,
		refresh:      refresh,
		trigger:      make(chan struct{}, 1),
		logger:       logger,
	}
}

// Refresh runs the refresh now, or joins the one already in flight.
func (s *Scheduler) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		return nil, s.refresh(ctx)
	})
	return err
}

// ForceRefresh starts a new load even when one is in flight. A load that began before
// a rejected write may not include its effect, so joining it is not enough.
func (s *Scheduler) ForceRefresh(ctx context.Context) error {
	s.group.Forget("refresh")
	return s.Refresh(ctx)
}

// Trigger asks for a refresh soon. Triggers arriving within the debounce window
// collapse into one refresh. Never blocks.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run drives triggered and periodic refreshes until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			if fire == nil {
				debounce = time.NewTimer(s.Debounce)
				fire = debounce.C
			}
		case <-fire:
			fire = nil
			s.run(ctx, "trigger")
		case <-ticker.C:
			s.run(ctx, "poll")
		}
	}
}

func (s *Scheduler) run(ctx context.Context, reason string) {
	if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		s.logger.WithError(err).WithField("reason", reason).Warn("cache refresh failed, keeping stale data")
	}
}
