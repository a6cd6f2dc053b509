package devices

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Poller periodically refreshes a HealthView's selected controller.
type Poller struct {
	view     *HealthView
	interval time.Duration
	cron     *cron.Cron
	onPoll   func(error)

	mu      sync.Mutex
	ctx     context.Context
	entryID cron.EntryID
	running bool
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithOnPoll registers fn to run after every refresh with its result.
func WithOnPoll(fn func(error)) PollerOption {
	return func(p *Poller) {
		p.onPoll = fn
	}
}

// NewPoller creates a Poller that refreshes view every interval. Intervals
// below one second are rounded up by the scheduler.
func NewPoller(view *HealthView, interval time.Duration, options ...PollerOption) (*Poller, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	p := &Poller{
		view:     view,
		interval: interval,
		cron:     cron.New(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// Start schedules the refresh job. ctx bounds every refresh the job makes;
// once it is done the job stops fetching.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	schedule := fmt.Sprintf("@every %s", p.interval)
	id, err := p.cron.AddFunc(schedule, p.tick)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}
	p.ctx = ctx
	p.entryID = id
	p.running = true
	p.cron.Start()
	log.Debug().Dur("interval", p.interval).Msg("Entity poller started")
	return nil
}

func (p *Poller) tick() {
	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	p.Poll(ctx)
}

// Poll runs one refresh. Failures are already captured in the view's error
// slot and are only logged here.
func (p *Poller) Poll(ctx context.Context) {
	err := p.view.Refresh(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Scheduled entity refresh failed")
	}
	if p.onPoll != nil {
		p.onPoll(err)
	}
}

// Stop removes the job and waits for a running refresh to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.cron.Remove(p.entryID)
	p.running = false
	p.mu.Unlock()

	<-p.cron.Stop().Done()
	log.Debug().Msg("Entity poller stopped")
}
