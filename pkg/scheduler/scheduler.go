// Package scheduler runs the scoreboard control loop: a refresh timer that
// fetches and applies the status line, and a rotation timer that cycles the
// matrix through the counter views.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/lights"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/render"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/state"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/statusline"
)

// Fetcher returns the raw response of one status request.
type Fetcher interface {
	Fetch() ([]byte, error)
}

// Drawer is the part of render.Renderer the loop uses.
type Drawer interface {
	Draw(sc render.Scene) error
	DrawMatrix(m render.Matrix) error
	DrawLights(l render.Lights) error
}

// Options controls timing and the parse policy.
type Options struct {
	Refresh time.Duration
	Rotate  time.Duration

	// MergePartial applies the decoded prefix of a truncated or malformed
	// line. Otherwise any parse error keeps the last good state.
	MergePartial bool

	// LoadingLights turns the indicators blue while a fetch runs.
	LoadingLights bool
}

// OptionsFrom reads the loop options out of a stored config.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Refresh:       cfg.Refresh(),
		Rotate:        cfg.Rotate(),
		MergePartial:  cfg.Has(config.FlagMergePartial),
		LoadingLights: cfg.Has(config.FlagLoadingLights),
	}
}

// Loop owns the display state. All of its methods must be called from one
// goroutine; other goroutines read the published Status.
type Loop struct {
	fetcher   Fetcher
	drawer    Drawer
	opts      Options
	published *state.Published
	heartbeat func()
	now       func() time.Time
	logger    *slog.Logger

	state    state.State
	view     render.View
	night    bool
	last     state.Outcome
	fetches  uint32
	failures uint32
}

// New creates a loop with every field Unset and the first view active.
// published may be nil.
func New(f Fetcher, d Drawer, opts Options, published *state.Published, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		fetcher:   f,
		drawer:    d,
		opts:      opts,
		published: published,
		heartbeat: func() {},
		now:       time.Now,
		logger:    logger,
		state:     state.New(),
	}
	l.publish()
	return l
}

// SetHeartbeat installs fn to run on every loop wake-up.
func (l *Loop) SetHeartbeat(fn func()) {
	if fn == nil {
		fn = func() {}
	}
	l.heartbeat = fn
}

// Run performs an initial refresh, then serves both timers until ctx is
// cancelled. A slow fetch delays the next rotation; the two never overlap.
func (l *Loop) Run(ctx context.Context) error {
	l.heartbeat()
	l.Refresh()

	rotate := time.NewTicker(l.opts.Rotate)
	defer rotate.Stop()
	refresh := time.NewTicker(l.opts.Refresh)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rotate.C:
			l.heartbeat()
			l.Rotate()
		case <-refresh.C:
			l.heartbeat()
			l.Refresh()
		}
	}
}

// Rotate advances to the next view and redraws the matrix. While night mode
// is active the view still advances but nothing is drawn.
func (l *Loop) Rotate() {
	l.view = l.view.Next()
	if !l.night {
		if err := l.drawer.DrawMatrix(render.MatrixFor(&l.state, l.view)); err != nil {
			l.logger.Error("draw matrix", "view", l.view.String(), "error", err)
		}
	}
	l.publish()
}

// Refresh runs one fetch cycle and redraws everything.
func (l *Loop) Refresh() {
	l.fetches++

	if l.opts.LoadingLights && !l.night {
		loading := render.Lights{lights.Blue, lights.Blue, lights.Blue}
		if err := l.drawer.DrawLights(loading); err != nil {
			l.logger.Warn("draw loading lights", "error", err)
		}
	}

	l.apply()

	l.night = l.state.NightActive()
	if err := l.drawer.Draw(render.Compose(&l.state, l.view)); err != nil {
		l.logger.Error("draw scene", "error", err)
	}
	l.publish()
}

func (l *Loop) apply() {
	buf, err := l.fetcher.Fetch()
	if err != nil {
		l.failures++
		l.last = state.OutcomeFetchFailed
		l.logger.Warn("fetch failed", "error", err)
		return
	}

	reading, err := statusline.Parse(buf)
	l.last = statusline.Outcome(err)
	switch {
	case err == nil:
		reading.ApplyTo(&l.state, l.now())
		l.logger.Debug("status applied", "line", statusline.Format(reading))
	case l.opts.MergePartial && reading.Count > 0:
		l.failures++
		reading.ApplyTo(&l.state, l.now())
		l.logger.Warn("partial status applied", "fields", reading.Count, "error", err)
	default:
		l.failures++
		l.logger.Warn("status rejected, keeping last state", "error", err)
	}
}

// Status returns the loop's current status.
func (l *Loop) Status() state.Status {
	return state.Status{
		State:    l.state,
		View:     uint8(l.view),
		Night:    l.night,
		Last:     l.last,
		Fetches:  l.fetches,
		Failures: l.failures,
	}
}

func (l *Loop) publish() {
	if l.published != nil {
		l.published.Store(l.Status())
	}
}
