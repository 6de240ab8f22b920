package engine

import (
	"context"
	"database/sql"
	"time"

	"sigma/internal/config"
	"sigma/internal/control"
	"sigma/internal/derive"
	"sigma/internal/domain"
	"sigma/internal/seed"
	"sigma/internal/store"
)

// Engine is the composition root for the demo state: it owns the stores,
// the control surface and the clock. There is no package-level state; a
// process holds exactly one Engine.
type Engine struct {
	DB      *sql.DB
	Slots   store.Slot
	Events  *store.EventStore
	Actions *store.ActionLogStore
	Control *control.Surface
	Config  *config.Config
	Now     func() time.Time
}

// New builds an Engine over the SQLite-backed slots. Migrations must have
// run already.
func New(ctx context.Context, conn *sql.DB, cfg *config.Config, now func() time.Time) (*Engine, error) {
	e, err := NewWithSlots(ctx, store.DBSlots{DB: conn}, cfg, now)
	if err != nil {
		return nil, err
	}
	e.DB = conn
	return e, nil
}

// NewWithSlots builds an Engine over any Slot implementation.
func NewWithSlots(ctx context.Context, slots store.Slot, cfg *config.Config, now func() time.Time) (*Engine, error) {
	if now == nil {
		now = time.Now
	}
	ctrl := control.New(cfg.Demo.EventIDSeed)
	events, err := store.NewEventStore(ctx, slots, cfg.Demo.EventSlot, now, func(t time.Time) []domain.Event {
		return seed.Events(t, seed.Options{StaleAgents: ctrl.Stale()})
	})
	if err != nil {
		return nil, err
	}
	actions, err := store.NewActionLogStore(ctx, slots, cfg.Demo.ActionSlot, now, seed.ActionLog)
	if err != nil {
		return nil, err
	}
	return &Engine{
		Slots:   slots,
		Events:  events,
		Actions: actions,
		Control: ctrl,
		Config:  cfg,
		Now:     now,
	}, nil
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// AgentView is an agent plus its derived operational state.
type AgentView struct {
	ID             domain.AgentID    `json:"id"`
	Title          string            `json:"title"`
	Responsibility string            `json:"responsibility"`
	Paused         bool              `json:"paused"`
	State          domain.AgentState `json:"state" enum:"active,no_data,paused"`
	LastEventAt    int64             `json:"last_event_at,omitempty"`
}

// Agents returns the catalog with pause overrides applied and state derived
// from each agent's scoped events at the current clock.
func (e *Engine) Agents() []AgentView {
	now := e.now()
	paused := e.Control.Paused()
	all := e.Events.List(nil)
	var out []AgentView
	for _, a := range seed.Agents(paused) {
		scoped := derive.FilterByAgent(all, a.ID)
		lastAt, ok := derive.LastEventAt(scoped)
		view := AgentView{
			ID:             a.ID,
			Title:          a.Title,
			Responsibility: a.Responsibility,
			Paused:         a.Paused,
			State:          derive.AgentState(a.Paused, lastAt, ok, now),
		}
		if ok {
			view.LastEventAt = lastAt
		}
		out = append(out, view)
	}
	return out
}

// InjectCritical allocates the next demo event id, builds the critical
// heating override and adds it to the event store.
func (e *Engine) InjectCritical(ctx context.Context) (domain.Event, error) {
	id := e.Control.NextEventID()
	def := seed.CriticalHeatEvent(id, e.now())
	return e.Events.AddFromOverride(ctx, def, e.Control.Stale())
}

// Tasks returns the generated task/decision records for the current clock.
func (e *Engine) Tasks() []domain.Task {
	return seed.Tasks(e.now())
}

// Timeseries returns the per-domain metric series ending at the current
// clock.
func (e *Engine) Timeseries() map[domain.AgentID][]domain.TimeSeriesPoint {
	return seed.Timeseries(e.now())
}

// TimeseriesFor returns one domain's series.
func (e *Engine) TimeseriesFor(id domain.AgentID) ([]domain.TimeSeriesPoint, bool) {
	series, ok := e.Timeseries()[id]
	return series, ok
}

// Reset reseeds both stores from the generator at the current clock.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.Events.Reset(ctx); err != nil {
		return err
	}
	return e.Actions.Reset(ctx)
}
