// Package broadcast drives the fixed-interval simulation loop and fans
// each tick out to the durable store and every connected observer.
package broadcast

import (
	"sync"
	"time"

	"energy-flow-monitor-go/internal/history"
	"energy-flow-monitor-go/internal/logger"
	"energy-flow-monitor-go/internal/metrics"
	"energy-flow-monitor-go/internal/models"
	"energy-flow-monitor-go/internal/persistence"
	"energy-flow-monitor-go/internal/simulator"

	"github.com/google/uuid"
	"github.com/jxskiss/base62"
)

const (
	// WindowSize is the trailing window handed to observers with each tick.
	WindowSize = 50
	// RawHistorySize is the internal retention buffer the window is cut from.
	RawHistorySize = 100
)

// Observer is one connected consumer of the live tick stream. Each
// observer owns a bounded delivery queue; a queue that stays full only
// loses its own snapshots and never stalls the loop or its peers.
type Observer struct {
	ID string
	ch chan models.TickSnapshot
}

// Snapshots returns the observer's delivery queue. The channel is closed
// when the observer is unsubscribed.
func (o *Observer) Snapshots() <-chan models.TickSnapshot {
	return o.ch
}

// Options configures a Broadcaster.
type Options struct {
	Interval       time.Duration
	ObserverBuffer int
	StateSaveEvery int                         // ticks between ledger snapshots; 0 disables
	StateRepo      persistence.StateRepository // may be nil
	Metrics        *metrics.Metrics            // may be nil
}

// Broadcaster is the single driver of the simulation. It owns the
// generator and the ledger outright: every mutation of storage state
// happens on its loop goroutine, which is what makes the ledger's
// sequential-update invariant hold without locks.
type Broadcaster struct {
	opts   Options
	gen    *simulator.Generator
	ledger *simulator.Ledger
	writer *Writer
	raw    *history.Window

	mu        sync.RWMutex
	observers map[string]*Observer

	stats     map[models.Kind]*models.SessionStats
	startedAt time.Time
	tickCount int64

	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates a broadcaster. The generator and ledger must not be used by
// any other goroutine once handed over.
func New(gen *simulator.Generator, ledger *simulator.Ledger, writer *Writer, opts Options) *Broadcaster {
	return &Broadcaster{
		opts:      opts,
		gen:       gen,
		ledger:    ledger,
		writer:    writer,
		raw:       history.NewWindow(RawHistorySize),
		observers: make(map[string]*Observer),
		stats:     make(map[models.Kind]*models.SessionStats),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Subscribe registers a new observer and returns its handle. The observer
// starts receiving snapshots with the next tick.
func (b *Broadcaster) Subscribe() *Observer {
	u := uuid.New()
	obs := &Observer{
		ID: base62.EncodeToString(u[:]),
		ch: make(chan models.TickSnapshot, b.opts.ObserverBuffer),
	}

	b.mu.Lock()
	b.observers[obs.ID] = obs
	count := len(b.observers)
	b.mu.Unlock()

	if b.opts.Metrics != nil {
		b.opts.Metrics.ConnectedObservers.Set(float64(count))
	}
	logger.S().Infof("observer %s connected (%d total)", obs.ID, count)
	return obs
}

// Unsubscribe removes an observer and closes its queue. Calling it twice
// for the same observer is harmless. Other observers and the loop itself
// are unaffected.
func (b *Broadcaster) Unsubscribe(obs *Observer) {
	b.mu.Lock()
	if _, ok := b.observers[obs.ID]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.observers, obs.ID)
	close(obs.ch)
	count := len(b.observers)
	b.mu.Unlock()

	if b.opts.Metrics != nil {
		b.opts.Metrics.ConnectedObservers.Set(float64(count))
	}
	logger.S().Infof("observer %s disconnected (%d total)", obs.ID, count)
}

// Run executes the tick loop until Stop is called. The first tick fires
// immediately, then one per interval. A tick that overruns simply delays
// the next one; two ticks never execute concurrently.
func (b *Broadcaster) Run() {
	defer close(b.doneChan)
	b.startedAt = time.Now()

	ticker := time.NewTicker(b.opts.Interval)
	defer ticker.Stop()

	b.tick()
	for {
		select {
		case <-ticker.C:
			b.tick()
		case <-b.stopChan:
			return
		}
	}
}

// Stop terminates the tick loop and waits for the in-flight tick to
// complete. A tick either covers all kinds or is not attempted.
func (b *Broadcaster) Stop() {
	close(b.stopChan)
	<-b.doneChan
}

// tick advances every kind once, persists the records, updates the history
// buffer and delivers one identical snapshot to all observers.
func (b *Broadcaster) tick() {
	now := time.Now()
	point := models.TickPoint{
		Timestamp: now.Format("15:04:05"),
		Data:      make(map[models.Kind]models.KindReading, len(models.Kinds)),
	}

	for _, kind := range models.Kinds {
		sample := b.gen.Sample(kind)
		rec := b.ledger.Advance(now, kind, sample, b.gen.Route())

		b.writer.Enqueue(rec)
		point.Data[kind] = models.KindReading{
			Value:     rec.Value,
			Outgoing:  rec.Outgoing,
			Loss:      rec.Loss,
			Storage:   rec.Storage,
			RouteName: rec.RouteName,
		}
		b.record(kind, rec)
	}

	b.raw.Push(point)
	snap := models.TickSnapshot{
		TickPoint: point,
		History:   b.raw.Latest(WindowSize),
	}
	b.deliver(snap)

	b.tickCount++
	if b.opts.Metrics != nil {
		b.opts.Metrics.TicksTotal.Inc()
	}
	if b.opts.StateRepo != nil && b.opts.StateSaveEvery > 0 && b.tickCount%int64(b.opts.StateSaveEvery) == 0 {
		b.saveState(now)
	}
}

// deliver fans the snapshot out. Every send is non-blocking: a full
// observer queue drops this snapshot for that observer only.
func (b *Broadcaster) deliver(snap models.TickSnapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, obs := range b.observers {
		select {
		case obs.ch <- snap:
		default:
			if b.opts.Metrics != nil {
				b.opts.Metrics.DroppedSnapshots.Inc()
			}
			logger.S().Debugf("observer %s queue full, snapshot dropped", obs.ID)
		}
	}
}

// record accumulates the session totals for the shutdown report.
func (b *Broadcaster) record(kind models.Kind, rec models.TickRecord) {
	st, ok := b.stats[kind]
	if !ok {
		st = &models.SessionStats{}
		b.stats[kind] = st
	}
	st.Ticks++
	st.Generated += rec.Value
	st.Outgoing += rec.Outgoing
	st.Loss += rec.Loss
	st.Storage = rec.Storage
}

// saveState persists a ledger snapshot. Failures are logged only; snapshot
// persistence is an optional convenience, not part of the durable log.
func (b *Broadcaster) saveState(now time.Time) {
	state := &models.SimState{
		Version:  1,
		Levels:   b.ledger.Snapshot(),
		LastTick: now,
		SavedAt:  time.Now(),
	}
	if err := b.opts.StateRepo.SaveState(state); err != nil {
		logger.S().Errorf("failed to save ledger snapshot: %v", err)
	}
}

// SaveStateNow persists a final ledger snapshot, used during shutdown.
func (b *Broadcaster) SaveStateNow() {
	if b.opts.StateRepo == nil {
		return
	}
	b.saveState(time.Now())
}

// Stats returns a copy of the per-kind session totals. Call it only after
// Stop has returned; the totals are owned by the loop goroutine.
func (b *Broadcaster) Stats() map[models.Kind]models.SessionStats {
	out := make(map[models.Kind]models.SessionStats, len(b.stats))
	for k, v := range b.stats {
		out[k] = *v
	}
	return out
}

// StartedAt returns when the tick loop started.
func (b *Broadcaster) StartedAt() time.Time {
	return b.startedAt
}
