package broadcast

import (
	"context"
	"sync"

	"energy-flow-monitor-go/internal/logger"
	"energy-flow-monitor-go/internal/metrics"
	"energy-flow-monitor-go/internal/models"
	"energy-flow-monitor-go/internal/persistence"
)

// Writer appends finalized tick records to the durable store from its own
// goroutine, so a slow or failing database never blocks the tick loop.
// Records are handed over through a buffered channel; when the buffer is
// full the record is dropped and counted, matching the best-effort
// persistence contract.
type Writer struct {
	repo     persistence.TickRepository
	records  chan models.TickRecord
	stopChan chan struct{}
	wg       sync.WaitGroup
	metrics  *metrics.Metrics
}

// NewWriter creates a writer with the given queue depth.
func NewWriter(repo persistence.TickRepository, buffer int, m *metrics.Metrics) *Writer {
	return &Writer{
		repo:     repo,
		records:  make(chan models.TickRecord, buffer),
		stopChan: make(chan struct{}),
		metrics:  m,
	}
}

// Start begins the background write loop.
func (w *Writer) Start() {
	w.wg.Add(1)
	go w.writeLoop()
}

// Stop flushes queued records and stops the write loop.
func (w *Writer) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

// Enqueue hands a record to the write loop without blocking. A full queue
// drops the record; the durable log is best-effort by contract.
func (w *Writer) Enqueue(rec models.TickRecord) {
	select {
	case w.records <- rec:
	default:
		logger.S().Warnf("persistence queue full, dropping record for %s", rec.Kind)
		if w.metrics != nil {
			w.metrics.DroppedWrites.Inc()
		}
	}
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()
	for {
		select {
		case rec := <-w.records:
			w.append(rec)
		case <-w.stopChan:
			w.drain()
			return
		}
	}
}

// drain writes whatever is still queued at shutdown, best-effort.
func (w *Writer) drain() {
	for {
		select {
		case rec := <-w.records:
			w.append(rec)
		default:
			return
		}
	}
}

// append performs one durable write. Failures are logged and counted but
// never propagate; at-most-one-attempt, no mid-tick retry.
func (w *Writer) append(rec models.TickRecord) {
	if err := w.repo.Append(context.Background(), rec); err != nil {
		logger.S().Errorf("failed to persist %s reading: %v", rec.Kind, err)
		if w.metrics != nil {
			w.metrics.PersistErrors.Inc()
		}
	}
}
