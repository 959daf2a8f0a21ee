package broadcast

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"energy-flow-monitor-go/internal/models"
	"energy-flow-monitor-go/internal/simulator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTickRepository is an in-memory TickRepository for exercising the
// writer and the loop without a database.
type mockTickRepository struct {
	sync.Mutex
	records    []models.TickRecord
	failAppend bool
	blockChan  chan struct{} // when set, Append blocks until it is closed
}

func (m *mockTickRepository) Append(_ context.Context, rec models.TickRecord) error {
	if m.blockChan != nil {
		<-m.blockChan
	}
	m.Lock()
	defer m.Unlock()
	if m.failAppend {
		return &models.StorageError{Op: "append reading", Err: errors.New("backend unavailable")}
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockTickRepository) History(context.Context, models.HistoryFilter) ([]models.TickRecord, error) {
	return nil, nil
}

func (m *mockTickRepository) Series(context.Context, string, string) ([]models.SeriesPoint, error) {
	return nil, nil
}

func (m *mockTickRepository) count() int {
	m.Lock()
	defer m.Unlock()
	return len(m.records)
}

func newTestBroadcaster(repo *mockTickRepository, buffer int) (*Broadcaster, *Writer) {
	gen := simulator.NewGeneratorWithSource(models.DefaultProfiles, rand.NewSource(1))
	ledger := simulator.NewLedger()

	w := NewWriter(repo, 64, nil)
	w.Start()

	bc := New(gen, ledger, w, Options{
		Interval:       10 * time.Millisecond,
		ObserverBuffer: buffer,
	})
	return bc, w
}

func recvSnapshot(t *testing.T, obs *Observer) models.TickSnapshot {
	t.Helper()
	select {
	case snap, ok := <-obs.Snapshots():
		require.True(t, ok, "observer queue closed unexpectedly")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot")
		return models.TickSnapshot{}
	}
}

// TestObserversReceiveIdenticalSnapshots checks that two observers
// connected at the same time see the very same tick.
func TestObserversReceiveIdenticalSnapshots(t *testing.T) {
	repo := &mockTickRepository{}
	bc, w := newTestBroadcaster(repo, 8)
	defer w.Stop()

	obsA := bc.Subscribe()
	obsB := bc.Subscribe()
	go bc.Run()
	defer bc.Stop()

	snapA := recvSnapshot(t, obsA)
	snapB := recvSnapshot(t, obsB)

	assert.Equal(t, snapA, snapB, "all observers must see the same snapshot for a tick")

	require.Len(t, snapA.Data, len(models.Kinds))
	for kind, reading := range snapA.Data {
		assert.True(t, models.ValidKind(string(kind)))
		assert.True(t, models.ValidRoute(reading.RouteName))
		assert.GreaterOrEqual(t, reading.Storage, 0.0)
		assert.LessOrEqual(t, reading.Storage, simulator.Capacity)
	}
}

// TestSnapshotHistoryIncludesCurrentTick mirrors the stream contract: the
// trailing window ends with the tick being delivered.
func TestSnapshotHistoryIncludesCurrentTick(t *testing.T) {
	repo := &mockTickRepository{}
	bc, w := newTestBroadcaster(repo, 8)
	defer w.Stop()

	obs := bc.Subscribe()
	go bc.Run()
	defer bc.Stop()

	first := recvSnapshot(t, obs)
	require.Len(t, first.History, 1)
	assert.Equal(t, first.TickPoint, first.History[0])

	second := recvSnapshot(t, obs)
	require.Len(t, second.History, 2)
	assert.Equal(t, second.TickPoint, second.History[1])
}

// TestSlowObserverDoesNotBlockOthers leaves one observer unread with a
// single-slot queue and checks that a second observer keeps receiving.
func TestSlowObserverDoesNotBlockOthers(t *testing.T) {
	repo := &mockTickRepository{}
	bc, w := newTestBroadcaster(repo, 1)
	defer w.Stop()

	slow := bc.Subscribe() // never read from
	fast := bc.Subscribe()
	_ = slow
	go bc.Run()
	defer bc.Stop()

	for i := 0; i < 5; i++ {
		recvSnapshot(t, fast)
	}
}

// TestPersistenceFailureDoesNotStopLoop makes every durable write fail and
// checks that ticks keep flowing to observers.
func TestPersistenceFailureDoesNotStopLoop(t *testing.T) {
	repo := &mockTickRepository{failAppend: true}
	bc, w := newTestBroadcaster(repo, 8)
	defer w.Stop()

	obs := bc.Subscribe()
	go bc.Run()
	defer bc.Stop()

	recvSnapshot(t, obs)
	recvSnapshot(t, obs)
	recvSnapshot(t, obs)
}

func TestUnsubscribeClosesQueueAndIsIdempotent(t *testing.T) {
	repo := &mockTickRepository{}
	bc, w := newTestBroadcaster(repo, 8)
	defer w.Stop()

	obs := bc.Subscribe()
	bc.Unsubscribe(obs)

	_, ok := <-obs.Snapshots()
	assert.False(t, ok, "queue must be closed after unsubscribe")

	// A second unsubscribe for the same observer must be harmless.
	bc.Unsubscribe(obs)
}

// TestRecordsArePersisted runs a few ticks and checks that one record per
// kind per tick reached the repository.
func TestRecordsArePersisted(t *testing.T) {
	repo := &mockTickRepository{}
	bc, w := newTestBroadcaster(repo, 8)

	obs := bc.Subscribe()
	go bc.Run()

	recvSnapshot(t, obs)
	recvSnapshot(t, obs)
	bc.Stop()
	w.Stop() // flushes the queue

	count := repo.count()
	assert.GreaterOrEqual(t, count, 2*len(models.Kinds))
	assert.Zero(t, count%len(models.Kinds), "ticks must persist all kinds or none")
}

func TestStatsAccumulate(t *testing.T) {
	repo := &mockTickRepository{}
	bc, w := newTestBroadcaster(repo, 8)
	defer w.Stop()

	obs := bc.Subscribe()
	go bc.Run()
	recvSnapshot(t, obs)
	recvSnapshot(t, obs)
	bc.Stop()

	stats := bc.Stats()
	require.Len(t, stats, len(models.Kinds))
	for kind, st := range stats {
		assert.GreaterOrEqual(t, st.Ticks, int64(2), "kind %s", kind)
		assert.GreaterOrEqual(t, st.Storage, 0.0)
		assert.LessOrEqual(t, st.Storage, simulator.Capacity)
	}
}
