package persistence

import (
	"context"
	"testing"
	"time"

	"energy-flow-monitor-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLRepository("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func tick(ts time.Time, kind models.Kind, route string, value float64) models.TickRecord {
	return models.TickRecord{
		Timestamp: ts,
		Kind:      kind,
		Value:     value,
		Outgoing:  value / 4,
		Loss:      value / 10,
		Storage:   value,
		RouteName: route,
	}
}

func TestAppendAndHistoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := tick(base, models.Solar, "A", 48.5)
	require.NoError(t, repo.Append(ctx, rec))

	got, err := repo.History(ctx, models.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.True(t, got[0].Timestamp.Equal(rec.Timestamp))
	assert.Equal(t, rec.Kind, got[0].Kind)
	assert.Equal(t, rec.RouteName, got[0].RouteName)
	assert.InDelta(t, rec.Value, got[0].Value, 1e-9)
	assert.InDelta(t, rec.Outgoing, got[0].Outgoing, 1e-9)
	assert.InDelta(t, rec.Loss, got[0].Loss, 1e-9)
	assert.InDelta(t, rec.Storage, got[0].Storage, 1e-9)
}

func TestHistoryFiltersAreConjunctive(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, tick(base, models.Solar, "A", 10)))
	require.NoError(t, repo.Append(ctx, tick(base.Add(time.Minute), models.Solar, "B", 20)))
	require.NoError(t, repo.Append(ctx, tick(base.Add(2*time.Minute), models.Wind, "A", 30)))

	got, err := repo.History(ctx, models.HistoryFilter{Kind: "Solar", Route: "A"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 10.0, got[0].Value, 1e-9)
}

func TestHistoryTimeRange(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, tick(base.Add(time.Duration(i)*time.Hour), models.Hydro, "C", float64(i))))
	}

	start := base.Add(time.Hour)
	end := base.Add(3 * time.Hour)
	got, err := repo.History(ctx, models.HistoryFilter{Start: &start, End: &end})
	require.NoError(t, err)
	require.Len(t, got, 3, "range bounds are inclusive")
}

// TestHistoryOrderedNewestFirst inserts out of order and expects the query
// to come back sorted by timestamp descending.
func TestHistoryOrderedNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, tick(base.Add(time.Hour), models.Wind, "B", 2)))
	require.NoError(t, repo.Append(ctx, tick(base.Add(3*time.Hour), models.Wind, "B", 4)))
	require.NoError(t, repo.Append(ctx, tick(base, models.Wind, "B", 1)))

	got, err := repo.History(ctx, models.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.InDelta(t, 4.0, got[0].Value, 1e-9)
	assert.InDelta(t, 1.0, got[2].Value, 1e-9)
}

// TestSeriesOldestFirst checks the forecast input ordering, which is the
// opposite of the history endpoint.
func TestSeriesOldestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, tick(base.Add(time.Hour), models.Nuclear, "D", 91)))
	require.NoError(t, repo.Append(ctx, tick(base, models.Nuclear, "D", 90)))
	require.NoError(t, repo.Append(ctx, tick(base, models.Nuclear, "A", 89))) // other route, excluded

	points, err := repo.Series(ctx, "Nuclear", "D")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.InDelta(t, 90.0, points[0].Value, 1e-9)
	assert.InDelta(t, 91.0, points[1].Value, 1e-9)
}

func TestAnomalyInsertAndDatePartQuery(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	may := models.AnomalyRecord{
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Kind:      models.Wind,
		RouteName: "B",
		Value:     42,
	}
	june := models.AnomalyRecord{
		Timestamp: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Kind:      models.Wind,
		RouteName: "B",
		Value:     17,
	}
	require.NoError(t, repo.Insert(ctx, may))
	require.NoError(t, repo.Insert(ctx, june))

	got, err := repo.Query(ctx, models.AnomalyFilter{Month: 5, Day: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Timestamp.Equal(may.Timestamp))
	assert.Equal(t, models.Wind, got[0].Kind)
	assert.Equal(t, "B", got[0].RouteName)
	assert.InDelta(t, 42.0, got[0].Value, 1e-9)
}

func TestAnomalyQueryNoMatches(t *testing.T) {
	repo := newTestRepository(t)

	got, err := repo.Query(context.Background(), models.AnomalyFilter{Month: 12})
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestBindRewritesPlaceholdersForPostgres covers the placeholder rewrite
// without needing a live postgres server.
func TestBindRewritesPlaceholdersForPostgres(t *testing.T) {
	pg := &sqlRepository{driver: "postgres"}
	lite := &sqlRepository{driver: "sqlite3"}

	query := "INSERT INTO t (a, b) VALUES (?, ?)"
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", pg.bind(query))
	assert.Equal(t, query, lite.bind(query))
}
