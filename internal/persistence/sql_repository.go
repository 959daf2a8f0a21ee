package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"energy-flow-monitor-go/internal/models"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// sqlRepository is the database/sql implementation of Repository. It
// supports the "postgres" and "sqlite3" drivers; the handful of dialect
// differences (placeholders, date-part extraction) are isolated here.
type sqlRepository struct {
	db     *sql.DB
	driver string
}

// NewSQLRepository opens the database, verifies the connection and creates
// the tables if they do not exist.
func NewSQLRepository(driver, dsn string) (Repository, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	r := &sqlRepository{db: db, driver: driver}
	if err = r.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return r, nil
}

// createTables creates the two append-only tables and their query indexes.
func (r *sqlRepository) createTables() error {
	createEnergyDataSQL := `
	CREATE TABLE IF NOT EXISTS energy_data (
		timestamp TIMESTAMP NOT NULL,
		energy_type TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		outgoing DOUBLE PRECISION NOT NULL,
		loss DOUBLE PRECISION NOT NULL,
		storage DOUBLE PRECISION NOT NULL,
		route_name TEXT NOT NULL
	);`
	if _, err := r.db.Exec(createEnergyDataSQL); err != nil {
		return err
	}

	createAnomaliesSQL := `
	CREATE TABLE IF NOT EXISTS anomalies (
		timestamp TIMESTAMP NOT NULL,
		energy_type TEXT NOT NULL,
		route_name TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL
	);`
	if _, err := r.db.Exec(createAnomaliesSQL); err != nil {
		return err
	}

	// Range queries filter on (kind, route, timestamp); keep them indexed
	// so cost stays bounded as the log grows.
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_energy_data_kind_route_ts ON energy_data (energy_type, route_name, timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_energy_data_ts ON energy_data (timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_ts ON anomalies (timestamp);`,
	}
	for _, stmt := range indexes {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// bind rewrites "?" placeholders to the "$n" form when talking to postgres.
func (r *sqlRepository) bind(query string) string {
	if r.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// monthExpr returns the dialect expression extracting the month from the
// timestamp column, and dayExpr likewise for the day of month.
func (r *sqlRepository) monthExpr() string {
	if r.driver == "postgres" {
		return "EXTRACT(MONTH FROM timestamp)"
	}
	return "CAST(strftime('%m', timestamp) AS INTEGER)"
}

func (r *sqlRepository) dayExpr() string {
	if r.driver == "postgres" {
		return "EXTRACT(DAY FROM timestamp)"
	}
	return "CAST(strftime('%d', timestamp) AS INTEGER)"
}

// Append durably records one reading.
func (r *sqlRepository) Append(ctx context.Context, rec models.TickRecord) error {
	query := r.bind(`
	INSERT INTO energy_data (timestamp, energy_type, value, outgoing, loss, storage, route_name)
	VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		rec.Timestamp, string(rec.Kind), rec.Value, rec.Outgoing, rec.Loss, rec.Storage, rec.RouteName,
	)
	if err != nil {
		return &models.StorageError{Op: "append reading", Err: err}
	}
	return nil
}

// History returns readings matching the filter, most recent first.
func (r *sqlRepository) History(ctx context.Context, filter models.HistoryFilter) ([]models.TickRecord, error) {
	query := `
	SELECT timestamp, energy_type, value, outgoing, loss, storage, route_name
	FROM energy_data WHERE 1=1`
	var args []interface{}

	if filter.Kind != "" {
		query += " AND energy_type = ?"
		args = append(args, filter.Kind)
	}
	if filter.Route != "" {
		query += " AND route_name = ?"
		args = append(args, filter.Route)
	}
	if filter.Start != nil {
		query += " AND timestamp >= ?"
		args = append(args, *filter.Start)
	}
	if filter.End != nil {
		query += " AND timestamp <= ?"
		args = append(args, *filter.End)
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT %d", HistoryLimit)

	rows, err := r.db.QueryContext(ctx, r.bind(query), args...)
	if err != nil {
		return nil, &models.StorageError{Op: "query history", Err: err}
	}
	defer rows.Close()

	var records []models.TickRecord
	for rows.Next() {
		var rec models.TickRecord
		var kind string
		if err := rows.Scan(&rec.Timestamp, &kind, &rec.Value, &rec.Outgoing, &rec.Loss, &rec.Storage, &rec.RouteName); err != nil {
			return nil, &models.StorageError{Op: "scan history row", Err: err}
		}
		rec.Kind = models.Kind(kind)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StorageError{Op: "iterate history rows", Err: err}
	}
	return records, nil
}

// Series returns the forecast input series for one (kind, route), oldest first.
func (r *sqlRepository) Series(ctx context.Context, kind, route string) ([]models.SeriesPoint, error) {
	query := r.bind(fmt.Sprintf(`
	SELECT timestamp, value FROM energy_data
	WHERE energy_type = ? AND route_name = ?
	ORDER BY timestamp ASC LIMIT %d`, SeriesLimit))

	rows, err := r.db.QueryContext(ctx, query, kind, route)
	if err != nil {
		return nil, &models.StorageError{Op: "query series", Err: err}
	}
	defer rows.Close()

	var points []models.SeriesPoint
	for rows.Next() {
		var p models.SeriesPoint
		if err := rows.Scan(&p.Timestamp, &p.Value); err != nil {
			return nil, &models.StorageError{Op: "scan series row", Err: err}
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StorageError{Op: "iterate series rows", Err: err}
	}
	return points, nil
}

// Insert durably records one anomaly.
func (r *sqlRepository) Insert(ctx context.Context, rec models.AnomalyRecord) error {
	query := r.bind(`
	INSERT INTO anomalies (timestamp, energy_type, route_name, value)
	VALUES (?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query, rec.Timestamp, string(rec.Kind), rec.RouteName, rec.Value)
	if err != nil {
		return &models.StorageError{Op: "insert anomaly", Err: err}
	}
	return nil
}

// Query returns anomalies matching the filter, most recent first.
func (r *sqlRepository) Query(ctx context.Context, filter models.AnomalyFilter) ([]models.AnomalyRecord, error) {
	query := `
	SELECT timestamp, energy_type, route_name, value
	FROM anomalies WHERE 1=1`
	var args []interface{}

	if filter.Month != 0 {
		query += " AND " + r.monthExpr() + " = ?"
		args = append(args, filter.Month)
	}
	if filter.Day != 0 {
		query += " AND " + r.dayExpr() + " = ?"
		args = append(args, filter.Day)
	}
	if filter.Start != nil {
		query += " AND timestamp >= ?"
		args = append(args, *filter.Start)
	}
	if filter.End != nil {
		query += " AND timestamp <= ?"
		args = append(args, *filter.End)
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT %d", AnomalyLimit)

	rows, err := r.db.QueryContext(ctx, r.bind(query), args...)
	if err != nil {
		return nil, &models.StorageError{Op: "query anomalies", Err: err}
	}
	defer rows.Close()

	var records []models.AnomalyRecord
	for rows.Next() {
		var rec models.AnomalyRecord
		var kind string
		if err := rows.Scan(&rec.Timestamp, &kind, &rec.RouteName, &rec.Value); err != nil {
			return nil, &models.StorageError{Op: "scan anomaly row", Err: err}
		}
		rec.Kind = models.Kind(kind)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StorageError{Op: "iterate anomaly rows", Err: err}
	}
	return records, nil
}

// Close gracefully closes the connection to the database.
func (r *sqlRepository) Close() error {
	return r.db.Close()
}
