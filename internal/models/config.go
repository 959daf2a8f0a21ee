package models

// Config defines all runtime parameters of the monitor.
type Config struct {
	ListenAddr      string           `json:"listen_addr"`       // HTTP/WebSocket listen address, e.g. ":8080"
	Database        DatabaseConfig   `json:"database"`          // durable store for readings and anomalies
	StatePath       string           `json:"state_path"`        // BadgerDB directory for ledger snapshots; empty disables
	ResumeState     bool             `json:"resume_state"`      // resume ledger levels from the last snapshot instead of zero
	TickIntervalSec int              `json:"tick_interval_sec"` // seconds between simulation ticks
	ObserverBuffer  int              `json:"observer_buffer"`   // per-observer delivery queue depth
	StateSaveEvery  int              `json:"state_save_every"`  // save a ledger snapshot every N ticks; 0 disables
	Profiles        map[Kind]Profile `json:"profiles"`          // per-kind draw parameters; missing kinds fall back to defaults
	Forecast        ForecastConfig   `json:"forecast"`          // external forecasting collaborator
	LogConfig       LogConfig        `json:"log"`
}

// DatabaseConfig selects and configures the SQL backend.
type DatabaseConfig struct {
	Driver string `json:"driver"` // "postgres" or "sqlite3"
	DSN    string `json:"dsn"`    // overridden by DATABASE_URL when set
}

// ForecastConfig configures the external forecasting service client.
type ForecastConfig struct {
	URL        string `json:"url"`
	TimeoutSec int    `json:"timeout_sec"`
	RetryMax   int    `json:"retry_max"` // 0 keeps at-most-one-attempt semantics
}

// LogConfig defines the logging behaviour.
type LogConfig struct {
	Level      string `json:"level"`       // "debug", "info", "warn", "error"
	Output     string `json:"output"`      // "console", "file", "both"
	File       string `json:"file"`        // log file path
	MaxSize    int    `json:"max_size"`    // max size of a single log file (MB)
	MaxBackups int    `json:"max_backups"` // max number of rotated files to keep
	MaxAge     int    `json:"max_age"`     // max age of rotated files (days)
	Compress   bool   `json:"compress"`    // compress rotated files
}
