package config

import (
	"encoding/json"
	"fmt"
	"os"

	"energy-flow-monitor-go/internal/models"
)

// LoadConfig loads the JSON config file at path, applies defaults and
// validates it.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := defaultConfig()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}

	applyDefaults(config)
	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// defaultConfig returns a config populated with the built-in defaults.
func defaultConfig() *models.Config {
	return &models.Config{
		ListenAddr:      ":8080",
		Database:        models.DatabaseConfig{Driver: "sqlite3", DSN: "energy.db"},
		TickIntervalSec: 3,
		ObserverBuffer:  16,
		StateSaveEvery:  20,
		Forecast:        models.ForecastConfig{TimeoutSec: 10},
		LogConfig:       models.LogConfig{Level: "info", Output: "console"},
	}
}

// applyDefaults fills in anything the file left unset.
func applyDefaults(cfg *models.Config) {
	if cfg.TickIntervalSec <= 0 {
		cfg.TickIntervalSec = 3
	}
	if cfg.ObserverBuffer <= 0 {
		cfg.ObserverBuffer = 16
	}
	if cfg.Forecast.TimeoutSec <= 0 {
		cfg.Forecast.TimeoutSec = 10
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[models.Kind]models.Profile, len(models.Kinds))
	}
	for kind, p := range models.DefaultProfiles {
		if _, ok := cfg.Profiles[kind]; !ok {
			cfg.Profiles[kind] = p
		}
	}
}

// validate rejects configs that would break the simulation invariants.
func validate(cfg *models.Config) error {
	for _, kind := range models.Kinds {
		if _, ok := cfg.Profiles[kind]; !ok {
			return fmt.Errorf("missing simulation profile for kind %s", kind)
		}
	}
	for kind := range cfg.Profiles {
		if !models.ValidKind(string(kind)) {
			return fmt.Errorf("unknown kind %q in profiles", kind)
		}
	}
	switch cfg.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	return nil
}
