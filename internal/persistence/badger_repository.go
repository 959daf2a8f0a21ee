package persistence

import (
	"encoding/json"
	"errors"

	"energy-flow-monitor-go/internal/models"

	"github.com/dgraph-io/badger/v3"
)

// badgerRepository is the BadgerDB implementation of the StateRepository.
type badgerRepository struct {
	db       *badger.DB
	stateKey []byte
}

// NewBadgerRepository creates and returns a new repository instance connected
// to a BadgerDB database at dbPath.
func NewBadgerRepository(dbPath string) (StateRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	// Badger's own logging would interleave with ours; errors still surface
	// from the DB operations themselves.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &badgerRepository{
		db:       db,
		stateKey: []byte("sim_state"), // single snapshot object
	}, nil
}

// SaveState atomically saves the ledger snapshot as JSON under the state key.
func (r *badgerRepository) SaveState(state *models.SimState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(r.stateKey, data)
	})
}

// LoadState loads the last ledger snapshot.
// If no snapshot exists yet, it returns (nil, nil).
func (r *badgerRepository) LoadState() (*models.SimState, error) {
	var state models.SimState

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(r.stateKey)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			if len(val) == 0 {
				return errors.New("snapshot value is empty in database")
			}
			return json.Unmarshal(val, &state)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil // no snapshot yet, a fresh start
	}
	if err != nil {
		return nil, err
	}

	return &state, nil
}

// Close gracefully closes the connection to the database.
func (r *badgerRepository) Close() error {
	return r.db.Close()
}
