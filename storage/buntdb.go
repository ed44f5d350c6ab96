// Package storage persists ledger state between runs using BuntDB, a single
// file key/value store with JSON values.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mkaraca/swingbot/core"
	"github.com/tidwall/buntdb"
)

const stateKey = "ledger"

// Store reads and writes the ledger snapshot. One bot instance owns the file
// exclusively.
type Store struct {
	db *buntdb.DB
}

// FromMemory creates an in-memory store, used for paper runs that should not
// leave state behind and for tests.
func FromMemory() (*Store, error) {
	return New(":memory:")
}

// FromFile creates a file-backed store.
func FromFile(file string) (*Store, error) {
	return New(file)
}

func New(sourceFile string) (*Store, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	err = db.CreateIndex("trades", "trade:*", buntdb.IndexJSON("close_time"))
	if err != nil && !errors.Is(err, buntdb.ErrIndexExists) {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveState writes the full ledger snapshot plus one record per closed trade.
// The per-trade records make the audit trail greppable without loading the
// whole snapshot.
func (s *Store) SaveState(state core.LedgerState) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		content, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to marshal ledger state: %w", err)
		}
		if _, _, err = tx.Set(stateKey, string(content), nil); err != nil {
			return fmt.Errorf("failed to store ledger state: %w", err)
		}

		for _, trade := range state.Trades {
			record, err := json.Marshal(trade)
			if err != nil {
				return fmt.Errorf("failed to marshal trade %s: %w", trade.ID, err)
			}
			if _, _, err = tx.Set("trade:"+trade.ID, string(record), nil); err != nil {
				return fmt.Errorf("failed to store trade %s: %w", trade.ID, err)
			}
		}
		return nil
	})
}

// LoadState reads the persisted snapshot. The second return value is false
// when no snapshot exists yet; a present but unreadable snapshot returns
// core.ErrStateCorrupted so the caller can refuse to trade on it.
func (s *Store) LoadState() (core.LedgerState, bool, error) {
	var state core.LedgerState
	found := false

	err := s.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(stateKey)
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := json.Unmarshal([]byte(value), &state); err != nil {
			return fmt.Errorf("%w: %v", core.ErrStateCorrupted, err)
		}
		if state.InitialCash <= 0 || state.Cash < 0 {
			return fmt.Errorf("%w: implausible balances (cash=%f initial=%f)",
				core.ErrStateCorrupted, state.Cash, state.InitialCash)
		}

		found = true
		return nil
	})
	if err != nil {
		return core.LedgerState{}, false, err
	}

	return state, found, nil
}

// Reset removes all persisted state. Used by the --reset-state startup flag.
func (s *Store) Reset() error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		return tx.DeleteAll()
	})
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
