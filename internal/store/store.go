// Package store persists playground snapshots: source text saved under a
// short content-derived id so that it can be shared and reloaded.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Load when no snapshot has the requested id.
var ErrNotFound = errors.New("snapshot not found")

// defaultRecent is the Recent limit used when none is given.
const defaultRecent = 20

// idLength is the number of hex characters in a snapshot id.
const idLength = 12

// Snapshot is a saved source.
type Snapshot struct {
	ID        string
	Source    string
	CreatedAt time.Time
}

// Store saves and loads snapshots. Saving the same source twice yields the
// same id and keeps the original creation time.
type Store interface {
	Save(ctx context.Context, source string) (string, error)
	Load(ctx context.Context, id string) (*Snapshot, error)
	// Recent returns up to limit snapshots, newest first. A non-positive
	// limit means 20.
	Recent(ctx context.Context, limit int) ([]*Snapshot, error)
	Close() error
}

// ID returns the snapshot id for source.
func ID(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])[:idLength]
}

// ValidID reports whether id has the shape produced by ID.
func ValidID(id string) bool {
	if len(id) != idLength {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

// Open creates a store for driver ("memory", "sqlite" or "postgres").
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "postgres":
		s, err := OpenSQL(driver, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}
