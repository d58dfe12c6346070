// Package ledger is the invocation runtime for registry operations: it hands
// each invocation a Tx view of the versioned key-value state, records what it
// reads and what it writes, and commits the write set atomically against a
// Backend, re-running the invocation when a concurrent commit invalidated its
// read set.
package ledger

//go:generate mockgen -source=ledger.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"
)

// Op is the kind of a buffered mutation.
type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Mutation is one entry in a write set.
type Mutation struct {
	Op    Op     `json:"op"`
	Key   string `json:"key"`
	Value []byte `json:"value,omitempty"`
}

// Versioned is a key's committed state as seen by a Backend. Version 0 with
// Found=false means the key has never been written. A tombstoned key has
// Found=false and a non-zero Version.
type Versioned struct {
	Value   []byte
	Version uint64
	Found   bool
}

// Backend stores versioned key state. Apply must be atomic: either every
// read version still matches and every mutation lands, or nothing changes
// and sentinel.ErrConflict is returned.
type Backend interface {
	Read(ctx context.Context, key string) (Versioned, error)
	Apply(ctx context.Context, reads map[string]uint64, writes []Mutation) error
}

// Tx is the store view of one invocation. Reads go to the backend (or to this
// invocation's own pending writes); writes are buffered until commit.
type Tx interface {
	// ID identifies the invocation attempt.
	ID() string
	// Get returns the value under key, or sentinel.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put upserts value under key.
	Put(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// TxTime is the logical time of the invocation, stable across the attempt.
	TxTime() time.Time
}

// CommitEvent describes a committed write set.
type CommitEvent struct {
	TxID      string     `json:"tx_id"`
	Function  string     `json:"function"`
	TxTime    time.Time  `json:"tx_time"`
	Mutations []Mutation `json:"mutations"`
}

// CommitPublisher receives every committed write set.
type CommitPublisher interface {
	Publish(ctx context.Context, event CommitEvent) error
}
