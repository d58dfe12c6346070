// Package ledgertest holds the behaviour every ledger.Backend must share.
// Backend packages embed BackendSuite in their own tests.
package ledgertest

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/stretchr/testify/suite"

	"propreg/internal/ledger"
	"propreg/pkg/platform/sentinel"
)

// BackendSuite runs against the Backend returned by NewBackend, which is
// called once per test and must return an empty store.
type BackendSuite struct {
	suite.Suite
	NewBackend func() ledger.Backend

	backend ledger.Backend
	ctx     context.Context
}

func (s *BackendSuite) SetupTest() {
	s.Require().NotNil(s.NewBackend, "NewBackend must be set")
	s.backend = s.NewBackend()
	s.ctx = context.Background()
}

func (s *BackendSuite) put(key, value string) ledger.Mutation {
	return ledger.Mutation{Op: ledger.OpPut, Key: key, Value: []byte(value)}
}

func (s *BackendSuite) read(key string) ledger.Versioned {
	v, err := s.backend.Read(s.ctx, key)
	s.Require().NoError(err)
	return v
}

func (s *BackendSuite) TestVersioning() {
	s.Run("absent key reads as version zero", func() {
		v := s.read("\x00User\x00absent\x00")
		s.False(v.Found)
		s.Zero(v.Version)
	})

	s.Run("put bumps version", func() {
		s.Require().NoError(s.backend.Apply(s.ctx, map[string]uint64{"k": 0}, []ledger.Mutation{s.put("k", "1")}))
		v := s.read("k")
		s.True(v.Found)
		s.Equal([]byte("1"), v.Value)
		s.Equal(uint64(1), v.Version)
	})

	s.Run("delete tombstones with a newer version", func() {
		s.Require().NoError(s.backend.Apply(s.ctx, map[string]uint64{"k": 1}, []ledger.Mutation{{Op: ledger.OpDelete, Key: "k"}}))
		v := s.read("k")
		s.False(v.Found)
		s.Equal(uint64(2), v.Version)
	})

	s.Run("recreate after delete keeps counting", func() {
		s.Require().NoError(s.backend.Apply(s.ctx, map[string]uint64{"k": 2}, []ledger.Mutation{s.put("k", "again")}))
		v := s.read("k")
		s.True(v.Found)
		s.Equal(uint64(3), v.Version)
	})
}

func (s *BackendSuite) TestStaleReadAppliesNothing() {
	s.Require().NoError(s.backend.Apply(s.ctx, nil, []ledger.Mutation{s.put("a", "1")}))

	err := s.backend.Apply(s.ctx, map[string]uint64{"a": 0}, []ledger.Mutation{
		s.put("a", "stale"),
		s.put("b", "2"),
	})
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	s.Equal([]byte("1"), s.read("a").Value)
	s.False(s.read("b").Found)
}

func (s *BackendSuite) TestReadOfAbsentKeyConflictsWithCreate() {
	s.Require().NoError(s.backend.Apply(s.ctx, nil, []ledger.Mutation{s.put("new", "first")}))

	err := s.backend.Apply(s.ctx, map[string]uint64{"new": 0}, []ledger.Mutation{s.put("new", "second")})
	s.Require().ErrorIs(err, sentinel.ErrConflict)
	s.Equal([]byte("first"), s.read("new").Value)
}

func (s *BackendSuite) TestBinarySafeValues() {
	raw := []byte{0x00, 0xff, '"', '\n', 0x01}
	s.Require().NoError(s.backend.Apply(s.ctx, nil, []ledger.Mutation{{Op: ledger.OpPut, Key: "\x00Property\x00P-1\x00", Value: raw}}))
	s.Equal(raw, s.read("\x00Property\x00P-1\x00").Value)
}

// TestConcurrentIncrements drives the backend through the runtime so lost
// updates would show up as a short count.
func (s *BackendSuite) TestConcurrentIncrements() {
	const workers, perWorker = 8, 10
	rt := ledger.NewRuntime(s.backend, ledger.WithMaxAttempts(1000))

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				errs <- rt.Invoke(s.ctx, "increment", func(ctx context.Context, tx ledger.Tx) error {
					var n uint64
					raw, err := tx.Get(ctx, "counter")
					switch {
					case err == nil:
						n = binary.BigEndian.Uint64(raw)
					case !errors.Is(err, sentinel.ErrNotFound):
						return err
					}
					next := make([]byte, 8)
					binary.BigEndian.PutUint64(next, n+1)
					return tx.Put("counter", next)
				})
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	v := s.read("counter")
	s.Equal(uint64(workers*perWorker), binary.BigEndian.Uint64(v.Value))
	s.Equal(uint64(workers*perWorker), v.Version)
}
