// Package redis is a ledger backend on Redis. Each ledger key is a hash with
// the value under field "v" and its version under field "ver"; a delete
// removes "v" but keeps "ver" so the version never goes backwards. Commits run
// as one Lua script, which Redis executes atomically.
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"propreg/internal/ledger"
	"propreg/pkg/platform/sentinel"
)

const (
	fieldValue   = "v"
	fieldVersion = "ver"

	// DefaultPrefix namespaces ledger keys inside a shared Redis.
	DefaultPrefix = "propreg:ledger:"
)

// KEYS: read keys then write keys. ARGV[1]: number of read keys, then one
// expected version per read key, then an (op, value) pair per write key.
var applyScript = redis.NewScript(`
local nreads = tonumber(ARGV[1])
for i = 1, nreads do
  local ver = redis.call('HGET', KEYS[i], 'ver')
  if not ver then ver = '0' end
  if ver ~= ARGV[1 + i] then
    return 0
  end
end
local a = 2 + nreads
for i = nreads + 1, #KEYS do
  if ARGV[a] == 'put' then
    redis.call('HSET', KEYS[i], 'v', ARGV[a + 1])
  else
    redis.call('HDEL', KEYS[i], 'v')
  end
  redis.call('HINCRBY', KEYS[i], 'ver', 1)
  a = a + 2
end
return 1
`)

// Store implements ledger.Backend. Every key an invocation touches must hash
// to the same node, so use a single-node or sentinel deployment.
type Store struct {
	client redis.UniversalClient
	prefix string
}

type Option func(*Store)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) Read(ctx context.Context, key string) (ledger.Versioned, error) {
	vals, err := s.client.HMGet(ctx, s.prefix+key, fieldValue, fieldVersion).Result()
	if err != nil {
		return ledger.Versioned{}, fmt.Errorf("redis hmget: %w", err)
	}
	var out ledger.Versioned
	if ver, ok := vals[1].(string); ok {
		out.Version, err = strconv.ParseUint(ver, 10, 64)
		if err != nil {
			return ledger.Versioned{}, fmt.Errorf("parse version of %q: %w", key, err)
		}
	}
	if v, ok := vals[0].(string); ok {
		out.Value = []byte(v)
		out.Found = true
	}
	return out, nil
}

func (s *Store) Apply(ctx context.Context, reads map[string]uint64, writes []ledger.Mutation) error {
	keys := make([]string, 0, len(reads)+len(writes))
	args := make([]any, 0, 1+len(reads)+2*len(writes))
	args = append(args, len(reads))
	for k, ver := range reads {
		keys = append(keys, s.prefix+k)
		args = append(args, strconv.FormatUint(ver, 10))
	}
	for _, m := range writes {
		keys = append(keys, s.prefix+m.Key)
		args = append(args, string(m.Op), m.Value)
	}

	ok, err := applyScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("redis apply: %w", err)
	}
	if ok != 1 {
		return sentinel.ErrConflict
	}
	return nil
}
