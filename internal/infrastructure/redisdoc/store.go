// Package redisdoc stores profile documents as Redis hashes, one hash per
// identity, with each field value JSON-encoded so types survive a round trip.
package redisdoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/fitness-onboarding/internal/domain/repository"
)

// Both scripts check existence and write in one step so create and merge
// stay atomic per document.
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return 1
`)

var mergeScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return 1
`)

type Store struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewStore returns a document store using keys "<prefix><identity>".
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "profile:doc:"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) Get(ctx context.Context, key string) (repository.Document, bool, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return nil, false, err
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	doc := make(repository.Document, len(raw))
	for f, v := range raw {
		var val any
		if err := json.Unmarshal([]byte(v), &val); err != nil {
			return nil, false, fmt.Errorf("decode field %q: %w", f, err)
		}
		doc[f] = val
	}
	return doc, true, nil
}

func (s *Store) Create(ctx context.Context, key string, fields repository.Document) error {
	if len(fields) == 0 {
		// a hash with no fields does not exist in redis
		return errors.New("redisdoc: cannot create an empty document")
	}
	ok, err := s.run(ctx, createScript, key, fields)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrDocumentExists
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, key string, fields repository.Document) error {
	if len(fields) == 0 {
		return nil
	}
	ok, err := s.run(ctx, mergeScript, key, fields)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrDocumentNotFound
	}
	return nil
}

func (s *Store) run(ctx context.Context, script *redis.Script, key string, fields repository.Document) (bool, error) {
	args, err := encodeFields(fields)
	if err != nil {
		return false, err
	}
	n, err := script.Run(ctx, s.rdb, []string{s.key(key)}, args...).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// encodeFields flattens a document into HSET field/value arguments.
func encodeFields(fields repository.Document) ([]any, error) {
	args := make([]any, 0, len(fields)*2)
	for f, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", f, err)
		}
		args = append(args, f, string(b))
	}
	return args, nil
}

var _ repository.DocumentStore = (*Store)(nil)
