// Package policystore keeps each team's latest evaluator policy document in
// Redis and announces replacements over pub/sub.
package policystore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/soccer-proxy/internal/evaluator"
	"github.com/freeeve/soccer-proxy/pkg/wire"
)

func docKey(team string) string        { return "policy:" + team + ":doc" }
func updateChannel(team string) string { return "policy:" + team + ":updates" }

// Store reads and writes policy documents.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a Store from a connection URL.
func NewStore(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

// NewStoreFromClient wraps an existing redis.Client for use in tests.
func NewStoreFromClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Put validates raw and makes it the team's current document.
func (s *Store) Put(ctx context.Context, team string, raw []byte) error {
	if _, err := evaluator.ParseDocument(raw); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, docKey(team), raw, 0).Err(); err != nil {
		return fmt.Errorf("store policy: %w", err)
	}
	if err := s.rdb.Publish(ctx, updateChannel(team), raw).Err(); err != nil {
		return fmt.Errorf("publish policy: %w", err)
	}
	return nil
}

// Get returns the team's current document, or nil when none is stored.
func (s *Store) Get(ctx context.Context, team string) (*wire.PlannerEvaluation, error) {
	data, err := s.rdb.Get(ctx, docKey(team)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get policy: %w", err)
	}
	return evaluator.ParseDocument(data)
}

// Watch calls fn with the current document and then with every
// replacement until ctx ends. Invalid documents are logged and skipped.
func (s *Store) Watch(ctx context.Context, team string, fn func(*wire.PlannerEvaluation)) error {
	pubsub := s.rdb.Subscribe(ctx, updateChannel(team))
	defer pubsub.Close()
	// Wait for the subscription so no update between Get and Subscribe is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe policy updates: %w", err)
	}

	if doc, err := s.Get(ctx, team); err != nil {
		log.Warn().Err(err).Str("team", team).Msg("Stored policy unusable")
	} else if doc != nil {
		fn(doc)
	}

	log.Info().Str("team", team).Msg("Policy watcher started")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			doc, err := evaluator.ParseDocument([]byte(msg.Payload))
			if err != nil {
				log.Warn().Err(err).Str("team", team).Msg("Ignoring invalid policy update")
				continue
			}
			fn(doc)
		}
	}
}
