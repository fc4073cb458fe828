package redisStore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) SetIfAbsent(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, expiration).Result()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// set-based index of records still needing reconciliation
func (s *Store) IndexAdd(ctx context.Context, key string, member string) error {
	return s.client.SAdd(ctx, key, member).Err()
}

func (s *Store) IndexRemove(ctx context.Context, key string, member string) error {
	return s.client.SRem(ctx, key, member).Err()
}

func (s *Store) IndexMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

// CompareAndSwap runs mutate under WATCH on key and writes the returned value
// in a MULTI/EXEC block. When the key changes between the read and the write
// the transaction aborts and (false, nil) comes back: that conflict is the
// whole point, the caller lost the race and must not blindly retry.
//
// mutate gets the current value (found=false when the key is absent) and
// returns the next value plus apply=false to abandon without writing.
func (s *Store) CompareAndSwap(ctx context.Context, key string, expiration time.Duration,
	mutate func(current string, found bool) (next string, apply bool, err error)) (bool, error) {

	applied := false
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		found := true
		if errors.Is(err, redis.Nil) {
			found, current, err = false, "", nil
		}
		if err != nil {
			return err
		}

		next, apply, err := mutate(current, found)
		if err != nil || !apply {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, expiration)
			return nil
		})
		if err == nil {
			applied = true
		}
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return applied, err
}
