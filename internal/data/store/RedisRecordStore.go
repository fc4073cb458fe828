package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/resumify/docflow/internal/config"
	"github.com/resumify/docflow/internal/data/redisStore"
	"github.com/resumify/docflow/internal/domain/recordModel"
	"github.com/resumify/docflow/pkg/logger_i"
)

// members of this set are record ids still awaiting reconciliation
const reconcileIndexKey = "reconcile:pending"

type RedisRecordStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisRecordStore(ctx context.Context) *RedisRecordStore {
	inner := redisStore.GetRedisStore(ctx, config.RedisRecordStore)
	if inner == nil {
		return nil
	}
	return &RedisRecordStore{
		store:  inner,
		logger: logger_i.NewLogger("RecordStore"),
	}
}

func (s *RedisRecordStore) CreateRecord(ctx context.Context, rec recordModel.DocumentRecord) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "recordId", rec.Id)
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	created, err := s.store.SetIfAbsent(ctx, rec.Id, data, config.RedisRecordTTL)
	if err != nil {
		return err
	}
	if !created {
		return recordModel.ErrRecordExists
	}

	if rec.SourceKind == recordModel.SourceAsynchronousJob && !rec.Status.IsTerminal() {
		if err := s.store.IndexAdd(ctx, reconcileIndexKey, rec.Id); err != nil {
			log.Error("Failed to index record for reconciliation", "error", err)
			return err
		}
	}
	log.Debug("Saved record to Redis", "status", rec.Status)
	return nil
}

func (s *RedisRecordStore) GetRecord(ctx context.Context, id string) (recordModel.DocumentRecord, bool) {
	var rec recordModel.DocumentRecord
	val, err := s.store.Get(ctx, id)
	if s.store.IsNil(err) {
		return rec, false
	} else if err != nil {
		s.logger.Error("Error reading record from Redis", "recordId", id, "error", err)
		return rec, false
	}

	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		s.logger.Error("Corrupt record payload in Redis", "recordId", id, "error", err)
		return rec, false
	}
	return rec, true
}

func (s *RedisRecordStore) UpdateIfStatus(ctx context.Context, id string, expected recordModel.Status, patch recordModel.RecordPatch) (bool, error) {
	applied, err := s.store.CompareAndSwap(ctx, id, config.RedisRecordTTL,
		func(current string, found bool) (string, bool, error) {
			if !found {
				return "", false, nil
			}
			var rec recordModel.DocumentRecord
			if err := json.Unmarshal([]byte(current), &rec); err != nil {
				return "", false, err
			}
			if rec.Status != expected {
				return "", false, nil
			}
			next, err := recordModel.ApplyPatch(rec, patch, time.Now().UTC())
			if err != nil {
				return "", false, err
			}
			data, err := json.Marshal(next)
			if err != nil {
				return "", false, err
			}
			return string(data), true, nil
		})
	if err != nil || !applied {
		return applied, err
	}

	if patch.Status.IsTerminal() {
		if err := s.store.IndexRemove(ctx, reconcileIndexKey, id); err != nil {
			// the record is already terminal; the scan filter drops it anyway
			s.logger.Warn("Failed to de-index terminal record", "recordId", id, "error", err)
		}
	}
	return true, nil
}

func (s *RedisRecordStore) QueryByStatus(ctx context.Context, statuses []recordModel.Status, kind recordModel.SourceKind) ([]recordModel.DocumentRecord, error) {
	ids, err := s.store.IndexMembers(ctx, reconcileIndexKey)
	if err != nil {
		return nil, err
	}

	var result []recordModel.DocumentRecord
	for _, id := range ids {
		rec, found := s.GetRecord(ctx, id)
		if !found {
			continue
		}
		if rec.Status.IsTerminal() {
			// stale index entry, clean it up opportunistically
			_ = s.store.IndexRemove(ctx, reconcileIndexKey, id)
			continue
		}
		if rec.SourceKind == kind && statusIn(rec.Status, statuses) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (s *RedisRecordStore) ResetForRetry(ctx context.Context, id string, expected recordModel.Status) (recordModel.DocumentRecord, bool, error) {
	var next recordModel.DocumentRecord
	applied, err := s.store.CompareAndSwap(ctx, id, config.RedisRecordTTL,
		func(current string, found bool) (string, bool, error) {
			if !found {
				return "", false, nil
			}
			var rec recordModel.DocumentRecord
			if err := json.Unmarshal([]byte(current), &rec); err != nil {
				return "", false, err
			}
			if rec.Status != expected {
				return "", false, nil
			}
			reset, err := recordModel.ResetRetryCycle(rec, time.Now().UTC())
			if err != nil {
				return "", false, err
			}
			data, err := json.Marshal(reset)
			if err != nil {
				return "", false, err
			}
			next = reset
			return string(data), true, nil
		})
	if err != nil || !applied {
		return recordModel.DocumentRecord{}, applied, err
	}

	if next.SourceKind == recordModel.SourceAsynchronousJob {
		if err := s.store.IndexAdd(ctx, reconcileIndexKey, id); err != nil {
			s.logger.Error("Failed to re-index retried record", "recordId", id, "error", err)
			return next, true, err
		}
	}
	s.logger.Info("Record reset for retry", "recordId", id, "attempt", next.AttemptCount)
	return next, true, nil
}

func TestRecordStore(store *redisStore.Store) *RedisRecordStore {
	return &RedisRecordStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
