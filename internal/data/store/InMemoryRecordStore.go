package store

import (
	"context"
	"sync"
	"time"

	"github.com/resumify/docflow/internal/domain/recordModel"
	"github.com/resumify/docflow/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem RecordStore")

// InMemoryRecordStore is the fallback when Redis is offline and the backend of
// choice in tests. Conditional-update semantics match the Redis store exactly.
type InMemoryRecordStore struct {
	recordMutex *sync.RWMutex
	recordMap   map[string]recordModel.DocumentRecord
}

func InitInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		recordMutex: new(sync.RWMutex),
		recordMap:   make(map[string]recordModel.DocumentRecord),
	}
}

func (s *InMemoryRecordStore) CreateRecord(ctx context.Context, rec recordModel.DocumentRecord) error {
	s.recordMutex.Lock()
	defer s.recordMutex.Unlock()
	if _, exists := s.recordMap[rec.Id]; exists {
		return recordModel.ErrRecordExists
	}
	s.recordMap[rec.Id] = rec
	inMemLogger.Debug("Saved record to store", "recordId", rec.Id, "status", rec.Status)
	return nil
}

func (s *InMemoryRecordStore) GetRecord(ctx context.Context, id string) (recordModel.DocumentRecord, bool) {
	s.recordMutex.RLock()
	defer s.recordMutex.RUnlock()
	result, found := s.recordMap[id]
	return result, found
}

func (s *InMemoryRecordStore) UpdateIfStatus(ctx context.Context, id string, expected recordModel.Status, patch recordModel.RecordPatch) (bool, error) {
	s.recordMutex.Lock()
	defer s.recordMutex.Unlock()

	current, found := s.recordMap[id]
	if !found {
		return false, nil
	}
	if current.Status != expected {
		// another pass already transitioned this record
		return false, nil
	}
	next, err := recordModel.ApplyPatch(current, patch, time.Now().UTC())
	if err != nil {
		return false, err
	}
	s.recordMap[id] = next
	return true, nil
}

func (s *InMemoryRecordStore) QueryByStatus(ctx context.Context, statuses []recordModel.Status, kind recordModel.SourceKind) ([]recordModel.DocumentRecord, error) {
	s.recordMutex.RLock()
	defer s.recordMutex.RUnlock()

	var result []recordModel.DocumentRecord
	for _, rec := range s.recordMap {
		if rec.SourceKind != kind {
			continue
		}
		if statusIn(rec.Status, statuses) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (s *InMemoryRecordStore) ResetForRetry(ctx context.Context, id string, expected recordModel.Status) (recordModel.DocumentRecord, bool, error) {
	s.recordMutex.Lock()
	defer s.recordMutex.Unlock()

	current, found := s.recordMap[id]
	if !found || current.Status != expected {
		return recordModel.DocumentRecord{}, false, nil
	}
	next, err := recordModel.ResetRetryCycle(current, time.Now().UTC())
	if err != nil {
		return recordModel.DocumentRecord{}, false, err
	}
	s.recordMap[id] = next
	inMemLogger.Info("Record reset for retry", "recordId", id, "attempt", next.AttemptCount)
	return next, true, nil
}

func statusIn(status recordModel.Status, statuses []recordModel.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
