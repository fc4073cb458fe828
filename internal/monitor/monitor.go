package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/resumify/docflow/internal/api"
	"github.com/resumify/docflow/internal/domain/recordModel"
	"github.com/resumify/docflow/internal/faults"
	"github.com/resumify/docflow/internal/metrics"
	"github.com/resumify/docflow/pkg/logger_i"
)

type EventKind string

const (
	EventProgress EventKind = "progress"
	EventDone     EventKind = "done"
	EventError    EventKind = "error"
)

// Event is one observation a session pushes to its consumer. Exactly one
// Done or Error event ends every session.
type Event struct {
	Kind     EventKind
	Progress float64
	Stage    string
	Status   recordModel.Status
	Text     string
	Error    *api.ErrorPayload
	Hint     string
}

// StatusReader abstracts the public status endpoint. The monitor never sees
// job references or attempt counters; it only reads what any client could.
type StatusReader interface {
	ReadStatus(ctx context.Context, id string) (api.StatusResponse, error)
}

type Config struct {
	FastInterval    time.Duration
	SlowInterval    time.Duration
	SwitchThreshold time.Duration
	MaxSession      time.Duration
}

// Monitor spawns independent polling sessions. Sessions never share state and
// never block each other; each is one goroutine plus one buffered channel.
type Monitor struct {
	reader StatusReader
	cfg    Config
	logger *logger_i.Logger
	now    func() time.Time
}

func NewMonitor(reader StatusReader, cfg Config) *Monitor {
	return &Monitor{
		reader: reader,
		cfg:    cfg,
		logger: logger_i.NewLogger("StatusMonitor"),
		now:    time.Now,
	}
}

type Session struct {
	events   chan Event
	stop     chan struct{}
	stopOnce sync.Once
}

// Events delivers progress updates and exactly one terminal event. The
// channel is closed when the session ends.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Stop cancels the session. Safe to call more than once and after the
// session already finished.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Watch starts monitoring one record until it terminates, the session is
// stopped, or the max session duration elapses. format and sizeBytes feed the
// stage profile used for display estimation only.
func (m *Monitor) Watch(ctx context.Context, id string, format string, sizeBytes int64) *Session {
	session := &Session{
		events: make(chan Event, 32),
		stop:   make(chan struct{}),
	}
	go m.poll(ctx, session, id, ProfileFor(format, sizeBytes))
	return session
}

func (m *Monitor) poll(ctx context.Context, s *Session, id string, profile Profile) {
	metrics.IncrementMonitorSessions()
	defer metrics.DecrementMonitorSessions()
	defer close(s.events)

	log := m.logger.With("recordId", id)
	started := m.now()
	interval := m.cfg.FastInterval
	slowSwitched := false
	lastProgress := 0.0

	timer := time.NewTimer(0) // first poll fires immediately
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("Session context cancelled")
			return
		case <-s.stop:
			log.Debug("Session stopped by caller")
			return
		case <-timer.C:
		}

		elapsed := m.now().Sub(started)

		// the client bounds its own resource usage no matter what the
		// backend is doing
		if elapsed > m.cfg.MaxSession {
			log.Warn("Session exceeded max duration, giving up")
			m.deliver(ctx, s, Event{
				Kind:   EventError,
				Status: recordModel.StatusProcessing,
				Error: &api.ErrorPayload{
					Kind:      string(recordModel.ErrKindTimeout),
					Message:   "monitoring session expired before the document finished",
					Retryable: true,
				},
				Hint: faults.Hint(recordModel.ErrKindTimeout),
			})
			return
		}

		status, err := m.reader.ReadStatus(ctx, id)
		if err != nil {
			// transient from the client's perspective; keep the last
			// progress on screen and poll again
			log.Debug("Status read failed", "error", err)
		} else {
			switch recordModel.Status(status.Status) {
			case recordModel.StatusCompleted:
				m.deliver(ctx, s, Event{
					Kind:     EventDone,
					Progress: 100,
					Status:   recordModel.StatusCompleted,
					Text:     status.ExtractedText,
				})
				return

			case recordModel.StatusFailed, recordModel.StatusTimedOut:
				event := Event{
					Kind:   EventError,
					Status: recordModel.Status(status.Status),
					Error:  status.Error,
				}
				if status.Error != nil {
					event.Hint = status.Error.Hint
				}
				m.deliver(ctx, s, event)
				return

			default:
				percent, stageName := profile.Estimate(elapsed)
				// the displayed percentage never goes backwards
				if percent < lastProgress {
					percent = lastProgress
				}
				lastProgress = percent
				m.push(s, Event{
					Kind:     EventProgress,
					Progress: percent,
					Stage:    stageName,
					Status:   recordModel.Status(status.Status),
				})
			}
		}

		// the fast-to-slow switch happens once per session and never
		// reverses
		if !slowSwitched && elapsed > m.cfg.SwitchThreshold {
			interval = m.cfg.SlowInterval
			slowSwitched = true
			log.Debug("Switched to slow polling", "interval", interval)
		}
		timer.Reset(interval)
	}
}

// push sends a progress event without ever blocking the session; a consumer
// that stopped draining just misses intermediate updates.
func (m *Monitor) push(s *Session, event Event) {
	select {
	case s.events <- event:
	default:
	}
}

// deliver sends a terminal event, waiting for the consumer unless the
// session is being torn down through Stop or context cancellation.
func (m *Monitor) deliver(ctx context.Context, s *Session, event Event) {
	select {
	case s.events <- event:
	case <-s.stop:
	case <-ctx.Done():
	}
}
