package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/resumify/docflow/internal/api"
	"github.com/resumify/docflow/internal/domain/recordModel"
)

// MockStatusReader scripts the sequence of status reads a session observes
type MockStatusReader struct {
	mu        sync.Mutex
	responses []api.StatusResponse
	errs      []error
	calls     int32
}

func (m *MockStatusReader) ReadStatus(ctx context.Context, id string) (api.StatusResponse, error) {
	atomic.AddInt32(&m.calls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responses) == 0 {
		return api.StatusResponse{Id: id, Status: string(recordModel.StatusProcessing)}, nil
	}
	resp := m.responses[0]
	var err error
	if len(m.errs) > 0 {
		err = m.errs[0]
		m.errs = m.errs[1:]
	}
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, err
}

func (m *MockStatusReader) Calls() int32 {
	return atomic.LoadInt32(&m.calls)
}

func fastTestConfig() Config {
	return Config{
		FastInterval:    5 * time.Millisecond,
		SlowInterval:    20 * time.Millisecond,
		SwitchThreshold: 500 * time.Millisecond,
		MaxSession:      2 * time.Second,
	}
}

func collect(t *testing.T, session *Session, within time.Duration) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(within)
	for {
		select {
		case event, ok := <-session.Events():
			if !ok {
				return events
			}
			events = append(events, event)
		case <-deadline:
			t.Fatal("session did not finish in time")
		}
	}
}

func TestMonitor_CompletedDelivers100(t *testing.T) {
	reader := &MockStatusReader{
		responses: []api.StatusResponse{
			{Status: string(recordModel.StatusProcessing)},
			{Status: string(recordModel.StatusProcessing)},
			{Status: string(recordModel.StatusCompleted), ExtractedText: "the text"},
		},
	}
	monitor := NewMonitor(reader, fastTestConfig())

	session := monitor.Watch(context.Background(), "rec-1", "pdf", 1024)
	events := collect(t, session, time.Second)

	if len(events) == 0 {
		t.Fatal("expected at least the terminal event")
	}
	last := events[len(events)-1]
	if last.Kind != EventDone {
		t.Fatalf("last event = %s, want done", last.Kind)
	}
	if last.Progress != 100 {
		t.Errorf("Progress = %v, want 100", last.Progress)
	}
	if last.Text != "the text" {
		t.Errorf("Text = %q", last.Text)
	}

	// 100 only on the terminal event, estimates stay capped below it
	for _, event := range events[:len(events)-1] {
		if event.Kind != EventProgress {
			t.Errorf("non-terminal event of kind %s", event.Kind)
		}
		if event.Progress >= 100 {
			t.Errorf("estimate hit %v before completion", event.Progress)
		}
	}
}

func TestMonitor_ProgressNeverDecreases(t *testing.T) {
	reader := &MockStatusReader{
		responses: []api.StatusResponse{
			{Status: string(recordModel.StatusProcessing)},
			{Status: string(recordModel.StatusProcessing)},
			{Status: string(recordModel.StatusProcessing)},
			{Status: string(recordModel.StatusProcessing)},
			{Status: string(recordModel.StatusCompleted), ExtractedText: "ok"},
		},
	}
	monitor := NewMonitor(reader, fastTestConfig())

	session := monitor.Watch(context.Background(), "rec-2", "txt", 512)
	events := collect(t, session, time.Second)

	previous := -1.0
	for _, event := range events {
		if event.Progress < previous {
			t.Fatalf("progress went backwards: %v after %v", event.Progress, previous)
		}
		previous = event.Progress
	}
}

func TestMonitor_TerminalErrorEndsSession(t *testing.T) {
	reader := &MockStatusReader{
		responses: []api.StatusResponse{
			{
				Status: string(recordModel.StatusFailed),
				Error: &api.ErrorPayload{
					Kind:      string(recordModel.ErrKindEmptyResult),
					Message:   "no text",
					Retryable: false,
					Hint:      "Ensure the document contains selectable text, not just images or scanned content.",
				},
			},
		},
	}
	monitor := NewMonitor(reader, fastTestConfig())

	session := monitor.Watch(context.Background(), "rec-3", "pdf", 2048)
	events := collect(t, session, time.Second)

	if len(events) != 1 {
		t.Fatalf("events = %d, want exactly the terminal one", len(events))
	}
	event := events[0]
	if event.Kind != EventError {
		t.Fatalf("Kind = %s, want error", event.Kind)
	}
	if event.Error == nil || event.Error.Kind != string(recordModel.ErrKindEmptyResult) {
		t.Errorf("Error = %v", event.Error)
	}
	if event.Hint == "" {
		t.Error("terminal errors must surface the remediation hint")
	}

	callsAtEnd := reader.Calls()
	time.Sleep(50 * time.Millisecond)
	if reader.Calls() != callsAtEnd {
		t.Error("session kept polling after the terminal event")
	}
}

func TestMonitor_ReadFailuresKeepPolling(t *testing.T) {
	reader := &MockStatusReader{
		responses: []api.StatusResponse{
			{},
			{},
			{Status: string(recordModel.StatusCompleted), ExtractedText: "ok"},
		},
		errs: []error{
			errors.New("connection refused"),
			errors.New("connection refused"),
		},
	}
	monitor := NewMonitor(reader, fastTestConfig())

	session := monitor.Watch(context.Background(), "rec-4", "pdf", 1024)
	events := collect(t, session, time.Second)

	if len(events) == 0 || events[len(events)-1].Kind != EventDone {
		t.Fatalf("expected the session to recover and finish, got %v", events)
	}
}

func TestMonitor_SlowSwitchIsOneWay(t *testing.T) {
	reader := &MockStatusReader{} // always Processing
	cfg := Config{
		FastInterval:    5 * time.Millisecond,
		SlowInterval:    40 * time.Millisecond,
		SwitchThreshold: 60 * time.Millisecond,
		MaxSession:      10 * time.Second,
	}
	monitor := NewMonitor(reader, cfg)

	session := monitor.Watch(context.Background(), "rec-5", "pdf", 1024)
	defer session.Stop()

	// roughly 12 fast polls fit before the threshold
	time.Sleep(cfg.SwitchThreshold)
	fastCalls := reader.Calls()
	if fastCalls < 5 {
		t.Fatalf("fast phase produced only %d polls", fastCalls)
	}

	// after the switch the same wall time fits far fewer polls
	time.Sleep(cfg.SwitchThreshold)
	slowCalls := reader.Calls() - fastCalls
	if slowCalls >= fastCalls/2 {
		t.Errorf("slow phase produced %d polls vs %d fast, cadence never slowed", slowCalls, fastCalls)
	}
}

func TestMonitor_MaxSessionGivesUp(t *testing.T) {
	reader := &MockStatusReader{} // never terminal
	cfg := fastTestConfig()
	cfg.MaxSession = 50 * time.Millisecond
	monitor := NewMonitor(reader, cfg)

	session := monitor.Watch(context.Background(), "rec-6", "pdf", 1024)
	events := collect(t, session, time.Second)

	if len(events) == 0 {
		t.Fatal("expected a terminal event")
	}
	last := events[len(events)-1]
	if last.Kind != EventError {
		t.Fatalf("Kind = %s, want error", last.Kind)
	}
	if last.Error == nil || last.Error.Kind != string(recordModel.ErrKindTimeout) {
		t.Errorf("Error = %v, want a client-side TIMEOUT", last.Error)
	}
	if last.Error != nil && !last.Error.Retryable {
		t.Error("a client-side timeout says nothing about the backend; it must stay retryable")
	}
}

func TestMonitor_StopEndsSession(t *testing.T) {
	reader := &MockStatusReader{}
	monitor := NewMonitor(reader, fastTestConfig())

	session := monitor.Watch(context.Background(), "rec-7", "pdf", 1024)
	time.Sleep(20 * time.Millisecond)
	session.Stop()
	session.Stop() // idempotent

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-session.Events():
			if !ok {
				return // channel closed, session gone
			}
		case <-deadline:
			t.Fatal("session did not stop")
		}
	}
}

func TestMonitor_CancelledContextReleasesBlockedSession(t *testing.T) {
	// enough Processing reads to fill the 32-slot event buffer before the
	// terminal status shows up
	responses := make([]api.StatusResponse, 0, 41)
	for i := 0; i < 40; i++ {
		responses = append(responses, api.StatusResponse{Status: string(recordModel.StatusProcessing)})
	}
	responses = append(responses, api.StatusResponse{
		Status:        string(recordModel.StatusCompleted),
		ExtractedText: "ok",
	})
	reader := &MockStatusReader{responses: responses}

	cfg := fastTestConfig()
	cfg.MaxSession = 30 * time.Second
	monitor := NewMonitor(reader, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the consumer never drains, so the terminal send has nowhere to go
	session := monitor.Watch(ctx, "rec-8", "pdf", 1024)

	deadline := time.Now().Add(2 * time.Second)
	for reader.Calls() < 41 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d status reads before the deadline", reader.Calls())
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	// cancellation alone, without Stop and without draining, must end the
	// session and close the channel
	cancel()
	collect(t, session, time.Second)
}

func TestProfile_Estimate(t *testing.T) {
	profile := ProfileFor("pdf", 512*1024)

	t.Run("Starts near zero in the first stage", func(t *testing.T) {
		percent, stageName := profile.Estimate(0)
		if percent != 0 {
			t.Errorf("percent = %v, want 0", percent)
		}
		if stageName != "upload" {
			t.Errorf("stage = %q, want upload", stageName)
		}
	})

	t.Run("Caps at 99 no matter how long it runs", func(t *testing.T) {
		percent, stageName := profile.Estimate(24 * time.Hour)
		if percent != 99 {
			t.Errorf("percent = %v, want 99", percent)
		}
		if stageName != "finalizing" {
			t.Errorf("stage = %q, want finalizing", stageName)
		}
	})

	t.Run("Bigger artifacts stretch the timeline", func(t *testing.T) {
		small := ProfileFor("pdf", 100*1024)
		big := ProfileFor("pdf", 8<<20)

		elapsed := 30 * time.Second
		smallPercent, _ := small.Estimate(elapsed)
		bigPercent, _ := big.Estimate(elapsed)
		if bigPercent >= smallPercent {
			t.Errorf("big = %v, small = %v; a larger artifact must report less progress", bigPercent, smallPercent)
		}
	})

	t.Run("Sync formats use the short profile", func(t *testing.T) {
		syncProfile := ProfileFor("txt", 1024)
		percent, stageName := syncProfile.Estimate(3 * time.Second)
		if stageName != "extracting" {
			t.Errorf("stage = %q, want extracting", stageName)
		}
		if percent <= 0 {
			t.Errorf("percent = %v, want > 0", percent)
		}
	})
}
