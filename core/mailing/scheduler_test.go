package mailing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/seatplan/core"
)

type stubService struct {
	Service

	mu         sync.Mutex
	calls      []string
	sendDueAt  []time.Time
	sendDueErr error
	pendingErr error
	pendingRes ProcessResult
}

func (s *stubService) SendDue(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "SendDue")
	s.sendDueAt = append(s.sendDueAt, now)
	return 1, s.sendDueErr
}

func (s *stubService) ProcessPending(context.Context) (ProcessResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "ProcessPending")
	return s.pendingRes, s.pendingErr
}

func (s *stubService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type recordingLogger struct {
	nopLogger
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func TestScheduler_Tick(t *testing.T) {
	now := time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		sendDueErr error
		pendingErr error
		wantErrors []string
	}{
		{
			name: "runs both steps in order",
		},
		{
			name:       "due reports error",
			sendDueErr: errors.New("db locked"),
			wantErrors: []string{"sending due reports: db locked"},
		},
		{
			name:       "pending emails error",
			pendingErr: errors.New("db locked"),
			wantErrors: []string{"processing pending emails: db locked"},
		},
		{
			name:       "both steps fail",
			sendDueErr: errors.New("no schedules"),
			pendingErr: errors.New("no pending"),
			wantErrors: []string{"sending due reports: no schedules", "processing pending emails: no pending"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{sendDueErr: tc.sendDueErr, pendingErr: tc.pendingErr}
			logger := new(recordingLogger)
			s := NewScheduler(svc, core.SchedulerConfig{}, logger)
			s.nowFunc = func() time.Time { return now }

			s.Tick(context.Background())

			assert.Equal(t, []string{"SendDue", "ProcessPending"}, svc.calls)
			assert.Equal(t, []time.Time{now}, svc.sendDueAt)
			assert.Equal(t, tc.wantErrors, logger.errors)
		})
	}
}

func TestScheduler_Run(t *testing.T) {
	svc := new(stubService)
	s := NewScheduler(svc, core.SchedulerConfig{Interval: time.Millisecond}, new(recordingLogger))

	clock := time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)
	var mu sync.Mutex
	s.nowFunc = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Minute)
		return clock
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// first tick runs right away, the next ones on the ticker
	require.Eventually(t, func() bool { return svc.callCount() >= 4 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	for i, call := range svc.calls {
		want := "SendDue"
		if i%2 == 1 {
			want = "ProcessPending"
		}
		assert.Equal(t, want, call)
	}
	for i := 1; i < len(svc.sendDueAt); i++ {
		assert.Equal(t, time.Minute, svc.sendDueAt[i].Sub(svc.sendDueAt[i-1]))
	}
}

func TestNewScheduler_DefaultInterval(t *testing.T) {
	s := NewScheduler(new(stubService), core.SchedulerConfig{}, nopLogger{})
	assert.Equal(t, defaultSchedulerInterval, s.interval)
}
