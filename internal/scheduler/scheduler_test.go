package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fleetsync-io/fleetsync/internal/engine"
)

type fakeSyncer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSyncer) Sync(ctx context.Context, force bool) (*engine.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &engine.Result{Type: engine.ResultSkipFresh}, nil
}

func (f *fakeSyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestUntilNextDaily(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Duration
	}{
		{
			name: "later today",
			now:  time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC),
			hour: 6,
			want: 2 * time.Hour,
		},
		{
			name: "already passed rolls to tomorrow",
			now:  time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC),
			hour: 6,
			want: 21*time.Hour + 30*time.Minute,
		},
		{
			name: "exactly at the hour waits a full day",
			now:  time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC),
			hour: 6,
			want: 24 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeSyncer{}, Config{DailyHour: tt.hour})
			if got := s.untilNextDaily(tt.now); got != tt.want {
				t.Errorf("untilNextDaily() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBootCheckFires(t *testing.T) {
	syncer := &fakeSyncer{}
	s := New(syncer, Config{
		DailyHour:      6,
		BootCheck:      true,
		BootCheckDelay: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for syncer.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("boot check never fired")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestRunStopsOnCancelDuringBootDelay(t *testing.T) {
	syncer := &fakeSyncer{}
	s := New(syncer, Config{
		DailyHour:      6,
		BootCheck:      true,
		BootCheckDelay: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if syncer.callCount() != 0 {
		t.Errorf("sync fired %d times during cancelled boot delay, want 0", syncer.callCount())
	}
}

func TestRunningEngineIsNotAnError(t *testing.T) {
	syncer := &fakeSyncer{err: engine.ErrSyncRunning}
	s := New(syncer, Config{DailyHour: 6})

	// trigger must swallow the rejection without panicking or retrying.
	s.trigger(context.Background(), "daily")
	if syncer.callCount() != 1 {
		t.Errorf("sync calls = %d, want 1", syncer.callCount())
	}
}
