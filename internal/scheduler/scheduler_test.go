package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestScheduler_RunOnce(t *testing.T) {
	var (
		mu     sync.Mutex
		warmed []string
	)
	s := New([]string{"temperature", "precipitation"}, time.Hour, func(ctx context.Context, dataType string) error {
		mu.Lock()
		defer mu.Unlock()
		warmed = append(warmed, dataType)
		return nil
	})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	sort.Strings(warmed)
	if len(warmed) != 2 || warmed[0] != "precipitation" || warmed[1] != "temperature" {
		t.Fatalf("unexpected warmed data types: %v", warmed)
	}
}

func TestScheduler_RunOnceReportsFailure(t *testing.T) {
	boom := errors.New("NETWORK_ERROR: 503 Service Unavailable")
	s := New([]string{"temperature", "precipitation"}, time.Hour, func(ctx context.Context, dataType string) error {
		if dataType == "precipitation" {
			return boom
		}
		return nil
	})

	if err := s.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("RunOnce() error = %v, want %v", err, boom)
	}
}

func TestScheduler_StartRunsImmediately(t *testing.T) {
	ran := make(chan string, 4)
	s := New([]string{"temperature"}, time.Hour, func(ctx context.Context, dataType string) error {
		ran <- dataType
		return nil
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	select {
	case dt := <-ran:
		if dt != "temperature" {
			t.Fatalf("unexpected data type %q", dt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("warm-up job did not run on start")
	}
}

func TestScheduler_Disabled(t *testing.T) {
	s := New([]string{"temperature"}, 0, func(ctx context.Context, dataType string) error {
		t.Error("warm-up must not run when disabled")
		return nil
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Stop()
}
