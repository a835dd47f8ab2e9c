package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeService struct {
	name     string
	startErr error
	stopLog  *[]string
	mu       *sync.Mutex
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.stopLog = append(*s.stopLog, s.name)
	return nil
}

func TestRunnerStopsInReverseOrderOnCancel(t *testing.T) {
	var mu sync.Mutex
	var stopped []string
	runner := NewRunner(
		&fakeService{name: "http", stopLog: &stopped, mu: &mu},
		nil,
		&fakeService{name: "reconcile", stopLog: &stopped, mu: &mu},
	)
	if names := runner.Names(); len(names) != 2 {
		t.Fatalf("nil services should be dropped, got %v", names)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := runner.Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("cancel should be a clean exit, got %v", err)
	}
	if len(stopped) != 2 || stopped[0] != "reconcile" || stopped[1] != "http" {
		t.Fatalf("services should stop in reverse order, got %v", stopped)
	}
}

func TestRunnerReturnsFirstServiceError(t *testing.T) {
	var mu sync.Mutex
	var stopped []string
	boom := errors.New("address already in use")
	runner := NewRunner(
		&fakeService{name: "http", startErr: boom, stopLog: &stopped, mu: &mu},
		&fakeService{name: "worker", stopLog: &stopped, mu: &mu},
	)
	err := runner.Run(context.Background(), time.Second, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
	if len(stopped) != 2 {
		t.Fatalf("all services should be stopped, got %v", stopped)
	}
}

func TestRunnerWithoutServices(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("empty runner should fail")
	}
}
