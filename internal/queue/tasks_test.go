package queue

import (
	"testing"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/config"
)

func TestSubscriberDirectorySyncTaskRoundTrip(t *testing.T) {
	task, err := NewSubscriberDirectorySyncTask(SubscriberDirectorySyncPayload{SubscriberID: 42, Email: " Ann@Example.com "})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskSubscriberDirectorySync {
		t.Fatalf("unexpected task type %s", task.Type())
	}
	payload, err := ParseSubscriberDirectorySyncPayload(task)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if payload.SubscriberID != 42 || payload.Email != "ann@example.com" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDisabledClientIgnoresEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueSubscriberDirectorySync(SubscriberDirectorySyncPayload{SubscriberID: 1}, time.Minute); err != nil {
		t.Fatalf("disabled enqueue should be a no-op, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(nil)
	if opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("unexpected addr %s", opt.Addr)
	}
	if cfg.Concurrency != 10 || cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
}
