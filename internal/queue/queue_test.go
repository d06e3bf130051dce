package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestEnqueue_RunsTask(t *testing.T) {
	q, err := New(2, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer q.Release()

	var wg sync.WaitGroup
	wg.Add(1)
	q.Enqueue("test", func(context.Context) {
		wg.Done()
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestEnqueue_SaturatedPoolRunsInline(t *testing.T) {
	q, err := New(1, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer q.Release()

	block := make(chan struct{})
	q.Enqueue("blocker", func(context.Context) { <-block })

	// Give the blocker time to occupy the single worker.
	time.Sleep(50 * time.Millisecond)

	ran := make(chan struct{})
	q.Enqueue("inline", func(context.Context) { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("saturated enqueue did not run inline")
	}
	close(block)
}

func TestRunNow(t *testing.T) {
	q, err := New(1, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer q.Release()

	ran := false
	q.RunNow(context.Background(), func(context.Context) { ran = true })
	if !ran {
		t.Error("RunNow did not execute the task")
	}
}

func TestEnqueue_RecoveryFromPanic(t *testing.T) {
	q, err := New(1, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer q.Release()

	q.Enqueue("panics", func(context.Context) { panic("boom") })

	// A panicking task must not take the pool down.
	ran := make(chan struct{})
	q.Enqueue("after", func(context.Context) { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("pool unusable after task panic")
	}
}
