package nfc

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLooper_RunsTasksInOrder(t *testing.T) {
	l := NewLooper(8, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var got []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		if !l.Post(func() { got = append(got, i) }) {
			t.Fatalf("Post(%d) rejected", i)
		}
	}
	l.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tasks did not run")
	}

	for i, v := range got {
		if v != i {
			t.Fatalf("task order = %v", got)
		}
	}
	if len(got) != 5 {
		t.Errorf("ran %d tasks, want 5", len(got))
	}
}

func TestLooper_PostDropsWhenFull(t *testing.T) {
	l := NewLooper(1, zerolog.Nop())

	if !l.Post(func() {}) {
		t.Fatal("first Post should be accepted")
	}
	if l.Post(func() {}) {
		t.Error("Post on a full queue should be rejected")
	}
	if l.Post(nil) {
		t.Error("Post(nil) should be rejected")
	}
}

func TestLooper_PostAfterStop(t *testing.T) {
	l := NewLooper(0, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	cancel()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("looper did not stop")
	}

	if l.Post(func() {}) {
		t.Error("Post after stop should be rejected")
	}
}

func TestLooper_SurvivesPanic(t *testing.T) {
	l := NewLooper(4, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	done := make(chan struct{})
	l.Post(func() { panic("boom") })
	l.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("looper stopped after a panicking task")
	}
}
