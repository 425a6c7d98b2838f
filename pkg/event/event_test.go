package event

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestMultiSkipsNil(t *testing.T) {
	var a, b Recorder
	s := Multi(&a, nil, &b)
	s.Publish(Event{Kind: StepAttempted})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("got %d and %d events, want 1 each", len(a.Events()), len(b.Events()))
	}
	if Multi(nil, nil) != Nop {
		t.Error("Multi of only nil sinks should be Nop")
	}
}

func TestChanDropsWhenFull(t *testing.T) {
	ch := make(chan Event, 1)
	s := Chan(ch)
	s.Publish(Event{Kind: StepAttempted})
	s.Publish(Event{Kind: StepSucceeded}) // dropped, must not block
	if got := (<-ch).Kind; got != StepAttempted {
		t.Errorf("first event kind = %q, want %q", got, StepAttempted)
	}
}

func TestRecorderConcurrent(t *testing.T) {
	var r Recorder
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Publish(Event{Kind: PrimitiveBuilt})
			}
		}()
	}
	wg.Wait()
	if got := r.Count(PrimitiveBuilt); got != 800 {
		t.Errorf("Count() = %d, want 800", got)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.DebugLevel)
	s := Logger(l)
	s.Publish(Event{Kind: FallbackTriggered, Label: "rail-left", Op: "union", Err: errors.New("boom"), Degraded: true, Detail: "fell back"})

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"event":"fallback_triggered"`, `"label":"rail-left"`, `"error":"boom"`, `"degraded":true`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %s missing %s", out, want)
		}
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) != Nop {
		t.Error("OrNop(nil) should return Nop")
	}
	var r Recorder
	if OrNop(&r) != Sink(&r) {
		t.Error("OrNop should return a non-nil sink unchanged")
	}
}
