package microbatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"inferd/internal/handler"
)

// echoInner returns one output per payload and records call sizes.
type echoInner struct {
	mu        sync.Mutex
	callSizes []int
	failOn    string
}

func (e *echoInner) Ready() bool { return true }

func (e *echoInner) Handle(_ context.Context, payloads [][]byte, _ *handler.RequestContext) ([]string, error) {
	e.mu.Lock()
	e.callSizes = append(e.callSizes, len(payloads))
	e.mu.Unlock()
	var out []string
	for _, p := range payloads {
		if string(p) == e.failOn {
			return nil, errors.New("inner failed")
		}
		out = append(out, "echo:"+string(p))
	}
	return out, nil
}

func payloadBatch(n int) ([][]byte, []*handler.RequestContext) {
	payloads := make([][]byte, n)
	rctxs := make([]*handler.RequestContext, n)
	for i := range payloads {
		payloads[i] = []byte(fmt.Sprintf("p%d", i))
		rctxs[i] = &handler.RequestContext{RequestID: fmt.Sprintf("r%d", i)}
	}
	return payloads, rctxs
}

func TestHandlePreservesOrder(t *testing.T) {
	inner := &echoInner{}
	b := New(inner, Config{Parallelism: 4, MicroBatchSize: 2})
	payloads, rctxs := payloadBatch(5)
	out, err := b.Handle(context.Background(), payloads, rctxs)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("out len=%d", len(out))
	}
	for i, o := range out {
		if want := fmt.Sprintf("echo:p%d", i); o != want {
			t.Fatalf("out[%d]=%q want %q", i, o, want)
		}
	}
}

func TestHandleSplitsIntoMicroBatches(t *testing.T) {
	inner := &echoInner{}
	b := New(inner, Config{Parallelism: 1, MicroBatchSize: 2})
	payloads, rctxs := payloadBatch(5)
	if _, err := b.Handle(context.Background(), payloads, rctxs); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(inner.callSizes) != 3 {
		t.Fatalf("calls=%v want 3 micro-batches", inner.callSizes)
	}
	total := 0
	for _, n := range inner.callSizes {
		if n > 2 {
			t.Fatalf("micro-batch size %d exceeds limit", n)
		}
		total += n
	}
	if total != 5 {
		t.Fatalf("dispatched %d payloads", total)
	}
}

func TestHandlePropagatesInnerError(t *testing.T) {
	inner := &echoInner{failOn: "p1"}
	b := New(inner, Config{Parallelism: 2, MicroBatchSize: 1})
	payloads, rctxs := payloadBatch(3)
	if _, err := b.Handle(context.Background(), payloads, rctxs); err == nil {
		t.Fatalf("expected inner error")
	}
}

func TestHandleEmptyBatch(t *testing.T) {
	b := New(&echoInner{}, DefaultConfig())
	out, err := b.Handle(context.Background(), nil, nil)
	if err != nil || out != nil {
		t.Fatalf("out=%v err=%v", out, err)
	}
}
