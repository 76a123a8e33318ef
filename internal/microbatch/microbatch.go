package microbatch

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"inferd/internal/handler"
)

// Inner is the wrapped entry point. The handler itself enforces its
// one-request-per-call precondition; the batcher only arranges call sizes.
type Inner interface {
	Handle(ctx context.Context, payloads [][]byte, rctx *handler.RequestContext) ([]string, error)
	Ready() bool
}

// Batcher splits inbound batches into micro-batches and dispatches them to
// the inner handler under a weighted-semaphore parallelism budget. Output
// order matches input order regardless of dispatch interleaving.
type Batcher struct {
	inner Inner
	size  int
	sem   *semaphore.Weighted
}

func New(inner Inner, cfg Config) *Batcher {
	size := cfg.MicroBatchSize
	if size < 1 {
		size = 1
	}
	par := cfg.Parallelism
	if par < 1 {
		par = 1
	}
	return &Batcher{inner: inner, size: size, sem: semaphore.NewWeighted(int64(par))}
}

// Ready reports readiness of the wrapped handler.
func (b *Batcher) Ready() bool { return b.inner.Ready() }

// Handle dispatches payloads in micro-batches. rctxs parallels payloads;
// each micro-batch is dispatched with the context of its first request.
// The first failing micro-batch fails the whole call.
func (b *Batcher) Handle(ctx context.Context, payloads [][]byte, rctxs []*handler.RequestContext) ([]string, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	type span struct{ lo, hi int }
	var spans []span
	for lo := 0; lo < len(payloads); lo += b.size {
		hi := lo + b.size
		if hi > len(payloads) {
			hi = len(payloads)
		}
		spans = append(spans, span{lo: lo, hi: hi})
	}

	results := make([][]string, len(spans))
	g, gctx := errgroup.WithContext(ctx)
	for i, sp := range spans {
		g.Go(func() error {
			if err := b.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer b.sem.Release(1)
			var rctx *handler.RequestContext
			if sp.lo < len(rctxs) {
				rctx = rctxs[sp.lo]
			}
			out, err := b.inner.Handle(gctx, payloads[sp.lo:sp.hi], rctx)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []string
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
