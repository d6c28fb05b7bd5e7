// Package biz implements the authorization-aware retrieval pipeline.
package biz

import (
	"context"
	"sync"

	"github.com/kart-io/rag-agent/pkg/authz/fga"
	"github.com/kart-io/rag-agent/pkg/infra/pool"
)

// AuthzClient is the slice of the authorization engine the pipeline needs.
// Check is fail-closed when the engine is configured and fail-open when it
// is not; it never reports transport errors upward.
type AuthzClient interface {
	Check(ctx context.Context, user, relation, object string) bool
	ListObjects(ctx context.Context, user, relation string, objType fga.ObjectType) []string
	WriteTuples(ctx context.Context, tuples []fga.Tuple) bool
}

// Checker fans authorization checks out over a bounded worker pool. The
// result is equivalent to checking sequentially: every candidate is checked
// independently and one denial never aborts the batch.
type Checker struct {
	authz AuthzClient
	pool  *pool.Pool
}

// NewChecker creates a batch checker running on the given pool. A nil pool
// degrades to sequential checking.
func NewChecker(authz AuthzClient, p *pool.Pool) *Checker {
	return &Checker{authz: authz, pool: p}
}

// Check forwards a single check.
func (c *Checker) Check(ctx context.Context, user, relation, object string) bool {
	return c.authz.Check(ctx, user, relation, object)
}

// CheckBatch checks user against every object and returns object -> allowed.
func (c *Checker) CheckBatch(ctx context.Context, user, relation string, objects []string) map[string]bool {
	results := make(map[string]bool, len(objects))
	if len(objects) == 0 {
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, object := range objects {
		object := object
		task := func() {
			defer wg.Done()
			allowed := c.authz.Check(ctx, user, relation, object)
			mu.Lock()
			results[object] = allowed
			mu.Unlock()
		}

		wg.Add(1)
		if c.pool != nil {
			if err := c.pool.Submit(task); err == nil {
				continue
			}
			// Pool saturated or closed: fall through to inline execution
			// so the batch still completes.
		}
		task()
	}
	wg.Wait()

	return results
}
