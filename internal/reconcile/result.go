// Package reconcile holds the periodic loops that converge supplier state
// (stock, price, order status) into the storefront and the local stores.
package reconcile

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

const defaultShopConcurrency = 4

// Result is what a loop reports back to its trigger.
type Result struct {
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// tally is a Result shared by concurrently processed shops.
type tally struct {
	mu  sync.Mutex
	res Result
}

func (t *tally) updated() {
	t.mu.Lock()
	t.res.Updated++
	t.mu.Unlock()
}

func (t *tally) failed(n int) {
	t.mu.Lock()
	t.res.Errors += n
	t.mu.Unlock()
}

func (t *tally) result() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.res
}

// eachShop runs fn for every shop with at most limit shops in flight. fn
// reports failures through the tally; it never aborts sibling shops.
func eachShop(ctx context.Context, shops []string, limit int, fn func(ctx context.Context, shop string)) {
	if limit <= 0 {
		limit = defaultShopConcurrency
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for _, shop := range shops {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fn(ctx, shop)
			return nil
		})
	}
	_ = g.Wait()
}
