package resolver

import (
	"context"
	"sync"

	"github.com/law-makers/rclookup/pkg/models"
)

// DefaultBatchConcurrency keeps parallel lookups against the single upstream low
const DefaultBatchConcurrency = 2

// ResolveBatch resolves plates with at most concurrency lookups in flight.
// Results keep the input order. Inputs that normalize to the same plate are
// resolved once and share the result. onDone, if set, is called once per
// unique plate as soon as it finishes.
func (r *Resolver) ResolveBatch(ctx context.Context, plates []string, concurrency int, onDone func(models.Result)) []models.Result {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	// Group input positions by normalized plate
	order := make([]models.PlateQuery, 0, len(plates))
	positions := make(map[models.PlateQuery][]int)
	raws := make(map[models.PlateQuery]string)
	for i, raw := range plates {
		q := models.NewPlateQuery(raw)
		if _, seen := positions[q]; !seen {
			order = append(order, q)
			raws[q] = raw
		}
		positions[q] = append(positions[q], i)
	}

	results := make([]models.Result, len(plates))
	sem := make(chan struct{}, concurrency)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, q := range order {
		// Once ctx is done, the remaining plates resolve to cancelled results at once
		acquired := false
		select {
		case sem <- struct{}{}:
			acquired = true
		case <-ctx.Done():
		}

		wg.Add(1)
		go func(q models.PlateQuery, acquired bool) {
			defer wg.Done()
			if acquired {
				defer func() { <-sem }()
			}

			res := r.Resolve(ctx, raws[q])

			mu.Lock()
			for _, i := range positions[q] {
				results[i] = res
			}
			if onDone != nil {
				onDone(res)
			}
			mu.Unlock()
		}(q, acquired)
	}

	wg.Wait()
	return results
}
