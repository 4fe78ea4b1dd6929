package engine

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/turtacn/ChemClassify/internal/domain/classification"
	"github.com/turtacn/ChemClassify/internal/domain/structure"
	"github.com/turtacn/ChemClassify/internal/infrastructure/logging"
	"github.com/turtacn/ChemClassify/pkg/errors"
)

// BatchItem is one unit of work for ClassifyBatch.  Either Structure is set,
// or SMILES is parsed per item.  Name labels the result.
type BatchItem struct {
	Name      string
	SMILES    string
	Structure structure.Structure
}

// BatchItemResult pairs one input item with its outcome.  Exactly one of
// Result and Err is set: a malformed structure fails its own item and never
// the batch.
type BatchItemResult struct {
	Index  int
	Name   string
	Result *classification.Result
	Err    error
}

// ClassifyBatch classifies items concurrently over a bounded worker pool.
// workers <= 0 selects GOMAXPROCS.  Results are returned in input order with
// per-item error isolation; only context cancellation aborts the whole run.
func (c *Classifier) ClassifyBatch(ctx context.Context, items []BatchItem, workers int) ([]BatchItemResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(items) {
		workers = len(items)
	}
	start := time.Now()

	results := make([]BatchItemResult, len(items))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = c.classifyItem(ctx, i, items[i])
			}
		}()
	}

feed:
	for i := range items {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	c.metrics.RecordBatch(len(items), float64(elapsed.Microseconds())/1000.0)
	c.log.Info("batch classified",
		logging.Int("items", len(items)),
		logging.Int("workers", workers),
		logging.Duration("elapsed", elapsed))
	return results, nil
}

func (c *Classifier) classifyItem(ctx context.Context, idx int, item BatchItem) BatchItemResult {
	out := BatchItemResult{Index: idx, Name: item.Name}

	s := item.Structure
	if s == nil {
		if item.SMILES == "" {
			out.Err = errors.InvalidParam("batch item carries neither structure nor SMILES").
				WithDetail("name=" + item.Name)
			return out
		}
		mol, err := structure.ParseSMILES(item.SMILES)
		if err != nil {
			c.metrics.RecordStructureError()
			out.Err = err
			return out
		}
		s = mol
	}

	res, err := c.Classify(ctx, s)
	if err != nil {
		out.Err = err
		return out
	}
	res.StructureName = item.Name
	res.InputSMILES = item.SMILES
	out.Result = res
	return out
}
