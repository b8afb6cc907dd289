// Package batch analyzes several designs at once.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/model"
)

// MaxItems bounds one batch request.
const MaxItems = 64

type Input struct {
	Items []model.Design `json:"items"`
}

// Item is the outcome for one design. Error is set instead of the other
// fields when the design could not be analyzed.
type Item struct {
	Name     string          `json:"name"`
	Status   analysis.Status `json:"status,omitempty"`
	Passing  bool            `json:"passing"`
	MaxRatio float64         `json:"max_ratio"`
	Failing  []int           `json:"failing_members,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type Result struct {
	Results []Item `json:"results"`
	Passing int    `json:"passing"`
}

// Analyze runs every design with up to workers analyses in parallel; zero
// uses one per CPU. Results keep the input order. A design that fails to
// build is reported in its item; cancellation aborts the batch.
func Analyze(ctx context.Context, in Input, inv *model.Inventory, opts analysis.Options, workers int) (Result, error) {
	if len(in.Items) == 0 {
		return Result{}, fmt.Errorf("no items")
	}
	if len(in.Items) > MaxItems {
		return Result{}, fmt.Errorf("too many items: %d > %d", len(in.Items), MaxItems)
	}
	if inv == nil {
		inv = model.StandardInventory()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := Result{Results: make([]Item, len(in.Items))}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range in.Items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out.Results[i] = analyze(gctx, in.Items[i], inv, opts)
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	for _, it := range out.Results {
		if it.Passing {
			out.Passing++
		}
	}
	return out, nil
}

func analyze(ctx context.Context, d model.Design, inv *model.Inventory, opts analysis.Options) Item {
	it := Item{Name: d.Name}
	sum, err := analysis.Run(ctx, d, inv, opts)
	if err != nil {
		var me *model.ModelError
		if errors.As(err, &me) || ctx.Err() == nil {
			it.Error = err.Error()
		}
		return it
	}
	it.Status = sum.Status
	it.Passing = sum.Passing
	it.MaxRatio = sum.MaxRatio()
	for _, m := range sum.Members {
		if m.Status != analysis.MemberOK {
			it.Failing = append(it.Failing, m.ID)
		}
	}
	return it
}
