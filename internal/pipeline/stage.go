// Package pipeline runs side-effect steps over an item: steps in the same
// stage run in parallel, stages run one after another.
package pipeline

import (
	"context"
)

// Step is a single operation on an item. Steps of one stage may run
// concurrently on the same item, so they must not write to shared fields
// without coordination. A failing step returns an error; the pipeline logs it
// and carries on.
type Step[T any] func(ctx context.Context, item *T) error

// Stage groups steps that are safe to run in parallel for one item.
type Stage[T any] struct {
	steps []Step[T]
}

func NewStage[T any](steps ...Step[T]) Stage[T] {
	return Stage[T]{steps: steps}
}
