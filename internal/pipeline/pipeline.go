package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Pipeline applies its stages to items in order.
type Pipeline[T any] struct {
	stages []Stage[T]
	logger *zap.Logger
}

func NewPipeline[T any](logger *zap.Logger, stages ...Stage[T]) *Pipeline[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline[T]{stages: stages, logger: logger}
}

// Run applies every stage to item. All steps of a stage must finish before the
// next stage starts. Step errors are logged and do not stop the run.
func (p *Pipeline[T]) Run(ctx context.Context, item *T) {
	for _, stage := range p.stages {
		var wg sync.WaitGroup
		for _, step := range stage.steps {
			wg.Add(1)
			go func(step Step[T]) {
				defer wg.Done()
				if err := step(ctx, item); err != nil {
					p.logger.Warn("Pipeline step failed", zap.Error(err))
				}
			}(step)
		}
		wg.Wait()
	}
}

// Process runs the pipeline for every item received until in is closed.
func (p *Pipeline[T]) Process(ctx context.Context, in <-chan *T) {
	for item := range in {
		p.Run(ctx, item)
	}
}
