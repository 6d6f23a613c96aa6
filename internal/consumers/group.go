package consumers

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RunAll runs every runner until ctx is canceled. The first runner to fail
// cancels the others and its error is returned.
func RunAll(ctx context.Context, runners ...*Runner) error {
	if len(runners) == 0 {
		return errors.New("no consumers configured")
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, runner := range runners {
		g.Go(func() error {
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("consumer %s: %w", runner.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
