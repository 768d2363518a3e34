package kurir

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// All runs fns concurrently and returns their results in argument order. The
// first failure cancels the context passed to the others and is returned.
func All[T any](ctx context.Context, fns ...func(context.Context) (T, error)) ([]T, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([]T, len(fns))
	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			v, err := fn(gctx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Spread adapts a variadic function to take its arguments as one slice, the
// shape All returns.
func Spread[T, R any](fn func(...T) R) func([]T) R {
	return func(args []T) R {
		return fn(args...)
	}
}
