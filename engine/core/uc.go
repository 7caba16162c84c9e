package core

import "context"

// Usecase is implemented by every operation: it validates the loose input and
// returns a freshly built result or an ErrInvalidInput rejection.
type Usecase[I, O any] interface {
	Execute(ctx context.Context, in I) (O, error)
}
