package service

import (
	"errors"

	"github.com/shaanlabs/Tekista/internal/adapters/repository"
)

// Sentinel kinds returned by the service API.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRetryable       = errors.New("temporarily unavailable")
	ErrConflict        = errors.New("conflict")
)

// classified tags a cause with a service kind without changing its message.
type classified struct {
	kind  error
	cause error
}

func (e *classified) Error() string   { return e.cause.Error() }
func (e *classified) Unwrap() []error { return []error{e.kind, e.cause} }

func classify(kind, cause error) error {
	return &classified{kind: kind, cause: cause}
}

// translate maps repository errors onto service kinds. The repository error
// stays in the chain.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return classify(ErrNotFound, err)
	case errors.Is(err, repository.ErrItemNotOpen), errors.Is(err, repository.ErrAlreadyExists):
		return classify(ErrConflict, err)
	case errors.Is(err, repository.ErrNotActive):
		return classify(ErrInvalidState, err)
	case errors.Is(err, repository.ErrTransient):
		return classify(ErrRetryable, err)
	}
	return err
}

func isTransient(err error) bool {
	return errors.Is(err, repository.ErrTransient)
}
