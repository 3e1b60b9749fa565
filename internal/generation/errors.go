package generation

import "errors"

// ErrConcurrencyLimit is returned by Submit when the ceiling is reached.
var ErrConcurrencyLimit = errors.New("concurrency limit reached")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("generation manager closed")

// IsConcurrencyLimit reports whether err is an admission rejection.
func IsConcurrencyLimit(err error) bool {
	return errors.Is(err, ErrConcurrencyLimit)
}
