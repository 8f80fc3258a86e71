package numerator

import (
	"context"
	"time"
)

// Generator generates sequential document numbers.
// Domain services depend on this interface; Service is the PostgreSQL
// implementation.
type Generator interface {
	// GetNextNumber generates the next document number.
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the next number value (for migration purposes).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}

// Ensure compile-time interface compliance.
var _ Generator = (*Service)(nil)
