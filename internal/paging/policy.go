package paging

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by DefaultSettings.
const (
	DefaultUnit        = "items"
	DefaultMaxAttempts = 10
	DefaultDelay       = time.Second
)

// Settings is the loadable part of a pagination policy.
type Settings struct {
	// Unit is the range unit accepted in requests and advertised in responses.
	Unit string `mapstructure:"unit" json:"unit" validate:"required,alphanum"`
	// MaxCount caps the number of elements one response may carry. Zero means unlimited.
	MaxCount int64 `mapstructure:"max_count" json:"maxCount" validate:"gte=0"`
	// LongPolling enables waiting on half-open ranges that are empty at first read.
	LongPolling bool          `mapstructure:"long_polling" json:"longPolling"`
	MaxAttempts int           `mapstructure:"max_attempts" json:"maxAttempts" validate:"gte=1"`
	Delay       time.Duration `mapstructure:"delay" json:"delay" validate:"gte=0"`
}

// DefaultSettings returns the zero-configuration policy: unit "items",
// no cap, long polling off, 10 attempts one second apart.
func DefaultSettings() Settings {
	return Settings{
		Unit:        DefaultUnit,
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
	}
}

// Validate checks the settings with their struct tags.
func (s Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("pagination settings validation error: %w", err)
	}
	return nil
}

// Capped reports whether MaxCount is in force.
func (s Settings) Capped() bool { return s.MaxCount > 0 }

// Policy parameterizes a Paginator for element type T.
type Policy[T any] struct {
	Settings
	// EndOfStream, when set, is called on the last element of a long-poll
	// result. Returning true closes the range by reporting a total length.
	EndOfStream func(T) bool
}

// NewPolicy builds a policy from settings with no end-of-stream predicate.
func NewPolicy[T any](s Settings) Policy[T] { return Policy[T]{Settings: s} }

func (p Policy[T]) endOfStream(items []T) bool {
	if p.EndOfStream == nil || len(items) == 0 {
		return false
	}
	return p.EndOfStream(items[len(items)-1])
}

// checkCap applies MaxCount to an already valid range (nil means no range at all).
func (p Policy[T]) checkCap(spec *RangeSpec) error {
	if !p.Capped() {
		return nil
	}
	if spec == nil {
		return fmt.Errorf("%w: a range is required, at most %d %s per request", ErrRangeTooLarge, p.MaxCount, p.Unit)
	}
	n, bounded := spec.Span()
	if !bounded {
		return fmt.Errorf("%w: open-ended ranges are not allowed, at most %d %s per request", ErrRangeTooLarge, p.MaxCount, p.Unit)
	}
	if n > p.MaxCount {
		return fmt.Errorf("%w: requested %d %s, at most %d allowed", ErrRangeTooLarge, n, p.Unit, p.MaxCount)
	}
	return nil
}
