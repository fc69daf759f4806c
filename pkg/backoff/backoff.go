package backoff

import (
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
	"time"
)

// Unbounded is the maximum representable duration, used as the ceiling when
// no max is configured.
const Unbounded = time.Duration(math.MaxInt64)

// Defaults applied by New and Default
const (
	DefaultMin    = 100 * time.Millisecond
	DefaultMax    = 10 * time.Second
	DefaultJitter = 0.3
	DefaultFactor = 2
)

// jitterScale is the fixed-point scale of the jitter fraction (parts per million)
const jitterScale = 1_000_000

// Backoff holds the configuration of an exponential backoff sequence.
//
// A Backoff is a plain value owned by the caller. Iterators copy it on
// creation, so mutating a Backoff never affects iterators already handed out.
type Backoff struct {
	retries     uint32
	min         time.Duration
	max         time.Duration
	jitter      float64
	jitterUnits uint64
	factor      uint32
}

// New creates a backoff with the given attempt budget and bounds.
// A non-positive maxDelay means the sequence has no ceiling (Unbounded).
func New(retries uint32, minDelay, maxDelay time.Duration, opts ...Option) *Backoff {
	if maxDelay <= 0 {
		maxDelay = Unbounded
	}

	b := &Backoff{
		retries: retries,
		min:     minDelay,
		max:     maxDelay,
		factor:  DefaultFactor,
	}
	b.SetJitter(DefaultJitter)

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Default creates a backoff using DefaultMin, DefaultMax, DefaultJitter and DefaultFactor
func Default(retries uint32) *Backoff {
	return New(retries, DefaultMin, DefaultMax)
}

// Option is a configuration option for New
type Option func(*Backoff)

// WithJitter sets the jitter fraction. It panics like SetJitter.
func WithJitter(jitter float64) Option {
	return func(b *Backoff) {
		b.SetJitter(jitter)
	}
}

// WithFactor sets the growth factor
func WithFactor(factor uint32) Option {
	return func(b *Backoff) {
		b.factor = factor
	}
}

// SetJitter sets the fraction of each delay that may be randomly removed or added.
//
// It panics with an error wrapping ErrInvalidJitter if jitter is NaN or
// outside [0, 1]. An out-of-range jitter is a programming error and is never
// clamped.
func (b *Backoff) SetJitter(jitter float64) {
	if math.IsNaN(jitter) || jitter < 0 || jitter > 1 {
		panic(fmt.Errorf("%w: got %v", ErrInvalidJitter, jitter))
	}
	b.jitter = jitter
	b.jitterUnits = uint64(math.Round(jitter * jitterScale))
}

// SetMin sets the floor and base delay. No validation is performed.
func (b *Backoff) SetMin(d time.Duration) {
	b.min = d
}

// SetMax sets the ceiling. No validation is performed.
func (b *Backoff) SetMax(d time.Duration) {
	b.max = d
}

// SetFactor sets the growth factor. No validation is performed.
func (b *Backoff) SetFactor(factor uint32) {
	b.factor = factor
}

// SetRetries sets the attempt budget
func (b *Backoff) SetRetries(retries uint32) {
	b.retries = retries
}

// Retries returns the attempt budget
func (b *Backoff) Retries() uint32 {
	return b.retries
}

// Min returns the minimum delay
func (b *Backoff) Min() time.Duration {
	return b.min
}

// Max returns the maximum delay
func (b *Backoff) Max() time.Duration {
	return b.max
}

// Jitter returns the jitter fraction
func (b *Backoff) Jitter() float64 {
	return b.jitter
}

// Factor returns the growth factor
func (b *Backoff) Factor() uint32 {
	return b.factor
}

// Clone returns an independent copy of the configuration
func (b *Backoff) Clone() *Backoff {
	c := *b
	return &c
}

// Iter creates a new iterator with its own freshly seeded random source
func (b *Backoff) Iter() *Iterator {
	return b.IterWithSource(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// IterWithSource creates a new iterator drawing jitter from src.
// src must not be shared with other iterators.
func (b *Backoff) IterWithSource(src rand.Source) *Iterator {
	return &Iterator{
		cfg: *b,
		rng: rand.New(src),
	}
}

// All returns the sequence as a range-over-func iterator.
// Every range over the result starts a new Iterator.
//
//	for step := range b.All() {
//		if err := call(); err == nil || step.Stop {
//			break
//		}
//		time.Sleep(step.Delay)
//	}
func (b *Backoff) All() iter.Seq[Step] {
	cfg := b.Clone()
	return func(yield func(Step) bool) {
		it := cfg.Iter()
		for {
			step, ok := it.Next()
			if !ok || !yield(step) {
				return
			}
		}
	}
}
