// Package backoff computes bounded sequences of retry delays using exponential growth with randomized jitter.
//
// The package only decides how long to wait. Running the operation, sleeping and
// cancellation stay with the caller.
//
// Key Features:
//
// 1. Bounded sequences:
//   - A budget of N retries produces exactly N steps: N-1 delays followed by a Stop step
//   - A budget of 0 produces a single Stop step
//   - Every delay lies within [Min, Max]
//
// 2. Exponential growth:
//   - The n-th delay is Min * Factor^(n-1) before jitter
//   - Arithmetic saturates at Unbounded instead of overflowing
//
// 3. Jitter:
//   - A draw in [0, 2*Jitter) either shrinks the delay by up to Jitter or grows it by up to Jitter
//   - Computed in fixed point; a jitter of 0 yields the exact exponential sequence
//
// 4. Independent iterators:
//   - Every Iterator owns a copy of the configuration, its counter and its random source
//   - Iterators from the same Backoff can run concurrently without coordination
//
// Basic usage example:
//
//	b := backoff.New(5, 100*time.Millisecond, 10*time.Second)
//
//	it := b.Iter()
//	for {
//		err := doSomething()
//		if err == nil {
//			break
//		}
//		step, ok := it.Next()
//		if !ok || step.Stop {
//			return err
//		}
//		time.Sleep(step.Delay)
//	}
//
// Range-over-func usage:
//
//	for step := range backoff.Default(3).All() {
//		if err := doSomething(); err == nil || step.Stop {
//			break
//		}
//		time.Sleep(step.Delay)
//	}
//
// Configuration from settings:
//
//	cfg, err := backoff.Decode(map[string]any{
//		"retries": 5,
//		"min":     "250ms",
//		"max":     "unbounded",
//		"jitter":  0.2,
//	})
//	if err != nil {
//		return err
//	}
//	b, err := cfg.Build()
//
// Error handling:
//
// SetJitter and WithJitter panic with an error wrapping ErrInvalidJitter when the
// fraction is outside [0, 1]. Config.Validate and Config.Build report the same
// condition as a returned error, since decoded settings are external input.
// Iterators never fail.
//
// Thread safety:
//
// A Backoff is not synchronized; do not mutate it while other goroutines create
// iterators from it. An Iterator must be used by a single goroutine.
package backoff
