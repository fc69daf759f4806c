package backoff

import (
	"math"
	"math/bits"
	"math/rand/v2"
	"time"
)

// Step is one value of a backoff sequence
type Step struct {
	// Delay is how long to wait before the next attempt. Zero when Stop is set.
	Delay time.Duration

	// Stop reports that the budget is spent: do not sleep, give up.
	Stop bool
}

// Iterator produces the delays of one retry loop.
//
// An Iterator owns a copy of its configuration, its attempt counter and its
// random source. It is not safe for concurrent use and cannot be rewound;
// create a new one from the Backoff for every retry loop.
type Iterator struct {
	cfg     Backoff
	rng     *rand.Rand
	attempt uint32
}

// Next returns the next step of the sequence. ok is false once the terminal
// Stop step has been returned, and stays false on every later call.
func (it *Iterator) Next() (step Step, ok bool) {
	last := max(it.cfg.retries, 1)
	if it.attempt >= last {
		return Step{}, false
	}

	if it.attempt < math.MaxUint32 {
		it.attempt++
	}

	// no sleep after the final attempt
	if it.attempt >= last {
		return Step{Stop: true}, true
	}

	return Step{Delay: it.delay()}, true
}

// Attempt returns the number of steps produced so far
func (it *Iterator) Attempt() uint32 {
	return it.attempt
}

// Done reports whether the terminal Stop step has been produced
func (it *Iterator) Done() bool {
	return it.attempt >= max(it.cfg.retries, 1)
}

// delay computes the jittered, clamped delay for the current attempt
func (it *Iterator) delay() time.Duration {
	base := uint64(max(it.cfg.min, 0))

	// min * factor^(attempt-1), saturating at Unbounded
	raw := mulSat(base, powSat(uint64(it.cfg.factor), it.attempt-1))

	// draw r in [0, 2*units); a zero jitter leaves raw untouched
	units := it.cfg.jitterUnits
	var r uint64
	if units > 0 {
		r = it.rng.Uint64N(2 * units)
	}

	var d uint64
	if r < units {
		d = raw - mulDiv(raw, r, jitterScale)
	} else {
		d = addSat(raw, mulDiv(raw, r, 2*jitterScale))
	}

	return max(min(time.Duration(d), it.cfg.max), it.cfg.min)
}

const durationCap = uint64(math.MaxInt64)

// addSat returns a+b capped at Unbounded
func addSat(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 || sum > durationCap {
		return durationCap
	}
	return sum
}

// mulSat returns a*b capped at Unbounded
func mulSat(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 || lo > durationCap {
		return durationCap
	}
	return lo
}

// powSat returns base^exp capped at Unbounded
func powSat(base uint64, exp uint32) uint64 {
	result := uint64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result = mulSat(result, base)
		}
		exp >>= 1
		if exp > 0 {
			base = mulSat(base, base)
		}
	}
	return result
}

// mulDiv returns a*b/d using a 128-bit intermediate, capped at Unbounded
func mulDiv(a, b, d uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return durationCap
	}
	q, _ := bits.Div64(hi, lo, d)
	return min(q, durationCap)
}
