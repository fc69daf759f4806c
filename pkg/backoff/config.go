package backoff

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Config is the decodable form of a Backoff.
// A zero Max means the sequence has no ceiling.
type Config struct {
	Retries uint32        `mapstructure:"retries"`
	Min     time.Duration `mapstructure:"min"`
	Max     time.Duration `mapstructure:"max"`
	Jitter  float64       `mapstructure:"jitter"`
	Factor  uint32        `mapstructure:"factor"`
}

// DefaultConfig returns the configuration of Default(3)
func DefaultConfig() Config {
	return Config{
		Retries: 3,
		Min:     DefaultMin,
		Max:     DefaultMax,
		Jitter:  DefaultJitter,
		Factor:  DefaultFactor,
	}
}

// Decode decodes input (typically a map of settings) over DefaultConfig.
//
// Input is weakly typed, so "5" decodes into Retries and "250ms" into Min.
// Max additionally accepts "unbounded", "none" or "inf".
func Decode(input any) (Config, error) {
	cfg := DefaultConfig()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			unboundedHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return Config{}, err
	}

	if err := decoder.Decode(input); err != nil {
		return Config{}, fmt.Errorf("decode backoff config: %w", err)
	}

	return cfg, nil
}

// unboundedHookFunc maps the unbounded keywords onto Unbounded
func unboundedHookFunc() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != durationType {
			return data, nil
		}

		switch strings.ToLower(strings.TrimSpace(reflect.ValueOf(data).String())) {
		case "unbounded", "none", "inf":
			return Unbounded, nil
		}
		return data, nil
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if math.IsNaN(c.Jitter) || c.Jitter < 0 || c.Jitter > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidJitter, c.Jitter)
	}
	if c.Min < 0 {
		return fmt.Errorf("%w: min %v", ErrInvalidDuration, c.Min)
	}
	if c.Max < 0 {
		return fmt.Errorf("%w: max %v", ErrInvalidDuration, c.Max)
	}
	return nil
}

// Build validates the configuration and creates a Backoff from it
func (c Config) Build() (*Backoff, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return New(c.Retries, c.Min, c.Max, WithJitter(c.Jitter), WithFactor(c.Factor)), nil
}

// Config returns the current configuration of b
func (b *Backoff) Config() Config {
	return Config{
		Retries: b.retries,
		Min:     b.min,
		Max:     b.max,
		Jitter:  b.jitter,
		Factor:  b.factor,
	}
}
