package cli

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jzx17/gobackoff/pkg/backoff"
)

// configKeys are the settings decoded into a backoff.Config
var configKeys = []string{"retries", "min", "max", "jitter", "factor"}

func newPreviewCommand(v *viper.Viper) *cobra.Command {
	previewCommand := &cobra.Command{
		Use:     "preview",
		GroupID: "backoff",
		Short:   "Print the delays of one or more backoff sequences",
		Long: `Builds a backoff from the resolved settings and prints every step of the
sequence. With --runs, independent sequences are printed side by side to show
how jitter spreads clients apart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), v.GetString("log-level"))

			b, err := loadBackoff(v)
			if err != nil {
				return err
			}

			runs := v.GetInt("runs")
			if runs < 1 {
				return fmt.Errorf("runs must be at least 1, got %d", runs)
			}
			if limit := v.GetUint32("limit"); b.Retries() > limit {
				return fmt.Errorf("retries %d exceeds the preview limit %d", b.Retries(), limit)
			}

			cfg := b.Config()
			logger.Debug("Resolved backoff configuration",
				"retries", cfg.Retries,
				"min", cfg.Min,
				"max", formatDelay(cfg.Max),
				"jitter", cfg.Jitter,
				"factor", cfg.Factor,
				"runs", runs)
			warnDegenerate(logger, b)

			sequences := sampleSequences(b, runs, v.GetUint64("seed"))

			fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render("backoffctl - Preview"))
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(previewTable(sequences)))
			return nil
		},
	}

	defaults := backoff.DefaultConfig()
	flags := previewCommand.Flags()
	flags.Uint32("retries", defaults.Retries, "Attempt budget; the sequence has this many steps")
	flags.Duration("min", defaults.Min, "Minimum delay and base of the exponential")
	flags.String("max", defaults.Max.String(), `Maximum delay, or "unbounded"`)
	flags.Float64("jitter", defaults.Jitter, "Jitter fraction in [0, 1]")
	flags.Uint32("factor", defaults.Factor, "Growth factor")
	flags.Int("runs", 1, "Number of independent sequences to print")
	flags.Uint64("seed", 0, "Seed for deterministic output (0 = random)")
	flags.Uint32("limit", 100, "Refuse to preview budgets larger than this")
	mustBindFlags(v, flags)

	return previewCommand
}

// loadBackoff decodes the resolved settings into a validated backoff
func loadBackoff(v *viper.Viper) (*backoff.Backoff, error) {
	settings := make(map[string]any, len(configKeys))
	for _, key := range configKeys {
		settings[key] = v.Get(key)
	}

	cfg, err := backoff.Decode(settings)
	if err != nil {
		return nil, err
	}

	return cfg.Build()
}

// warnDegenerate logs configurations that defeat exponential growth
func warnDegenerate(logger *slog.Logger, b *backoff.Backoff) {
	if b.Min() > b.Max() {
		logger.Warn("Min exceeds max, every delay is clamped to min", "min", b.Min(), "max", b.Max())
	}
	switch b.Factor() {
	case 0:
		logger.Warn("Factor 0 collapses every delay after the first to min")
	case 1:
		logger.Warn("Factor 1 disables exponential growth")
	}
}

// sampleSequences drains one iterator per run.
// A non-zero seed makes run i use PCG(seed, i).
func sampleSequences(b *backoff.Backoff, runs int, seed uint64) [][]backoff.Step {
	sequences := make([][]backoff.Step, runs)
	for i := range sequences {
		var it *backoff.Iterator
		if seed != 0 {
			it = b.IterWithSource(rand.NewPCG(seed, uint64(i)))
		} else {
			it = b.Iter()
		}
		for {
			step, ok := it.Next()
			if !ok {
				break
			}
			sequences[i] = append(sequences[i], step)
		}
	}
	return sequences
}

// previewTable lays sequences out as columns, one row per attempt, plus a total row
func previewTable(sequences [][]backoff.Step) ([]string, [][]string) {
	headers := []string{"ATTEMPT"}
	if len(sequences) == 1 {
		headers = append(headers, "DELAY")
	} else {
		for i := range sequences {
			headers = append(headers, "RUN "+strconv.Itoa(i+1))
		}
	}

	// every sequence from one backoff has the same length
	var rows [][]string
	for attempt := range sequences[0] {
		row := []string{strconv.Itoa(attempt + 1)}
		for _, seq := range sequences {
			if seq[attempt].Stop {
				row = append(row, "stop")
				continue
			}
			row = append(row, formatDelay(seq[attempt].Delay))
		}
		rows = append(rows, row)
	}

	total := []string{"total"}
	for _, seq := range sequences {
		var sum time.Duration
		for _, step := range seq {
			if backoff.Unbounded-sum < step.Delay {
				sum = backoff.Unbounded
				break
			}
			sum += step.Delay
		}
		total = append(total, formatDelay(sum))
	}
	rows = append(rows, total)

	return headers, rows
}

func formatDelay(d time.Duration) string {
	if d == backoff.Unbounded {
		return "unbounded"
	}
	return d.String()
}
