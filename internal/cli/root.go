// Package cli implements the backoffctl command line
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// NewRootCommand builds the backoffctl command tree.
// Every tree owns its own viper instance.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	rootCommand := &cobra.Command{
		Use:   "backoffctl",
		Short: "Inspect exponential backoff sequences",
		Long: `backoffctl previews the retry delays produced by an exponential backoff
configuration, so jitter and bounds can be checked before they ship.

Settings come from flags, BACKOFF_* environment variables, or a config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			return readConfigFile(v)
		},
	}

	rootCommand.AddGroup(&cobra.Group{ID: "backoff", Title: "Backoff"})

	rootCommand.PersistentFlags().String("config", "", "Path to a config file (yaml, json, toml)")
	rootCommand.PersistentFlags().String("log-level", "info", "Logging level (debug, info, warn, error)")
	mustBindFlags(v, rootCommand.PersistentFlags())

	v.SetEnvPrefix("BACKOFF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCommand.AddCommand(newPreviewCommand(v))
	rootCommand.AddCommand(newVersionCommand())

	return rootCommand
}

// Execute runs the backoffctl command tree
func Execute() error {
	return NewRootCommand().Execute()
}

// mustBindFlags binds flags to v. A failure means the command tree is miswired.
func mustBindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	if err := v.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind flags: %w", err))
	}
}

func readConfigFile(v *viper.Viper) error {
	path := v.GetString("config")
	if path == "" {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}
