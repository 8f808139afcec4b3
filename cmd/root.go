package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-tonal/config"
	"github.com/RyanBlaney/sonido-tonal/logging"
)

var (
	configFile   string
	logLevel     string
	outputFormat string

	v   *viper.Viper
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sonido",
	Short: "Real-time tonal analysis",
	Long: `Sonido listens to an audio source and continuously reports the note
being played, the chroma profile, the most likely key and the scales
that fit the notes heard so far.

Sources:
- a WAV file played back in real time
- a live capture device
- a built-in synthesizer for testing`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/sonido/sonido.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json",
		"output format (json, yaml)")
}

// initializeConfig builds the layered configuration after flags are parsed
// and installs the global logger
func initializeConfig(cmd *cobra.Command) error {
	var err error
	v, err = config.NewViper(configFile)
	if err != nil {
		return err
	}
	if err := bindFlags(cmd, v); err != nil {
		return err
	}

	cfg, err = config.Load(v)
	if err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewDefaultLoggerWithWriters(os.Stderr, os.Stderr)
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	if used := v.ConfigFileUsed(); used != "" {
		logging.Debug("using config file", logging.Fields{"path": used})
	}
	return nil
}

// flagKeys maps flags onto nested configuration keys where the names differ
var flagKeys = map[string]string{
	"log-level":     "log_level",
	"output":        "output_format",
	"interval":      "analysis.tick_interval",
	"sample-rate":   "analysis.sample_rate",
	"device":        "source.device",
	"loop":          "source.loop",
	"listen":        "server.listen_addr",
	"path":          "server.path",
	"statsd":        "metrics.statsd_addr",
	"max-scales":    "scale.max_candidates",
	"min-frequency": "pitch.min_frequency",
	"max-frequency": "pitch.max_frequency",
}

// bindFlags binds each cobra flag to its associated viper key. Flags only
// override the file and environment when set explicitly.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}

		if f.Changed {
			v.Set(key, f.Value.String())
		} else if v.IsSet(key) {
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(key))); err != nil {
				lastErr = err
			}
		}

		envVar := config.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if val, ok := os.LookupEnv(envVar); ok && !f.Changed {
			v.Set(key, val)
		}
	})

	return lastErr
}
