// Package cli implements logq, a command line front end to the log parser and
// query engine that works on local files.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/log-viewer/backend/internal/logging"
	"github.com/log-viewer/backend/internal/models"
)

// configKeyAnnotation marks a flag whose value can also come from the config
// file or a LOGQ_* variable. The annotation value is the viper key.
const configKeyAnnotation = "logq_config_key"

var logger = logging.New("logq")

// settings are the resolved defaults shared by all commands.
type settings struct {
	Output      string        `mapstructure:"output"`
	Verbosity   string        `mapstructure:"verbosity"`
	Limit       int           `mapstructure:"limit"`
	LatestLimit int           `mapstructure:"latest-limit"`
	Context     int           `mapstructure:"context"`
	Debounce    time.Duration `mapstructure:"debounce"`
	LogLevel    string        `mapstructure:"log-level"`
}

type app struct {
	v        *viper.Viper
	cfgFile  string
	settings settings
}

// NewRootCommand builds the logq command tree. Every call gets its own
// configuration state.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "logq",
		Short: "logq - query bracketed application logs",
		Long: `logq parses logs written as "[YYYY-MM-DD, HH:MM:SS] [LEVEL] message - {json}"
and lets you summarize, search and follow them from the terminal.

Defaults are read from $HOME/.logq.yaml and LOGQ_* environment variables,
e.g. LOGQ_OUTPUT=json or LOGQ_LATEST_LIMIT=50.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: $HOME/.logq.yaml)")
	flags.StringP("output", "o", formatTable, "output format: table, text, json")
	flags.String("verbosity", string(models.VerbosityStandard), "entry detail: compact, standard, full")
	flags.String("log-level", "warn", "diagnostic log level: debug, info, warn, error, off")
	configFlag(flags, "output", "output")
	configFlag(flags, "verbosity", "verbosity")
	configFlag(flags, "log-level", "log-level")

	root.AddCommand(newParseCommand(a))
	root.AddCommand(newQueryCommand(a))
	root.AddCommand(newLatestCommand(a))
	root.AddCommand(newWatchCommand(a))
	return root
}

// Execute runs the logq command tree
func Execute() error {
	return NewRootCommand().Execute()
}

// configFlag ties flag name to the viper key.
func configFlag(fs *pflag.FlagSet, name, key string) {
	cobra.CheckErr(fs.SetAnnotation(name, configKeyAnnotation, []string{key}))
}

// loadConfig binds the running command's flags and resolves settings from
// flags, environment, config file and flag defaults, in that order.
func (a *app) loadConfig(cmd *cobra.Command) error {
	v := a.v
	v.SetEnvPrefix("LOGQ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := f.Annotations[configKeyAnnotation]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key[0], f)
		}
	})
	if bindErr != nil {
		return bindErr
	}

	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigFile(filepath.Join(home, ".logq.yaml"))
	}

	// Only the default config file is optional.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if a.cfgFile != "" || !missing {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(&a.settings); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	logging.SetOutput(cmd.ErrOrStderr())
	logging.SetLevel(a.settings.LogLevel)

	switch a.settings.Output {
	case formatTable, formatText, formatJSON:
	default:
		return fmt.Errorf("unknown output format %q (want table, text or json)", a.settings.Output)
	}
	if _, ok := models.ParseVerbosity(a.settings.Verbosity); !ok {
		return fmt.Errorf("unknown verbosity %q (want compact, standard or full)", a.settings.Verbosity)
	}

	logger.Debugf("config file: %s", v.ConfigFileUsed())
	return nil
}
