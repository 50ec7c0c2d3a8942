package cmd

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/AnyUserName/jpeg2png/internal/config"
	"github.com/AnyUserName/jpeg2png/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	version    = "0.1.0"
	verbose    bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "jpeg2png",
	Short: "Lossless batch converter from JPEG to PNG",
	Long: `jpeg2png decodes JPEG files and writes each one as a PNG holding exactly
the decoded pixels. Files, directories and file:// URIs are converted
concurrently under a worker cap; every input gets its own OK or FAILED line
and one bad file never stops the rest.

Settings come from flags, JPEG2PNG_* environment variables and an optional
jpeg2png.yaml, in that order of precedence.`,
	Version:      version,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./jpeg2png.yaml or $HOME/.config/jpeg2png/jpeg2png.yaml)")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"jpeg2png %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// flagKeys maps conversion flags to their config keys.
var flagKeys = map[string]string{
	"out":       "out_dir",
	"workers":   "workers",
	"profile":   "profile",
	"overwrite": "overwrite",
	"report":    "report",
}

// addConvertFlags registers the flags shared by convert and pick.
func addConvertFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringP("out", "o", "", "output directory (default: next to each source)")
	f.IntP("workers", "w", 0, "parallel conversions (default NumCPU)")
	f.StringP("profile", "p", "", "PNG compression profile (best, default, fast, none)")
	f.Bool("overwrite", true, "replace existing PNG files")
	f.String("report", "", "write a JSON batch report to this path")
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

// loadSettings resolves the configuration for cmd, with its flags taking
// precedence, and builds the logger. Logs go to the command's stderr.
func loadSettings(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	v := viper.New()
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.Logging, verbose, cmd.ErrOrStderr())
	return cfg, logger, nil
}
