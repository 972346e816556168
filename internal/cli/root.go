package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yairfalse/sampo/internal/ingest"
	"github.com/yairfalse/sampo/internal/rules"
	"github.com/yairfalse/sampo/pkg/config"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "sampo",
	Short: "Supply chain risk flagging and metrics",
	Long: `Sampo grinds tabular supply-chain data into risk flags and metrics.

Named after the mill of plenty from the Kalevala, Sampo reads a delimited
data file, evaluates configured threshold rules over every record, and
produces a deterministic report: summary metrics, every raised risk flag,
grouped aggregates, and recommendations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and renders any error with its fix
// suggestions.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sampo.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sampo")
	}

	viper.SetEnvPrefix("SAMPO")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig builds the effective application configuration.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}
	return loader.Load()
}

// newLogger builds the CLI logger. Logs go to stderr so stdout stays
// reserved for report output.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if verbose || viper.GetBool("verbose") {
		return zap.NewDevelopment()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.LogFormat == "console" {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return zcfg.Build()
}

// printError renders err on stderr, surfacing any fix suggestions carried
// by typed configuration and data errors.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)

	var suggestions []string
	var cerrs *rules.ConfigErrors
	var derr *ingest.DataError
	var verrs config.ValidationErrors
	switch {
	case errors.As(err, &cerrs):
		suggestions = cerrs.Suggestions()
	case errors.As(err, &derr):
		if derr.Suggestion != "" {
			suggestions = []string{derr.Suggestion}
		}
	case errors.As(err, &verrs):
		suggestions = verrs.FixSuggestions()
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n%s\n", color.YellowString("Suggestions:"))
		for _, s := range suggestions {
			fmt.Fprintf(os.Stderr, "  - %s\n", s)
		}
	}
}
