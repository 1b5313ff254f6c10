package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-jmte/pkg/jmte"
	"github.com/benjaminschreck/go-jmte/pkg/jmte/renderers"
)

const version = "0.1.0"

type rootOptions struct {
	configFile string
	verbose    bool
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "jmte",
		Short:         "Expand ${...} text templates with data from JSON, YAML, HCL, Starlark or msgpack files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to a YAML engine configuration file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (text or json)")

	rootCmd.AddCommand(newRenderCmd(opts))
	rootCmd.AddCommand(newVarsCmd(opts))
	rootCmd.AddCommand(newRenderersCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// newEngine builds an engine from the global configuration, the optional
// config file and the logging flags.
func (o *rootOptions) newEngine() (*jmte.Engine, error) {
	config := jmte.GetGlobalConfig()
	if o.configFile != "" {
		loaded, err := jmte.LoadConfigFile(o.configFile)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if o.verbose {
		config.LogLevel = "debug"
	}
	if o.logFormat != "" {
		config.LogFormat = o.logFormat
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	level := jmte.ParseLogLevel(config.LogLevel)
	jmte.SetLogger(jmte.NewLoggerWithFormat(os.Stderr, level, config.LogFormat))

	engine := jmte.NewWithConfig(config)
	if err := renderers.Register(engine); err != nil {
		return nil, err
	}
	return engine, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "jmte version %s\n", version)
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
