// Copyright © 2024 The wat-lsp authors

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Configuration keys.  Each can be set in the config file or through the
// environment with a WATLSP_ prefix, e.g. WATLSP_LOG_LEVEL=debug.
const (
	keyLogLevel    = "log.level"
	keyLogFile     = "log.file"
	keyColor       = "color"
	keyLSPDebounce = "lsp.debounce"
	keyLintChecks  = "lint.checks"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wat-lsp",
	Short: "Language intelligence for WebAssembly text",
	Long: `wat-lsp answers questions about WebAssembly text (.wat) files: where a
name is defined, where it is used and what a position refers to.  It runs as
a language server for editors and as a set of command line tools.

Getting started:
  wat-lsp lsp                          Start the language server on stdio
  wat-lsp lint file.wat                Check files for likely mistakes
  wat-lsp symbols file.wat             Print the module outline
  wat-lsp def file.wat 12:9            Print the definition at a position
  wat-lsp refs file.wat 12:9           List references to a definition
  wat-lsp query file.wat               Query a file interactively

Positions on the command line are LINE:COL, both counted from 1.

Configuration is read from $HOME/.wat-lsp.yaml (or --config) and from
WATLSP_* environment variables:
  log.level      debug, info, warn or error (default info)
  log.file       write logs to this file instead of stderr
  color          auto, always or never (default auto)
  lsp.debounce   delay before diagnostics are published (default 300ms)
  lint.checks    comma-separated checks run by lint and the server`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// exitError carries a process exit code out of a command.  Commands return
// it instead of calling os.Exit so that they can be run in tests.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// usageError reports a bad invocation (exit status 2).
func usageError(err error) error {
	return &exitError{code: 2, err: err}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(os.Stderr, ee.err)
		}
		os.Exit(ee.code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(2)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wat-lsp.yaml)")
	rootCmd.PersistentFlags().String("color", "auto",
		`Control colored output: "auto", "always", or "never".`)
	rootCmd.PersistentFlags().String("log-level", "info",
		"Minimum log level: debug, info, warn or error.")
	_ = viper.BindPFlag(keyColor, rootCmd.PersistentFlags().Lookup("color"))
	_ = viper.BindPFlag(keyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))

	setConfigDefaults(viper.GetViper())
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyColor, "auto")
	v.SetDefault(keyLSPDebounce, 300*time.Millisecond)
	v.SetDefault(keyLintChecks, "")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err == nil {
			// Search config in home directory with name ".wat-lsp" (without extension).
			viper.AddConfigPath(home)
			viper.SetConfigName(".wat-lsp")
		}
	}

	viper.SetEnvPrefix("WATLSP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.  Stdout may carry the
	// language server protocol so nothing is printed here.
	_ = viper.ReadInConfig()
}

// newLogger builds the process logger from the configuration.  Logs go to
// stderr unless log.file is set; stdout is reserved for command output and
// the language server protocol.
func newLogger(v *viper.Viper) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(v.GetString(keyLogLevel))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keyLogLevel, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if file := v.GetString(keyLogFile); file != "" {
		cfg.OutputPaths = []string{file}
	}
	return cfg.Build()
}
