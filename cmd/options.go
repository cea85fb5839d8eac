// Copyright © 2024 The wat-lsp authors

package cmd

import (
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/EmNudge/wat-lsp-sub000/parser/watparser"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// Option configures an exported command factory (LintCommand, LSPCommand).
type Option func(*cmdConfig)

type cmdConfig struct {
	parser syntax.Parser
	logger *zap.Logger
	viper  *viper.Viper
}

// WithParser replaces the built-in WAT parser.  Embedders that link a
// tree-sitter grammar pass a tsparser.Parser here.
func WithParser(p syntax.Parser) Option {
	return func(c *cmdConfig) { c.parser = p }
}

// WithLogger sets the logger instead of building one from configuration.
func WithLogger(log *zap.Logger) Option {
	return func(c *cmdConfig) { c.logger = log }
}

// WithViper reads configuration from v instead of the global instance.
func WithViper(v *viper.Viper) Option {
	return func(c *cmdConfig) { c.viper = v }
}

func newCmdConfig(opts []Option) *cmdConfig {
	cfg := &cmdConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// config returns the configuration source.
func (c *cmdConfig) config() *viper.Viper {
	if c.viper != nil {
		return c.viper
	}
	return viper.GetViper()
}

// resolveParser returns the injected parser or the built-in one.
func (c *cmdConfig) resolveParser() syntax.Parser {
	if c.parser != nil {
		return c.parser
	}
	return watparser.New()
}

// resolveLogger returns the injected logger or one built from
// configuration.  A configuration error falls back to a no-op logger.
func (c *cmdConfig) resolveLogger() *zap.Logger {
	if c.logger != nil {
		return c.logger
	}
	log, err := newLogger(c.config())
	if err != nil {
		return zap.NewNop()
	}
	c.logger = log
	return log
}
