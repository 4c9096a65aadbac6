// Package logging provides the zap logger constructor and helpers that keep
// tenant credentials out of log output.
package logging

import "go.uber.org/zap"

// New builds the process logger. Production environments get JSON output,
// everything else gets the human-readable development config.
func New(env string) (*zap.Logger, error) {
	if env == "production" || env == "staging" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
