// Package logging builds the zap logger used by the CLI. Library packages
// take a *zap.Logger option and default to a no-op logger.
package logging
