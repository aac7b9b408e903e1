// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import "github.com/rs/zerolog"

// defaultLogger is the logger a Forest uses when none is supplied through
// the Logger config option. debug.go/debug_release.go set its level and
// writer depending on the debug build tag, the zerolog equivalent of
// rudd's _LOGLEVEL.
var defaultLogger zerolog.Logger

// Logger overrides the Forest's logger; the default writes to stderr at
// Warn level (Debug level under the `debug` build tag).
func Logger(log zerolog.Logger) func(*configs) {
	return func(c *configs) {
		c.logger = &log
	}
}
