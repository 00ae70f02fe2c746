package logger

import "github.com/rs/zerolog"

// NewNop returns a Logger that discards everything. Intended for tests.
func NewNop() Logger {
	zlog := zerolog.Nop()
	return &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}
}
