//go:build dev || debug

package logger

import "github.com/rs/zerolog"

// defaultLevel is Debug for dev/debug builds, selected via build tag.
var defaultLevel = zerolog.DebugLevel
