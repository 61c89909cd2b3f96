// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Env is the per-invocation build context. It is created by the caller that
// starts a build and handed to every component explicitly; nothing in this
// package keeps logging state in globals.
type Env struct {
	logger *log.Logger
}

// NewEnv creates an Env that logs to w at the given level.
func NewEnv(w io.Writer, level log.Level) *Env {
	if w == nil {
		w = os.Stderr
	}
	return &Env{
		logger: log.NewWithOptions(w, log.Options{
			Prefix: "thinpack",
			Level:  level,
		}),
	}
}

// NewEnvWithLogger wraps an existing logger.
func NewEnvWithLogger(logger *log.Logger) *Env {
	return &Env{logger: logger}
}

// Logger returns the environment logger. A nil Env logs nowhere.
func (e *Env) Logger() *log.Logger {
	if e == nil || e.logger == nil {
		return log.New(io.Discard)
	}
	return e.logger
}
