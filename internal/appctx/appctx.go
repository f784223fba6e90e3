// Package appctx carries the process-wide collaborators a surveillance
// analytics process needs (clock, logger, working directory) as explicit
// values instead of ambient globals. Everything that needs a clock or a
// logger takes a *Context explicitly.
package appctx

import (
	"log"
	"os"
	"time"
)

// Clock is the seam for injecting fake time in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Context bundles the collaborators every component is constructed with.
type Context struct {
	Clock  Clock
	Logger *log.Logger
	WorkDir string
}

// New builds a Context with a system clock and a stderr logger tagged with
// component.
func New(component string) *Context {
	return &Context{
		Clock:  SystemClock{},
		Logger: log.New(os.Stderr, "["+component+"] ", log.LstdFlags|log.Lmicroseconds),
		WorkDir: ".",
	}
}

// With returns a copy of c tagged with a new logger prefix, for a
// sub-component (e.g. a specific camera's pipeline worker).
func (c *Context) With(component string) *Context {
	return &Context{
		Clock:   c.Clock,
		Logger:  log.New(c.Logger.Writer(), "["+component+"] ", log.LstdFlags|log.Lmicroseconds),
		WorkDir: c.WorkDir,
	}
}

// NowMs returns the current time as Unix milliseconds, the unit every
// debounce clock and track timestamp in this engine is expressed in.
func (c *Context) NowMs() int64 {
	return c.Clock.Now().UnixMilli()
}
