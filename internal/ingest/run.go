// Package ingest drives a run: it resolves the role folders, walks the inbox
// and pushes every file through fetch, stamp and load before relocating it
// to the archive or error folder.
package ingest

import (
	"bytes"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/skyloader/internal/logger"
)

// RunIDLayout formats the start time of a run into its id.
const RunIDLayout = "20060102_150405"

// RunContext is the state shared by everything that takes part in one run.
type RunContext struct {
	RunID  string
	Logger zerolog.Logger

	// LogStream holds a plain-text copy of every log line of the run until it
	// is shipped.
	LogStream *bytes.Buffer

	Now func() time.Time
}

// NewRunContext starts a run at now, logging to console and to the run's
// log stream.
func NewRunContext(now time.Time, console io.Writer, level zerolog.Level) *RunContext {
	runID := now.Format(RunIDLayout)
	stream := &bytes.Buffer{}
	return &RunContext{
		RunID:     runID,
		Logger:    logger.NewRun(console, stream, runID, level),
		LogStream: stream,
		Now:       time.Now,
	}
}
