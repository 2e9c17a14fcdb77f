package cli

import (
	"errors"
	"strings"

	"github.com/dvloznov/skyloader/internal/config"
)

// Exit codes of the skyloader binary.
const (
	ExitSuccess   = 0
	ExitRunFailed = 1
	ExitUsage     = 2
	ExitPanic     = 3
)

// cobra reports argument and flag problems as plain errors.
var usagePatterns = []string{
	"unknown command",
	"unknown flag",
	"unknown shorthand flag",
	"flag needs an argument",
	"invalid argument",
	"accepts 0 arg(s)",
}

// ExitCodeForError maps the error returned by Execute to a process exit code.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, config.ErrConfigNotFound), errors.Is(err, config.ErrInvalidConfig):
		return ExitUsage
	}

	msg := err.Error()
	for _, p := range usagePatterns {
		if strings.Contains(msg, p) {
			return ExitUsage
		}
	}
	return ExitRunFailed
}
