package solver

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

func emptyProblem() error {
	return appErrors.Clone(appErrors.ErrEmptyProblem, "")
}

func cancelled(cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	return appErrors.Wrap(cause, appErrors.ErrSolveCancelled.Code, appErrors.ErrSolveCancelled.Status, appErrors.ErrSolveCancelled.Message)
}

func noOutput(cause error, message string) error {
	if message == "" {
		message = appErrors.ErrEngineNoOutput.Message
	}
	return appErrors.Wrap(cause, appErrors.ErrEngineNoOutput.Code, appErrors.ErrEngineNoOutput.Status, message)
}

func rejected(message string) error {
	return appErrors.Clone(appErrors.ErrEngineRejected, message)
}

func incomplete(message string) error {
	return appErrors.Clone(appErrors.ErrEngineIncomplete, message)
}

func launchFailed(cause error) error {
	return appErrors.Wrap(cause, appErrors.ErrEngineLaunch.Code, appErrors.ErrEngineLaunch.Status, appErrors.ErrEngineLaunch.Message)
}

func exitFailed(cause error) error {
	message := appErrors.ErrEngineExit.Message
	if code, ok := ExitCode(cause); ok {
		message = fmt.Sprintf("timetable engine exited with code %d", code)
	}
	return appErrors.Wrap(cause, appErrors.ErrEngineExit.Code, appErrors.ErrEngineExit.Status, message)
}

// ExitCode extracts the engine exit status from an error chain.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}

// IsCancelled reports whether err marks a cancelled run rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, appErrors.ErrSolveCancelled)
}
