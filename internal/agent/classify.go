package agent

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/calegria/deskagent/internal/message"
)

// ClassifyText maps a runtime-reported error string onto the error taxonomy.
// Classification happens inside the streaming loop, as close to the origin
// as possible, so the terminal error chunk and any recovery behavior (e.g.
// the re-auth flow) are driven by category rather than string matching at
// every call site.
func ClassifyText(s string) message.ErrorCategory {
	l := strings.ToLower(s)

	switch {
	case strings.Contains(l, "authentication_error"),
		strings.Contains(l, "oauth"),
		strings.Contains(l, "please run /login"),
		strings.Contains(l, "not logged in"):
		return message.ErrAuthFailed

	case strings.Contains(l, "invalid x-api-key"),
		strings.Contains(l, "invalid api key"),
		strings.Contains(l, "invalid_api_key"):
		return message.ErrInvalidAPIKey

	case strings.Contains(l, "rate_limit"),
		strings.Contains(l, "rate limit"),
		strings.Contains(l, "429"):
		return message.ErrRateLimited

	case strings.Contains(l, "overloaded"),
		strings.Contains(l, "529"):
		return message.ErrOverloaded

	case strings.Contains(l, "timed out"),
		strings.Contains(l, "timeout"),
		strings.Contains(l, "deadline exceeded"):
		return message.ErrTimeout

	case strings.Contains(l, "connection refused"),
		strings.Contains(l, "no such host"),
		strings.Contains(l, "network is unreachable"),
		strings.Contains(l, "econnreset"):
		return message.ErrNetwork

	case strings.Contains(l, "executable file not found"),
		strings.Contains(l, "no such file or directory"):
		return message.ErrExecMissing

	case strings.Contains(l, "exit status"),
		strings.Contains(l, "signal:"):
		return message.ErrProcessCrash
	}

	return message.ErrSDKUnknown
}

// ClassifyErr maps a Go error from the runtime boundary onto the taxonomy.
func ClassifyErr(err error) message.ErrorCategory {
	if err == nil {
		return message.ErrSDKUnknown
	}

	if errors.Is(err, exec.ErrNotFound) {
		return message.ErrExecMissing
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return message.ErrTimeout
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return message.ErrProcessCrash
	}

	return ClassifyText(err.Error())
}
