package metrics

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
)

const maxLabelLen = 120

// Label returns a stable, human-readable grouping key for a trial error.
// Failures are grouped by this label in the report, so transport noise
// (full URLs, ephemeral ports) is stripped where possible.
func Label(err error) string {
	if err == nil {
		return ""
	}

	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.As(err, &ne) && ne.Timeout():
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "connection reset by peer"
	}

	// url.Error wraps the method and full URL around the real failure.
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return truncateLabel(ue.Err.Error())
	}

	return truncateLabel(err.Error())
}

func truncateLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown error"
	}
	if len(s) > maxLabelLen {
		return s[:maxLabelLen] + "..."
	}
	return s
}
