package twitchapi

import (
	"errors"
	"net"
	"strings"
)

// FetchErrorClass describes whether a comment-feed or Helix fetch failure
// should be retried.
type FetchErrorClass int

const (
	// FetchRetryable indicates a transient failure worth retrying.
	FetchRetryable FetchErrorClass = iota
	// FetchFatal indicates a failure that will not resolve itself on retry.
	FetchFatal
)

func (c FetchErrorClass) String() string {
	if c == FetchFatal {
		return "fatal"
	}
	return "retryable"
}

// ClassifyFetchError decides whether err warrants another attempt.
//
// Fatal: malformed video ids, 4xx responses other than 429, and feed-level
// "VOD does not exist"/"tracking paused" errors. Any other non-2xx HTTP
// status not explicitly listed as retryable is fatal.
// Retryable: network errors, context deadline exceeded from the transport
// layer (not the caller's own ctx.Err(), which callers check separately),
// and 429/502/503.
func ClassifyFetchError(err error) FetchErrorClass {
	if err == nil {
		return FetchFatal
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return FetchRetryable
	}

	lower := strings.ToLower(err.Error())

	fatalPatterns := []string{
		// fetchOnce's message for a non-2xx status other than 429/502/503;
		// matched first so a reason phrase such as "Gateway Timeout" or a
		// body excerpt cannot make it look transient.
		"comment feed returned status",
		"invalid video id",
		"video not found",
		"does not exist",
		"tracking paused",
		"400",
		"401",
		"403",
		"404",
	}
	for _, p := range fatalPatterns {
		if strings.Contains(lower, p) {
			return FetchFatal
		}
	}

	retryablePatterns := []string{
		"429",
		"too many requests",
		"502",
		"503",
		"timeout",
		"connection reset",
		"eof",
	}
	for _, p := range retryablePatterns {
		if strings.Contains(lower, p) {
			return FetchRetryable
		}
	}

	return FetchFatal
}

// IsRetryableFetchError is a convenience wrapper around ClassifyFetchError.
func IsRetryableFetchError(err error) bool {
	return ClassifyFetchError(err) == FetchRetryable
}
