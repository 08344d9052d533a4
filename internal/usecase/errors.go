package usecase

import crerr "github.com/cockroachdb/errors"

var (
	// ErrAllSourcesFailed marks a fetch cycle in which neither provider
	// produced usable data.
	ErrAllSourcesFailed = crerr.New("all score sources failed")

	// ErrFetchFailed marks a single provider fetch that failed after retries.
	ErrFetchFailed = crerr.New("score fetch failed")

	// ErrDependencyUnavailable marks calls refused before reaching the
	// provider, such as an open circuit breaker.
	ErrDependencyUnavailable = crerr.New("dependency unavailable")

	// ErrBenignUpstream marks provider errors that indicate a known harmless
	// condition and must not count toward escalation.
	ErrBenignUpstream = crerr.New("benign upstream condition")
)
