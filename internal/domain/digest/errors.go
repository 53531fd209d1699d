package digest

import (
	"errors"
	"fmt"
)

// Sentinel kinds for digest errors.
var (
	// ErrAuth means there is no authenticated session to build for.
	ErrAuth = errors.New("no authenticated session")
	// ErrIdentityMismatch means the session belongs to someone other than the requested coach.
	ErrIdentityMismatch = fmt.Errorf("%w: authenticated identity does not match requested coach", ErrAuth)
	// ErrRemoteFetch matches every *RemoteFetchError via errors.Is.
	ErrRemoteFetch = errors.New("remote fetch failed")
	// ErrSubjectRequired means an empty coach or player id was passed in.
	ErrSubjectRequired = errors.New("subject id is required")
)

// RemoteFetchError reports a failure fetching the primary team or comment list.
// No partial digest is returned alongside it.
type RemoteFetchError struct {
	Source string
	Err    error
}

// Error returns the failure message including the source.
func (e *RemoteFetchError) Error() string {
	if e == nil {
		return ErrRemoteFetch.Error()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrRemoteFetch, e.Source)
	}
	return fmt.Sprintf("%s: %s: %v", ErrRemoteFetch, e.Source, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *RemoteFetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is(err, ErrRemoteFetch) match.
func (e *RemoteFetchError) Is(target error) bool {
	return target == ErrRemoteFetch
}
