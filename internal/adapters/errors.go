package adapters

import (
	"errors"
	"fmt"
)

// ErrNoExpiry is returned by Refresh for platforms whose credentials are
// static and never expire.
var ErrNoExpiry = errors.New("credential does not expire")

// PreconditionError means a post-type/media requirement was unmet and no
// platform call was made.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s", e.Reason)
}

func NewPreconditionError(format string, args ...any) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

// ProviderError means the platform rejected or errored on a publish call.
type ProviderError struct {
	Platform string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Platform, e.Message)
}

func NewProviderError(platform, format string, args ...any) error {
	return &ProviderError{Platform: platform, Message: fmt.Sprintf(format, args...)}
}

// RefreshError means a credential refresh call failed; the stored
// credential is left unchanged.
type RefreshError struct {
	Platform string
	Message  string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s refresh: %s", e.Platform, e.Message)
}

func NewRefreshError(platform, format string, args ...any) error {
	return &RefreshError{Platform: platform, Message: fmt.Sprintf(format, args...)}
}
