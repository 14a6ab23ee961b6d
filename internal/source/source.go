// Package source defines the mailbox contract used by the run orchestrator
// and the errors a mail source reports.
package source

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// AuthError indicates that the mail server rejected the credentials.
// It is fatal to a run.
type AuthError struct {
	Server  string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Server, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// SearchError reports a single search criterion that failed. The run
// continues with the remaining criteria.
type SearchError struct {
	Criterion Criterion
	Err       error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search error (%s): %v", e.Criterion, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// FetchError reports a single message that could not be retrieved. The
// message is skipped.
type FetchError struct {
	UID uint32
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch error (uid %d): %v", e.UID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err (or any error in its chain) is a FetchError.
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// Criterion is one independent mailbox query. Empty fields are ignored;
// set fields are AND-combined. Criteria are OR-combined by querying each
// one separately.
type Criterion struct {
	From    string
	Subject string
	Body    string
}

// String renders the criterion in IMAP SEARCH notation for logs.
func (c Criterion) String() string {
	var parts []string
	if c.From != "" {
		parts = append(parts, fmt.Sprintf("FROM %q", c.From))
	}
	if c.Subject != "" {
		parts = append(parts, fmt.Sprintf("SUBJECT %q", c.Subject))
	}
	if c.Body != "" {
		parts = append(parts, fmt.Sprintf("BODY %q", c.Body))
	}
	if len(parts) == 0 {
		return "ALL"
	}
	return strings.Join(parts, " ")
}

// Credentials hold the mailbox login. The password is never logged.
type Credentials struct {
	Address  string
	Password string
}

// Present reports whether both the address and the password are set.
func (c Credentials) Present() bool {
	return c.Address != "" && c.Password != ""
}

// Mailbox is an authenticated session on a selected folder.
type Mailbox interface {
	// Search runs every criterion restricted to messages since the given
	// date and returns the union of matching UIDs, deduplicated and sorted.
	// Criteria that fail are reported through the returned SearchErrors;
	// the UIDs from the others are still returned.
	Search(ctx context.Context, criteria []Criterion, since time.Time) ([]uint32, []error)

	// Fetch returns the raw RFC 822 bytes of the message with uid, or a
	// *FetchError.
	Fetch(ctx context.Context, uid uint32) ([]byte, error)

	// Close logs out and releases the connection.
	Close() error
}

// Connector opens mailbox sessions.
type Connector interface {
	// Connect logs in and selects the configured folder. Rejected
	// credentials are reported as *AuthError.
	Connect(ctx context.Context, creds Credentials) (Mailbox, error)
}

// MergeUIDs returns the sorted union of the given UID sets.
func MergeUIDs(sets ...[]uint32) []uint32 {
	seen := make(map[uint32]struct{})
	var out []uint32
	for _, set := range sets {
		for _, uid := range set {
			if _, ok := seen[uid]; ok {
				continue
			}
			seen[uid] = struct{}{}
			out = append(out, uid)
		}
	}
	slices.Sort(out)
	return out
}
