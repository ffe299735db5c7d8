package history

import (
	"errors"
	"fmt"

	"github.com/google/MOE-sub001/internal/ir"
)

// ErrMultipleHeads is returned by a Linear crawl without a start revision
// when the repository has more than one head.
var ErrMultipleHeads = errors.New("linear history search over multiple heads")

// ErrNoBranchPoint is returned by ExactMatcher when the crawl never reached
// the branch point.
var ErrNoBranchPoint = errors.New("no matching revisions in history")

// CrawlLimitError is returned when a crawl visits more revisions than its
// limit allows without exhausting the worklist. It usually means the matcher
// can never match in this repository.
type CrawlLimitError struct {
	Matcher    string        // The matcher that never stopped the crawl
	Repository string        // The repository being crawled
	Start      []ir.Revision // The revisions the crawl started from
	Limit      int           // Maximum number of visited revisions
}

// Error implements the error interface.
func (e *CrawlLimitError) Error() string {
	return fmt.Sprintf("couldn't find a matching revision for matcher (%s) in repository %s from %v within %d revisions",
		e.Matcher, e.Repository, e.Start, e.Limit)
}

// IsCrawlLimitError returns true if err is or wraps a *CrawlLimitError.
func IsCrawlLimitError(err error) bool {
	var ce *CrawlLimitError
	return errors.As(err, &ce)
}
