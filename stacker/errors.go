package stacker

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyStack means there are no commits between the default
	// branch and HEAD.
	ErrEmptyStack = errors.New("no commits to submit, stack is empty")

	// ErrNotOnBranch means HEAD is sitting on a gh/<user>/<i>/* tracking
	// branch; submitting from there would stack the stack onto itself.
	ErrNotOnBranch = errors.New("HEAD is on a ghstack tracking branch, check out your working branch first")

	// ErrInternal marks invariant violations; seeing it is a bug.
	ErrInternal = errors.New("internal error")
)

// NonLinearStackError is returned when the commit range contains a merge.
type NonLinearStackError struct {
	Hash string
}

func (e *NonLinearStackError) Error() string {
	return fmt.Sprintf("stack is not linear: %.8s is a merge commit, flatten your branch and rerun", e.Hash)
}

// OutOfDateError means a tracking branch on the remote carries a source id
// the local commit doesn't know about: someone else submitted an update.
type OutOfDateError struct {
	PRNumber       int
	LocalSourceID  string
	RemoteSourceID string
}

func (e *OutOfDateError) Error() string {
	return fmt.Sprintf("pull request #%d has remote updates (source id %.8s, local %.8s), pull the latest changes and rerun",
		e.PRNumber, e.RemoteSourceID, e.LocalSourceID)
}

// PushRejectedError means the push of the tracking refs (or, when
// landing, of the default branch) failed; no branch was changed on the
// remote.
type PushRejectedError struct {
	Err error
}

func (e *PushRejectedError) Error() string {
	return fmt.Sprintf("atomic push of tracking branches rejected, someone may have pushed concurrently, rerun after fetching: %s", e.Err)
}

func (e *PushRejectedError) Unwrap() error { return e.Err }

// LandConflictError means a commit could not be replayed onto the current
// default branch tip.
type LandConflictError struct {
	Hash string
}

func (e *LandConflictError) Error() string {
	return fmt.Sprintf("landing %.8s conflicts with the target branch, rebase your stack and resubmit before landing", e.Hash)
}
