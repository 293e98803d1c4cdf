package stacker

import (
	"fmt"

	"github.com/inigolabs/ghstack/git"
)

// LocalCommit is one commit of the local stack, with the tracking
// trailers parsed out of its message body.
type LocalCommit struct {
	git.Commit

	// SourceID is the stable identifier tying the commit to its pull
	// request, "" when the commit has never been submitted.
	SourceID string

	// PRURL and PRNumber come from the Pull Request resolved trailer.
	PRURL    string
	PRNumber int
}

// Submitted reports whether the commit already has a pull request.
func (c *LocalCommit) Submitted() bool {
	return c.PRNumber != 0
}

// parseStack walks merge-base(upstream, HEAD)..HEAD and returns the local
// commits oldest first.
func parseStack(gitcmd git.GitOps, upstream string) ([]LocalCommit, error) {
	branch, err := gitcmd.GetLocalBranchShortName()
	if err != nil {
		return nil, fmt.Errorf("getting current branch %w", err)
	}
	if _, _, _, ok := git.ParseTrackingRef(branch); ok {
		return nil, ErrNotOnBranch
	}

	head, ok, err := gitcmd.Reference("HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("resolving HEAD: no such ref")
	}

	base, err := gitcmd.MergeBase(upstream, head)
	if err != nil {
		return nil, fmt.Errorf("finding merge base with %s %w", upstream, err)
	}

	hashes, err := gitcmd.RevList(base + ".." + head)
	if err != nil {
		return nil, err
	}
	if len(hashes) == 0 {
		return nil, ErrEmptyStack
	}

	commits := make([]LocalCommit, 0, len(hashes))
	for _, hash := range hashes {
		commit, err := gitcmd.ReadCommit(hash)
		if err != nil {
			return nil, err
		}
		if len(commit.Parents) > 1 {
			return nil, &NonLinearStackError{Hash: hash}
		}

		lc := LocalCommit{Commit: *commit}
		lc.SourceID = git.SourceID(commit.Body)
		url, number, hasPR := git.PullRequestURL(commit.Body)
		if hasPR {
			lc.PRURL = url
			lc.PRNumber = number
		}
		if (lc.SourceID == "") != !hasPR {
			return nil, fmt.Errorf("commit %.8s carries a malformed trailer pair (%s without %s), run unlink and resubmit",
				hash, presentTrailer(lc), missingTrailer(lc))
		}
		if lc.SourceID != "" && len(lc.SourceID) != 40 {
			return nil, fmt.Errorf("commit %.8s carries a malformed %s trailer %q", hash, git.SourceIDTrailer, lc.SourceID)
		}
		commits = append(commits, lc)
	}
	return commits, nil
}

func presentTrailer(c LocalCommit) string {
	if c.SourceID != "" {
		return git.SourceIDTrailer
	}
	return git.PullRequestTrailer
}

func missingTrailer(c LocalCommit) string {
	if c.SourceID == "" {
		return git.SourceIDTrailer
	}
	return git.PullRequestTrailer
}
