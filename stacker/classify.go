package stacker

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/inigolabs/ghstack/git"
	"github.com/inigolabs/ghstack/github"
)

// Action is what a submit has to do for one stack entry.
type Action int

const (
	// ActionSkip leaves the entry untouched: same tree, same base.
	ActionSkip Action = iota

	// ActionCreate opens a new pull request and its tracking triple.
	ActionCreate

	// ActionUpdateHead appends a head commit carrying the new tree.
	ActionUpdateHead

	// ActionUpdateBase appends a base commit tracking the moved parent,
	// then a head commit stitched onto it.
	ActionUpdateBase

	// ActionUpdateBoth does both for a commit whose tree and parent moved.
	ActionUpdateBoth
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCreate:
		return "create"
	case ActionUpdateHead:
		return "update-head"
	case ActionUpdateBase:
		return "update-base"
	case ActionUpdateBoth:
		return "update-both"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// entry pairs a local commit with its remote state and carries the
// synthesis results through the pipeline.
type entry struct {
	commit LocalCommit
	pr     *github.PullRequest
	index  int
	action Action

	// Remote tracking tips, set when pr is non-nil.
	remoteBase string
	remoteHead string
	remoteOrig string

	// Synthesized commits, "" when the ref doesn't change.
	newBase string
	newHead string
	newOrig string
}

// effectiveHead is the head tip after this submit.
func (e *entry) effectiveHead() string {
	if e.newHead != "" {
		return e.newHead
	}
	return e.remoteHead
}

// effectiveOrig is the source-of-truth commit after this submit.
func (e *entry) effectiveOrig() string {
	if e.newOrig != "" {
		return e.newOrig
	}
	return e.commit.Hash
}

// classifyStack pairs every local commit with its remote pull request,
// verifies the source ids still agree, and decides the per-entry action.
// No refs are mutated here; an out-of-date stack fails before anything
// moves.
func classifyStack(
	gitcmd git.GitOps,
	remoteName string,
	username string,
	upstreamTip string,
	commits []LocalCommit,
	prs map[int]*github.PullRequest,
	noSkip bool,
) ([]*entry, error) {
	upstream, err := gitcmd.ReadCommit(upstreamTip)
	if err != nil {
		return nil, err
	}

	entries := make([]*entry, 0, len(commits))
	wantBaseTree := upstream.Tree
	for _, commit := range commits {
		e := &entry{commit: commit}

		if !commit.Submitted() {
			e.action = ActionCreate
			entries = append(entries, e)
			wantBaseTree = commit.Tree
			continue
		}

		pr, ok := prs[commit.PRNumber]
		if !ok {
			return nil, fmt.Errorf("commit %.8s references pull request #%d which does not exist on the remote: %w",
				commit.Hash, commit.PRNumber, ErrInternal)
		}
		e.pr = pr

		_, index, _, ok := git.ParseTrackingRef(pr.HeadRef)
		if !ok {
			return nil, fmt.Errorf("pull request #%d head branch %q is not a tracking branch: %w",
				pr.Number, pr.HeadRef, ErrInternal)
		}
		e.index = index

		e.remoteBase, err = trackingTip(gitcmd, remoteName, username, index, "base")
		if err != nil {
			return nil, err
		}
		e.remoteHead, err = trackingTip(gitcmd, remoteName, username, index, "head")
		if err != nil {
			return nil, err
		}
		e.remoteOrig, err = trackingTip(gitcmd, remoteName, username, index, "orig")
		if err != nil {
			return nil, err
		}

		orig, err := gitcmd.ReadCommit(e.remoteOrig)
		if err != nil {
			return nil, err
		}
		if remoteSourceID := git.SourceID(orig.Body); remoteSourceID != commit.SourceID {
			return nil, &OutOfDateError{
				PRNumber:       pr.Number,
				LocalSourceID:  commit.SourceID,
				RemoteSourceID: remoteSourceID,
			}
		}

		base, err := gitcmd.ReadCommit(e.remoteBase)
		if err != nil {
			return nil, err
		}

		treeChanged := commit.Tree != orig.Tree
		baseChanged := wantBaseTree != base.Tree
		switch {
		case treeChanged && baseChanged:
			e.action = ActionUpdateBoth
		case treeChanged:
			e.action = ActionUpdateHead
		case baseChanged:
			e.action = ActionUpdateBase
		case noSkip:
			e.action = ActionUpdateHead
		default:
			e.action = ActionSkip
		}

		log.Debug().
			Str("commit", commit.Hash).
			Int("pr", pr.Number).
			Stringer("action", e.action).
			Bool("treeChanged", treeChanged).
			Bool("baseChanged", baseChanged).
			Msg("classify")

		entries = append(entries, e)
		wantBaseTree = commit.Tree
	}
	return entries, nil
}

func trackingTip(gitcmd git.GitOps, remoteName, username string, index int, kind string) (string, error) {
	name := "refs/remotes/" + remoteName + "/" + git.TrackingRef(username, index, kind)
	hash, ok, err := gitcmd.Reference(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("tracking ref %s is missing on the remote: %w", name, ErrInternal)
	}
	return hash, nil
}
