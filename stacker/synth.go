package stacker

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/inigolabs/ghstack/git"
	"github.com/inigolabs/ghstack/github"
)

// newSourceID mints the opaque identifier embedded in a commit on first
// submission. It stays stable across amends for the life of the PR.
func newSourceID() string {
	sum := sha1.Sum([]byte(uuid.NewString()))
	return hex.EncodeToString(sum[:])
}

// indexAllocator hands out tracking branch indices. Indices are assigned
// at creation time and never reused within a repository, so allocation
// starts past the highest index ever pushed, whatever state its PR is in.
type indexAllocator struct {
	next int
}

func newIndexAllocator(branches mapset.Set[string], username string) *indexAllocator {
	max := 0
	branches.Each(func(name string) bool {
		user, index, _, ok := git.ParseTrackingRef(name)
		if ok && user == username && index > max {
			max = index
		}
		return false
	})
	return &indexAllocator{next: max + 1}
}

func (a *indexAllocator) take() int {
	index := a.next
	a.next++
	return index
}

// synthesize builds every commit object a submit needs, bottom to top,
// without touching any ref. Each synthesized head feeds the next entry's
// base, so the order is load-bearing. Pull requests for new entries are
// opened here because the orig rewrite needs the PR URL in its trailers;
// an index lost to a concurrent run surfaces as 422 and is retried with
// the next integer.
func (s *Stacker) synthesize(ctx context.Context, entries []*entry, upstreamTip, reason string, alloc *indexAllocator) error {
	gitcmd := s.gitcmd

	prevHead := upstreamTip
	prevOrig := ""
	for i, e := range entries {
		origParent := prevOrig
		if i == 0 {
			origParent = e.commit.Parents[0]
		}

		switch e.action {
		case ActionCreate:
			prevHeadCommit, err := gitcmd.ReadCommit(prevHead)
			if err != nil {
				return err
			}
			base, err := gitcmd.CommitTree(
				prevHeadCommit.Tree,
				[]string{prevHead},
				"Update base for "+e.commit.Subject,
				nil)
			if err != nil {
				return err
			}
			head, err := gitcmd.CommitTree(
				e.commit.Tree,
				[]string{base},
				e.commit.Subject,
				nil)
			if err != nil {
				return err
			}

			pr, index, err := s.openPullRequest(ctx, e.commit, alloc)
			if err != nil {
				return err
			}
			e.pr = pr
			e.index = index
			e.newBase = base
			e.newHead = head

			e.commit.SourceID = newSourceID()
			e.commit.PRURL = pr.URL
			e.commit.PRNumber = pr.Number
			message := git.AppendTrailers(e.commit.Message(), e.commit.SourceID, pr.URL)
			e.newOrig, err = gitcmd.CommitTree(
				e.commit.Tree,
				[]string{origParent},
				message,
				&e.commit.Author)
			if err != nil {
				return err
			}

		case ActionSkip:
			if origParent != e.commit.Parents[0] {
				var err error
				e.newOrig, err = gitcmd.CommitTree(
					e.commit.Tree,
					[]string{origParent},
					e.commit.Message(),
					&e.commit.Author)
				if err != nil {
					return err
				}
			}

		case ActionUpdateHead, ActionUpdateBase, ActionUpdateBoth:
			headReason := fmt.Sprintf("%s on \"%s\"", reason, e.pr.Title)

			base := e.remoteBase
			if e.action != ActionUpdateHead {
				prevHeadCommit, err := gitcmd.ReadCommit(prevHead)
				if err != nil {
					return err
				}
				base, err = gitcmd.CommitTree(
					prevHeadCommit.Tree,
					[]string{e.remoteBase, prevHead},
					"Update base for "+headReason,
					nil)
				if err != nil {
					return err
				}
				e.newBase = base
			}

			head, err := gitcmd.CommitTree(
				e.commit.Tree,
				[]string{e.remoteHead, base},
				headMessage(headReason, e.commit.Body),
				nil)
			if err != nil {
				return err
			}
			e.newHead = head

			if origParent != e.commit.Parents[0] {
				e.newOrig, err = gitcmd.CommitTree(
					e.commit.Tree,
					[]string{origParent},
					e.commit.Message(),
					&e.commit.Author)
				if err != nil {
					return err
				}
			}
		}

		log.Debug().
			Str("commit", e.commit.Hash).
			Stringer("action", e.action).
			Str("newBase", e.newBase).
			Str("newHead", e.newHead).
			Str("newOrig", e.newOrig).
			Msg("synthesize")

		prevHead = e.effectiveHead()
		prevOrig = e.effectiveOrig()
	}
	return nil
}

// openPullRequest allocates a tracking index and opens the PR for a new
// stack entry. The platform linearizes index allocation: losing a race
// returns 422 and the next integer is tried.
func (s *Stacker) openPullRequest(ctx context.Context, commit LocalCommit, alloc *indexAllocator) (*github.PullRequest, int, error) {
	for {
		index := alloc.take()
		pr, err := s.github.CreatePullRequest(ctx, github.CreatePullRequestInput{
			HeadRef: git.TrackingRef(s.username, index, "head"),
			BaseRef: git.TrackingRef(s.username, index, "base"),
			Title:   commit.Subject,
			Body:    normalizeBody(strings.TrimSpace(git.StripTrailers(commit.Body))),
		})
		if errors.Is(err, github.ErrUnprocessable) {
			log.Debug().Int("index", index).Msg("tracking index taken, retrying with next")
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		return pr, index, nil
	}
}

// headMessage is the message of a synthesized head update. The marker
// line warns against basing work on the tracking branch.
func headMessage(headReason, body string) string {
	body = normalizeBody(strings.TrimSpace(git.StripTrailers(body)))
	if body != "" {
		return headReason + "\n\n" + body + "\n\n" + poisonedMarker
	}
	return headReason + "\n\n" + poisonedMarker
}
