package stacker

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/inigolabs/ghstack/git"
)

var prURLRegex = regexp.MustCompile(`/pull/(\d+)/?$`)

// Land ships one stack entry (and everything under it) into the default
// branch. When the upstream tip is already an ancestor of the entry's
// orig chain the commits fast-forward in with their ids preserved;
// otherwise the chain is replayed commit by commit onto the current tip.
// Tracking branches are left in place for audit either way.
func (s *Stacker) Land(ctx context.Context, prURL string) error {
	s.profiletimer.Step("Land::Start")

	m := prURLRegex.FindStringSubmatch(prURL)
	if m == nil {
		return fmt.Errorf("%q does not look like a pull request URL", prURL)
	}
	number, _ := strconv.Atoi(m[1])

	if err := s.resolveIdentity(ctx); err != nil {
		return err
	}

	pr, err := s.github.PullRequest(ctx, number)
	if err != nil {
		return err
	}
	_, index, _, ok := git.ParseTrackingRef(pr.HeadRef)
	if !ok {
		return fmt.Errorf("pull request #%d head branch %q was not created by this tool", number, pr.HeadRef)
	}

	if err := s.fetchStackRefs(); err != nil {
		return err
	}
	s.profiletimer.Step("Land::Fetch")

	upstreamTip, err := s.upstreamTip()
	if err != nil {
		return err
	}
	origTip, err := trackingTip(s.gitcmd, s.config.Repo.GitHubRemote, s.username, index, "orig")
	if err != nil {
		return err
	}

	ff, err := s.gitcmd.IsAncestor(upstreamTip, origTip)
	if err != nil {
		return err
	}

	tip := origTip
	if !ff {
		tip, err = s.replayOnto(upstreamTip, origTip)
		if err != nil {
			return err
		}
	}
	s.profiletimer.Step("Land::Synthesize")

	refspec := tip + ":refs/heads/" + s.defaultBranch
	if err := s.gitcmd.Push(s.config.Repo.GitHubRemote, []string{refspec}); err != nil {
		return &PushRejectedError{Err: err}
	}
	s.profiletimer.Step("Land::Push")

	s.Printer.Printf("landed #%d %s into %s\n", pr.Number, pr.Title, s.defaultBranch)
	return nil
}

// replayOnto cherry-picks the orig chain upstream..origTip onto the
// current upstream tip, keeping the original authors and messages.
func (s *Stacker) replayOnto(upstreamTip, origTip string) (string, error) {
	hashes, err := s.gitcmd.RevList(upstreamTip + ".." + origTip)
	if err != nil {
		return "", err
	}

	upstream, err := s.gitcmd.ReadCommit(upstreamTip)
	if err != nil {
		return "", err
	}

	tip, tipTree := upstreamTip, upstream.Tree
	for _, hash := range hashes {
		commit, err := s.gitcmd.ReadCommit(hash)
		if err != nil {
			return "", err
		}
		if len(commit.Parents) != 1 {
			return "", fmt.Errorf("orig chain commit %.8s is not a single-parent commit: %w", hash, ErrInternal)
		}

		tree, err := s.gitcmd.MergeTree(commit.Parents[0], tip, hash)
		if errors.Is(err, git.ErrMergeConflict) {
			return "", &LandConflictError{Hash: hash}
		}
		if err != nil {
			return "", err
		}

		// A commit whose change is already on the tip replays to the
		// same tree; drop it instead of landing an empty commit.
		if tree == tipTree {
			log.Debug().Str("commit", hash).Msg("skipping already applied commit")
			continue
		}

		tip, err = s.gitcmd.CommitTree(tree, []string{tip}, commit.Message(), &commit.Author)
		if err != nil {
			return "", err
		}
		tipTree = tree
	}
	return tip, nil
}
