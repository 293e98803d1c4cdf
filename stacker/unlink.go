package stacker

import (
	"context"
	"fmt"

	"github.com/inigolabs/ghstack/git"
)

// Unlink rewrites default..HEAD dropping the tracking trailers from every
// commit message, so the next submit treats the stack as brand new. The
// existing pull requests are left alone on the remote. No remote
// interaction happens; the upstream position comes from the refs of the
// last fetch.
func (s *Stacker) Unlink(ctx context.Context) error {
	s.profiletimer.Step("Unlink::Start")

	remote := s.config.Repo.GitHubRemote
	upstream := s.config.Repo.GitHubBranch
	if upstream == "" {
		upstream = "HEAD"
	}
	upstreamTip, ok, err := s.gitcmd.Reference("refs/remotes/" + remote + "/" + upstream)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("refs/remotes/%s/%s does not exist, fetch the remote first", remote, upstream)
	}

	commits, err := parseStack(s.gitcmd, upstreamTip)
	if err != nil {
		return err
	}
	s.profiletimer.Step("Unlink::ParseStack")

	parent := commits[0].Parents[0]
	rewritten := false
	for _, commit := range commits {
		message := git.StripTrailers(commit.Message())
		if message == commit.Message() && parent == commit.Parents[0] {
			parent = commit.Hash
			continue
		}
		parent, err = s.gitcmd.CommitTree(commit.Tree, []string{parent}, message, &commit.Author)
		if err != nil {
			return err
		}
		rewritten = true
	}

	if rewritten {
		if err := s.gitcmd.ResetSoft(parent); err != nil {
			return err
		}
	}
	s.profiletimer.Step("Unlink::Rewrite")

	s.Printer.Printf("unlinked %d commits\n", len(commits))
	return nil
}
