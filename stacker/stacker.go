package stacker

import (
	"context"
	"fmt"
	"os"

	"github.com/ejoffe/profiletimer"

	"github.com/inigolabs/ghstack/config"
	"github.com/inigolabs/ghstack/git"
	"github.com/inigolabs/ghstack/github"
	"github.com/inigolabs/ghstack/output"
)

// NewStacker constructs the submit/land/unlink engine.
func NewStacker(cfg *config.Config, gh github.GitHubInterface, gitcmd git.GitOps) *Stacker {
	return &Stacker{
		config:       cfg,
		github:       gh,
		gitcmd:       gitcmd,
		profiletimer: profiletimer.StartNoopTimer(),

		Printer: output.New(os.Stdout),
	}
}

type Stacker struct {
	config       *config.Config
	github       github.GitHubInterface
	gitcmd       git.GitOps
	profiletimer profiletimer.Timer

	Printer output.Printer

	// Resolved once per run.
	username      string
	defaultBranch string
}

// ProfilingEnable enables stopwatch profiling
func (s *Stacker) ProfilingEnable() {
	s.profiletimer = profiletimer.StartProfileTimer()
}

// ProfilingSummary prints profiling info to stdout
func (s *Stacker) ProfilingSummary() error {
	return s.profiletimer.ShowResults()
}

// resolveIdentity fills in the tracking ref owner and the branch the
// stack lands into. Both can be pinned in config; the default branch is
// otherwise queried fresh since repositories rename it.
func (s *Stacker) resolveIdentity(ctx context.Context) error {
	s.defaultBranch = s.config.Repo.GitHubBranch
	if s.defaultBranch == "" {
		info, err := s.github.RepoInfo(ctx)
		if err != nil {
			return err
		}
		s.defaultBranch = info.DefaultBranch
	}

	s.username = s.config.User.GitHubUserName
	if s.username == "" {
		login, err := s.github.ViewerLogin(ctx)
		if err != nil {
			return err
		}
		s.username = login
	}
	return nil
}

// fetchStackRefs fetches the default branch and every tracking ref of the
// current user in one round trip.
func (s *Stacker) fetchStackRefs() error {
	remote := s.config.Repo.GitHubRemote
	return s.gitcmd.Fetch(remote, []string{
		fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", s.defaultBranch, remote, s.defaultBranch),
		fmt.Sprintf("+refs/heads/gh/%s/*:refs/remotes/%s/gh/%s/*", s.username, remote, s.username),
	})
}

// upstreamTip resolves the fetched default branch tip.
func (s *Stacker) upstreamTip() (string, error) {
	remote := s.config.Repo.GitHubRemote
	name := fmt.Sprintf("refs/remotes/%s/%s", remote, s.defaultBranch)
	hash, ok, err := s.gitcmd.Reference(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s does not exist, is the remote empty?", name)
	}
	return hash, nil
}
