package stacker

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inigolabs/ghstack/config"
	"github.com/inigolabs/ghstack/git/mockgit"
	"github.com/inigolabs/ghstack/github"
	"github.com/inigolabs/ghstack/github/mockclient"
	"github.com/inigolabs/ghstack/output"
)

// env wires the engine to an in-memory repository and a fake GitHub
// endpoint. The remote starts with a single commit on master.
type env struct {
	t    *testing.T
	repo *mockgit.Repo
	gh   *mockclient.Client
	s    *Stacker
	init string
}

func newEnv(t *testing.T) *env {
	repo := mockgit.NewRepo()
	init := repo.WriteCommit("T0", nil, "Initial commit")
	repo.Checkout("master", init)
	repo.SetRemoteBranch("master", init)

	gh := mockclient.New("ann", "acme", "widgets")

	cfg := config.DefaultConfig()
	cfg.Repo.GitHubRepoOwner = "acme"
	cfg.Repo.GitHubRepoName = "widgets"

	s := NewStacker(cfg, gh, repo)
	s.Printer = output.New(io.Discard)

	return &env{t: t, repo: repo, gh: gh, s: s, init: init}
}

// addCommit appends a commit to the current branch.
func (e *env) addCommit(tree, subject, body string) string {
	message := subject
	if body != "" {
		message = subject + "\n\n" + body
	}
	hash := e.repo.WriteCommit(tree, []string{e.repo.Head()}, message)
	e.repo.SetHead(hash)
	return hash
}

func (e *env) submit(opts SubmitOptions) []DiffMeta {
	e.t.Helper()
	diffs, err := e.s.Submit(context.Background(), opts)
	require.NoError(e.t, err)
	return diffs
}

// branch returns the remote tip of a branch, failing if it is missing.
func (e *env) branch(name string) string {
	e.t.Helper()
	hash, ok := e.repo.RemoteBranch(name)
	require.True(e.t, ok, "remote branch %s missing", name)
	return hash
}

// origChain returns the orig commits of the local branch, oldest first.
func (e *env) origChain(n int) []string {
	e.t.Helper()
	chain := make([]string, n)
	hash := e.repo.Head()
	for i := n - 1; i >= 0; i-- {
		chain[i] = hash
		c, err := e.repo.ReadCommit(hash)
		require.NoError(e.t, err)
		require.Len(e.t, c.Parents, 1)
		hash = c.Parents[0]
	}
	return chain
}

func newPullRequestInput(head, base, title string) github.CreatePullRequestInput {
	return github.CreatePullRequestInput{
		HeadRef: head,
		BaseRef: base,
		Title:   title,
	}
}

func updateBody(body string) github.UpdatePullRequestInput {
	return github.UpdatePullRequestInput{Body: &body}
}

// snapshot captures all remote branch tips for no-mutation assertions.
func (e *env) snapshot() map[string]string {
	tips := map[string]string{}
	for _, name := range e.repo.RemoteBranchNames() {
		tips[name], _ = e.repo.RemoteBranch(name)
	}
	return tips
}
