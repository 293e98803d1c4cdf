package stacker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnlinkAndResubmit(t *testing.T) {
	e := newEnv(t)
	e.addCommit("T1", "Commit 1", "First body")
	e.addCommit("T2", "Commit 2", "")
	e.submit(SubmitOptions{})

	head1 := e.branch("gh/ann/1/head")
	head2 := e.branch("gh/ann/2/head")

	e.s.config.Repo.GitHubBranch = "master"
	require.NoError(t, e.s.Unlink(context.Background()))

	// Both trailers are gone; content and subjects are untouched.
	chain := e.origChain(2)
	for i, hash := range chain {
		msg := e.repo.MessageOf(hash)
		assert.NotContains(t, msg, "ghstack-source-id")
		assert.NotContains(t, msg, "Pull Request resolved")
		assert.Equal(t, []string{"T1", "T2"}[i], e.repo.TreeOf(hash))
	}
	assert.Contains(t, e.repo.MessageOf(chain[0]), "First body")

	// Resubmitting creates a fresh stack under new indices and numbers;
	// the old pull requests and branches stay put.
	diffs := e.submit(SubmitOptions{})
	require.Len(t, diffs, 2)
	assert.Equal(t, 502, diffs[0].PRNumber)
	assert.Equal(t, 503, diffs[1].PRNumber)
	assert.Equal(t, "T1", e.repo.TreeOf(e.branch("gh/ann/3/head")))
	assert.Equal(t, "T2", e.repo.TreeOf(e.branch("gh/ann/4/head")))

	assert.Equal(t, head1, e.branch("gh/ann/1/head"))
	assert.Equal(t, head2, e.branch("gh/ann/2/head"))
	assert.Equal(t, "gh/ann/1/head", e.gh.Get(500).HeadRef)
}

func TestUnlinkWithoutSubmittedStack(t *testing.T) {
	e := newEnv(t)
	e.addCommit("T1", "Commit 1", "")
	head := e.repo.Head()

	e.s.config.Repo.GitHubBranch = "master"
	e.repo.Fetch("origin", nil)
	require.NoError(t, e.s.Unlink(context.Background()))

	// Nothing to strip, nothing rewritten.
	assert.Equal(t, head, e.repo.Head())
}
