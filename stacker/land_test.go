package stacker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLandFastForwardStack(t *testing.T) {
	e := newEnv(t)
	e.addCommit("T1", "Commit 1", "")
	e.addCommit("T2", "Commit 2", "")
	diffs := e.submit(SubmitOptions{})

	require.NoError(t, e.s.Land(context.Background(), diffs[1].PRURL))

	// The default branch advanced by exactly the two orig commits, ids
	// preserved; tracking branches are untouched.
	master := e.branch("master")
	chain := e.origChain(2)
	assert.Equal(t, chain[1], master)

	c, err := e.repo.ReadCommit(master)
	require.NoError(t, err)
	assert.Equal(t, chain[0], c.Parents[0])
	assert.Equal(t, "T2", c.Tree)
	assert.Equal(t, chain[1], e.branch("gh/ann/2/orig"))
}

func TestLandPrefixOfStack(t *testing.T) {
	e := newEnv(t)
	e.addCommit("T1", "Commit 1", "")
	e.addCommit("T2", "Commit 2", "")
	diffs := e.submit(SubmitOptions{})

	require.NoError(t, e.s.Land(context.Background(), diffs[0].PRURL))

	chain := e.origChain(2)
	assert.Equal(t, chain[0], e.branch("master"))
}

func TestLandRebuild(t *testing.T) {
	e := newEnv(t)
	e.addCommit("T1", "Commit 1", "")
	e.addCommit("T2", "Commit 2", "")
	diffs := e.submit(SubmitOptions{})
	chain := e.origChain(2)

	// The first entry was squash-merged on the platform: upstream has
	// the first commit's content under a different id.
	squashed := e.repo.WriteCommit("T1", []string{e.init}, "Commit 1 (#500)")
	e.repo.SetRemoteBranch("master", squashed)

	require.NoError(t, e.s.Land(context.Background(), diffs[1].PRURL))

	// The second commit was replayed onto the squashed tip with its
	// author and message preserved; the orig id is not reused.
	master := e.branch("master")
	require.NotEqual(t, chain[1], master)

	c, err := e.repo.ReadCommit(master)
	require.NoError(t, err)
	assert.Equal(t, "T2", c.Tree)
	assert.Equal(t, []string{squashed}, c.Parents)
	assert.Equal(t, "Commit 2", c.Subject)
}

func TestLandConflict(t *testing.T) {
	e := newEnv(t)
	e.addCommit("T1", "Commit 1", "")
	diffs := e.submit(SubmitOptions{})

	// Upstream moved with unrelated content the stack was never rebased
	// onto.
	upstream := e.repo.WriteCommit("TX", []string{e.init}, "Unrelated upstream work")
	e.repo.SetRemoteBranch("master", upstream)

	err := e.s.Land(context.Background(), diffs[0].PRURL)

	var conflict *LandConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, upstream, e.branch("master"), "a conflicted land must not move the default branch")
}

func TestLandRejectsForeignPullRequest(t *testing.T) {
	e := newEnv(t)
	_, err := e.gh.CreatePullRequest(context.Background(), newPullRequestInput("feature", "master", "Hand made"))
	require.NoError(t, err)

	err = e.s.Land(context.Background(), "https://github.com/acme/widgets/pull/500")
	require.Error(t, err)
}

func TestLandRejectsMalformedURL(t *testing.T) {
	e := newEnv(t)
	err := e.s.Land(context.Background(), "https://github.com/acme/widgets")
	require.Error(t, err)
}
