package stacker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inigolabs/ghstack/output"
)

func TestStatusEmptyStack(t *testing.T) {
	e := newEnv(t)
	printer := output.MockPrinter()
	e.s.Printer = printer

	require.NoError(t, e.s.Status(context.Background()))

	assert.Equal(t, []string{"stack is empty\n"}, printer.Lines())
}

func TestStatusMixedStack(t *testing.T) {
	e := newEnv(t)
	e.addCommit("T1", "Commit 1", "")
	e.addCommit("T2", "Commit 2", "")
	e.submit(SubmitOptions{})
	e.addCommit("T3", "Commit 3", "")

	printer := output.MockPrinter()
	e.s.Printer = printer
	require.NoError(t, e.s.Status(context.Background()))

	lines := printer.Lines()
	require.Len(t, lines, 3)

	// Top of the stack first: the fresh commit has no pull request yet,
	// the submitted ones print their URLs.
	assert.Contains(t, lines[0], "Commit 3")
	assert.Contains(t, lines[0], "(not submitted)")
	assert.Contains(t, lines[1], "Commit 2")
	assert.Contains(t, lines[1], "https://github.com/acme/widgets/pull/501")
	assert.Contains(t, lines[2], "Commit 1")
	assert.Contains(t, lines[2], "https://github.com/acme/widgets/pull/500")
}

func TestStatusDoesNotMutate(t *testing.T) {
	e := newEnv(t)
	e.addCommit("T1", "Commit 1", "")
	e.submit(SubmitOptions{})
	before := e.snapshot()
	head := e.repo.Head()

	e.s.Printer = output.MockPrinter()
	require.NoError(t, e.s.Status(context.Background()))

	assert.Equal(t, before, e.snapshot())
	assert.Equal(t, head, e.repo.Head())
}
