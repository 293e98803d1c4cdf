package stacker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBody(t *testing.T) {
	assert.Equal(t, "one\ntwo\n", normalizeBody("one\r\ntwo\r\n"))
	assert.Equal(t, "cc foobar Ivan", normalizeBody("cc @foobar @Ivan"))

	// Normalizing this body a second time changes nothing, so it
	// compares equal to its normalized self.
	body := "Hello @someone\r\nbye"
	assert.True(t, bodiesEqual(body, normalizeBody(body)))
}

func TestRenderStackPrefix(t *testing.T) {
	got := renderStackPrefix("Stack", []int{500, 501, 502}, 501)
	assert.Equal(t, "Stack:\n* #502\n* __->__ #501\n* #500\n\n", got)
}

func TestSplitBody(t *testing.T) {
	body := "Stack:\n* #501\n* __->__ #500\n\nMy description\n\nMore text"
	prefix, rest := splitBody("Stack", body)
	assert.Equal(t, "Stack:\n* #501\n* __->__ #500\n\n", prefix)
	assert.Equal(t, "My description\n\nMore text", rest)
}

func TestSplitBodyWithoutMarker(t *testing.T) {
	prefix, rest := splitBody("Stack", "Just a description")
	assert.Empty(t, prefix)
	assert.Equal(t, "Just a description", rest)
}

func TestRenderBodyPreservesHumanSuffix(t *testing.T) {
	remote := "Stack:\n* __->__ #500\n\nEdited by a human"
	got := renderBody("Stack", []int{500, 501}, 500, "local body", remote, false)
	assert.Equal(t, "Stack:\n* #501\n* __->__ #500\n\nEdited by a human", got)
}

func TestRenderBodyUpdateFields(t *testing.T) {
	remote := "Stack:\n* __->__ #500\n\nOld text\n\nDifferential Revision: D1234"
	got := renderBody("Stack", []int{500}, 500, "New text", remote, true)
	assert.Equal(t, "Stack:\n* __->__ #500\n\nNew text\n\nDifferential Revision: D1234", got)
}

func TestRenderBodyFirstSubmission(t *testing.T) {
	got := renderBody("Stack", []int{500}, 500, "The commit body", "", false)
	assert.Equal(t, "Stack:\n* __->__ #500\n\nThe commit body", got)
}

func TestHeadMessage(t *testing.T) {
	got := headMessage(`Update 1 on "Commit 1"`, "cc @foobar\n\nghstack-source-id: abc\nPull Request resolved: https://github.com/a/b/pull/1")
	assert.Equal(t, "Update 1 on \"Commit 1\"\n\ncc foobar\n\n[ghstack-poisoned]", got)
}
