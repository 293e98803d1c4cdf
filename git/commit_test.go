package git

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrailerRoundTrip(t *testing.T) {
	sourceID := strings.Repeat("ab", 20)
	url := "https://github.com/acme/widgets/pull/500"

	message := AppendTrailers("Commit 1\n\nSome body", sourceID, url)

	assert.Equal(t, sourceID, SourceID(message))
	gotURL, number, ok := PullRequestURL(message)
	require.True(t, ok)
	assert.Equal(t, url, gotURL)
	assert.Equal(t, 500, number)
}

func TestTrailerWireFormat(t *testing.T) {
	message := AppendTrailers("Commit 1", strings.Repeat("e", 40),
		"https://github.com/acme/widgets/pull/7")
	assert.Equal(t, "Commit 1\n\n"+
		"ghstack-source-id: "+strings.Repeat("e", 40)+"\n"+
		"Pull Request resolved: https://github.com/acme/widgets/pull/7",
		message)
}

func TestStripTrailers(t *testing.T) {
	original := "Commit 1\n\nSome body"
	message := AppendTrailers(original, strings.Repeat("ab", 20),
		"https://github.com/acme/widgets/pull/500")

	stripped := StripTrailers(message)
	assert.Equal(t, original, stripped)
	assert.Empty(t, SourceID(stripped))
	_, _, ok := PullRequestURL(stripped)
	assert.False(t, ok)
}

func TestSourceIDAbsent(t *testing.T) {
	assert.Empty(t, SourceID("Commit 1\n\nNo trailers here"))
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		message string
		subject string
		body    string
	}{
		{"Commit 1", "Commit 1", ""},
		{"Commit 1\n", "Commit 1", ""},
		{"Commit 1\n\nBody line", "Commit 1", "Body line"},
		{"Commit 1\n\nBody one\nBody two\n", "Commit 1", "Body one\nBody two"},
	}
	for _, tt := range tests {
		subject, body := SplitMessage(tt.message)
		assert.Equal(t, tt.subject, subject)
		assert.Equal(t, tt.body, body)
	}
}

func TestParseTrackingRef(t *testing.T) {
	user, index, kind, ok := ParseTrackingRef("gh/ann/12/head")
	require.True(t, ok)
	assert.Equal(t, "ann", user)
	assert.Equal(t, 12, index)
	assert.Equal(t, "head", kind)

	for _, name := range []string{
		"gh/ann/malform",
		"gh/ann/non_int/head",
		"gh/ann/1/unknown",
		"master",
		"gh/ann/1/head/extra",
	} {
		_, _, _, ok := ParseTrackingRef(name)
		assert.False(t, ok, name)
	}
}

func TestTrackingRef(t *testing.T) {
	assert.Equal(t, "gh/ann/3/orig", TrackingRef("ann", 3, "orig"))
}
