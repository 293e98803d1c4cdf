package stacker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/inigolabs/ghstack/git"
)

// poisonedMarker flags synthesized head update commits so nobody mistakes
// the tracking branch for a real development branch. The first head
// commit of a new pull request carries only the commit subject.
const poisonedMarker = "[ghstack-poisoned]"

var (
	mentionRegex      = regexp.MustCompile(`@([A-Za-z0-9][A-Za-z0-9-]*)`)
	differentialRegex = regexp.MustCompile(`(?m)^Differential Revision:.*$`)
)

// normalizeBody canonicalizes a message body for writing and comparison:
// the platform rewrites CRLF to LF, and mentions are defanged so every
// resubmit doesn't re-notify the same users.
func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = mentionRegex.ReplaceAllString(body, "$1")
	return body
}

// renderStackPrefix renders the machine-owned region of a pull request
// body: the header line, one bullet per stack entry newest first with an
// arrow on the current entry, and a closing blank line.
func renderStackPrefix(header string, numbers []int, self int) string {
	var b strings.Builder
	b.WriteString(header + ":\n")
	for i := len(numbers) - 1; i >= 0; i-- {
		if numbers[i] == self {
			fmt.Fprintf(&b, "* __->__ #%d\n", numbers[i])
		} else {
			fmt.Fprintf(&b, "* #%d\n", numbers[i])
		}
	}
	b.WriteString("\n")
	return b.String()
}

// splitBody splits a pull request body into the machine-owned stack
// prefix and the human-owned remainder. The machine region runs from the
// first header line through the first blank line after the bullet list;
// a body without the marker is entirely human-owned.
func splitBody(header, body string) (prefix, rest string) {
	lines := strings.SplitAfter(body, "\n")
	start := -1
	for i, line := range lines {
		if strings.TrimRight(line, "\n") == header+":" {
			start = i
			break
		}
	}
	if start == -1 {
		return "", body
	}

	end := start + 1
	for end < len(lines) && strings.HasPrefix(lines[end], "*") {
		end++
	}
	if end < len(lines) && strings.TrimRight(lines[end], "\n") == "" {
		end++
	}
	return strings.Join(lines[:end], ""), strings.Join(lines[end:], "")
}

// renderBody computes the new pull request body. The stack prefix is
// always rewritten; the text below it is replaced from the local commit
// only when updateFields is set or the remote body is empty, and even
// then a Differential Revision line found in the remote body survives.
func renderBody(header string, numbers []int, self int, commitBody, remoteBody string, updateFields bool) string {
	prefix := renderStackPrefix(header, numbers, self)
	_, remoteRest := splitBody(header, remoteBody)

	if !updateFields && remoteBody != "" {
		return prefix + remoteRest
	}

	rest := normalizeBody(strings.TrimSpace(git.StripTrailers(commitBody)))
	if m := differentialRegex.FindString(remoteRest); m != "" && differentialRegex.FindString(rest) == "" {
		if rest != "" {
			rest += "\n\n"
		}
		rest += m
	}
	return prefix + rest
}

// bodiesEqual compares two pull request bodies modulo the platform's
// newline rewriting and mention stripping, so metadata updates stay
// idempotent.
func bodiesEqual(a, b string) bool {
	return normalizeBody(a) == normalizeBody(b)
}
