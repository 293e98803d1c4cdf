package git

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// ErrMergeConflict is returned by MergeTree when the three-way merge has
// conflicting entries.
var ErrMergeConflict = errors.New("merge conflict")

// GitOps is the typed facade over git plumbing that the engines consume.
// realgit implements it by shelling out to git (and go-git for transport),
// mockgit implements it with an in-memory object store for tests.
type GitOps interface {
	Git(args string, output *string) error
	MustGit(args string, output *string)
	RootDir() string
	GetLocalBranchShortName() (string, error)
	Fetch(remoteName string, refspecs []string) error
	// Reference resolves a ref name to a commit hash. The second return is
	// false when the ref does not exist.
	Reference(name string) (string, bool, error)
	RemoteBranches(remoteName string) (mapset.Set[string], error)
	MergeBase(a, b string) (string, error)
	IsAncestor(ancestor, descendant string) (bool, error)
	// RevList returns the commits of rangeSpec oldest first.
	RevList(rangeSpec string) ([]string, error)
	ReadCommit(hash string) (*Commit, error)
	// CommitTree writes a new commit object without moving any ref.
	// A nil author uses the configured identity.
	CommitTree(tree string, parents []string, message string, author *Signature) (string, error)
	// MergeTree three-way merges ours and theirs using base as the merge
	// base and returns the resulting tree. Conflicts return ErrMergeConflict.
	MergeTree(base, ours, theirs string) (string, error)
	Push(remoteName string, refspecs []string) error
	// PushAtomic force pushes all refspecs in a single atomic push.
	PushAtomic(remoteName string, refspecs []string) error
	ResetSoft(hash string) error
	Email() (string, error)
}

// Signature identifies a commit author.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

func (s Signature) String() string {
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// Commit is a parsed git commit object.
type Commit struct {
	// Hash is the git commit hash, this gets updated every time the commit is amended.
	Hash string

	// Tree is the root tree object hash.
	Tree string

	// Parents are the parent commit hashes in order.
	Parents []string

	Author Signature

	// Subject is the commit message up to the first blank line.
	Subject string

	// Body is the rest of the commit message, including any trailers.
	Body string
}

// Message reassembles the full commit message.
func (c *Commit) Message() string {
	if c.Body == "" {
		return c.Subject
	}
	return c.Subject + "\n\n" + c.Body
}

// SplitMessage splits a full commit message into subject and body at the
// first blank line.
func SplitMessage(message string) (subject, body string) {
	message = strings.TrimRight(message, "\n")
	subject, body, found := strings.Cut(message, "\n\n")
	if !found {
		return message, ""
	}
	return subject, strings.TrimLeft(body, "\n")
}

const (
	// SourceIDTrailer ties a local commit to its pull request across
	// amends and rebases; the value is opaque and stable.
	SourceIDTrailer = "ghstack-source-id"

	// PullRequestTrailer carries the URL of the pull request a commit
	// was submitted as.
	PullRequestTrailer = "Pull Request resolved"
)

var (
	sourceIDRegex    = regexp.MustCompile(`(?m)^ghstack-source-id: ([0-9a-f]+)\s*$`)
	pullRequestRegex = regexp.MustCompile(`(?m)^Pull Request resolved: (https?://\S+/pull/(\d+))\s*$`)

	// TrackingBranchRegex matches the hidden refs maintained per pull
	// request. Refs under gh/<user>/ that do not match are ignored.
	TrackingBranchRegex = regexp.MustCompile(`^gh/([^/]+)/(\d+)/(base|head|orig)$`)
)

// SourceID extracts the ghstack-source-id trailer from a message body,
// or "" when absent.
func SourceID(body string) string {
	m := sourceIDRegex.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return m[1]
}

// PullRequestURL extracts the resolved pull request trailer from a message
// body, returning the URL and the PR number.
func PullRequestURL(body string) (url string, number int, ok bool) {
	m := pullRequestRegex.FindStringSubmatch(body)
	if m == nil {
		return "", 0, false
	}
	number, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], number, true
}

// AppendTrailers appends the source-id and pull request trailers to a full
// commit message.
func AppendTrailers(message, sourceID, prURL string) string {
	message = strings.TrimRight(message, "\n")
	return fmt.Sprintf("%s\n\n%s: %s\n%s: %s", message,
		SourceIDTrailer, sourceID, PullRequestTrailer, prURL)
}

// StripTrailers removes both tracking trailers from a full commit message.
func StripTrailers(message string) string {
	message = sourceIDRegex.ReplaceAllString(message, "")
	message = pullRequestRegex.ReplaceAllString(message, "")
	return strings.TrimRight(message, "\n")
}

// TrackingRef formats the hidden ref name for one leg of a tracking triple.
func TrackingRef(username string, index int, kind string) string {
	return fmt.Sprintf("gh/%s/%d/%s", username, index, kind)
}

// ParseTrackingRef parses a tracking branch name into its parts. The name
// must not carry a refs/heads/ or remote prefix.
func ParseTrackingRef(name string) (username string, index int, kind string, ok bool) {
	m := TrackingBranchRegex.FindStringSubmatch(name)
	if m == nil {
		return "", 0, "", false
	}
	index, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, "", false
	}
	return m[1], index, m[3], true
}
