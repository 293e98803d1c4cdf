package mockgit

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/inigolabs/ghstack/git"
)

// DefaultAuthor is the identity used for commits written without an
// explicit author.
var DefaultAuthor = git.Signature{
	Name:  "Ann Author",
	Email: "ann@example.com",
	When:  time.Unix(1112911993, 0).UTC(),
}

// Repo is an in-memory git repository with a simulated remote. It
// implements git.GitOps so the engines can run end-to-end in tests
// without a real git binary. Tree hashes are opaque strings chosen by
// the test; commit hashes are derived deterministically from content, so
// re-synthesizing identical commits yields identical hashes just like
// commit-tree with pinned timestamps.
type Repo struct {
	commits map[string]*git.Commit
	refs    map[string]string
	branch  string
	remote  map[string]string
	email   string

	// RemotesOutput is returned for the `git remote -v` escape hatch.
	RemotesOutput string

	// PushErr, when set, fails the next atomic push before any ref moves.
	PushErr error
}

func NewRepo() *Repo {
	return &Repo{
		commits: map[string]*git.Commit{},
		refs:    map[string]string{},
		branch:  "master",
		remote:  map[string]string{},
		email:   DefaultAuthor.Email,
	}
}

// WriteCommit creates a commit object without moving any ref.
func (r *Repo) WriteCommit(tree string, parents []string, message string) string {
	hash, _ := r.CommitTree(tree, parents, message, nil)
	return hash
}

// Checkout switches the current branch, creating it at the given commit.
func (r *Repo) Checkout(branch, hash string) {
	r.branch = branch
	r.refs["refs/heads/"+branch] = hash
}

// SetHead moves the current branch.
func (r *Repo) SetHead(hash string) {
	r.refs["refs/heads/"+r.branch] = hash
}

// Head returns the commit the current branch points at.
func (r *Repo) Head() string {
	return r.refs["refs/heads/"+r.branch]
}

// SetRemoteBranch sets a branch on the simulated remote.
func (r *Repo) SetRemoteBranch(name, hash string) {
	r.remote[name] = hash
}

// RemoteBranch reads a branch tip on the simulated remote.
func (r *Repo) RemoteBranch(name string) (string, bool) {
	hash, ok := r.remote[name]
	return hash, ok
}

// TreeOf returns the root tree of a commit.
func (r *Repo) TreeOf(hash string) string {
	c, ok := r.commits[hash]
	if !ok {
		return ""
	}
	return c.Tree
}

// MessageOf returns the full commit message of a commit.
func (r *Repo) MessageOf(hash string) string {
	c, ok := r.commits[hash]
	if !ok {
		return ""
	}
	return c.Message()
}

func (r *Repo) resolve(name string) (string, bool) {
	if _, ok := r.commits[name]; ok {
		return name, true
	}
	if name == "HEAD" {
		return r.refs["refs/heads/"+r.branch], true
	}
	for _, candidate := range []string{name, "refs/heads/" + name, "refs/remotes/" + name} {
		if hash, ok := r.refs[candidate]; ok {
			return hash, true
		}
	}
	return "", false
}

func (r *Repo) ancestors(hash string) mapset.Set[string] {
	seen := mapset.NewSet[string]()
	queue := []string{hash}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if seen.Contains(h) {
			continue
		}
		seen.Add(h)
		if c, ok := r.commits[h]; ok {
			queue = append(queue, c.Parents...)
		}
	}
	return seen
}

// --- git.GitOps ---

func (r *Repo) Git(args string, output *string) error {
	if args == "remote -v" {
		if output != nil {
			*output = r.RemotesOutput
		}
		return nil
	}
	return fmt.Errorf("mockgit: unsupported git command %q", args)
}

func (r *Repo) MustGit(args string, output *string) {
	if err := r.Git(args, output); err != nil {
		panic(err)
	}
}

func (r *Repo) RootDir() string { return "" }

func (r *Repo) GetLocalBranchShortName() (string, error) {
	return r.branch, nil
}

func (r *Repo) Fetch(remoteName string, refspecs []string) error {
	for name, hash := range r.remote {
		r.refs["refs/remotes/"+remoteName+"/"+name] = hash
	}
	return nil
}

func (r *Repo) Reference(name string) (string, bool, error) {
	hash, ok := r.resolve(name)
	return hash, ok, nil
}

func (r *Repo) RemoteBranches(remoteName string) (mapset.Set[string], error) {
	branches := mapset.NewSet[string]()
	for name := range r.remote {
		branches.Add(name)
	}
	return branches, nil
}

func (r *Repo) MergeBase(a, b string) (string, error) {
	ha, ok := r.resolve(a)
	if !ok {
		return "", fmt.Errorf("mockgit: unknown rev %s", a)
	}
	hb, ok := r.resolve(b)
	if !ok {
		return "", fmt.Errorf("mockgit: unknown rev %s", b)
	}

	reachable := r.ancestors(ha)
	queue := []string{hb}
	seen := mapset.NewSet[string]()
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if seen.Contains(h) {
			continue
		}
		seen.Add(h)
		if reachable.Contains(h) {
			return h, nil
		}
		if c, ok := r.commits[h]; ok {
			queue = append(queue, c.Parents...)
		}
	}
	return "", fmt.Errorf("mockgit: no merge base for %s and %s", a, b)
}

func (r *Repo) IsAncestor(ancestor, descendant string) (bool, error) {
	ha, ok := r.resolve(ancestor)
	if !ok {
		return false, fmt.Errorf("mockgit: unknown rev %s", ancestor)
	}
	hd, ok := r.resolve(descendant)
	if !ok {
		return false, fmt.Errorf("mockgit: unknown rev %s", descendant)
	}
	return r.ancestors(hd).Contains(ha), nil
}

func (r *Repo) RevList(rangeSpec string) ([]string, error) {
	from, to, found := strings.Cut(rangeSpec, "..")
	if !found {
		return nil, fmt.Errorf("mockgit: unsupported rev-list range %q", rangeSpec)
	}
	hf, ok := r.resolve(from)
	if !ok {
		return nil, fmt.Errorf("mockgit: unknown rev %s", from)
	}
	ht, ok := r.resolve(to)
	if !ok {
		return nil, fmt.Errorf("mockgit: unknown rev %s", to)
	}

	exclude := r.ancestors(hf)
	var order []string
	seen := mapset.NewSet[string]()
	var visit func(hash string)
	visit = func(hash string) {
		if seen.Contains(hash) || exclude.Contains(hash) {
			return
		}
		seen.Add(hash)
		if c, ok := r.commits[hash]; ok {
			for _, parent := range c.Parents {
				visit(parent)
			}
		}
		order = append(order, hash)
	}
	visit(ht)
	return order, nil
}

func (r *Repo) ReadCommit(hash string) (*git.Commit, error) {
	c, ok := r.commits[hash]
	if !ok {
		return nil, fmt.Errorf("mockgit: unknown commit %s", hash)
	}
	cp := *c
	cp.Parents = append([]string(nil), c.Parents...)
	return &cp, nil
}

func (r *Repo) CommitTree(tree string, parents []string, message string, author *git.Signature) (string, error) {
	if author == nil {
		author = &DefaultAuthor
	}

	raw := fmt.Sprintf("tree %s\nparents %s\nauthor %s\n\n%s",
		tree, strings.Join(parents, " "), author, message)
	sum := sha1.Sum([]byte(raw))
	hash := hex.EncodeToString(sum[:])

	subject, body := git.SplitMessage(message)
	r.commits[hash] = &git.Commit{
		Hash:    hash,
		Tree:    tree,
		Parents: append([]string(nil), parents...),
		Author:  *author,
		Subject: subject,
		Body:    body,
	}
	return hash, nil
}

func (r *Repo) MergeTree(base, ours, theirs string) (string, error) {
	tb := r.TreeOf(base)
	to := r.TreeOf(ours)
	tt := r.TreeOf(theirs)
	switch {
	case to == tb:
		return tt, nil
	case tt == tb, tt == to:
		return to, nil
	default:
		return "", git.ErrMergeConflict
	}
}

func (r *Repo) Push(remoteName string, refspecs []string) error {
	return r.push(remoteName, refspecs, false)
}

func (r *Repo) PushAtomic(remoteName string, refspecs []string) error {
	if r.PushErr != nil {
		err := r.PushErr
		r.PushErr = nil
		return err
	}
	return r.push(remoteName, refspecs, true)
}

func (r *Repo) push(remoteName string, refspecs []string, force bool) error {
	type update struct{ name, hash string }
	updates := make([]update, 0, len(refspecs))
	for _, refspec := range refspecs {
		src, dst, found := strings.Cut(strings.TrimPrefix(refspec, "+"), ":")
		if !found {
			return fmt.Errorf("mockgit: malformed refspec %q", refspec)
		}
		name := strings.TrimPrefix(dst, "refs/heads/")
		if src == "" {
			delete(r.remote, name)
			continue
		}
		hash, ok := r.resolve(src)
		if !ok {
			return fmt.Errorf("mockgit: unknown rev %s", src)
		}
		if !force {
			if old, exists := r.remote[name]; exists {
				if ff, _ := r.IsAncestor(old, hash); !ff {
					return fmt.Errorf("mockgit: non-fast-forward push to %s", name)
				}
			}
		}
		updates = append(updates, update{name: name, hash: hash})
	}
	for _, u := range updates {
		r.remote[u.name] = u.hash
		r.refs["refs/remotes/"+remoteName+"/"+u.name] = u.hash
	}
	return nil
}

func (r *Repo) ResetSoft(hash string) error {
	h, ok := r.resolve(hash)
	if !ok {
		return fmt.Errorf("mockgit: unknown rev %s", hash)
	}
	r.refs["refs/heads/"+r.branch] = h
	return nil
}

func (r *Repo) Email() (string, error) {
	return r.email, nil
}

// RemoteBranchNames returns the simulated remote's branches sorted, for
// stable assertions.
func (r *Repo) RemoteBranchNames() []string {
	names := make([]string, 0, len(r.remote))
	for name := range r.remote {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
