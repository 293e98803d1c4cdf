package realgit

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	gogit "github.com/go-git/go-git/v5"
	gogitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog/log"

	"github.com/inigolabs/ghstack/config"
	"github.com/inigolabs/ghstack/git"
)

// repo creates a *gogit.Repository the *gogit.Repository should not be shared between goroutines
func repo() *gogit.Repository {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	repo, err := gogit.PlainOpenWithOptions(cwd, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		fmt.Printf("%s is not a git repository\n", cwd)
		os.Exit(2)
	}

	return repo
}

// NewGitCmd returns a new git cmd instance
func NewGitCmd(cfg *config.Config) *gitcmd {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	wt, err := repo().Worktree()
	if err != nil {
		fmt.Printf("%s is a bare git repository\n", cwd)
		os.Exit(2)
	}

	rootdir := strings.TrimSpace(wt.Filesystem.Root())

	return &gitcmd{
		config:  cfg,
		rootdir: rootdir,
		stderr:  os.Stderr,
	}
}

type gitcmd struct {
	config  *config.Config
	rootdir string
	stderr  io.Writer
}

func (c *gitcmd) repo() *gogit.Repository {
	return repo()
}

func (c *gitcmd) Git(argStr string, output *string) error {
	out, _, err := c.run(strings.Split(argStr, " "), "", nil)
	if output != nil {
		*output = strings.TrimSpace(out)
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "git error: %s", out)
	}
	return err
}

func (c *gitcmd) MustGit(argStr string, output *string) {
	err := c.Git(argStr, output)
	if err != nil {
		panic(err)
	}
}

// run executes git with the given args, feeding stdin when non-empty.
// Returns combined output and the process exit code.
func (c *gitcmd) run(args []string, stdin string, env []string) (string, int, error) {
	log.Debug().Msg("git " + strings.Join(args, " "))
	if c.config.User.LogGitCommands {
		fmt.Printf("> git %s\n", strings.Join(args, " "))
	}

	cmd := exec.Command("git", args...)
	cmd.Dir = c.rootdir
	cmd.Env = append(os.Environ(), env...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()

	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	}
	return buf.String(), code, err
}

func (c *gitcmd) RootDir() string {
	return c.rootdir
}

func (c *gitcmd) SetRootDir(newroot string) {
	c.rootdir = newroot
}

func (c *gitcmd) SetStderr(stderr io.Writer) {
	c.stderr = stderr
}

// GetLocalBranchShortName returns the local branch short name (like "main")
func (c *gitcmd) GetLocalBranchShortName() (string, error) {
	ref, err := c.repo().Head()
	if err != nil {
		return "", fmt.Errorf("getting HEAD %w", err)
	}

	return ref.Name().Short(), nil
}

// Fetch fetches the given refspecs along with the objects necessary to
// complete their histories from the named remote.
func (c *gitcmd) Fetch(remoteName string, refspecs []string) error {
	specs := make([]gogitconfig.RefSpec, 0, len(refspecs))
	for _, refspec := range refspecs {
		specs = append(specs, gogitconfig.RefSpec(refspec))
	}

	err := c.repo().Fetch(&gogit.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   specs,
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return fmt.Errorf("fetching from %s %w", remoteName, err)
	}
	return nil
}

// Reference resolves a ref name to a commit hash.
func (c *gitcmd) Reference(name string) (string, bool, error) {
	ref, err := c.repo().Reference(plumbing.ReferenceName(name), true)
	if err == plumbing.ErrReferenceNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return ref.Hash().String(), true, nil
}

// RemoteBranches returns the set of branch names on the named remote.
func (c *gitcmd) RemoteBranches(remoteName string) (mapset.Set[string], error) {
	remoteBranches := mapset.NewSet[string]()
	remote, err := c.repo().Remote(remoteName)
	if err != nil {
		return remoteBranches, fmt.Errorf("finding remote %s %w", remoteName, err)
	}

	refs, err := remote.List(&gogit.ListOptions{})
	if err != nil {
		return remoteBranches, fmt.Errorf("listing remote branches %w", err)
	}
	for _, ref := range refs {
		if ref.Name().IsBranch() {
			remoteBranches.Add(ref.Name().Short())
		}
	}
	return remoteBranches, nil
}

func (c *gitcmd) MergeBase(a, b string) (string, error) {
	out, _, err := c.run([]string{"merge-base", a, b}, "", nil)
	if err != nil {
		return "", fmt.Errorf("merge-base %s %s: %w", a, b, err)
	}
	return strings.TrimSpace(out), nil
}

func (c *gitcmd) IsAncestor(ancestor, descendant string) (bool, error) {
	_, code, err := c.run([]string{"merge-base", "--is-ancestor", ancestor, descendant}, "", nil)
	if err == nil {
		return true, nil
	}
	if code == 1 {
		return false, nil
	}
	return false, fmt.Errorf("merge-base --is-ancestor %s %s: %w", ancestor, descendant, err)
}

// RevList returns the commits of rangeSpec oldest first.
func (c *gitcmd) RevList(rangeSpec string) ([]string, error) {
	out, _, err := c.run([]string{"rev-list", "--reverse", rangeSpec}, "", nil)
	if err != nil {
		return nil, fmt.Errorf("rev-list %s: %w", rangeSpec, err)
	}
	return strings.Fields(out), nil
}

var authorRegex = regexp.MustCompile(`^(author|committer) (.*) <(.*)> (\d+) ([+-]\d{4})$`)

// ReadCommit parses a raw commit object.
func (c *gitcmd) ReadCommit(hash string) (*git.Commit, error) {
	out, _, err := c.run([]string{"cat-file", "commit", hash}, "", nil)
	if err != nil {
		return nil, fmt.Errorf("cat-file commit %s: %w", hash, err)
	}

	commit := &git.Commit{Hash: hash}
	headers, message, _ := strings.Cut(out, "\n\n")
	for _, line := range strings.Split(headers, "\n") {
		switch {
		case strings.HasPrefix(line, "tree "):
			commit.Tree = strings.TrimPrefix(line, "tree ")
		case strings.HasPrefix(line, "parent "):
			commit.Parents = append(commit.Parents, strings.TrimPrefix(line, "parent "))
		case strings.HasPrefix(line, "author "):
			m := authorRegex.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("malformed author line in commit %s: %q", hash, line)
			}
			var when time.Time
			if t, err := time.Parse("-0700", m[5]); err == nil {
				var secs int64
				fmt.Sscanf(m[4], "%d", &secs)
				when = time.Unix(secs, 0).In(t.Location())
			}
			commit.Author = git.Signature{Name: m[2], Email: m[3], When: when}
		}
	}
	commit.Subject, commit.Body = git.SplitMessage(message)
	return commit, nil
}

// CommitTree writes a new commit object. The message is passed on stdin so
// it can safely span multiple lines.
func (c *gitcmd) CommitTree(tree string, parents []string, message string, author *git.Signature) (string, error) {
	args := []string{"commit-tree", tree}
	for _, parent := range parents {
		args = append(args, "-p", parent)
	}

	var env []string
	if author != nil {
		env = []string{
			"GIT_AUTHOR_NAME=" + author.Name,
			"GIT_AUTHOR_EMAIL=" + author.Email,
			"GIT_AUTHOR_DATE=" + author.When.Format(time.RFC3339),
		}
	}

	out, _, err := c.run(args, message, env)
	if err != nil {
		return "", fmt.Errorf("commit-tree %s: %w", tree, err)
	}
	return strings.TrimSpace(out), nil
}

// MergeTree three-way merges ours and theirs on top of base and returns
// the resulting tree. Conflicts return git.ErrMergeConflict.
func (c *gitcmd) MergeTree(base, ours, theirs string) (string, error) {
	out, code, err := c.run([]string{
		"merge-tree", "--write-tree", "--merge-base=" + base, ours, theirs,
	}, "", nil)
	if code == 1 {
		return "", git.ErrMergeConflict
	}
	if err != nil {
		return "", fmt.Errorf("merge-tree %s %s: %w", ours, theirs, err)
	}
	tree, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return tree, nil
}

func (c *gitcmd) Push(remoteName string, refspecs []string) error {
	return c.push(remoteName, refspecs, false)
}

// PushAtomic force pushes all refspecs in one atomic push: either every
// ref advances or none do.
func (c *gitcmd) PushAtomic(remoteName string, refspecs []string) error {
	return c.push(remoteName, refspecs, true)
}

func (c *gitcmd) push(remoteName string, refspecs []string, atomic bool) error {
	remote, err := c.repo().Remote(remoteName)
	if err != nil {
		return fmt.Errorf("getting remote %s %w", remoteName, err)
	}

	gogitrefspecs := make([]gogitconfig.RefSpec, 0, len(refspecs))
	for _, refspec := range refspecs {
		gogitrefspecs = append(gogitrefspecs, gogitconfig.RefSpec(refspec))
	}

	err = remote.Push(&gogit.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   gogitrefspecs,
		Atomic:     atomic,
		Force:      atomic,
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return fmt.Errorf("pushing %w", err)
	}

	return nil
}

// ResetSoft moves HEAD's branch to the given commit leaving the index and
// working tree untouched.
func (c *gitcmd) ResetSoft(hash string) error {
	return c.Git("reset --soft "+hash, nil)
}

func (c *gitcmd) Email() (string, error) {
	cfg, err := gogitconfig.LoadConfig(gogitconfig.GlobalScope)
	if err != nil {
		return "", fmt.Errorf("getting user email %w", err)
	}

	return cfg.User.Email, nil
}
