package mockclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/inigolabs/ghstack/github"
)

// Client is an in-memory GitHub endpoint for tests. It hands out pull
// request numbers starting at 500 and rejects a create whose head branch
// already carries an open pull request with ErrUnprocessable, matching
// the platform's 422 behavior.
type Client struct {
	mu sync.Mutex

	login         string
	host          string
	owner         string
	name          string
	defaultBranch string

	prs  map[int]*github.PullRequest
	next int

	// UpdateErr fails the next UpdatePullRequest call, once.
	UpdateErr error
}

func New(login, owner, name string) *Client {
	return &Client{
		login:         login,
		host:          "github.com",
		owner:         owner,
		name:          name,
		defaultBranch: "master",
		prs:           map[int]*github.PullRequest{},
		next:          500,
	}
}

// SetDefaultBranch renames the simulated default branch.
func (c *Client) SetDefaultBranch(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultBranch = name
}

// Get returns the stored pull request, for assertions.
func (c *Client) Get(number int) *github.PullRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prs[number]
}

// Numbers returns all allocated pull request numbers sorted.
func (c *Client) Numbers() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	numbers := make([]int, 0, len(c.prs))
	for number := range c.prs {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	return numbers
}

func (c *Client) ViewerLogin(ctx context.Context) (string, error) {
	return c.login, nil
}

func (c *Client) RepoInfo(ctx context.Context) (*github.RepoInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &github.RepoInfo{
		ID:            fmt.Sprintf("R_%s_%s", c.owner, c.name),
		DefaultBranch: c.defaultBranch,
	}, nil
}

func (c *Client) PullRequest(ctx context.Context, number int) (*github.PullRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pr, ok := c.prs[number]
	if !ok {
		return nil, &github.RemoteRejectError{Status: 404, Body: fmt.Sprintf("pull request %d not found", number)}
	}
	cp := *pr
	return &cp, nil
}

func (c *Client) PullRequests(ctx context.Context, numbers []int) (map[int]*github.PullRequest, error) {
	byNumber := make(map[int]*github.PullRequest, len(numbers))
	for _, number := range numbers {
		pr, err := c.PullRequest(ctx, number)
		if err != nil {
			return nil, err
		}
		byNumber[number] = pr
	}
	return byNumber, nil
}

func (c *Client) CreatePullRequest(ctx context.Context, input github.CreatePullRequestInput) (*github.PullRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, pr := range c.prs {
		if !pr.Closed && pr.HeadRef == input.HeadRef {
			return nil, fmt.Errorf("a pull request already exists for %s: %w", input.HeadRef, github.ErrUnprocessable)
		}
	}

	number := c.next
	c.next++
	pr := &github.PullRequest{
		Number:  number,
		Title:   input.Title,
		Body:    input.Body,
		HeadRef: input.HeadRef,
		BaseRef: input.BaseRef,
		URL:     fmt.Sprintf("https://%s/%s/%s/pull/%d", c.host, c.owner, c.name, number),
	}
	c.prs[number] = pr

	cp := *pr
	return &cp, nil
}

func (c *Client) UpdatePullRequest(ctx context.Context, number int, input github.UpdatePullRequestInput) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.UpdateErr != nil {
		err := c.UpdateErr
		c.UpdateErr = nil
		return err
	}

	pr, ok := c.prs[number]
	if !ok {
		return &github.RemoteRejectError{Status: 404, Body: fmt.Sprintf("pull request %d not found", number)}
	}
	if input.Title != nil {
		pr.Title = *input.Title
	}
	if input.Body != nil {
		pr.Body = *input.Body
	}
	if input.BaseRef != nil {
		pr.BaseRef = *input.BaseRef
	}
	return nil
}

// Dump renders all pull requests for golden-ish assertions.
func (c *Client) Dump() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	for _, number := range c.numbersLocked() {
		pr := c.prs[number]
		fmt.Fprintf(&b, "#%d %s (%s -> %s)\n%s\n\n", pr.Number, pr.Title, pr.HeadRef, pr.BaseRef, pr.Body)
	}
	return b.String()
}

func (c *Client) numbersLocked() []int {
	numbers := make([]int, 0, len(c.prs))
	for number := range c.prs {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	return numbers
}
