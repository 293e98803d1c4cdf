package githubclient

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	gogithub "github.com/google/go-github/v69/github"
	"github.com/rs/zerolog/log"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/inigolabs/ghstack/config"
	"github.com/inigolabs/ghstack/github"
)

const tokenHelpText = `
No GitHub OAuth token found! You can either create one
at https://%s/settings/tokens and set the GITHUB_TOKEN environment variable,
or configure a token manually in ~/.config/hub:

	github.com:
	- user: <your username>
	  oauth_token: <your token>
	  protocol: https

This configuration file is shared with GitHub's "hub" CLI (https://hub.github.com/),
so if you already use that, ghstack will automatically pick up your token.
`

// NewGitHubClient looks up the auth token for the configured host and
// returns a client backed by the GraphQL v4 API for reads and the REST v3
// API for mutations.
func NewGitHubClient(ctx context.Context, cfg *config.Config) *client {
	token := github.FindToken(cfg.Repo.GitHubHost)
	if token == "" {
		fmt.Printf(tokenHelpText, cfg.Repo.GitHubHost)
		os.Exit(3)
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	))

	var gql *githubv4.Client
	var rest *gogithub.Client
	if cfg.Repo.GitHubHost == "github.com" {
		gql = githubv4.NewClient(httpClient)
		rest = gogithub.NewClient(httpClient)
	} else {
		baseURL := fmt.Sprintf("https://%s/api", cfg.Repo.GitHubHost)
		gql = githubv4.NewEnterpriseClient(baseURL+"/graphql", httpClient)
		var err error
		rest, err = gogithub.NewClient(httpClient).WithEnterpriseURLs(baseURL+"/v3/", baseURL+"/uploads/")
		if err != nil {
			fmt.Printf("invalid github host %q: %s\n", cfg.Repo.GitHubHost, err)
			os.Exit(3)
		}
	}

	return &client{
		config: cfg,
		gql:    gql,
		rest:   rest,
	}
}

type client struct {
	config *config.Config
	gql    *githubv4.Client
	rest   *gogithub.Client
}

func (c *client) ViewerLogin(ctx context.Context) (string, error) {
	var query struct {
		Viewer struct {
			Login githubv4.String
		}
	}
	if err := c.gql.Query(ctx, &query, nil); err != nil {
		return "", fmt.Errorf("querying viewer login %w", err)
	}
	return string(query.Viewer.Login), nil
}

func (c *client) RepoInfo(ctx context.Context) (*github.RepoInfo, error) {
	if c.config.User.LogGitHubCalls {
		fmt.Printf("> github fetch repository info\n")
	}

	var query struct {
		Repository struct {
			Id               githubv4.String
			DefaultBranchRef struct {
				Name githubv4.String
			}
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner": githubv4.String(c.config.Repo.GitHubRepoOwner),
		"name":  githubv4.String(c.config.Repo.GitHubRepoName),
	}
	if err := c.gql.Query(ctx, &query, vars); err != nil {
		return nil, fmt.Errorf("querying repository info %w", err)
	}

	info := &github.RepoInfo{
		ID:            string(query.Repository.Id),
		DefaultBranch: string(query.Repository.DefaultBranchRef.Name),
	}
	log.Debug().Interface("RepoInfo", info).Msg("RepoInfo")
	return info, nil
}

func (c *client) PullRequest(ctx context.Context, number int) (*github.PullRequest, error) {
	if c.config.User.LogGitHubCalls {
		fmt.Printf("> github fetch pull request %d\n", number)
	}

	var query struct {
		Repository struct {
			PullRequest struct {
				Number      githubv4.Int
				Title       githubv4.String
				Body        githubv4.String
				HeadRefName githubv4.String
				BaseRefName githubv4.String
				Url         githubv4.URI
				Closed      githubv4.Boolean
			} `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  githubv4.String(c.config.Repo.GitHubRepoOwner),
		"name":   githubv4.String(c.config.Repo.GitHubRepoName),
		"number": githubv4.Int(number),
	}
	if err := c.gql.Query(ctx, &query, vars); err != nil {
		return nil, fmt.Errorf("querying pull request %d %w", number, err)
	}

	pr := query.Repository.PullRequest
	return &github.PullRequest{
		Number:  int(pr.Number),
		Title:   string(pr.Title),
		Body:    string(pr.Body),
		HeadRef: string(pr.HeadRefName),
		BaseRef: string(pr.BaseRefName),
		URL:     pr.Url.String(),
		Closed:  bool(pr.Closed),
	}, nil
}

// PullRequests loads one pull request per stack entry concurrently.
// Loading remote state is read-only so the fan-out is safe; any failed
// lookup fails the whole load since a stack with unresolved entries
// cannot be classified.
func (c *client) PullRequests(ctx context.Context, numbers []int) (map[int]*github.PullRequest, error) {
	byNumber := make(map[int]*github.PullRequest, len(numbers))

	var mu sync.Mutex
	var firstErr error
	wg := new(sync.WaitGroup)
	wg.Add(len(numbers))
	for _, number := range numbers {
		go func(number int) {
			defer wg.Done()
			pr, err := c.PullRequest(ctx, number)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			byNumber[number] = pr
		}(number)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return byNumber, nil
}

func (c *client) CreatePullRequest(ctx context.Context, input github.CreatePullRequestInput) (*github.PullRequest, error) {
	if c.config.User.LogGitHubCalls {
		fmt.Printf("> github create pull request %s -> %s\n", input.HeadRef, input.BaseRef)
	}

	owner := c.config.Repo.GitHubRepoOwner
	name := c.config.Repo.GitHubRepoName
	resp, _, err := c.rest.PullRequests.Create(ctx, owner, name, &gogithub.NewPullRequest{
		Title: gogithub.Ptr(input.Title),
		Head:  gogithub.Ptr(input.HeadRef),
		Base:  gogithub.Ptr(input.BaseRef),
		Body:  gogithub.Ptr(input.Body),
	})
	if err != nil {
		return nil, classify(err)
	}

	return &github.PullRequest{
		Number:  resp.GetNumber(),
		Title:   resp.GetTitle(),
		Body:    resp.GetBody(),
		HeadRef: input.HeadRef,
		BaseRef: input.BaseRef,
		URL:     resp.GetHTMLURL(),
	}, nil
}

func (c *client) UpdatePullRequest(ctx context.Context, number int, input github.UpdatePullRequestInput) error {
	if c.config.User.LogGitHubCalls {
		fmt.Printf("> github update pull request %d\n", number)
	}

	patch := &gogithub.PullRequest{
		Title: input.Title,
		Body:  input.Body,
	}
	if input.BaseRef != nil {
		patch.Base = &gogithub.PullRequestBranch{Ref: input.BaseRef}
	}

	owner := c.config.Repo.GitHubRepoOwner
	name := c.config.Repo.GitHubRepoName
	_, _, err := c.rest.PullRequests.Edit(ctx, owner, name, number, patch)
	if err != nil {
		return classify(err)
	}
	return nil
}

// classify maps REST transport errors onto the error kinds the engines
// dispatch on.
func classify(err error) error {
	resp, ok := err.(*gogithub.ErrorResponse)
	if !ok {
		return err
	}
	if resp.Response != nil && resp.Response.StatusCode == http.StatusUnprocessableEntity {
		return fmt.Errorf("%s: %w", resp.Message, github.ErrUnprocessable)
	}
	status := 0
	if resp.Response != nil {
		status = resp.Response.StatusCode
	}
	return &github.RemoteRejectError{Status: status, Body: resp.Message, Err: err}
}
