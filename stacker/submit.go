package stacker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/inigolabs/ghstack/git"
	"github.com/inigolabs/ghstack/github"
)

// SubmitOptions tune one submit run.
type SubmitOptions struct {
	// Message names the update in synthesized commit messages.
	Message string

	// UpdateFields overwrites the remote title and body from the local
	// commit message instead of only refreshing the stack prefix.
	UpdateFields bool

	// Short prints only the pull request URLs.
	Short bool

	// NoSkip forces a head update for unchanged commits, refreshing
	// their metadata with a no-op commit.
	NoSkip bool
}

// DiffMeta describes one submitted stack entry.
type DiffMeta struct {
	PRNumber int
	PRURL    string
	HeadOID  string
	Title    string
}

// Submit turns the commits of default..HEAD into a stack of pull
// requests, one per commit, creating or updating tracking triples as
// needed. The single atomic push of all synthesized refs is the commit
// point: before it no branch has moved (pull requests for new entries
// may already be open, since their URLs go into the orig trailers),
// after it the remote is authoritative and a rerun converges.
func (s *Stacker) Submit(ctx context.Context, opts SubmitOptions) ([]DiffMeta, error) {
	s.profiletimer.Step("Submit::Start")
	reason := opts.Message
	if reason == "" {
		reason = "Update"
	}

	if err := s.resolveIdentity(ctx); err != nil {
		return nil, err
	}
	s.profiletimer.Step("Submit::ResolveIdentity")

	if err := s.fetchStackRefs(); err != nil {
		return nil, err
	}
	s.profiletimer.Step("Submit::Fetch")

	upstreamTip, err := s.upstreamTip()
	if err != nil {
		return nil, err
	}

	commits, err := parseStack(s.gitcmd, upstreamTip)
	if err != nil {
		return nil, err
	}
	s.profiletimer.Step("Submit::ParseStack")

	var numbers []int
	for _, commit := range commits {
		if commit.Submitted() {
			numbers = append(numbers, commit.PRNumber)
		}
	}
	prs, err := s.github.PullRequests(ctx, numbers)
	if err != nil {
		return nil, err
	}
	s.profiletimer.Step("Submit::LoadPullRequests")

	remote := s.config.Repo.GitHubRemote
	entries, err := classifyStack(s.gitcmd, remote, s.username, upstreamTip, commits, prs, opts.NoSkip)
	if err != nil {
		return nil, err
	}
	s.profiletimer.Step("Submit::Classify")

	branches, err := s.gitcmd.RemoteBranches(remote)
	if err != nil {
		return nil, err
	}
	alloc := newIndexAllocator(branches, s.username)

	if err := s.synthesize(ctx, entries, upstreamTip, reason, alloc); err != nil {
		return nil, err
	}
	s.profiletimer.Step("Submit::Synthesize")

	if err := s.pushTrackingRefs(entries); err != nil {
		return nil, err
	}
	s.profiletimer.Step("Submit::Push")

	s.updateMetadata(ctx, entries, opts)
	s.profiletimer.Step("Submit::UpdateMetadata")

	top := entries[len(entries)-1]
	if top.effectiveOrig() != top.commit.Hash {
		if err := s.gitcmd.ResetSoft(top.effectiveOrig()); err != nil {
			return nil, fmt.Errorf("remote branches are updated but rewriting the local branch failed, rerun after resolving: %w", err)
		}
	}
	s.profiletimer.Step("Submit::RewriteLocal")

	diffs := make([]DiffMeta, 0, len(entries))
	for _, e := range entries {
		diffs = append(diffs, DiffMeta{
			PRNumber: e.pr.Number,
			PRURL:    e.pr.URL,
			HeadOID:  e.effectiveHead(),
			Title:    e.pr.Title,
		})
		if opts.Short {
			s.Printer.Printf("%s\n", e.pr.URL)
		} else {
			s.Printer.Printf("#%d %s : %s\n", e.pr.Number, e.action, e.pr.Title)
		}
	}
	return diffs, nil
}

// pushTrackingRefs advances every changed tracking ref in one atomic
// push: either the whole stack advances or none of it does.
func (s *Stacker) pushTrackingRefs(entries []*entry) error {
	var refspecs []string
	for _, e := range entries {
		if e.newBase != "" {
			refspecs = append(refspecs, e.newBase+":refs/heads/"+git.TrackingRef(s.username, e.index, "base"))
		}
		if e.newHead != "" {
			refspecs = append(refspecs, e.newHead+":refs/heads/"+git.TrackingRef(s.username, e.index, "head"))
		}
		if orig := e.effectiveOrig(); orig != e.remoteOrig {
			refspecs = append(refspecs, orig+":refs/heads/"+git.TrackingRef(s.username, e.index, "orig"))
		}
	}
	if len(refspecs) == 0 {
		return nil
	}

	if err := s.gitcmd.PushAtomic(s.config.Repo.GitHubRemote, refspecs); err != nil {
		return &PushRejectedError{Err: err}
	}
	return nil
}

// updateMetadata refreshes pull request fields bottom to top so a reader
// mid-update sees a consistent lower half. Failures are warnings: the
// branches are already pushed, and the patches are idempotent so the next
// run re-applies them.
func (s *Stacker) updateMetadata(ctx context.Context, entries []*entry, opts SubmitOptions) {
	numbers := make([]int, 0, len(entries))
	for _, e := range entries {
		numbers = append(numbers, e.pr.Number)
	}

	header := s.config.Repo.StackHeader
	for _, e := range entries {
		var input github.UpdatePullRequestInput

		body := renderBody(header, numbers, e.pr.Number, e.commit.Body, e.pr.Body, opts.UpdateFields)
		if !bodiesEqual(body, e.pr.Body) {
			input.Body = &body
		}
		if baseRef := git.TrackingRef(s.username, e.index, "base"); e.pr.BaseRef != baseRef {
			input.BaseRef = &baseRef
		}
		if opts.UpdateFields && e.pr.Title != e.commit.Subject {
			title := e.commit.Subject
			input.Title = &title
		}
		if input.Body == nil && input.BaseRef == nil && input.Title == nil {
			continue
		}

		if err := s.github.UpdatePullRequest(ctx, e.pr.Number, input); err != nil {
			log.Warn().Err(err).Int("pr", e.pr.Number).Msg("pull request metadata update failed")
			if !opts.Short {
				s.Printer.Printf("warning: could not update #%d metadata, will retry on next submit: %s\n", e.pr.Number, err)
			}
		}
	}
}
