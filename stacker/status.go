package stacker

import (
	"context"
	"errors"
)

// Status prints the local stack top-down with the pull request each
// commit maps to. Read-only.
func (s *Stacker) Status(ctx context.Context) error {
	s.profiletimer.Step("Status::Start")

	if err := s.resolveIdentity(ctx); err != nil {
		return err
	}
	if err := s.fetchStackRefs(); err != nil {
		return err
	}

	upstreamTip, err := s.upstreamTip()
	if err != nil {
		return err
	}
	commits, err := parseStack(s.gitcmd, upstreamTip)
	if errors.Is(err, ErrEmptyStack) {
		s.Printer.Printf("stack is empty\n")
		return nil
	}
	if err != nil {
		return err
	}
	s.profiletimer.Step("Status::ParseStack")

	for i := len(commits) - 1; i >= 0; i-- {
		commit := commits[i]
		if commit.Submitted() {
			s.Printer.Printf(" %.8s %s\n   %s\n", commit.Hash, commit.Subject, commit.PRURL)
		} else {
			s.Printer.Printf(" %.8s %s\n   (not submitted)\n", commit.Hash, commit.Subject)
		}
	}
	return nil
}
