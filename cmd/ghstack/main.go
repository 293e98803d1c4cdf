package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/inigolabs/ghstack/config"
	"github.com/inigolabs/ghstack/config/config_parser"
	"github.com/inigolabs/ghstack/git/realgit"
	"github.com/inigolabs/ghstack/github/githubclient"
	"github.com/inigolabs/ghstack/stacker"
)

var (
	version = "dev"
	commit  = "dversion"
	date    = "unknown"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.With().Caller().Logger().Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func main() {
	gitcmd := realgit.NewGitCmd(config.DefaultConfig())

	cfg := config_parser.ParseConfig(gitcmd)
	if err := config_parser.CheckConfig(cfg); err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	gitcmd = realgit.NewGitCmd(cfg)

	ctx := context.Background()
	client := githubclient.NewGitHubClient(ctx, cfg)
	stack := stacker.NewStacker(cfg, client, gitcmd)

	app := &cli.App{
		Name:                 "ghstack",
		Usage:                "Stacked pull requests on GitHub, one per commit",
		HideVersion:          true,
		Version:              fmt.Sprintf("%s : %s : %s\n", version, date, commit),
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "profile",
				Value: false,
				Usage: "Show runtime profiling info",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Value: false,
				Usage: "Show verbose logging",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Value: false,
				Usage: "Show runtime debug info",
			},
		},
		Before: func(c *cli.Context) error {
			if c.IsSet("debug") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			if c.IsSet("profile") {
				stack.ProfilingEnable()
			}
			if c.IsSet("verbose") {
				cfg.User.LogGitCommands = true
				cfg.User.LogGitHubCalls = true
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:    "submit",
				Aliases: []string{"s"},
				Usage:   "Create or update one pull request per local commit",
				Action: func(c *cli.Context) error {
					_, err := stack.Submit(ctx, stacker.SubmitOptions{
						Message:      c.String("message"),
						UpdateFields: c.Bool("update-fields"),
						Short:        c.Bool("short"),
						NoSkip:       c.Bool("no-skip"),
					})
					return exit(err)
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "message",
						Aliases: []string{"m"},
						Usage:   "Description of the update, shown in the tracking branch history",
					},
					&cli.BoolFlag{
						Name:  "update-fields",
						Usage: "Overwrite pull request title and body from the local commit message",
					},
					&cli.BoolFlag{
						Name:  "short",
						Usage: "Print only the pull request URLs",
					},
					&cli.BoolFlag{
						Name:  "no-skip",
						Usage: "Refresh unchanged pull requests with a no-op update",
					},
				},
			},
			{
				Name:      "land",
				Usage:     "Ship an approved pull request into the default branch",
				ArgsUsage: "<pr-url>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						fmt.Printf("Usage: land <pr-url>\n")
						return cli.Exit("", 1)
					}
					return exit(stack.Land(ctx, c.Args().First()))
				},
			},
			{
				Name:  "unlink",
				Usage: "Strip pull request identifiers so the stack resubmits as new",
				Action: func(c *cli.Context) error {
					return exit(stack.Unlink(ctx))
				},
			},
			{
				Name:    "status",
				Aliases: []string{"st"},
				Usage:   "Show the local stack and its pull requests",
				Action: func(c *cli.Context) error {
					return exit(stack.Status(ctx))
				},
			},
			{
				Name:  "version",
				Usage: "Show version info",
				Action: func(c *cli.Context) error {
					return cli.Exit(c.App.Version, 0)
				},
			},
		},
		After: func(c *cli.Context) error {
			if c.IsSet("profile") {
				stack.ProfilingSummary()
			}
			return nil
		},
	}

	app.Run(os.Args)
}

// exit maps engine errors onto exit codes: 1 for situations the user can
// fix by rerunning after a pull or rebase, 2 for everything else.
func exit(err error) error {
	if err == nil {
		return nil
	}

	var (
		nonLinear *stacker.NonLinearStackError
		outOfDate *stacker.OutOfDateError
		rejected  *stacker.PushRejectedError
		conflict  *stacker.LandConflictError
	)
	switch {
	case errors.Is(err, stacker.ErrEmptyStack),
		errors.Is(err, stacker.ErrNotOnBranch),
		errors.As(err, &nonLinear),
		errors.As(err, &outOfDate),
		errors.As(err, &rejected),
		errors.As(err, &conflict):
		return cli.Exit(fmt.Sprintf("error: %s", err), 1)
	default:
		return cli.Exit(fmt.Sprintf("error: %s", err), 2)
	}
}
