package config_parser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ejoffe/rake"
	"github.com/rs/zerolog/log"

	"github.com/inigolabs/ghstack/config"
	"github.com/inigolabs/ghstack/git"
)

// ParseConfig loads the tool configuration: struct defaults, then the
// repository config file, then the user config file. Repo owner and name
// are discovered from the git remote when the config file doesn't set them.
func ParseConfig(gitcmd git.GitOps) *config.Config {
	cfg := config.EmptyConfig()

	rake.LoadSources(cfg.Repo,
		rake.DefaultSource(),
		rake.YamlFileSource(RepoConfigFilePath(gitcmd)),
	)
	rake.LoadSources(cfg.User,
		rake.DefaultSource(),
		rake.YamlFileSource(UserConfigFilePath()),
	)

	if cfg.Repo.GitHubRepoOwner == "" || cfg.Repo.GitHubRepoName == "" {
		var remotes string
		gitcmd.MustGit("remote -v", &remotes)
		host, owner, name := parseRemote(remotes, cfg.Repo.GitHubRemote)
		if cfg.Repo.GitHubRepoOwner == "" {
			cfg.Repo.GitHubRepoOwner = owner
		}
		if cfg.Repo.GitHubRepoName == "" {
			cfg.Repo.GitHubRepoName = name
		}
		if host != "" {
			cfg.Repo.GitHubHost = host
		}
	}

	log.Debug().Interface("Config", cfg).Msg("ParseConfig")
	return cfg
}

// CheckConfig validates that the loaded config is usable.
func CheckConfig(cfg *config.Config) error {
	if cfg.Repo.GitHubRepoOwner == "" || cfg.Repo.GitHubRepoName == "" {
		return fmt.Errorf("unable to determine github repo owner and name, set githubRepoOwner and githubRepoName in %q", repoConfigFileName)
	}
	return nil
}

const repoConfigFileName = ".ghstack.yml"

// RepoConfigFilePath returns the path of the per-repository config file.
func RepoConfigFilePath(gitcmd git.GitOps) string {
	return filepath.Join(gitcmd.RootDir(), repoConfigFileName)
}

// UserConfigFilePath returns the path of the per-user config file.
func UserConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return repoConfigFileName
	}
	return filepath.Join(home, repoConfigFileName)
}

var remoteRegex = regexp.MustCompile(`(?m)^(\S+)\s+(?:https://([^/\s]+)/([^/\s]+)/([^/\s]+?)(?:\.git)?|git@([^:\s]+):([^/\s]+)/([^/\s]+?)(?:\.git)?)\s+\(fetch\)$`)

// parseRemote extracts host, owner and repo name from `git remote -v`
// output for the configured remote.
func parseRemote(remotes, remoteName string) (host, owner, name string) {
	for _, m := range remoteRegex.FindAllStringSubmatch(remotes, -1) {
		if m[1] != remoteName {
			continue
		}
		if m[2] != "" {
			return m[2], m[3], m[4]
		}
		return m[5], m[6], m[7]
	}
	return "", "", ""
}
