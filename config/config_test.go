package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyConfig(t *testing.T) {
	expect := &Config{
		Repo: &RepoConfig{},
		User: &UserConfig{},
	}
	actual := EmptyConfig()
	assert.Equal(t, expect, actual)
}

func TestDefaultConfig(t *testing.T) {
	expect := &Config{
		Repo: &RepoConfig{
			GitHubRepoOwner: "",
			GitHubRepoName:  "",
			GitHubHost:      "github.com",
			GitHubRemote:    "origin",
			GitHubBranch:    "",
			StackHeader:     "Stack",
		},
		User: &UserConfig{
			GitHubUserName: "",
			LogGitCommands: false,
			LogGitHubCalls: false,
		},
	}
	actual := DefaultConfig()
	assert.Equal(t, expect, actual)
}
