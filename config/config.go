package config

type Config struct {
	Repo *RepoConfig
	User *UserConfig
}

type RepoConfig struct {
	GitHubRepoOwner string `default:"" yaml:"githubRepoOwner"`
	GitHubRepoName  string `default:"" yaml:"githubRepoName"`
	GitHubHost      string `default:"github.com" yaml:"githubHost"`
	GitHubRemote    string `default:"origin" yaml:"githubRemote"`

	// GitHubBranch overrides the branch pull requests land into. When
	// empty the remote's default branch is queried on every run.
	GitHubBranch string `default:"" yaml:"githubBranch"`

	// StackHeader is the marker line that opens the machine-owned
	// region of each pull request body.
	StackHeader string `default:"Stack" yaml:"stackHeader"`
}

type UserConfig struct {
	// GitHubUserName names the owner of the gh/<user>/ tracking refs.
	// When empty the authenticated login is used.
	GitHubUserName string `default:"" yaml:"githubUserName"`

	LogGitCommands bool `default:"false" yaml:"logGitCommands"`
	LogGitHubCalls bool `default:"false" yaml:"logGitHubCalls"`
}

func EmptyConfig() *Config {
	return &Config{
		Repo: &RepoConfig{},
		User: &UserConfig{},
	}
}

func DefaultConfig() *Config {
	return &Config{
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
}
