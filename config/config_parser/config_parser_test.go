package config_parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRemoteHTTPS(t *testing.T) {
	remotes := "origin\thttps://github.com/acme/widgets.git (fetch)\n" +
		"origin\thttps://github.com/acme/widgets.git (push)\n"
	host, owner, name := parseRemote(remotes, "origin")
	assert.Equal(t, "github.com", host)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", name)
}

func TestParseRemoteSSH(t *testing.T) {
	remotes := "origin\tgit@github.com:acme/widgets.git (fetch)\n" +
		"origin\tgit@github.com:acme/widgets.git (push)\n"
	host, owner, name := parseRemote(remotes, "origin")
	assert.Equal(t, "github.com", host)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", name)
}

func TestParseRemotePicksConfiguredRemote(t *testing.T) {
	remotes := "upstream\thttps://github.com/acme/widgets.git (fetch)\n" +
		"upstream\thttps://github.com/acme/widgets.git (push)\n" +
		"origin\thttps://github.com/ann/widgets.git (fetch)\n" +
		"origin\thttps://github.com/ann/widgets.git (push)\n"
	_, owner, _ := parseRemote(remotes, "upstream")
	assert.Equal(t, "acme", owner)
}

func TestParseRemoteNoMatch(t *testing.T) {
	host, owner, name := parseRemote("", "origin")
	assert.Empty(t, host)
	assert.Empty(t, owner)
	assert.Empty(t, name)
}

func TestParseRemoteWithoutDotGitSuffix(t *testing.T) {
	remotes := "origin\thttps://github.com/acme/widgets (fetch)\n"
	_, _, name := parseRemote(remotes, "origin")
	assert.Equal(t, "widgets", name)
}
