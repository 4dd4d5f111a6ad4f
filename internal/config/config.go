// Package config loads service configuration from an optional YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AdhubOrg/rebase-bot/internal/digest"
	"github.com/AdhubOrg/rebase-bot/internal/errors"
)

// FeedConfig identifies the channel the GitHub integration posts into.
type FeedConfig struct {
	ChannelID string `yaml:"channel_id"`
}

// DigestConfig identifies where digests go and who gets pinged.
type DigestConfig struct {
	ChannelID string `yaml:"channel_id"`
	Mention   string `yaml:"mention"`
}

// ChatConfig configures the chat-platform REST client.
type ChatConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// GitHubConfig configures the read-only GitHub lookups.
type GitHubConfig struct {
	Org      string        `yaml:"org"`
	Repo     string        `yaml:"repo"`
	Token    string        `yaml:"token"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// RateLimitConfig configures per-IP limiting on the webhook endpoint.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

// Config is the full service configuration.
type Config struct {
	ListenAddr    string          `yaml:"listen_addr"`
	Timezone      string          `yaml:"timezone"`
	PrimaryBranch string          `yaml:"primary_branch"`
	DigestSlots   []string        `yaml:"digest_slots"`
	Feed          FeedConfig      `yaml:"feed"`
	Digest        DigestConfig    `yaml:"digest"`
	Chat          ChatConfig      `yaml:"chat"`
	GitHub        GitHubConfig    `yaml:"github"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
}

// Default returns the built-in defaults: twice-daily digests in the team's
// timezone, "dev" as the primary branch.
func Default() *Config {
	return &Config{
		ListenAddr:    ":8080",
		Timezone:      "Asia/Manila",
		PrimaryBranch: "dev",
		DigestSlots:   []string{"12:00", "18:00"},
		Chat: ChatConfig{
			Timeout: 15 * time.Second,
		},
		GitHub: GitHubConfig{
			CacheTTL: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 60,
			Burst:     10,
		},
	}
}

// Load reads configuration: defaults, then the YAML file at path (if any),
// then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("cannot read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("cannot parse config file %s", path), err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.Timezone, "DIGEST_TIMEZONE")
	setString(&c.PrimaryBranch, "PRIMARY_BRANCH")
	setString(&c.Feed.ChannelID, "FEED_CHANNEL_ID")
	setString(&c.Digest.ChannelID, "DIGEST_CHANNEL_ID")
	setString(&c.Digest.Mention, "DIGEST_MENTION")
	setString(&c.Chat.BaseURL, "CHAT_BASE_URL")
	setString(&c.Chat.Token, "CHAT_TOKEN")
	setString(&c.GitHub.Org, "GITHUB_ORG")
	setString(&c.GitHub.Repo, "GITHUB_REPO")
	setString(&c.GitHub.Token, "GITHUB_TOKEN")

	if v := os.Getenv("DIGEST_SLOTS"); v != "" {
		var slots []string
		for _, raw := range strings.Split(v, ",") {
			if raw = strings.TrimSpace(raw); raw != "" {
				slots = append(slots, raw)
			}
		}
		if len(slots) > 0 {
			c.DigestSlots = slots
		}
	}
}

// Validate checks that timezone and slots parse.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Slots(); err != nil {
		return err
	}
	return nil
}

// Location resolves the canonical digest timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("unknown timezone %q", c.Timezone), err)
	}
	return loc, nil
}

// Slots parses the configured HH:MM slot list.
func (c *Config) Slots() ([]digest.Slot, error) {
	slots := make([]digest.Slot, 0, len(c.DigestSlots))
	for _, raw := range c.DigestSlots {
		slot, err := digest.ParseSlot(raw)
		if err != nil {
			return nil, errors.NewConfigurationError("invalid digest slot", err)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
