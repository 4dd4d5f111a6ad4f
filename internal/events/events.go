package events

import (
	"strings"
	"time"
)

// Kind identifies the type of a normalized development event. The values
// match the GitHub webhook event names so webhook and embed ingestion
// produce interchangeable records.
type Kind string

const (
	KindPush        Kind = "push"
	KindPullRequest Kind = "pull_request"
	KindIssue       Kind = "issues"
	KindCreate      Kind = "create"
	KindDelete      Kind = "delete"
	KindRelease     Kind = "release"
)

// MaxCommits caps the commit list carried by a push event. Longer pushes
// keep their full CommitCount but only the first MaxCommits entries.
const MaxCommits = 15

// Commit represents one commit inside a push event.
type Commit struct {
	SHA     string `json:"sha"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

// Event is a normalized development event from either the webhook or the
// embed ingestion path. Kind selects which of the per-kind field groups is
// populated; Repo, Sender and Timestamp are always set.
type Event struct {
	Kind      Kind      `json:"kind"`
	Repo      string    `json:"repo"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`

	// Push fields
	Branch      string   `json:"branch,omitempty"`
	Pusher      string   `json:"pusher,omitempty"`
	CommitCount int      `json:"commit_count,omitempty"`
	Commits     []Commit `json:"commits,omitempty"`
	CompareURL  string   `json:"compare_url,omitempty"`

	// Pull request fields
	Action       string `json:"action,omitempty"`
	Number       int    `json:"number,omitempty"`
	Title        string `json:"title,omitempty"`
	URL          string `json:"url,omitempty"`
	HeadRef      string `json:"head_ref,omitempty"`
	BaseRef      string `json:"base_ref,omitempty"`
	Merged       bool   `json:"merged,omitempty"`
	Additions    int    `json:"additions,omitempty"`
	Deletions    int    `json:"deletions,omitempty"`
	ChangedFiles int    `json:"changed_files,omitempty"`

	// Branch/tag lifecycle fields
	RefType string `json:"ref_type,omitempty"`
	Ref     string `json:"ref,omitempty"`

	// Release fields
	Tag         string `json:"tag,omitempty"`
	ReleaseName string `json:"release_name,omitempty"`
}

// Normalize enforces the model invariants: UTC timestamps, lower-cased
// actions and non-negative counters. It returns the event for chaining.
func (e *Event) Normalize() *Event {
	if !e.Timestamp.IsZero() {
		e.Timestamp = e.Timestamp.UTC()
	}
	e.Action = strings.ToLower(strings.TrimSpace(e.Action))
	if e.CommitCount < 0 {
		e.CommitCount = 0
	}
	if e.Number < 0 {
		e.Number = 0
	}
	if e.Additions < 0 {
		e.Additions = 0
	}
	if e.Deletions < 0 {
		e.Deletions = 0
	}
	if e.ChangedFiles < 0 {
		e.ChangedFiles = 0
	}
	if len(e.Commits) > MaxCommits {
		e.Commits = e.Commits[:MaxCommits]
	}
	return e
}
