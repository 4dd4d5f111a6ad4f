package feed

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AdhubOrg/rebase-bot/internal/delivery"
	"github.com/AdhubOrg/rebase-bot/internal/events"
)

// grammar is one {matcher, constructor} pair. Grammars are evaluated in
// order and the first title match wins. Ordering is load-bearing: the
// numbered pull request and issue forms are stricter subsets of the loose
// fallbacks below them and must stay ahead, or field extraction changes.
type grammar struct {
	name  string
	title *regexp.Regexp
	build func(m []string, e delivery.Embed) *events.Event
}

var (
	pushTitleRe = regexp.MustCompile(`^\[(.+):(.+)\] (\d+) new commits?`)

	// Commit lines come in two shapes: a markdown link
	// "[`sha`](url) message" or a plain "`sha` message". A trailing
	// " - author" suffix is discarded either way.
	commitLinkRe  = regexp.MustCompile("^\\[`([a-f0-9]+)`\\]\\(([^)]+)\\)\\s+(.+?)(?:\\s+-\\s+.+)?$")
	commitPlainRe = regexp.MustCompile("^`([a-f0-9]+)`\\s+(.+?)(?:\\s+-\\s+.+)?$")

	prNumberedRe = regexp.MustCompile(`(?i)^\[(.+)\] pull request #(\d+)\s+(.+?):\s+(.+)`)
	prLooseRe    = regexp.MustCompile(`(?i)^\[(.+)\] pull request (\w+):?\s*(?:#(\d+))?\s*(.*)$`)

	issueNumberedRe = regexp.MustCompile(`(?i)^\[(.+)\] issue #(\d+)\s+(.+?):\s+(.+)`)
	issueLooseRe    = regexp.MustCompile(`(?i)^\[(.+)\] issue (\w+):?\s*(?:#(\d+))?\s*(.*)$`)

	createRe = regexp.MustCompile("(?i)^\\[(.+)\\] new (\\w+) created: `?(.+?)`?$")
	deleteRe = regexp.MustCompile("(?i)^\\[(.+)\\] (\\w+) deleted: `?(.+?)`?$")

	releaseRe = regexp.MustCompile(`^\[(.+)\] (?:New )?[Rr]elease (.+?)(?:\s+(published|created|drafted))?$`)
)

var grammars = []grammar{
	{name: "push", title: pushTitleRe, build: buildPush},
	{name: "pull_request_numbered", title: prNumberedRe, build: buildPRNumbered},
	{name: "pull_request", title: prLooseRe, build: buildPRLoose},
	{name: "issue_numbered", title: issueNumberedRe, build: buildIssueNumbered},
	{name: "issue", title: issueLooseRe, build: buildIssueLoose},
	{name: "create", title: createRe, build: buildCreate},
	{name: "delete", title: deleteRe, build: buildDelete},
	{name: "release", title: releaseRe, build: buildRelease},
}

// Parse converts one free-text embed into a normalized event, or nil when no
// grammar matches. A nil result is a legitimate outcome (unrecognized
// embed), not an error, and callers skip it silently.
func Parse(e delivery.Embed) *events.Event {
	for _, g := range grammars {
		m := g.title.FindStringSubmatch(e.Title)
		if m == nil {
			continue
		}
		if ev := g.build(m, e); ev != nil {
			return ev.Normalize()
		}
	}
	return nil
}

func buildPush(m []string, e delivery.Embed) *events.Event {
	return &events.Event{
		Kind:        events.KindPush,
		Repo:        m[1],
		Sender:      author(e),
		Timestamp:   time.Now().UTC(),
		Branch:      m[2],
		Pusher:      author(e),
		CommitCount: atoiDefault(m[3]),
		Commits:     parseCommitLines(e.Description, e.URL),
		CompareURL:  e.URL,
	}
}

// parseCommitLines extracts the commit list from a push embed description,
// preserving line order and capping at events.MaxCommits. Lines that match
// neither accepted shape are skipped.
func parseCommitLines(description, fallbackURL string) []events.Commit {
	var commits []events.Commit

	for _, line := range strings.Split(strings.TrimSpace(description), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := commitLinkRe.FindStringSubmatch(line); m != nil {
			commits = append(commits, events.Commit{
				SHA:     m[1],
				URL:     m[2],
				Message: strings.TrimSpace(m[3]),
			})
			continue
		}

		if m := commitPlainRe.FindStringSubmatch(line); m != nil {
			commits = append(commits, events.Commit{
				SHA:     m[1],
				URL:     fallbackURL,
				Message: strings.TrimSpace(m[2]),
			})
		}
	}

	if len(commits) > events.MaxCommits {
		commits = commits[:events.MaxCommits]
	}
	return commits
}

func buildPRNumbered(m []string, e delivery.Embed) *events.Event {
	ev := basePR(m[1], e)
	ev.Number = atoiDefault(m[2])
	ev.Action = m[3]
	ev.Title = strings.TrimSpace(m[4])
	return ev
}

func buildPRLoose(m []string, e delivery.Embed) *events.Event {
	ev := basePR(m[1], e)
	ev.Action = m[2]
	ev.Number = atoiDefault(m[3])
	ev.Title = strings.TrimSpace(m[4])
	return ev
}

func basePR(repo string, e delivery.Embed) *events.Event {
	return &events.Event{
		Kind:      events.KindPullRequest,
		Repo:      repo,
		Sender:    author(e),
		Timestamp: time.Now().UTC(),
		URL:       e.URL,
		Merged:    strings.Contains(strings.ToLower(e.Title), "merged"),
	}
}

func buildIssueNumbered(m []string, e delivery.Embed) *events.Event {
	return &events.Event{
		Kind:      events.KindIssue,
		Repo:      m[1],
		Sender:    author(e),
		Timestamp: time.Now().UTC(),
		Number:    atoiDefault(m[2]),
		Action:    m[3],
		Title:     strings.TrimSpace(m[4]),
		URL:       e.URL,
	}
}

func buildIssueLoose(m []string, e delivery.Embed) *events.Event {
	return &events.Event{
		Kind:      events.KindIssue,
		Repo:      m[1],
		Sender:    author(e),
		Timestamp: time.Now().UTC(),
		Action:    m[2],
		Number:    atoiDefault(m[3]),
		Title:     strings.TrimSpace(m[4]),
		URL:       e.URL,
	}
}

func buildCreate(m []string, e delivery.Embed) *events.Event {
	return &events.Event{
		Kind:      events.KindCreate,
		Repo:      m[1],
		Sender:    author(e),
		Timestamp: time.Now().UTC(),
		RefType:   m[2],
		Ref:       m[3],
	}
}

func buildDelete(m []string, e delivery.Embed) *events.Event {
	return &events.Event{
		Kind:      events.KindDelete,
		Repo:      m[1],
		Sender:    author(e),
		Timestamp: time.Now().UTC(),
		RefType:   strings.ToLower(m[2]),
		Ref:       m[3],
	}
}

func buildRelease(m []string, e delivery.Embed) *events.Event {
	action := m[3]
	if action == "" {
		action = "published"
	}
	tag := strings.TrimSpace(m[2])

	return &events.Event{
		Kind:        events.KindRelease,
		Repo:        m[1],
		Sender:      author(e),
		Timestamp:   time.Now().UTC(),
		Tag:         tag,
		ReleaseName: tag,
		URL:         e.URL,
		Action:      action,
	}
}

func author(e delivery.Embed) string {
	if e.AuthorName == "" {
		return "unknown"
	}
	return e.AuthorName
}

// atoiDefault parses a numeric capture, defaulting to 0 when the capture is
// absent or malformed.
func atoiDefault(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
