package digest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AdhubOrg/rebase-bot/internal/events"
)

const (
	// BodyLimit is the delivery medium's hard ceiling for a message body.
	BodyLimit = 4096
	// FieldLimit is the ceiling for a single section.
	FieldLimit = 1024
	// inlineCommits is how many commits are shown per author before the
	// "+N more" suffix.
	inlineCommits = 3
)

// Summary is one rendered digest: the grouped, size-bounded text plus
// aggregate counts. It is produced fresh for every render and never mutated
// afterwards.
type Summary struct {
	GeneratedAt time.Time `json:"generated_at"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Empty       bool      `json:"empty"`
	Manual      bool      `json:"manual"`

	PrimaryCommits  int `json:"primary_commits"`
	OtherCommits    int `json:"other_commits"`
	PullRequests    int `json:"pull_requests"`
	BranchesCreated int `json:"branches_created"`
	BranchesDeleted int `json:"branches_deleted"`
	Issues          int `json:"issues"`
	Releases        int `json:"releases"`
}

// Renderer groups buffered events and renders the digest text. Output is
// deterministic: author groups keep first-appearance order, branch sets are
// sorted, and section order is fixed.
type Renderer struct {
	primaryBranch string
}

// NewRenderer creates a renderer treating the given branch as the
// high-detail primary bucket.
func NewRenderer(primaryBranch string) *Renderer {
	if primaryBranch == "" {
		primaryBranch = "dev"
	}
	return &Renderer{primaryBranch: primaryBranch}
}

// PrimaryBranch returns the configured primary branch name.
func (r *Renderer) PrimaryBranch() string {
	return r.primaryBranch
}

type primaryGroup struct {
	user        string
	commitCount int
	commits     []events.Commit
}

type otherGroup struct {
	user        string
	commitCount int
	branches    map[string]struct{}
}

type grouped struct {
	primary      []*primaryGroup
	primaryIndex map[string]*primaryGroup
	other        []*otherGroup
	otherIndex   map[string]*otherGroup
	prs          []events.Event
	created      []events.Event
	deleted      []events.Event
	issues       []events.Event
	releases     []events.Event
}

// Render groups the event snapshot and produces the digest summary.
func (r *Renderer) Render(evs []events.Event, now time.Time) Summary {
	g := r.group(evs)

	sum := Summary{
		GeneratedAt:     now,
		Title:           fmt.Sprintf("Rebase Digest — %s", now.Format("03:04 PM")),
		PullRequests:    len(g.prs),
		BranchesCreated: len(g.created),
		BranchesDeleted: len(g.deleted),
		Issues:          len(g.issues),
		Releases:        len(g.releases),
		Empty:           len(evs) == 0,
	}
	for _, pg := range g.primary {
		sum.PrimaryCommits += pg.commitCount
	}
	for _, og := range g.other {
		sum.OtherCommits += og.commitCount
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("```git fetch origin && git rebase origin/%s```\n", r.primaryBranch))

	if sec := r.renderPrimary(g, sum.PrimaryCommits); sec != "" {
		b.WriteString(Truncate(sec, FieldLimit))
	}
	if sec := renderPullRequests(g.prs); sec != "" {
		b.WriteString(Truncate(sec, FieldLimit))
	}
	if sec := renderBranches(g.created, g.deleted); sec != "" {
		b.WriteString(Truncate(sec, FieldLimit))
	}
	if sec := renderIssues(g.issues); sec != "" {
		b.WriteString(Truncate(sec, FieldLimit))
	}
	if sec := renderReleases(g.releases); sec != "" {
		b.WriteString(Truncate(sec, FieldLimit))
	}
	if sec := renderOther(g.other, sum.OtherCommits); sec != "" {
		b.WriteString(Truncate(sec, FieldLimit))
	}

	if sum.Empty {
		b.WriteString("*No activity since last digest.*")
	}

	sum.Body = Truncate(b.String(), BodyLimit)
	return sum
}

// group partitions a flat event snapshot into the six digest buckets.
// Insertion order is preserved inside each bucket and for the per-author
// groups, which keeps commit display chronological.
func (r *Renderer) group(evs []events.Event) grouped {
	g := grouped{
		primaryIndex: make(map[string]*primaryGroup),
		otherIndex:   make(map[string]*otherGroup),
	}

	for _, e := range evs {
		switch e.Kind {
		case events.KindPush:
			user := e.Pusher
			if user == "" {
				user = e.Sender
			}
			if e.Branch == r.primaryBranch {
				pg, ok := g.primaryIndex[user]
				if !ok {
					pg = &primaryGroup{user: user}
					g.primaryIndex[user] = pg
					g.primary = append(g.primary, pg)
				}
				pg.commitCount += e.CommitCount
				pg.commits = append(pg.commits, e.Commits...)
			} else {
				og, ok := g.otherIndex[user]
				if !ok {
					og = &otherGroup{user: user, branches: make(map[string]struct{})}
					g.otherIndex[user] = og
					g.other = append(g.other, og)
				}
				og.commitCount += e.CommitCount
				branch := e.Branch
				if branch == "" {
					branch = "?"
				}
				og.branches[branch] = struct{}{}
			}
		case events.KindPullRequest:
			g.prs = append(g.prs, e)
		case events.KindCreate:
			g.created = append(g.created, e)
		case events.KindDelete:
			g.deleted = append(g.deleted, e)
		case events.KindIssue:
			g.issues = append(g.issues, e)
		case events.KindRelease:
			g.releases = append(g.releases, e)
		}
	}

	return g
}

func (r *Renderer) renderPrimary(g grouped, total int) string {
	if len(g.primary) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Commits to `%s`** (%d)\n", r.primaryBranch, total)
	for _, pg := range g.primary {
		fmt.Fprintf(&b, "> **%s** pushed %d\n", pg.user, pg.commitCount)
		for i, c := range pg.commits {
			if i >= inlineCommits {
				break
			}
			fmt.Fprintf(&b, "> `%s` %s\n", c.SHA, c.Message)
		}
		if extra := len(pg.commits) - inlineCommits; extra > 0 {
			fmt.Fprintf(&b, "> *... +%d more*\n", extra)
		}
	}
	b.WriteString("\n")
	return b.String()
}

func renderPullRequests(prs []events.Event) string {
	if len(prs) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Pull Requests** (%d)\n", len(prs))
	for _, pr := range prs {
		action := pr.Action
		if action == "closed" && pr.Merged {
			action = "merged"
		}
		fmt.Fprintf(&b, "> #%d %s (*%s*)\n", pr.Number, pr.Title, action)
	}
	b.WriteString("\n")
	return b.String()
}

func renderBranches(created, deleted []events.Event) string {
	if len(created) == 0 && len(deleted) == 0 {
		return ""
	}

	tokens := make([]string, 0, len(created)+len(deleted))
	for _, e := range created {
		tokens = append(tokens, fmt.Sprintf("+ `%s`", refOrPlaceholder(e)))
	}
	for _, e := range deleted {
		tokens = append(tokens, fmt.Sprintf("- `%s`", refOrPlaceholder(e)))
	}
	return fmt.Sprintf("**Branches** %s\n", strings.Join(tokens, " "))
}

func renderIssues(issues []events.Event) string {
	if len(issues) == 0 {
		return ""
	}

	var b strings.Builder
	for _, iss := range issues {
		fmt.Fprintf(&b, "**Issue** #%d %s (*%s*)\n", iss.Number, iss.Title, iss.Action)
	}
	return b.String()
}

func renderReleases(releases []events.Event) string {
	if len(releases) == 0 {
		return ""
	}

	var b strings.Builder
	for _, rel := range releases {
		fmt.Fprintf(&b, "**Release** `%s` (*%s*)\n", rel.Tag, rel.Action)
	}
	return b.String()
}

func renderOther(other []*otherGroup, total int) string {
	if len(other) == 0 {
		return ""
	}

	parts := make([]string, 0, len(other))
	for _, og := range other {
		branches := make([]string, 0, len(og.branches))
		for br := range og.branches {
			branches = append(branches, br)
		}
		sort.Strings(branches)
		parts = append(parts, fmt.Sprintf("%s: %d on %s", og.user, og.commitCount, strings.Join(branches, ", ")))
	}
	return fmt.Sprintf("\n-# Other branches (%d commits): %s", total, strings.Join(parts, " | "))
}

func refOrPlaceholder(e events.Event) string {
	if e.Ref == "" {
		return "?"
	}
	return e.Ref
}

// Truncate cuts s to at most limit characters. The cut is a plain character
// cut, not semantic re-summarization.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
