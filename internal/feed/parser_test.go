package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdhubOrg/rebase-bot/internal/delivery"
	"github.com/AdhubOrg/rebase-bot/internal/events"
)

func TestParsePush(t *testing.T) {
	embed := delivery.Embed{
		Title:       "[adhub:dev] 2 new commits",
		Description: "[`abc1234`](url1) fix bug\n[`def5678`](url2) add test",
		URL:         "https://github.com/AdhubOrg/adhub/compare/dev",
		AuthorName:  "luceinrock",
	}

	ev := Parse(embed)
	require.NotNil(t, ev)

	assert.Equal(t, events.KindPush, ev.Kind)
	assert.Equal(t, "adhub", ev.Repo)
	assert.Equal(t, "dev", ev.Branch)
	assert.Equal(t, "luceinrock", ev.Pusher)
	assert.Equal(t, 2, ev.CommitCount)
	require.Len(t, ev.Commits, 2)
	assert.Equal(t, "abc1234", ev.Commits[0].SHA)
	assert.Equal(t, "url1", ev.Commits[0].URL)
	assert.Equal(t, "fix bug", ev.Commits[0].Message)
	assert.Equal(t, "def5678", ev.Commits[1].SHA)
	assert.Equal(t, embed.URL, ev.CompareURL)
}

func TestParsePushCommitShapes(t *testing.T) {
	tests := []struct {
		name        string
		description string
		wantSHAs    []string
		wantMsgs    []string
		wantURLs    []string
	}{
		{
			name:        "markdown link shape",
			description: "[`085e45a`](https://c/085e45a) fix(deploy): add uuid",
			wantSHAs:    []string{"085e45a"},
			wantMsgs:    []string{"fix(deploy): add uuid"},
			wantURLs:    []string{"https://c/085e45a"},
		},
		{
			name:        "plain backtick shape falls back to embed url",
			description: "`4f8ae12` always export router",
			wantSHAs:    []string{"4f8ae12"},
			wantMsgs:    []string{"always export router"},
			wantURLs:    []string{"compare-url"},
		},
		{
			name:        "trailing author suffix discarded",
			description: "[`2d758f1`](https://c/2d758f1) add constraint - luceinrock",
			wantSHAs:    []string{"2d758f1"},
			wantMsgs:    []string{"add constraint"},
			wantURLs:    []string{"https://c/2d758f1"},
		},
		{
			name:        "unparseable lines skipped",
			description: "not a commit line\n`aaa1111` real commit",
			wantSHAs:    []string{"aaa1111"},
			wantMsgs:    []string{"real commit"},
			wantURLs:    []string{"compare-url"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Parse(delivery.Embed{
				Title:       "[adhub:dev] 1 new commit",
				Description: tt.description,
				URL:         "compare-url",
				AuthorName:  "bob",
			})
			require.NotNil(t, ev)
			require.Len(t, ev.Commits, len(tt.wantSHAs))
			for i := range tt.wantSHAs {
				assert.Equal(t, tt.wantSHAs[i], ev.Commits[i].SHA)
				assert.Equal(t, tt.wantMsgs[i], ev.Commits[i].Message)
				assert.Equal(t, tt.wantURLs[i], ev.Commits[i].URL)
			}
		})
	}
}

func TestParsePushCommitCap(t *testing.T) {
	desc := ""
	for i := 0; i < 20; i++ {
		desc += "`abc1234` commit message\n"
	}

	ev := Parse(delivery.Embed{
		Title:       "[adhub:dev] 20 new commits",
		Description: desc,
		AuthorName:  "bob",
	})
	require.NotNil(t, ev)

	assert.Equal(t, 20, ev.CommitCount)
	assert.Len(t, ev.Commits, events.MaxCommits)
}

func TestParsePullRequest(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		wantAction string
		wantNumber int
		wantTitle  string
		wantMerged bool
	}{
		{
			name:       "numbered form",
			title:      "[adhub] Pull request #42 opened: add feature",
			wantAction: "opened",
			wantNumber: 42,
			wantTitle:  "add feature",
		},
		{
			name:       "loose form with colon",
			title:      "[adhub] Pull request opened: #42 add feature",
			wantAction: "opened",
			wantNumber: 42,
			wantTitle:  "add feature",
		},
		{
			name:       "loose form without number",
			title:      "[adhub] Pull request closed",
			wantAction: "closed",
			wantNumber: 0,
			wantTitle:  "",
		},
		{
			name:       "merged flag from title",
			title:      "[adhub] Pull request merged: #7 production fix",
			wantAction: "merged",
			wantNumber: 7,
			wantTitle:  "production fix",
			wantMerged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Parse(delivery.Embed{Title: tt.title, URL: "pr-url", AuthorName: "alice"})
			require.NotNil(t, ev)

			assert.Equal(t, events.KindPullRequest, ev.Kind)
			assert.Equal(t, "adhub", ev.Repo)
			assert.Equal(t, "alice", ev.Sender)
			assert.Equal(t, tt.wantAction, ev.Action)
			assert.Equal(t, tt.wantNumber, ev.Number)
			assert.Equal(t, tt.wantTitle, ev.Title)
			assert.Equal(t, tt.wantMerged, ev.Merged)
			assert.Equal(t, "pr-url", ev.URL)
		})
	}
}

func TestParseIssue(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		wantAction string
		wantNumber int
		wantTitle  string
	}{
		{
			name:       "numbered form",
			title:      "[adhub] Issue #18 opened: UUID missing from build",
			wantAction: "opened",
			wantNumber: 18,
			wantTitle:  "UUID missing from build",
		},
		{
			name:       "loose form",
			title:      "[adhub] Issue closed: #18 UUID missing from build",
			wantAction: "closed",
			wantNumber: 18,
			wantTitle:  "UUID missing from build",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Parse(delivery.Embed{Title: tt.title, AuthorName: "ferret9"})
			require.NotNil(t, ev)

			assert.Equal(t, events.KindIssue, ev.Kind)
			assert.Equal(t, tt.wantAction, ev.Action)
			assert.Equal(t, tt.wantNumber, ev.Number)
			assert.Equal(t, tt.wantTitle, ev.Title)
		})
	}
}

func TestParseBranchLifecycle(t *testing.T) {
	created := Parse(delivery.Embed{
		Title:      "[adhub] New branch created: `fix/identity-constraint`",
		AuthorName: "luceinrock",
	})
	require.NotNil(t, created)
	assert.Equal(t, events.KindCreate, created.Kind)
	assert.Equal(t, "branch", created.RefType)
	assert.Equal(t, "fix/identity-constraint", created.Ref)

	deleted := Parse(delivery.Embed{
		Title:      "[adhub] Branch deleted: old-feature",
		AuthorName: "luceinrock",
	})
	require.NotNil(t, deleted)
	assert.Equal(t, events.KindDelete, deleted.Kind)
	assert.Equal(t, "branch", deleted.RefType)
	assert.Equal(t, "old-feature", deleted.Ref)
}

func TestParseRelease(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		wantTag    string
		wantAction string
	}{
		{
			name:       "explicit action",
			title:      "[adhub] New Release v1.2.0 published",
			wantTag:    "v1.2.0",
			wantAction: "published",
		},
		{
			name:       "drafted",
			title:      "[adhub] Release v2.0.0-rc1 drafted",
			wantTag:    "v2.0.0-rc1",
			wantAction: "drafted",
		},
		{
			name:       "missing action defaults to published",
			title:      "[adhub] Release v1.3.0",
			wantTag:    "v1.3.0",
			wantAction: "published",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Parse(delivery.Embed{Title: tt.title, URL: "rel-url", AuthorName: "bot"})
			require.NotNil(t, ev)

			assert.Equal(t, events.KindRelease, ev.Kind)
			assert.Equal(t, tt.wantTag, ev.Tag)
			assert.Equal(t, tt.wantAction, ev.Action)
		})
	}
}

func TestParseMiss(t *testing.T) {
	tests := []string{
		"random chatter",
		"",
		"[adhub] something unrelated happened",
		"deploy finished successfully",
	}

	for _, title := range tests {
		t.Run(title, func(t *testing.T) {
			assert.Nil(t, Parse(delivery.Embed{Title: title, AuthorName: "bob"}))
		})
	}
}

func TestParseGrammarPrecedence(t *testing.T) {
	// The numbered PR form must win over the loose fallback; if precedence
	// flips, the action and number captures swap.
	ev := Parse(delivery.Embed{Title: "[adhub] Pull request #5 closed: cleanup", AuthorName: "bob"})
	require.NotNil(t, ev)

	assert.Equal(t, 5, ev.Number)
	assert.Equal(t, "closed", ev.Action)
	assert.Equal(t, "cleanup", ev.Title)
}

func TestParseDefaultsSender(t *testing.T) {
	ev := Parse(delivery.Embed{Title: "[adhub:dev] 1 new commit"})
	require.NotNil(t, ev)

	assert.Equal(t, "unknown", ev.Sender)
	assert.False(t, ev.Timestamp.IsZero())
}
