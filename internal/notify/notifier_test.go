package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdhubOrg/rebase-bot/internal/delivery"
	"github.com/AdhubOrg/rebase-bot/internal/digest"
)

type sentMessage struct {
	channelID string
	content   string
	embeds    []delivery.Embed
}

type fakeMessenger struct {
	sent []sentMessage
}

func (f *fakeMessenger) Send(_ context.Context, channelID, content string, embeds []delivery.Embed) error {
	f.sent = append(f.sent, sentMessage{channelID, content, embeds})
	return nil
}

func (f *fakeMessenger) History(context.Context, string, time.Time, int) ([]delivery.Message, error) {
	return nil, nil
}

func TestPublishDigest(t *testing.T) {
	m := &fakeMessenger{}
	n := NewDigestNotifier(m, "digest-channel", "@everyone", "dev")

	sum := digest.Summary{
		GeneratedAt: time.Date(2026, 8, 24, 18, 0, 0, 0, time.UTC),
		Title:       "Rebase Digest — 06:00 PM",
		Body:        "digest body",
	}
	require.NoError(t, n.PublishDigest(context.Background(), sum))

	require.Len(t, m.sent, 1)
	assert.Equal(t, "digest-channel", m.sent[0].channelID)
	assert.Equal(t, "@everyone", m.sent[0].content)
	require.Len(t, m.sent[0].embeds, 1)
	assert.Equal(t, sum.Title, m.sent[0].embeds[0].Title)
	assert.Equal(t, "digest body", m.sent[0].embeds[0].Description)
}

func TestPublishDigestManualSkipsMention(t *testing.T) {
	m := &fakeMessenger{}
	n := NewDigestNotifier(m, "digest-channel", "@everyone", "dev")

	require.NoError(t, n.PublishDigest(context.Background(), digest.Summary{Manual: true}))

	require.Len(t, m.sent, 1)
	assert.Empty(t, m.sent[0].content, "manual digests do not ping the team")
}

func TestPublishWarning(t *testing.T) {
	m := &fakeMessenger{}
	n := NewDigestNotifier(m, "digest-channel", "@everyone", "dev")
	slot := digest.Slot{Hour: 18}

	require.NoError(t, n.PublishWarning(context.Background(), digest.CheckpointSoftWarning, slot))
	require.NoError(t, n.PublishWarning(context.Background(), digest.CheckpointHardWarning, slot))

	require.Len(t, m.sent, 2)

	soft := m.sent[0].embeds[0].Description
	assert.Contains(t, soft, "18:00")
	assert.Contains(t, soft, "git fetch origin && git rebase origin/dev")

	hard := m.sent[1].embeds[0].Description
	assert.Contains(t, hard, "10 minutes")
	assert.Equal(t, "@everyone", m.sent[1].content, "warnings always ping")
}

func TestPublishWarningUnknownCheckpoint(t *testing.T) {
	m := &fakeMessenger{}
	n := NewDigestNotifier(m, "digest-channel", "", "dev")

	require.NoError(t, n.PublishWarning(context.Background(), digest.CheckpointNone, digest.Slot{}))
	assert.Empty(t, m.sent)
}
