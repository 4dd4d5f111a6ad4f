// Package delivery is the boundary to the chat platform: sending digest
// messages and reading channel history for backfill. The platform connection
// itself is an external collaborator; this package only models the two calls
// the core needs.
package delivery

import (
	"context"
	"time"
)

// Embed is one visual block inside a chat message. The GitHub integration
// posts its activity as embeds, which the feed parser reconstructs into
// events.
type Embed struct {
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
	AuthorName  string    `json:"author_name,omitempty"`
	Color       int       `json:"color,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

// Message is one chat message as seen by the ingestion path.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Author    string    `json:"author"`
	Bot       bool      `json:"bot"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Embeds    []Embed   `json:"embeds,omitempty"`
}

// Messenger sends messages to and reads history from the chat platform.
// Implementations are assumed reliable; rate-limit handling is theirs.
type Messenger interface {
	// Send posts a message with optional mention content and embeds.
	Send(ctx context.Context, channelID, content string, embeds []Embed) error

	// History returns messages posted in the channel after the given time,
	// oldest first, up to limit.
	History(ctx context.Context, channelID string, after time.Time, limit int) ([]Message, error)
}
