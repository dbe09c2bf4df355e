// Package chat defines the chat-platform surface the bot consumes. The
// core race logic never imports a platform SDK; it works entirely against
// these interfaces. The discord subpackage provides the real adapter.
package chat

import "context"

// Mention identifies a participant tagged in a command message.
type Mention struct {
	ID          string
	DisplayName string
}

// Participant describes the author of an inbound command together with
// anyone they mentioned.
type Participant struct {
	ID          string
	DisplayName string
	Mentions    []Mention
}

// MentionTag renders the platform tag for a participant id.
func MentionTag(id string) string {
	return "<@" + id + ">"
}

// Adapter performs the chat side effects the command layer requests.
type Adapter interface {
	// SendText posts text to a room and returns the message handle.
	SendText(ctx context.Context, roomID, text string) (messageID string, err error)
	// EditText replaces the content of a previously sent message.
	EditText(ctx context.Context, roomID, messageID, text string) error
	// Pin pins a previously sent message in its room.
	Pin(ctx context.Context, roomID, messageID string) error
	// CreateRoom opens a race room (a thread) under a parent channel.
	CreateRoom(ctx context.Context, parentID, name string) (roomID string, err error)
	// SendDirect messages a participant outside any room.
	SendDirect(ctx context.Context, participantID, text string) error
}
