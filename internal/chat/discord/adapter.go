// Package discord adapts the chat surface to Discord via discordgo.
// Race rooms map to threads under the calling channel and direct
// messages go through per-user DM channels.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const threadArchiveMinutes = 1440

// Adapter implements chat.Adapter on a discordgo session.
type Adapter struct {
	session *discordgo.Session
}

func NewAdapter(session *discordgo.Session) *Adapter {
	return &Adapter{session: session}
}

func (a *Adapter) SendText(ctx context.Context, roomID, text string) (string, error) {
	msg, err := a.session.ChannelMessageSend(roomID, text, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send message to %s: %w", roomID, err)
	}
	return msg.ID, nil
}

func (a *Adapter) EditText(ctx context.Context, roomID, messageID, text string) error {
	if _, err := a.session.ChannelMessageEdit(roomID, messageID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit message %s in %s: %w", messageID, roomID, err)
	}
	return nil
}

func (a *Adapter) Pin(ctx context.Context, roomID, messageID string) error {
	if err := a.session.ChannelMessagePin(roomID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("pin message %s in %s: %w", messageID, roomID, err)
	}
	return nil
}

// CreateRoom opens a public thread under the parent channel.
func (a *Adapter) CreateRoom(ctx context.Context, parentID, name string) (string, error) {
	thread, err := a.session.ThreadStart(parentID, name, discordgo.ChannelTypeGuildPublicThread,
		threadArchiveMinutes, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create thread %q under %s: %w", name, parentID, err)
	}
	return thread.ID, nil
}

func (a *Adapter) SendDirect(ctx context.Context, participantID, text string) error {
	dm, err := a.session.UserChannelCreate(participantID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm channel for %s: %w", participantID, err)
	}
	if _, err := a.session.ChannelMessageSend(dm.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send dm to %s: %w", participantID, err)
	}
	return nil
}
