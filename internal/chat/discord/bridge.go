package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/racebothq/racebot/internal/chat"
	"github.com/racebothq/racebot/internal/command"
)

const commandPrefix = "?"

// Bridge parses prefixed messages into command invocations and feeds
// them to the app.
type Bridge struct {
	session *discordgo.Session
	app     *command.App
}

func NewBridge(session *discordgo.Session, app *command.App) *Bridge {
	return &Bridge{session: session, app: app}
}

// Start registers the message handler and opens the gateway connection.
func (b *Bridge) Start() error {
	b.session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	b.session.AddHandler(b.onMessage)
	return b.session.Open()
}

func (b *Bridge) Close() error {
	return b.session.Close()
}

func (b *Bridge) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if !strings.HasPrefix(m.Content, commandPrefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(m.Content, commandPrefix))
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	inv := command.Invocation{
		RoomID:   m.ChannelID,
		RoomName: b.channelName(s, m.ChannelID),
		Actor: chat.Participant{
			ID:          m.Author.ID,
			DisplayName: displayName(m),
		},
		Args: args,
		Text: strings.TrimSpace(strings.TrimPrefix(
			strings.TrimPrefix(m.Content, commandPrefix+fields[0]), " ")),
	}
	for _, u := range m.Mentions {
		inv.Actor.Mentions = append(inv.Actor.Mentions, chat.Mention{
			ID:          u.ID,
			DisplayName: u.Username,
		})
	}

	if err := b.app.Dispatch(context.Background(), name, inv); err != nil {
		log.Error().Err(err).Str("command", name).Str("channel_id", m.ChannelID).Msg("command failed")
	}
}

func (b *Bridge) channelName(s *discordgo.Session, channelID string) string {
	if ch, err := s.State.Channel(channelID); err == nil {
		return ch.Name
	}
	ch, err := s.Channel(channelID)
	if err != nil {
		return ""
	}
	return ch.Name
}

func displayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	return m.Author.Username
}
