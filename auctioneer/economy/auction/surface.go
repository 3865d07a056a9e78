package auction

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
)

// ThreadSurface abstracts the Discord operations the auction engine needs.
// The engine never touches the gateway client directly so tests can run
// against an in-memory surface.
type ThreadSurface interface {
	// CreateAuctionThread opens a public thread in the auction channel and
	// returns its ID.
	CreateAuctionThread(ctx context.Context, channelID snowflake.ID, name string) (snowflake.ID, error)

	PostMessage(ctx context.Context, channelID snowflake.ID, msg discord.MessageCreate) (snowflake.ID, error)
	EditMessage(ctx context.Context, channelID, messageID snowflake.ID, msg discord.MessageUpdate) error
	PinMessage(ctx context.Context, channelID, messageID snowflake.ID) error

	// LockThread archives and locks a thread so no further messages land in
	// it.
	LockThread(ctx context.Context, threadID snowflake.ID) error

	ThreadMembers(ctx context.Context, threadID snowflake.ID) ([]snowflake.ID, error)
	AddThreadMember(ctx context.Context, threadID, userID snowflake.ID) error
	RemoveThreadMember(ctx context.Context, threadID, userID snowflake.ID) error
}

type discordSurface struct {
	client bot.Client
}

// NewDiscordSurface wraps a disgo client as a ThreadSurface.
func NewDiscordSurface(client bot.Client) ThreadSurface {
	return &discordSurface{client: client}
}

func (s *discordSurface) CreateAuctionThread(ctx context.Context, channelID snowflake.ID, name string) (snowflake.ID, error) {
	thread, err := s.client.Rest().CreateThread(channelID, discord.GuildPublicThreadCreate{
		Name:                name,
		AutoArchiveDuration: discord.AutoArchiveDuration1w,
	}, rest.WithCtx(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to create thread: %w", err)
	}
	return thread.ID(), nil
}

func (s *discordSurface) PostMessage(ctx context.Context, channelID snowflake.ID, msg discord.MessageCreate) (snowflake.ID, error) {
	message, err := s.client.Rest().CreateMessage(channelID, msg, rest.WithCtx(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to post message: %w", err)
	}
	return message.ID, nil
}

func (s *discordSurface) EditMessage(ctx context.Context, channelID, messageID snowflake.ID, msg discord.MessageUpdate) error {
	_, err := s.client.Rest().UpdateMessage(channelID, messageID, msg, rest.WithCtx(ctx))
	return err
}

func (s *discordSurface) PinMessage(ctx context.Context, channelID, messageID snowflake.ID) error {
	return s.client.Rest().PinMessage(channelID, messageID, rest.WithCtx(ctx))
}

func (s *discordSurface) LockThread(ctx context.Context, threadID snowflake.ID) error {
	_, err := s.client.Rest().UpdateChannel(threadID, discord.GuildThreadUpdate{
		Archived: json.Ptr(true),
		Locked:   json.Ptr(true),
	}, rest.WithCtx(ctx))
	return err
}

func (s *discordSurface) ThreadMembers(ctx context.Context, threadID snowflake.ID) ([]snowflake.ID, error) {
	members, err := s.client.Rest().GetThreadMembers(threadID, rest.WithCtx(ctx))
	if err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

func (s *discordSurface) AddThreadMember(ctx context.Context, threadID, userID snowflake.ID) error {
	return s.client.Rest().AddThreadMember(threadID, userID, rest.WithCtx(ctx))
}

func (s *discordSurface) RemoveThreadMember(ctx context.Context, threadID, userID snowflake.ID) error {
	return s.client.Rest().RemoveThreadMember(threadID, userID, rest.WithCtx(ctx))
}
