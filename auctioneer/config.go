package auctioneer

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/pomleague/auctioneer/auctioneer/database"
	"github.com/pomleague/auctioneer/auctioneer/ledger"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.Auction.applyDefaults()
	return &cfg, nil
}

type Config struct {
	Log     LogConfig           `toml:"log"`
	Bot     BotConfig           `toml:"bot"`
	DB      database.DBConfig   `toml:"db"`
	Sheets  ledger.SheetsConfig `toml:"sheets"`
	Auction AuctionConfig       `toml:"auction"`
}

type BotConfig struct {
	DevGuilds        []snowflake.ID `toml:"dev_guilds"`
	Token            string         `toml:"token"`
	GuildID          snowflake.ID   `toml:"guild_id"`
	AuctionChannelID snowflake.ID   `toml:"auction_channel_id"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type AuctionConfig struct {
	ExpiryHours           float64   `toml:"expiry_hours"`
	ReminderHours         []float64 `toml:"reminder_hours"`
	SweepIntervalSeconds  int       `toml:"sweep_interval_seconds"`
	SummaryRefreshSeconds int       `toml:"summary_refresh_seconds"`
}

func (c *AuctionConfig) applyDefaults() {
	if c.ExpiryHours <= 0 {
		c.ExpiryHours = 24
	}
	if len(c.ReminderHours) == 0 {
		c.ReminderHours = []float64{6, 1}
	}
	if c.SweepIntervalSeconds <= 0 {
		c.SweepIntervalSeconds = 60
	}
	if c.SummaryRefreshSeconds <= 0 {
		c.SummaryRefreshSeconds = 60
	}
}

func (c *AuctionConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryHours * float64(time.Hour))
}

func (c *AuctionConfig) Reminders() []time.Duration {
	out := make([]time.Duration, 0, len(c.ReminderHours))
	for _, h := range c.ReminderHours {
		out = append(out, time.Duration(h*float64(time.Hour)))
	}
	return out
}

func (c *AuctionConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *AuctionConfig) SummaryRefresh() time.Duration {
	return time.Duration(c.SummaryRefreshSeconds) * time.Second
}
