package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/pomleague/auctioneer/auctioneer"
	"github.com/pomleague/auctioneer/auctioneer/commands"
	"github.com/pomleague/auctioneer/auctioneer/database"
	"github.com/pomleague/auctioneer/auctioneer/database/repositories"
	"github.com/pomleague/auctioneer/auctioneer/economy/auction"
	"github.com/pomleague/auctioneer/auctioneer/handlers"
	"github.com/pomleague/auctioneer/auctioneer/ledger"
	"github.com/pomleague/auctioneer/auctioneer/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := auctioneer.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.AddSource)
	logger.System("Starting POM Auctioneer",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbStart := time.Now()
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		logger.Error("Database connection failed", err,
			slog.Duration("attempted_for", time.Since(dbStart)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		logger.Error("Failed to initialize database schema", err)
		os.Exit(-1)
	}
	logger.System("Database ready",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStart)))

	b := auctioneer.New(*cfg, version, commit)
	b.DB = db
	b.AuctionRepository = repositories.NewAuctionRepository(db.BunDB())
	b.PinnedRepository = repositories.NewPinnedMessageRepository(db.BunDB())

	sheets, err := ledger.NewSheetsClient(ctx, cfg.Sheets)
	if err != nil {
		logger.Error("Failed to connect to the balance sheet", err)
		os.Exit(-1)
	}
	b.Ledger = ledger.NewAdapter(sheets, cfg.Sheets.CacheTTL())

	b.AuctionManager = auction.NewManager(
		b.AuctionRepository,
		b.Ledger,
		cfg.Bot.GuildID,
		cfg.Bot.AuctionChannelID,
		cfg.Auction.Expiry(),
	)

	h := handler.New()
	auctionHandler := commands.NewAuctionHandler(b)
	auctionHandler.Register(h)
	h.Command("/bid", handlers.WrapWithLogging("bid", commands.BidHandler(b)))
	h.Command("/balances", handlers.WrapWithLogging("balances", commands.BalancesHandler(b)))
	h.Command("/discord-ids", handlers.WrapWithLogging("discord-ids", commands.DiscordIDsHandler(b)))

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		logger.Error("Failed to setup bot", err)
		os.Exit(-1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	// Discord-facing collaborators need the gateway client
	surface := auction.NewDiscordSurface(b.Client)
	b.Notifier = auction.NewNotifier(surface, cfg.Bot.AuctionChannelID, cfg.Auction.Expiry())
	b.Publisher = auction.NewPublisher(
		b.AuctionRepository,
		b.PinnedRepository,
		b.Ledger,
		surface,
		cfg.Bot.AuctionChannelID,
		cfg.Auction.Expiry(),
	)
	b.AuctionManager.SetSurface(surface, b.Notifier, b.Publisher)

	if *shouldSyncCommands {
		logger.System("Syncing commands", slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			logger.Error("Failed to sync commands", err)
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		logger.Error("Failed to open gateway", err)
		os.Exit(-1)
	}

	b.Scheduler = auction.NewScheduler(
		b.AuctionManager,
		b.AuctionRepository,
		b.Notifier,
		b.Publisher,
		cfg.Auction.SweepInterval(),
		cfg.Auction.SummaryRefresh(),
		cfg.Auction.Reminders(),
	)
	b.Scheduler.Start(context.Background())

	logger.System("Auctioneer is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s

	logger.System("Shutting down, waiting for the current sweep to finish...")
	b.Scheduler.Shutdown()
}
