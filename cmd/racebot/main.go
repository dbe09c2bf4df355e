package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/racebothq/racebot/internal/chat/discord"
	"github.com/racebothq/racebot/internal/clock"
	"github.com/racebothq/racebot/internal/command"
	"github.com/racebothq/racebot/internal/directory"
	"github.com/racebothq/racebot/internal/events"
	"github.com/racebothq/racebot/internal/gateway"
	"github.com/racebothq/racebot/internal/race"
	"github.com/racebothq/racebot/internal/ready"
	"github.com/racebothq/racebot/internal/registry"
	"github.com/racebothq/racebot/internal/streamid"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	configPath := getEnv("CONFIG_PATH", "config.yaml")
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
	}

	natsURL := getEnv("NATS_URL", "nats://localhost:4222")
	gatewayPort := getEnv("GATEWAY_PORT", "8081")
	discordToken := os.Getenv("DISCORD_TOKEN")
	if discordToken == "" {
		log.Fatal().Msg("DISCORD_TOKEN is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Stream-handle store
	dbCfg := streamid.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, dbCfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	store := streamid.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}

	// NATS JetStream
	nc, js, err := events.Connect(natsURL)
	if err != nil {
		log.Fatal().Err(err).Str("url", natsURL).Msg("failed to connect to NATS")
	}
	defer nc.Close()
	if err := events.EnsureStream(ctx, js); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure event stream")
	}
	bus := events.NewPublisher(js)

	// Race core
	clk := clock.NewReal()
	reg := registry.New(clk)

	var app *command.App
	coord := ready.New(clk, ready.AnnouncerFunc(func(ctx context.Context, roomID, text string) {
		app.Announce(ctx, roomID, text)
	}))
	coord.OnStarted(func(r *race.Race) {
		if err := bus.Publish(context.Background(), events.TypeRaceStarted, r.ID(), events.RaceStartedPayload{
			StartedAt: r.StartedAt(),
			Runners:   r.NumRunners(),
		}); err != nil {
			log.Error().Err(err).Str("room_id", r.ID()).Msg("failed to publish race started event")
		}
	})

	// Discord
	session, err := discordgo.New("Bot " + discordToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create discord session")
	}
	adapter := discord.NewAdapter(session)

	dir := directory.NewClient(cfg.Directory.BaseURL)
	app = command.NewApp(reg, coord, adapter, bus, store, dir, command.Config{
		CallChannels:  cfg.Bot.CallChannels,
		ResultsRoomID: cfg.Bot.ResultsRoomID,
		Admins:        cfg.Bot.Admins,
	})
	if err := app.LoadHandles(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load stream handles")
	}

	bridge := discord.NewBridge(session, app)
	if err := bridge.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to open discord connection")
	}
	defer bridge.Close()

	// Spectator gateway
	manager := gateway.NewManager(gateway.DefaultConfig())
	go manager.Run(ctx)

	consumer, err := gateway.NewEventConsumer(ctx, js, manager, gateway.DefaultConsumerConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway consumer")
	}
	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway consumer stopped")
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/ws", manager)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	server := &http.Server{
		Addr:    ":" + gatewayPort,
		Handler: c.Handler(mux),
	}
	go func() {
		log.Info().Str("port", gatewayPort).Msg("spectator gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("gateway server stopped")
		}
	}()

	log.Info().Msg("racebot started")
	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("gateway shutdown failed")
	}
}
