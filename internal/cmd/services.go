package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/trivia/internal/auth"
	"github.com/mcdev12/trivia/internal/game"
	"github.com/mcdev12/trivia/internal/gateway"
	"github.com/mcdev12/trivia/internal/notify"
	"github.com/mcdev12/trivia/internal/rooms"
	"github.com/mcdev12/trivia/internal/scheduler"
	"github.com/mcdev12/trivia/internal/users"
)

// Services holds the wired application graph.
type Services struct {
	Users         *users.App
	UserHandlers  *users.Handlers
	Resolver      *auth.Resolver
	Bus           notify.Bus
	Publisher     *notify.Publisher
	Scheduler     *scheduler.Scheduler
	Game          *game.App
	Rooms         *rooms.App
	RoomHandlers  *rooms.Handlers
	Manager       *gateway.ConnectionManager
	Gateway       *gateway.Handler
	EventConsumer *gateway.EventConsumer
}

func setupServices(pool *pgxpool.Pool, config *Config) *Services {
	// Wire up dependency injection chain
	// Repository layer → App layer → Transport layer

	tokenCfg := auth.TokenConfig{
		Secret: []byte(config.Auth.Secret),
		Issuer: config.Auth.Issuer,
		TTL:    config.TokenTTL(),
	}

	// Users
	userRepo := users.NewRepository(pool)
	userApp := users.NewApp(userRepo)
	userHandlers := users.NewHandlers(userApp, tokenCfg)

	// Single credential resolver shared by every channel
	resolver := auth.NewResolver(tokenCfg, userApp)

	// Notification bus. The service stays up without NATS; pushes degrade
	// to no-ops and clients fall back to polling.
	var bus notify.Bus
	publisherCfg := notify.DefaultPublisherConfig()
	publisherCfg.URL = config.NATS.URL
	publisher, err := notify.NewPublisher(publisherCfg)
	if err != nil {
		log.Warn().Err(err).Msg("NATS unavailable, realtime pushes disabled")
		bus = notify.NopBus{}
	} else {
		bus = publisher
	}

	clock := clockwork.NewRealClock()

	// Scheduler and game reference each other: the scheduler fires round
	// advances into the game app, the game app arms timers on the
	// scheduler. The advance func closes over the app pointer.
	var gameApp *game.App
	sched := scheduler.New(clock, func(ctx context.Context, gameID uuid.UUID, round int) error {
		return gameApp.AdvanceRound(ctx, gameID, round)
	}, scheduler.Config{
		Workers:   config.Scheduler.Workers,
		QueueSize: config.Scheduler.QueueSize,
	})
	gameApp = game.NewApp(game.Config{
		TotalRounds:   config.Game.TotalRounds,
		RoundDuration: config.RoundDuration(),
	}, clock, sched, bus, game.NewCatalog())

	// Rooms
	roomsApp := rooms.NewApp(rooms.NewStore(), gameApp, userApp, bus)
	gameApp.BindRoomCompleter(roomsApp)
	roomHandlers := rooms.NewHandlers(roomsApp, gameApp)

	// Gateway
	manager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	gatewayHandler := gateway.NewHandler(manager, resolver)

	var consumer *gateway.EventConsumer
	if publisher != nil {
		consumerCfg := gateway.DefaultJetStreamConsumerConfig()
		consumerCfg.URL = config.NATS.URL
		consumer, err = gateway.NewEventConsumer(manager, consumerCfg)
		if err != nil {
			log.Warn().Err(err).Msg("failed to create event consumer, websocket pushes disabled")
			consumer = nil
		}
	}

	return &Services{
		Users:         userApp,
		UserHandlers:  userHandlers,
		Resolver:      resolver,
		Bus:           bus,
		Publisher:     publisher,
		Scheduler:     sched,
		Game:          gameApp,
		Rooms:         roomsApp,
		RoomHandlers:  roomHandlers,
		Manager:       manager,
		Gateway:       gatewayHandler,
		EventConsumer: consumer,
	}
}
