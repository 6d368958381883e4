package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casino_backoffice/internal/api"
	"casino_backoffice/internal/bonus"
	"casino_backoffice/internal/config"
	"casino_backoffice/internal/event"
	"casino_backoffice/internal/game"
	"casino_backoffice/internal/notify"
	"casino_backoffice/internal/outbox"
	"casino_backoffice/internal/player"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)

	if err := godotenv.Load(); err != nil {
		log.Warn("Could not load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	db, err := gorm.Open(postgres.Open(cfg.DBConnStr), &gorm.Config{TranslateError: true})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	err = db.AutoMigrate(
		&player.Player{},
		&game.Game{},
		&bonus.Bonus{},
		&bonus.BonusClaim{},
		&bonus.WageringEvent{},
		&outbox.Message{},
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}

	playerRepo := player.NewPlayerRepository(db)
	gameRepo := game.NewGameRepository(db)
	bonusRepo := bonus.NewBonusRepository(db)
	claimRepo := bonus.NewBonusClaimRepository(db)
	outboxRepo := outbox.NewRepository(db)

	hub := notify.NewHub()
	dispatcher := event.NewDispatcher()

	// Services and the relay share one publisher, so an event dispatched
	// inline post-commit is not delivered a second time when the relay
	// republishes its outbox row.
	events := outbox.NewEventPublisher(dispatcher)

	playerService := player.NewService(db, playerRepo, outboxRepo, events)
	bonusService := bonus.NewService(db, bonusRepo, claimRepo, playerRepo, gameRepo, outboxRepo, events)

	registerEventHandlers(dispatcher, hub, bonusService, cfg)
	for _, eventType := range event.KnownTypes() {
		if dispatcher.HandlerCount(eventType) == 0 {
			log.WithField("event_type", eventType).Fatal("No handler registered for event type")
		}
	}

	var publisher outbox.Publisher = events
	if cfg.AMQPURL != "" {
		amqpPub, err := outbox.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			log.WithError(err).Fatal("Failed to set up AMQP publisher")
		}
		defer amqpPub.Close()
		publisher = outbox.FanoutPublisher{publisher, amqpPub}
	}

	relay := outbox.NewRelay(db, outboxRepo, publisher)
	relay.PollInterval = cfg.OutboxPollInterval
	relay.BatchSize = cfg.OutboxBatchSize
	relay.MaxAttempts = cfg.OutboxMaxAttempts
	relay.Retention = cfg.OutboxRetention

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go relay.Start(ctx)

	r := gin.Default()
	router := api.NewRouter(playerService, bonusService, gameRepo, hub, cfg.JWTSecret)
	router.Register(r)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}

// registerEventHandlers wires every post-commit side effect. Handlers run
// outside the originating transaction and fail independently.
func registerEventHandlers(dispatcher *event.Dispatcher, hub *notify.Hub, bonusService *bonus.Service, cfg *config.Config) {
	dispatcher.Register(event.TypeBonusClaimed, func(ctx context.Context, e event.Event) error {
		claimed := e.(event.BonusClaimed)
		hub.SendPlayerNotification(claimed.PlayerID, "bonus_claimed", claimed)
		hub.SendAdminNotification("bonus_claimed", claimed)
		return nil
	})
	dispatcher.Register(event.TypeBonusClaimed, bonusService.InvalidateFeatureCache)

	dispatcher.Register(event.TypeWageringCompleted, func(ctx context.Context, e event.Event) error {
		done := e.(event.WageringCompleted)
		hub.SendPlayerNotification(done.PlayerID, "wagering_completed", done)
		hub.SendAdminNotification("wagering_completed", done)
		return nil
	})

	dispatcher.Register(event.TypeClaimStatusChanged, func(ctx context.Context, e event.Event) error {
		changed := e.(event.ClaimStatusChanged)
		hub.SendPlayerNotification(changed.PlayerID, "claim_status_changed", changed)
		return nil
	})
	dispatcher.Register(event.TypeClaimStatusChanged, bonusService.InvalidateFeatureCache)

	dispatcher.Register(event.TypePlayerRegistered, func(ctx context.Context, e event.Event) error {
		hub.SendAdminNotification("player_registered", e)
		return nil
	})

	if cfg.SMTPHost != "" && cfg.AdminTo != "" {
		mailer := notify.NewEmailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, cfg.AdminTo)
		dispatcher.Register(event.TypeWageringCompleted, func(ctx context.Context, e event.Event) error {
			done := e.(event.WageringCompleted)
			mailer.SendAlert("Bonus wagering completed",
				"Player "+done.PlayerID+" completed wagering for claim "+done.ClaimID)
			return nil
		})
	}
}
