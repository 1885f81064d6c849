// Command bookingbot runs the appointment booking bot: the Telegram
// transport (polling or webhook), the operational HTTP API and the
// background maintenance of the idempotency store.
//
// @title          go-booking-bot API
// @version        1.0
// @description    Appointment booking over chat: availability, reservations and conversation events.
// @BasePath       /api/v1
//
// @securityDefinitions.apikey  OperatorKey
// @in                          header
// @name                        X-API-Key
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-bot/internal/availability"
	"github.com/tbourn/go-booking-bot/internal/config"
	"github.com/tbourn/go-booking-bot/internal/conversation"
	"github.com/tbourn/go-booking-bot/internal/events"
	httpapi "github.com/tbourn/go-booking-bot/internal/http"
	"github.com/tbourn/go-booking-bot/internal/mailer"
	"github.com/tbourn/go-booking-bot/internal/observability"
	"github.com/tbourn/go-booking-bot/internal/repo"
	"github.com/tbourn/go-booking-bot/internal/services"
	"github.com/tbourn/go-booking-bot/internal/sysutil"
	"github.com/tbourn/go-booking-bot/internal/telegram"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

const purgeInterval = time.Hour

func main() {
	// .env is optional; real deployments use the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)

	ctx, stop := sysutil.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("bookingbot stopped")
	}
	log.Info().Msg("bookingbot stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver, observability.BookingAttributes(cfg)...)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// --- storage ---
	target := cfg.Storage.Path
	if cfg.Storage.Driver == config.DriverPostgres {
		target = cfg.Storage.DSN
	}
	db, err := repo.Open(cfg.Storage.Driver, target)
	if err != nil {
		return err
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return err
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	// --- domain services ---
	cal := availability.New(cfg.Schedule.Location)
	cal.OpenHour = cfg.Schedule.OpenHour
	cal.CloseHour = cfg.Schedule.CloseHour
	cal.CutoffHour = cfg.Schedule.CutoffHour
	cal.LookaheadDays = cfg.Schedule.LookaheadDays

	store := repo.Store{}
	verifications := services.NewVerificationService(db, store)
	bookings := services.NewReservationService(db, store, store, cal)
	bookings.Catalog = catalog
	if cfg.Events.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return err
		}
		defer pub.Close()
		bookings.Events = pub
	}

	states, closeStates, err := newStateStore(ctx, cfg.State)
	if err != nil {
		return err
	}
	defer closeStates()

	var mail mailer.Mailer = mailer.LogMailer{}
	if cfg.Mail.Host != "" {
		mail = mailer.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)
	}
	codes, err := mailer.NewCodeSender(mail, cfg.Mail.TemplatePath)
	if err != nil {
		return err
	}

	// --- transport ---
	var bot *telegram.Bot
	if cfg.Telegram.Mode != config.ModeOff {
		bot, err = telegram.New(cfg.Telegram.Token, cfg.Telegram.Debug)
		if err != nil {
			return err
		}
		bot.Dedupe = telegram.StoreDeduper{DB: db, TTL: cfg.IdempotencyTTL}
		bot.Secret = cfg.Telegram.WebhookSecret
		bot.PollTimeout = cfg.Telegram.PollTimeout
	}

	var dice services.DiceRoller = services.RandomDice{}
	if bot != nil {
		dice = bot
	}

	machine := conversation.NewMachine(states, verifications, bookings, catalog)
	machine.Mailer = codes
	machine.Discount = services.NewDiscountService(cfg.DiscountPercent, dice, cfg.Schedule.Location)
	machine.DiscountPercent = cfg.DiscountPercent
	if tag, err := language.Parse(cfg.Telegram.Locale); err == nil {
		machine.Locale = tag
	}

	var notifier conversation.Notifier
	if bot != nil {
		notifier = bot
	}
	dispatcher := conversation.NewDispatcher(machine, notifier)
	if bot != nil {
		bot.Events = dispatcher
	}

	// --- HTTP ---
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	deps := httpapi.Deps{DB: db, Bookings: bookings, Engine: dispatcher}
	if bot != nil && cfg.Telegram.Mode == config.ModeWebhook {
		deps.TelegramWebhook = bot.WebhookHandler()
	}
	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errc := make(chan error, 2)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", ver).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	switch {
	case bot == nil:
		log.Info().Msg("telegram disabled; serving HTTP API only")
	case cfg.Telegram.Mode == config.ModeWebhook:
		url := cfg.Telegram.WebhookURL + "/telegram/webhook/" + cfg.Telegram.WebhookSecret
		if err := bot.SetWebhook(url); err != nil {
			return err
		}
		log.Info().Str("base_url", cfg.Telegram.WebhookURL).Msg("telegram webhook registered")
	default:
		go func() {
			if err := bot.Run(ctx); err != nil {
				errc <- err
			}
		}()
	}

	go purgeProcessedEvents(ctx, db, purgeInterval)

	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.WriteTimeout)
	defer cancel()
	if serr := srv.Shutdown(sctx); serr != nil {
		log.Warn().Err(serr).Msg("http shutdown")
	}
	if derr := dispatcher.Close(sctx); derr != nil {
		log.Warn().Err(derr).Msg("dispatcher drain")
	}
	return err
}

// newStateStore returns the conversation store selected by cfg and a func
// releasing its resources.
func newStateStore(ctx context.Context, cfg config.StateConfig) (conversation.StateStore, func(), error) {
	if cfg.Store != config.StateRedis {
		mem := conversation.NewMemoryStore(cfg.TTL)
		gauge := conversation.StoredStatesGauge(mem)
		if err := prometheus.Register(gauge); err != nil {
			log.Warn().Err(err).Msg("register stored states gauge")
			return mem, func() {}, nil
		}
		return mem, func() { prometheus.Unregister(gauge) }, nil
	}
	client, err := conversation.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return conversation.NewRedisStore(client, cfg.TTL), func() { closeRedis(client) }, nil
}

func closeRedis(c *redis.Client) {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
}

// purgeProcessedEvents drops expired webhook and Idempotency-Key records.
func purgeProcessedEvents(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.PurgeExpiredProcessedEvents(ctx, db, time.Now().UTC())
			if err != nil {
				log.Warn().Err(err).Msg("purge processed events")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("processed events purged")
			}
		}
	}
}
