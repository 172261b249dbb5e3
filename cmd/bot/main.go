package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"barberbot/internal/api"
	"barberbot/internal/audit"
	"barberbot/internal/booking"
	"barberbot/internal/bot"
	"barberbot/internal/config"
	"barberbot/internal/db"
	"barberbot/internal/events"
	"barberbot/internal/finance"
	"barberbot/internal/health"
	"barberbot/internal/metrics"
	"barberbot/internal/reminders"
	"barberbot/internal/session"
	"barberbot/internal/slots"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("BARBER_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil && cfg.Logging.Level != "" {
		logger = logger.Level(level)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("load timezone")
	}

	database, err := db.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	holidays := loadCatalog(ctx, cfg, database, &logger)

	calc, err := slots.NewCalculator(cfg.ScheduleSettings(holidays), loc, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid schedule")
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	bookings, finances := newSessionStores(cfg, rdb)
	go session.RunSweeper(ctx, cfg.SweepInterval(), &logger,
		func(name string, removed int) { metrics.AddSessionsExpired(name, removed) },
		map[string]session.Sweeper{"booking": bookings, "financial": finances},
	)

	bus := events.NewBus()
	if len(cfg.Events.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Events.Brokers, cfg.EventsTopic()), 0, &logger)
		bus.SubscribeAll(publisher.Handle)
		go publisher.Run(ctx)
	}

	tg, err := bot.NewTelegramTransport(cfg.Telegram.BotToken, cfg.Telegram.Debug, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram init error")
	}
	rps, burst := cfg.OutboundLimit()
	transport := bot.NewRateLimitedTransport(tg, rps, burst)

	b, err := bot.New(bot.Deps{
		Repo:        database,
		Transport:   transport,
		Calc:        calc,
		Bookings:    bookings,
		Finances:    finances,
		Bus:         bus,
		Exporter:    audit.NewExporter(database, audit.NewExcelizeWriter, loc),
		OwnerPhone:  cfg.Owner.Phone,
		BotName:     cfg.Owner.BotName,
		MenuDays:    cfg.MenuDays(),
		HorizonDays: cfg.HorizonDays(),
		ExportDir:   cfg.Export.Path,
	}, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}
	if err := b.RestoreManagerChannel(ctx); err != nil {
		logger.Error().Err(err).Msg("restore manager channel")
	}

	if cfg.Reminders.Enabled {
		svc := reminders.NewService(reminders.Config{
			CheckInterval: cfg.ReminderInterval(),
			Lead:          cfg.ReminderLead(),
		}, database, reminders.TextNotifier{Sender: transport}, loc, calc.Now, &logger)
		go svc.Run(ctx)
	}

	if cfg.Backup.Enabled {
		backups := db.NewBackupService(database, db.BackupOptions{
			Dir:       cfg.Backup.Path,
			Interval:  cfg.BackupInterval(),
			Retention: cfg.BackupRetention(),
		}, &logger)
		go backups.Run(ctx)
	}

	checks := []health.Check{{Name: "db", Ping: database.PingContext}}
	if rdb != nil {
		checks = append(checks, health.Check{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }})
	}
	checker := health.NewChecker(time.Second, checks...)
	go serve(ctx, "health", cfg.HealthPort(), checker.Handler(), &logger)
	if port := cfg.Monitoring.GRPCHealthPort; port > 0 {
		go func() {
			if err := checker.ServeGRPC(ctx, fmt.Sprintf(":%d", port), 0, &logger); err != nil {
				logger.Error().Err(err).Msg("grpc health server error")
			}
		}()
	}
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.MetricsPort(), &logger)
	}
	if cfg.API.Enabled {
		router := api.NewRouter(api.NewHandler(database, calc, &logger))
		go serve(ctx, "api", cfg.APIPort(), router, &logger)
	}

	inbound := make(chan bot.Message, 64)
	go func() {
		defer close(inbound)
		tg.Listen(ctx, inbound, b.OnConnected)
	}()

	logger.Info().Msg("Barber bot started")
	b.Run(ctx, inbound)
	logger.Info().Msg("Barber bot stopped")
}

// loadCatalog syncs services.yaml into the database and keeps watching it for
// added or deactivated services. Holidays are read once at startup. Without
// the file, an empty database is seeded with the default catalog.
func loadCatalog(ctx context.Context, cfg *config.Config, database *db.DB, logger *zerolog.Logger) []string {
	cat, err := config.LoadCatalog(cfg.ServicesPath)
	if err == nil {
		if err := database.SyncServices(ctx, cat.ModelServices()); err != nil {
			logger.Fatal().Err(err).Msg("sync services")
		}
		go cat.Watch(ctx, cfg.ServicesPath, 0, logger, func(c *config.Catalog) {
			if err := database.SyncServices(ctx, c.ModelServices()); err != nil {
				logger.Error().Err(err).Msg("sync services")
			}
		})
		return cat.HolidayDates()
	}
	if !errors.Is(err, os.ErrNotExist) {
		logger.Fatal().Err(err).Str("path", cfg.ServicesPath).Msg("load services catalog")
	}

	logger.Warn().Str("path", cfg.ServicesPath).Msg("services catalog not found, using defaults")
	n, err := database.CountServices(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("count services")
	}
	if n == 0 {
		if err := database.SyncServices(ctx, config.DefaultCatalog().ModelServices()); err != nil {
			logger.Fatal().Err(err).Msg("seed services")
		}
	}
	return nil
}

func newSessionStores(cfg *config.Config, rdb *redis.Client) (session.Store[booking.Session], session.Store[finance.Session]) {
	bookingPolicy := session.Policy{TTL: cfg.BookingTTL()}
	financePolicy := session.Policy{TTL: cfg.FinancialTTL()}
	if cfg.SessionBackend() == "redis" {
		return session.NewRedisStore[booking.Session](rdb, "barberbot:booking:", bookingPolicy, time.Now),
			session.NewRedisStore[finance.Session](rdb, "barberbot:financial:", financePolicy, time.Now)
	}
	return session.NewMemoryStore[booking.Session](bookingPolicy, time.Now),
		session.NewMemoryStore[finance.Session](financePolicy, time.Now)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve(ctx, "metrics", port, mux, logger)
}

func serve(ctx context.Context, name string, port int, handler http.Handler, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
