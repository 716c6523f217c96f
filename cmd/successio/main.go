package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/core-coin/successio/internal/config"
	"github.com/core-coin/successio/internal/http_api"
	"github.com/core-coin/successio/internal/models"
	"github.com/core-coin/successio/internal/notificator"
	"github.com/core-coin/successio/internal/policy"
	"github.com/core-coin/successio/internal/repository"
	"github.com/core-coin/successio/internal/successio"
	"github.com/core-coin/successio/pkg/clock"
	"github.com/core-coin/successio/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "successio",
		Usage: "Successio tracks vault owner activity and drives timelocked succession",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"a"}, Usage: "HTTP API port"},
			&cli.StringFlag{Name: "public-base-url", Usage: "Base URL used in emailed links"},
			&cli.DurationFlag{Name: "sweep-interval", Usage: "Interval between inactivity sweeps"},
			&cli.IntFlag{Name: "sweep-workers", Usage: "Vaults evaluated in parallel during a sweep"},
			&cli.StringFlag{Name: "instance-id", Usage: "Identifier used for the sweep lock"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and run the periodic sweep",
				Action: serve,
			},
			{
				Name:   "sweep",
				Usage:  "Run one inactivity sweep and exit",
				Action: sweep,
			},
		},
		DefaultCommand: "serve",
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("public-base-url") {
		cfg.PublicBaseURL = c.String("public-base-url")
	}
	if c.IsSet("sweep-interval") {
		cfg.SweepInterval = c.Duration("sweep-interval")
	}
	if c.IsSet("sweep-workers") {
		cfg.SweepWorkers = c.Int("sweep-workers")
	}
	if c.IsSet("instance-id") {
		cfg.InstanceID = c.String("instance-id")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the wired components shared by both commands.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *repository.GormDB
	successio *successio.Successio
}

func setup(c *cli.Context) (*app, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %v", err)
	}

	// Initialize database
	db, err := repository.NewPostgresDB(cfg.PostgresDSN(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	// Initialize notificator
	mailer := notificator.NewEmailNotificator(log, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPSender)
	notifications := notificator.NewNotificator(log, mailer, cfg.PublicBaseURL)

	// Lifecycle events go to the ops chat when telegram is configured
	var events models.EventPublisher = notificator.NewLogPublisher(log)
	if cfg.TelegramBotToken != "" {
		telegram, err := notificator.NewTelegramNotificator(log, cfg.TelegramBotToken, cfg.TelegramOpsChatID)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize telegram: %v", err)
		}
		events = telegram
	}

	engine := successio.NewSuccessio(db, notifications, events, clock.System{}, policy.Default(), log, cfg)
	return &app{cfg: cfg, log: log, db: db, successio: engine}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Errorw("Failed to close database", "error", err)
	}
	_ = a.log.Sync()
}

func serve(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiServer := http_api.NewHTTPServer(a.successio, a.cfg.APIPort, a.log)
	go apiServer.Start()

	// Start the sweep loop; it returns once a signal cancels ctx
	a.successio.Start(ctx)

	return apiServer.Shutdown()
}

func sweep(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	result, sweepErr := a.successio.ProcessInactivityCheck(c.Context)
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if sweepErr != nil {
		return fmt.Errorf("sweep finished with %d failed vaults: %w", result.Failed, sweepErr)
	}
	return nil
}
