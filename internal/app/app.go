package app

import (
	"database/sql"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/linemk/auth-service/internal/config"
	"github.com/linemk/auth-service/internal/dispatcher"
	"github.com/linemk/auth-service/internal/lib/otp"
	"github.com/linemk/auth-service/internal/lib/passhash"
	"github.com/linemk/auth-service/internal/service"
	"github.com/linemk/auth-service/internal/storage"
)

type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	DB         *sql.DB
	Dispatcher *dispatcher.Dispatcher
}

// NewApp создаёт новый экземпляр App: подключение к БД и слои storage -> service -> dispatcher
func NewApp(log *slog.Logger, cfg *config.Config) (*App, error) {
	dsn, err := cfg.Database.DSN()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build database dsn")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	d, err := newDispatcher(log, cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		Config:     cfg,
		Logger:     log,
		DB:         db,
		Dispatcher: d,
	}, nil
}

func newDispatcher(log *slog.Logger, cfg *config.Config, db *sql.DB) (*dispatcher.Dispatcher, error) {
	hasher, err := passhash.New(cfg.Auth.PasswordScheme)
	if err != nil {
		return nil, errors.Wrap(err, "invalid auth config")
	}
	if _, legacy := hasher.(passhash.SHA256); !legacy {
		log.Warn("password scheme is not sha256, existing hashes will not verify",
			slog.String("scheme", cfg.Auth.PasswordScheme))
	}

	userRepo := storage.NewUserRepository(db)
	authService := service.NewAuthService(log, db, userRepo, hasher, otp.Random{}, service.Options{
		ResetCodeTTL:       cfg.Auth.ResetCodeTTL,
		EnforceResetExpiry: cfg.Auth.EnforceResetExpiry,
	})

	return dispatcher.New(log, authService, cfg.CORS.MaxAge), nil
}
