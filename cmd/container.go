package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/tw-smith/authserver/pkg/auth"
	"github.com/tw-smith/authserver/pkg/auth/authinfra"
	"github.com/tw-smith/authserver/pkg/auth/authsrv"
	"github.com/tw-smith/authserver/pkg/config"
	"github.com/tw-smith/authserver/pkg/jobx"
	"github.com/tw-smith/authserver/pkg/jobx/jobxredis"
	"github.com/tw-smith/authserver/pkg/kernel"
	"github.com/tw-smith/authserver/pkg/logx"
	"github.com/tw-smith/authserver/pkg/notifx"
	"github.com/tw-smith/authserver/pkg/notifx/notifxconsole"
	"github.com/tw-smith/authserver/pkg/notifx/notifxses"
)

// Container wires every component from configuration. Construction is
// fail-fast: a bad secret, unreachable database or unknown provider stops
// the process before it serves a single request.
type Container struct {
	Config *config.Config

	DB    *sqlx.DB
	Redis *redis.Client

	Notifx    *notifx.Client
	JobClient *jobx.Client

	AuthService *authsrv.AuthService
	Middleware  *authsrv.SessionMiddleware
	Handlers    *authsrv.Handlers
}

// NewContainer builds the full dependency graph.
func NewContainer(cfg *config.Config) (*Container, error) {
	db, err := openDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	tenants := buildTenantRegistry(cfg.Auth)

	notifxClient, err := buildNotifxClient(cfg.Notifx, tenants)
	if err != nil {
		return nil, err
	}

	jobClient := jobx.NewClient(jobxredis.NewRedisQueue(rdb),
		jobx.WithQueues(cfg.Jobx.Queues...),
		jobx.WithConcurrency(cfg.Jobx.Concurrency),
		jobx.WithPollInterval(cfg.Jobx.PollInterval),
		jobx.WithShutdownTimeout(cfg.Jobx.ShutdownTimeout),
		jobx.WithDequeueTimeout(cfg.Jobx.DequeueTimeout),
		jobx.WithDefaultRetryDelay(cfg.Jobx.DefaultRetryDelay),
	)
	jobClient.Register(auth.JobTypeSendEmail, auth.NewEmailJobHandler(notifxClient, cfg.Notifx.FromAddress))

	codec, err := auth.NewTokenCodec(cfg.Auth.Algorithm, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}

	store := authinfra.NewPostgresAccountStore(db)
	hasher := auth.NewArgon2Hasher()
	secrets := auth.NewSecretDeriver(cfg.Auth.SecretKey)
	mailer := auth.NewMailer(jobClient, tenants, cfg.Notifx.FromAddress)

	svc := authsrv.NewAuthService(store, hasher, codec, secrets, mailer, tenants)
	mw := authsrv.NewSessionMiddleware(svc, cfg.Auth.FingerprintCookie)
	handlers := authsrv.NewHandlers(svc, cfg.Auth.FingerprintCookie, cfg.Auth.TokenTTL)

	return &Container{
		Config:      cfg,
		DB:          db,
		Redis:       rdb,
		Notifx:      notifxClient,
		JobClient:   jobClient,
		AuthService: svc,
		Middleware:  mw,
		Handlers:    handlers,
	}, nil
}

// StartBackgroundServices starts the email worker pool. It returns
// immediately; the workers stop when ctx is cancelled.
func (c *Container) StartBackgroundServices(ctx context.Context) {
	go func() {
		if err := c.JobClient.Start(ctx); err != nil {
			logx.WithError(err).Error("job worker pool stopped with error")
		}
	}()
}

// Cleanup closes all held connections.
func (c *Container) Cleanup() {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.WithError(err).Warn("failed to close database")
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.WithError(err).Warn("failed to close redis client")
		}
	}
}

func openDatabase(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

func buildTenantRegistry(cfg config.AuthConfig) auth.TenantRegistry {
	tenants := make(auth.TenantRegistry, len(cfg.Tenants))
	for name, tc := range cfg.Tenants {
		service := kernel.NewService(name)
		tenants[service] = auth.Tenant{
			Service:                   service,
			BaseURL:                   tc.BaseURL,
			VerificationTemplate:      tc.VerificationTemplate,
			PasswordResetTemplate:     tc.PasswordResetTemplate,
			ResetConfirmationTemplate: tc.ResetConfirmationTemplate,
		}
	}
	return tenants
}

func buildNotifxClient(cfg config.NotifxConfig, tenants auth.TenantRegistry) (*notifx.Client, error) {
	var provider notifx.EmailSender

	switch cfg.Provider {
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		provider = notifxses.NewSESProvider(ses.NewFromConfig(awsCfg), cfg.FromAddress)
	case "console":
		provider = notifxconsole.NewConsoleProvider()
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}

	client := notifx.NewClient(provider)
	if err := auth.RegisterEmailTemplates(client, tenants); err != nil {
		return nil, fmt.Errorf("failed to register email templates: %w", err)
	}

	return client, nil
}
