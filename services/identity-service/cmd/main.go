package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/config"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/i18n"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/limiter"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository/memory"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/twofactor"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/usecase"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/vault"
	"github.com/vasapolrittideah/identity-api/shared/auth"
	"github.com/vasapolrittideah/identity-api/shared/logger"
	"github.com/vasapolrittideah/identity-api/shared/mailer"
	"github.com/vasapolrittideah/identity-api/shared/messaging"
	"github.com/vasapolrittideah/identity-api/shared/provider"
)

const (
	tokenAudience   = "identity"
	shutdownTimeout = 10 * time.Second
)

// identity is the handle a transport layer mounts. Each field is one served surface;
// the process itself only seeds and waits, so nothing here reads them yet.
type identity struct {
	users         *usecase.UserManager
	signIn        *usecase.SignInUsecase
	twoFactor     *usecase.TwoFactorUsecase
	externalLogin *usecase.ExternalLoginUsecase
	passwordReset usecase.PasswordResetUsecase
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env file: %v", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if err := run(ctx, logger, cfg); err != nil {
		stop()
		logger.Fatal().Err(err).Msg("identity service stopped")
	}
}

// run wires the service and blocks until ctx is done. Every resource opened before a
// failure is closed before run returns.
func run(ctx context.Context, logger *zerolog.Logger, cfg *config.Config) error {
	var closers []func(context.Context) error
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("error during shutdown")
			}
		}
	}()

	store, closeStore, err := newCredentialStore(ctx, logger, cfg)
	if err != nil {
		return fmt.Errorf("initialize credential store: %w", err)
	}
	closers = append(closers, closeStore)

	tokenVault := vault.New(store)

	validate := validator.New(validator.WithRequiredStructEnabled())
	translator, err := i18n.New()
	if err != nil {
		return fmt.Errorf("initialize translations: %w", err)
	}
	if err := translator.RegisterValidator(validate); err != nil {
		return fmt.Errorf("register validator translations: %w", err)
	}

	factors := usecase.SecondFactors{
		Authenticator: twofactor.NewAuthenticator(tokenVault, twofactor.AuthenticatorConfig{
			Issuer: cfg.TwoFactor.Issuer,
			Skew:   cfg.TwoFactor.TotpSkew,
		}),
		Recovery: twofactor.NewRecoveryCodes(tokenVault),
		Sms:      twofactor.NewSmsCodes(tokenVault, cfg.TwoFactor.SmsCodeTTL),
	}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func(context.Context) error { return redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}

		factors.Limiter = limiter.New(redisClient, limiter.Config{
			MaxAttempts: cfg.TwoFactor.MaxAttempts,
			Window:      cfg.TwoFactor.AttemptWindow,
		})
	} else {
		logger.Info().Msg("REDIS_ADDR not set, second factor attempt limiter disabled")
	}

	dispatcher, closeDispatcher, err := newDispatcher(logger, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, closeDispatcher)

	users := usecase.NewUserManager(logger, store, validate, translator.For(cfg.SignIn.Locale), usecase.LockoutOptions{
		EnabledForNewUsers: cfg.Lockout.EnabledForNewUsers,
		MaxFailedAttempts:  cfg.Lockout.MaxFailedAttempts,
		Duration:           cfg.Lockout.Duration,
		ConflictRetries:    cfg.Lockout.ConflictRetries,
	})

	pendingAuth := auth.NewJWTAuthenticator(tokenAudience, cfg.Authority, cfg.TwoFactor.PendingSecret)
	resetAuth := auth.NewJWTAuthenticator(tokenAudience, cfg.Authority, cfg.PasswordReset.Secret)

	signIn := usecase.NewSignInUsecase(
		logger,
		users,
		factors,
		usecase.NewPendingContext(pendingAuth, cfg.TwoFactor.PendingTTL),
		dispatcher,
		translator,
		usecase.SignInOptions{
			RequireConfirmedEmail:   cfg.SignIn.RequireConfirmedEmail,
			RequireConfirmedAccount: cfg.SignIn.RequireConfirmedAccount,
			SupportsStartEnd:        cfg.SignIn.SupportsStartEnd,
			Locale:                  cfg.SignIn.Locale,
		},
	)

	var providers []usecase.IdentityProvider
	if cfg.GoogleClientID != "" {
		google, err := provider.NewGoogleOAuthProvider(ctx, cfg.GoogleClientID)
		if err != nil {
			return fmt.Errorf("initialize google provider: %w", err)
		}
		providers = append(providers, google)
	}

	app := &identity{
		users:         users,
		signIn:        signIn,
		twoFactor:     usecase.NewTwoFactorUsecase(logger, users, factors.Authenticator, factors.Recovery, cfg.TwoFactor.RecoveryCodeCount),
		externalLogin: usecase.NewExternalLoginUsecase(logger, signIn, tokenVault, providers...),
		passwordReset: usecase.NewPasswordResetUsecase(
			logger, users, tokenVault, resetAuth, dispatcher, cfg.Authority, cfg.PasswordReset.TTL,
		),
	}

	seeder := usecase.NewSeeder(logger, app.users, usecase.SeedOptions{
		UserName: cfg.SeedAdmin.UserName,
		Email:    cfg.SeedAdmin.Email,
		Password: cfg.SeedAdmin.Password,
	})
	if err := seeder.Seed(ctx); err != nil {
		return fmt.Errorf("seed administrator: %w", err)
	}

	logger.Info().
		Str("store", cfg.StoreDriver).
		Int("external_providers", len(providers)).
		Msg("identity service ready")

	<-ctx.Done()
	logger.Info().Msg("received interruption signal, shutting down")

	return nil
}

func newCredentialStore(
	ctx context.Context,
	logger *zerolog.Logger,
	cfg *config.Config,
) (repository.CredentialStore, func(context.Context) error, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn().Msg("using in-memory credential store, data is lost on exit")

		var opts []memory.Option
		if cfg.Mongo.UniqueUserName {
			opts = append(opts, memory.WithUniqueUserName())
		}
		if cfg.Mongo.UniqueEmail {
			opts = append(opts, memory.WithUniqueEmail())
		}

		return memory.NewStore(opts...), func(context.Context) error { return nil }, nil
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	store, err := repository.NewMongoStore(ctx, logger, client.Database(cfg.Mongo.Database), repository.MongoStoreOptions{
		Collections: repository.CollectionNames{
			Users:      cfg.Mongo.UsersCollection,
			Roles:      cfg.Mongo.RolesCollection,
			UserClaims: cfg.Mongo.UserClaimsCollection,
			UserLogins: cfg.Mongo.UserLoginsCollection,
			UserTokens: cfg.Mongo.UserTokensCollection,
			UserRoles:  cfg.Mongo.UserRolesCollection,
		},
		UniqueUserName: cfg.Mongo.UniqueUserName,
		UniqueEmail:    cfg.Mongo.UniqueEmail,
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	return store, client.Disconnect, nil
}

// newDispatcher wires the channels that are configured. A missing SMTP host or AMQP URL
// leaves that channel disabled.
func newDispatcher(
	logger *zerolog.Logger,
	cfg *config.Config,
) (*messaging.Dispatcher, func(context.Context) error, error) {
	var (
		email messaging.EmailSender
		sms   messaging.SmsSender
	)
	closeFn := func(context.Context) error { return nil }

	if cfg.SMTP.Host != "" {
		m, err := mailer.NewMailer(cfg.SMTP, mailer.DefaultTemplates)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize mailer: %w", err)
		}
		email = m
	} else {
		logger.Info().Msg("SMTP_HOST not set, email delivery disabled")
	}

	if cfg.AMQP.URL != "" {
		conn, ch, err := messaging.Dial(cfg.AMQP.URL, cfg.AMQP.SmsQueue)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		sms = messaging.NewSmsPublisher(ch, cfg.AMQP.SmsQueue)
		closeFn = func(context.Context) error {
			return errors.Join(ch.Close(), conn.Close())
		}
	} else {
		logger.Info().Msg("AMQP_URL not set, sms delivery disabled")
	}

	return messaging.NewDispatcher(logger, email, sms), closeFn, nil
}
