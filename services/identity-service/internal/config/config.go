package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vasapolrittideah/identity-api/shared/mailer"
)

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// Config contains identity service configuration parameters.
type Config struct {
	StoreDriver    string        `env:"STORE_DRIVER" envDefault:"mongo"`
	Authority      string        `env:"AUTHORITY" envDefault:"http://localhost:8080"`
	GoogleClientID string        `env:"GOOGLE_CLIENT_ID"`
	Log            Log           `envPrefix:"LOG_"`
	Mongo          Mongo         `envPrefix:"MONGO_"`
	Lockout        Lockout       `envPrefix:"LOCKOUT_"`
	SignIn         SignIn        `envPrefix:"SIGNIN_"`
	TwoFactor      TwoFactor     `envPrefix:"TWO_FACTOR_"`
	PasswordReset  PasswordReset `envPrefix:"PASSWORD_RESET_"`
	Redis          Redis         `envPrefix:"REDIS_"`
	AMQP           AMQP          `envPrefix:"AMQP_"`
	SMTP           mailer.Config `envPrefix:"SMTP_"`
	SeedAdmin      SeedAdmin     `envPrefix:"SEED_ADMIN_"`
}

type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Pretty bool   `env:"PRETTY" envDefault:"false"`
}

// Mongo contains storage engine parameters.
type Mongo struct {
	URI            string `env:"URI" envDefault:"mongodb://localhost:27017"`
	Database       string `env:"DATABASE" envDefault:"identity"`
	UniqueUserName bool   `env:"UNIQUE_USERNAME" envDefault:"true"`
	UniqueEmail    bool   `env:"UNIQUE_EMAIL" envDefault:"true"`

	UsersCollection      string `env:"USERS_COLLECTION" envDefault:"users"`
	RolesCollection      string `env:"ROLES_COLLECTION" envDefault:"roles"`
	UserClaimsCollection string `env:"USER_CLAIMS_COLLECTION" envDefault:"user_claims"`
	UserLoginsCollection string `env:"USER_LOGINS_COLLECTION" envDefault:"user_logins"`
	UserTokensCollection string `env:"USER_TOKENS_COLLECTION" envDefault:"user_tokens"`
	UserRolesCollection  string `env:"USER_ROLES_COLLECTION" envDefault:"user_roles"`
}

// Lockout contains failed-password lockout parameters.
type Lockout struct {
	EnabledForNewUsers bool          `env:"ENABLED_FOR_NEW_USERS" envDefault:"true"`
	MaxFailedAttempts  int           `env:"MAX_FAILED_ATTEMPTS" envDefault:"5"`
	Duration           time.Duration `env:"DURATION" envDefault:"5m"`
	ConflictRetries    uint64        `env:"CONFLICT_RETRIES" envDefault:"3"`
}

// SignIn contains the account checks applied after a correct password.
type SignIn struct {
	RequireConfirmedEmail   bool   `env:"REQUIRE_CONFIRMED_EMAIL" envDefault:"false"`
	RequireConfirmedAccount bool   `env:"REQUIRE_CONFIRMED_ACCOUNT" envDefault:"false"`
	SupportsStartEnd        bool   `env:"SUPPORTS_START_END" envDefault:"false"`
	Locale                  string `env:"LOCALE" envDefault:"en"`
}

// TwoFactor contains second-factor parameters.
type TwoFactor struct {
	Issuer            string        `env:"ISSUER" envDefault:"Identity"`
	PendingSecret     string        `env:"PENDING_SECRET" envDefault:"dev-pending-secret"`
	PendingTTL        time.Duration `env:"PENDING_TTL" envDefault:"5m"`
	SmsCodeTTL        time.Duration `env:"SMS_CODE_TTL" envDefault:"5m"`
	RecoveryCodeCount int           `env:"RECOVERY_CODE_COUNT" envDefault:"10"`
	TotpSkew          uint          `env:"TOTP_SKEW" envDefault:"1"`
	MaxAttempts       int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	AttemptWindow     time.Duration `env:"ATTEMPT_WINDOW" envDefault:"5m"`
}

type PasswordReset struct {
	Secret string        `env:"SECRET" envDefault:"dev-reset-secret"`
	TTL    time.Duration `env:"TTL" envDefault:"15m"`
}

// Redis is optional; an empty Addr disables the second-factor attempt limiter.
type Redis struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// AMQP is optional; an empty URL disables SMS delivery.
type AMQP struct {
	URL      string `env:"URL"`
	SmsQueue string `env:"SMS_QUEUE" envDefault:"identity.sms"`
}

// SeedAdmin describes the administrator created at startup. An empty Email skips seeding.
type SeedAdmin struct {
	UserName string `env:"USERNAME" envDefault:"admin"`
	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverMongo, StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.Lockout.MaxFailedAttempts <= 0 {
		errs = append(errs, errors.New("LOCKOUT_MAX_FAILED_ATTEMPTS must be positive"))
	}
	if c.TwoFactor.PendingSecret == "" {
		errs = append(errs, errors.New("missing TWO_FACTOR_PENDING_SECRET environment variable"))
	}
	if c.SeedAdmin.Email != "" && c.SeedAdmin.Password == "" {
		errs = append(errs, errors.New("SEED_ADMIN_PASSWORD is required when SEED_ADMIN_EMAIL is set"))
	}

	return errors.Join(errs...)
}
