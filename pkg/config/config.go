package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GoogleMaps    GoogleMapsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Matching      MatchingConfig
	Presence      PresenceConfig
	Chat          ChatConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PASABUY_APP_ENV" required:"true"`
	Port         string `envconfig:"PASABUY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PASABUY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PASABUY_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"PASABUY_CORS_ORIGINS" default:"*"`
	MetricsAddr  string `envconfig:"PASABUY_METRICS_ADDR" default:":9090"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	origins := []string{}
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

type ServiceConfig struct {
	Kind string `envconfig:"PASABUY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PASABUY_DB_DSN"`
	Driver string `envconfig:"PASABUY_DB_DRIVER" default:"postgres"`

	SQLitePath string `envconfig:"PASABUY_SQLITE_PATH" default:"pasabuy.db"`

	LegacyHost     string `envconfig:"PASABUY_DB_HOST"`
	LegacyPort     int    `envconfig:"PASABUY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PASABUY_DB_USER"`
	LegacyPassword string `envconfig:"PASABUY_DB_PASSWORD"`
	LegacyName     string `envconfig:"PASABUY_DB_NAME"`
	LegacySSLMode  string `envconfig:"PASABUY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PASABUY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PASABUY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PASABUY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PASABUY_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"PASABUY_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"PASABUY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PASABUY_REDIS_ADDR"`
	Password     string        `envconfig:"PASABUY_REDIS_PASSWORD"`
	DB           int           `envconfig:"PASABUY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PASABUY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PASABUY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PASABUY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PASABUY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PASABUY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PASABUY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PASABUY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"PASABUY_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"PASABUY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PASABUY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PASABUY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PASABUY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PASABUY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PASABUY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PASABUY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PASABUY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PASABUY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PASABUY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PASABUY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PASABUY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PASABUY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PASABUY_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PASABUY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GoogleMapsConfig struct {
	APIKey string `envconfig:"PASABUY_GOOGLE_MAPS_API_KEY"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PASABUY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PASABUY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PASABUY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	RequestsTopic            string `envconfig:"PASABUY_PUBSUB_REQUESTS_TOPIC" default:"pb-request-events"`
	ChatTopic                string `envconfig:"PASABUY_PUBSUB_CHAT_TOPIC" default:"pb-chat-events"`
	NotificationSubscription string `envconfig:"PASABUY_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"pb-notifications"`
	ChatNotificationSub      string `envconfig:"PASABUY_PUBSUB_CHAT_NOTIFICATION_SUBSCRIPTION" default:"pb-chat-notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PASABUY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PASABUY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PASABUY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MatchingConfig struct {
	RadiusKM float64 `envconfig:"PASABUY_MATCHING_RADIUS_KM" default:"5.0"`
}

type PresenceConfig struct {
	StaleAfter    time.Duration `envconfig:"PASABUY_PRESENCE_STALE_AFTER" default:"10m"`
	SweepInterval time.Duration `envconfig:"PASABUY_PRESENCE_SWEEP_INTERVAL" default:"1m"`
}

type ChatConfig struct {
	MaxMessageLength int `envconfig:"PASABUY_CHAT_MAX_MESSAGE_LENGTH" default:"2000"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DBDriverSQLite
	}
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
