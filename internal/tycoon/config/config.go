// Package config loads worker and CLI configuration.
package config

import (
	"fmt"
	"time"

	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Simulation    SimulationConfig    `mapstructure:"simulation"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Lock          LockConfig          `mapstructure:"lock"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Discord       DiscordConfig       `mapstructure:"discord"`
	AI            AIConfig            `mapstructure:"ai"`
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// SimulationConfig tunes the scheduler and the game rules of the jobs.
type SimulationConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`

	// TicksPerGameDay is the cadence of payroll and the day counter.
	TicksPerGameDay int `mapstructure:"ticks_per_game_day"`

	// Cadence overrides the tick cadence per job name.
	Cadence map[string]int `mapstructure:"cadence"`

	LockTTL time.Duration `mapstructure:"lock_ttl"`

	// Seed fixes the random source; 0 seeds from the clock.
	Seed int64 `mapstructure:"seed"`

	ReputationPenaltyPerDifficulty int           `mapstructure:"reputation_penalty_per_difficulty"`
	QuestExpiryReputationPenalty   int           `mapstructure:"quest_expiry_reputation_penalty"`
	BankruptcyThreshold            float64       `mapstructure:"bankruptcy_threshold"`
	BaseIncomePerTick              float64       `mapstructure:"base_income_per_tick"`
	IdleEnergyRecovery             int           `mapstructure:"idle_energy_recovery"`
	IdleMoraleRecovery             int           `mapstructure:"idle_morale_recovery"`
	BugSpawnChance                 float64       `mapstructure:"bug_spawn_chance"`
	MarketEventChance              float64       `mapstructure:"market_event_chance"`
	AIEventShare                   float64       `mapstructure:"ai_event_share"`
	MarketEventDuration            time.Duration `mapstructure:"market_event_duration"`

	// CatalogDir optionally overrides the embedded game catalogs.
	CatalogDir string `mapstructure:"catalog_dir"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres or sqlite

	// SQLitePath is used when Driver is sqlite.
	SQLitePath      string        `mapstructure:"sqlite_path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DSN renders the postgres connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type LockConfig struct {
	Backend string `mapstructure:"backend"` // memory, redis or postgres
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	GroupID      string        `mapstructure:"group_id"`
	Partitions   int           `mapstructure:"partitions"`
	QueueSize    int           `mapstructure:"queue_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DiscordConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	WebhookID    string   `mapstructure:"webhook_id"`
	WebhookToken string   `mapstructure:"webhook_token"`
	Username     string   `mapstructure:"username"`
	Events       []string `mapstructure:"events"`
}

type AIConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

type ServerConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	GRPCPort int  `mapstructure:"grpc_port"`
	HTTPPort int  `mapstructure:"http_port"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	// TokenServicePort is where cmd/authentication listens.
	TokenServicePort int `mapstructure:"token_service_port"`
}

type ObservabilityConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // json or console

	TracingEnabled    bool    `mapstructure:"tracing_enabled"`
	TracingEndpoint   string  `mapstructure:"tracing_endpoint"`
	TracingSampleRate float64 `mapstructure:"tracing_sample_rate"`
}

// Validate rejects settings the scheduler cannot run with.
func (c *Config) Validate() error {
	s := c.Simulation
	if s.TickInterval <= 0 {
		return fmt.Errorf("simulation.tick_interval must be positive: %w", e.ErrInvalidInput)
	}
	if s.TicksPerGameDay < 1 {
		return fmt.Errorf("simulation.ticks_per_game_day must be at least 1: %w", e.ErrInvalidInput)
	}
	for name, every := range s.Cadence {
		if every < 1 {
			return fmt.Errorf("simulation.cadence.%s must be at least 1: %w", name, e.ErrInvalidInput)
		}
	}
	for name, p := range map[string]float64{
		"bug_spawn_chance":    s.BugSpawnChance,
		"market_event_chance": s.MarketEventChance,
		"ai_event_share":      s.AIEventShare,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("simulation.%s must be within [0,1]: %w", name, e.ErrInvalidInput)
		}
	}
	if s.ReputationPenaltyPerDifficulty < 0 || s.QuestExpiryReputationPenalty < 0 {
		return fmt.Errorf("reputation penalties must not be negative: %w", e.ErrInvalidInput)
	}

	switch c.Lock.Backend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown lock backend %q: %w", c.Lock.Backend, e.ErrInvalidInput)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q: %w", c.Database.Driver, e.ErrInvalidInput)
	}
	if c.Lock.Backend == "postgres" && c.Database.Driver != "postgres" {
		return fmt.Errorf("postgres lock backend needs the postgres driver: %w", e.ErrInvalidInput)
	}
	return nil
}
