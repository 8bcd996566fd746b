package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultPath is read when Load gets an empty path; it may be absent.
const DefaultPath = "configs/tycoon.yaml"

const envPrefix = "TYCOON"

var placeholder = regexp.MustCompile(`\$\{(\w+)(:([^}]*))?\}`)

// Load builds the configuration from defaults, the yaml file at path and
// TYCOON_* environment variables, in increasing priority. ${VAR:default}
// placeholders in the file are expanded before parsing.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	optional := path == ""
	if optional {
		path = DefaultPath
	}
	if err := loadConfigFile(v, path, optional); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.ReadConfig(strings.NewReader(expandEnv(string(content)))); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// expandEnv replaces ${VAR} and ${VAR:default}. Unset variables without a
// default are left as written.
func expandEnv(s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(match string) string {
		sub := placeholder.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(sub[1]); ok {
			return val
		}
		if sub[2] != "" {
			return sub[3]
		}
		return match
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dev-tycoon")
	v.SetDefault("app.env", "development")

	v.SetDefault("simulation.tick_interval", "1m")
	v.SetDefault("simulation.ticks_per_game_day", 1)
	v.SetDefault("simulation.lock_ttl", "5m")
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.reputation_penalty_per_difficulty", 5)
	v.SetDefault("simulation.quest_expiry_reputation_penalty", 2)
	v.SetDefault("simulation.bankruptcy_threshold", -10000)
	v.SetDefault("simulation.base_income_per_tick", 1)
	v.SetDefault("simulation.idle_energy_recovery", 5)
	v.SetDefault("simulation.idle_morale_recovery", 1)
	v.SetDefault("simulation.bug_spawn_chance", 0.15)
	v.SetDefault("simulation.market_event_chance", 0.4)
	v.SetDefault("simulation.ai_event_share", 0.3)
	v.SetDefault("simulation.market_event_duration", "10m")
	v.SetDefault("simulation.catalog_dir", "")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.sqlite_path", "tycoon.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "tycoon")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.connect_timeout", "1m")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("lock.backend", "memory")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "tycoon-events")
	v.SetDefault("kafka.group_id", "tycoonctl-watch")
	v.SetDefault("kafka.partitions", 1)
	v.SetDefault("kafka.queue_size", 1000)
	v.SetDefault("kafka.write_timeout", "5s")

	v.SetDefault("discord.enabled", false)
	v.SetDefault("discord.webhook_id", "")
	v.SetDefault("discord.webhook_token", "")
	v.SetDefault("discord.username", "Dev Tycoon")
	v.SetDefault("discord.events", []string{"company.bankrupt", "market.event"})

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.timeout", "5s")
	v.SetDefault("ai.temperature", 0.8)
	v.SetDefault("ai.max_tokens", 300)

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.http_port", 8080)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "1h")
	v.SetDefault("auth.token_service_port", 8081)

	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "json")
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.tracing_endpoint", "localhost:4317")
	v.SetDefault("observability.tracing_sample_rate", 1.0)
}
