package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 開発用のデフォルト署名キー（本番では必ず上書きする）
const DevJWTSecret = "your-super-secret-key-with-at-least-32-characters"

// Configはアプリ全体の設定
type Config struct {
	Port  string `yaml:"port"`  // サーバーポート（8080）
	GoEnv string `yaml:"goEnv"` // dev/prod

	DBDriver    string `yaml:"dbDriver"`    // postgres / sqlite
	DatabaseURL string `yaml:"databaseUrl"` // 接続文字列

	JWT JWTConfig `yaml:"jwt"`

	LogLevel string `yaml:"logLevel"` // info / warn / error
	SeedData bool   `yaml:"seedData"` // 初期データ投入

	Kafka  KafkaConfig  `yaml:"kafka"`
	Search SearchConfig `yaml:"search"`

	AuthRateLimit RateLimitConfig `yaml:"authRateLimit"`

	// 0なら掃除しない
	TokenCleanupInterval time.Duration `yaml:"tokenCleanupInterval"`
}

type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	AccessTTL  time.Duration `yaml:"accessTtl"`
	RefreshTTL time.Duration `yaml:"refreshTtl"`
}

// 空ならイベントは送らない
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// 空ならDBの部分一致検索
type SearchConfig struct {
	URL       string `yaml:"url"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	TaskIndex string `yaml:"taskIndex"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	Burst    int           `yaml:"burst"`
}

// デフォルト値（ローカル開発用）
func Default() Config {
	return Config{
		Port:        "8080",
		GoEnv:       "dev",
		DBDriver:    "postgres",
		DatabaseURL: "host=localhost port=5432 user=postgres password=postgres dbname=teamflow sslmode=disable",
		JWT: JWTConfig{
			Secret:     DevJWTSecret,
			Issuer:     "TeamProjectManagement",
			Audience:   "TeamProjectManagement",
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		LogLevel: "info",
		Kafka: KafkaConfig{
			Topic: "teamflow.events",
		},
		Search: SearchConfig{
			TaskIndex: "tasks",
		},
		AuthRateLimit: RateLimitConfig{
			Requests: 5,
			Window:   time.Minute,
			Burst:    5,
		},
	}
}

// Load はデフォルト → CONFIG_FILE(yaml) → 環境変数 の順で上書きする。
// .envの読み込みはmain側で先に済ませておく。
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.GoEnv, "GO_ENV")
	setString(&cfg.DBDriver, "DB_DRIVER")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.JWT.Issuer, "JWT_ISSUER")
	setString(&cfg.JWT.Audience, "JWT_AUDIENCE")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Kafka.Topic, "KAFKA_TOPIC")
	setString(&cfg.Search.URL, "ES_URL")
	setString(&cfg.Search.Username, "ES_USER")
	setString(&cfg.Search.Password, "ES_PASSWORD")
	setString(&cfg.Search.TaskIndex, "ES_TASK_INDEX")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = csv(v)
	}

	if v := os.Getenv("SEED_DATA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEED_DATA must be bool: %w", err)
		}
		cfg.SeedData = b
	}

	if err := setInt(&cfg.AuthRateLimit.Requests, "RATELIMIT_AUTH_REQUESTS"); err != nil {
		return err
	}
	if err := setInt(&cfg.AuthRateLimit.Burst, "RATELIMIT_AUTH_BURST"); err != nil {
		return err
	}
	if err := setSeconds(&cfg.AuthRateLimit.Window, "RATELIMIT_AUTH_WINDOW_SEC"); err != nil {
		return err
	}
	if err := setSeconds(&cfg.TokenCleanupInterval, "TOKEN_CLEANUP_INTERVAL_SEC"); err != nil {
		return err
	}
	return nil
}

// Validate は起動前の必須チェック
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite: %q", c.DBDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.IsProduction() && c.JWT.Secret == DevJWTSecret {
		return fmt.Errorf("JWT_SECRET must be overridden in production")
	}
	if c.JWT.Issuer == "" {
		return fmt.Errorf("JWT_ISSUER is required")
	}
	if c.JWT.Audience == "" {
		return fmt.Errorf("JWT_AUDIENCE is required")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.AuthRateLimit.Requests <= 0 || c.AuthRateLimit.Burst <= 0 || c.AuthRateLimit.Window <= 0 {
		return fmt.Errorf("auth rate limit must be positive")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.GoEnv, "prod") || strings.EqualFold(c.GoEnv, "production")
}

// ":8080" 形式のlisten address
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be number: %w", key, err)
	}
	*dst = i
	return nil
}

func setSeconds(dst *time.Duration, key string) error {
	var sec int
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if err := setInt(&sec, key); err != nil {
		return err
	}
	*dst = time.Duration(sec) * time.Second
	return nil
}

func csv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
