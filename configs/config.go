package configs

import (
	"flag"
	"fmt"
	"gomarketplace/configs/loader"
	"log"
	"strconv"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendCached   = "cached"

	DefaultCartKey = "@GoMarketplace:products"
)

type CartConfig struct {
	Backend      string        `validate:"required"`
	Key          string        `validate:"required"`
	QueueSize    int           `validate:"required"`
	WriteTimeout time.Duration `validate:"required"`
}

type DBConfig struct {
	User           string        `validate:"required"`
	Password       string        `validate:"required"`
	Name           string        `validate:"required"`
	Host           string        `validate:"required"`
	Port           string        `validate:"required"`
	ConnectTimeout time.Duration `validate:"required"`
	Retries        int           `validate:"required"`
}

type RedisConfig struct {
	Host         string        `validate:"required"`
	DB           int           `validate:"required"`
	User         string        `validate:"required"`
	Password     string        `validate:"required"`
	Prefix       string        `validate:"required"`
	MaxRetries   int           `validate:"required"`
	DialTimeout  time.Duration `validate:"required"`
	ReadTimeout  time.Duration `validate:"required"`
	WriteTimeout time.Duration `validate:"required"`
}

type KafkaConfig struct {
	Enabled              bool
	BootstrapServers     string `validate:"required"`
	AutoCommitIntervalMs int    `validate:"required"`
	AutoOffsetReset      string `validate:"required"`
	SessionTimeoutMs     int    `validate:"required"`
	Topic                string `validate:"required"`
	ConsumerGroup        string `validate:"required"`
	FlushTimeout         int    `validate:"required"`
}

type HttpConfig struct {
	Port         string        `validate:"required"`
	MetricsPort  string        `validate:"required"`
	ReadTimeout  time.Duration `validate:"required"`
	WriteTimeout time.Duration `validate:"required"`
	IdleTimeout  time.Duration `validate:"required"`
}

type Config struct {
	Cart    CartConfig
	DB      DBConfig
	RD      RedisConfig
	KF      KafkaConfig
	HTTP    HttpConfig
	Env     string
	LogFile string
}

func MustLoad(loader loader.ConfigLoader) *Config {
	const op = "configs.MustLoad"
	cfg, err := Load(loader)
	if err != nil {
		log.Fatalf("%s: %+v", op, err)
	}
	return cfg
}

// Load builds the config from the loader's variables. APP_ENV wins over the -env flag.
func Load(loader loader.ConfigLoader) (*Config, error) {
	envs, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	env := envs["APP_ENV"]
	if env == "" {
		env = envFromFlag()
	}

	cfg := &Config{
		Cart: CartConfig{
			Backend:      getEnvAsString(envs["STORAGE_BACKEND"], BackendMemory),
			Key:          getEnvAsString(envs["CART_KEY"], DefaultCartKey),
			QueueSize:    getEnvAsInt(envs["CART_QUEUE_SIZE"], 64),
			WriteTimeout: getEnvAsDuration(envs["CART_WRITE_TIMEOUT"], 5*time.Second),
		},
		DB: DBConfig{
			User:           envs["POSTGRES_USER"],
			Password:       envs["POSTGRES_PASSWORD"],
			Name:           envs["POSTGRES_DB"],
			Host:           envs["POSTGRES_HOST"],
			Port:           envs["POSTGRES_PORT"],
			ConnectTimeout: getEnvAsDuration(envs["POSTGRES_CONNECT_TIMEOUT"], 5*time.Second),
			Retries:        getEnvAsInt(envs["POSTGRES_RETRIES"], 1),
		},
		RD: RedisConfig{
			Host:         envs["REDIS_HOST"],
			DB:           getEnvAsInt(envs["REDIS_DB"], 0),
			User:         envs["REDIS_USER"],
			Password:     envs["REDIS_PASSWORD"],
			Prefix:       getEnvAsString(envs["REDIS_PREFIX"], "cart:"),
			MaxRetries:   getEnvAsInt(envs["REDIS_MAX_RETRIES"], 3),
			DialTimeout:  getEnvAsDuration(envs["REDIS_DIAL_TIMEOUT"], 5*time.Second),
			ReadTimeout:  getEnvAsDuration(envs["REDIS_READ_TIMEOUT"], 5*time.Second),
			WriteTimeout: getEnvAsDuration(envs["REDIS_WRITE_TIMEOUT"], 5*time.Second),
		},
		KF: KafkaConfig{
			Enabled:              getEnvAsBool(envs["KAFKA_ENABLED"], false),
			BootstrapServers:     envs["KAFKA_BOOTSTRAP_SERVERS"],
			AutoCommitIntervalMs: getEnvAsInt(envs["KAFKA_AUTO_COMMIT_INTERVAL_MS"], 1000),
			AutoOffsetReset:      getEnvAsString(envs["KAFKA_AUTO_OFFSET_RESET"], "earliest"),
			SessionTimeoutMs:     getEnvAsInt(envs["KAFKA_SESSION_TIMEOUT_MS"], 6000),
			Topic:                getEnvAsString(envs["KAFKA_TOPIC"], "cart-events"),
			ConsumerGroup:        getEnvAsString(envs["KAFKA_CONSUMER_GROUP"], "cart-events-tail"),
			FlushTimeout:         getEnvAsInt(envs["KAFKA_FLUSH_TIMEOUT"], 5000),
		},
		HTTP: HttpConfig{
			Port:         getEnvAsString(envs["HTTP_PORT"], "8080"),
			MetricsPort:  getEnvAsString(envs["METRICS_PORT"], "8082"),
			ReadTimeout:  getEnvAsDuration(envs["HTTP_READ_TIMEOUT"], 10*time.Second),
			WriteTimeout: getEnvAsDuration(envs["HTTP_WRITE_TIMEOUT"], 10*time.Second),
			IdleTimeout:  getEnvAsDuration(envs["HTTP_IDLE_TIMEOUT"], 60*time.Second),
		},
		Env:     env,
		LogFile: envs["LOG_FILE"],
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("error validation config: %w", err)
	}

	return cfg, nil
}

func envFromFlag() string {
	if f := flag.Lookup("env"); f != nil {
		return f.Value.String()
	}
	envFlag := flag.String("env", "dev", "Environment type")
	if !flag.Parsed() {
		flag.Parse()
	}
	return *envFlag
}

func validateConfig(cfg *Config) error {
	if cfg.Cart.Key == "" || cfg.Cart.QueueSize <= 0 || cfg.Cart.WriteTimeout <= 0*time.Second {
		return fmt.Errorf("incorrect cart config fields")
	}

	switch cfg.Cart.Backend {
	case BackendMemory:
	case BackendRedis:
		if err := validateRedis(cfg.RD); err != nil {
			return err
		}
	case BackendPostgres:
		if err := validateDB(cfg.DB); err != nil {
			return err
		}
	case BackendCached:
		if err := validateDB(cfg.DB); err != nil {
			return err
		}
		if err := validateRedis(cfg.RD); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Cart.Backend)
	}

	if cfg.KF.Enabled && (cfg.KF.BootstrapServers == "" || cfg.KF.AutoCommitIntervalMs <= 0 ||
		cfg.KF.SessionTimeoutMs <= 0 || cfg.KF.Topic == "" || cfg.KF.ConsumerGroup == "" ||
		cfg.KF.AutoOffsetReset == "" || cfg.KF.FlushTimeout <= 0) {
		return fmt.Errorf("incorrect kafka config fields")
	}

	if cfg.HTTP.Port == "" || cfg.HTTP.MetricsPort == "" || cfg.HTTP.ReadTimeout <= 0*time.Second ||
		cfg.HTTP.WriteTimeout <= 0*time.Second || cfg.HTTP.IdleTimeout <= 0*time.Second {
		return fmt.Errorf("incorrect http config fields")
	}
	return nil
}

func validateDB(db DBConfig) error {
	if db.User == "" || db.Password == "" || db.Name == "" ||
		db.Host == "" || db.Port == "" || db.Retries <= 0 || db.ConnectTimeout <= 0*time.Second {
		return fmt.Errorf("incorrect database config fields")
	}
	return nil
}

func validateRedis(rd RedisConfig) error {
	if rd.Host == "" || rd.DialTimeout <= 0*time.Second || rd.ReadTimeout <= 0*time.Second ||
		rd.WriteTimeout <= 0*time.Second || rd.MaxRetries <= 0 {
		return fmt.Errorf("incorrect cache config fields")
	}
	return nil
}

func getEnvAsString(strValue string, defaultValue string) string {
	if strValue == "" {
		return defaultValue
	}
	return strValue
}

func getEnvAsDuration(strValue string, defaultValue time.Duration) time.Duration {
	const op = "configs.getEnvAsDuration"
	if strValue == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(strValue)
	if err != nil {
		log.Printf("%s:forbidden value for %s, using default: %v", op,
			strValue, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsInt(strValue string, defaultValue int) int {
	const op = "configs.getEnvAsInt"
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("%s:forbidden value for %s, using default: %v", op, strValue,
			defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(strValue string, defaultValue bool) bool {
	const op = "configs.getEnvAsBool"
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strValue)
	if err != nil {
		log.Printf("%s:forbidden value for %s, using default: %v", op, strValue, defaultValue)
		return defaultValue
	}
	return value
}
