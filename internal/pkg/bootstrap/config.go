// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigPathEnv 指定 YAML 配置文件路径
	ConfigPathEnv     = "LOTTERY_CONFIG"
	defaultConfigPath = "configs/lottery.yaml"
	envPrefix         = "LOTTERY_"
)

type Config struct {
	App     AppConfig     `yaml:"app" envPrefix:"APP_"`
	Event   EventConfig   `yaml:"event" envPrefix:"EVENT_"`
	Storage StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
	Lock    LockConfig    `yaml:"lock" envPrefix:"LOCK_"`
	Kafka   KafkaConfig   `yaml:"kafka" envPrefix:"KAFKA_"`
	Nacos   NacosConfig   `yaml:"nacos" envPrefix:"NACOS_"`
	Infra   InfraConfig   `yaml:"infra" envPrefix:"INFRA_"`
}

type AppConfig struct {
	Name     string `yaml:"name" env:"NAME"`
	Port     int    `yaml:"port" env:"PORT"`
	LogLevel string `yaml:"logLevel" env:"LOG_LEVEL"`
}

// EventConfig 活动日期使用 "2006-01-02" 格式，首尾两天都包含
type EventConfig struct {
	Start            string        `yaml:"start" env:"START"`
	End              string        `yaml:"end" env:"END"`
	Timezone         string        `yaml:"timezone" env:"TIMEZONE"`
	FirstPrizeLimit  int           `yaml:"firstPrizeLimit" env:"FIRST_PRIZE_LIMIT"`
	SecondPrizeLimit int           `yaml:"secondPrizeLimit" env:"SECOND_PRIZE_LIMIT"`
	WriteTimeout     time.Duration `yaml:"writeTimeout" env:"WRITE_TIMEOUT"`
}

type MemberSeed struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
}

type StorageConfig struct {
	Driver      string       `yaml:"driver" env:"DRIVER"` // mysql | sqlite | memory
	DSN         string       `yaml:"dsn" env:"DSN"`
	SeedMembers []MemberSeed `yaml:"seedMembers"`
}

type LockConfig struct {
	Backend     string          `yaml:"backend" env:"BACKEND"` // local | redis | zookeeper
	TTL         time.Duration   `yaml:"ttl" env:"TTL"`
	WaitTimeout time.Duration   `yaml:"waitTimeout" env:"WAIT_TIMEOUT"`
	Redis       RedisConfig     `yaml:"redis" envPrefix:"REDIS_"`
	Zookeeper   ZookeeperConfig `yaml:"zookeeper" envPrefix:"ZOOKEEPER_"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

type ZookeeperConfig struct {
	Servers        []string      `yaml:"servers" env:"SERVERS" envSeparator:","`
	SessionTimeout time.Duration `yaml:"sessionTimeout" env:"SESSION_TIMEOUT"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" env:"ENABLED"`
	Brokers []string `yaml:"brokers" env:"BROKERS" envSeparator:","`
	Topic   string   `yaml:"topic" env:"TOPIC"`
}

type NacosConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Addrs     string `yaml:"addrs" env:"ADDRS"` // "ip1:port1,ip2:port2"
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	Group     string `yaml:"group" env:"GROUP"`
}

type InfraConfig struct {
	Jaeger struct {
		Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	} `yaml:"jaeger" envPrefix:"JAEGER_"`
}

// DefaultConfig 单机可运行的默认值
func DefaultConfig() Config {
	return Config{
		App:     AppConfig{Name: "lottery-service", Port: 8080, LogLevel: "info"},
		Event:   EventConfig{Start: "2025-06-25", End: "2025-06-26", Timezone: "Local", FirstPrizeLimit: 2, SecondPrizeLimit: 3, WriteTimeout: 5 * time.Second},
		Storage: StorageConfig{Driver: "memory"},
		Lock: LockConfig{
			Backend:     "local",
			TTL:         10 * time.Second,
			WaitTimeout: 3 * time.Second,
			Zookeeper:   ZookeeperConfig{SessionTimeout: 10 * time.Second},
		},
		Kafka: KafkaConfig{Topic: "lottery-participations"},
		Nacos: NacosConfig{Addrs: "localhost:8848", Group: "DEFAULT_GROUP"},
	}
}

// LoadConfig 按 默认值 → YAML 文件 → .env → 环境变量 的顺序合并配置。
// path 为空时读取 LOTTERY_CONFIG，文件不存在不算错误。
func LoadConfig(path string) (*Config, error) {
	// .env 只补充尚未设置的变量
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path == "" {
		path = defaultConfigPath
	}

	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查活动日期、名额和后端选择
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	start, err := time.Parse("2006-01-02", c.Event.Start)
	if err != nil {
		return fmt.Errorf("event.start: %w", err)
	}
	end, err := time.Parse("2006-01-02", c.Event.End)
	if err != nil {
		return fmt.Errorf("event.end: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("event.end %s is before event.start %s", c.Event.End, c.Event.Start)
	}
	if c.Event.FirstPrizeLimit <= 0 || c.Event.SecondPrizeLimit <= 0 {
		return fmt.Errorf("prize limits must be positive")
	}
	switch c.Storage.Driver {
	case "memory":
	case "mysql", "sqlite":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for driver %s", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Lock.Backend {
	case "local":
	case "redis":
		if c.Lock.Redis.Addr == "" {
			return fmt.Errorf("lock.redis.addr is required")
		}
	case "zookeeper":
		if len(c.Lock.Zookeeper.Servers) == 0 {
			return fmt.Errorf("lock.zookeeper.servers is required")
		}
	default:
		return fmt.Errorf("unknown lock.backend %q", c.Lock.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

// Location 返回活动时区，"Local" 或空串表示进程本地时区
func (c *Config) Location() (*time.Location, error) {
	if c.Event.Timezone == "" || c.Event.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Event.Timezone)
	if err != nil {
		return nil, fmt.Errorf("event.timezone: %w", err)
	}
	return loc, nil
}

var (
	currentMu     sync.RWMutex
	currentConfig = DefaultConfig()
)

// Init 加载配置并保存为全局配置，失败时直接退出
func Init() *Config {
	cfg, err := LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}
	currentMu.Lock()
	currentConfig = *cfg
	currentMu.Unlock()
	return cfg
}

// GetCurrentConfig 返回当前生效的配置
func GetCurrentConfig() Config {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return currentConfig
}
