package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"PORT" env-default:"3000"`
}

type StoreConfig struct {
	// Driver is "github" or "memory"; memory keeps the document in process
	Driver   string `yaml:"driver" env:"STORE_DRIVER" env-default:"github"`
	SeedFile string `yaml:"seed_file" env:"STORE_SEED_FILE" env-default:""`
}

type GitHubConfig struct {
	APIURL         string `yaml:"api_url" env:"GITHUB_API_URL" env-default:"https://api.github.com"`
	Owner          string `yaml:"owner" env:"GITHUB_USERNAME" env-default:""`
	Repo           string `yaml:"repo" env:"GITHUB_REPO" env-default:"Password"`
	Branch         string `yaml:"branch" env:"GITHUB_BRANCH" env-default:""`
	Path           string `yaml:"path" env:"DATA_FILE" env-default:"passwords-data.json"`
	Token          string `yaml:"token" env:"GITHUB_TOKEN" env-default:""`
	CommitterName  string `yaml:"committer_name" env:"GITHUB_COMMITTER_NAME" env-default:""`
	CommitterEmail string `yaml:"committer_email" env:"GITHUB_COMMITTER_EMAIL" env-default:""`
	Timeout        int    `yaml:"timeout" env:"GITHUB_TIMEOUT" env-default:"10"`
}

type AllocationConfig struct {
	MaxRetries  int `yaml:"max_retries" env:"ALLOCATION_MAX_RETRIES" env-default:"5"`
	BaseDelayMs int `yaml:"base_delay_ms" env:"ALLOCATION_BASE_DELAY_MS" env-default:"50"`
	MaxDelayMs  int `yaml:"max_delay_ms" env:"ALLOCATION_MAX_DELAY_MS" env-default:"1000"`
	JitterMs    int `yaml:"jitter_ms" env:"ALLOCATION_JITTER_MS" env-default:"25"`
}

type AdminConfig struct {
	Tokens []string `yaml:"tokens" env:"ADMIN_TOKENS" env-separator:","`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
	Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
	User     string `yaml:"user" env:"MONGO_USER" env-default:""`
	Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"passdist"`
}

type TelegramConfig struct {
	Enabled   bool    `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
	ApiKey    string  `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	ChatIds   []int64 `yaml:"chat_ids" env:"TELEGRAM_CHAT_IDS" env-separator:","`
	MinLevel  string  `yaml:"min_level" env:"TELEGRAM_MIN_LEVEL" env-default:"warn"`
	DigestMin int     `yaml:"digest_interval_min" env:"TELEGRAM_DIGEST_MIN" env-default:"0"`
}

type Config struct {
	Env            string           `yaml:"env" env:"APP_ENV" env-default:"local"`
	RequestTimeout int              `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"15"`
	Listen         Listen           `yaml:"listen"`
	Store          StoreConfig      `yaml:"store"`
	GitHub         GitHubConfig     `yaml:"github"`
	Allocation     AllocationConfig `yaml:"allocation"`
	Admin          AdminConfig      `yaml:"admin"`
	Mongo          MongoConfig      `yaml:"mongo"`
	Telegram       TelegramConfig   `yaml:"telegram"`
}

func (g GitHubConfig) TimeoutDuration() time.Duration {
	return time.Duration(g.Timeout) * time.Second
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	once.Do(func() {
		conf, err := Load(path)
		if err != nil {
			log.Fatal(err)
		}
		instance = conf
	})
	return instance
}

// Load reads an optional .env file, then the YAML file at path (if it
// exists) and finally the environment. Missing values take defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}

	conf := &Config{}
	var err error
	if _, statErr := os.Stat(path); path != "" && statErr == nil {
		err = cleanenv.ReadConfig(path, conf)
	} else {
		err = cleanenv.ReadEnv(conf)
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("config: %s; %s", err, desc)
	}
	if err = conf.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return conf, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "memory":
	case "github":
		if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
			return fmt.Errorf("github owner and repo are required")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.GitHub.Path == "" {
		return fmt.Errorf("document path is empty")
	}
	if c.Allocation.MaxRetries < 0 {
		return fmt.Errorf("allocation max_retries must not be negative")
	}
	if c.Telegram.Enabled && (c.Telegram.ApiKey == "" || len(c.Telegram.ChatIds) == 0) {
		return fmt.Errorf("telegram api_key and chat_ids are required when enabled")
	}
	return nil
}
