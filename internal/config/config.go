package config

import (
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"
)

const (
	StoreDriverPostgres  = "postgres"
	StoreDriverSqlite    = "sqlite"
	StoreDriverRedis     = "redis"
	StoreDriverMemcached = "memcached"
	StoreDriverMemory    = "memory"
)

// PatchRevision controls whether a PATCH write is guarded by the revision it read.
type PatchRevision string

const (
	PatchRevisionCheck     PatchRevision = "check"
	PatchRevisionOverwrite PatchRevision = "overwrite"
)

type Config struct {
	Server      Server      `yaml:"server"`
	Store       Store       `yaml:"store"`
	Events      Events      `yaml:"events"`
	Concurrency Concurrency `yaml:"concurrency"`
	Upstream    Upstream    `yaml:"upstream"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	AdminToken    string `yaml:"adminToken"`
	LogLevel      string `yaml:"logLevel"`
	LogJSON       bool   `yaml:"logJSON"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type Store struct {
	Driver         string `yaml:"driver"`
	PostgresDsn    string `yaml:"postgresDsn"`
	SqlitePath     string `yaml:"sqlitePath"`
	RedisAddr      string `yaml:"redisAddr"`
	RedisPassword  string `yaml:"redisPassword"`
	RedisDB        int    `yaml:"redisDB"`
	MemcachedAddr  string `yaml:"memcachedAddr"`
	ConnectRetries uint64 `yaml:"connectRetries"`
}

type Events struct {
	Redis        bool     `yaml:"redis"`
	RedisAddr    string   `yaml:"redisAddr"`
	RedisChannel string   `yaml:"redisChannel"`
	KafkaBrokers []string `yaml:"kafkaBrokers"`
	KafkaTopic   string   `yaml:"kafkaTopic"`
}

type Concurrency struct {
	PatchRevision PatchRevision `yaml:"patchRevision"`
}

type Upstream struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"userAgent"`
	MaxFailCount int           `yaml:"maxFailCount"`
	FailWindow   time.Duration `yaml:"failWindow"`
}

// Default returns the configuration used when a field is left empty.
func Default() Config {
	return Config{
		Server: Server{
			Listen:   ":8080",
			LogLevel: "info",
		},
		Store: Store{
			Driver:         StoreDriverMemory,
			ConnectRetries: 5,
		},
		Events: Events{
			RedisChannel: "mediadb.records",
			KafkaTopic:   "mediadb.records",
		},
		Concurrency: Concurrency{
			PatchRevision: PatchRevisionCheck,
		},
		Upstream: Upstream{
			Timeout:      10 * time.Second,
			UserAgent:    "mediadb",
			MaxFailCount: 5,
			FailWindow:   time.Minute,
		},
	}
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	config := Default()
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}

	config.applyDefaults()

	err = config.Validate()
	if err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = def.Server.LogLevel
	}
	if c.Store.Driver == "" {
		c.Store.Driver = def.Store.Driver
	}
	if c.Events.RedisChannel == "" {
		c.Events.RedisChannel = def.Events.RedisChannel
	}
	if c.Events.RedisAddr == "" {
		c.Events.RedisAddr = c.Store.RedisAddr
	}
	if c.Events.KafkaTopic == "" {
		c.Events.KafkaTopic = def.Events.KafkaTopic
	}
	if c.Concurrency.PatchRevision == "" {
		c.Concurrency.PatchRevision = def.Concurrency.PatchRevision
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = def.Upstream.Timeout
	}
	if c.Upstream.UserAgent == "" {
		c.Upstream.UserAgent = def.Upstream.UserAgent
	}
	if c.Upstream.MaxFailCount == 0 {
		c.Upstream.MaxFailCount = def.Upstream.MaxFailCount
	}
	if c.Upstream.FailWindow == 0 {
		c.Upstream.FailWindow = def.Upstream.FailWindow
	}
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Store),
		validation.Field(&c.Events),
		validation.Field(&c.Concurrency),
	)
}

func (s Server) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Listen, validation.Required),
		validation.Field(&s.LogLevel, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&s.TraceEndpoint, validation.When(s.EnableTrace, validation.Required)),
	)
}

func (s Store) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In(
			StoreDriverPostgres,
			StoreDriverSqlite,
			StoreDriverRedis,
			StoreDriverMemcached,
			StoreDriverMemory,
		)),
		validation.Field(&s.PostgresDsn, validation.When(s.Driver == StoreDriverPostgres, validation.Required)),
		validation.Field(&s.SqlitePath, validation.When(s.Driver == StoreDriverSqlite, validation.Required)),
		validation.Field(&s.RedisAddr, validation.When(s.Driver == StoreDriverRedis, validation.Required)),
		validation.Field(&s.MemcachedAddr, validation.When(s.Driver == StoreDriverMemcached, validation.Required)),
	)
}

func (e Events) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.RedisAddr, validation.When(e.Redis, validation.Required)),
		validation.Field(&e.KafkaTopic, validation.When(len(e.KafkaBrokers) > 0, validation.Required)),
	)
}

func (c Concurrency) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PatchRevision, validation.In(PatchRevisionCheck, PatchRevisionOverwrite)),
	)
}
