package config

import (
	"log"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // zone database for minimal images

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/librarydesk/library-service/pkg/kafka"
	"github.com/librarydesk/library-service/pkg/logger"
	"github.com/librarydesk/library-service/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"LIBRARY_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"LIBRARY_HTTP_PORT" default:"8060"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration
}

type Storage string

const (
	StoragePostgres Storage = "postgres"
	StorageMemory   Storage = "memory"
)

type Config struct {
	Server   HTTPServer   `yaml:"server"`
	Kafka    kafka.Config `yaml:"kafka"`
	Database postgres.DB  `yaml:"db"`
	Log      logger.Log   `yaml:"log"`
	// Storage selects the repository; memory keeps everything in process.
	Storage Storage `yaml:"storage" envconfig:"STORAGE"`
	// TimeZone is the zone loan days are counted in.
	TimeZone string `yaml:"timeZone" envconfig:"LIBRARY_TZ" default:"UTC"`
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "time zone %q", c.TimeZone)
	}
	return loc, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}
	_, err := c.Location()
	return err
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment. Options set the values used when
// the environment leaves a field unset.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		if err := envconfig.Process("", &config); err != nil {
			log.Fatal("NewConfig ", err)
		}
		config.Storage = Storage(strings.ToLower(string(config.Storage)))
		if config.Storage == "" {
			config.Storage = StoragePostgres
		}
		if err := config.validate(); err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
	})

	return cfg
}
