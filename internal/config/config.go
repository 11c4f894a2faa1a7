// Package config loads the server configuration from YAML with
// ROUNDFLOW_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const envPrefix = "ROUNDFLOW_"

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Chain struct {
		RPCURL         string `yaml:"rpc_url"`
		PrivateKey     string `yaml:"private_key"`
		ProgramFactory string `yaml:"program_factory"`
		RoundFactory   string `yaml:"round_factory"`
	} `yaml:"chain"`

	Indexer struct {
		Endpoints      map[uint64]string `yaml:"endpoints"`
		PollInterval   time.Duration     `yaml:"poll_interval"`
		SyncTimeout    time.Duration     `yaml:"sync_timeout"` // 0 waits indefinitely
		RequestTimeout time.Duration     `yaml:"request_timeout"`
	} `yaml:"indexer"`

	Storage struct {
		Backend string `yaml:"backend"` // pinata or minio
		Pinata  struct {
			Endpoint string        `yaml:"endpoint"`
			JWT      string        `yaml:"jwt"`
			Timeout  time.Duration `yaml:"timeout"`
		} `yaml:"pinata"`
		MinIO struct {
			Endpoint  string `yaml:"endpoint"`
			AccessKey string `yaml:"access_key"`
			SecretKey string `yaml:"secret_key"`
			Bucket    string `yaml:"bucket"`
			Prefix    string `yaml:"prefix"`
			Region    string `yaml:"region"`
			UseSSL    bool   `yaml:"use_ssl"`
		} `yaml:"minio"`
	} `yaml:"storage"`

	Worker struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"worker"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Indexer.PollInterval = time.Second
	cfg.Indexer.RequestTimeout = 15 * time.Second
	cfg.Storage.Backend = "pinata"
	cfg.Storage.Pinata.Timeout = 30 * time.Second
	cfg.Worker.Concurrency = 4
	return cfg
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}
	str("SERVER_ADDR", &c.Server.Addr)
	str("DATABASE_DSN", &c.Database.DSN)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("RPC_URL", &c.Chain.RPCURL)
	str("PRIVATE_KEY", &c.Chain.PrivateKey)
	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("PINATA_JWT", &c.Storage.Pinata.JWT)
	str("MINIO_ACCESS_KEY", &c.Storage.MinIO.AccessKey)
	str("MINIO_SECRET_KEY", &c.Storage.MinIO.SecretKey)

	dur := func(name string, dst *time.Duration) error {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
		return nil
	}
	if err := dur("POLL_INTERVAL", &c.Indexer.PollInterval); err != nil {
		return err
	}
	if err := dur("SYNC_TIMEOUT", &c.Indexer.SyncTimeout); err != nil {
		return err
	}

	if v, ok := os.LookupEnv(envPrefix + "WORKER_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sWORKER_CONCURRENCY: %w", envPrefix, err)
		}
		c.Worker.Concurrency = n
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Indexer.PollInterval < 0 {
		errs = append(errs, errors.New("indexer.poll_interval must not be negative"))
	}
	if c.Indexer.SyncTimeout < 0 {
		errs = append(errs, errors.New("indexer.sync_timeout must not be negative"))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, errors.New("worker.concurrency must be at least 1"))
	}
	switch c.Storage.Backend {
	case "pinata":
	case "minio":
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			errs = append(errs, errors.New("storage.minio needs endpoint and bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not pinata or minio", c.Storage.Backend))
	}
	signer := c.Chain.PrivateKey != ""
	if signer && c.Chain.RPCURL == "" {
		errs = append(errs, errors.New("chain.rpc_url is required with chain.private_key"))
	}
	for _, f := range []struct{ name, addr string }{
		{"chain.program_factory", c.Chain.ProgramFactory},
		{"chain.round_factory", c.Chain.RoundFactory},
	} {
		switch {
		case f.addr == "":
			if signer {
				errs = append(errs, fmt.Errorf("%s is required with chain.private_key", f.name))
			}
		case !common.IsHexAddress(f.addr):
			errs = append(errs, fmt.Errorf("%s %q is not an address", f.name, f.addr))
		case signer && common.HexToAddress(f.addr) == (common.Address{}):
			errs = append(errs, fmt.Errorf("%s must not be the zero address", f.name))
		}
	}
	return errors.Join(errs...)
}
