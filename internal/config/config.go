package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Invoicer"`
		Port int    `envconfig:"PORT" default:"3000"`
	}

	DB struct {
		Path string `envconfig:"DB_PATH" default:"/data/invoices.db"`
	}

	Server struct {
		Timeout         time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
		CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
	}

	Backup struct {
		Dir          string        `envconfig:"BACKUP_DIR" default:"/backups"`
		Retention    int           `envconfig:"BACKUP_RETENTION" default:"7"`
		Interval     time.Duration `envconfig:"BACKUP_INTERVAL" default:"24h"`
		InitialDelay time.Duration `envconfig:"BACKUP_INITIAL_DELAY" default:"5s"`
	}

	Shop struct {
		Name    string `envconfig:"SHOP_NAME" default:"El Paso Furniture & Style"`
		Address string `envconfig:"SHOP_ADDRESS" default:"402 S El Paso St, El Paso, TX 79901"`
		Phone   string `envconfig:"SHOP_PHONE" default:"(915) 730-0160"`
		Logo    string `envconfig:"SHOP_LOGO"`
	}

	// API is where the console reaches the running service.
	API struct {
		URL string `envconfig:"API_URL" default:"http://localhost:3000"`
	}
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Backup.Retention < 1 {
		return nil, fmt.Errorf("BACKUP_RETENTION must be at least 1, got %d", cfg.Backup.Retention)
	}

	return &cfg, nil
}
