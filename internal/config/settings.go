package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings contains the application config.
type Settings struct {
	Environment string `env:"ENVIRONMENT" envDefault:"local" yaml:"environment"`
	LogLevel    string `env:"LOG_LEVEL"   envDefault:"info"  yaml:"logLevel"`
	Port        int    `env:"PORT"        envDefault:"8080"  yaml:"port"`

	// FIPE API settings
	FIPEBaseURL string        `env:"FIPE_BASE_URL" envDefault:"https://veiculos.fipe.org.br/api/veiculos" yaml:"fipeBaseUrl"`
	FIPEReferer string        `env:"FIPE_REFERER"  envDefault:"https://veiculos.fipe.org.br/"             yaml:"fipeReferer"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT"  envDefault:"0s"                                        yaml:"httpTimeout"`

	// ZeroKmYear is shown in the zero-km label. Zero means the current calendar year.
	ZeroKmYear int `env:"ZERO_KM_YEAR" envDefault:"0" yaml:"zeroKmYear"`

	// Session settings
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"30m" yaml:"sessionTtl"`
}

// Load parses the settings from the environment.
func Load() (Settings, error) {
	settings, err := env.ParseAs[Settings]()
	if err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	return settings, nil
}
