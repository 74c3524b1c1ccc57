// Package config binds the process's runtime configuration from environment
// variables, with an optional .env file loaded first.
package config

import (
	"os"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config holds every environment-derived default. CLI flags (-d, -l) layer
// on top of these in cmd/mjpegcam and win when given.
type Config struct {
	Device   string `env:"MJPEGCAM_DEVICE" envDefault:"/dev/video0"`
	BindAddr string `env:"MJPEGCAM_BIND_ADDR" envDefault:"0.0.0.0"`
	Port     int    `env:"MJPEGCAM_PORT" envDefault:"8080"`
	Width    uint32 `env:"MJPEGCAM_WIDTH" envDefault:"1920"`
	Height   uint32 `env:"MJPEGCAM_HEIGHT" envDefault:"1080"`
}

// Load reads an optional .env file from the working directory, if present,
// then parses the process environment into a Config. A missing .env file is
// not an error; a malformed one, or a value that fails its env binding, is.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
