package config

import (
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type AppConfig struct {
	// Tide predictions come from this NOAA CO-OPS station.
	NOAAStationID string  `envconfig:"NOAA_STATION_ID" default:"9442396" validate:"required,numeric"`
	Latitude      float64 `envconfig:"LATITUDE" default:"47.9133" validate:"gte=-90,lte=90"`
	Longitude     float64 `envconfig:"LONGITUDE" default:"-124.6369" validate:"gte=-180,lte=180"`

	// StationSubnet holds the first three octets of the LAN the weather
	// station lives on. Empty disables station discovery.
	StationSubnet string        `envconfig:"STATION_SUBNET" validate:"omitempty,subnet24"`
	StationPort   int           `envconfig:"STATION_PORT" default:"11000" validate:"gte=1,lte=65535"`
	ProbeTimeout  time.Duration `envconfig:"PROBE_TIMEOUT" default:"600ms" validate:"gt=0"`
	ScanCooldown  int           `envconfig:"SCAN_COOLDOWN" default:"5" validate:"gte=0"`

	UserAgent         string        `envconfig:"USER_AGENT"`
	HTTPTimeout       time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s" validate:"gt=0"`
	FetchAttempts     int           `envconfig:"FETCH_ATTEMPTS" default:"10" validate:"gte=1,lte=50"`
	FetchRetryDelay   time.Duration `envconfig:"FETCH_RETRY_DELAY" default:"2s" validate:"gte=0"`
	StationRetryDelay time.Duration `envconfig:"STATION_RETRY_DELAY" default:"100ms" validate:"gte=0"`

	// RefreshInterval controls how often every kind is refreshed in the
	// background.
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"1m" validate:"gte=1s"`

	Port string `envconfig:"PORT" default:"8080"`

	RelayHTTPAddr string `envconfig:"RELAY_HTTP_ADDR" default:":11000"`
	RelayUDPAddr  string `envconfig:"RELAY_UDP_ADDR" default:":11000"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := newValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = fmt.Sprintf("tids (%g,%g)", cfg.Latitude, cfg.Longitude)
	}
	return &cfg, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("subnet24", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if strings.Count(s, ".") != 2 {
			return false
		}
		ip := net.ParseIP(s + ".1")
		return ip != nil && ip.To4() != nil
	})
	return v
}
