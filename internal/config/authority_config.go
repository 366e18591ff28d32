package config

import "time"

type AuthorityConfig interface {
	GetAuthorityURL() string
	GetAuthorityTimeout() time.Duration
	GetAuthorityRequestsPerSecond() float64
	GetLocationURL() string
	GetReverseGeocodeURL() string
}

type Authority struct {
	URL               string        `yaml:"url" env:"TABSESSION_AUTHORITY_URL"`
	Timeout           time.Duration `yaml:"timeout" env:"TABSESSION_AUTHORITY_TIMEOUT"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"TABSESSION_AUTHORITY_RPS"`
	// LocationURL is the IP lookup endpoint used to enrich login attempts. Empty disables it.
	LocationURL string `yaml:"location_url" env:"TABSESSION_LOCATION_URL"`
	// ReverseGeocodeURL turns explicit coordinates into a place name. Empty keeps bare coordinates.
	ReverseGeocodeURL string `yaml:"reverse_geocode_url" env:"TABSESSION_REVERSE_GEOCODE_URL"`
}

func (a *Authority) applyDefaults() {
	if a.URL == "" {
		a.URL = "http://localhost:8000/api"
	}
	if a.Timeout == 0 {
		a.Timeout = 10 * time.Second
	}
	if a.RequestsPerSecond == 0 {
		a.RequestsPerSecond = 5
	}
}
