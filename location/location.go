// Package location resolves a best-effort description of where a login
// attempt comes from. Resolution never fails: when every provider gives up
// the static Unknown record is returned.
package location

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Info is attached to a login attempt as its location field.
type Info struct {
	IP        string   `json:"ip"`
	City      string   `json:"city"`
	Country   string   `json:"country"`
	Region    string   `json:"region"`
	Timezone  string   `json:"timezone"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Unknown is the record used when nothing could be resolved.
func Unknown() Info {
	return Info{
		IP:       "unknown",
		City:     "Unknown",
		Country:  "Unknown",
		Region:   "Unknown",
		Timezone: "UTC",
	}
}

// Provider is one step of the resolution pipeline.
type Provider interface {
	Lookup(ctx context.Context) (*Info, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (*Info, error)

func (f ProviderFunc) Lookup(ctx context.Context) (*Info, error) { return f(ctx) }

// Resolver produces location data for a login attempt.
type Resolver interface {
	Resolve(ctx context.Context) Info
}

// Chain tries each provider in order and returns the first answer.
type Chain struct {
	providers []Provider
	timeout   time.Duration
}

const defaultStepTimeout = 3 * time.Second

// NewChain builds a resolver over providers. Each step is bounded by timeout
// (3s when zero).
func NewChain(timeout time.Duration, providers ...Provider) *Chain {
	if timeout <= 0 {
		timeout = defaultStepTimeout
	}
	return &Chain{providers: providers, timeout: timeout}
}

func (c *Chain) Resolve(ctx context.Context) Info {
	for i, p := range c.providers {
		if ctx.Err() != nil {
			break
		}
		stepCtx, cancel := context.WithTimeout(ctx, c.timeout)
		info, err := p.Lookup(stepCtx)
		cancel()
		if err != nil {
			log.Debug().Err(err).Int("step", i).Msg("location provider failed")
			continue
		}
		if info != nil {
			return *info
		}
	}
	return Unknown()
}

// Static always resolves to the Unknown record.
type Static struct{}

func (Static) Resolve(context.Context) Info { return Unknown() }
