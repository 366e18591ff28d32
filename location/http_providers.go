package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-tab-session/internal/utils"
)

// IPLookup asks an ipapi-style JSON endpoint where the caller's address is.
type IPLookup struct {
	URL    string
	Client *http.Client
}

type ipLookupResponse struct {
	IP          string   `json:"ip"`
	City        string   `json:"city"`
	CountryName string   `json:"country_name"`
	Country     string   `json:"country"`
	Region      string   `json:"region"`
	Timezone    string   `json:"timezone"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Error       bool     `json:"error"`
	Reason      string   `json:"reason"`
}

func (p IPLookup) Lookup(ctx context.Context) (*Info, error) {
	var body ipLookupResponse
	if err := getJSON(ctx, p.Client, p.URL, &body); err != nil {
		return nil, fmt.Errorf("ip lookup: %w", err)
	}
	if body.Error {
		return nil, fmt.Errorf("ip lookup: %s", body.Reason)
	}
	country := body.CountryName
	if country == "" {
		country = body.Country
	}
	return &Info{
		IP:        body.IP,
		City:      body.City,
		Country:   country,
		Region:    body.Region,
		Timezone:  body.Timezone,
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
	}, nil
}

// Coordinates resolves a position the caller already knows (for example a
// device fix). When ReverseURL is set the position is reverse geocoded with
// a Nominatim-style endpoint; otherwise only the coordinates are reported.
type Coordinates struct {
	Latitude   float64
	Longitude  float64
	ReverseURL string
	Client     *http.Client
}

type reverseResponse struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

func (p Coordinates) Lookup(ctx context.Context) (*Info, error) {
	info := Unknown()
	info.Latitude = utils.Ptr(p.Latitude)
	info.Longitude = utils.Ptr(p.Longitude)
	if p.ReverseURL == "" {
		return &info, nil
	}

	u, err := url.Parse(p.ReverseURL)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode url: %w", err)
	}
	q := u.Query()
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(p.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Longitude, 'f', -1, 64))
	u.RawQuery = q.Encode()

	var body reverseResponse
	if err := getJSON(ctx, p.Client, u.String(), &body); err != nil {
		// the coordinates alone are still better than nothing
		return &info, nil
	}
	switch {
	case body.Address.City != "":
		info.City = body.Address.City
	case body.Address.Town != "":
		info.City = body.Address.Town
	case body.Address.Village != "":
		info.City = body.Address.Village
	}
	if body.Address.State != "" {
		info.Region = body.Address.State
	}
	if body.Address.Country != "" {
		info.Country = body.Address.Country
	}
	return &info, nil
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, v any) error {
	if rawURL == "" {
		return fmt.Errorf("no endpoint configured")
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
