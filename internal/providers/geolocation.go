package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"importscout/internal/research"
)

const geolocationTimeout = 5 * time.Second

// Geolocator resolves a client IP to a country via ip-api. Private and
// loopback addresses short-circuit to nil without any network call.
type Geolocator struct {
	BaseURL string

	client *http.Client
}

func NewGeolocator(baseURL string) *Geolocator {
	return &Geolocator{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: geolocationTimeout},
	}
}

type ipAPIResponse struct {
	Status      string `json:"status"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
	Timezone    string `json:"timezone"`
}

// Locate returns nil for local addresses and on any lookup failure.
func (g *Geolocator) Locate(ctx context.Context, ip string) *research.Geolocation {
	if isLocalIP(ip) {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(g.BaseURL, "/")+"/"+ip, nil)
	if err != nil {
		return nil
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	var data ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil
	}
	if data.Status != "success" {
		return nil
	}

	return &research.Geolocation{
		CountryCode: data.CountryCode,
		CountryName: data.Country,
		City:        data.City,
		Timezone:    data.Timezone,
	}
}

func isLocalIP(ip string) bool {
	return ip == "127.0.0.1" ||
		ip == "::1" ||
		ip == "0.0.0.0" ||
		strings.HasPrefix(ip, "192.168.") ||
		strings.HasPrefix(ip, "10.") ||
		strings.HasPrefix(ip, "172.")
}
