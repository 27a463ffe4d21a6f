// Package geocode resolves free-text locations to coordinates.
//
// CONTRACT — NEVER FAIL:
// Geocoding is best-effort decoration, not a gate: a submission must succeed
// even when the external service is down. Resolve therefore returns no error.
// Every failure mode (network error, bad JSON, no match) degrades to the
// [0, 0] fallback pair, and the caller stores that.
//
// Coordinates are [longitude, latitude] throughout — the GeoJSON order that
// MongoDB's 2dsphere index expects, not the lat/lon order humans use.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public photon instance (an OSM-backed geocoder with
// no API key requirement).
const DefaultBaseURL = "https://photon.komoot.io"

// Query is the input to a resolution attempt. Latitude/Longitude are the
// submitter's manual coordinates; when both are present they win outright and
// no external lookup happens.
type Query struct {
	Name      string
	Address   string
	City      string
	State     string
	Latitude  *float64
	Longitude *float64
}

// Resolver turns a Query into a [longitude, latitude] pair.
// Implementations never return an error — see the package contract.
type Resolver interface {
	Resolve(ctx context.Context, q Query) []float64
}

// PhotonResolver resolves against a photon API endpoint.
type PhotonResolver struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewPhotonResolver creates a resolver against the given photon base URL
// (pass DefaultBaseURL in production, an httptest server URL in tests).
func NewPhotonResolver(baseURL string, logger *slog.Logger) *PhotonResolver {
	return &PhotonResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Resolve implements Resolver.
//
// RESOLUTION ORDER:
//  1. Manual coordinates, when the submitter supplied both → returned verbatim,
//     no lookup performed.
//  2. Waterfall of queries from most to least specific:
//     "name, address, city, state" → "address, city, state" → "city, state".
//     The first non-degenerate hit wins.
//  3. [0, 0] when everything came up empty.
func (r *PhotonResolver) Resolve(ctx context.Context, q Query) []float64 {
	if q.Latitude != nil && q.Longitude != nil {
		return []float64{*q.Longitude, *q.Latitude}
	}

	queries := []string{
		joinParts(q.Name, q.Address, q.City, q.State),
		joinParts(q.Address, q.City, q.State),
		joinParts(q.City, q.State),
	}

	for _, query := range queries {
		if query == "" {
			continue
		}
		coords := r.lookup(ctx, query)
		if coords[0] != 0 || coords[1] != 0 {
			return coords
		}
	}

	return []float64{0, 0}
}

// photonResponse is the slice of photon's GeoJSON output we care about.
type photonResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// lookup runs one photon query. All failures degrade to [0, 0].
func (r *PhotonResolver) lookup(ctx context.Context, query string) []float64 {
	u := fmt.Sprintf("%s/api/?q=%s&limit=1", r.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return []float64{0, 0}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("geocode lookup failed", slog.String("query", query), slog.String("error", err.Error()))
		return []float64{0, 0}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("geocode lookup returned non-200",
			slog.String("query", query),
			slog.Int("status", resp.StatusCode),
		)
		return []float64{0, 0}
	}

	var body photonResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		r.logger.Warn("geocode response unparseable", slog.String("query", query), slog.String("error", err.Error()))
		return []float64{0, 0}
	}

	if len(body.Features) == 0 || len(body.Features[0].Geometry.Coordinates) != 2 {
		return []float64{0, 0}
	}

	c := body.Features[0].Geometry.Coordinates
	return []float64{c[0], c[1]}
}

// joinParts joins non-empty parts with ", " so sparse queries don't end up
// with dangling commas photon would take literally.
func joinParts(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
