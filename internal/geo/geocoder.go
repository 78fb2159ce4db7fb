// Package geo attaches coordinates to events through a cached, bounded
// set of concurrent geocoding lookups.
package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/airwatch/internal/model"
	"github.com/ppiankov/airwatch/internal/normalize"
)

// ErrNotFound is returned when the geocoder has no result for a place
var ErrNotFound = errors.New("location not found")

// Query names the place to resolve
type Query struct {
	City   string
	Region string
}

// Text renders the free-form search string sent to geocoders
func (q Query) Text(country string) string {
	parts := make([]string, 0, 3)
	if q.City != "" {
		parts = append(parts, q.City)
	}
	if q.Region != "" {
		parts = append(parts, strings.TrimSpace(strings.TrimSuffix(q.Region, "обл."))+" область")
	}
	if country != "" {
		parts = append(parts, country)
	}
	return strings.Join(parts, ", ")
}

// Key returns the cache identity of the query
func (q Query) Key() string {
	return normalize.Key(q.City) + "|" + normalize.Key(q.Region)
}

// QueryFor builds the lookup query for an event
func QueryFor(e model.Event) Query {
	return Query{City: e.City, Region: e.Region}
}

// Geocoder resolves a place to coordinates
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, q Query) (model.Coordinates, error)
}

// Options configures geocoder construction
type Options struct {
	Provider          string
	BaseURL           string
	APIKey            string
	CountryCode       string
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	HTTPProxy         string
	HTTPSProxy        string
	NoProxy           string
}

// NewGeocoder creates the configured geocoder. An empty provider disables
// enrichment and returns nil.
func NewGeocoder(opts Options) (Geocoder, error) {
	switch strings.ToLower(opts.Provider) {
	case "nominatim", "osm":
		return NewNominatim(opts), nil
	case "opencage":
		return NewOpenCage(opts)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown geocoder: %s (supported: nominatim, opencage)", opts.Provider)
	}
}
