package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/airwatch/internal/model"
	"github.com/ppiankov/airwatch/internal/util"
	"github.com/ppiankov/airwatch/internal/worker"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim resolves places through the OpenStreetMap search API
type Nominatim struct {
	baseURL     string
	countryCode string
	httpClient  *http.Client
	limiter     *worker.Limiter
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// NewNominatim creates a Nominatim geocoder. Requests are paced per host to
// honor the public instance's usage policy.
func NewNominatim(opts Options) *Nominatim {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	return &Nominatim{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		countryCode: opts.CountryCode,
		httpClient: util.NewHTTPClient(util.ClientOptions{
			UserAgent:  opts.UserAgent,
			HTTPProxy:  opts.HTTPProxy,
			HTTPSProxy: opts.HTTPSProxy,
			NoProxy:    opts.NoProxy,
		}),
		limiter: worker.NewLimiter(opts.RequestsPerSecond, opts.Burst),
	}
}

// Name returns the geocoder name
func (n *Nominatim) Name() string {
	return "nominatim"
}

// Geocode resolves q, returning ErrNotFound when the search is empty
func (n *Nominatim) Geocode(ctx context.Context, q Query) (model.Coordinates, error) {
	params := url.Values{}
	params.Set("q", q.Text("Україна"))
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("accept-language", "uk")
	if n.countryCode != "" {
		params.Set("countrycodes", n.countryCode)
	}
	endpoint := n.baseURL + "/search?" + params.Encode()

	if err := n.limiter.Wait(ctx, endpoint); err != nil {
		return model.Coordinates{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("nominatim request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.Coordinates{}, fmt.Errorf("nominatim error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return model.Coordinates{}, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(places) == 0 {
		return model.Coordinates{}, ErrNotFound
	}

	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return model.Coordinates{}, fmt.Errorf("nominatim returned malformed coordinates %q,%q", places[0].Lat, places[0].Lon)
	}

	return model.Coordinates{Lat: lat, Lon: lon}, nil
}
