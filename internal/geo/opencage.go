package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ppiankov/airwatch/internal/model"
	"github.com/ppiankov/airwatch/internal/util"
	"github.com/ppiankov/airwatch/internal/worker"
)

const defaultOpenCageURL = "https://api.opencagedata.com"

// OpenCage resolves places through the OpenCage geocoding API
type OpenCage struct {
	baseURL     string
	apiKey      string
	countryCode string
	httpClient  *http.Client
	limiter     *worker.Limiter
}

type openCageResponse struct {
	Results []struct {
		Geometry struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
		Confidence int `json:"confidence"`
	} `json:"results"`
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

// NewOpenCage creates an OpenCage geocoder; an API key is required
func NewOpenCage(opts Options) (*OpenCage, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("OpenCage API key is required")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenCageURL
	}
	return &OpenCage{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      opts.APIKey,
		countryCode: opts.CountryCode,
		httpClient: util.NewHTTPClient(util.ClientOptions{
			UserAgent:  opts.UserAgent,
			HTTPProxy:  opts.HTTPProxy,
			HTTPSProxy: opts.HTTPSProxy,
			NoProxy:    opts.NoProxy,
		}),
		limiter: worker.NewLimiter(opts.RequestsPerSecond, opts.Burst),
	}, nil
}

// Name returns the geocoder name
func (o *OpenCage) Name() string {
	return "opencage"
}

// Geocode resolves q, returning ErrNotFound when there are no results
func (o *OpenCage) Geocode(ctx context.Context, q Query) (model.Coordinates, error) {
	params := url.Values{}
	params.Set("q", q.Text("Україна"))
	params.Set("key", o.apiKey)
	params.Set("language", "uk")
	params.Set("limit", "1")
	params.Set("no_annotations", "1")
	if o.countryCode != "" {
		params.Set("countrycode", o.countryCode)
	}
	endpoint := o.baseURL + "/geocode/v1/json?" + params.Encode()

	if err := o.limiter.Wait(ctx, endpoint); err != nil {
		return model.Coordinates{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("opencage request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("read response: %w", err)
	}

	var out openCageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return model.Coordinates{}, fmt.Errorf("decode opencage response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.Coordinates{}, fmt.Errorf("opencage error (%d): %s", resp.StatusCode, out.Status.Message)
	}
	if len(out.Results) == 0 {
		return model.Coordinates{}, ErrNotFound
	}

	g := out.Results[0].Geometry
	return model.Coordinates{Lat: g.Lat, Lon: g.Lng}, nil
}
