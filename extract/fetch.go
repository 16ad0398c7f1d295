package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rasnes/healthcare-etl/config"
)

// ErrFetch tags every failure of the API boundary (transport, HTTP status,
// undecodable body), so callers can tell a failed request from an empty one.
var ErrFetch = errors.New("api fetch failed")

// RawRecord is one element of the JSON array returned by the API.
type RawRecord = map[string]any

type APIClient struct {
	HTTPClient *retryablehttp.Client
	Logger     *slog.Logger
	BaseURL    string
	Endpoint   string
	apiKey     string
}

func NewAPIClient(config *config.Config, logger *slog.Logger) (*APIClient, error) {
	if config.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is not configured")
	}

	apiKey := os.Getenv("HEALTH_API_KEY")
	if apiKey == "" {
		apiKey = config.API.APIKey
	}

	client := &APIClient{
		HTTPClient: retryablehttp.NewClient(),
		Logger:     logger,
		BaseURL:    config.API.BaseURL,
		Endpoint:   config.API.Endpoint,
		apiKey:     apiKey,
	}

	client.HTTPClient.RetryWaitMin = config.Extract.Backoff.RetryWaitMin
	client.HTTPClient.RetryWaitMax = config.Extract.Backoff.RetryWaitMax
	client.HTTPClient.RetryMax = config.Extract.Backoff.RetryMax
	client.HTTPClient.Logger = logger

	return client, nil
}

// FetchRecords requests the configured endpoint with the given query
// parameters and decodes the JSON array body. An empty array is a valid,
// successful result.
func (c *APIClient) FetchRecords(params map[string]string) ([]RawRecord, error) {
	reqURL, err := c.buildURL(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	body, err := c.FetchData(reqURL, "records")
	if err != nil {
		c.Logger.Error("API request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	var records []RawRecord
	if len(strings.TrimSpace(string(body))) == 0 {
		return records, nil
	}

	decoder := json.NewDecoder(strings.NewReader(string(body)))
	decoder.UseNumber()
	if err := decoder.Decode(&records); err != nil {
		c.Logger.Error("API response is not a JSON array", "error", err)
		return nil, fmt.Errorf("%w: decoding response: %v", ErrFetch, err)
	}

	return records, nil
}

// FetchData handles the common logic of making the HTTP request and checking the response status
func (c *APIClient) FetchData(url, description string) ([]byte, error) {
	body, resp, err := c.get(url)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s, status: %s, body: %s", description, resp.Status, string(body))
	}

	return body, nil
}

// buildURL joins base URL and optional endpoint and encodes params
func (c *APIClient) buildURL(params map[string]string) (string, error) {
	rawURL := strings.TrimRight(c.BaseURL, "/")
	if c.Endpoint != "" {
		rawURL += "/" + strings.TrimLeft(c.Endpoint, "/")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	query := parsedURL.Query()
	for k, v := range params {
		if v != "" {
			query.Set(k, v)
		}
	}
	parsedURL.RawQuery = query.Encode()

	return parsedURL.String(), nil
}

func (c *APIClient) get(url string) (body []byte, resp *http.Response, err error) {
	req, err := retryablehttp.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err = c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	return body, resp, nil
}
