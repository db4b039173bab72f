// Package safebrowsing checks URLs against the Google Safe Browsing v4 API.
package safebrowsing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ashureev/sentinel-auth/internal/config"
)

// Messages for status codes with a dedicated explanation.
const (
	MsgBadRequest = "API Error 400: Bad request (invalid URL format or payload)"
	MsgForbidden  = "API Error 403: Forbidden. Check your API key, billing, and enablements."
)

// Validation errors reported to the user before a check is attempted.
//
//nolint:staticcheck // The text is shown to users verbatim.
var (
	ErrEmptyURL  = errors.New("Please enter a URL.")
	ErrURLScheme = errors.New("URL must start with http:// or https://")
)

// ThreatTypes are the categories every lookup asks about.
var ThreatTypes = []string{
	"MALWARE",
	"SOCIAL_ENGINEERING",
	"UNWANTED_SOFTWARE",
	"POTENTIALLY_HARMFUL_APPLICATION",
}

const maxResponseSize = 4 << 20

// ValidateURL enforces the preconditions of Check.
func ValidateURL(raw string) error {
	if raw == "" {
		return ErrEmptyURL
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return ErrURLScheme
	}
	return nil
}

type clientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type threatEntry struct {
	URL string `json:"url"`
}

type threatInfo struct {
	ThreatTypes      []string      `json:"threatTypes"`
	PlatformTypes    []string      `json:"platformTypes"`
	ThreatEntryTypes []string      `json:"threatEntryTypes"`
	ThreatEntries    []threatEntry `json:"threatEntries"`
}

type findRequest struct {
	Client     clientInfo `json:"client"`
	ThreatInfo threatInfo `json:"threatInfo"`
}

type findResponse struct {
	Matches []json.RawMessage `json:"matches"`
}

// Checker queries threatMatches:find with a single attempt per URL.
type Checker struct {
	endpoint   string
	apiKey     string
	client     clientInfo
	httpClient *http.Client
}

// New validates cfg and builds a Checker. It returns config.ErrMissingAPIKey
// when no key is configured.
func New(cfg config.SafeBrowsingConfig) (*Checker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Checker{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client: clientInfo{
			ClientID:      cfg.ClientID,
			ClientVersion: cfg.ClientVersion,
		},
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Check asks the threat API whether rawURL is listed.
func (c *Checker) Check(ctx context.Context, rawURL string) Verdict {
	matches, status, err := c.find(ctx, rawURL)
	if err != nil {
		return Failed("Request failed: " + err.Error())
	}

	switch status {
	case http.StatusOK:
		if len(matches) > 0 {
			return Unsafe(matches)
		}
		return Safe()
	case http.StatusBadRequest:
		return Failed(MsgBadRequest)
	case http.StatusForbidden:
		return Failed(MsgForbidden)
	default:
		return Failed(fmt.Sprintf("API Error: %d", status))
	}
}

func (c *Checker) find(ctx context.Context, rawURL string) ([]json.RawMessage, int, error) {
	body := findRequest{
		Client: c.client,
		ThreatInfo: threatInfo{
			ThreatTypes:      ThreatTypes,
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    []threatEntry{{URL: rawURL}},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal threat request: %w", err)
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, 0, fmt.Errorf("parse endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("key", c.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("create threat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, stripURL(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var result findResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&result); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode threat response: %w", err)
	}
	return result.Matches, resp.StatusCode, nil
}

// stripURL drops the request URL from transport errors; it carries the API key.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}
	return err
}
