// Package directory looks up entrants in the legacy third-party live-race
// directory and builds combined multistream viewing links.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public endpoint of the legacy race directory.
const DefaultBaseURL = "http://api.speedrunslive.com"

const multistreamBase = "http://multistre.am/"

// ErrUnknownRaceCode is returned when the directory has no race document
// for the code, or the document carries no entrant listing.
var ErrUnknownRaceCode = errors.New("no race found for code")

// Client queries the legacy race directory over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type raceDocument struct {
	Entrants map[string]struct {
		Twitch    string `json:"twitch"`
		StateText string `json:"statetext"`
	} `json:"entrants"`
}

// FetchEntrants returns the stream handles of the race's entrants,
// filtered to those whose status is "Ready" unless includeAll is set.
// Race codes are the trailing five characters of whatever the user pasted,
// so "srl-abcde" and "abcde" both work.
func (c *Client) FetchEntrants(ctx context.Context, raceCode string, includeAll bool) ([]string, error) {
	code := strings.TrimSpace(raceCode)
	if len(code) > 5 {
		code = code[len(code)-5:]
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/races/"+code, nil)
	if err != nil {
		return nil, fmt.Errorf("create directory request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch race %s: %w", code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrUnknownRaceCode
		}
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("directory returned status %d: %s", resp.StatusCode, string(body))
	}

	var doc raceDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode race document: %w", err)
	}
	if doc.Entrants == nil {
		return nil, ErrUnknownRaceCode
	}

	var handles []string
	for _, e := range doc.Entrants {
		if includeAll || e.StateText == "Ready" {
			handles = append(handles, e.Twitch)
		}
	}
	return handles, nil
}

// MultistreamURL builds the combined viewing link for a set of stream
// handles.
func MultistreamURL(handles []string) string {
	return multistreamBase + strings.Join(handles, "/") + "/"
}
