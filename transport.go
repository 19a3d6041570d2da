package purpleair

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the production API origin.
const DefaultBaseURL = "https://api.purpleair.com/v1/"

// selectKey resolves the API key for a request. An explicit override wins;
// otherwise GET-style requests use the read key and mutating requests the
// write key. The resolution happens before any network activity, so a
// missing key never costs a round trip.
func (c *Client) selectKey(method, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	key := c.writeKey
	if method == http.MethodGet {
		key = c.readKey
	}
	if key == "" {
		return "", ErrMissingAPIKey
	}

	return key, nil
}

// doRequest performs one exchange with the API and enforces the response
// contract: a 2xx status and a JSON object body. The key is attached via the
// X-API-Key header. No retries are attempted here.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body url.Values, apiKey string) (map[string]any, error) {
	key, err := c.selectKey(method, apiKey)
	if err != nil {
		return nil, err
	}

	requestURL := c.baseURL + path
	fullURL := requestURL
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(body.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", requestURL, err)
	}
	req.Header.Set("X-API-Key", key)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", requestURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", requestURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Include the remote error payload when it parses; error detail from
		// the API arrives as a JSON object with "error" and "description".
		var remote map[string]any
		if err := json.Unmarshal(payload, &remote); err != nil {
			remote = nil
		}

		c.logger.Warn().
			Str("url", requestURL).
			Int("status", resp.StatusCode).
			Msg("api request failed")

		return nil, &RequestError{StatusCode: resp.StatusCode, URL: requestURL, Body: remote}
	}

	var parsed map[string]any
	if err := json.Unmarshal(payload, &parsed); err != nil {
		c.logger.Warn().
			Str("url", requestURL).
			Err(err).
			Msg("api response was not valid json")

		return nil, &MalformedResponseError{URL: requestURL, Err: err}
	}

	return parsed, nil
}
