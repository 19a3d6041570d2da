package purpleair

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned when an operation requires an API key that was
// not configured on the client: a read key for GET-style calls, or a write
// key for mutating calls. The check happens before any network activity.
var ErrMissingAPIKey = errors.New("purpleair: required api key not configured")

// KeyRole identifies the role a key plays on the client. The values match
// the api_key_type reported by the keys endpoint.
type KeyRole string

const (
	KeyRoleRead  KeyRole = "READ"
	KeyRoleWrite KeyRole = "WRITE"
)

// InvalidKeyError is returned from New when key verification finds that a
// configured key's reported type does not match the role it was supplied
// for. The client is not usable when this error is returned.
type InvalidKeyError struct {
	// Role is the role the key was configured for.
	Role KeyRole

	// KeyType is the type the API reported for the key.
	KeyType string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("purpleair: api key configured as %s key reported type %q", e.Role, e.KeyType)
}

// RequestError is returned when the API responds with a non-2xx status. The
// remote error payload is included when the response body was parseable
// JSON. The client performs no retries; callers may retry at a higher level.
type RequestError struct {
	// StatusCode is the HTTP status returned by the API.
	StatusCode int

	// URL is the request URL, without query parameters.
	URL string

	// Body is the parsed error payload, or nil if the body was not JSON.
	Body map[string]any
}

func (e *RequestError) Error() string {
	if desc, ok := e.Body["description"].(string); ok {
		return fmt.Sprintf("purpleair: request %s failed with status %d: %s", e.URL, e.StatusCode, desc)
	}
	return fmt.Sprintf("purpleair: request %s failed with status %d", e.URL, e.StatusCode)
}

// MalformedResponseError is returned when a successful response body could
// not be parsed as JSON. This indicates a transport or service anomaly, not
// a usage error.
type MalformedResponseError struct {
	// URL is the request URL, without query parameters.
	URL string

	// Err is the underlying decode error.
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("purpleair: request %s returned a non-JSON body: %v", e.URL, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
