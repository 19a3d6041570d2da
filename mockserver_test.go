package purpleair_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// mockAPIServer is a configurable stand-in for the PurpleAir API, with
// response overrides and request tracking. Tracking fields are guarded so
// concurrent client calls can be exercised under the race detector.
type mockAPIServer struct {
	Server *httptest.Server

	mu sync.Mutex

	// KeyTypes maps an API key to the api_key_type the keys endpoint reports.
	KeyTypes map[string]string

	// StatusCode is the HTTP status to return (200 if not set).
	StatusCode int

	// ErrorBody is the JSON payload returned with a non-200 StatusCode.
	ErrorBody map[string]any

	// RawBody, when set, is written verbatim instead of a JSON response.
	RawBody string

	RequestCount int        // number of requests received
	LastAPIKey   string     // X-API-Key header of the last request
	LastQuery    url.Values // query parameters of the last request
}

// setupMockAPIServer creates a mock API server covering the keys, sensor,
// sensor history and multi-sensor endpoints.
func setupMockAPIServer(t *testing.T) *mockAPIServer {
	t.Helper()

	mock := &mockAPIServer{
		KeyTypes:   map[string]string{},
		StatusCode: http.StatusOK,
	}

	router := http.NewServeMux()

	handle := func(pattern string, respond func(r *http.Request) any) {
		router.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			mock.mu.Lock()
			mock.RequestCount++
			mock.LastAPIKey = r.Header.Get("X-API-Key")
			mock.LastQuery = r.URL.Query()
			rawBody, statusCode, errorBody := mock.RawBody, mock.StatusCode, mock.ErrorBody
			mock.mu.Unlock()

			if rawBody != "" {
				_, _ = w.Write([]byte(rawBody))
				return
			}

			if statusCode != http.StatusOK {
				w.WriteHeader(statusCode)
				if errorBody != nil {
					writeJSON(w, errorBody)
				}
				return
			}

			writeJSON(w, respond(r))
		})
	}

	handle("GET /keys", func(r *http.Request) any {
		return map[string]any{
			"api_version":  "V1.0.14-0.0.57",
			"api_key_type": mock.KeyTypes[r.Header.Get("X-API-Key")],
		}
	})

	handle("GET /sensors/{index}", func(r *http.Request) any {
		return map[string]any{
			"api_version": "V1.0.14-0.0.57",
			"sensor": map[string]any{
				"sensor_index": r.PathValue("index"),
			},
		}
	})

	handle("GET /sensors/{index}/history", func(r *http.Request) any {
		return map[string]any{
			"api_version":  "V1.0.14-0.0.57",
			"sensor_index": r.PathValue("index"),
			"data":         []any{},
		}
	})

	handle("GET /sensors", func(r *http.Request) any {
		return map[string]any{
			"api_version": "V1.0.14-0.0.57",
			"fields":      []any{"sensor_index"},
			"data":        []any{},
		}
	})

	mock.Server = httptest.NewServer(router)
	t.Cleanup(mock.Server.Close)

	return mock
}

// writeJSON writes a JSON response, setting the Content-Type header.
func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal JSON: %v", err), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(data)
}
