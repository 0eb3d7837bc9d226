package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/desertthunder/aggx/internal/shared"
)

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestAPIClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("trims trailing slash", func(t *testing.T) {
			if c := NewAPIClient("http://example.com/", nil); c.BaseURL() != "http://example.com" {
				t.Errorf("expected trimmed base URL, got %s", c.BaseURL())
			}
		})

		t.Run("nil client uses default", func(t *testing.T) {
			if c := NewAPIClient("http://example.com", nil); c.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("GetJSON", func(t *testing.T) {
		t.Run("decodes body and sends query", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/things" {
					t.Errorf("expected path /things, got %s", r.URL.Path)
				}
				if r.URL.Query().Get("q") != "a b" {
					t.Errorf("expected query q=a b, got %s", r.URL.RawQuery)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"status":"ok"}`))
			}))
			defer server.Close()

			var result struct {
				Status string `json:"status"`
			}
			c := NewAPIClient(server.URL, server.Client())
			if err := c.GetJSON(context.Background(), "/things", url.Values{"q": {"a b"}}, &result); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.Status != "ok" {
				t.Errorf("expected status ok, got %s", result.Status)
			}
		})

		statusTests := []struct {
			name   string
			status int
			want   error
		}{
			{"not found", http.StatusNotFound, shared.ErrNotFound},
			{"rate limited", http.StatusTooManyRequests, shared.ErrServiceUnavailable},
			{"server error", http.StatusBadGateway, shared.ErrServiceUnavailable},
			{"forbidden", http.StatusForbidden, shared.ErrAPIRequest},
		}

		for _, tt := range statusTests {
			t.Run(tt.name, func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, "nope", tt.status)
				}))
				defer server.Close()

				c := NewAPIClient(server.URL, server.Client())
				if err := c.GetJSON(context.Background(), "/", nil, nil); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}

		t.Run("malformed body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{not json`))
			}))
			defer server.Close()

			var result map[string]any
			c := NewAPIClient(server.URL, server.Client())
			if err := c.GetJSON(context.Background(), "/", nil, &result); !errors.Is(err, shared.ErrMalformedPayload) {
				t.Errorf("expected ErrMalformedPayload, got %v", err)
			}
		})

		t.Run("transport failure", func(t *testing.T) {
			c := NewAPIClient("http://example.invalid", &http.Client{Transport: failingTransport{}})
			if err := c.GetJSON(context.Background(), "/", nil, nil); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})
}
