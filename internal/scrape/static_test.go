package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestStaticFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Acme</title></head><body><p>Valves</p></body></html>`))
	}))
	defer srv.Close()

	html, err := NewStatic(time.Second, "").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, html, "<p>Valves</p>")
}

func TestStaticFetch_DecodesCharset(t *testing.T) {
	latin1, err := charmap.ISO8859_9.NewEncoder().String("<html><body>Türkiye'nin önde gelen üreticisi</body></html>")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-9")
		_, _ = w.Write([]byte(latin1))
	}))
	defer srv.Close()

	html, err := NewStatic(time.Second, "").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, html, "Türkiye'nin önde gelen üreticisi")
}

func TestStaticFetch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "cloudflare",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Cf-Ray", "abc")
				w.WriteHeader(http.StatusForbidden)
			},
			wantErr: "blocked (cloudflare)",
		},
		{
			name: "captcha",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<div class="g-recaptcha"></div>`))
			},
			wantErr: "blocked (captcha)",
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantErr: "status 404",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewStatic(time.Second, "").Fetch(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAutomatedFetch_BrowserSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
			http.Redirect(w, r, "/home", http.StatusFound)
		case "/home":
			c, err := r.Cookie("session")
			if err != nil || c.Value != "s1" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			assert.Contains(t, desktopUserAgents, r.Header.Get("User-Agent"))
			assert.Equal(t, "navigate", r.Header.Get("Sec-Fetch-Mode"))
			_, _ = w.Write([]byte(`<html><body>Welcome to Acme</body></html>`))
		}
	}))
	defer srv.Close()

	html, err := NewAutomated(time.Second).Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, html, "Welcome to Acme")
}

func TestAutomatedFetch_TooManyRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	_, err := NewAutomated(time.Second).Fetch(context.Background(), srv.URL+"/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many redirects")
}
