package refimages

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_SniffsWhenHeaderIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("\xff\xd8\xff\xe0jpegdata"))
	}))
	defer srv.Close()

	data, mimeType, err := NewHTTPFetcher(nil, 0).AllowPrivateNetworks().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)
	assert.NotEmpty(t, data)
}

func TestHTTPFetcher_RejectsOversizedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, _, err := NewHTTPFetcher(nil, 16).AllowPrivateNetworks().Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "exceeds 16 bytes")
}

func TestDecodeDataURL(t *testing.T) {
	gif := []byte("GIF89a\x01\x00\x01\x00")
	tests := []struct {
		name     string
		url      string
		wantMIME string
		wantErr  bool
	}{
		{"declared type", "data:image/webp;base64," + base64.StdEncoding.EncodeToString(gif), "image/webp", false},
		{"sniffed type", "data:;base64," + base64.StdEncoding.EncodeToString(gif), "image/gif", false},
		{"not base64", "data:image/png,rawbytes", "", true},
		{"bad base64", "data:image/png;base64,@@@", "", true},
		{"no comma", "data:image/png;base64", "", true},
		{"not an image", "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello")), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mimeType, err := decodeDataURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, mimeType)
		})
	}
}

func TestHTTPFetcher_RejectsInternalAddresses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("internal address was fetched: %s", r.URL)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n"))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	tests := []struct {
		name string
		url  string
	}{
		{"loopback literal", srv.URL + "/a.png"},
		{"localhost name", "http://localhost:" + u.Port() + "/a.png"},
		{"metadata service", "http://169.254.169.254/latest/meta-data"},
		{"private range", "http://10.0.0.7/a.png"},
		{"ipv6 loopback", "http://[::1]:" + u.Port() + "/a.png"},
		{"mapped ipv4 loopback", "http://[::ffff:127.0.0.1]:" + u.Port() + "/a.png"},
		{"shared address space", "http://100.64.1.1/a.png"},
		{"unspecified", "http://0.0.0.0:" + u.Port() + "/a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewHTTPFetcher(nil, 0).Fetch(context.Background(), tt.url)
			assert.ErrorIs(t, err, ErrBlockedAddress)
		})
	}
}

func TestHTTPFetcher_GuardsResolvedAddresses(t *testing.T) {
	f := NewHTTPFetcher(nil, 0)

	assert.ErrorIs(t, f.checkDial("tcp", "127.0.0.1:443", nil), ErrBlockedAddress)
	assert.ErrorIs(t, f.checkDial("tcp", "[fd00::1]:443", nil), ErrBlockedAddress)
	assert.NoError(t, f.checkDial("tcp", "93.184.216.34:443", nil))

	assert.NoError(t, f.AllowPrivateNetworks().checkDial("tcp", "127.0.0.1:443", nil))
}

func TestHTTPFetcher_BlocksRedirectToInternalAddress(t *testing.T) {
	f := NewHTTPFetcher(nil, 0)
	req := httptest.NewRequest(http.MethodGet, "http://10.1.2.3/a.png", nil)

	assert.ErrorIs(t, f.checkRedirect(req, nil), ErrBlockedAddress)

	ok := httptest.NewRequest(http.MethodGet, "https://cdn.example.com/a.png", nil)
	assert.NoError(t, f.checkRedirect(ok, nil))
	assert.Error(t, f.checkRedirect(ok, make([]*http.Request, maxRedirects)))
}

func TestHTTPFetcher_RejectsUnsupportedSchemes(t *testing.T) {
	f := NewHTTPFetcher(nil, 0)
	for _, raw := range []string{"ftp://cdn.example.com/a.png", "file:///etc/passwd", "gopher://x/"} {
		_, _, err := f.Fetch(context.Background(), raw)
		assert.ErrorContains(t, err, "unsupported reference url scheme", raw)
	}
}
