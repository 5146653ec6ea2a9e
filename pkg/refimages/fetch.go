package refimages

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
)

var (
	// ErrNotImage is returned when a fetched payload is not an image.
	ErrNotImage = errors.New("reference is not an image")
	// ErrBlockedAddress is returned for references that point at loopback,
	// private, link-local or otherwise internal addresses.
	ErrBlockedAddress = errors.New("reference address is not allowed")
)

const maxRedirects = 5

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Fetcher loads the bytes behind a reference URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (data []byte, mimeType string, err error)
}

// HTTPFetcher fetches http(s) URLs and decodes data: URLs. Internal addresses
// are refused unless AllowPrivateNetworks is called.
type HTTPFetcher struct {
	client       *http.Client
	maxBytes     int64
	allowPrivate bool
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a fetcher. maxBytes <= 0 means 10 MiB. With a nil
// client the fetcher dials through an address guard, so host names resolving
// to internal addresses are refused too. A caller-supplied client keeps its
// transport and only literal IP hosts are checked.
func NewHTTPFetcher(client *http.Client, maxBytes int64) *HTTPFetcher {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	f := &HTTPFetcher{maxBytes: maxBytes}
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = nil
		transport.DialContext = (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
			Control:   f.checkDial,
		}).DialContext
		client = &http.Client{Timeout: 30 * time.Second, Transport: transport}
	} else {
		c := *client
		client = &c
	}
	client.CheckRedirect = f.checkRedirect
	f.client = client
	return f
}

// AllowPrivateNetworks disables the internal address check.
func (f *HTTPFetcher) AllowPrivateNetworks() *HTTPFetcher {
	f.allowPrivate = true
	return f
}

// Fetch returns the image bytes and MIME type.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURL(rawURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid reference url: %w", err)
	}
	if err := f.checkURL(u); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch reference: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("reference fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read reference: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("reference exceeds %d bytes", f.maxBytes)
	}

	mimeType, err := detectImageType(resp.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}

// checkURL accepts http(s) URLs whose host is not a blocked literal address.
func (f *HTTPFetcher) checkURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported reference url scheme %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("reference url has no host")
	}
	if f.allowPrivate {
		return nil
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	if addr, err := netip.ParseAddr(host); err == nil && blockedAddr(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

func (f *HTTPFetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return f.checkURL(req.URL)
}

// checkDial runs after DNS resolution, so address is always an IP and port.
func (f *HTTPFetcher) checkDial(_, address string, _ syscall.RawConn) error {
	if f.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	if blockedAddr(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

func blockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() ||
		sharedAddressSpace.Contains(addr)
}

// decodeDataURL decodes a base64 data: URL.
func decodeDataURL(rawURL string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(rawURL, "data:"), ",")
	if !ok {
		return nil, "", errors.New("malformed data url")
	}
	declared, params, _ := strings.Cut(header, ";")
	if !strings.Contains(params, "base64") {
		return nil, "", errors.New("data url must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 in data url: %w", err)
	}
	mimeType, err := detectImageType(declared, data)
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}

// detectImageType prefers a declared image/* type and otherwise sniffs the bytes.
func detectImageType(declared string, data []byte) (string, error) {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mt, "image/") {
		return mt, nil
	}
	sniffed := http.DetectContentType(data)
	if mt, _, err := mime.ParseMediaType(sniffed); err == nil && strings.HasPrefix(mt, "image/") {
		return mt, nil
	}
	return "", ErrNotImage
}
