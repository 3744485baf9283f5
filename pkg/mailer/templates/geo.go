package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"
)

// ErrNoGeo is returned for addresses that cannot be located, such as
// loopback or private ranges.
var ErrNoGeo = errors.New("no public location for address")

// Geo is one lookup result.
type Geo struct {
	City     string
	Region   string // state/province
	Country  string
	Timezone string
}

type GeoResolver interface {
	Lookup(ctx context.Context, ip string) (Geo, error)
}

func FormatGeo(g Geo) string {
	var parts []string
	if s := strings.TrimSpace(g.City); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(g.Region); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(g.Country); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func locatable(ip string) (string, error) {
	a, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "", fmt.Errorf("bad ip %q: %w", ip, err)
	}
	a = a.Unmap()
	if a.IsLoopback() || a.IsPrivate() || a.IsUnspecified() || a.IsLinkLocalUnicast() {
		return "", ErrNoGeo
	}
	return a.String(), nil
}

// IPAPIResolver implements GeoResolver using ip-api.com
type IPAPIResolver struct {
	Client *http.Client
}

func (r IPAPIResolver) Lookup(ctx context.Context, ip string) (Geo, error) {
	ip, err := locatable(ip)
	if err != nil {
		return Geo{}, err
	}
	if r.Client == nil {
		r.Client = &http.Client{Timeout: 2 * time.Second}
	}

	url := fmt.Sprintf("http://ip-api.com/json/%s?fields=status,message,country,regionName,city,timezone", ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Geo{}, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return Geo{}, err
	}
	defer resp.Body.Close()

	var body struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		Country    string `json:"country"`
		RegionName string `json:"regionName"`
		City       string `json:"city"`
		Timezone   string `json:"timezone"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Geo{}, err
	}
	if strings.ToLower(body.Status) != "success" {
		return Geo{}, fmt.Errorf("geo lookup failed: %s", body.Message)
	}
	return Geo{City: body.City, Region: body.RegionName, Country: body.Country, Timezone: body.Timezone}, nil
}

type cachedGeo struct {
	geo Geo
	err error
	at  time.Time
}

// CachedResolver remembers lookups, failures included, for TTL so a burst of
// mails from one address costs a single remote call.
type CachedResolver struct {
	Next GeoResolver
	TTL  time.Duration
	Now  func() time.Time

	mu      sync.Mutex
	entries map[string]cachedGeo
}

func NewCachedResolver(next GeoResolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{Next: next, TTL: ttl, Now: time.Now, entries: map[string]cachedGeo{}}
}

func (r *CachedResolver) Lookup(ctx context.Context, ip string) (Geo, error) {
	ip = strings.TrimSpace(ip)
	now := r.Now()

	r.mu.Lock()
	e, ok := r.entries[ip]
	r.mu.Unlock()
	if ok && now.Sub(e.at) < r.TTL {
		return e.geo, e.err
	}

	g, err := r.Next.Lookup(ctx, ip)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return g, err
	}
	r.mu.Lock()
	r.entries[ip] = cachedGeo{geo: g, err: err, at: now}
	r.mu.Unlock()
	return g, err
}
