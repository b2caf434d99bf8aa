// Package enrich gathers on-demand details about a target: DNS timing,
// the HTTP response, its TLS certificate and the geolocation of its IP.
package enrich

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/juststeveking/sentinel/internal/monitor"
)

// DefaultIPInfoURL is the geolocation API base URL
const DefaultIPInfoURL = "https://ipinfo.io"

// Certificate summarizes the leaf certificate presented by a target
type Certificate struct {
	IssuedTo      string    `json:"ssl_issued_to"`
	Issuer        []string  `json:"ssl_issuer"`
	ValidFrom     time.Time `json:"ssl_valid_from"`
	ValidUntil    time.Time `json:"ssl_valid_until"`
	ExpiresInDays int       `json:"ssl_expires_in_days"`
}

// Location is the geolocation of a target IP
type Location struct {
	Hostname  string  `json:"hostname"`
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Loc       string  `json:"loc"`
	Org       string  `json:"org"`
	Postal    string  `json:"postal"`
	Timezone  string  `json:"timezone"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// Details is the combined enrichment of one target
type Details struct {
	URL               string            `json:"url"`
	Domain            string            `json:"domain"`
	IP                string            `json:"ip"`
	DNSResolutionTime time.Duration     `json:"dns_resolution_time_ns"`
	Status            string            `json:"status"`
	StatusCode        int               `json:"status_code"`
	Headers           map[string]string `json:"headers,omitempty"`
	Certificate       *Certificate      `json:"certificate,omitempty"`
	Location          *Location         `json:"location,omitempty"`
	Errors            []string          `json:"errors,omitempty"`
}

// Options configure an Enricher
type Options struct {
	Timeout     time.Duration
	IPInfoToken string
	IPInfoURL   string
	// RootCAs overrides the system pool for certificate verification
	RootCAs *x509.CertPool
}

// Enricher looks up target details on request. It never touches the registry.
type Enricher struct {
	client    *http.Client
	resolver  monitor.Resolver
	opts      Options
	tlsConfig *tls.Config
}

// New creates an Enricher using resolver for DNS lookups
func New(resolver monitor.Resolver, opts Options) *Enricher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.IPInfoURL == "" {
		opts.IPInfoURL = DefaultIPInfoURL
	}

	tlsConfig := &tls.Config{RootCAs: opts.RootCAs}

	return &Enricher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
		resolver:  resolver,
		opts:      opts,
		tlsConfig: tlsConfig,
	}
}

// Enrich collects every detail for t. Partial failures are reported in
// Details.Errors rather than failing the whole lookup.
func (e *Enricher) Enrich(ctx context.Context, t monitor.Target) (Details, error) {
	u, err := url.Parse(t.URL)
	if err != nil || u.Host == "" {
		return Details{}, fmt.Errorf("invalid target url %q", t.URL)
	}

	d := Details{
		URL:    t.URL,
		Domain: t.Domain,
		IP:     monitor.IPNotFound,
		Status: string(monitor.StatusUnknown),
	}

	start := time.Now()
	ip, err := e.resolver.Resolve(ctx, u.Hostname())
	d.DNSResolutionTime = time.Since(start)
	if err != nil {
		d.Errors = append(d.Errors, err.Error())
	} else {
		d.IP = ip
	}

	if err := e.fetch(ctx, t.URL, &d); err != nil {
		d.Errors = append(d.Errors, err.Error())
	}

	port := u.Port()
	if port == "" {
		port = "443"
	}
	if cert, err := e.Certificate(ctx, net.JoinHostPort(u.Hostname(), port), u.Hostname()); err != nil {
		d.Errors = append(d.Errors, err.Error())
	} else {
		d.Certificate = cert
	}

	if d.IP != monitor.IPNotFound {
		if loc, err := e.Location(ctx, d.IP); err != nil {
			d.Errors = append(d.Errors, err.Error())
		} else {
			d.Location = loc
		}
	}

	if d.StatusCode == 0 && d.Certificate == nil && d.Location == nil {
		return d, errors.New("enrichment failed: " + strings.Join(d.Errors, "; "))
	}
	return d, nil
}

// fetch records the HTTP status and headers of the target page
func (e *Enricher) fetch(ctx context.Context, target string, d *Details) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	d.StatusCode = resp.StatusCode
	d.Status = string(monitor.StatusDown)
	if resp.StatusCode == http.StatusOK {
		d.Status = string(monitor.StatusUp)
	}

	d.Headers = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		d.Headers[k] = resp.Header.Get(k)
	}
	return nil
}

// Certificate dials addr over TLS and summarizes the leaf certificate
func (e *Enricher) Certificate(ctx context.Context, addr, serverName string) (*Certificate, error) {
	cfg := e.tlsConfig.Clone()
	cfg.ServerName = serverName

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: e.opts.Timeout},
		Config:    cfg,
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("TLS connection failed: %w", err)
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificates found")
	}

	leaf := certs[0]
	issuer := leaf.Issuer.Organization
	if len(issuer) == 0 && leaf.Issuer.CommonName != "" {
		issuer = []string{leaf.Issuer.CommonName}
	}
	issuedTo := leaf.Subject.CommonName
	if issuedTo == "" && len(leaf.DNSNames) > 0 {
		issuedTo = leaf.DNSNames[0]
	}

	return &Certificate{
		IssuedTo:      issuedTo,
		Issuer:        issuer,
		ValidFrom:     leaf.NotBefore,
		ValidUntil:    leaf.NotAfter,
		ExpiresInDays: int(time.Until(leaf.NotAfter).Hours() / 24),
	}, nil
}

// Location queries ipinfo for ip
func (e *Enricher) Location(ctx context.Context, ip string) (*Location, error) {
	endpoint := fmt.Sprintf("%s/%s/json", strings.TrimSuffix(e.opts.IPInfoURL, "/"), url.PathEscape(ip))
	if e.opts.IPInfoToken != "" {
		endpoint += "?token=" + url.QueryEscape(e.opts.IPInfoToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read geolocation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("geolocation lookup failed: %s", msg)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("geolocation response is not valid JSON")
	}

	r := gjson.ParseBytes(body)
	loc := &Location{
		Hostname: r.Get("hostname").String(),
		City:     r.Get("city").String(),
		Region:   r.Get("region").String(),
		Country:  r.Get("country").String(),
		Loc:      r.Get("loc").String(),
		Org:      r.Get("org").String(),
		Postal:   r.Get("postal").String(),
		Timezone: r.Get("timezone").String(),
	}

	if lat, lng, ok := strings.Cut(loc.Loc, ","); ok {
		loc.Latitude, _ = strconv.ParseFloat(lat, 64)
		loc.Longitude, _ = strconv.ParseFloat(lng, 64)
	}

	return loc, nil
}
