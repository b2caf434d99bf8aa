package enrich

import (
	"context"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/juststeveking/sentinel/internal/monitor"
)

type staticResolver map[string]string

func (r staticResolver) Resolve(ctx context.Context, host string) (string, error) {
	if ip, ok := r[host]; ok {
		return ip, nil
	}
	return "", monitor.ErrDNSResolution
}

func newIPInfoServer(t *testing.T) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"title":"Unknown token","message":"Please provide a valid token"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ip": "93.184.216.34",
			"hostname": "edge.example.net",
			"city": "Norwell",
			"region": "Massachusetts",
			"country": "US",
			"loc": "42.1596,-70.8217",
			"org": "AS15133 Edgecast Inc.",
			"postal": "02061",
			"timezone": "America/New_York"
		}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestLocation(t *testing.T) {
	ts := newIPInfoServer(t)

	e := New(staticResolver{}, Options{IPInfoURL: ts.URL, IPInfoToken: "secret", Timeout: time.Second})

	loc, err := e.Location(context.Background(), "93.184.216.34")
	if err != nil {
		t.Fatalf("Location failed: %v", err)
	}
	if loc.City != "Norwell" || loc.Country != "US" {
		t.Errorf("Expected Norwell/US, got %s/%s", loc.City, loc.Country)
	}
	if loc.Latitude != 42.1596 || loc.Longitude != -70.8217 {
		t.Errorf("Expected coordinates parsed from loc, got %v,%v", loc.Latitude, loc.Longitude)
	}
	if loc.Timezone != "America/New_York" {
		t.Errorf("Expected timezone, got %q", loc.Timezone)
	}
}

func TestLocationError(t *testing.T) {
	ts := newIPInfoServer(t)

	e := New(staticResolver{}, Options{IPInfoURL: ts.URL, IPInfoToken: "wrong", Timeout: time.Second})

	_, err := e.Location(context.Background(), "93.184.216.34")
	if err == nil {
		t.Fatal("Expected error for rejected token")
	}
	if got := err.Error(); got != "geolocation lookup failed: Please provide a valid token" {
		t.Errorf("Unexpected error message %q", got)
	}
}

func TestCertificate(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	pool := x509.NewCertPool()
	pool.AddCert(ts.Certificate())

	e := New(staticResolver{}, Options{RootCAs: pool, Timeout: time.Second})

	u, _ := url.Parse(ts.URL)
	cert, err := e.Certificate(context.Background(), u.Host, "127.0.0.1")
	if err != nil {
		t.Fatalf("Certificate failed: %v", err)
	}
	if len(cert.Issuer) == 0 {
		t.Error("Expected issuer to be populated")
	}
	if !cert.ValidUntil.After(cert.ValidFrom) {
		t.Error("Expected validity window")
	}
	if cert.ExpiresInDays <= 0 {
		t.Errorf("Expected certificate to expire in the future, got %d days", cert.ExpiresInDays)
	}
}

func TestCertificateUntrusted(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	e := New(staticResolver{}, Options{Timeout: time.Second})

	u, _ := url.Parse(ts.URL)
	if _, err := e.Certificate(context.Background(), u.Host, "127.0.0.1"); err == nil {
		t.Error("Expected verification failure for an untrusted certificate")
	}
}

func TestEnrich(t *testing.T) {
	site := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Served-By", "test")
		w.WriteHeader(http.StatusOK)
	}))
	defer site.Close()

	ipinfo := newIPInfoServer(t)

	pool := x509.NewCertPool()
	pool.AddCert(site.Certificate())

	e := New(staticResolver{"127.0.0.1": "93.184.216.34"}, Options{
		IPInfoURL:   ipinfo.URL,
		IPInfoToken: "secret",
		RootCAs:     pool,
		Timeout:     2 * time.Second,
	})

	tg := monitor.Target{URL: site.URL + "/", Domain: "example.com"}
	d, err := e.Enrich(context.Background(), tg)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	if d.IP != "93.184.216.34" {
		t.Errorf("Expected resolved ip, got %s", d.IP)
	}
	if d.Status != "Up" || d.StatusCode != http.StatusOK {
		t.Errorf("Expected Up/200, got %s/%d", d.Status, d.StatusCode)
	}
	if d.Headers["X-Served-By"] != "test" {
		t.Errorf("Expected response headers, got %v", d.Headers)
	}
	if d.Certificate == nil {
		t.Error("Expected certificate details")
	}
	if d.Location == nil || d.Location.Org != "AS15133 Edgecast Inc." {
		t.Errorf("Expected location details, got %+v", d.Location)
	}
	if len(d.Errors) != 0 {
		t.Errorf("Expected no partial errors, got %v", d.Errors)
	}
}

func TestEnrichUnresolved(t *testing.T) {
	e := New(staticResolver{}, Options{Timeout: 200 * time.Millisecond})

	d, err := e.Enrich(context.Background(), monitor.Target{URL: "https://127.0.0.1:1/", Domain: "nodns.example"})
	if err == nil {
		t.Fatal("Expected total failure to be reported")
	}
	if d.IP != monitor.IPNotFound {
		t.Errorf("Expected %q, got %q", monitor.IPNotFound, d.IP)
	}
	if d.Location != nil {
		t.Error("Expected no geolocation lookup without an ip")
	}
	if len(d.Errors) < 2 {
		t.Errorf("Expected dns and request errors, got %v", d.Errors)
	}
}
