package monitor

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Resolver looks up the address of a target host
type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// DNSResolver resolves A records against a nameserver using miekg/dns.
// Without a nameserver it falls back to the Go resolver.
type DNSResolver struct {
	client  *dns.Client
	server  string
	timeout time.Duration
}

// NewDNSResolver creates a resolver. An empty server means the first
// nameserver in /etc/resolv.conf.
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	if server == "" {
		if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(conf.Servers) > 0 {
			server = net.JoinHostPort(conf.Servers[0], conf.Port)
		}
	}

	return &DNSResolver{
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		server:  server,
		timeout: timeout,
	}
}

// Resolve returns the first IPv4 address for host
func (r *DNSResolver) Resolve(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.server == "" {
		return r.lookupSystem(ctx, host)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return "", fmt.Errorf("%w: query %s: %v", ErrDNSResolution, host, err)
	}

	if in.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("%w: %s returned %s", ErrDNSResolution, host, dns.RcodeToString[in.Rcode])
	}

	for _, answer := range in.Answer {
		if a, ok := answer.(*dns.A); ok {
			return a.A.String(), nil
		}
	}

	return "", fmt.Errorf("%w: no A records for %s", ErrDNSResolution, host)
}

// lookupSystem uses the Go resolver when no nameserver is known
func (r *DNSResolver) lookupSystem(ctx context.Context, host string) (string, error) {
	resolver := &net.Resolver{PreferGo: true}

	ips, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDNSResolution, err)
	}

	for _, ip := range ips {
		if v4 := ip.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}

	if len(ips) > 0 {
		return ips[0].IP.String(), nil
	}

	return "", fmt.Errorf("%w: no addresses found for %s", ErrDNSResolution, host)
}
