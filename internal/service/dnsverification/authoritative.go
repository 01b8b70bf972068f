package dnsverification

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// AuthoritativeResolver asks a name's authoritative servers directly instead of
// going through a caching recursive resolver. Nameservers are discovered by
// walking up from the queried name and asking a bootstrap resolver for NS records.
type AuthoritativeResolver struct {
	bootstrap string
	servers   []string
	nsPort    string
	client    *dns.Client
}

// NewAuthoritativeResolver discovers nameservers through the given bootstrap
// resolver ("host:port", e.g. "1.1.1.1:53")
func NewAuthoritativeResolver(bootstrap string) *AuthoritativeResolver {
	return &AuthoritativeResolver{
		bootstrap: bootstrap,
		nsPort:    "53",
		client:    &dns.Client{Timeout: 2 * time.Second},
	}
}

// NewAuthoritativeResolverWithServers always queries the given servers and
// skips nameserver discovery
func NewAuthoritativeResolverWithServers(servers ...string) *AuthoritativeResolver {
	r := NewAuthoritativeResolver("")
	r.servers = servers
	return r
}

// LookupTXT implements Resolver.LookupTXT. At most one CNAME hop is followed.
func (r *AuthoritativeResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	return r.lookup(ctx, dns.Fqdn(name), 1)
}

func (r *AuthoritativeResolver) lookup(ctx context.Context, fqdn string, hops int) ([]string, error) {
	servers, err := r.nameservers(ctx, fqdn)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, server := range servers {
		txts, cname, err := r.queryTXT(ctx, fqdn, server)
		if err != nil {
			if isNotFoundError(err) {
				return nil, err
			}
			lastErr = err
			continue
		}
		if len(txts) == 0 && cname != "" && hops > 0 && !strings.EqualFold(cname, fqdn) {
			return r.lookup(ctx, cname, hops-1)
		}
		if len(txts) == 0 {
			return nil, &net.DNSError{Err: "no TXT records", Name: fqdn, Server: server, IsNotFound: true}
		}
		return txts, nil
	}
	return nil, lastErr
}

// nameservers returns host:port addresses of the servers authoritative for fqdn
func (r *AuthoritativeResolver) nameservers(ctx context.Context, fqdn string) ([]string, error) {
	if len(r.servers) > 0 {
		return r.servers, nil
	}

	labels := dns.SplitDomainName(fqdn)
	for i := range labels {
		zone := dns.Fqdn(strings.Join(labels[i:], "."))

		msg := new(dns.Msg)
		msg.SetQuestion(zone, dns.TypeNS)
		in, _, err := r.client.ExchangeContext(ctx, msg, r.bootstrap)
		if err != nil {
			return nil, fmt.Errorf("NS lookup for %s via %s: %w", zone, r.bootstrap, err)
		}

		var servers []string
		for _, rr := range in.Answer {
			if ns, ok := rr.(*dns.NS); ok {
				servers = append(servers, net.JoinHostPort(strings.TrimSuffix(ns.Ns, "."), r.nsPort))
			}
		}
		if len(servers) > 0 {
			return servers, nil
		}
	}

	return nil, fmt.Errorf("no authoritative nameservers found for %s", fqdn)
}

func (r *AuthoritativeResolver) queryTXT(ctx context.Context, fqdn, server string) ([]string, string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, dns.TypeTXT)
	msg.RecursionDesired = false

	in, _, err := r.client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, "", fmt.Errorf("TXT query for %s at %s: %w", fqdn, server, err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, "", &net.DNSError{Err: "no such host", Name: fqdn, Server: server, IsNotFound: true}
	default:
		return nil, "", fmt.Errorf("TXT query for %s at %s: %s", fqdn, server, dns.RcodeToString[in.Rcode])
	}

	var txts []string
	var cname string
	for _, rr := range in.Answer {
		switch v := rr.(type) {
		case *dns.TXT:
			txts = append(txts, strings.Join(v.Txt, ""))
		case *dns.CNAME:
			cname = v.Target
		}
	}
	return txts, cname, nil
}
