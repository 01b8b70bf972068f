package zoneresolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrled/suns/dnsrenew/internal/model"
	"github.com/mrled/suns/dnsrenew/internal/pagewalk"
)

// API is the subset of the DNS provider's listing API needed to resolve zones and records
type API interface {
	// ListZones returns one page of the zones visible to the account
	ListZones(ctx context.Context, req pagewalk.PageRequest) (*pagewalk.PageResult[model.Zone], error)

	// ListTXTRecords returns one page of TXT records in zoneID, filtered server-side by name
	ListTXTRecords(ctx context.Context, zoneID, name string, req pagewalk.PageRequest) (*pagewalk.PageResult[model.DNSRecord], error)
}

// Service finds the zone owning a domain and the TXT records at a name
type Service struct {
	api      API
	pageSize int
}

// NewService creates a resolver over the given provider API
func NewService(api API) *Service {
	return &Service{api: api, pageSize: pagewalk.DefaultPageSize}
}

// ResolveZone returns the zone whose name is the longest label-aligned suffix of domain.
// Every zone page is read so that a shorter suffix listed first cannot shadow a
// more specific zone. Returns nil with no error when nothing matches.
func (s *Service) ResolveZone(ctx context.Context, domain string) (*model.Zone, error) {
	var best *model.Zone
	for zone, err := range pagewalk.Walk(ctx, s.api.ListZones, pagewalk.WithPageSize(s.pageSize)) {
		if err != nil {
			return nil, fmt.Errorf("list zones: %w", err)
		}
		if !model.IsSubdomainOf(domain, zone.Name) {
			continue
		}
		if best == nil || len(model.NormalizeName(zone.Name)) > len(model.NormalizeName(best.Name)) {
			z := zone
			best = &z
		}
	}
	return best, nil
}

// ResolveZoneFirstMatch returns the first zone, in provider order, whose name is a
// plain string suffix of domain. This is the historical lookup rule: it stops at the
// first hit and does not respect label boundaries. Kept for compatibility checks.
func (s *Service) ResolveZoneFirstMatch(ctx context.Context, domain string) (*model.Zone, error) {
	for zone, err := range pagewalk.Walk(ctx, s.api.ListZones, pagewalk.WithPageSize(s.pageSize)) {
		if err != nil {
			return nil, fmt.Errorf("list zones: %w", err)
		}
		if strings.HasSuffix(domain, zone.Name) {
			z := zone
			return &z, nil
		}
	}
	return nil, nil
}

// ResolveTXTRecords returns the TXT records in zone whose name equals name exactly.
// The provider's server-side name filter is not trusted to be exact, so results are
// filtered again here. Returns an empty slice, never an error, when nothing matches.
func (s *Service) ResolveTXTRecords(ctx context.Context, zone model.Zone, name string) ([]model.DNSRecord, error) {
	fetch := func(ctx context.Context, req pagewalk.PageRequest) (*pagewalk.PageResult[model.DNSRecord], error) {
		return s.api.ListTXTRecords(ctx, zone.ID, name, req)
	}

	all, err := pagewalk.Collect(pagewalk.Walk(ctx, fetch, pagewalk.WithPageSize(s.pageSize)))
	if err != nil {
		return nil, fmt.Errorf("list TXT records for %s in zone %s: %w", name, zone.Name, err)
	}

	return model.FilterRecords(all, model.RecordFilter{
		Names: []string{name},
		Types: []string{model.RecordTypeTXT},
	}), nil
}
