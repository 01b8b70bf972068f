// Package providertest implements an in-memory DNS provider with paginated
// listings, for use in tests of code that talks to a DNS hosting API.
package providertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mrled/suns/dnsrenew/internal/model"
	"github.com/mrled/suns/dnsrenew/internal/pagewalk"
)

// Provider is a fake DNS hosting provider. The zero value is not usable; use New.
type Provider struct {
	mu      sync.Mutex
	zones   []model.Zone
	records map[string][]model.DNSRecord
	nextID  int

	// PrefixNameFilter makes the server-side name filter match by prefix
	// instead of exact name, like some real providers do.
	PrefixNameFilter bool

	// ZoneListErr, when set, is returned as a failed envelope for zone listings
	ZoneListErr []pagewalk.APIError

	// DeleteErr, when set, is returned by DeleteRecord
	DeleteErr error

	Calls Calls
}

// Calls counts the operations performed against the provider
type Calls struct {
	ListZones   int
	ListRecords int
	Create      int
	Update      int
	Delete      int
}

// New creates a provider hosting the given zones
func New(zones ...model.Zone) *Provider {
	return &Provider{
		zones:   zones,
		records: make(map[string][]model.DNSRecord),
	}
}

// Seed adds records to a zone, assigning IDs to those without one
func (p *Provider) Seed(zoneID string, records ...model.DNSRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range records {
		if r.ID == "" {
			r.ID = p.newID()
		}
		p.records[zoneID] = append(p.records[zoneID], r)
	}
}

// Records returns a copy of the records stored in a zone
func (p *Provider) Records(zoneID string) []model.DNSRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.DNSRecord(nil), p.records[zoneID]...)
}

// TXTRecords returns a copy of the TXT records at name in a zone
func (p *Provider) TXTRecords(zoneID, name string) []model.DNSRecord {
	return model.FilterRecords(p.Records(zoneID), model.RecordFilter{
		Names: []string{name},
		Types: []string{model.RecordTypeTXT},
	})
}

func (p *Provider) newID() string {
	p.nextID++
	return fmt.Sprintf("rec-%d", p.nextID)
}

func page[T any](items []T, req pagewalk.PageRequest) *pagewalk.PageResult[T] {
	perPage := req.PerPage
	if perPage <= 0 {
		perPage = pagewalk.DefaultPageSize
	}
	totalPages := (len(items) + perPage - 1) / perPage
	start := (req.Page - 1) * perPage
	end := start + perPage
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	return &pagewalk.PageResult[T]{
		Success: true,
		Result:  append([]T(nil), items[start:end]...),
		ResultInfo: pagewalk.ResultInfo{
			Page:       req.Page,
			PerPage:    perPage,
			TotalPages: totalPages,
			Count:      end - start,
			TotalCount: len(items),
		},
	}
}

// ListZones implements zoneresolver.API
func (p *Provider) ListZones(ctx context.Context, req pagewalk.PageRequest) (*pagewalk.PageResult[model.Zone], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls.ListZones++
	if len(p.ZoneListErr) > 0 {
		return &pagewalk.PageResult[model.Zone]{Success: false, Errors: p.ZoneListErr}, nil
	}
	return page(p.zones, req), nil
}

// ListTXTRecords implements zoneresolver.API
func (p *Provider) ListTXTRecords(ctx context.Context, zoneID, name string, req pagewalk.PageRequest) (*pagewalk.PageResult[model.DNSRecord], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls.ListRecords++

	var matched []model.DNSRecord
	for _, r := range p.records[zoneID] {
		if r.Type != model.RecordTypeTXT {
			continue
		}
		if p.PrefixNameFilter {
			if !strings.HasPrefix(r.Name, name) {
				continue
			}
		} else if r.Name != name {
			continue
		}
		matched = append(matched, r)
	}
	return page(matched, req), nil
}

// CreateRecord implements challenge.RecordAPI
func (p *Provider) CreateRecord(ctx context.Context, zoneID string, record model.DNSRecord) (*model.DNSRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls.Create++
	record.ID = p.newID()
	p.records[zoneID] = append(p.records[zoneID], record)
	return &record, nil
}

// UpdateRecord implements challenge.RecordAPI
func (p *Provider) UpdateRecord(ctx context.Context, zoneID string, record model.DNSRecord) (*model.DNSRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls.Update++
	for i, r := range p.records[zoneID] {
		if r.ID == record.ID {
			p.records[zoneID][i] = record
			return &record, nil
		}
	}
	return nil, fmt.Errorf("record %s not found in zone %s", record.ID, zoneID)
}

// DeleteRecord implements challenge.RecordAPI
func (p *Provider) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls.Delete++
	if p.DeleteErr != nil {
		return p.DeleteErr
	}
	records := p.records[zoneID]
	for i, r := range records {
		if r.ID == recordID {
			p.records[zoneID] = append(records[:i:i], records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("record %s not found in zone %s", recordID, zoneID)
}
