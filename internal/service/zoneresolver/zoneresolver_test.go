package zoneresolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrled/suns/dnsrenew/internal/model"
	"github.com/mrled/suns/dnsrenew/internal/pagewalk"
	"github.com/mrled/suns/dnsrenew/internal/provider/providertest"
)

func manyZones(n int) []model.Zone {
	zones := make([]model.Zone, n)
	for i := range zones {
		zones[i] = model.Zone{ID: fmt.Sprintf("z%d", i), Name: fmt.Sprintf("filler%d.net", i)}
	}
	return zones
}

func TestResolveZone_Simple(t *testing.T) {
	api := providertest.New(
		model.Zone{ID: "z1", Name: "example.com"},
		model.Zone{ID: "z2", Name: "example.org"},
	)

	zone, err := NewService(api).ResolveZone(context.Background(), "www.example.org")
	require.NoError(t, err)
	require.NotNil(t, zone)
	assert.Equal(t, "z2", zone.ID)
}

func TestResolveZone_NotFound(t *testing.T) {
	api := providertest.New(model.Zone{ID: "z1", Name: "example.com"})

	zone, err := NewService(api).ResolveZone(context.Background(), "example.net")
	require.NoError(t, err)
	assert.Nil(t, zone)
}

func TestResolveZone_LongestSuffixWins(t *testing.T) {
	// The shorter suffix is listed first, on an earlier page than the specific zone.
	zones := append([]model.Zone{{ID: "parent", Name: "example.com"}}, manyZones(12)...)
	zones = append(zones, model.Zone{ID: "child", Name: "dev.example.com"})
	api := providertest.New(zones...)
	svc := NewService(api)

	zone, err := svc.ResolveZone(context.Background(), "api.dev.example.com")
	require.NoError(t, err)
	require.NotNil(t, zone)
	assert.Equal(t, "child", zone.ID)
	assert.Equal(t, 2, api.Calls.ListZones, "all zone pages are read")

	// Baseline: the historical first-match rule picks the parent and stops early.
	first, err := svc.ResolveZoneFirstMatch(context.Background(), "api.dev.example.com")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "parent", first.ID)
}

func TestResolveZone_LabelBoundary(t *testing.T) {
	api := providertest.New(model.Zone{ID: "z1", Name: "example.com"})
	svc := NewService(api)

	zone, err := svc.ResolveZone(context.Background(), "notexample.com")
	require.NoError(t, err)
	assert.Nil(t, zone)

	// The historical rule matches raw string suffixes.
	first, err := svc.ResolveZoneFirstMatch(context.Background(), "notexample.com")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "z1", first.ID)
}

func TestResolveZone_ProviderFailure(t *testing.T) {
	api := providertest.New(model.Zone{ID: "z1", Name: "example.com"})
	api.ZoneListErr = []pagewalk.APIError{{Code: 9109, Message: "Invalid access token"}}

	_, err := NewService(api).ResolveZone(context.Background(), "example.com")
	var apiErr *pagewalk.ProviderAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 9109, apiErr.Errors[0].Code)
}

func TestResolveTXTRecords_ExactNameOnly(t *testing.T) {
	zone := model.Zone{ID: "z1", Name: "example.com"}
	api := providertest.New(zone)
	api.PrefixNameFilter = true
	api.Seed("z1",
		model.DNSRecord{Type: "TXT", Name: "_acme-challenge.example.com", Content: "a"},
		model.DNSRecord{Type: "TXT", Name: "_acme-challenge.example.com.extra", Content: "b"},
		model.DNSRecord{Type: "TXT", Name: "_acme-challenge.example.com", Content: "c"},
	)

	records, err := NewService(api).ResolveTXTRecords(context.Background(), zone, "_acme-challenge.example.com")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Content)
	assert.Equal(t, "c", records[1].Content)
}

func TestResolveTXTRecords_Empty(t *testing.T) {
	zone := model.Zone{ID: "z1", Name: "example.com"}
	api := providertest.New(zone)

	records, err := NewService(api).ResolveTXTRecords(context.Background(), zone, "_acme-challenge.example.com")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestResolveTXTRecords_Paginated(t *testing.T) {
	zone := model.Zone{ID: "z1", Name: "example.com"}
	api := providertest.New(zone)
	for i := 0; i < 23; i++ {
		api.Seed("z1", model.DNSRecord{Type: "TXT", Name: "_acme-challenge.example.com", Content: fmt.Sprint(i)})
	}

	records, err := NewService(api).ResolveTXTRecords(context.Background(), zone, "_acme-challenge.example.com")
	require.NoError(t, err)
	assert.Len(t, records, 23)
	assert.Equal(t, 3, api.Calls.ListRecords)
}
