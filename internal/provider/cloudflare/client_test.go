package cloudflare

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrled/suns/dnsrenew/internal/model"
	"github.com/mrled/suns/dnsrenew/internal/pagewalk"
)

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestListZones_WalksPages(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zones", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))

		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		zones := map[string][]model.Zone{
			"1": {{ID: "z1", Name: "example.com"}, {ID: "z2", Name: "example.org"}},
			"2": {{ID: "z3", Name: "example.net"}},
		}[page]
		writeJSON(t, w, http.StatusOK, map[string]any{
			"success":     true,
			"errors":      []any{},
			"result":      zones,
			"result_info": map[string]int{"page": 1, "per_page": 2, "total_pages": 2},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIToken: "tok"})
	zones, err := pagewalk.Collect(pagewalk.Walk(context.Background(), c.ListZones, pagewalk.WithPageSize(2)))
	require.NoError(t, err)
	require.Len(t, zones, 3)
	assert.Equal(t, "example.net", zones[2].Name)
	assert.Equal(t, []string{"1", "2"}, pages)
}

func TestListZones_FailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusForbidden, map[string]any{
			"success": false,
			"errors":  []map[string]any{{"code": 9109, "message": "Invalid access token"}},
			"result":  nil,
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIToken: "bad"})
	_, err := pagewalk.Collect(pagewalk.Walk(context.Background(), c.ListZones))
	var apiErr *pagewalk.ProviderAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 9109, apiErr.Errors[0].Code)
}

func TestListTXTRecords_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zones/z1/dns_records", r.URL.Path)
		assert.Equal(t, "TXT", r.URL.Query().Get("type"))
		assert.Equal(t, "_acme-challenge.example.com", r.URL.Query().Get("name"))
		assert.Equal(t, "me@example.com", r.Header.Get("X-Auth-Email"))
		assert.Equal(t, "key", r.Header.Get("X-Auth-Key"))
		assert.Empty(t, r.Header.Get("Authorization"))

		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"result": []model.DNSRecord{
				{ID: "r1", Type: "TXT", Name: "_acme-challenge.example.com", Content: "x", TTL: 120},
			},
			"result_info": map[string]int{"page": 1, "total_pages": 1},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Email: "me@example.com", APIKey: "key"})
	res, err := c.ListTXTRecords(context.Background(), "z1", "_acme-challenge.example.com", pagewalk.PageRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Result, 1)
	assert.Equal(t, "r1", res.Result[0].ID)
}

func TestRecordWrites(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)

		switch r.Method {
		case http.MethodPost, http.MethodPut:
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			var rec model.DNSRecord
			assert.NoError(t, json.Unmarshal(body, &rec))
			if r.Method == http.MethodPost {
				assert.Empty(t, rec.ID)
				rec.ID = "new"
			}
			writeJSON(t, w, http.StatusOK, map[string]any{"success": true, "result": rec})
		case http.MethodDelete:
			if r.URL.Path == "/zones/z1/dns_records/missing" {
				writeJSON(t, w, http.StatusNotFound, map[string]any{
					"success": false,
					"errors":  []map[string]any{{"code": 81044, "message": "Record does not exist."}},
				})
				return
			}
			writeJSON(t, w, http.StatusOK, map[string]any{"success": true, "result": map[string]string{"id": "r1"}})
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", APIToken: "tok"})
	ctx := context.Background()

	created, err := c.CreateRecord(ctx, "z1", model.DNSRecord{ID: "ignored", Type: "TXT", Name: "a.example.com", Content: "c", TTL: 120})
	require.NoError(t, err)
	assert.Equal(t, "new", created.ID)

	updated, err := c.UpdateRecord(ctx, "z1", model.DNSRecord{ID: "r1", Type: "TXT", Name: "a.example.com", Content: "d", TTL: 120})
	require.NoError(t, err)
	assert.Equal(t, "d", updated.Content)

	_, err = c.UpdateRecord(ctx, "z1", model.DNSRecord{Content: "d"})
	require.Error(t, err)

	require.NoError(t, c.DeleteRecord(ctx, "z1", "r1"))

	err = c.DeleteRecord(ctx, "z1", "missing")
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotFound, reqErr.Status)
	assert.Equal(t, 81044, reqErr.Errors[0].Code)

	assert.Equal(t, []string{
		"POST /zones/z1/dns_records",
		"PUT /zones/z1/dns_records/r1",
		"DELETE /zones/z1/dns_records/r1",
		"DELETE /zones/z1/dns_records/missing",
	}, seen)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.ListZones(context.Background(), pagewalk.PageRequest{Page: 1, PerPage: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
