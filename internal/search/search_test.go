package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

func newTestIndex(t *testing.T, h http.HandlerFunc) *ProductIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "", "", nil)
	require.NoError(t, err)
	return &ProductIndex{ES: client, Name: "products"}
}

func TestIndexProduct(t *testing.T) {
	id := uuid.New()
	var got map[string]any
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products/_doc/"+id.String(), r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	err := ix.IndexProduct(context.Background(), &models.Product{ID: id, Name: "Notebook", Price: decimal.RequireFromString("99.50"), Stock: 3})
	require.NoError(t, err)
	require.Equal(t, "Notebook", got["name"])
	require.EqualValues(t, 99.5, got["price"])
}

func TestSearch(t *testing.T) {
	id := uuid.New()
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/products/_search"))
		var q map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		require.EqualValues(t, 10, q["from"])
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":11},"hits":[{"_source":{"id":"` + id.String() + `","name":"Notebook","price":99.5,"stock":3}}]}}`))
	})

	total, items, err := ix.Search(context.Background(), "note", 10, 10)
	require.NoError(t, err)
	require.EqualValues(t, 11, total)
	require.Len(t, items, 1)
	require.Equal(t, id, items[0].ID)
	require.True(t, items[0].Price.Equal(decimal.RequireFromString("99.5")))
}

func TestSearch_ErrorStatus(t *testing.T) {
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})
	_, _, err := ix.Search(context.Background(), "x", 0, 10)
	require.Error(t, err)
}
