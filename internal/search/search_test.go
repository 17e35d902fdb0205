package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/phenofarm/internal/catalog"
)

func newElastic(t *testing.T, h http.HandlerFunc) *Elastic {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return &Elastic{Client: client, Index: "products"}
}

func TestNop_SearchUnavailable(t *testing.T) {
	t.Parallel()

	_, err := Nop{}.Search(context.Background(), "kush", 0, 10)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestElastic_IndexProduct(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	var gotPath string
	var gotDoc map[string]any
	e := newElastic(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotDoc)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	err := e.IndexProduct(context.Background(), catalog.Product{ID: id, Name: "Blue Dream", Price: 4500})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(gotPath, "/products/_doc/"+id.String()), gotPath)
	assert.Equal(t, "Blue Dream", gotDoc["name"])
	assert.EqualValues(t, 4500, gotDoc["price"])
}

func TestElastic_Search(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()
	e := newElastic(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":2},"hits":[{"_id":"` + a.String() + `"},{"_id":"not-a-uuid"},{"_id":"` + b.String() + `"}]}}`))
	})

	res, err := e.Search(context.Background(), "dream", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	assert.Equal(t, []uuid.UUID{a, b}, res.IDs)
}

func TestElastic_DeleteMissingIsNotAnError(t *testing.T) {
	t.Parallel()

	e := newElastic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	})

	assert.NoError(t, e.DeleteProduct(context.Background(), uuid.New()))
}
