// Package search keeps an Elasticsearch index of catalog products and
// answers free-text queries against it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/Skotchmaster/phenofarm/internal/catalog"
)

// ErrUnavailable means no index is configured; callers fall back to the
// in-memory catalog filter.
var ErrUnavailable = errors.New("search index unavailable")

type Results struct {
	Total int64
	IDs   []uuid.UUID
}

type Indexer interface {
	IndexProduct(ctx context.Context, p catalog.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, q string, offset, limit int) (Results, error)
}

type Nop struct{}

func (Nop) IndexProduct(context.Context, catalog.Product) error { return nil }
func (Nop) DeleteProduct(context.Context, uuid.UUID) error      { return nil }
func (Nop) Search(context.Context, string, int, int) (Results, error) {
	return Results{}, ErrUnavailable
}

type Elastic struct {
	Client *elasticsearch.Client
	Index  string
}

func NewClient(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}
	return client, nil
}

type document struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	GrowerName  string   `json:"growerName"`
	ProductType string   `json:"productType"`
	SubType     string   `json:"subType,omitempty"`
	Strain      string   `json:"strain,omitempty"`
	Price       int64    `json:"price"`
	THC         *float64 `json:"thc,omitempty"`
	Available   bool     `json:"isAvailable"`
}

func (e *Elastic) IndexProduct(ctx context.Context, p catalog.Product) error {
	body, err := json.Marshal(document{
		Name:        p.Name,
		Description: p.Description,
		GrowerName:  p.GrowerName,
		ProductType: p.ProductType,
		SubType:     p.SubType,
		Strain:      p.Strain,
		Price:       int64(p.Price),
		THC:         p.THC,
		Available:   p.IsAvailable,
	})
	if err != nil {
		return err
	}

	res, err := e.Client.Index(e.Index, bytes.NewReader(body),
		e.Client.Index.WithContext(ctx),
		e.Client.Index.WithDocumentID(p.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("index product %s: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index product %s: %s", p.ID, res.Status())
	}
	return nil
}

func (e *Elastic) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := e.Client.Delete(e.Index, id.String(), e.Client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete product %s: %s", id, res.Status())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

func Query(q string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     strings.TrimSpace(q),
				"fields":    []string{"name^3", "strain^2", "growerName", "productType", "subType", "description"},
				"fuzziness": "AUTO",
			},
		},
	}
}

func (e *Elastic) Search(ctx context.Context, q string, offset, limit int) (Results, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(Query(q)); err != nil {
		return Results{}, err
	}

	res, err := e.Client.Search(
		e.Client.Search.WithContext(ctx),
		e.Client.Search.WithIndex(e.Index),
		e.Client.Search.WithBody(&buf),
		e.Client.Search.WithFrom(offset),
		e.Client.Search.WithSize(limit),
		e.Client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return Results{}, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return Results{}, fmt.Errorf("search: %s", res.Status())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return Results{}, fmt.Errorf("search decode: %w", err)
	}

	out := Results{Total: sr.Hits.Total.Value, IDs: make([]uuid.UUID, 0, len(sr.Hits.Hits))}
	for _, h := range sr.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		out.IDs = append(out.IDs, id)
	}
	return out, nil
}
