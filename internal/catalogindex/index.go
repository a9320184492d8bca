// Package catalogindex keeps a local Elasticsearch index of the catalog for
// offline product search.
package catalogindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/bookstore/internal/models"
	"github.com/Skotchmaster/bookstore/pkg/util"
)

const DefaultIndex = "products"

var ErrIndexing = errors.New("index request failed")

type Config struct {
	URL      string
	User     string
	Password string
	Index    string
}

type Indexer struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

// NewClient connects to Elasticsearch and checks it answers.
func NewClient(cfg Config, log *slog.Logger) (*Indexer, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, fmt.Errorf("elasticsearch: info: %s: %s", res.Status(), body)
	}

	log.Info("elasticsearch_connected", "url", cfg.URL, "index", cfg.Index)
	return &Indexer{es: client, index: cfg.Index, log: log}, nil
}

// IndexProducts writes one document per product, keyed by product id.
func (ix *Indexer) IndexProducts(ctx context.Context, products []models.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, p := range products {
		meta := map[string]any{"index": map[string]any{"_index": ix.index, "_id": strconv.FormatUint(uint64(p.ID), 10)}}
		if err := enc.Encode(meta); err != nil {
			return 0, err
		}
		if err := enc.Encode(p); err != nil {
			return 0, err
		}
	}

	res, err := ix.es.Bulk(&buf,
		ix.es.Bulk.WithContext(ctx),
		ix.es.Bulk.WithIndex(ix.index),
		ix.es.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return 0, fmt.Errorf("elasticsearch: bulk: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("%w: bulk: %s", ErrIndexing, res.Status())
	}

	var r struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, fmt.Errorf("elasticsearch: decode bulk response: %w", err)
	}

	indexed := 0
	for _, item := range r.Items {
		for _, op := range item {
			if op.Status >= 200 && op.Status < 300 {
				indexed++
			}
		}
	}
	if r.Errors {
		ix.log.Warn("index_products_partial", "indexed", indexed, "total", len(products))
		return indexed, fmt.Errorf("%w: %d of %d documents failed", ErrIndexing, len(products)-indexed, len(products))
	}

	ix.log.Info("index_products_success", "indexed", indexed)
	return indexed, nil
}

// Search runs a fuzzy multi_match over name, author and description.
func (ix *Indexer) Search(ctx context.Context, query string, page, size int) (*models.Page[models.Product], error) {
	offset, limit := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}

	q := strings.TrimSpace(query)
	if q == "" {
		return &models.Page[models.Product]{
			Data: []models.Product{},
			Meta: models.PageMeta{Page: page, Size: limit},
		}, nil
	}

	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"name^2", "author", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": offset,
		"size": limit,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("elasticsearch: encode query: %w", err)
	}

	res, err := ix.es.Search(
		ix.es.Search.WithContext(ctx),
		ix.es.Search.WithIndex(ix.index),
		ix.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch: search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("elasticsearch: decode search response: %w", err)
	}

	items := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		items[i] = hit.Source
	}
	total := r.Hits.Total.Value
	return &models.Page[models.Product]{
		Data: items,
		Meta: models.PageMeta{
			Page:       page,
			Size:       limit,
			Total:      total,
			TotalPages: util.TotalPages(total, limit),
			HasPrev:    page > 1,
			HasNext:    int64(offset+limit) < total,
		},
	}, nil
}
