// Package search mirrors profile records into Elasticsearch so they can be
// looked up by name, email or plan.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/fitness-onboarding/internal/application"
)

const requestTimeout = 3 * time.Second

type ProfileIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewProfileIndex(es *elasticsearch.Client, index string) *ProfileIndex {
	return &ProfileIndex{ES: es, Index: index}
}

// Project applies the changed fields as a partial update, creating the
// document on first write.
func (p *ProfileIndex) Project(ctx context.Context, change application.ProfileChange) error {
	if p == nil || p.ES == nil || p.Index == "" {
		return nil
	}
	doc := make(map[string]any, len(change.Fields)+2)
	for k, v := range change.Fields {
		doc[k] = v
	}
	doc["id"] = change.Identity.String()
	doc["updated_at"] = change.At.Format(time.RFC3339Nano)

	b, err := json.Marshal(map[string]any{"doc": doc, "doc_as_upsert": true})
	if err != nil {
		return err
	}
	req := esapi.UpdateRequest{
		Index:      p.Index,
		DocumentID: change.Identity.String(),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, p.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("es update %s: %s", res.Status(), strings.TrimSpace(string(body)))
	}
	return nil
}

// mapping keeps the categorical fields exact-match and the numbers numeric.
var mapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":                 map[string]any{"type": "keyword"},
			"name":               map[string]any{"type": "text"},
			"email":              map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
			"gender":             map[string]any{"type": "keyword"},
			"age":                map[string]any{"type": "integer"},
			"height":             map[string]any{"type": "float"},
			"weight":             map[string]any{"type": "float"},
			"activityLevel":      map[string]any{"type": "keyword"},
			"activityMultiplier": map[string]any{"type": "float"},
			"bmi":                map[string]any{"type": "float"},
			"recommendedPlan":    map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
			"stage":              map[string]any{"type": "keyword"},
			"updated_at":         map[string]any{"type": "date"},
		},
	},
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (p *ProfileIndex) EnsureIndex(ctx context.Context) error {
	if p == nil || p.ES == nil || p.Index == "" {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{p.Index}}.Do(c, p.ES)
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	b, _ := json.Marshal(mapping)
	res, err = esapi.IndicesCreateRequest{Index: p.Index, Body: bytes.NewReader(b)}.Do(c, p.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("es create index %s: %s", res.Status(), strings.TrimSpace(string(body)))
	}
	return nil
}

// Hit is one profile returned by Search.
type Hit struct {
	ID     string         `json:"id"`
	Source map[string]any `json:"profile"`
}

// Search runs a multi_match over name, email and recommended plan.
func (p *ProfileIndex) Search(ctx context.Context, q string, size int) ([]Hit, error) {
	if p == nil || p.ES == nil || p.Index == "" {
		return []Hit{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name", "recommendedPlan"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := p.ES.Search(
		p.ES.Search.WithContext(c),
		p.ES.Search.WithIndex(p.Index),
		p.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, Hit{ID: h.ID, Source: h.Source})
	}
	return out, nil
}
