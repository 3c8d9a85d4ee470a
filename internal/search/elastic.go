package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/medikart/masterdata/internal/config"
	"go.uber.org/zap"
)

// defaultSearchFields are the weighted multi-match targets for general
// queries. Name dominates, then generic name and composition.
var defaultSearchFields = []string{"name^3", "generic_name^2", "composition_text^2", "manufacturer_name"}

// Elastic implements Index against an Elasticsearch collection.
type Elastic struct {
	client *elasticsearch.Client
	index  string
	log    *zap.Logger
}

func NewElastic(cfg config.Config, log *zap.Logger) (*Elastic, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.SearchAddr},
	})
	if err != nil {
		return nil, err
	}
	return &Elastic{
		client: client,
		index:  cfg.SearchIndex,
		log:    log.Named("search.elastic"),
	}, nil
}

func (e *Elastic) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists(
		[]string{e.index},
		e.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"canonical_id":          map[string]interface{}{"type": "keyword"},
				"name":                  map[string]interface{}{"type": "text"},
				"generic_name":          map[string]interface{}{"type": "text"},
				"composition_text":      map[string]interface{}{"type": "text"},
				"manufacturer_name":     map[string]interface{}{"type": "text", "fields": map[string]interface{}{"raw": map[string]interface{}{"type": "keyword"}}},
				"form":                  map[string]interface{}{"type": "keyword"},
				"pack_size":             map[string]interface{}{"type": "keyword"},
				"schedule":              map[string]interface{}{"type": "keyword"},
				"requires_prescription": map[string]interface{}{"type": "boolean"},
				"status":                map[string]interface{}{"type": "keyword"},
				"default_gst_rate":      map[string]interface{}{"type": "float"},
				"usage_count":           map[string]interface{}{"type": "long"},
				"confidence_score":      map[string]interface{}{"type": "float"},
				"primary_barcode":       map[string]interface{}{"type": "keyword"},
				"updated_at":            map[string]interface{}{"type": "long"},
			},
		},
	}
	body, _ := json.Marshal(mapping)

	createRes, err := e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return err
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("create index: %s", createRes.String())
	}
	return nil
}

func (e *Elastic) Upsert(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := e.client.Index(
		e.index,
		bytes.NewReader(body),
		e.client.Index.WithDocumentID(doc.CanonicalID),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index document %s: %s", doc.CanonicalID, res.String())
	}
	return nil
}

func (e *Elastic) Delete(ctx context.Context, canonicalID string) error {
	res, err := e.client.Delete(
		e.index,
		canonicalID,
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	// idempotent delete: a missing document is already the desired state
	if res.StatusCode == 404 {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("delete document %s: %s", canonicalID, res.String())
	}
	return nil
}

func (e *Elastic) Search(ctx context.Context, q Query) (*Result, error) {
	body, err := json.Marshal(buildSearchBody(q))
	if err != nil {
		return nil, err
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.String())
	}

	var esResp struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, err
	}

	result := &Result{Total: esResp.Hits.Total.Value}
	for _, hit := range esResp.Hits.Hits {
		result.Documents = append(result.Documents, hit.Source)
	}
	return result, nil
}

func (e *Elastic) Count(ctx context.Context) (int64, error) {
	res, err := e.client.Count(
		e.client.Count.WithContext(ctx),
		e.client.Count.WithIndex(e.index),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("count: %s", res.String())
	}

	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return 0, err
	}
	return countResp.Count, nil
}

// buildSearchBody translates a Query into the Elasticsearch request body.
// Kept separate from transport so the query contract is unit-testable.
func buildSearchBody(q Query) map[string]interface{} {
	page := q.Page.Normalize()

	var must []map[string]interface{}
	if q.Text != "" {
		match := map[string]interface{}{
			"query":  q.Text,
			"fields": searchFields(q),
		}
		if q.Prefix {
			match["type"] = "bool_prefix"
		} else {
			// up to 2-typo tolerance
			match["fuzziness"] = 2
		}
		must = append(must, map[string]interface{}{"multi_match": match})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	var filter []map[string]interface{}
	if q.Manufacturer != "" {
		filter = append(filter, map[string]interface{}{
			"match": map[string]interface{}{"manufacturer_name": q.Manufacturer},
		})
	}
	if q.Form != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"form": q.Form},
		})
	}
	if q.Schedule != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"schedule": q.Schedule},
		})
	}
	if q.RequiresPrescription != nil {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"requires_prescription": *q.RequiresPrescription},
		})
	}

	boolQuery := map[string]interface{}{
		"must":   must,
		"filter": filter,
	}
	if q.Status != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"status": q.Status},
		})
		boolQuery["filter"] = filter
	} else if !q.IncludeDiscontinued {
		boolQuery["must_not"] = []map[string]interface{}{
			{"term": map[string]interface{}{"status": "DISCONTINUED"}},
		}
	}

	return map[string]interface{}{
		"from":  page.Offset,
		"size":  page.Limit,
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []map[string]interface{}{
			{"usage_count": map[string]interface{}{"order": "desc"}},
			{"canonical_id": map[string]interface{}{"order": "asc"}},
		},
	}
}

func searchFields(q Query) []string {
	if len(q.Fields) > 0 {
		return q.Fields
	}
	return defaultSearchFields
}
