package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/pkg/log"
)

// indexMapping indexes the searchable fields as analyzed text and keeps the
// remaining record fields dynamic.
var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			domain.FieldName:        map[string]interface{}{"type": "text"},
			domain.FieldBreed:       map[string]interface{}{"type": "text", "fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword"}}},
			domain.FieldOutcomeType: map[string]interface{}{"type": "text", "fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword"}}},
		},
	},
}

// ESSearchRepository searches and maintains the outcome record index in Elasticsearch.
type ESSearchRepository struct {
	client      *elasticsearch.Client
	index       string
	bulkWorkers int
}

// NewESSearchRepository creates a new Elasticsearch-based search repository.
func NewESSearchRepository(client *elasticsearch.Client, index string, bulkWorkers int) *ESSearchRepository {
	if bulkWorkers <= 0 {
		bulkWorkers = 2
	}
	return &ESSearchRepository{
		client:      client,
		index:       index,
		bulkWorkers: bulkWorkers,
	}
}

// Search runs a multi_match query over name, breed and outcome type and
// returns at most limit records by descending relevance.
func (r *ESSearchRepository) Search(ctx context.Context, query string, limit int) ([]domain.Record, error) {
	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": domain.SearchFields,
			},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var result esResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	records := make([]domain.Record, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var rec domain.Record
		if err := json.Unmarshal(hit.Source, &rec); err != nil {
			continue
		}
		if rec == nil {
			rec = domain.Record{}
		}
		rec[domain.FieldID] = hit.ID
		records = append(records, rec)
	}

	return records, nil
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (r *ESSearchRepository) EnsureIndex(ctx context.Context) error {
	l := log.Ctx(ctx)

	res, err := r.client.Indices.Exists([]string{r.index}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", r.index, err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}

	data, err := json.Marshal(indexMapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = r.client.Indices.Create(
		r.index,
		r.client.Indices.Create.WithContext(ctx),
		r.client.Indices.Create.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", r.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}

	l.Info().Str("index", r.index).Msg("search index created")
	return nil
}

// Index stores or replaces the document for rec.
func (r *ESSearchRepository) Index(ctx context.Context, rec domain.Record) error {
	id := rec.ID()
	if id == "" {
		return fmt.Errorf("cannot index record without %s", domain.FieldID)
	}

	data, err := json.Marshal(documentOf(rec))
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(data),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(id),
	)
	if err != nil {
		return fmt.Errorf("failed to index record %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// Delete removes the document for id. A missing document is not an error.
func (r *ESSearchRepository) Delete(ctx context.Context, id string) error {
	res, err := r.client.Delete(r.index, id, r.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// BulkIndex indexes recs through the bulk API.
func (r *ESSearchRepository) BulkIndex(ctx context.Context, recs []domain.Record) error {
	l := log.Ctx(ctx)

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     r.client,
		Index:      r.index,
		NumWorkers: r.bulkWorkers,
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	var failed atomic.Int64
	for _, rec := range recs {
		id := rec.ID()
		if id == "" {
			failed.Add(1)
			continue
		}

		data, err := json.Marshal(documentOf(rec))
		if err != nil {
			failed.Add(1)
			continue
		}

		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: id,
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
				if err != nil {
					l.Warn().Err(err).Str(log.FieldRecordID, item.DocumentID).Msg("bulk index item failed")
					return
				}
				l.Warn().Str(log.FieldRecordID, item.DocumentID).Str("reason", res.Error.Reason).Msg("bulk index item rejected")
			},
		})
		if err != nil {
			bi.Close(ctx)
			return fmt.Errorf("failed to add record %s to bulk indexer: %w", id, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("failed to flush bulk indexer: %w", err)
	}

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("bulk index: %d of %d records failed", n, len(recs))
	}
	return nil
}

// documentOf drops the id field; it travels as the document _id.
func documentOf(rec domain.Record) domain.Record {
	doc := rec.Clone()
	delete(doc, domain.FieldID)
	return doc
}

// esResponse is the generic Elasticsearch search response structure.
type esResponse struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}
