package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tazkara/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchClient indexes events for bilingual full-text search over the
// localized name/description/venue fields.
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config Config
}

type Config struct {
	URL        string
	Username   string
	Password   string
	Index      string
	MaxRetries int
}

func NewElasticsearchClient(cfg Config) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{
		client: es,
		config: cfg,
	}

	if err := client.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

// ensureIndex creates the events index when missing. Localized fields get
// the built-in english and arabic analyzers.
func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{c.config.Index},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		slog.Info("Elasticsearch index already exists", "index", c.config.Index)
		return nil
	}

	localized := func(analyzerEn, analyzerAr string) map[string]interface{} {
		return map[string]interface{}{
			"properties": map[string]interface{}{
				"en": map[string]interface{}{"type": "text", "analyzer": analyzerEn},
				"ar": map[string]interface{}{"type": "text", "analyzer": analyzerAr},
			},
		}
	}

	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":          map[string]interface{}{"type": "keyword"},
				"name":        localized("english", "arabic"),
				"description": localized("english", "arabic"),
				"venue":       localized("english", "arabic"),
				"eventCode":   map[string]interface{}{"type": "keyword"},
				"category":    map[string]interface{}{"type": "keyword"},
				"status":      map[string]interface{}{"type": "keyword"},
				"price":       map[string]interface{}{"type": "long"},
				"date": map[string]interface{}{
					"type":   "date",
					"format": "strict_date_optional_time||epoch_millis",
				},
			},
		},
	}

	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  strings.NewReader(string(mappingJSON)),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// Search runs a bilingual full-text query with an optional same-day date filter.
func (c *ElasticsearchClient) Search(ctx context.Context, query, date string, page, size int) ([]models.Event, int64, error) {
	from := 0
	if page > 0 && size > 0 {
		from = (page - 1) * size
	}
	if size <= 0 {
		size = 10
	}

	searchRequest := map[string]interface{}{
		"query": c.buildSearchQuery(query, date),
		"sort":  c.buildSortQuery(query),
		"from":  from,
		"size":  size,
	}

	searchJSON, err := json.Marshal(searchRequest)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.config.Index},
		Body:  strings.NewReader(string(searchJSON)),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("search error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Event `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	events := make([]models.Event, len(response.Hits.Hits))
	for i, hit := range response.Hits.Hits {
		events[i] = hit.Source
	}

	return events, response.Hits.Total.Value, nil
}

func (c *ElasticsearchClient) buildSearchQuery(query, date string) map[string]interface{} {
	mustQueries := []map[string]interface{}{}

	if query != "" {
		mustQueries = append(mustQueries, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name.en^2", "name.ar^2", "description.en", "description.ar", "venue.en", "venue.ar"},
				"fuzziness": "AUTO",
			},
		})
	}

	if date != "" {
		mustQueries = append(mustQueries, map[string]interface{}{
			"range": map[string]interface{}{
				"date": map[string]interface{}{
					"gte": date + "T00:00:00",
					"lte": date + "T23:59:59",
				},
			},
		})
	}

	if len(mustQueries) == 0 {
		return map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	return map[string]interface{}{
		"bool": map[string]interface{}{
			"must": mustQueries,
		},
	}
}

func (c *ElasticsearchClient) buildSortQuery(query string) []map[string]interface{} {
	if query != "" {
		return []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"date": map[string]interface{}{"order": "asc"}},
		}
	}

	return []map[string]interface{}{
		{"date": map[string]interface{}{"order": "asc"}},
	}
}

// IndexEvent indexes or reindexes an event document.
func (c *ElasticsearchClient) IndexEvent(ctx context.Context, event *models.Event) error {
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = time.Now()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: event.ID.Hex(),
		Body:       strings.NewReader(string(eventJSON)),
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing error: %s", res.String())
	}

	return nil
}

// DeleteEvent removes an event document; a missing document is not an error.
func (c *ElasticsearchClient) DeleteEvent(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{
		Index:      c.config.Index,
		DocumentID: id,
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete error: %s", res.String())
	}

	return nil
}

// HealthCheck verifies cluster availability.
func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	req := esapi.ClusterHealthRequest{
		WaitForStatus: "yellow",
		Timeout:       10 * time.Second,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("health check error: %s", res.String())
	}

	return nil
}
