package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"teamflow/internal/config"
	repo "teamflow/internal/repository"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
)

// Elasticsearchのタスクインデックス
type TaskIndex struct {
	es    *elasticsearch.Client
	index string
}

var _ repo.TaskSearchIndex = (*TaskIndex)(nil)

const taskMapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "long"},
      "title":        {"type": "text"},
      "description":  {"type": "text"},
      "status":       {"type": "keyword"},
      "priority":     {"type": "keyword"},
      "assignedToId": {"type": "long"},
      "epicId":       {"type": "long"},
      "createdAt":    {"type": "date"}
    }
  }
}`

func NewClient(cfg config.SearchConfig, transport http.RoundTripper) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
}

func NewTaskIndex(es *elasticsearch.Client, index string) *TaskIndex {
	return &TaskIndex{es: es, index: index}
}

// EnsureIndex はインデックスがなければマッピング付きで作る
func (t *TaskIndex) EnsureIndex(ctx context.Context) error {
	res, err := t.es.Indices.Exists([]string{t.index}, t.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: exists: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("search: exists: %s", res.Status())
	}

	res, err = t.es.Indices.Create(t.index,
		t.es.Indices.Create.WithContext(ctx),
		t.es.Indices.Create.WithBody(strings.NewReader(taskMapping)),
	)
	if err != nil {
		return fmt.Errorf("search: create index: %w", err)
	}
	return checkResponse(res, "create index")
}

func (t *TaskIndex) Index(ctx context.Context, doc repo.TaskDocument) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("search: encode: %w", err)
	}

	res, err := t.es.Index(t.index, &buf,
		t.es.Index.WithContext(ctx),
		t.es.Index.WithDocumentID(strconv.FormatInt(doc.ID, 10)),
	)
	if err != nil {
		return fmt.Errorf("search: index: %w", err)
	}
	return checkResponse(res, "index")
}

// なければ何もしない
func (t *TaskIndex) Delete(ctx context.Context, id int64) error {
	res, err := t.es.Delete(t.index, strconv.FormatInt(id, 10), t.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: delete: %w", err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return checkResponse(res, "delete")
}

func (t *TaskIndex) Search(ctx context.Context, q string, limit int, offset int) ([]int64, int64, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     q,
				"fields":    []string{"title^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from":    offset,
		"size":    limit,
		"_source": false,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, 0, fmt.Errorf("search: encode: %w", err)
	}

	res, err := t.es.Search(
		t.es.Search.WithContext(ctx),
		t.es.Search.WithIndex(t.index),
		t.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search: query: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search: query: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, 0, fmt.Errorf("search: decode: %w", err)
	}

	ids := make([]int64, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, r.Hits.Total.Value, nil
}

func checkResponse(res *esapi.Response, op string) error {
	defer res.Body.Close()
	if res.IsError() {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("search: %s: %s: %s", op, res.Status(), strings.TrimSpace(string(b)))
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}
