// Package search keeps the Elasticsearch user index.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/pkg/errors"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

const usersMapping = `{
  "mappings": {
    "properties": {
      "id":        {"type": "keyword"},
      "email":     {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "username":  {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "role":      {"type": "keyword"},
      "createdAt": {"type": "date"}
    }
  }
}`

type UserIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewUserIndex(es *elasticsearch.Client, index string) *UserIndex {
	return &UserIndex{es: es, index: index}
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *UserIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.es.Indices.Exists([]string{x.index}, x.es.Indices.Exists.WithContext(c))
	if err != nil {
		return errors.Wrap(err, "check users index")
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = x.es.Indices.Create(x.index,
		x.es.Indices.Create.WithContext(c),
		x.es.Indices.Create.WithBody(bytes.NewReader([]byte(usersMapping))),
	)
	if err != nil {
		return errors.Wrap(err, "create users index")
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return errors.Errorf("create users index: %s", res.Status())
	}
	return nil
}

func (x *UserIndex) Index(ctx context.Context, u entity.UserSummary) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := esapi.IndexRequest{Index: x.index, DocumentID: u.ID, Body: bytes.NewReader(b), Refresh: "false"}
	res, err := req.Do(c, x.es)
	if err != nil {
		return errors.Wrapf(err, "index user %s", u.ID)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return errors.Errorf("index user %s: %s", u.ID, res.Status())
	}
	return nil
}

// Delete removes a user document. A missing document is not an error.
func (x *UserIndex) Delete(ctx context.Context, id string) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := esapi.DeleteRequest{Index: x.index, DocumentID: id}
	res, err := req.Do(c, x.es)
	if err != nil {
		return errors.Wrapf(err, "delete user %s", id)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return errors.Errorf("delete user %s: %s", id, res.Status())
	}
	return nil
}

// Search runs a multi_match over email and username.
func (x *UserIndex) Search(ctx context.Context, q string, size int) ([]entity.UserSummary, error) {
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "username"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.es.Search(
		x.es.Search.WithContext(c),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "search users")
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, errors.Errorf("search users: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source entity.UserSummary `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, "decode search response")
	}

	out := make([]entity.UserSummary, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
