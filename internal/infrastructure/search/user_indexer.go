// Package search keeps an Elasticsearch projection of users for free-text lookup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	vo "github.com/oksasatya/go-ddd-user-service/internal/domain/valueobject"
)

const (
	requestTimeout = 3 * time.Second
	defaultSize    = 10
	maxSize        = 50
)

type UserIndexer struct {
	es    *elasticsearch.Client
	index string
}

func NewUserIndexer(es *elasticsearch.Client, index string) *UserIndexer {
	return &UserIndexer{es: es, index: index}
}

type userDocument struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Index writes the latest state of u under its id.
func (x *UserIndexer) Index(ctx context.Context, u *entity.User) error {
	body, err := json.Marshal(userDocument{
		ID:        u.ID().String(),
		Email:     u.Email().String(),
		Name:      u.Name(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.index, DocumentID: u.ID().String(), Body: bytes.NewReader(body), Refresh: "false"}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return fmt.Errorf("index user %s: %w", u.ID(), err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index user %s: %s", u.ID(), res.Status())
	}
	return nil
}

// Remove deletes the document; a missing document is not an error.
func (x *UserIndexer) Remove(ctx context.Context, id vo.UserID) error {
	req := esapi.DeleteRequest{Index: x.index, DocumentID: id.String()}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return fmt.Errorf("remove user %s: %w", id, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("remove user %s: %s", id, res.Status())
	}
	return nil
}

// Search runs a multi_match over email and name. size is clamped to (0, 50].
func (x *UserIndexer) Search(ctx context.Context, q string, size int) ([]*entity.User, error) {
	if size <= 0 || size > maxSize {
		size = defaultSize
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
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
		x.es.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search users: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source userDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]*entity.User, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		u, err := h.Source.toUser()
		if err != nil {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (d userDocument) toUser() (*entity.User, error) {
	id, err := vo.ParseUserID(d.ID)
	if err != nil {
		return nil, err
	}
	email, err := vo.NewEmail(d.Email)
	if err != nil {
		return nil, err
	}
	return entity.RestoreUser(id, email, d.Name, d.CreatedAt, d.UpdatedAt)
}
