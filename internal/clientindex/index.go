// Package clientindex keeps the Elasticsearch copy of the client book used
// for full-text and proximity search.
package clientindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"fieldsales-workers/internal/models"
)

var ErrSearchFailed = errors.New("SEARCH_QUERY_FAILED")

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Document is the indexed form of a client.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	ContactName string    `json:"contact_name,omitempty"`
	Zone        string    `json:"zone,omitempty"`
	Status      string    `json:"status"`
	OwnerID     string    `json:"owner_id"`
	Phone       string    `json:"phone,omitempty"`
	Location    GeoPoint  `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewDocument(c *models.Client) Document {
	return Document{
		ID:          c.ID,
		Name:        c.Name,
		Address:     c.Address,
		ContactName: c.ContactName,
		Zone:        c.Zone,
		Status:      c.Status,
		OwnerID:     c.OwnerID,
		Phone:       c.Phone,
		Location:    GeoPoint{Lat: c.Latitude, Lon: c.Longitude},
		CreatedAt:   c.CreatedAt,
	}
}

type Index struct {
	es   *elasticsearch.Client
	name string
}

func New(es *elasticsearch.Client, name string) *Index {
	if name == "" {
		name = "clients"
	}
	return &Index{es: es, name: name}
}

func (ix *Index) Name() string { return ix.name }

// Put writes doc under its id, replacing any previous version.
func (ix *Index) Put(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode client document: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      ix.name,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "wait_for",
	}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		return fmt.Errorf("%w: index %s: %w", ErrSearchFailed, doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: index %s: %s", ErrSearchFailed, doc.ID, res.Status())
	}
	return nil
}
