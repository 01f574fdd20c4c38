package clientindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"fieldsales-workers/internal/access"
)

const (
	DefaultSize = 20
	MaxSize     = 100
)

type Near struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radiusMeters"`
}

type Query struct {
	Text   string
	Status string
	Zone   string
	Near   *Near
	From   int
	Size   int
}

type Hit struct {
	Document
	Score          float64  `json:"score"`
	DistanceMeters *float64 `json:"distanceMeters,omitempty"`
}

type Result struct {
	Total int64 `json:"total"`
	Hits  []Hit `json:"hits"`
	Took  int64 `json:"tookMs"`
}

// Build renders q as a search body. Non-admin principals are always limited
// to the owners their role can see.
func Build(q Query, p access.Principal) map[string]interface{} {
	var must, filter []interface{}

	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     text,
				"fields":    []string{"name^3", "address", "contact_name"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	if q.Status != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"status": q.Status}})
	}
	if q.Zone != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"zone": q.Zone}})
	}
	if !p.IsAdmin() {
		filter = append(filter, map[string]interface{}{"terms": map[string]interface{}{"owner_id": p.VisibleOwners()}})
	}

	body := map[string]interface{}{}
	if q.Near != nil {
		point := map[string]interface{}{"lat": q.Near.Latitude, "lon": q.Near.Longitude}
		filter = append(filter, map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%.0fm", q.Near.RadiusMeters),
				"location": point,
			},
		})
		body["sort"] = []interface{}{
			map[string]interface{}{
				"_geo_distance": map[string]interface{}{
					"location": point,
					"order":    "asc",
					"unit":     "m",
				},
			},
		}
	}

	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	body["query"] = map[string]interface{}{"bool": boolQuery}
	return body
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score  *float64  `json:"_score"`
			Source Document  `json:"_source"`
			Sort   []float64 `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs q in p's scope.
func (ix *Index) Search(ctx context.Context, q Query, p access.Principal) (*Result, error) {
	size := q.Size
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	from := q.From
	if from < 0 {
		from = 0
	}

	data, err := json.Marshal(Build(q, p))
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	req := esapi.SearchRequest{
		Index: []string{ix.name},
		Body:  bytes.NewReader(data),
		From:  &from,
		Size:  &size,
	}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrSearchFailed, err)
	}

	out := &Result{Total: r.Hits.Total.Value, Took: r.Took, Hits: make([]Hit, 0, len(r.Hits.Hits))}
	for _, h := range r.Hits.Hits {
		hit := Hit{Document: h.Source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		if q.Near != nil && len(h.Sort) > 0 {
			d := h.Sort[0]
			hit.DistanceMeters = &d
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}
