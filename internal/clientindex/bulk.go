package clientindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"fieldsales-workers/internal/models"
)

// DefaultBatchSize bounds the documents sent in one _bulk request.
const DefaultBatchSize = 500

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// BulkResult counts what a reindex wrote. Failed holds the ids Elasticsearch rejected.
type BulkResult struct {
	Indexed int
	Failed  []string
}

// Reindex writes every client in batches of batchSize. A transport error
// stops the run; per-document rejections are collected and the run goes on.
func (ix *Index) Reindex(ctx context.Context, clients []models.Client, batchSize int) (BulkResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	var total BulkResult
	for start := 0; start < len(clients); start += batchSize {
		end := start + batchSize
		if end > len(clients) {
			end = len(clients)
		}
		res, err := ix.bulk(ctx, clients[start:end])
		total.Indexed += res.Indexed
		total.Failed = append(total.Failed, res.Failed...)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (ix *Index) bulk(ctx context.Context, batch []models.Client) (BulkResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range batch {
		doc := NewDocument(&batch[i])
		meta := map[string]interface{}{"index": map[string]string{"_index": ix.name, "_id": doc.ID}}
		if err := enc.Encode(meta); err != nil {
			return BulkResult{}, fmt.Errorf("encode bulk meta: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return BulkResult{}, fmt.Errorf("encode client document: %w", err)
		}
	}

	req := esapi.BulkRequest{Body: &buf, Refresh: "true"}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		return BulkResult{}, fmt.Errorf("%w: bulk: %w", ErrSearchFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return BulkResult{}, fmt.Errorf("%w: bulk: %s", ErrSearchFailed, res.Status())
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return BulkResult{}, fmt.Errorf("%w: decode bulk response: %w", ErrSearchFailed, err)
	}
	var out BulkResult
	for _, item := range parsed.Items {
		for _, r := range item {
			if r.Error != nil || r.Status >= 300 {
				out.Failed = append(out.Failed, r.ID)
				continue
			}
			out.Indexed++
		}
	}
	return out, nil
}
