package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// OpenSearchStorage indexes events for the dashboards and retention
// tooling that live outside this layer. Each event is indexed under its
// own ID, so redelivered batches stay idempotent.
type OpenSearchStorage struct {
	client *opensearch.Client
	index  string
}

// NewOpenSearchStorage creates a storage writing to the given index,
// "audit-events" when empty.
func NewOpenSearchStorage(client *opensearch.Client, index string) *OpenSearchStorage {
	if client == nil {
		panic("audit: opensearch client is required")
	}
	if index == "" {
		index = "audit-events"
	}
	return &OpenSearchStorage{client: client, index: index}
}

func (s *OpenSearchStorage) Store(ctx context.Context, event Event) error {
	return s.StoreBatch(ctx, []Event{event})
}

func (s *OpenSearchStorage) StoreBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	var body bytes.Buffer
	for _, e := range events {
		meta := fmt.Sprintf(`{"index":{"_id":%q}}`, e.ID.String())
		body.WriteString(meta)
		body.WriteByte('\n')

		doc, err := json.Marshal(e)
		if err != nil {
			return errors.Join(ErrInvalidEvent, err)
		}
		body.Write(doc)
		body.WriteByte('\n')
	}

	req := opensearchapi.BulkRequest{
		Index: s.index,
		Body:  &body,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: bulk index returned %s", ErrStorageUnavailable, res.Status())
	}
	return nil
}
