package cricscore

import (
	"context"

	"github.com/stumpwatch/stumpwatch/internal/domain/match"
)

// Feed combines the client and adapter into the normalized-source surface the
// orchestration layer consumes.
type Feed struct {
	client  *Client
	adapter *Adapter
}

func NewFeed(client *Client, adapter *Adapter) *Feed {
	return &Feed{client: client, adapter: adapter}
}

func (f *Feed) Live(ctx context.Context) ([]byte, []match.Record, error) {
	raw, payloads, err := f.client.Scores(ctx)
	if err != nil {
		return nil, nil, err
	}
	return raw, f.adapter.Normalize(ctx, payloads), nil
}
