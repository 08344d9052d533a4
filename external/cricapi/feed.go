package cricapi

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
	raw, payloads, err := f.client.CurrentMatches(ctx)
	if err != nil {
		return nil, nil, err
	}
	return raw, f.adapter.Normalize(ctx, payloads), nil
}

func (f *Feed) Fixtures(ctx context.Context) ([]match.Record, error) {
	payloads, err := f.client.Fixtures(ctx)
	if err != nil {
		return nil, err
	}
	return f.adapter.Normalize(ctx, payloads), nil
}

func (f *Feed) Scorecard(ctx context.Context, matchID string) ([]byte, error) {
	return f.client.Scorecard(ctx, matchID)
}
