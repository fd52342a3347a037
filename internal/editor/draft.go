// Package editor keeps the in-progress invoice of each browser session and
// serves the editor pages.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/sections"
)

// Draft is the document being edited together with its section layout.
type Draft struct {
	Document *invoice.Document `json:"document"`
	Layout   *sections.Layout  `json:"layout"`
}

// NewDraft returns the editor's starting state.
func NewDraft() *Draft {
	return &Draft{Document: invoice.NewDocument(), Layout: sections.DefaultLayout()}
}

// DraftStore persists drafts in Redis, one per draft id, expiring with the
// session.
type DraftStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewDraftStore constructs a DraftStore.
func NewDraftStore(client redis.Cmdable, ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DraftStore{client: client, ttl: ttl}
}

func draftKey(id string) string {
	return "facturapro:draft:" + id
}

// NewDraftID returns a fresh draft identifier.
func NewDraftID() string {
	return uuid.NewString()
}

// Load returns the stored draft, or a new one when nothing is stored.
func (s *DraftStore) Load(ctx context.Context, id string) (*Draft, error) {
	if id == "" {
		return NewDraft(), nil
	}
	data, err := s.client.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NewDraft(), nil
		}
		return nil, fmt.Errorf("editor: load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("editor: decode draft: %w", err)
	}
	if d.Document == nil {
		d.Document = invoice.NewDocument()
	}
	if d.Layout == nil {
		d.Layout = sections.DefaultLayout()
	}
	return &d, nil
}

// Save stores d under id and refreshes its expiry.
func (s *DraftStore) Save(ctx context.Context, id string, d *Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("editor: encode draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("editor: save draft: %w", err)
	}
	return nil
}

// Delete discards the draft.
func (s *DraftStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, draftKey(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("editor: delete draft: %w", err)
	}
	return nil
}
