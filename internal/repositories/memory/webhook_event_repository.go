package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.WebhookEventRepository = (*WebhookEventRepository)(nil)

// WebhookEventRepository keeps the notification inbox in insertion order
type WebhookEventRepository struct {
	base
	events []models.WebhookEvent
}

// NewWebhookEventRepository creates an empty WebhookEventRepository
func NewWebhookEventRepository() *WebhookEventRepository {
	return &WebhookEventRepository{}
}

func (r *WebhookEventRepository) Create(_ context.Context, event *models.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	r.events = append(r.events, *event)
	r.wrote()
	return nil
}

func (r *WebhookEventRepository) FindUnprocessed(_ context.Context, maxAttempts, limit int) ([]*models.WebhookEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.WebhookEvent
	for i := range r.events {
		if r.events[i].ProcessedAt != nil {
			continue
		}
		if maxAttempts > 0 && r.events[i].Attempts >= maxAttempts {
			continue
		}
		ev := r.events[i]
		out = append(out, &ev)
	}
	// Stable keeps insertion order within the same attempt count
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Attempts < out[j].Attempts
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *WebhookEventRepository) MarkProcessed(_ context.Context, id primitive.ObjectID, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].ID != id {
			continue
		}
		now := time.Now()
		ev := &r.events[i]
		ev.Attempts++
		ev.ProcessingError = processingError
		ev.UpdatedAt = now
		if processingError == "" {
			ev.ProcessedAt = &now
		}
		r.wrote()
		return nil
	}
	return repositories.ErrNotFound
}
