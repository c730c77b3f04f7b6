package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/recallhq/recall/internal/embeddings"
	"github.com/recallhq/recall/internal/model"
	"github.com/recallhq/recall/internal/searchindex"
)

const (
	// DefaultSearchThreshold drops hits whose similarity score is below it.
	DefaultSearchThreshold = 0.1
	// DefaultSearchLimit caps similarity searches when no limit is given.
	DefaultSearchLimit = 10
	// DefaultListLimit caps plain listings when no limit is given.
	DefaultListLimit = 50
)

// Service is the record repository for one store instantiation. It owns the
// text/vector consistency invariant: the stored vector is recomputed exactly
// when a primary-text field changes, and its dimension always equals the
// configured one.
//
// All operations are safe for concurrent use; per-id writes rely on the
// backing store's single-key atomicity and are last-writer-wins.
type Service struct {
	idx    searchindex.Index
	emb    embeddings.Provider
	schema Schema
	dim    int
	log    zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New builds a Service. The index must already be provisioned
// (EnsureSchema) before the service accepts reads or writes.
func New(idx searchindex.Index, emb embeddings.Provider, schema Schema, vectorDim int, log zerolog.Logger) *Service {
	return &Service{
		idx:    idx,
		emb:    emb,
		schema: schema,
		dim:    vectorDim,
		log:    log.With().Str("store", schema.Name).Logger(),
		now:    time.Now,
	}
}

// embedText runs the adapter and enforces the configured vector dimension.
// A provider returning the wrong dimension is a configuration fault, not a
// retryable condition; both cases wrap model.ErrEmbeddingFailed.
func (s *Service) embedText(ctx context.Context, text string) ([]float32, error) {
	e, err := s.emb.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, model.ErrEmbeddingFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrEmbeddingFailed, err)
	}
	if len(e.Vector) != s.dim {
		return nil, fmt.Errorf("%w: provider returned dimension %d, store configured for %d",
			model.ErrEmbeddingFailed, len(e.Vector), s.dim)
	}
	return e.Vector, nil
}

// validateReminders checks reminder inputs against the closed type set and
// the required schedule, without touching any external dependency.
func validateReminders(inputs []model.ReminderInput) error {
	for _, in := range inputs {
		if !model.ValidReminderType(in.Type) {
			return fmt.Errorf("%w: invalid reminder type %q", model.ErrValidation, in.Type)
		}
		if in.ScheduledFor.IsZero() {
			return fmt.Errorf("%w: reminder scheduledFor is required", model.ErrValidation)
		}
	}
	return nil
}

// materializeReminders turns inputs into owned reminders: fresh ids, the
// active unsent state, back-reference to the record.
func (s *Service) materializeReminders(recordID string, inputs []model.ReminderInput, now time.Time) ([]model.Reminder, error) {
	if err := validateReminders(inputs); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	out := make([]model.Reminder, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, model.Reminder{
			ID:           uuid.New().String(),
			RecordID:     recordID,
			Type:         in.Type,
			ScheduledFor: in.ScheduledFor,
			Message:      in.Message,
			IsActive:     true,
			IsSent:       false,
			CreationTime: now,
			UpdateTime:   now,
		})
	}
	return out, nil
}

// Create validates the input, embeds its primary text, and persists a new
// record. Embedding failures abort the write; nothing partial is stored.
func (s *Service) Create(ctx context.Context, in model.RecordInput) (*model.Record, error) {
	if in.OwnerID == "" {
		return nil, fmt.Errorf("%w: ownerId is required", model.ErrValidation)
	}

	category, err := s.schema.category(in.Category)
	if err != nil {
		return nil, err
	}
	priority, err := s.schema.priority(in.Priority)
	if err != nil {
		return nil, err
	}
	status, err := s.schema.status(in.Status)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &model.Record{
		ID:             uuid.New().String(),
		OwnerID:        in.OwnerID,
		ConversationID: in.ConversationID,
		Title:          in.Title,
		Content:        in.Content,
		Category:       category,
		Priority:       priority,
		Status:         status,
		Tags:           in.Tags,
		CreationTime:   now,
		UpdateTime:     now,
	}
	if rec.Reminders, err = s.materializeReminders(rec.ID, in.Reminders, now); err != nil {
		return nil, err
	}

	vec, err := s.embedText(ctx, rec.PrimaryText())
	if err != nil {
		return nil, err
	}
	if err := s.idx.PutRecord(ctx, rec, vec); err != nil {
		return nil, err
	}
	s.log.Debug().Str("recordId", rec.ID).Int("reminders", len(rec.Reminders)).Msg("record created")
	return rec, nil
}

// CreateBatch creates several records in one pass, embedding their primary
// texts through the adapter's batch call. Output order matches input order.
// Validation of every input happens before any embedding; an embedding
// failure aborts the whole batch with nothing persisted. Individual store
// writes after that point are sequential, so a store failure may leave a
// prefix of the batch persisted.
func (s *Service) CreateBatch(ctx context.Context, inputs []model.RecordInput) ([]*model.Record, error) {
	now := s.now().UTC()
	recs := make([]*model.Record, 0, len(inputs))
	texts := make([]string, 0, len(inputs))

	for i, in := range inputs {
		if in.OwnerID == "" {
			return nil, fmt.Errorf("%w: input %d: ownerId is required", model.ErrValidation, i)
		}
		category, err := s.schema.category(in.Category)
		if err != nil {
			return nil, err
		}
		priority, err := s.schema.priority(in.Priority)
		if err != nil {
			return nil, err
		}
		status, err := s.schema.status(in.Status)
		if err != nil {
			return nil, err
		}
		rec := &model.Record{
			ID:             uuid.New().String(),
			OwnerID:        in.OwnerID,
			ConversationID: in.ConversationID,
			Title:          in.Title,
			Content:        in.Content,
			Category:       category,
			Priority:       priority,
			Status:         status,
			Tags:           in.Tags,
			CreationTime:   now,
			UpdateTime:     now,
		}
		if rec.Reminders, err = s.materializeReminders(rec.ID, in.Reminders, now); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
		texts = append(texts, rec.PrimaryText())
	}

	embs, err := s.emb.EmbedBatch(ctx, texts)
	if err != nil {
		if errors.Is(err, model.ErrEmbeddingFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrEmbeddingFailed, err)
	}
	if len(embs) != len(recs) {
		return nil, fmt.Errorf("%w: batch returned %d embeddings for %d inputs",
			model.ErrEmbeddingFailed, len(embs), len(recs))
	}

	for i, rec := range recs {
		if len(embs[i].Vector) != s.dim {
			return nil, fmt.Errorf("%w: provider returned dimension %d, store configured for %d",
				model.ErrEmbeddingFailed, len(embs[i].Vector), s.dim)
		}
		if err := s.idx.PutRecord(ctx, rec, embs[i].Vector); err != nil {
			return nil, err
		}
	}
	s.log.Debug().Int("count", len(recs)).Msg("batch created")
	return recs, nil
}

// Get returns the record, or (nil, nil) when the id is absent.
func (s *Service) Get(ctx context.Context, id string) (*model.Record, error) {
	rec, _, err := s.idx.GetRecord(ctx, id)
	return rec, err
}

// Update applies the partial update and returns the updated record, or
// (nil, nil) when the id is absent. The embedding is recomputed only when a
// primary-text field is among the supplied ones; metadata-only updates keep
// the stored vector bit for bit.
func (s *Service) Update(ctx context.Context, id string, upd model.RecordUpdate) (*model.Record, error) {
	// Everything below needs only the update and the schema; a malformed
	// update is rejected before the store is consulted.
	var category, priority, status string
	var err error
	if upd.Category != nil {
		if category, err = s.schema.category(*upd.Category); err != nil {
			return nil, err
		}
	}
	if upd.Priority != nil {
		if priority, err = s.schema.priority(*upd.Priority); err != nil {
			return nil, err
		}
	}
	if upd.Status != nil {
		if status, err = s.schema.status(*upd.Status); err != nil {
			return nil, err
		}
	}
	if upd.RemindersSet {
		if err := validateReminders(upd.Reminders); err != nil {
			return nil, err
		}
	}

	rec, vec, err := s.idx.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	if upd.Title != nil {
		rec.Title = *upd.Title
	}
	if upd.Content != nil {
		rec.Content = *upd.Content
	}
	if upd.ConversationID != nil {
		rec.ConversationID = upd.ConversationID
	}
	if upd.Category != nil {
		rec.Category = category
	}
	if upd.Priority != nil {
		rec.Priority = priority
	}
	if upd.Status != nil {
		rec.Status = status
	}
	if upd.TagsSet {
		rec.Tags = upd.Tags
	}

	now := s.now().UTC()
	if upd.RemindersSet {
		if rec.Reminders, err = s.materializeReminders(rec.ID, upd.Reminders, now); err != nil {
			return nil, err
		}
	}
	rec.UpdateTime = now

	if upd.TouchesPrimaryText() {
		if vec, err = s.embedText(ctx, rec.PrimaryText()); err != nil {
			return nil, err
		}
	}
	if err := s.idx.PutRecord(ctx, rec, vec); err != nil {
		return nil, err
	}
	s.log.Debug().Str("recordId", rec.ID).Bool("reembedded", upd.TouchesPrimaryText()).Msg("record updated")
	return rec, nil
}

// Delete removes the record and, with it, every reminder it owns. It
// returns true iff a record existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.idx.DeleteRecord(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		s.log.Debug().Str("recordId", id).Msg("record deleted")
	}
	return removed, nil
}

// Search embeds the query text and runs a filtered nearest-neighbor query.
// Hits are ordered by ascending distance; those with score below the
// threshold are dropped. The score is a cosine similarity (higher is
// better) and distance is always 1 - score.
//
// An empty query still round-trips through the embedder, so a provider that
// rejects empty input fails the search rather than returning nothing.
func (s *Service) Search(ctx context.Context, query string, opts model.SearchOptions) ([]model.SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	threshold := DefaultSearchThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold must be in [0,1], got %g", model.ErrValidation, threshold)
	}

	vec, err := s.embedText(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.idx.SearchNearest(ctx, vec, opts.Filter, limit)
	if err != nil {
		return nil, err
	}

	out := make([]model.SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.Score < threshold {
			continue
		}
		out = append(out, model.SearchResult{Record: h.Record, Score: h.Score, Distance: h.Distance})
	}
	s.log.Debug().Int("hits", len(out)).Float64("threshold", threshold).Msg("search completed")
	return out, nil
}

// List returns records matching the filter, newest first. A non-positive
// limit falls back to DefaultListLimit.
func (s *Service) List(ctx context.Context, f model.Filter, limit int) ([]*model.Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.idx.ListRecords(ctx, f, limit)
}

// DueReminders walks every record and returns the reminders eligible for
// delivery at now: active, unsent, scheduled at or before now. No reminders
// being due is an empty result, not an error.
func (s *Service) DueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	var due []model.Reminder
	err := s.idx.ScanRecords(ctx, func(rec *model.Record) bool {
		for _, r := range rec.Reminders {
			if r.Due(now) {
				due = append(due, r)
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return due, nil
}

// MarkReminderSent transitions the reminder to its terminal sent state and
// returns true. Re-invocation on an already-sent reminder is a no-op
// success; an unknown id returns false.
func (s *Service) MarkReminderSent(ctx context.Context, reminderID string) (bool, error) {
	var holder *model.Record
	err := s.idx.ScanRecords(ctx, func(rec *model.Record) bool {
		for i := range rec.Reminders {
			if rec.Reminders[i].ID == reminderID {
				holder = rec
				return false
			}
		}
		return true
	})
	if err != nil {
		return false, err
	}
	if holder == nil {
		return false, nil
	}

	// Re-read through GetRecord for the stored vector; the scan does not
	// carry vectors.
	rec, vec, err := s.idx.GetRecord(ctx, holder.ID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	now := s.now().UTC()
	for i := range rec.Reminders {
		if rec.Reminders[i].ID != reminderID {
			continue
		}
		if rec.Reminders[i].IsSent {
			return true, nil
		}
		rec.Reminders[i].IsSent = true
		rec.Reminders[i].UpdateTime = now
		rec.UpdateTime = now
		if err := s.idx.PutRecord(ctx, rec, vec); err != nil {
			return false, err
		}
		s.log.Debug().Str("reminderId", reminderID).Str("recordId", rec.ID).Msg("reminder marked sent")
		return true, nil
	}
	return false, nil
}
