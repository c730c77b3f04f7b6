package records

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/embeddings"
	"github.com/recallhq/recall/internal/embeddings/embedtest"
	"github.com/recallhq/recall/internal/model"
)

const testDim = 32

// countingProvider records how often the embedder is invoked.
type countingProvider struct {
	inner embeddings.Provider
	calls int
}

func (c *countingProvider) Embed(ctx context.Context, text string) (embeddings.Embedding, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}

func (c *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([]embeddings.Embedding, error) {
	c.calls += len(texts)
	return c.inner.EmbedBatch(ctx, texts)
}

func newTestService(t *testing.T) (*Service, *fakeIndex, *countingProvider) {
	t.Helper()
	idx := newFakeIndex()
	emb := &countingProvider{inner: embedtest.New(testDim)}
	svc := New(idx, emb, IdeaSchema("Idea"), testDim, zerolog.Nop())
	return svc, idx, emb
}

func TestCreate_DefaultsAndRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	conv := int64(99)
	created, err := svc.Create(ctx, model.RecordInput{
		OwnerID:        "owner-1",
		ConversationID: &conv,
		Title:          "Expand into enterprise",
		Content:        "Target larger accounts next quarter",
		Tags:           []string{"enterprise", "strategy"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	// Unset enums take the schema defaults.
	assert.Equal(t, "other", created.Category)
	assert.Equal(t, "medium", created.Priority)
	assert.Equal(t, "active", created.Status)
	assert.False(t, created.CreationTime.IsZero())
	assert.True(t, created.UpdateTime.Equal(created.CreationTime))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "owner-1", got.OwnerID)
	require.NotNil(t, got.ConversationID)
	assert.Equal(t, conv, *got.ConversationID)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Tags, got.Tags)
}

func TestCreate_ValidationBeforeExternalCalls(t *testing.T) {
	svc, idx, emb := newTestService(t)
	ctx := context.Background()

	cases := []model.RecordInput{
		{Title: "no owner"},
		{OwnerID: "o", Category: "nonsense"},
		{OwnerID: "o", Priority: "urgent-ish"},
		{OwnerID: "o", Status: "limbo"},
		{OwnerID: "o", Reminders: []model.ReminderInput{{Type: "fortnightly", ScheduledFor: time.Now()}}},
		{OwnerID: "o", Reminders: []model.ReminderInput{{Type: model.ReminderSingle}}},
	}
	for _, in := range cases {
		_, err := svc.Create(ctx, in)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrValidation), "want validation error, got %v", err)
	}
	assert.Zero(t, emb.calls, "validation must reject before any embedding call")
	assert.Empty(t, idx.docs)
}

func TestCreate_EmbeddingFailureAbortsWrite(t *testing.T) {
	idx := newFakeIndex()
	emb := embedtest.New(testDim)
	emb.Err = errors.New("quota exhausted")
	svc := New(idx, emb, IdeaSchema("Idea"), testDim, zerolog.Nop())

	_, err := svc.Create(context.Background(), model.RecordInput{OwnerID: "o", Title: "t"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEmbeddingFailed))
	assert.Empty(t, idx.docs, "no partial record may be persisted")
}

func TestCreate_DimensionMismatchIsEmbeddingFailure(t *testing.T) {
	idx := newFakeIndex()
	svc := New(idx, embedtest.New(testDim+1), IdeaSchema("Idea"), testDim, zerolog.Nop())

	_, err := svc.Create(context.Background(), model.RecordInput{OwnerID: "o", Title: "t"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEmbeddingFailed))
	assert.Contains(t, err.Error(), "dimension")
}

func TestUpdate_MetadataOnlyKeepsVector(t *testing.T) {
	svc, idx, emb := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, model.RecordInput{OwnerID: "o", Title: "stable title", Content: "stable body"})
	require.NoError(t, err)
	before := append([]float32(nil), idx.vectors[rec.ID]...)
	callsBefore := emb.calls

	status := "archived"
	updated, err := svc.Update(ctx, rec.ID, model.RecordUpdate{Status: &status, Tags: []string{"x"}, TagsSet: true})
	require.NoError(t, err)
	assert.Equal(t, "archived", updated.Status)
	assert.Equal(t, []string{"x"}, updated.Tags)
	assert.True(t, updated.UpdateTime.After(updated.CreationTime) || updated.UpdateTime.Equal(updated.CreationTime))

	assert.Equal(t, before, idx.vectors[rec.ID], "metadata-only update must leave the vector bit-identical")
	assert.Equal(t, callsBefore, emb.calls, "metadata-only update must not call the embedder")
}

func TestUpdate_PrimaryTextChangeReembeds(t *testing.T) {
	svc, idx, emb := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, model.RecordInput{OwnerID: "o", Title: "old title", Content: "body"})
	require.NoError(t, err)
	before := append([]float32(nil), idx.vectors[rec.ID]...)
	callsBefore := emb.calls

	title := "completely new title"
	updated, err := svc.Update(ctx, rec.ID, model.RecordUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.NotEqual(t, before, idx.vectors[rec.ID], "primary-text update must change the stored vector")
	assert.Equal(t, callsBefore+1, emb.calls)
}

func TestUpdate_ValidationBeforeStoreRead(t *testing.T) {
	svc, idx, emb := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, model.RecordInput{OwnerID: "o", Title: "t"})
	require.NoError(t, err)
	callsBefore := emb.calls

	// With the store down, a malformed update must still be rejected as a
	// validation error, not reported as an outage.
	idx.err = fmt.Errorf("%w: connection refused", model.ErrStoreUnavailable)

	category := "nonsense-category"
	cases := []model.RecordUpdate{
		{Category: &category},
		{Reminders: []model.ReminderInput{{Type: "fortnightly", ScheduledFor: time.Now()}}, RemindersSet: true},
		{Reminders: []model.ReminderInput{{Type: model.ReminderSingle}}, RemindersSet: true},
	}
	for _, upd := range cases {
		_, err := svc.Update(ctx, rec.ID, upd)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrValidation), "want validation error, got %v", err)
		assert.False(t, errors.Is(err, model.ErrStoreUnavailable))
	}
	assert.Equal(t, callsBefore, emb.calls, "rejected updates must not reach the embedder")
}

func TestUpdate_AbsentIsNilNotError(t *testing.T) {
	svc, _, _ := newTestService(t)
	title := "x"
	rec, err := svc.Update(context.Background(), "00000000-0000-0000-0000-000000000000", model.RecordUpdate{Title: &title})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDelete_Semantics(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, model.RecordInput{OwnerID: "o", Title: "t"})
	require.NoError(t, err)

	removed, err := svc.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	removed, err = svc.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, removed, "delete of an unknown id reports false")
}

func TestDelete_CascadesToReminders(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	rec, err := svc.Create(ctx, model.RecordInput{
		OwnerID:   "o",
		Title:     "with reminder",
		Reminders: []model.ReminderInput{{Type: model.ReminderSingle, ScheduledFor: past}},
	})
	require.NoError(t, err)

	due, err := svc.DueReminders(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)

	_, err = svc.Delete(ctx, rec.ID)
	require.NoError(t, err)

	due, err = svc.DueReminders(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due, "deleting a record must remove its reminders from the due scan")
}

func TestSearch_ThresholdAndOrdering(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	target, err := svc.Create(ctx, model.RecordInput{OwnerID: "o", Title: "Expand into enterprise", Tags: []string{"enterprise"}})
	require.NoError(t, err)
	for _, title := range []string{"grocery list", "vacation ideas", "fix the bike"} {
		_, err := svc.Create(ctx, model.RecordInput{OwnerID: "o", Title: title})
		require.NoError(t, err)
	}

	// Querying with the record's own primary text embeds identically, so the
	// target comes back as the top hit with score ~1.
	res, err := svc.Search(ctx, "Expand into enterprise", model.SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, target.ID, res[0].Record.ID)
	assert.Greater(t, res[0].Score, 0.99)
	assert.InDelta(t, 1-res[0].Score, res[0].Distance, 1e-9)

	// No hit ever falls below the threshold.
	for _, r := range res {
		assert.GreaterOrEqual(t, r.Score, DefaultSearchThreshold)
	}

	// Raising the threshold can only shrink the result set.
	high := 0.9
	strict, err := svc.Search(ctx, "Expand into enterprise", model.SearchOptions{Limit: 10, Threshold: &high})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(strict), len(res))
	ids := map[string]bool{}
	for _, r := range res {
		ids[r.Record.ID] = true
	}
	for _, r := range strict {
		assert.True(t, ids[r.Record.ID], "strict results must be a subset")
		assert.GreaterOrEqual(t, r.Score, high)
	}
}

func TestSearch_FilterConstrains(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mine, err := svc.Create(ctx, model.RecordInput{OwnerID: "me", Title: "shared topic"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, model.RecordInput{OwnerID: "you", Title: "shared topic"})
	require.NoError(t, err)

	res, err := svc.Search(ctx, "shared topic", model.SearchOptions{
		Limit:  10,
		Filter: model.Filter{OwnerID: "me"},
	})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, mine.ID, res[0].Record.ID)
}

func TestSearch_EmptyQueryRoundTripsThroughEmbedder(t *testing.T) {
	idx := newFakeIndex()
	emb := embedtest.New(testDim)
	emb.FailOnEmpty = true
	svc := New(idx, emb, IdeaSchema("Idea"), testDim, zerolog.Nop())

	_, err := svc.Search(context.Background(), "", model.SearchOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEmbeddingFailed),
		"a provider rejecting empty input surfaces as an embedding failure, not an empty result")
}

func TestList_OrderAndLimit(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		i := i
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		_, err := svc.Create(ctx, model.RecordInput{OwnerID: "o", Title: "note"})
		require.NoError(t, err)
	}

	recs, err := svc.List(ctx, model.Filter{}, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i := 1; i < len(recs); i++ {
		assert.True(t, !recs[i].CreationTime.After(recs[i-1].CreationTime),
			"list must be ordered by creation time descending")
	}

	all, err := svc.List(ctx, model.Filter{}, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5, "non-positive limit falls back to the default")
}

func TestReminders_DueScanAndMarkSent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	rec, err := svc.Create(ctx, model.RecordInput{
		OwnerID: "o",
		Title:   "call the bank",
		Reminders: []model.ReminderInput{
			{Type: model.ReminderSingle, ScheduledFor: now.Add(-time.Hour), Message: "overdue"},
			{Type: model.ReminderDaily, ScheduledFor: now.Add(time.Hour), Message: "not yet"},
		},
	})
	require.NoError(t, err)
	require.Len(t, rec.Reminders, 2)
	for _, r := range rec.Reminders {
		assert.True(t, r.IsActive)
		assert.False(t, r.IsSent)
		assert.Equal(t, rec.ID, r.RecordID)
	}

	due, err := svc.DueReminders(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "overdue", due[0].Message)

	ok, err := svc.MarkReminderSent(ctx, due[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	due, err = svc.DueReminders(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due, "a sent reminder leaves the due scan")

	// Idempotent re-invocation is a no-op success.
	ok, err = svc.MarkReminderSent(ctx, rec.Reminders[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.MarkReminderSent(ctx, "no-such-reminder")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdate_ReminderReplacementGetsFreshState(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	rec, err := svc.Create(ctx, model.RecordInput{
		OwnerID:   "o",
		Title:     "t",
		Reminders: []model.ReminderInput{{Type: model.ReminderSingle, ScheduledFor: now.Add(-time.Minute)}},
	})
	require.NoError(t, err)
	oldID := rec.Reminders[0].ID

	ok, err := svc.MarkReminderSent(ctx, oldID)
	require.NoError(t, err)
	require.True(t, ok)

	updated, err := svc.Update(ctx, rec.ID, model.RecordUpdate{
		Reminders:    []model.ReminderInput{{Type: model.ReminderWeekly, ScheduledFor: now.Add(time.Hour)}},
		RemindersSet: true,
	})
	require.NoError(t, err)
	require.Len(t, updated.Reminders, 1)
	assert.NotEqual(t, oldID, updated.Reminders[0].ID, "replacement reminders get fresh ids")
	assert.True(t, updated.Reminders[0].IsActive)
	assert.False(t, updated.Reminders[0].IsSent)
}

func TestCreateBatch_OrderAndAtomicEmbedding(t *testing.T) {
	svc, idx, _ := newTestService(t)
	ctx := context.Background()

	recs, err := svc.CreateBatch(ctx, []model.RecordInput{
		{OwnerID: "o", Title: "first"},
		{OwnerID: "o", Title: "second"},
		{OwnerID: "o", Title: "third"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "first", recs[0].Title)
	assert.Equal(t, "second", recs[1].Title)
	assert.Equal(t, "third", recs[2].Title)
	assert.Len(t, idx.docs, 3)

	// Validation failure anywhere aborts the batch before embedding.
	_, err = svc.CreateBatch(ctx, []model.RecordInput{
		{OwnerID: "o", Title: "fine"},
		{Title: "missing owner"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrValidation))
	assert.Len(t, idx.docs, 3, "failed batch must persist nothing")
}

func TestStoreFailurePropagates(t *testing.T) {
	svc, idx, _ := newTestService(t)
	ctx := context.Background()
	idx.err = model.ErrStoreUnavailable

	_, err := svc.Create(ctx, model.RecordInput{OwnerID: "o", Title: "t"})
	assert.True(t, errors.Is(err, model.ErrStoreUnavailable))

	_, err = svc.Get(ctx, "any")
	assert.True(t, errors.Is(err, model.ErrStoreUnavailable))

	_, err = svc.List(ctx, model.Filter{}, 10)
	assert.True(t, errors.Is(err, model.ErrStoreUnavailable))

	_, err = svc.DueReminders(ctx, time.Now())
	assert.True(t, errors.Is(err, model.ErrStoreUnavailable))
}
