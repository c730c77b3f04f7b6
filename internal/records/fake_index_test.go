package records

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"

	"github.com/recallhq/recall/internal/model"
	"github.com/recallhq/recall/internal/searchindex"
)

// fakeIndex is an in-memory searchindex.Index with cosine ranking, used to
// exercise the service without a running document store.
type fakeIndex struct {
	mu      sync.Mutex
	docs    map[string]*model.Record
	vectors map[string][]float32
	// err, when set, is returned from every call to simulate an outage.
	err error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		docs:    make(map[string]*model.Record),
		vectors: make(map[string][]float32),
	}
}

func cloneRecord(rec *model.Record) *model.Record {
	b, _ := json.Marshal(rec)
	var out model.Record
	_ = json.Unmarshal(b, &out)
	return &out
}

func (f *fakeIndex) EnsureSchema(context.Context) error { return f.err }

func (f *fakeIndex) PutRecord(_ context.Context, rec *model.Record, vec []float32) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[rec.ID] = cloneRecord(rec)
	f.vectors[rec.ID] = append([]float32(nil), vec...)
	return nil
}

func (f *fakeIndex) GetRecord(_ context.Context, id string) (*model.Record, []float32, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.docs[id]
	if !ok {
		return nil, nil, nil
	}
	return cloneRecord(rec), append([]float32(nil), f.vectors[id]...), nil
}

func (f *fakeIndex) DeleteRecord(_ context.Context, id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return false, nil
	}
	delete(f.docs, id)
	delete(f.vectors, id)
	return true, nil
}

func matches(rec *model.Record, flt model.Filter) bool {
	if flt.OwnerID != "" && rec.OwnerID != flt.OwnerID {
		return false
	}
	if flt.ConversationID != nil {
		if rec.ConversationID == nil || *rec.ConversationID != *flt.ConversationID {
			return false
		}
	}
	if flt.Category != "" && rec.Category != flt.Category {
		return false
	}
	if flt.Priority != "" && rec.Priority != flt.Priority {
		return false
	}
	if flt.Status != "" && rec.Status != flt.Status {
		return false
	}
	if len(flt.Tags) > 0 {
		any := false
		for _, want := range flt.Tags {
			for _, got := range rec.Tags {
				if want == got {
					any = true
				}
			}
		}
		if !any {
			return false
		}
	}
	return true
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func (f *fakeIndex) SearchNearest(_ context.Context, vec []float32, flt model.Filter, limit int) ([]searchindex.Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var hits []searchindex.Hit
	for id, rec := range f.docs {
		if !matches(rec, flt) {
			continue
		}
		d := cosineDistance(vec, f.vectors[id])
		hits = append(hits, searchindex.Hit{Record: cloneRecord(rec), Score: 1 - d, Distance: d})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeIndex) ListRecords(_ context.Context, flt model.Filter, limit int) ([]*model.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Record
	for _, rec := range f.docs {
		if matches(rec, flt) {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreationTime.After(out[j].CreationTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeIndex) ScanRecords(_ context.Context, fn func(*model.Record) bool) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	recs := make([]*model.Record, 0, len(f.docs))
	for _, rec := range f.docs {
		recs = append(recs, cloneRecord(rec))
	}
	f.mu.Unlock()
	for _, rec := range recs {
		if !fn(rec) {
			return nil
		}
	}
	return nil
}

var _ searchindex.Index = (*fakeIndex)(nil)
