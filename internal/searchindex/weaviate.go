package searchindex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	wmodels "github.com/weaviate/weaviate/entities/models"

	"github.com/recallhq/recall/internal/model"
)

// scanBatchSize bounds one page of the full-scan walk.
const scanBatchSize = 200

// weavIndex implements Index for one Weaviate class.
type weavIndex struct {
	client  *weaviate.Client
	baseURL string // host:port without scheme
	class   string
	policy  Policy
	log     zerolog.Logger
}

// NewWeaviateIndex constructs an Index backed by Weaviate at baseURL
// (host:port, no scheme) storing documents in the given class.
func NewWeaviateIndex(baseURL, class string, policy Policy, log zerolog.Logger) (Index, error) {
	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	cl, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	return &weavIndex{client: cl, baseURL: baseURL, class: class, policy: policy, log: log}, nil
}

func (w *weavIndex) PutRecord(ctx context.Context, rec *model.Record, vec []float32) error {
	props, err := recordProperties(rec)
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", model.ErrStoreUnavailable, err)
	}

	exists, err := w.client.Data().Checker().
		WithClassName(w.class).WithID(rec.ID).Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	if exists {
		err = w.client.Data().Updater().
			WithClassName(w.class).WithID(rec.ID).
			WithProperties(props).WithVector(vec).Do(ctx)
	} else {
		_, err = w.client.Data().Creator().
			WithClassName(w.class).WithID(rec.ID).
			WithProperties(props).WithVector(vec).Do(ctx)
	}
	if err != nil {
		return fmt.Errorf("%w: put %s/%s: %v", model.ErrStoreUnavailable, w.class, rec.ID, err)
	}
	return nil
}

func (w *weavIndex) GetRecord(ctx context.Context, id string) (*model.Record, []float32, error) {
	exists, err := w.client.Data().Checker().
		WithClassName(w.class).WithID(id).Do(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	if !exists {
		return nil, nil, nil
	}

	objs, err := w.client.Data().ObjectsGetter().
		WithClassName(w.class).WithID(id).WithVector().Do(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: get %s/%s: %v", model.ErrStoreUnavailable, w.class, id, err)
	}
	if len(objs) == 0 {
		return nil, nil, nil
	}

	props, ok := objs[0].Properties.(map[string]interface{})
	if !ok {
		return nil, nil, fmt.Errorf("%w: unexpected property shape for %s/%s", model.ErrStoreUnavailable, w.class, id)
	}
	rec, err := recordFromProperties(props)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: decode %s/%s: %v", model.ErrStoreUnavailable, w.class, id, err)
	}
	return rec, []float32(objs[0].Vector), nil
}

func (w *weavIndex) DeleteRecord(ctx context.Context, id string) (bool, error) {
	exists, err := w.client.Data().Checker().
		WithClassName(w.class).WithID(id).Do(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	if !exists {
		return false, nil
	}
	if err := w.client.Data().Deleter().
		WithClassName(w.class).WithID(id).Do(ctx); err != nil {
		return false, fmt.Errorf("%w: delete %s/%s: %v", model.ErrStoreUnavailable, w.class, id, err)
	}
	return true, nil
}

func (w *weavIndex) SearchNearest(ctx context.Context, vec []float32, f model.Filter, limit int) ([]Hit, error) {
	near := (&gql.NearVectorArgumentBuilder{}).WithVector(vec)

	req := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithNearVector(near).
		WithLimit(limit).
		WithFields(append(recordFields(),
			gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "distance"}}})...)
	if where := buildWhere(f); where != nil {
		req = req.WithWhere(where)
	}

	resp, err := req.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: graphql: %s", model.ErrStoreUnavailable, formatGraphQLErrors(resp.Errors))
	}

	raw := classPayload(resp.Data, w.class)
	out := make([]Hit, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		rec, err := recordFromProperties(m)
		if err != nil {
			w.log.Warn().Err(err).Str("class", w.class).Msg("skipping undecodable search hit")
			continue
		}
		// A hit without a distance cannot be ranked; defaulting it would
		// fabricate a perfect score, so it is dropped like a decode failure.
		dist, ok := additionalDistance(m)
		if !ok {
			w.log.Warn().Str("class", w.class).Str("recordId", rec.ID).Msg("skipping search hit without distance")
			continue
		}
		out = append(out, Hit{Record: rec, Score: 1 - dist, Distance: dist})
	}
	return out, nil
}

func (w *weavIndex) ListRecords(ctx context.Context, f model.Filter, limit int) ([]*model.Record, error) {
	req := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithSort(gql.Sort{Path: []string{"creationTime"}, Order: gql.Desc}).
		WithLimit(limit).
		WithFields(recordFields()...)
	if where := buildWhere(f); where != nil {
		req = req.WithWhere(where)
	}

	resp, err := req.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: graphql: %s", model.ErrStoreUnavailable, formatGraphQLErrors(resp.Errors))
	}

	raw := classPayload(resp.Data, w.class)
	out := make([]*model.Record, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		rec, err := recordFromProperties(m)
		if err != nil {
			w.log.Warn().Err(err).Str("class", w.class).Msg("skipping undecodable record")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// scanSort orders the paginated walk. Creation time alone is not unique
// (batch writes share one timestamp), so recordId breaks ties and keeps
// page boundaries stable.
func scanSort() []gql.Sort {
	return []gql.Sort{
		{Path: []string{"creationTime"}, Order: gql.Asc},
		{Path: []string{"recordId"}, Order: gql.Asc},
	}
}

// ScanRecords pages through the class with offset batches. There is no
// snapshot isolation; concurrent writes may be seen or missed.
func (w *weavIndex) ScanRecords(ctx context.Context, fn func(*model.Record) bool) error {
	for offset := 0; ; offset += scanBatchSize {
		req := w.client.GraphQL().Get().
			WithClassName(w.class).
			WithSort(scanSort()...).
			WithLimit(scanBatchSize).
			WithOffset(offset).
			WithFields(recordFields()...)

		resp, err := req.Do(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
		}
		if len(resp.Errors) > 0 {
			return fmt.Errorf("%w: graphql: %s", model.ErrStoreUnavailable, formatGraphQLErrors(resp.Errors))
		}

		raw := classPayload(resp.Data, w.class)
		if len(raw) == 0 {
			return nil
		}
		for _, item := range raw {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			rec, err := recordFromProperties(m)
			if err != nil {
				w.log.Warn().Err(err).Str("class", w.class).Msg("skipping undecodable record in scan")
				continue
			}
			if !fn(rec) {
				return nil
			}
		}
		if len(raw) < scanBatchSize {
			return nil
		}
	}
}

// HealthPing calls GET /v1/meta and expects 200 OK.
func (w *weavIndex) HealthPing(ctx context.Context) error {
	url := w.baseURL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/v1/meta", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weaviate status %d", resp.StatusCode)
	}
	return nil
}

// recordFields lists the GraphQL fields fetched for a record document.
func recordFields() []gql.Field {
	return []gql.Field{
		{Name: "recordId"},
		{Name: "ownerId"},
		{Name: "conversationId"},
		{Name: "title"},
		{Name: "content"},
		{Name: "category"},
		{Name: "priority"},
		{Name: "status"},
		{Name: "tags"},
		{Name: "remindersJson"},
		{Name: "creationTime"},
		{Name: "updateTime"},
	}
}

// recordProperties flattens a record into the Weaviate property map. The
// vector is passed separately; reminders travel as a JSON payload inside the
// document so deleting the document cascades to them structurally.
func recordProperties(rec *model.Record) (map[string]interface{}, error) {
	reminders, err := json.Marshal(rec.Reminders)
	if err != nil {
		return nil, err
	}
	props := map[string]interface{}{
		"recordId":      rec.ID,
		"ownerId":       rec.OwnerID,
		"title":         rec.Title,
		"content":       rec.Content,
		"category":      rec.Category,
		"priority":      rec.Priority,
		"status":        rec.Status,
		"tags":          rec.Tags,
		"remindersJson": string(reminders),
		"creationTime":  rec.CreationTime.UTC().Format(time.RFC3339Nano),
		"updateTime":    rec.UpdateTime.UTC().Format(time.RFC3339Nano),
	}
	if rec.Tags == nil {
		props["tags"] = []string{}
	}
	if rec.ConversationID != nil {
		props["conversationId"] = *rec.ConversationID
	}
	return props, nil
}

// recordFromProperties rebuilds a record from a Weaviate property map,
// materializing timestamps as time.Time values.
func recordFromProperties(m map[string]interface{}) (*model.Record, error) {
	rec := &model.Record{
		ID:       asString(m["recordId"]),
		OwnerID:  asString(m["ownerId"]),
		Title:    asString(m["title"]),
		Content:  asString(m["content"]),
		Category: asString(m["category"]),
		Priority: asString(m["priority"]),
		Status:   asString(m["status"]),
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("document missing recordId")
	}

	if v, ok := m["conversationId"]; ok && v != nil {
		switch n := v.(type) {
		case float64:
			id := int64(n)
			rec.ConversationID = &id
		case int64:
			id := n
			rec.ConversationID = &id
		case json.Number:
			if id, err := n.Int64(); err == nil {
				rec.ConversationID = &id
			}
		}
	}

	if arr, ok := m["tags"].([]interface{}); ok {
		for _, t := range arr {
			if s, ok := t.(string); ok {
				rec.Tags = append(rec.Tags, s)
			}
		}
	}

	if s := asString(m["remindersJson"]); s != "" {
		if err := json.Unmarshal([]byte(s), &rec.Reminders); err != nil {
			return nil, fmt.Errorf("decode reminders: %w", err)
		}
	}

	var err error
	if rec.CreationTime, err = parseTime(m["creationTime"]); err != nil {
		return nil, fmt.Errorf("creationTime: %w", err)
	}
	if rec.UpdateTime, err = parseTime(m["updateTime"]); err != nil {
		return nil, fmt.Errorf("updateTime: %w", err)
	}
	return rec, nil
}

// classPayload extracts the per-class result array from a GraphQL Get
// response, tolerating missing or oddly shaped payloads.
func classPayload(data map[string]wmodels.JSONObject, class string) []interface{} {
	getData, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	arr, _ := getData[class].([]interface{})
	return arr
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func parseTime(v interface{}) (time.Time, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	return time.Parse(time.RFC3339Nano, s)
}

// additionalDistance extracts _additional.distance. The second return is
// false when the payload carries no usable distance.
func additionalDistance(m map[string]interface{}) (float64, bool) {
	add, ok := m["_additional"].(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch v := add["distance"].(type) {
	case float64:
		return v, true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// formatGraphQLErrors returns a compact string for logging.
func formatGraphQLErrors(errs interface{}) string {
	if b, err := json.Marshal(errs); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", errs)
}
