package searchindex

import (
	filters "github.com/weaviate/weaviate-go-client/v5/weaviate/filters"

	"github.com/recallhq/recall/internal/model"
)

// clause is the neutral form of one filter predicate, kept separate from the
// Weaviate builder so predicate construction is testable without a client.
type clause struct {
	field  string
	op     string // "eq-text", "range-int", "contains-any"
	text   string
	num    int64
	values []string
}

// clausesFor flattens a Filter into its conjunction of predicates. Absent
// fields produce no clause; an empty filter yields none (match-all).
func clausesFor(f model.Filter) []clause {
	var cs []clause
	if f.OwnerID != "" {
		cs = append(cs, clause{field: "ownerId", op: "eq-text", text: f.OwnerID})
	}
	if f.ConversationID != nil {
		// Numeric equality expressed as the single-point range [v, v].
		cs = append(cs, clause{field: "conversationId", op: "range-int", num: *f.ConversationID})
	}
	if f.Category != "" {
		cs = append(cs, clause{field: "category", op: "eq-text", text: f.Category})
	}
	if f.Priority != "" {
		cs = append(cs, clause{field: "priority", op: "eq-text", text: f.Priority})
	}
	if f.Status != "" {
		cs = append(cs, clause{field: "status", op: "eq-text", text: f.Status})
	}
	if len(f.Tags) > 0 {
		cs = append(cs, clause{field: "tags", op: "contains-any", values: f.Tags})
	}
	return cs
}

// buildWhere converts a Filter into a Weaviate where tree, or nil when the
// filter is empty.
func buildWhere(f model.Filter) *filters.WhereBuilder {
	cs := clausesFor(f)
	if len(cs) == 0 {
		return nil
	}
	parts := make([]*filters.WhereBuilder, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, whereFor(c))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return filters.Where().WithOperator(filters.And).WithOperands(parts)
}

func whereFor(c clause) *filters.WhereBuilder {
	switch c.op {
	case "eq-text":
		return filters.Where().
			WithPath([]string{c.field}).
			WithOperator(filters.Equal).
			WithValueText(c.text)
	case "range-int":
		lo := filters.Where().
			WithPath([]string{c.field}).
			WithOperator(filters.GreaterThanEqual).
			WithValueInt(c.num)
		hi := filters.Where().
			WithPath([]string{c.field}).
			WithOperator(filters.LessThanEqual).
			WithValueInt(c.num)
		return filters.Where().WithOperator(filters.And).WithOperands([]*filters.WhereBuilder{lo, hi})
	case "contains-any":
		return filters.Where().
			WithPath([]string{c.field}).
			WithOperator(filters.ContainsAny).
			WithValueText(c.values...)
	default:
		panic("searchindex: unknown clause op " + c.op)
	}
}
