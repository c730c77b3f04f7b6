package searchindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

func TestAdditionalDistance_PresentValues(t *testing.T) {
	d, ok := additionalDistance(map[string]interface{}{
		"_additional": map[string]interface{}{"distance": 0.25},
	})
	require.True(t, ok)
	assert.Equal(t, 0.25, d)

	d, ok = additionalDistance(map[string]interface{}{
		"_additional": map[string]interface{}{"distance": "0.5"},
	})
	require.True(t, ok)
	assert.Equal(t, 0.5, d)
}

func TestAdditionalDistance_MissingIsNotPerfectScore(t *testing.T) {
	// A payload without a usable distance must report absence; treating it
	// as distance 0 would rank the hit as maximally similar.
	cases := []map[string]interface{}{
		{},
		{"_additional": "garbage"},
		{"_additional": map[string]interface{}{}},
		{"_additional": map[string]interface{}{"distance": "not-a-number"}},
		{"_additional": map[string]interface{}{"distance": nil}},
	}
	for _, m := range cases {
		_, ok := additionalDistance(m)
		assert.False(t, ok, "payload %v must not yield a distance", m)
	}
}

func TestScanSort_TieBreaksOnRecordID(t *testing.T) {
	sorts := scanSort()
	require.Len(t, sorts, 2)
	assert.Equal(t, []string{"creationTime"}, sorts[0].Path)
	assert.Equal(t, []string{"recordId"}, sorts[1].Path)
	for _, s := range sorts {
		assert.Equal(t, gql.Asc, s.Order)
	}
}
