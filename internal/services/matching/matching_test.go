package matching

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldCreateMatch(t *testing.T) {
	// Adjudication scores are 0..100, the configured minimum is 0..1.
	assert.False(t, ShouldCreateMatch(59, 0.6))
	assert.True(t, ShouldCreateMatch(60, 0.6))
	assert.True(t, ShouldCreateMatch(61, 0.6))
	assert.True(t, ShouldCreateMatch(100, 0.6))
	assert.False(t, ShouldCreateMatch(0, 0.6))
	assert.True(t, ShouldCreateMatch(0, 0))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Scale invariance.
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{10, 20}), 1e-9)

	// Degenerate inputs score zero rather than erroring.
	assert.Zero(t, CosineSimilarity(nil, []float32{1}))
	assert.Zero(t, CosineSimilarity([]float32{1, 2}, []float32{1}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestParseMatchAnalysis(t *testing.T) {
	valid := `{
		"overall_score": 87.5,
		"confidence": "HIGH",
		"recommendation": "SAME_PERSON",
		"field_analysis": {
			"document_number": {"found_value": "A123", "lost_value": "A123", "match": true}
		},
		"matching_fields": ["document_number", "owner_name"],
		"conflicting_fields": [],
		"red_flags": []
	}`

	analysis, err := parseMatchAnalysis(valid)
	require.NoError(t, err)
	assert.Equal(t, 87.5, analysis.OverallScore)
	assert.Equal(t, ConfidenceHigh, analysis.Confidence)
	assert.Equal(t, RecommendationSamePerson, analysis.Recommendation)
	assert.True(t, analysis.FieldAnalysis["document_number"].Match)
	assert.Len(t, analysis.MatchingFields, 2)
}

func TestParseMatchAnalysisRejectsBadResponses(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not json", "the documents probably match"},
		{"score above range", `{"overall_score": 101, "confidence": "HIGH", "recommendation": "SAME_PERSON"}`},
		{"score below range", `{"overall_score": -1, "confidence": "HIGH", "recommendation": "SAME_PERSON"}`},
		{"unknown confidence", `{"overall_score": 80, "confidence": "VERY_HIGH", "recommendation": "SAME_PERSON"}`},
		{"missing confidence", `{"overall_score": 80, "recommendation": "SAME_PERSON"}`},
		{"unknown recommendation", `{"overall_score": 80, "confidence": "HIGH", "recommendation": "MAYBE"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseMatchAnalysis(tc.text)
			assert.Error(t, err)
		})
	}
}

func TestParseMatchAnalysisRoundTripsFieldVerdicts(t *testing.T) {
	verdict := FieldVerdict{FoundValue: "KOFI MENSAH", LostValue: "Kofi Mensah", Match: true, Note: "case difference only"}
	raw, err := json.Marshal(map[string]interface{}{
		"overall_score":  72.0,
		"confidence":     ConfidenceMedium,
		"recommendation": RecommendationLikelySame,
		"field_analysis": map[string]FieldVerdict{"owner_name": verdict},
	})
	require.NoError(t, err)

	analysis, err := parseMatchAnalysis(string(raw))
	require.NoError(t, err)
	assert.Equal(t, verdict, analysis.FieldAnalysis["owner_name"])
}
