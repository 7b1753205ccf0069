package parsers_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliechat-core/server/internal/agent/graph/parsers"
	"github.com/charliechat-core/server/internal/agent/model"
)

const slotsPayload = `{
  "messages": [],
  "sessionState": {"intent": {"name": "AskAbout"}, "dialogAction": {"type": "Close"}},
  "interpretations": [
    {"intent": {"name": "AskAbout", "slots": {
      "person": {"value": {"originalValue": "Chaz", "interpretedValue": "Charles"}},
      "question": {"value": {"originalValue": "what does he do"}}
    }}, "nluConfidence": {"score": 0.92}},
    {"intent": {"name": "FallbackIntent", "slots": {}}}
  ]
}`

func TestParseRecognition_Slots(t *testing.T) {
	rec, err := parsers.ParseRecognition([]byte(slotsPayload))
	require.NoError(t, err)

	assert.Equal(t, model.RecognitionOK, rec.Status)
	assert.Equal(t, model.SlotOf("Chaz"), rec.Slots.Person)
	assert.Equal(t, model.SlotOf("what does he do"), rec.Slots.Question)
	assert.Equal(t, "AskAbout", rec.TopIntent())
	assert.InDelta(t, 0.92, rec.Interpretations[0].Confidence, 1e-9)
	assert.JSONEq(t, `{"intent":{"name":"AskAbout"},"dialogAction":{"type":"Close"}}`, string(rec.DialogState))
	assert.Empty(t, rec.DirectMessages)
}

func TestParseRecognition_MissingSlotsAreAbsent(t *testing.T) {
	rec, err := parsers.ParseRecognition([]byte(`{"interpretations":[{"intent":{"name":"AskAbout","slots":{"person":null}}}]}`))
	require.NoError(t, err)

	assert.False(t, rec.Slots.Person.Found)
	assert.False(t, rec.Slots.Question.Found)
	assert.Nil(t, rec.DialogState)
}

func TestParseRecognition_DirectMessages(t *testing.T) {
	payload := `{"messages":[
	  {"contentType":"PlainText","content":"Hello there."},
	  {"contentType":"ImageResponseCard","content":"ignored"},
	  {"contentType":"PlainText","content":"  How can I help?  "}
	]}`
	rec, err := parsers.ParseRecognition([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello there.", "How can I help?"}, rec.DirectMessages)
	text, ok := parsers.UsableDirectResponse(rec)
	assert.True(t, ok)
	assert.Equal(t, "Hello there. How can I help?", text)
}

func TestParseRecognition_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", "   "},
		{"not json", "hello"},
		{"too large", `{"messages":"` + strings.Repeat("x", 200*1024) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsers.ParseRecognition([]byte(tt.payload))
			assert.Error(t, err)
		})
	}
}

func TestUsableDirectResponse(t *testing.T) {
	tests := []struct {
		name string
		rec  *model.Recognition
		want bool
	}{
		{"nil", nil, false},
		{"no messages", &model.Recognition{Status: model.RecognitionOK}, false},
		{"plain", &model.Recognition{Status: model.RecognitionOK, DirectMessages: []string{"Hi!"}}, true},
		{"error status", &model.Recognition{Status: model.RecognitionError, DirectMessages: []string{"Hi!"}}, false},
		{"unavailable", &model.Recognition{Status: model.RecognitionUnavailable, DirectMessages: []string{"Hi!"}}, false},
		{"error phrase", &model.Recognition{Status: model.RecognitionOK, DirectMessages: []string{"Hmm, something went wrong."}}, false},
		{
			"fallback intent",
			&model.Recognition{
				Status:          model.RecognitionOK,
				DirectMessages:  []string{"Sorry, can you rephrase?"},
				Interpretations: []model.Interpretation{{Intent: model.FallbackIntent}},
			},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parsers.UsableDirectResponse(tt.rec)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestParseRecognition_ErrorStatus(t *testing.T) {
	rec, err := parsers.ParseRecognition([]byte(`{"status":"ERROR","messages":[{"contentType":"PlainText","content":"Welcome!"}]}`))
	require.NoError(t, err)
	assert.Equal(t, model.RecognitionError, rec.Status)
}
