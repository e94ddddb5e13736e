package recognition

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readnext/internal/llm"
)

type capturingCompleter struct {
	content string
	err     error
	req     openai.ChatCompletionRequest
}

func (c *capturingCompleter) Complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	c.req = req
	return c.content, c.err
}

func TestVisionClient_Recognize(t *testing.T) {
	completer := &capturingCompleter{content: `{"title":" Dune ","author":"Frank Herbert","confidence":"high"}`}
	client := NewVisionClient(completer, "")

	rec, err := client.Recognize(context.Background(), Image{Data: []byte{1, 2, 3}, MediaType: "image/webp"})
	require.NoError(t, err)
	assert.Equal(t, &Recognition{Title: "Dune", Author: "Frank Herbert", Confidence: ConfidenceHigh}, rec)

	req := completer.req
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, 300, req.MaxTokens)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, visionSystemPrompt, req.Messages[0].Content)

	parts := req.Messages[1].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, visionUserText, parts[0].Text)
	assert.Equal(t, "data:image/webp;base64,AQID", parts[1].ImageURL.URL)
}

func TestVisionClient_RejectsBadResponses(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown confidence", `{"title":"Dune","author":"Frank Herbert","confidence":"certain"}`},
		{"missing author", `{"title":"Dune","confidence":"low"}`},
		{"not json", `Dune by Frank Herbert`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewVisionClient(&capturingCompleter{content: tt.content}, "gpt-4o")
			_, err := client.Recognize(context.Background(), Image{Data: []byte{1}, MediaType: "image/jpeg"})
			assert.Error(t, err)
		})
	}
}

func TestVisionClient_PropagatesCompleterErrors(t *testing.T) {
	client := NewVisionClient(&capturingCompleter{err: llm.ErrEmptyResponse}, "gpt-4o")

	_, err := client.Recognize(context.Background(), Image{Data: []byte{1}, MediaType: "image/jpeg"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}
