package recognition

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/mrlokans/readnext/internal/llm"
)

// Confidence is how sure the model is about a recognition.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Recognition is the model's best guess at the pictured book.
type Recognition struct {
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	Confidence Confidence `json:"confidence"`
}

// Recognizer identifies the book shown in a photo.
type Recognizer interface {
	Recognize(ctx context.Context, img Image) (*Recognition, error)
}

const (
	visionMaxTokens = 300
	visionUserText  = "What book is shown in this image? Extract the title and author."

	visionSystemPrompt = `You are a book identification expert. Analyze the image and extract the book title and author.

Rules:
- Look for the book title and author name on the cover, spine, or any visible text
- If multiple books are visible, identify the most prominent one
- If you can't clearly identify the book, make your best educated guess based on visible elements
- Set confidence to "high" if title and author are clearly visible
- Set confidence to "medium" if you can make out most of the text but some is unclear
- Set confidence to "low" if you're guessing based on partial information

Respond with JSON in this exact format:
{
  "title": "Book Title",
  "author": "Author Name",
  "confidence": "high" | "medium" | "low"
}`
)

// recognitionSchema checks the model's JSON object before it is decoded.
var recognitionSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"title":      {Type: jsonschema.String},
		"author":     {Type: jsonschema.String},
		"confidence": {Type: jsonschema.String, Enum: []string{"high", "medium", "low"}},
	},
	Required: []string{"title", "author", "confidence"},
}

// VisionClient recognizes books with a vision-capable chat model.
type VisionClient struct {
	completer llm.Completer
	model     string
}

func NewVisionClient(completer llm.Completer, model string) *VisionClient {
	if model == "" {
		model = "gpt-4o"
	}
	return &VisionClient{completer: completer, model: model}
}

func (c *VisionClient) Recognize(ctx context.Context, img Image) (*Recognition, error) {
	content, err := c.completer.Complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: visionSystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: visionUserText},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    img.DataURL(),
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
		MaxTokens:      visionMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, err
	}

	var rec Recognition
	if err := jsonschema.VerifySchemaAndUnmarshal(recognitionSchema, []byte(content), &rec); err != nil {
		return nil, fmt.Errorf("parse recognition: %w", err)
	}
	rec.Title = strings.TrimSpace(rec.Title)
	rec.Author = strings.TrimSpace(rec.Author)
	return &rec, nil
}
