package recommendations

import (
	"github.com/sashabaranov/go-openai/jsonschema"
)

const schemaName = "book_recommendations"

// modelBook is one item of the structured model output.
type modelBook struct {
	Title           string   `json:"title" validate:"required"`
	Author          string   `json:"author" validate:"required"`
	Description     string   `json:"description"`
	Genres          []string `json:"genres"`
	Tropes          []string `json:"tropes"`
	MatchPercentage float64  `json:"matchPercentage" validate:"min=0,max=100"`
	MatchReason     string   `json:"matchReason"`
	IsTrending      bool     `json:"isTrending"`
	PublicationYear float64  `json:"publicationYear"`
}

// modelResponse is the structured model output.
type modelResponse struct {
	Recommendations []modelBook `json:"recommendations" validate:"dive"`
	TrendingBooks   []modelBook `json:"trendingBooks" validate:"dive"`
}

// responseSchema describes modelResponse for strict structured outputs.
// Strict mode requires every property to be listed as required and
// additional properties to be disallowed at every level.
func responseSchema() *jsonschema.Definition {
	item := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"title":       {Type: jsonschema.String, Description: "The book title"},
			"author":      {Type: jsonschema.String, Description: "The author's full name"},
			"description": {Type: jsonschema.String, Description: "A compelling 1-2 sentence description of the book"},
			"genres": {
				Type:        jsonschema.Array,
				Description: "List of genres (e.g., Mystery, Romance, Sci-Fi)",
				Items:       &jsonschema.Definition{Type: jsonschema.String},
			},
			"tropes": {
				Type:        jsonschema.Array,
				Description: "List of tropes (e.g., Enemies to Lovers, Found Family)",
				Items:       &jsonschema.Definition{Type: jsonschema.String},
			},
			"matchPercentage": {Type: jsonschema.Number, Description: "How well this book matches the user's preferences (0-100)"},
			"matchReason":     {Type: jsonschema.String, Description: "Brief explanation of why this book matches the user's taste"},
			"isTrending":      {Type: jsonschema.Boolean, Description: "Whether this book is currently trending/popular"},
			"publicationYear": {Type: jsonschema.Number, Description: "Year the book was published"},
		},
		Required: []string{
			"title", "author", "description", "genres", "tropes",
			"matchPercentage", "matchReason", "isTrending", "publicationYear",
		},
		AdditionalProperties: false,
	}

	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"recommendations": {
				Type:        jsonschema.Array,
				Description: "List of personalized book recommendations",
				Items:       &item,
			},
			"trendingBooks": {
				Type:        jsonschema.Array,
				Description: "List of currently trending books that match user preferences",
				Items:       &item,
			},
		},
		Required:             []string{"recommendations", "trendingBooks"},
		AdditionalProperties: false,
	}
}
