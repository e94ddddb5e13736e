// Package recommendations asks a hosted language model for personalized and
// similar-book suggestions and arranges them into home feed shelves.
package recommendations

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/singleflight"

	"github.com/mrlokans/readnext/internal/entities"
	"github.com/mrlokans/readnext/internal/llm"
	"github.com/mrlokans/readnext/internal/logging"
	"github.com/mrlokans/readnext/internal/resilience"
	"github.com/mrlokans/readnext/internal/services"
	"github.com/mrlokans/readnext/internal/validation"
)

// recentReadLimit caps how many finished titles are sent as exclusions.
const recentReadLimit = 10

// homeBuildTimeout bounds a shared home-feed build.
const homeBuildTimeout = 2 * time.Minute

// RecommendedBook is a book suggested by the model. IDs are generated per
// response and carry no catalog identity.
type RecommendedBook struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	Description     string   `json:"description"`
	CoverImage      string   `json:"coverImage"`
	Genres          []string `json:"genres"`
	Tropes          []string `json:"tropes"`
	MatchPercentage int      `json:"matchPercentage"`
	MatchReason     string   `json:"matchReason"`
	IsTrending      bool     `json:"isTrending"`
	PublicationYear int      `json:"publicationYear,omitempty"`
}

// Result holds personalized and trending suggestions.
type Result struct {
	Recommendations []RecommendedBook `json:"recommendations"`
	TrendingBooks   []RecommendedBook `json:"trendingBooks"`
}

// Request asks for personalized recommendations. When Genres is empty the
// user's stored taste profile is used.
type Request struct {
	Genres        []entities.GenreWeight `json:"genres" validate:"max=12,dive"`
	Tropes        []string               `json:"tropes" validate:"max=12,dive,trope"`
	ExcludeTitles []string               `json:"excludeTitles" validate:"max=100"`
}

// SimilarRequest asks for books similar to one title.
type SimilarRequest struct {
	Title  string `json:"title" validate:"required,max=512"`
	Author string `json:"author" validate:"required,max=256"`
}

// ProfileSource resolves a user's taste profile, falling back to defaults.
type ProfileSource interface {
	GetTasteProfile(userID uint) (*services.TasteProfileView, error)
}

// ReadHistory lists titles the user has finished, newest first.
type ReadHistory interface {
	ReadTitles(userID uint, limit int) ([]string, error)
}

// Config configures the recommendation service.
type Config struct {
	Model       string
	Temperature float32

	// HomeTTL is how long a generated home feed is reused. Zero disables caching.
	HomeTTL time.Duration
}

// Service asks the model for recommendations.
type Service struct {
	completer   llm.Completer
	profiles    ProfileSource
	history     ReadHistory
	model       string
	temperature float32

	homeTTL time.Duration
	home    *ristretto.Cache[uint64, *HomeFeed]
	flights singleflight.Group
}

func NewService(completer llm.Completer, profiles ProfileSource, history ReadHistory, cfg Config) (*Service, error) {
	s := &Service{
		completer:   completer,
		profiles:    profiles,
		history:     history,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		homeTTL:     cfg.HomeTTL,
	}
	if s.model == "" {
		s.model = "gpt-4o-2024-08-06"
	}

	if cfg.HomeTTL > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[uint64, *HomeFeed]{
			NumCounters: 10_000,
			MaxCost:     1_000,
			BufferItems: 64,

			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, fmt.Errorf("create home feed cache: %w", err)
		}
		s.home = cache
	}
	return s, nil
}

// Close releases the home feed cache.
func (s *Service) Close() {
	if s.home != nil {
		s.home.Close()
	}
}

// GetRecommendations returns 8 personalized and 4 trending suggestions.
// Books the user has finished recently and any ExcludeTitles are listed in
// the prompt as exclusions.
func (s *Service) GetRecommendations(ctx context.Context, userID uint, req Request) (*Result, error) {
	if s.completer == nil {
		return nil, unavailable(llm.ErrNotConfigured)
	}
	if err := validation.Validate(req); err != nil {
		return nil, &services.Error{Kind: services.KindInvalid, Message: "Invalid request", Err: err}
	}

	profile, err := s.resolveProfile(userID, req)
	if err != nil {
		return nil, err
	}

	var recent []string
	if userID != 0 {
		recent, err = s.history.ReadTitles(userID, recentReadLimit)
		if err != nil {
			logging.Warn().Err(err).Uint("user_id", userID).Msg("Failed to load read titles for exclusions")
		}
	}

	prompt := BuildPrompt(profile, mergeExclusions(recent, req.ExcludeTitles))
	resp, err := s.complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, failure("Failed to get recommendations", err)
	}

	result := &Result{
		Recommendations: make([]RecommendedBook, 0, len(resp.Recommendations)),
		TrendingBooks:   make([]RecommendedBook, 0, len(resp.TrendingBooks)),
	}
	for _, b := range resp.Recommendations {
		result.Recommendations = append(result.Recommendations, toRecommendedBook(b, b.IsTrending))
	}
	for _, b := range resp.TrendingBooks {
		result.TrendingBooks = append(result.TrendingBooks, toRecommendedBook(b, true))
	}
	return result, nil
}

// GetSimilarBooks returns 6 books similar to the given title, shaded by the
// user's top genres and tropes. TrendingBooks is always empty.
func (s *Service) GetSimilarBooks(ctx context.Context, userID uint, req SimilarRequest) (*Result, error) {
	if s.completer == nil {
		return nil, unavailable(llm.ErrNotConfigured)
	}
	if err := validation.Validate(req); err != nil {
		return nil, &services.Error{Kind: services.KindInvalid, Message: "Invalid request", Err: err}
	}

	profile, err := s.resolveProfile(userID, Request{})
	if err != nil {
		return nil, err
	}

	resp, err := s.complete(ctx, similarSystemPrompt, BuildSimilarPrompt(req.Title, req.Author, profile))
	if err != nil {
		return nil, failure("Failed to get similar books", err)
	}

	result := &Result{
		Recommendations: make([]RecommendedBook, 0, len(resp.Recommendations)),
		TrendingBooks:   []RecommendedBook{},
	}
	for _, b := range resp.Recommendations {
		result.Recommendations = append(result.Recommendations, toRecommendedBook(b, b.IsTrending))
	}
	return result, nil
}

// Home returns the carousel feed for the user's stored profile. Concurrent
// requests for the same user share one model call, and the feed is reused
// for HomeTTL.
func (s *Service) Home(ctx context.Context, userID uint) (*HomeFeed, error) {
	key := uint64(userID)
	if s.home != nil {
		if feed, ok := s.home.Get(key); ok {
			return feed, nil
		}
	}

	// The shared build must outlive any single caller, so it runs detached
	// from the request and each caller waits on its own context.
	ch := s.flights.DoChan(strconv.FormatUint(key, 10), func() (any, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), homeBuildTimeout)
		defer cancel()

		result, err := s.GetRecommendations(buildCtx, userID, Request{})
		if err != nil {
			return nil, err
		}
		feed := BuildHomeFeed(result, time.Now().UTC())
		if s.home != nil {
			s.home.SetWithTTL(key, feed, 1, s.homeTTL)
			s.home.Wait()
		}
		return feed, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*HomeFeed), nil
	}
}

// InvalidateHome drops the cached feed for userID.
func (s *Service) InvalidateHome(userID uint) {
	if s.home != nil {
		s.home.Del(uint64(userID))
	}
}

func (s *Service) resolveProfile(userID uint, req Request) (entities.TasteProfile, error) {
	if len(req.Genres) > 0 {
		return entities.TasteProfile{Genres: req.Genres, Tropes: req.Tropes}, nil
	}
	view, err := s.profiles.GetTasteProfile(userID)
	if err != nil {
		return entities.TasteProfile{}, err
	}
	return entities.TasteProfile{Genres: view.Genres, Tropes: view.Tropes}, nil
}

func (s *Service) complete(ctx context.Context, system, prompt string) (*modelResponse, error) {
	schema := responseSchema()

	content, err := s.completer.Complete(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: schema,
				Strict: true,
			},
		},
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, err
	}

	var resp modelResponse
	if err := schema.Unmarshal(content, &resp); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	if err := validation.Validate(resp); err != nil {
		return nil, fmt.Errorf("invalid model response: %w", err)
	}
	return &resp, nil
}

func toRecommendedBook(b modelBook, trending bool) RecommendedBook {
	return RecommendedBook{
		ID:              "ai-" + uuid.NewString(),
		Title:           b.Title,
		Author:          b.Author,
		Description:     b.Description,
		CoverImage:      "",
		Genres:          nonNil(b.Genres),
		Tropes:          nonNil(b.Tropes),
		MatchPercentage: int(math.Round(b.MatchPercentage)),
		MatchReason:     b.MatchReason,
		IsTrending:      trending,
		PublicationYear: int(b.PublicationYear),
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func unavailable(err error) error {
	return &services.Error{Kind: services.KindUnavailable, Message: "Recommendations are unavailable", Err: err}
}

// failure classifies a model call error. Missing configuration and an open
// breaker are reported as unavailable, everything else as internal.
func failure(message string, err error) error {
	if errors.Is(err, llm.ErrNotConfigured) || resilience.IsOpen(err) {
		return &services.Error{Kind: services.KindUnavailable, Message: message, Err: err}
	}
	logging.Error().Err(err).Msg(message)
	return &services.Error{Kind: services.KindInternal, Message: message, Err: err}
}
