// Package recognition identifies books from cover photos and drives the
// upload, preview, recognize and confirm flow around it.
package recognition

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/readnext/internal/entities"
	"github.com/mrlokans/readnext/internal/logging"
	"github.com/mrlokans/readnext/internal/services"
	"github.com/mrlokans/readnext/internal/validation"
)

var (
	ErrFlowNotFound  = errors.New("recognition flow not found")
	ErrNotConfigured = errors.New("Photo recognition is not configured")
)

// BookAdder adds a recognized book to the user's library.
type BookAdder interface {
	AddBook(ctx context.Context, userID uint, req services.AddBookRequest) (*services.AddBookResult, error)
}

// AcceptRequest confirms a recognition. Title and author override the
// model's guess when set.
type AcceptRequest struct {
	Title  string                 `json:"title" validate:"omitempty,max=512"`
	Author string                 `json:"author" validate:"omitempty,max=256"`
	Status entities.ReadingStatus `json:"status" validate:"omitempty,status"`
	Rating *int                   `json:"rating" validate:"omitempty,min=1,max=5"`
}

// Service owns the in-memory recognition flows.
type Service struct {
	recognizer Recognizer
	library    BookAdder
	limits     Limits

	mu    sync.Mutex
	flows map[string]*Flow
}

// NewService creates a recognition service. A nil recognizer disables
// recognition; flows can still be created but every upload fails.
func NewService(recognizer Recognizer, library BookAdder, limits Limits) *Service {
	return &Service{
		recognizer: recognizer,
		library:    library,
		limits:     limits.withDefaults(),
		flows:      make(map[string]*Flow),
	}
}

// Limits returns the effective upload limits.
func (s *Service) Limits() Limits {
	return s.limits
}

// Identify recognizes a single photo without creating a flow.
func (s *Service) Identify(ctx context.Context, contentType string, data []byte) (*Recognition, error) {
	if s.recognizer == nil {
		return nil, ErrNotConfigured
	}
	img, err := PrepareImage(contentType, data, s.limits)
	if err != nil {
		return nil, err
	}
	rec, err := s.recognizer.Recognize(ctx, img)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to extract book from image")
		return nil, err
	}
	return rec, nil
}

// CreateFlow starts a new idle flow for userID.
func (s *Service) CreateFlow(userID uint) FlowView {
	f := newFlow(uuid.NewString(), userID, time.Now())

	s.mu.Lock()
	s.flows[f.id] = f
	s.mu.Unlock()

	return f.View()
}

// Flow returns a snapshot of the flow. Flows belonging to other users are
// reported as not found.
func (s *Service) Flow(id string, userID uint) (FlowView, error) {
	f, err := s.lookup(id, userID)
	if err != nil {
		return FlowView{}, err
	}
	return f.View(), nil
}

// Upload validates and caches an image, then recognizes it. The returned
// view reflects the settled state, result or error, even when err is set.
func (s *Service) Upload(ctx context.Context, id string, userID uint, contentType string, data []byte) (FlowView, error) {
	f, err := s.lookup(id, userID)
	if err != nil {
		return FlowView{}, err
	}
	if s.recognizer == nil {
		return f.View(), ErrNotConfigured
	}

	err = f.upload(ctx, contentType, data, s.limits, s.recognizer)
	if err != nil && !isFlowConflict(err) {
		logging.Warn().Err(err).Str("flow_id", id).Msg("Photo recognition failed")
	}
	return f.View(), err
}

// Retry re-sends the cached image of a flow in result or error state.
func (s *Service) Retry(ctx context.Context, id string, userID uint) (FlowView, error) {
	f, err := s.lookup(id, userID)
	if err != nil {
		return FlowView{}, err
	}
	if s.recognizer == nil {
		return f.View(), ErrNotConfigured
	}

	err = f.retry(ctx, s.recognizer)
	if err != nil && !isFlowConflict(err) {
		logging.Warn().Err(err).Str("flow_id", id).Msg("Photo recognition retry failed")
	}
	return f.View(), err
}

// Accept adds the recognized book to the user's library and resets the
// flow. On failure the flow keeps its result so the user can try again.
func (s *Service) Accept(ctx context.Context, id string, userID uint, req AcceptRequest) (*services.AddBookResult, FlowView, error) {
	f, err := s.lookup(id, userID)
	if err != nil {
		return nil, FlowView{}, err
	}
	if err := validation.Validate(req); err != nil {
		return nil, f.View(), &services.Error{Kind: services.KindInvalid, Message: "Invalid request", Err: err}
	}

	rec, err := f.accepted()
	if err != nil {
		return nil, f.View(), err
	}

	add := services.AddBookRequest{
		Title:  rec.Title,
		Author: rec.Author,
		Status: req.Status,
		Rating: req.Rating,
	}
	if req.Title != "" {
		add.Title = req.Title
	}
	if req.Author != "" {
		add.Author = req.Author
	}
	if add.Status == "" {
		add.Status = entities.StatusWantToRead
	}

	result, err := s.library.AddBook(ctx, userID, add)
	if err != nil {
		return nil, f.View(), err
	}

	_ = f.reset()
	return result, f.View(), nil
}

// Discard clears the flow back to idle.
func (s *Service) Discard(id string, userID uint) (FlowView, error) {
	f, err := s.lookup(id, userID)
	if err != nil {
		return FlowView{}, err
	}
	if err := f.reset(); err != nil {
		return f.View(), err
	}
	return f.View(), nil
}

// Sweep removes flows not touched for maxAge. Busy flows are kept.
func (s *Service) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, f := range s.flows {
		state := f.State()
		if state == StateProcessing || state == StateUploading {
			continue
		}
		if f.lastUpdate().Before(cutoff) {
			delete(s.flows, id)
			removed++
		}
	}
	return removed
}

func (s *Service) lookup(id string, userID uint) (*Flow, error) {
	s.mu.Lock()
	f, ok := s.flows[id]
	s.mu.Unlock()
	if !ok || f.userID != userID {
		return nil, ErrFlowNotFound
	}
	return f, nil
}

func isFlowConflict(err error) bool {
	return errors.Is(err, ErrFlowBusy) || errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNoCachedImage)
}
