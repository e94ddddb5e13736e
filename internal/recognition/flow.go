package recognition

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// State is a step of the photo-to-book flow.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StatePreview    State = "preview"
	StateProcessing State = "processing"
	StateResult     State = "result"
	StateError      State = "error"
)

var (
	ErrInvalidTransition = errors.New("action not allowed in the current state")
	ErrFlowBusy          = errors.New("an image is already being processed")
	ErrNoCachedImage     = errors.New("no image to retry, upload one first")
)

// transitions lists the states reachable from each state. Discard is
// handled separately and returns any settled state to idle.
var transitions = map[State][]State{
	StateIdle:       {StateUploading},
	StateUploading:  {StatePreview, StateError},
	StatePreview:    {StateProcessing},
	StateProcessing: {StateResult, StateError},
	StateResult:     {StateProcessing, StateIdle},
	StateError:      {StateProcessing, StateUploading},
}

// CanTransition reports whether the flow may move from one state to another.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// FlowView is a point-in-time copy of a flow for clients.
type FlowView struct {
	ID        string       `json:"id"`
	State     State        `json:"state"`
	Result    *Recognition `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
	HasImage  bool         `json:"hasImage"`
	MediaType string       `json:"mediaType,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Flow tracks one user's photo recognition. At most one image is processed
// at a time, and the last accepted image is cached so retry does not need
// the upload again.
type Flow struct {
	id     string
	userID uint

	mu        sync.Mutex
	state     State
	image     *Image
	result    *Recognition
	errMsg    string
	updatedAt time.Time
}

func newFlow(id string, userID uint, now time.Time) *Flow {
	return &Flow{id: id, userID: userID, state: StateIdle, updatedAt: now}
}

func (f *Flow) ID() string { return f.id }

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// View returns a snapshot of the flow.
func (f *Flow) View() FlowView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

func (f *Flow) viewLocked() FlowView {
	v := FlowView{
		ID:        f.id,
		State:     f.state,
		Error:     f.errMsg,
		HasImage:  f.image != nil,
		UpdatedAt: f.updatedAt,
	}
	if f.image != nil {
		v.MediaType = f.image.MediaType
	}
	if f.result != nil {
		r := *f.result
		v.Result = &r
	}
	return v
}

func (f *Flow) moveLocked(to State) error {
	if !CanTransition(f.state, to) {
		if f.state == StateProcessing || f.state == StateUploading {
			return ErrFlowBusy
		}
		return ErrInvalidTransition
	}
	f.state = to
	f.updatedAt = time.Now()
	return nil
}

func (f *Flow) failLocked(err error) {
	f.state = StateError
	f.errMsg = err.Error()
	f.result = nil
	f.updatedAt = time.Now()
}

// upload validates and caches data, then processes it immediately.
func (f *Flow) upload(ctx context.Context, contentType string, data []byte, limits Limits, rec Recognizer) error {
	f.mu.Lock()
	if err := f.moveLocked(StateUploading); err != nil {
		f.mu.Unlock()
		return err
	}
	f.image, f.result, f.errMsg = nil, nil, ""
	f.mu.Unlock()

	img, err := PrepareImage(contentType, data, limits)

	f.mu.Lock()
	if err != nil {
		f.failLocked(err)
		f.mu.Unlock()
		return err
	}
	f.image = &img
	_ = f.moveLocked(StatePreview)
	f.mu.Unlock()

	return f.process(ctx, rec)
}

// retry re-sends the cached image.
func (f *Flow) retry(ctx context.Context, rec Recognizer) error {
	f.mu.Lock()
	if f.state == StateProcessing || f.state == StateUploading {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	if f.state != StateResult && f.state != StateError {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	if f.image == nil {
		f.mu.Unlock()
		return ErrNoCachedImage
	}
	f.mu.Unlock()

	return f.process(ctx, rec)
}

// process sends the cached image to rec. The lock is released while the
// model is called so the flow can still be inspected.
func (f *Flow) process(ctx context.Context, rec Recognizer) error {
	f.mu.Lock()
	if err := f.moveLocked(StateProcessing); err != nil {
		f.mu.Unlock()
		return err
	}
	f.errMsg = ""
	img := *f.image
	f.mu.Unlock()

	result, err := rec.Recognize(ctx, img)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.failLocked(err)
		return err
	}
	f.result = result
	_ = f.moveLocked(StateResult)
	return nil
}

// accepted returns the current recognition if the flow is showing one.
func (f *Flow) accepted() (*Recognition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateProcessing || f.state == StateUploading {
		return nil, ErrFlowBusy
	}
	if f.state != StateResult || f.result == nil {
		return nil, ErrInvalidTransition
	}
	r := *f.result
	return &r, nil
}

// reset returns the flow to idle and drops the cached image.
func (f *Flow) reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateProcessing || f.state == StateUploading {
		return ErrFlowBusy
	}
	f.state = StateIdle
	f.image, f.result, f.errMsg = nil, nil, ""
	f.updatedAt = time.Now()
	return nil
}

func (f *Flow) lastUpdate() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updatedAt
}
