package validation

import (
	"sync"
	"time"

	"Pantry-Pipeline-Backend/domain"
	"Pantry-Pipeline-Backend/entities"

	"github.com/google/uuid"
)

type State string

const (
	StateCapturing       State = "CAPTURING"
	StateUploading       State = "UPLOADING"
	StateAnalyzing       State = "ANALYZING"
	StateReviewingPhase1 State = "REVIEWING_PHASE1"
	StateReviewingPhase2 State = "REVIEWING_PHASE2"
	StateCommitting      State = "COMMITTING"
	StateDone            State = "DONE"
	StateError           State = "ERROR"
)

// EditPatch is a manual correction applied to a line item without changing
// its resolution status. Zero-valued fields are left untouched.
type EditPatch struct {
	Name            string
	Quantity        int
	UnitPrice       *float64
	ExpiryDate      *time.Time
	StorageLocation string
}

// Counters are recomputed from item statuses on every read; the engine never
// increments them imperatively.
type Counters struct {
	Resolved int
	Skipped  int
	Pending  int
}

// Engine is the per-receipt validation state machine. One engine exists per
// active session; operations are serialized by its mutex since HTTP handlers
// may hit the same receipt concurrently.
type Engine struct {
	mu sync.Mutex

	receiptID uuid.UUID
	state     State
	threshold float64

	phase1 []*entities.DetectedLineItem
	phase2 []*entities.DetectedLineItem

	// restore point for a failed commit
	resumeState State
	committing  bool
	errMessage  string
}

func NewEngine(receiptID uuid.UUID, threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Engine{
		receiptID: receiptID,
		state:     StateCapturing,
		threshold: threshold,
	}
}

// NewReviewEngine builds an engine that is already holding recognition
// results, the usual entry point on the server side.
func NewReviewEngine(receiptID uuid.UUID, items []*entities.DetectedLineItem, threshold float64) *Engine {
	e := NewEngine(receiptID, threshold)
	e.state = StateAnalyzing
	_ = e.ResultsReady(items)
	return e
}

func (e *Engine) ReceiptID() uuid.UUID { return e.receiptID }

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) ErrMessage() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errMessage
}

func (e *Engine) BeginUpload() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateCapturing {
		return domain.ErrInvalidTransition
	}
	e.state = StateUploading
	return nil
}

func (e *Engine) BeginAnalysis() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateUploading {
		return domain.ErrInvalidTransition
	}
	e.state = StateAnalyzing
	return nil
}

// ResultsReady separates the recognized items and enters phase 1 review.
func (e *Engine) ResultsReady(items []*entities.DetectedLineItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateAnalyzing {
		return domain.ErrInvalidTransition
	}
	e.phase1, e.phase2 = Separate(items, e.threshold)
	e.state = StateReviewingPhase1
	return nil
}

// Fail moves any non-terminal state to ERROR, keeping the message verbatim
// for the client.
func (e *Engine) Fail(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDone || e.state == StateError {
		return
	}
	e.state = StateError
	e.errMessage = message
}

// SelectMatch resolves an item against one of its candidates. Re-selecting
// overwrites the previous choice and keeps the item resolved.
func (e *Engine) SelectMatch(itemID, matchID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireReviewing(); err != nil {
		return err
	}

	item := e.findItem(itemID)
	if item == nil {
		return domain.ErrLineItemNotFound
	}

	found := false
	for _, cand := range item.Candidates {
		if cand.ID == matchID {
			found = true
			break
		}
	}
	if !found {
		return domain.ErrCandidateNotFound
	}

	selected := matchID
	item.SelectedMatchID = &selected
	item.ResolutionStatus = entities.ResolutionResolved
	return nil
}

// Skip marks an item as skipped and clears any previous selection.
func (e *Engine) Skip(itemID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireReviewing(); err != nil {
		return err
	}

	item := e.findItem(itemID)
	if item == nil {
		return domain.ErrLineItemNotFound
	}

	item.ResolutionStatus = entities.ResolutionSkipped
	item.SelectedMatchID = nil
	return nil
}

// Edit applies a manual correction without touching the resolution status.
func (e *Engine) Edit(itemID uuid.UUID, patch EditPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireReviewing(); err != nil {
		return err
	}

	item := e.findItem(itemID)
	if item == nil {
		return domain.ErrLineItemNotFound
	}

	if patch.Name != "" {
		item.EditedName = patch.Name
	}
	if patch.Quantity > 0 {
		item.Quantity = patch.Quantity
	}
	if patch.UnitPrice != nil {
		item.UnitPrice = patch.UnitPrice
	}
	if patch.ExpiryDate != nil {
		item.ExpiryDate = patch.ExpiryDate
	}
	if patch.StorageLocation != "" {
		item.StorageLocation = patch.StorageLocation
	}
	return nil
}

// AdvanceFromPhase1 gates the transition out of the confident bucket. Every
// phase-1 item must be resolved or skipped. With an empty phase 2 the engine
// goes straight to COMMITTING.
func (e *Engine) AdvanceFromPhase1() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReviewingPhase1 {
		return domain.ErrInvalidTransition
	}
	if !phaseResolved(e.phase1) {
		return domain.ErrPhaseIncomplete
	}

	if len(e.phase2) == 0 {
		e.resumeState = StateReviewingPhase1
		e.state = StateCommitting
		return nil
	}
	e.state = StateReviewingPhase2
	return nil
}

// BeginCommit checks the commit guards, freezes review, and returns the set
// of resolved items across both phases. Unresolved phase-2 items do not
// block; they are simply excluded. A second call while a commit is in flight
// fails with ErrCommitInFlight.
func (e *Engine) BeginCommit() ([]*entities.DetectedLineItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.committing {
		return nil, domain.ErrCommitInFlight
	}
	switch e.state {
	case StateReviewingPhase1, StateReviewingPhase2:
		e.resumeState = e.state
	case StateCommitting:
		// reached via AdvanceFromPhase1 with an empty phase 2; resumeState
		// was recorded there
	default:
		return nil, domain.ErrInvalidTransition
	}

	if !phaseResolved(e.phase1) {
		return nil, domain.ErrPhaseIncomplete
	}

	commitSet := make([]*entities.DetectedLineItem, 0, len(e.phase1)+len(e.phase2))
	for _, item := range append(append([]*entities.DetectedLineItem{}, e.phase1...), e.phase2...) {
		if item.ResolutionStatus == entities.ResolutionResolved {
			commitSet = append(commitSet, item)
		}
	}
	if len(commitSet) == 0 {
		return nil, domain.ErrNothingToCommit
	}

	e.state = StateCommitting
	e.committing = true
	return commitSet, nil
}

// FinishCommit resolves an in-flight commit. On failure the engine returns
// to the reviewing state it came from so no per-item work is lost.
func (e *Engine) FinishCommit(commitErr error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.committing {
		return
	}
	e.committing = false
	if commitErr != nil {
		e.state = e.resumeState
		return
	}
	e.state = StateDone
}

// Phase reports the review phase the engine currently sits in; zero outside
// the reviewing states.
func (e *Engine) Phase() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateReviewingPhase1:
		return 1
	case StateReviewingPhase2:
		return 2
	default:
		return 0
	}
}

func (e *Engine) Phase1Items() []*entities.DetectedLineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*entities.DetectedLineItem{}, e.phase1...)
}

func (e *Engine) Phase2Items() []*entities.DetectedLineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*entities.DetectedLineItem{}, e.phase2...)
}

// Item returns the live line item held by the session, if present.
func (e *Engine) Item(itemID uuid.UUID) (*entities.DetectedLineItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	item := e.findItem(itemID)
	return item, item != nil
}

func (e *Engine) Counters() Counters {
	e.mu.Lock()
	defer e.mu.Unlock()

	var c Counters
	for _, item := range append(append([]*entities.DetectedLineItem{}, e.phase1...), e.phase2...) {
		switch item.ResolutionStatus {
		case entities.ResolutionResolved:
			c.Resolved++
		case entities.ResolutionSkipped:
			c.Skipped++
		default:
			c.Pending++
		}
	}
	return c
}

func (e *Engine) requireReviewing() error {
	if e.committing {
		return domain.ErrCommitInFlight
	}
	switch e.state {
	case StateReviewingPhase1, StateReviewingPhase2:
		return nil
	default:
		return domain.ErrInvalidTransition
	}
}

func (e *Engine) findItem(itemID uuid.UUID) *entities.DetectedLineItem {
	for _, item := range e.phase1 {
		if item.ID == itemID {
			return item
		}
	}
	for _, item := range e.phase2 {
		if item.ID == itemID {
			return item
		}
	}
	return nil
}

func phaseResolved(items []*entities.DetectedLineItem) bool {
	for _, item := range items {
		if item.ResolutionStatus != entities.ResolutionResolved &&
			item.ResolutionStatus != entities.ResolutionSkipped {
			return false
		}
	}
	return true
}
