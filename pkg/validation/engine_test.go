package validation_test

import (
	"errors"
	"testing"

	"Pantry-Pipeline-Backend/domain"
	"Pantry-Pipeline-Backend/entities"
	"Pantry-Pipeline-Backend/pkg/validation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// reviewSetup builds an engine over 4 confident items and 1 ambiguous item
// without candidates, the typical shape of a scanned grocery receipt.
func reviewSetup(t *testing.T) (*validation.Engine, []*entities.DetectedLineItem, *entities.DetectedLineItem) {
	t.Helper()

	confident := []*entities.DetectedLineItem{
		newItem(0.92, 2),
		newItem(0.88, 1),
		newItem(0.95, 3),
		newItem(0.81, 1),
	}
	ambiguous := newItem(0.3, 0)

	all := append(append([]*entities.DetectedLineItem{}, confident...), ambiguous)
	engine := validation.NewReviewEngine(uuid.New(), all, 0.8)

	require.Equal(t, validation.StateReviewingPhase1, engine.State())
	require.Len(t, engine.Phase1Items(), 4)
	require.Len(t, engine.Phase2Items(), 1)
	return engine, confident, ambiguous
}

func resolveAll(t *testing.T, engine *validation.Engine, items []*entities.DetectedLineItem) {
	t.Helper()
	for _, item := range items {
		require.NoError(t, engine.SelectMatch(item.ID, item.Candidates[0].ID))
	}
}

func TestEngineLifecycleTransitions(t *testing.T) {
	engine := validation.NewEngine(uuid.New(), 0.8)
	require.Equal(t, validation.StateCapturing, engine.State())

	require.NoError(t, engine.BeginUpload())
	require.NoError(t, engine.BeginAnalysis())
	require.NoError(t, engine.ResultsReady([]*entities.DetectedLineItem{newItem(0.9, 1)}))
	require.Equal(t, validation.StateReviewingPhase1, engine.State())

	require.ErrorIs(t, engine.BeginUpload(), domain.ErrInvalidTransition)
}

func TestEngineFailFromAnyNonTerminalState(t *testing.T) {
	engine := validation.NewEngine(uuid.New(), 0.8)
	require.NoError(t, engine.BeginUpload())

	engine.Fail("OCR timeout")
	require.Equal(t, validation.StateError, engine.State())
	require.Equal(t, "OCR timeout", engine.ErrMessage())

	// terminal: a later failure does not overwrite the message
	engine.Fail("something else")
	require.Equal(t, "OCR timeout", engine.ErrMessage())
}

func TestSelectMatchResolvesItem(t *testing.T) {
	engine, confident, _ := reviewSetup(t)
	item := confident[0]

	require.NoError(t, engine.SelectMatch(item.ID, item.Candidates[0].ID))
	require.Equal(t, entities.ResolutionResolved, item.ResolutionStatus)
	require.Equal(t, item.Candidates[0].ID, *item.SelectedMatchID)

	counters := engine.Counters()
	require.Equal(t, 1, counters.Resolved)
	require.Equal(t, 4, counters.Pending)
}

func TestReselectOverwritesKeepingResolved(t *testing.T) {
	engine, confident, _ := reviewSetup(t)
	item := confident[0]

	require.NoError(t, engine.SelectMatch(item.ID, item.Candidates[0].ID))
	require.NoError(t, engine.SelectMatch(item.ID, item.Candidates[1].ID))

	require.Equal(t, entities.ResolutionResolved, item.ResolutionStatus)
	require.Equal(t, item.Candidates[1].ID, *item.SelectedMatchID)
	require.Equal(t, 1, engine.Counters().Resolved, "re-selection must not double count")
}

func TestSelectMatchUnknownCandidate(t *testing.T) {
	engine, confident, _ := reviewSetup(t)
	err := engine.SelectMatch(confident[0].ID, uuid.New())
	require.ErrorIs(t, err, domain.ErrCandidateNotFound)
	require.Equal(t, entities.ResolutionPending, confident[0].ResolutionStatus)
}

func TestSkipClearsSelection(t *testing.T) {
	engine, confident, _ := reviewSetup(t)
	item := confident[1]

	require.NoError(t, engine.SelectMatch(item.ID, item.Candidates[0].ID))
	require.NoError(t, engine.Skip(item.ID))

	require.Equal(t, entities.ResolutionSkipped, item.ResolutionStatus)
	require.Nil(t, item.SelectedMatchID)
}

func TestEditDoesNotChangeStatus(t *testing.T) {
	engine, _, ambiguous := reviewSetup(t)

	require.NoError(t, engine.Edit(ambiguous.ID, validation.EditPatch{
		Name:     "Loose bananas",
		Quantity: 6,
	}))

	require.Equal(t, entities.ResolutionPending, ambiguous.ResolutionStatus)
	require.Equal(t, "Loose bananas", ambiguous.EditedName)
	require.Equal(t, 6, ambiguous.Quantity)
}

func TestAdvanceFailsWhilePhase1Pending(t *testing.T) {
	engine, confident, _ := reviewSetup(t)

	require.ErrorIs(t, engine.AdvanceFromPhase1(), domain.ErrPhaseIncomplete)

	resolveAll(t, engine, confident[:3])
	require.ErrorIs(t, engine.AdvanceFromPhase1(), domain.ErrPhaseIncomplete)

	require.NoError(t, engine.Skip(confident[3].ID))
	require.NoError(t, engine.AdvanceFromPhase1())
	require.Equal(t, validation.StateReviewingPhase2, engine.State())
}

func TestAdvanceSkipsEmptyPhase2(t *testing.T) {
	items := []*entities.DetectedLineItem{newItem(0.9, 1), newItem(0.85, 1)}
	engine := validation.NewReviewEngine(uuid.New(), items, 0.8)
	resolveAll(t, engine, items)

	require.NoError(t, engine.AdvanceFromPhase1())
	require.Equal(t, validation.StateCommitting, engine.State())

	commitSet, err := engine.BeginCommit()
	require.NoError(t, err)
	require.Len(t, commitSet, 2)
}

func TestCommitRejectedWithNothingResolved(t *testing.T) {
	engine, confident, ambiguous := reviewSetup(t)

	for _, item := range confident {
		require.NoError(t, engine.Skip(item.ID))
	}
	require.NoError(t, engine.Skip(ambiguous.ID))

	_, err := engine.BeginCommit()
	require.ErrorIs(t, err, domain.ErrNothingToCommit)
}

func TestCommitRejectedWhilePhase1Unresolved(t *testing.T) {
	engine, confident, _ := reviewSetup(t)
	resolveAll(t, engine, confident[:2])

	_, err := engine.BeginCommit()
	require.ErrorIs(t, err, domain.ErrPhaseIncomplete)
}

func TestCommitExcludesUnresolvedPhase2(t *testing.T) {
	engine, confident, ambiguous := reviewSetup(t)
	resolveAll(t, engine, confident)

	// the ambiguous item stays pending; it must not block nor be included
	commitSet, err := engine.BeginCommit()
	require.NoError(t, err)
	require.Len(t, commitSet, 4)
	for _, item := range commitSet {
		require.NotEqual(t, ambiguous.ID, item.ID)
	}
}

func TestFullReviewOfFiveItemReceipt(t *testing.T) {
	engine, confident, ambiguous := reviewSetup(t)

	resolveAll(t, engine, confident)
	require.NoError(t, engine.AdvanceFromPhase1())
	require.NoError(t, engine.Skip(ambiguous.ID))

	commitSet, err := engine.BeginCommit()
	require.NoError(t, err)
	require.Len(t, commitSet, 4)

	engine.FinishCommit(nil)
	require.Equal(t, validation.StateDone, engine.State())
}

func TestCommitFailureRestoresReviewingState(t *testing.T) {
	engine, confident, _ := reviewSetup(t)
	resolveAll(t, engine, confident)
	require.NoError(t, engine.AdvanceFromPhase1())

	_, err := engine.BeginCommit()
	require.NoError(t, err)

	engine.FinishCommit(errors.New("inventory store unavailable"))
	require.Equal(t, validation.StateReviewingPhase2, engine.State())

	// nothing was lost: the same set commits on retry
	commitSet, err := engine.BeginCommit()
	require.NoError(t, err)
	require.Len(t, commitSet, 4)
}

func TestConcurrentCommitRejected(t *testing.T) {
	engine, confident, _ := reviewSetup(t)
	resolveAll(t, engine, confident)

	_, err := engine.BeginCommit()
	require.NoError(t, err)

	_, err = engine.BeginCommit()
	require.ErrorIs(t, err, domain.ErrCommitInFlight)

	require.ErrorIs(t, engine.Skip(confident[0].ID), domain.ErrCommitInFlight)
}

func TestCountersRecomputedFromStatuses(t *testing.T) {
	engine, confident, ambiguous := reviewSetup(t)

	require.NoError(t, engine.SelectMatch(confident[0].ID, confident[0].Candidates[0].ID))
	require.NoError(t, engine.Skip(confident[1].ID))
	require.NoError(t, engine.Skip(ambiguous.ID))

	counters := engine.Counters()
	require.Equal(t, validation.Counters{Resolved: 1, Skipped: 2, Pending: 2}, counters)

	// flipping a skip to a selection moves the count, not duplicates it
	require.NoError(t, engine.SelectMatch(confident[1].ID, confident[1].Candidates[0].ID))
	counters = engine.Counters()
	require.Equal(t, validation.Counters{Resolved: 2, Skipped: 1, Pending: 2}, counters)
}

func TestSessionRegistryLifecycle(t *testing.T) {
	registry := validation.NewSessionRegistry()
	receiptID := uuid.New()

	_, err := registry.Get(receiptID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	engine := registry.Create(receiptID, []*entities.DetectedLineItem{newItem(0.9, 1)}, 0.8)
	got, err := registry.Get(receiptID)
	require.NoError(t, err)
	require.Same(t, engine, got)

	replacement := registry.Create(receiptID, []*entities.DetectedLineItem{newItem(0.9, 1)}, 0.8)
	got, err = registry.Get(receiptID)
	require.NoError(t, err)
	require.Same(t, replacement, got)

	registry.Remove(receiptID)
	_, err = registry.Get(receiptID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}
