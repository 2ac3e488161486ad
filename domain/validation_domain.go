package domain

import "errors"

var (
	ErrPhaseIncomplete  = errors.New("phase 1 items are not fully resolved")
	ErrNothingToCommit  = errors.New("no resolved items to commit")
	ErrCommitInFlight   = errors.New("a commit is already in progress")
	ErrSessionNotFound  = errors.New("no validation session for this receipt")
	ErrInvalidTransition = errors.New("invalid engine state transition")
)
