package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a game session has not been opened.
	ErrSessionNotFound = errors.New("game session not found")

	// ErrRegistration is the parent of every roster error.
	ErrRegistration = errors.New("registration rejected")
	// ErrEmptyPlayerName is returned for blank player names.
	ErrEmptyPlayerName = fmt.Errorf("%w: player name is empty", ErrRegistration)
	// ErrDuplicatePlayer is returned when the name is already on the roster.
	ErrDuplicatePlayer = fmt.Errorf("%w: player name already taken", ErrRegistration)
	// ErrRosterFull is returned for registrations past MaxPlayers.
	ErrRosterFull = fmt.Errorf("%w: you can't add more than %d players", ErrRegistration, MaxPlayers)
	// ErrNoPlayers is returned when a game is started with an empty roster.
	ErrNoPlayers = fmt.Errorf("%w: add at least one player before choosing a subject", ErrRegistration)
	// ErrGameInProgress is returned for registration changes after the game started.
	ErrGameInProgress = fmt.Errorf("%w: game already started", ErrRegistration)

	// ErrInvalidSubject indicates the subject is neither Mixed nor in the catalog.
	ErrInvalidSubject = errors.New("invalid subject")
	// ErrInvalidSelection indicates an out-of-range answer index.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrInvalidDifficulty indicates a non-positive questions-per-player count.
	ErrInvalidDifficulty = errors.New("difficulty must be at least 1")
	// ErrNotAwaitingAnswer is returned for answer actions outside a question.
	ErrNotAwaitingAnswer = errors.New("no question is awaiting an answer")
	// ErrRoundInProgress is returned when results are requested before the round ends.
	ErrRoundInProgress = errors.New("round is not over")
	// ErrUnknownPlayer is returned for names not on the roster.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrInvalidCatalog is the parent of catalog schema violations.
	ErrInvalidCatalog = errors.New("invalid question catalog")
)

// LoadError reports that the question catalog could not be loaded.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return "load questions: " + e.Err.Error()
	}
	return "load questions from " + e.Source + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError wraps err unless it already is a LoadError.
func NewLoadError(source string, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		return err
	}
	return &LoadError{Source: source, Err: err}
}
