package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// MaxPlayers caps the roster of a single game.
	MaxPlayers = 4
	// QuestionTimeout is the countdown, in seconds, for every served question.
	QuestionTimeout = 15
	// ScoreAward is added to a player's score for each correct submission.
	ScoreAward = 10
	// DefaultDifficulty is the requested number of questions per player.
	DefaultDifficulty = 4
	// MixedSubject is the virtual subject spanning every real subject.
	MixedSubject = "Mixed"
	// NoSelection marks an answer that was never chosen.
	NoSelection = -1
	// NoAnswerMarker is shown in reviews in place of an unset answer.
	NoAnswerMarker = "No answer"
)

// Player is a registered local player.
type Player struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Question models a multiple-choice question with exactly one correct option.
type Question struct {
	Prompt       string   `json:"prompt" yaml:"prompt"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correctIndex" yaml:"correctIndex"`
}

// Validate checks the question against the catalog schema.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%w: empty prompt", ErrInvalidCatalog)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: %q has %d options, need at least 2", ErrInvalidCatalog, q.Prompt, len(q.Options))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("%w: %q correct index %d out of range", ErrInvalidCatalog, q.Prompt, q.CorrectIndex)
	}
	return nil
}

// Catalog maps a subject to its ordered question pool.
type Catalog map[string][]Question

// Validate rejects catalogs that would break distribution.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no subjects", ErrInvalidCatalog)
	}
	for subject, questions := range c {
		if strings.TrimSpace(subject) == "" {
			return fmt.Errorf("%w: empty subject name", ErrInvalidCatalog)
		}
		if subject == MixedSubject {
			return fmt.Errorf("%w: %q is reserved", ErrInvalidCatalog, MixedSubject)
		}
		if len(questions) == 0 {
			return fmt.Errorf("%w: subject %q has no questions", ErrInvalidCatalog, subject)
		}
		for i, q := range questions {
			if err := q.Validate(); err != nil {
				return fmt.Errorf("subject %q question %d: %w", subject, i, err)
			}
		}
	}
	return nil
}

// RealSubjects returns the catalog subjects in sorted order.
func (c Catalog) RealSubjects() []string {
	subjects := make([]string, 0, len(c))
	for subject := range c {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	return subjects
}

// Subjects returns the selectable subjects, Mixed last.
func (c Catalog) Subjects() []string {
	return append(c.RealSubjects(), MixedSubject)
}

// AssignedQuestion is a player's copy of a question. Selected stays
// NoSelection until the owner answers.
type AssignedQuestion struct {
	Question
	Answered bool
	Selected int
}

// NewAssignedQuestion copies q for a single player.
func NewAssignedQuestion(q Question) AssignedQuestion {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	q.Options = options
	return AssignedQuestion{Question: q, Selected: NoSelection}
}

// Correct reports whether the stored answer matches the correct option.
func (a AssignedQuestion) Correct() bool {
	return a.Answered && a.Selected == a.CorrectIndex
}

// Assignment holds every player's exclusive question list for one round.
type Assignment map[string][]AssignedQuestion

// Phase is the state of a game session.
type Phase string

const (
	PhaseRegistration   Phase = "registration"
	PhaseAwaitingAnswer Phase = "awaiting_answer"
	PhaseRoundOver      Phase = "round_over"
)

// PlayerView is a roster entry in a snapshot.
type PlayerView struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	Score     int    `json:"score"`
	Remaining int    `json:"remaining"`
}

// QuestionView is the active question as shown to players.
type QuestionView struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Number  int      `json:"number"`
	Total   int      `json:"total"`
}

// ScoreEntry is one row of the final ranking.
type ScoreEntry struct {
	Player string `json:"player"`
	Score  int    `json:"score"`
}

// Snapshot is a read-only view of a session sufficient to render any screen.
type Snapshot struct {
	GameID             string        `json:"gameId"`
	Phase              Phase         `json:"phase"`
	Players            []PlayerView  `json:"players"`
	Subject            string        `json:"subject,omitempty"`
	Difficulty         int           `json:"difficulty"`
	CurrentPlayerIndex int           `json:"currentPlayerIndex"`
	CurrentPlayer      string        `json:"currentPlayer,omitempty"`
	Question           *QuestionView `json:"question,omitempty"`
	Selected           int           `json:"selected"`
	TimeRemaining      int           `json:"timeRemaining"`
	Results            []ScoreEntry  `json:"results,omitempty"`
	Winners            []string      `json:"winners,omitempty"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// ReviewEntry describes one answered question after the round.
type ReviewEntry struct {
	Prompt        string `json:"prompt"`
	CorrectOption string `json:"correctOption"`
	ChosenOption  string `json:"chosenOption"`
	Answered      bool   `json:"answered"`
	Correct       bool   `json:"correct"`
}

// PlayerReview lists a player's questions in assignment order.
type PlayerReview struct {
	Player  string        `json:"player"`
	Color   string        `json:"color"`
	Entries []ReviewEntry `json:"entries"`
}
