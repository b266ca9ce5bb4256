package app

import (
	"fmt"
	"math/rand"

	"quizrush/internal/domain"
)

// ResolvePool returns the question pool for subject. Mixed concatenates every
// subject in sorted order and shuffles the result with rnd.
func ResolvePool(catalog domain.Catalog, subject string, rnd *rand.Rand) ([]domain.Question, error) {
	if subject == domain.MixedSubject {
		var pool []domain.Question
		for _, s := range catalog.RealSubjects() {
			pool = append(pool, catalog[s]...)
		}
		rnd.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		return pool, nil
	}

	questions, ok := catalog[subject]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSubject, subject)
	}
	pool := make([]domain.Question, len(questions))
	copy(pool, questions)
	return pool, nil
}

// QuestionsPerPlayer caps difficulty so that every player can receive the
// same number of distinct questions.
func QuestionsPerPlayer(poolSize, players, difficulty int) int {
	if players <= 0 {
		return 0
	}
	n := poolSize / players
	if difficulty < n {
		n = difficulty
	}
	if n < 0 {
		return 0
	}
	return n
}

// Distribute deals pool round-robin: player i takes the elements whose index
// is congruent to i modulo the player count, truncated to the per-player cap.
func Distribute(players []domain.Player, pool []domain.Question, difficulty int) domain.Assignment {
	assignment := make(domain.Assignment, len(players))
	perPlayer := QuestionsPerPlayer(len(pool), len(players), difficulty)

	for i, p := range players {
		questions := make([]domain.AssignedQuestion, 0, perPlayer)
		for j := i; j < len(pool) && len(questions) < perPlayer; j += len(players) {
			questions = append(questions, domain.NewAssignedQuestion(pool[j]))
		}
		assignment[p.Name] = questions
	}
	return assignment
}
