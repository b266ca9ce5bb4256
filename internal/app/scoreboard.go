package app

import (
	"sort"

	"quizrush/internal/domain"
)

// Scoreboard keeps scores in registration order.
type Scoreboard struct {
	order  []string
	scores map[string]int
}

func NewScoreboard() *Scoreboard {
	return &Scoreboard{scores: make(map[string]int)}
}

// Register adds name with a zero score. Registering twice is a no-op.
func (b *Scoreboard) Register(name string) {
	if _, ok := b.scores[name]; ok {
		return
	}
	b.order = append(b.order, name)
	b.scores[name] = 0
}

// Award adds points to name and returns the new total.
func (b *Scoreboard) Award(name string, points int) int {
	if _, ok := b.scores[name]; !ok {
		return 0
	}
	b.scores[name] += points
	return b.scores[name]
}

func (b *Scoreboard) Score(name string) int {
	return b.scores[name]
}

// Results orders entries by score descending; equal scores keep
// registration order.
func (b *Scoreboard) Results() []domain.ScoreEntry {
	entries := make([]domain.ScoreEntry, 0, len(b.order))
	for _, name := range b.order {
		entries = append(entries, domain.ScoreEntry{Player: name, Score: b.scores[name]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}

// Winners returns every player holding the maximum score.
func (b *Scoreboard) Winners() []string {
	results := b.Results()
	if len(results) == 0 {
		return nil
	}
	top := results[0].Score
	var winners []string
	for _, e := range results {
		if e.Score != top {
			break
		}
		winners = append(winners, e.Player)
	}
	return winners
}
