package game

import (
	"math/rand"
	"sync"
)

// QuestionSource supplies the target answer for each round. Content
// management lives outside this core; the built-in catalog exists so a game
// can always be played.
type QuestionSource interface {
	Next() (question, answer string)
}

type catalogEntry struct {
	question string
	answer   string
}

// Catalog is a static in-memory question source with non-repeating draws
// until the pool is exhausted.
type Catalog struct {
	mu      sync.Mutex
	entries []catalogEntry
	order   []int
	pos     int
}

// NewCatalog returns the built-in trivia catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: builtinQuestions}
}

// Next returns the next question/answer pair, reshuffling once the pool is
// exhausted.
func (c *Catalog) Next() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pos >= len(c.order) {
		c.order = rand.Perm(len(c.entries))
		c.pos = 0
	}
	e := c.entries[c.order[c.pos]]
	c.pos++
	return e.question, e.answer
}

var builtinQuestions = []catalogEntry{
	{"What is the capital of France?", "Paris"},
	{"What is the capital of Japan?", "Tokyo"},
	{"What is the capital of Canada?", "Ottawa"},
	{"What is the capital of Australia?", "Canberra"},
	{"What is the capital of Brazil?", "Brasilia"},
	{"Which planet is known as the Red Planet?", "Mars"},
	{"What is the largest ocean on Earth?", "Pacific"},
	{"What is the chemical symbol for gold?", "Au"},
	{"How many continents are there?", "7"},
	{"What is the longest river in the world?", "Nile"},
	{"Which country is home to the kangaroo?", "Australia"},
	{"What is the smallest prime number?", "2"},
	{"In which city is the Colosseum?", "Rome"},
	{"What is the tallest mountain on Earth?", "Everest"},
	{"Which element has the atomic number 1?", "Hydrogen"},
}
