package models

import (
	"strings"
	"time"
)

var Difficulties = []string{"easy", "medium", "hard"}

// OptionLetters are the choices a quiz form can submit, in display order.
var OptionLetters = []string{"a", "b", "c", "d"}

type Question struct {
	ID            int64     `json:"id"`
	Category      string    `json:"category"`
	Difficulty    string    `json:"difficulty"`
	QuestionText  string    `json:"question_text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectOption string    `json:"correct_option"` // literal answer text, not a letter
	AdminCreated  bool      `json:"admin_created"`
	CreatedAt     time.Time `json:"created_at"`
}

// Options returns the four option texts in letter order.
func (q *Question) Options() [4]string {
	return [4]string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
}

// SetOptions assigns the four option texts in letter order.
func (q *Question) SetOptions(opts [4]string) {
	q.OptionA, q.OptionB, q.OptionC, q.OptionD = opts[0], opts[1], opts[2], opts[3]
}

// OptionText maps an option letter (a-d, any case) to the stored option text.
// It is the only letter-to-text mapping; grading and the admin forms both go through it.
func (q *Question) OptionText(letter string) (string, bool) {
	letter = strings.ToLower(strings.TrimSpace(letter))
	opts := q.Options()
	for i, l := range OptionLetters {
		if l == letter {
			return opts[i], true
		}
	}
	return "", false
}

// LetterOf returns the letter whose option text equals text, used to preselect the
// correct answer on the edit form.
func (q *Question) LetterOf(text string) string {
	for i, opt := range q.Options() {
		if opt == text {
			return OptionLetters[i]
		}
	}
	return ""
}

// IsCorrect reports whether text is exactly the stored correct answer.
func (q *Question) IsCorrect(text string) bool {
	return text == q.CorrectOption
}

func ValidDifficulty(d string) bool {
	for _, v := range Difficulties {
		if v == d {
			return true
		}
	}
	return false
}

type QuestionFilter struct {
	Category     string
	Difficulty   string
	Search       string
	AdminCreated *bool
	Limit        int
}

// QuestionInput is the admin create/edit payload. Correct holds a letter (a-d)
// or the literal text of one of the options.
type QuestionInput struct {
	Category     string
	Difficulty   string
	QuestionText string
	Options      [4]string
	Correct      string
}

type Facets struct {
	Categories   []string `json:"categories"`
	Difficulties []string `json:"difficulties"`
}
