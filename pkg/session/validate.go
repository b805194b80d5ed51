package session

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Prompt length bounds, inclusive, counted in characters.
const (
	MinPromptLength = 15
	MaxPromptLength = 300
)

const (
	FieldPrompt     = "prompt"
	FieldDifficulty = "difficulty"

	MsgPromptTooShort     = "The description of your nightmare is too short."
	MsgPromptTooLong      = "The nightmare is becoming too elaborate."
	MsgDifficultyRequired = "You must choose your fate."
)

// Difficulty of a generated objective.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the accepted difficulties in display order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ValidationError is an input that failed a static constraint. It never
// reaches a generation collaborator.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ValidatePrompt checks an environment prompt against the length bounds.
func ValidatePrompt(prompt string) error {
	n := utf8.RuneCountInString(prompt)
	switch {
	case n < MinPromptLength:
		return &ValidationError{Field: FieldPrompt, Message: MsgPromptTooShort}
	case n > MaxPromptLength:
		return &ValidationError{Field: FieldPrompt, Message: MsgPromptTooLong}
	}
	return nil
}

// ParseDifficulty accepts a difficulty name, ignoring case and
// surrounding whitespace.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", &ValidationError{Field: FieldDifficulty, Message: MsgDifficultyRequired}
	}
	return d, nil
}
