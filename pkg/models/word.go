package models

import (
	"fmt"
	"regexp"
	"time"
)

// learningPathPattern matches a source-target pair of two-letter language codes,
// e.g. "en-de" for learning German from English.
var learningPathPattern = regexp.MustCompile(`^[a-z]{2}-[a-z]{2}$`)

// ValidLearningPath reports whether path has the "xx-xx" form.
func ValidLearningPath(path string) bool {
	return learningPathPattern.MatchString(path)
}

// SplitLearningPath returns the source and target language of a learning path.
func SplitLearningPath(path string) (source, target string, err error) {
	if !ValidLearningPath(path) {
		return "", "", fmt.Errorf("invalid learning path %q: expected \"xx-xx\"", path)
	}
	return path[:2], path[3:], nil
}

// Word represents a vocabulary entry available under a learning path
type Word struct {
	ID            string    `json:"id" db:"id"`
	LearningPath  string    `json:"learning_path" db:"learning_path"`
	Term          string    `json:"term" db:"term"`
	Translation   string    `json:"translation" db:"translation"`
	Example       string    `json:"example" db:"example"`
	FrequencyRank int       `json:"frequency_rank" db:"frequency_rank"` // 1 = most common
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
