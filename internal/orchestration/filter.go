package orchestration

import (
	"fmt"
	"path/filepath"
)

// FilterQuestions returns the subset of questions whose ID matches at
// least one of the given glob patterns. An empty patterns slice returns
// all questions unchanged.
func FilterQuestions(questions []Question, patterns []string) ([]Question, error) {
	if len(patterns) == 0 {
		return questions, nil
	}

	var matched []Question
	for _, q := range questions {
		ok, err := matchesAny(q.ID, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, q)
		}
	}
	return matched, nil
}

// matchesAny reports whether id matches any pattern.
func matchesAny(id string, patterns []string) (bool, error) {
	for _, p := range patterns {
		ok, err := filepath.Match(p, id)
		if err != nil {
			return false, fmt.Errorf("invalid question filter pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
