// Package progress derives correctness and summary statistics from stored
// session state. Everything here is pure: derived values are recomputed on
// every read and never persisted, so they cannot go stale.
package progress

import (
	"github.com/prepstack/practice-engine/internal/model"
)

// CorrectnessRule decides whether a set of selected choice indices counts
// as correct against the accepted set. It is a named function type so
// alternate grading policies can be swapped without touching the
// controller.
type CorrectnessRule func(selected, accepted []int) bool

// AnyOverlap counts an answer correct when at least one selected choice is
// in the accepted set, even on multi-select questions. This is the
// engine's default single-best-answer policy.
func AnyOverlap(selected, accepted []int) bool {
	for _, s := range selected {
		for _, a := range accepted {
			if s == a {
				return true
			}
		}
	}
	return false
}

// ExactMatch counts an answer correct only when the selected set equals
// the accepted set (order-insensitive). Stricter alternative to AnyOverlap
// for multi-select grading.
func ExactMatch(selected, accepted []int) bool {
	if len(selected) != len(accepted) || len(selected) == 0 {
		return false
	}
	want := make(map[int]bool, len(accepted))
	for _, a := range accepted {
		want[a] = true
	}
	for _, s := range selected {
		if !want[s] {
			return false
		}
	}
	return true
}

// IsCorrect evaluates one question's progress against its answer key
// entry. Returns nil when the question was never submitted or when no key
// entry exists for it.
func IsCorrect(q *model.QuestionProgress, accepted []int, rule CorrectnessRule) *bool {
	if !q.IsSubmitted || accepted == nil {
		return nil
	}
	v := rule(q.SelectedAnswers, accepted)
	return &v
}

// Summary holds aggregate statistics over one session.
type Summary struct {
	TotalQuestions        int     `json:"total_questions"`
	Answered              int     `json:"answered"`
	Unanswered            int     `json:"unanswered"`
	Correct               int     `json:"correct"`
	Incorrect             int     `json:"incorrect"`
	Flagged               int     `json:"flagged"`
	Bookmarked            int     `json:"bookmarked"`
	TotalTimeSpentSeconds int     `json:"total_time_spent_seconds"`
	Accuracy              float64 `json:"accuracy"`
}

// Summarize computes aggregate statistics for a session against the
// exam's answer key. Accuracy is correct/answered, zero when nothing has
// been submitted.
func Summarize(s *model.PracticeSession, key model.AnswerKey, rule CorrectnessRule) Summary {
	sum := Summary{TotalQuestions: len(s.Questions)}

	for i := range s.Questions {
		q := &s.Questions[i]
		if q.Flagged {
			sum.Flagged++
		}
		if q.Bookmarked {
			sum.Bookmarked++
		}
		if q.TimeSpentSeconds != nil {
			sum.TotalTimeSpentSeconds += *q.TimeSpentSeconds
		}
		if !q.IsSubmitted {
			continue
		}
		sum.Answered++
		if correct := IsCorrect(q, key[q.QuestionID], rule); correct != nil {
			if *correct {
				sum.Correct++
			} else {
				sum.Incorrect++
			}
		}
	}

	sum.Unanswered = sum.TotalQuestions - sum.Answered
	if sum.Answered > 0 {
		sum.Accuracy = float64(sum.Correct) / float64(sum.Answered)
	}
	return sum
}
