package wire

import (
	"time"

	"github.com/prepstack/practice-engine/internal/model"
	"github.com/prepstack/practice-engine/internal/progress"
)

// QuestionView is the external shape of one question's progress.
// IsCorrect is derived on every read, never persisted.
type QuestionView struct {
	QuestionID       string `json:"questionId"`
	SelectedAnswers  []int  `json:"selectedAnswers"`
	IsSubmitted      bool   `json:"isSubmitted"`
	IsCorrect        *bool  `json:"isCorrect"`
	TimeSpentSeconds *int   `json:"timeSpentSeconds"`
}

// SessionView is the full session read model returned by every successful
// operation. Clients reconcile against this instead of applying deltas.
type SessionView struct {
	SessionID             string               `json:"sessionId"`
	ExamSlug              string               `json:"examSlug"`
	OwnerID               string               `json:"ownerId"`
	Status                model.SessionStatus  `json:"status"`
	CurrentQuestionIndex  int                  `json:"currentQuestionIndex"`
	RemainingSeconds      int                  `json:"remainingSeconds"`
	FlaggedQuestionIDs    []string             `json:"flaggedQuestionIds"`
	BookmarkedQuestionIDs []string             `json:"bookmarkedQuestionIds"`
	Questions             []QuestionView       `json:"questions"`
	Statistics            progress.Summary     `json:"statistics"`
	CreatedAt             time.Time            `json:"createdAt"`
	UpdatedAt             time.Time            `json:"updatedAt"`
}

// NewSessionView maps a stored session to the external contract,
// recomputing derived fields via the aggregator. A nil answer key leaves
// every IsCorrect null.
func NewSessionView(s *model.PracticeSession, key model.AnswerKey, rule progress.CorrectnessRule) *SessionView {
	questions := make([]QuestionView, len(s.Questions))
	for i := range s.Questions {
		q := &s.Questions[i]
		selected := q.SelectedAnswers
		if selected == nil {
			selected = []int{}
		}
		questions[i] = QuestionView{
			QuestionID:       q.QuestionID,
			SelectedAnswers:  selected,
			IsSubmitted:      q.IsSubmitted,
			IsCorrect:        progress.IsCorrect(q, key[q.QuestionID], rule),
			TimeSpentSeconds: q.TimeSpentSeconds,
		}
	}

	return &SessionView{
		SessionID:             s.ID.String(),
		ExamSlug:              s.ExamSlug,
		OwnerID:               s.OwnerID,
		Status:                s.Status,
		CurrentQuestionIndex:  s.CurrentQuestionIndex,
		RemainingSeconds:      s.RemainingSeconds,
		FlaggedQuestionIDs:    s.FlaggedQuestionIDs(),
		BookmarkedQuestionIDs: s.BookmarkedQuestionIDs(),
		Questions:             questions,
		Statistics:            progress.Summarize(s, key, rule),
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}
