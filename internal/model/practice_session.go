package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates practice session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
)

// QuestionProgress is the per-question answer state within a session.
// It is owned exclusively by its parent PracticeSession.
type QuestionProgress struct {
	QuestionID       string `json:"question_id"`
	Position         int    `json:"position"`
	SelectedAnswers  []int  `json:"selected_answers"`
	IsSubmitted      bool   `json:"is_submitted"`
	TimeSpentSeconds *int   `json:"time_spent_seconds,omitempty"`
	Flagged          bool   `json:"flagged"`
	Bookmarked       bool   `json:"bookmarked"`
}

// PracticeSession is the aggregate root for one student's attempt at an exam.
// Once Status is completed no further mutation is accepted.
type PracticeSession struct {
	ID                   uuid.UUID          `json:"id"`
	ExamSlug             string             `json:"exam_slug"`
	OwnerID              string             `json:"owner_id"`
	Status               SessionStatus      `json:"status"`
	CurrentQuestionIndex int                `json:"current_question_index"`
	RemainingSeconds     int                `json:"remaining_seconds"`
	Questions            []QuestionProgress `json:"questions"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// QuestionByID returns the progress record for the given question ID.
func (s *PracticeSession) QuestionByID(questionID string) (*QuestionProgress, bool) {
	for i := range s.Questions {
		if s.Questions[i].QuestionID == questionID {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// FlaggedQuestionIDs returns the IDs of flagged questions in question order.
func (s *PracticeSession) FlaggedQuestionIDs() []string {
	ids := make([]string, 0)
	for i := range s.Questions {
		if s.Questions[i].Flagged {
			ids = append(ids, s.Questions[i].QuestionID)
		}
	}
	return ids
}

// BookmarkedQuestionIDs returns the IDs of bookmarked questions in question order.
func (s *PracticeSession) BookmarkedQuestionIDs() []string {
	ids := make([]string, 0)
	for i := range s.Questions {
		if s.Questions[i].Bookmarked {
			ids = append(ids, s.Questions[i].QuestionID)
		}
	}
	return ids
}

// Clone returns a deep copy. Used by the in-memory store so callers never
// share mutable state with the stored record.
func (s *PracticeSession) Clone() *PracticeSession {
	cp := *s
	cp.Questions = make([]QuestionProgress, len(s.Questions))
	for i, q := range s.Questions {
		qc := q
		qc.SelectedAnswers = append([]int(nil), q.SelectedAnswers...)
		if q.TimeSpentSeconds != nil {
			v := *q.TimeSpentSeconds
			qc.TimeSpentSeconds = &v
		}
		cp.Questions[i] = qc
	}
	return &cp
}

// NewPracticeSession builds an in-progress session with one empty progress
// record per exam question and the timer seeded from the exam duration.
func NewPracticeSession(exam *Exam, ownerID string) *PracticeSession {
	now := time.Now()
	questions := make([]QuestionProgress, len(exam.Questions))
	for i, q := range exam.Questions {
		questions[i] = QuestionProgress{
			QuestionID:      q.ID,
			Position:        i,
			SelectedAnswers: []int{},
		}
	}
	return &PracticeSession{
		ID:               uuid.New(),
		ExamSlug:         exam.Slug,
		OwnerID:          ownerID,
		Status:           SessionStatusInProgress,
		RemainingSeconds: exam.DurationMinutes * 60,
		Questions:        questions,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// CreateSessionRequest is the payload for starting a new practice session.
type CreateSessionRequest struct {
	ExamSlug string `json:"exam_slug" binding:"required,min=1,max=64"`
	OwnerID  string `json:"owner_id" binding:"required,min=1,max=64"`
}
