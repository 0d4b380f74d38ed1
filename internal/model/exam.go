package model

// ExamQuestion is one question of an exam definition as this engine sees
// it: an identifier, a stable position, and the accepted choice indices.
// Question text and options live with the exam-administration service.
type ExamQuestion struct {
	ID             string `json:"id"`
	Position       int    `json:"position"`
	CorrectChoices []int  `json:"correct_choices"`
}

// Exam is the read-only exam definition consumed by the session engine.
type Exam struct {
	Slug            string         `json:"slug"`
	Title           string         `json:"title"`
	DurationMinutes int            `json:"duration_minutes"`
	Questions       []ExamQuestion `json:"questions"`
}

// AnswerKey maps question IDs to their accepted choice indices.
type AnswerKey map[string][]int

// Key derives the answer key from the exam's question list.
func (e *Exam) Key() AnswerKey {
	key := make(AnswerKey, len(e.Questions))
	for _, q := range e.Questions {
		key[q.ID] = q.CorrectChoices
	}
	return key
}
