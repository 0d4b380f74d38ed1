package model

// OperationTag discriminates the session mutation payloads on the wire.
type OperationTag string

const (
	OpAdvance        OperationTag = "advance"
	OpToggleFlag     OperationTag = "toggle-flag"
	OpToggleBookmark OperationTag = "toggle-bookmark"
	OpUpdateTimer    OperationTag = "update-timer"
	OpRecordAnswer   OperationTag = "record-answer"
	OpComplete       OperationTag = "complete"
)

// Operation is one validated mutation request against a session. Concrete
// types carry already-sanitized values: integers are truncated and finite,
// non-negative fields are clamped at zero by the wire mapper.
type Operation interface {
	Tag() OperationTag
}

// AdvanceOp moves the current question pointer.
type AdvanceOp struct {
	CurrentQuestionIndex int
}

func (AdvanceOp) Tag() OperationTag { return OpAdvance }

// ToggleFlagOp sets flag membership for one question.
type ToggleFlagOp struct {
	QuestionID string
	Flagged    bool
}

func (ToggleFlagOp) Tag() OperationTag { return OpToggleFlag }

// ToggleBookmarkOp sets bookmark membership for one question.
type ToggleBookmarkOp struct {
	QuestionID string
	Bookmarked bool
}

func (ToggleBookmarkOp) Tag() OperationTag { return OpToggleBookmark }

// UpdateTimerOp overwrites the client-reported countdown value.
type UpdateTimerOp struct {
	RemainingSeconds int
}

func (UpdateTimerOp) Tag() OperationTag { return OpUpdateTimer }

// RecordAnswerOp overwrites one question's answer state. SelectedAnswers
// is de-duplicated with order preserved; TimeSpentSeconds is nil when the
// caller did not report it.
type RecordAnswerOp struct {
	QuestionID       string
	SelectedAnswers  []int
	TimeSpentSeconds *int
}

func (RecordAnswerOp) Tag() OperationTag { return OpRecordAnswer }

// CompleteOp is the explicit terminal transition. The policy of when to
// send it (manual submit, UI auto-submit at zero) lives with the caller.
type CompleteOp struct{}

func (CompleteOp) Tag() OperationTag { return OpComplete }
