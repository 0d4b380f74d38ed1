// Package wire translates between the external JSON contract and the
// engine's domain types. All numeric sanitation lives here: inputs are
// coerced defensively, non-finite values rejected, fractions truncated,
// and negatives clamped to zero where the domain requires non-negativity.
// Downstream code can assume already-sanitized operations.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/prepstack/practice-engine/internal/model"
)

// ErrInvalidPayload marks any structural mismatch in an operation payload:
// missing discriminant, unknown tag, wrong types, or non-finite numbers.
var ErrInvalidPayload = errors.New("invalid operation payload")

// Payload shapes use pointer fields so a missing member is
// distinguishable from its zero value and can be rejected, not defaulted.

type advancePayload struct {
	Operation            string   `json:"operation"`
	CurrentQuestionIndex *float64 `json:"currentQuestionIndex"`
}

type toggleFlagPayload struct {
	Operation  string  `json:"operation"`
	QuestionID *string `json:"questionId"`
	Flagged    *bool   `json:"flagged"`
}

type toggleBookmarkPayload struct {
	Operation  string  `json:"operation"`
	QuestionID *string `json:"questionId"`
	Bookmarked *bool   `json:"bookmarked"`
}

type updateTimerPayload struct {
	Operation        string   `json:"operation"`
	RemainingSeconds *float64 `json:"remainingSeconds"`
}

type recordAnswerPayload struct {
	Operation        string     `json:"operation"`
	QuestionID       *string    `json:"questionId"`
	SelectedAnswers  *[]float64 `json:"selectedAnswers"`
	TimeSpentSeconds *float64   `json:"timeSpentSeconds"`
}

type completePayload struct {
	Operation string `json:"operation"`
}

// DecodeOperation parses a discriminated-union operation payload. It
// rejects before any store access: the returned operation carries only
// sanitized values.
func DecodeOperation(data []byte) (model.Operation, error) {
	var head struct {
		Operation *string `json:"operation"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if head.Operation == nil {
		return nil, fmt.Errorf("%w: missing operation discriminant", ErrInvalidPayload)
	}

	switch model.OperationTag(*head.Operation) {
	case model.OpAdvance:
		var p advancePayload
		if err := strictUnmarshal(data, &p); err != nil {
			return nil, err
		}
		if p.CurrentQuestionIndex == nil {
			return nil, fmt.Errorf("%w: currentQuestionIndex is required", ErrInvalidPayload)
		}
		idx, err := sanitizeInt(*p.CurrentQuestionIndex, "currentQuestionIndex")
		if err != nil {
			return nil, err
		}
		return model.AdvanceOp{CurrentQuestionIndex: idx}, nil

	case model.OpToggleFlag:
		var p toggleFlagPayload
		if err := strictUnmarshal(data, &p); err != nil {
			return nil, err
		}
		if p.QuestionID == nil || *p.QuestionID == "" || p.Flagged == nil {
			return nil, fmt.Errorf("%w: questionId and flagged are required", ErrInvalidPayload)
		}
		return model.ToggleFlagOp{QuestionID: *p.QuestionID, Flagged: *p.Flagged}, nil

	case model.OpToggleBookmark:
		var p toggleBookmarkPayload
		if err := strictUnmarshal(data, &p); err != nil {
			return nil, err
		}
		if p.QuestionID == nil || *p.QuestionID == "" || p.Bookmarked == nil {
			return nil, fmt.Errorf("%w: questionId and bookmarked are required", ErrInvalidPayload)
		}
		return model.ToggleBookmarkOp{QuestionID: *p.QuestionID, Bookmarked: *p.Bookmarked}, nil

	case model.OpUpdateTimer:
		var p updateTimerPayload
		if err := strictUnmarshal(data, &p); err != nil {
			return nil, err
		}
		if p.RemainingSeconds == nil {
			return nil, fmt.Errorf("%w: remainingSeconds is required", ErrInvalidPayload)
		}
		secs, err := sanitizeInt(*p.RemainingSeconds, "remainingSeconds")
		if err != nil {
			return nil, err
		}
		return model.UpdateTimerOp{RemainingSeconds: clampNonNegative(secs)}, nil

	case model.OpRecordAnswer:
		var p recordAnswerPayload
		if err := strictUnmarshal(data, &p); err != nil {
			return nil, err
		}
		if p.QuestionID == nil || *p.QuestionID == "" || p.SelectedAnswers == nil {
			return nil, fmt.Errorf("%w: questionId and selectedAnswers are required", ErrInvalidPayload)
		}
		selected, err := sanitizeSelections(*p.SelectedAnswers)
		if err != nil {
			return nil, err
		}
		var timeSpent *int
		if p.TimeSpentSeconds != nil {
			v, err := sanitizeInt(*p.TimeSpentSeconds, "timeSpentSeconds")
			if err != nil {
				return nil, err
			}
			v = clampNonNegative(v)
			timeSpent = &v
		}
		return model.RecordAnswerOp{
			QuestionID:       *p.QuestionID,
			SelectedAnswers:  selected,
			TimeSpentSeconds: timeSpent,
		}, nil

	case model.OpComplete:
		var p completePayload
		if err := strictUnmarshal(data, &p); err != nil {
			return nil, err
		}
		return model.CompleteOp{}, nil
	}

	return nil, fmt.Errorf("%w: unrecognized operation %q", ErrInvalidPayload, *head.Operation)
}

// strictUnmarshal rejects unknown members so a payload matching no
// supported shape fails instead of silently defaulting.
func strictUnmarshal(data []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// sanitizeInt truncates a JSON number to an integer, rejecting non-finite
// values and magnitudes that do not fit an int.
func sanitizeInt(v float64, field string) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s is not a finite number", ErrInvalidPayload, field)
	}
	t := math.Trunc(v)
	if t > math.MaxInt32 || t < math.MinInt32 {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidPayload, field)
	}
	return int(t), nil
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// sanitizeSelections truncates, clamps, and de-duplicates choice indices,
// preserving first-seen order.
func sanitizeSelections(raw []float64) ([]int, error) {
	seen := make(map[int]bool, len(raw))
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		n, err := sanitizeInt(v, "selectedAnswers")
		if err != nil {
			return nil, err
		}
		n = clampNonNegative(n)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}
