package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/prepstack/practice-engine/internal/model"
	"github.com/prepstack/practice-engine/internal/repository"
	"github.com/prepstack/practice-engine/internal/store"
	"github.com/prepstack/practice-engine/internal/wire"
	"github.com/rs/zerolog"
)

// fakeExamProvider serves exam definitions from a map, standing in for the
// exam-administration service.
type fakeExamProvider struct {
	exams map[string]*model.Exam
}

func (f *fakeExamProvider) GetBySlug(_ context.Context, slug string) (*model.Exam, error) {
	exam, ok := f.exams[slug]
	if !ok {
		return nil, repository.ErrExamNotFound
	}
	return exam, nil
}

func (f *fakeExamProvider) AnswerKey(_ context.Context, slug string) (model.AnswerKey, error) {
	exam, err := f.GetBySlug(context.Background(), slug)
	if err != nil {
		return nil, err
	}
	return exam.Key(), nil
}

func fiveQuestionExam() *model.Exam {
	exam := &model.Exam{Slug: "geometry-1", Title: "Geometry I", DurationMinutes: 45}
	for i := 0; i < 5; i++ {
		exam.Questions = append(exam.Questions, model.ExamQuestion{
			ID:             fmt.Sprintf("q%d", i+1),
			Position:       i,
			CorrectChoices: []int{1},
		})
	}
	return exam
}

func newTestService(t *testing.T) (*SessionService, *wire.SessionView) {
	t.Helper()
	svc := NewSessionService(
		store.NewMemoryStore(),
		&fakeExamProvider{exams: map[string]*model.Exam{"geometry-1": fiveQuestionExam()}},
		nil, // no Redis in unit tests: publication is best-effort
		zerolog.Nop(),
	)
	view, err := svc.CreateSession(context.Background(), "geometry-1", "owner-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return svc, view
}

func sessionID(t *testing.T, view *wire.SessionView) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(view.SessionID)
	if err != nil {
		t.Fatalf("parse session id: %v", err)
	}
	return id
}

func TestCreateSessionSeedsEmptyProgress(t *testing.T) {
	_, view := newTestService(t)

	if view.Status != model.SessionStatusInProgress {
		t.Errorf("status = %s, want in_progress", view.Status)
	}
	if len(view.Questions) != 5 {
		t.Fatalf("questions = %d, want 5", len(view.Questions))
	}
	if view.RemainingSeconds != 45*60 {
		t.Errorf("remainingSeconds = %d, want %d", view.RemainingSeconds, 45*60)
	}
	for _, q := range view.Questions {
		if q.IsSubmitted || len(q.SelectedAnswers) != 0 || q.IsCorrect != nil {
			t.Errorf("question %s not empty: %+v", q.QuestionID, q)
		}
	}
	if view.Statistics.Unanswered != 5 {
		t.Errorf("unanswered = %d, want 5", view.Statistics.Unanswered)
	}
}

func TestCreateSessionUnknownExam(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.CreateSession(context.Background(), "no-such-exam", "owner-1"); !errors.Is(err, repository.ErrExamNotFound) {
		t.Errorf("err = %v, want ErrExamNotFound", err)
	}
}

func TestAdvanceClampsBothBounds(t *testing.T) {
	svc, view := newTestService(t)
	id := sessionID(t, view)
	ctx := context.Background()

	tests := []struct {
		input int
		want  int
	}{
		{2, 2},
		{-3, 0},  // floor at zero
		{99, 4},  // ceiling at len(questions)-1
		{4, 4},
	}

	for _, tt := range tests {
		got, err := svc.ApplyOperation(ctx, id, model.AdvanceOp{CurrentQuestionIndex: tt.input})
		if err != nil {
			t.Fatalf("advance(%d): %v", tt.input, err)
		}
		if got.CurrentQuestionIndex != tt.want {
			t.Errorf("advance(%d) stored %d, want %d", tt.input, got.CurrentQuestionIndex, tt.want)
		}
	}
}

func TestUpdateTimerClampsToZero(t *testing.T) {
	svc, view := newTestService(t)
	id := sessionID(t, view)

	got, err := svc.ApplyOperation(context.Background(), id, model.UpdateTimerOp{RemainingSeconds: -5})
	if err != nil {
		t.Fatalf("update timer: %v", err)
	}
	if got.RemainingSeconds != 0 {
		t.Errorf("remainingSeconds = %d, want 0", got.RemainingSeconds)
	}
}

func TestTimerZeroDoesNotComplete(t *testing.T) {
	svc, view := newTestService(t)
	id := sessionID(t, view)

	got, err := svc.ApplyOperation(context.Background(), id, model.UpdateTimerOp{RemainingSeconds: 0})
	if err != nil {
		t.Fatalf("update timer: %v", err)
	}
	if got.Status != model.SessionStatusInProgress {
		t.Errorf("status = %s, want in_progress (no implicit completion)", got.Status)
	}
}

func TestRecordAnswerDerivesCorrectness(t *testing.T) {
	svc, view := newTestService(t)
	id := sessionID(t, view)
	ctx := context.Background()

	got, err := svc.ApplyOperation(ctx, id, model.RecordAnswerOp{QuestionID: "q1", SelectedAnswers: []int{1}})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	q := got.Questions[0]
	if !q.IsSubmitted {
		t.Error("isSubmitted = false, want true")
	}
	if q.IsCorrect == nil || !*q.IsCorrect {
		t.Error("isCorrect should be true for a matching answer")
	}
	if got.Statistics.Correct != 1 || got.Statistics.Accuracy != 1.0 {
		t.Errorf("stats = %+v, want 1 correct, accuracy 1.0", got.Statistics)
	}

	// Overwrite with a wrong answer: correctness flips on the next read.
	got, err = svc.ApplyOperation(ctx, id, model.RecordAnswerOp{QuestionID: "q1", SelectedAnswers: []int{0}})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	q = got.Questions[0]
	if !reflect.DeepEqual(q.SelectedAnswers, []int{0}) {
		t.Errorf("selectedAnswers = %v, want [0]", q.SelectedAnswers)
	}
	if q.IsCorrect == nil || *q.IsCorrect {
		t.Error("isCorrect should be false after overwriting with a wrong answer")
	}
}

func TestToggleFlagRoundTrip(t *testing.T) {
	svc, view := newTestService(t)
	id := sessionID(t, view)
	ctx := context.Background()

	got, err := svc.ApplyOperation(ctx, id, model.ToggleFlagOp{QuestionID: "q3", Flagged: true})
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	if !reflect.DeepEqual(got.FlaggedQuestionIDs, []string{"q3"}) {
		t.Errorf("flagged = %v, want [q3]", got.FlaggedQuestionIDs)
	}

	got, err = svc.ApplyOperation(ctx, id, model.ToggleFlagOp{QuestionID: "q3", Flagged: false})
	if err != nil {
		t.Fatalf("unflag: %v", err)
	}
	if len(got.FlaggedQuestionIDs) != 0 {
		t.Errorf("flagged = %v, want empty", got.FlaggedQuestionIDs)
	}
}

func TestUnknownQuestionRejected(t *testing.T) {
	svc, view := newTestService(t)
	id := sessionID(t, view)

	_, err := svc.ApplyOperation(context.Background(), id, model.ToggleFlagOp{QuestionID: "q99", Flagged: true})
	if !errors.Is(err, store.ErrUnknownQuestion) {
		t.Errorf("err = %v, want ErrUnknownQuestion", err)
	}
}

func TestUnknownSessionRejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ApplyOperation(context.Background(), uuid.New(), model.UpdateTimerOp{RemainingSeconds: 10})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCompleteLocksSession(t *testing.T) {
	svc, view := newTestService(t)
	id := sessionID(t, view)
	ctx := context.Background()

	got, err := svc.ApplyOperation(ctx, id, model.CompleteOp{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != model.SessionStatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}

	ops := []model.Operation{
		model.AdvanceOp{CurrentQuestionIndex: 1},
		model.ToggleFlagOp{QuestionID: "q1", Flagged: true},
		model.UpdateTimerOp{RemainingSeconds: 10},
		model.RecordAnswerOp{QuestionID: "q1", SelectedAnswers: []int{1}},
		model.CompleteOp{},
	}
	for _, op := range ops {
		if _, err := svc.ApplyOperation(ctx, id, op); !errors.Is(err, store.ErrSessionCompleted) {
			t.Errorf("%s on completed session: err = %v, want ErrSessionCompleted", op.Tag(), err)
		}
	}

	// The completed session stays readable.
	after, err := svc.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("get after complete: %v", err)
	}
	if after.Status != model.SessionStatusCompleted || after.CurrentQuestionIndex != 0 {
		t.Errorf("completed session changed by rejected calls: %+v", after)
	}
}

func TestGetSummary(t *testing.T) {
	svc, view := newTestService(t)
	id := sessionID(t, view)
	ctx := context.Background()

	ten := 10
	if _, err := svc.ApplyOperation(ctx, id, model.RecordAnswerOp{QuestionID: "q1", SelectedAnswers: []int{1}, TimeSpentSeconds: &ten}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := svc.ApplyOperation(ctx, id, model.RecordAnswerOp{QuestionID: "q2", SelectedAnswers: []int{0}}); err != nil {
		t.Fatalf("record: %v", err)
	}

	sum, err := svc.GetSummary(ctx, id)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Answered != 2 || sum.Correct != 1 || sum.Incorrect != 1 {
		t.Errorf("summary = %+v, want 2 answered, 1 correct, 1 incorrect", sum)
	}
	if sum.TotalTimeSpentSeconds != 10 {
		t.Errorf("totalTimeSpent = %d, want 10", sum.TotalTimeSpentSeconds)
	}
	if sum.Accuracy != 0.5 {
		t.Errorf("accuracy = %f, want 0.5", sum.Accuracy)
	}
}

func TestUpdatedAtNotRefreshedOnRejection(t *testing.T) {
	svc, view := newTestService(t)
	id := sessionID(t, view)
	ctx := context.Background()

	before, err := svc.ApplyOperation(ctx, id, model.UpdateTimerOp{RemainingSeconds: 100})
	if err != nil {
		t.Fatalf("update timer: %v", err)
	}

	if _, err := svc.ApplyOperation(ctx, id, model.ToggleFlagOp{QuestionID: "q99", Flagged: true}); !errors.Is(err, store.ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}

	after, err := svc.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("rejected operation refreshed updatedAt")
	}
}
