package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prepstack/practice-engine/internal/model"
)

func examFixture(questions int) *model.Exam {
	exam := &model.Exam{Slug: "algebra-1", Title: "Algebra I", DurationMinutes: 30}
	for i := 0; i < questions; i++ {
		exam.Questions = append(exam.Questions, model.ExamQuestion{
			ID:             fmt.Sprintf("q%d", i+1),
			Position:       i,
			CorrectChoices: []int{0},
		})
	}
	return exam
}

func newStoredSession(t *testing.T, m *MemoryStore, questions int) *model.PracticeSession {
	t.Helper()
	sess := model.NewPracticeSession(examFixture(questions), "owner-1")
	if err := m.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func TestGetSessionNotFound(t *testing.T) {
	m := NewMemoryStore()
	if _, err := m.GetSession(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMutationsAgainstUnknownSession(t *testing.T) {
	m := NewMemoryStore()
	id := uuid.New()
	ctx := context.Background()

	if err := m.AdvanceQuestion(ctx, id, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("advance err = %v, want ErrNotFound", err)
	}
	if err := m.RecordQuestionProgress(ctx, id, "q1", []int{0}, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("record err = %v, want ErrNotFound", err)
	}
}

func TestAdvanceQuestion(t *testing.T) {
	m := NewMemoryStore()
	sess := newStoredSession(t, m, 5)
	ctx := context.Background()

	if err := m.AdvanceQuestion(ctx, sess.ID, 2); err != nil {
		t.Fatalf("advance: %v", err)
	}

	got, err := m.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CurrentQuestionIndex != 2 {
		t.Errorf("index = %d, want 2", got.CurrentQuestionIndex)
	}
}

func TestToggleFlagIdempotence(t *testing.T) {
	m := NewMemoryStore()
	sess := newStoredSession(t, m, 3)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := m.ToggleFlag(ctx, sess.ID, "q3", true); err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
	}

	got, _ := m.GetSession(ctx, sess.ID)
	if !reflect.DeepEqual(got.FlaggedQuestionIDs(), []string{"q3"}) {
		t.Errorf("flagged = %v, want [q3]", got.FlaggedQuestionIDs())
	}

	if err := m.ToggleFlag(ctx, sess.ID, "q3", false); err != nil {
		t.Fatalf("unflag: %v", err)
	}
	got, _ = m.GetSession(ctx, sess.ID)
	if len(got.FlaggedQuestionIDs()) != 0 {
		t.Errorf("flagged after unflag = %v, want empty", got.FlaggedQuestionIDs())
	}
}

func TestToggleUnknownQuestion(t *testing.T) {
	m := NewMemoryStore()
	sess := newStoredSession(t, m, 2)

	if err := m.ToggleBookmark(context.Background(), sess.ID, "q99", true); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("err = %v, want ErrUnknownQuestion", err)
	}
}

func TestRecordAnswerOverwrites(t *testing.T) {
	m := NewMemoryStore()
	sess := newStoredSession(t, m, 3)
	ctx := context.Background()

	ten := 10
	if err := m.RecordQuestionProgress(ctx, sess.ID, "q1", []int{0, 2}, &ten); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := m.RecordQuestionProgress(ctx, sess.ID, "q1", []int{3}, nil); err != nil {
		t.Fatalf("second record: %v", err)
	}

	got, _ := m.GetSession(ctx, sess.ID)
	q, _ := got.QuestionByID("q1")
	if !reflect.DeepEqual(q.SelectedAnswers, []int{3}) {
		t.Errorf("selectedAnswers = %v, want [3] (overwrite, not merge)", q.SelectedAnswers)
	}
	if !q.IsSubmitted {
		t.Error("isSubmitted should stay true after resubmission")
	}
	if q.TimeSpentSeconds != nil {
		t.Errorf("timeSpentSeconds = %v, want nil (overwritten)", *q.TimeSpentSeconds)
	}
}

func TestTerminalLock(t *testing.T) {
	m := NewMemoryStore()
	sess := newStoredSession(t, m, 3)
	ctx := context.Background()

	if err := m.CompleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	before, _ := m.GetSession(ctx, sess.ID)

	mutations := map[string]error{
		"advance":  m.AdvanceQuestion(ctx, sess.ID, 1),
		"flag":     m.ToggleFlag(ctx, sess.ID, "q1", true),
		"bookmark": m.ToggleBookmark(ctx, sess.ID, "q1", true),
		"timer":    m.UpdateRemainingSeconds(ctx, sess.ID, 100),
		"record":   m.RecordQuestionProgress(ctx, sess.ID, "q1", []int{0}, nil),
		"complete": m.CompleteSession(ctx, sess.ID),
	}
	for name, err := range mutations {
		if !errors.Is(err, ErrSessionCompleted) {
			t.Errorf("%s on completed session: err = %v, want ErrSessionCompleted", name, err)
		}
	}

	after, _ := m.GetSession(ctx, sess.ID)
	if !reflect.DeepEqual(before, after) {
		t.Error("rejected mutations changed stored state")
	}
}

func TestUpdatedAtMonotonic(t *testing.T) {
	m := NewMemoryStore()
	sess := newStoredSession(t, m, 3)
	ctx := context.Background()

	before, _ := m.GetSession(ctx, sess.ID)
	if err := m.UpdateRemainingSeconds(ctx, sess.ID, 500); err != nil {
		t.Fatalf("update timer: %v", err)
	}
	after, _ := m.GetSession(ctx, sess.ID)

	if after.UpdatedAt.Before(before.UpdatedAt) {
		t.Errorf("updatedAt went backwards: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}

	// A rejected mutation must not touch the timestamp.
	if err := m.ToggleFlag(ctx, sess.ID, "q99", true); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
	unchanged, _ := m.GetSession(ctx, sess.ID)
	if !unchanged.UpdatedAt.Equal(after.UpdatedAt) {
		t.Error("rejected mutation refreshed updatedAt")
	}
}

func TestGetSessionReturnsCopy(t *testing.T) {
	m := NewMemoryStore()
	sess := newStoredSession(t, m, 2)
	ctx := context.Background()

	got, _ := m.GetSession(ctx, sess.ID)
	got.Questions[0].Flagged = true
	got.CurrentQuestionIndex = 99

	fresh, _ := m.GetSession(ctx, sess.ID)
	if fresh.Questions[0].Flagged || fresh.CurrentQuestionIndex != 0 {
		t.Error("mutating a returned session leaked into the store")
	}
}

func TestConcurrentRecordsBothPersist(t *testing.T) {
	m := NewMemoryStore()
	sess := newStoredSession(t, m, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			qid := fmt.Sprintf("q%d", n+1)
			if err := m.RecordQuestionProgress(ctx, sess.ID, qid, []int{n}, nil); err != nil {
				t.Errorf("record %s: %v", qid, err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := m.GetSession(ctx, sess.ID)
	for i := 0; i < 10; i++ {
		q, _ := got.QuestionByID(fmt.Sprintf("q%d", i+1))
		if !q.IsSubmitted {
			t.Errorf("q%d lost its write under concurrency", i+1)
		}
		if !reflect.DeepEqual(q.SelectedAnswers, []int{i}) {
			t.Errorf("q%d selectedAnswers = %v, want [%d]", i+1, q.SelectedAnswers, i)
		}
	}
}
