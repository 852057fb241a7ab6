package queue

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func newQuestionQueue(t *testing.T) (*QuestionQueue, Deps) {
	t.Helper()
	deps, _ := testDeps(t)
	scope, names := testScope()
	return NewQuestion(scope, names, deps), deps
}

func mustAsk(t *testing.T, q *QuestionQueue, asker int64, text string) int {
	t.Helper()
	res, err := q.Add(context.Background(), asker, text)
	if err != nil {
		t.Fatalf("ask %q: %v", text, err)
	}
	return res.QuestionIndex
}

func TestQuestionAsk(t *testing.T) {
	q, _ := newQuestionQueue(t)

	if _, err := q.Add(context.Background(), 1, "   "); err != ErrEmptyQuestion {
		t.Fatalf("want ErrEmptyQuestion, got %v", err)
	}
	idx := mustAsk(t, q, 1, "what is a slice?")
	if idx != 1 {
		t.Fatalf("index %d", idx)
	}
	idx = mustAsk(t, q, 2, "why is my loop infinite?")
	if idx != 2 {
		t.Fatalf("index %d", idx)
	}
	if q.Size() != 2 {
		t.Fatalf("size %d", q.Size())
	}
	open := q.Open()
	if len(open) != 2 || !reflect.DeepEqual(open[0].Followers, []int64{1}) {
		t.Fatalf("open %v", open)
	}
}

func TestQuestionFollow(t *testing.T) {
	q, _ := newQuestionQueue(t)
	idx := mustAsk(t, q, 1, "what is a slice?")

	if _, err := q.Follow(context.Background(), 2, 99); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	already, err := q.Follow(context.Background(), 2, idx)
	if err != nil || already {
		t.Fatalf("follow: already=%v err=%v", already, err)
	}
	already, err = q.Follow(context.Background(), 2, idx)
	if err != nil || !already {
		t.Fatalf("repeat follow: already=%v err=%v", already, err)
	}
	open := q.Open()
	if !reflect.DeepEqual(open[0].Followers, []int64{1, 2}) {
		t.Fatalf("followers %v", open[0].Followers)
	}
}

func TestQuestionAnswerWithText(t *testing.T) {
	q, _ := newQuestionQueue(t)
	idx := mustAsk(t, q, 1, "what is a slice?")

	res, err := q.Answer(context.Background(), 9, idx, "a view over an array")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if res.SelfAnswered || res.Voice {
		t.Fatalf("result %+v", res)
	}
	if q.Size() != 0 {
		t.Fatalf("question still open")
	}
	// Answered questions are no longer followable.
	if _, err := q.Follow(context.Background(), 2, idx); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	// Answering again fails.
	if _, err := q.Answer(context.Background(), 9, idx, "again"); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestQuestionAnswerSelf(t *testing.T) {
	q, _ := newQuestionQueue(t)
	idx := mustAsk(t, q, 1, "what is a slice?")

	res, err := q.Answer(context.Background(), 1, idx, "figured it out")
	if err != nil || !res.SelfAnswered {
		t.Fatalf("result %+v err=%v", res, err)
	}
}

func TestQuestionAnswerInVoice(t *testing.T) {
	deps, chat := testDeps(t)
	scope, names := testScope()
	q := NewQuestion(scope, names, deps)
	idx := mustAsk(t, q, 1, "what is a slice?")

	// Without a voice channel the operator cannot host the answer.
	if _, err := q.Answer(context.Background(), 9, idx, ""); err != ErrOperatorNotReady {
		t.Fatalf("want ErrOperatorNotReady, got %v", err)
	}
	chat.AddUser(9, "ta")
	chat.JoinVoice(9, 700)
	res, err := q.Answer(context.Background(), 9, idx, "")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !res.Voice || res.VoiceChannel != 700 {
		t.Fatalf("result %+v", res)
	}
	posts := chat.Posts()
	card := posts[len(posts)-1].Text
	if !strings.Contains(card, "voice channel 700") {
		t.Fatalf("card %q", card)
	}
}

func TestQuestionAmend(t *testing.T) {
	deps, chat := testDeps(t)
	scope, names := testScope()
	q := NewQuestion(scope, names, deps)
	idx := mustAsk(t, q, 1, "what is a slice?")

	// Only answered questions can be amended.
	if err := q.Amend(context.Background(), 9, idx, "see docs"); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := q.Answer(context.Background(), 9, idx, "a view over an array"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := q.Amend(context.Background(), 10, idx, "also see the language reference"); err != nil {
		t.Fatalf("amend: %v", err)
	}
	posts := chat.Posts()
	card := posts[len(posts)-1].Text
	if !strings.Contains(card, "Amendment from 10") || !strings.Contains(card, "a view over an array") {
		t.Fatalf("card %q", card)
	}
	// Each redraw deletes the previous card.
	if len(chat.Deleted()) != 2 {
		t.Fatalf("deleted %d cards", len(chat.Deleted()))
	}
}

func TestQuestionIndicesNotReusedWhileLive(t *testing.T) {
	q, _ := newQuestionQueue(t)
	idx1 := mustAsk(t, q, 1, "q1")
	if _, err := q.Answer(context.Background(), 9, idx1, "a1"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	idx2 := mustAsk(t, q, 2, "q2")
	if idx2 != 2 {
		t.Fatalf("index reused: %d", idx2)
	}
}

func TestQuestionWhereIs(t *testing.T) {
	q, _ := newQuestionQueue(t)
	mustAsk(t, q, 1, "q1")
	idx2 := mustAsk(t, q, 2, "q2")
	if _, err := q.Follow(context.Background(), 1, idx2); err != nil {
		t.Fatalf("follow: %v", err)
	}

	got := q.WhereIs(1)
	if len(got) != 2 || got[0].Position != 1 || got[1].Position != 2 {
		t.Fatalf("whereis %v", got)
	}
	if got := q.WhereIs(3); got != nil {
		t.Fatalf("whereis stranger: %v", got)
	}
}

func TestQuestionSerializeRoundTrip(t *testing.T) {
	q, deps := newQuestionQueue(t)
	mustAsk(t, q, 1, "q1")
	idx2 := mustAsk(t, q, 2, "q2")
	if _, err := q.Follow(context.Background(), 3, idx2); err != nil {
		t.Fatalf("follow: %v", err)
	}

	body, err := q.MarshalBody()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(body) != `[["q1",[1]],["q2",[2,3]]]` {
		t.Fatalf("body %s", body)
	}

	scope, names := testScope()
	q2 := NewQuestion(scope, names, deps)
	if err := q2.UnmarshalBody(body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	open := q2.Open()
	if len(open) != 2 || open[1].Index != 2 || !reflect.DeepEqual(open[1].Followers, []int64{2, 3}) {
		t.Fatalf("open %v", open)
	}
	// Indices continue after the loaded ones.
	if idx := mustAsk(t, q2, 4, "q3"); idx != 3 {
		t.Fatalf("next index %d", idx)
	}
}
