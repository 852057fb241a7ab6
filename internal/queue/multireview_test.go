package queue

import (
	"context"
	"reflect"
	"sort"
	"testing"
)

func newMultiWithTopics(t *testing.T, deps Deps, topics ...string) *MultiReviewQueue {
	t.Helper()
	scope, names := testScope()
	q := NewMultiReview(scope, names, deps)
	for _, topic := range topics {
		if err := q.StartReviewing(context.Background(), topic); err != nil {
			t.Fatalf("start %s: %v", topic, err)
		}
	}
	return q
}

// checkIndexMirrorsLines fails when byUser and the lines disagree.
func checkIndexMirrorsLines(t *testing.T, q *MultiReviewQueue) {
	t.Helper()
	want := make(map[int64][]string)
	for topic, line := range q.lines {
		for _, id := range line {
			want[id] = append(want[id], topic)
		}
	}
	for _, topics := range want {
		sort.Strings(topics)
	}
	if len(want) == 0 {
		want = nil
	}
	got := q.byUser
	if len(got) == 0 {
		got = nil
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("index %v does not mirror lines %v", q.byUser, q.lines)
	}
}

func TestMultiAddRequiresOpenTopic(t *testing.T) {
	deps, _ := testDeps(t)
	q := newMultiWithTopics(t, deps, "ex1")

	if _, err := q.Add(context.Background(), 1, ""); err != ErrTopicRequired {
		t.Fatalf("want ErrTopicRequired, got %v", err)
	}
	if _, err := q.Add(context.Background(), 1, "ex9"); err != ErrTopicNotOpen {
		t.Fatalf("want ErrTopicNotOpen, got %v", err)
	}
	res, err := q.Add(context.Background(), 1, "ex1")
	if err != nil || res.Position != 1 {
		t.Fatalf("add: %+v err=%v", res, err)
	}
	checkIndexMirrorsLines(t, q)
}

func TestMultiAddSameParticipantTwoTopics(t *testing.T) {
	deps, _ := testDeps(t)
	q := newMultiWithTopics(t, deps, "ex1", "ex2")

	mustAdd := func(id int64, topic string) {
		t.Helper()
		if _, err := q.Add(context.Background(), id, topic); err != nil {
			t.Fatalf("add %d to %s: %v", id, topic, err)
		}
	}
	mustAdd(1, "ex1")
	mustAdd(1, "ex2")
	mustAdd(2, "ex2")

	if q.Size() != 2 {
		t.Fatalf("size %d", q.Size())
	}
	res, err := q.Add(context.Background(), 1, "ex1")
	if err != nil || !res.AlreadyQueued {
		t.Fatalf("duplicate: %+v err=%v", res, err)
	}
	got := q.WhereIs(1)
	if len(got) != 2 || got[0].Topic != "ex1" || got[1].Topic != "ex2" {
		t.Fatalf("whereis %v", got)
	}
	checkIndexMirrorsLines(t, q)
}

func TestMultiRemoveOneAndAll(t *testing.T) {
	deps, _ := testDeps(t)
	q := newMultiWithTopics(t, deps, "ex1", "ex2")
	ctx := context.Background()
	q.Add(ctx, 1, "ex1")
	q.Add(ctx, 1, "ex2")
	q.Add(ctx, 2, "ex1")

	res, err := q.Remove(1, "ex1")
	if err != nil || !reflect.DeepEqual(res.Topics, []string{"ex1"}) {
		t.Fatalf("remove one: %+v err=%v", res, err)
	}
	checkIndexMirrorsLines(t, q)

	if _, err := q.Remove(1, "ex1"); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	res, err = q.Remove(1, "")
	if err != nil || !reflect.DeepEqual(res.Topics, []string{"ex2"}) {
		t.Fatalf("remove all: %+v err=%v", res, err)
	}
	if _, err := q.Remove(1, ""); err != ErrNotFound {
		t.Fatalf("want ErrNotFound after full removal, got %v", err)
	}
	if q.Size() != 1 {
		t.Fatalf("size %d", q.Size())
	}
	checkIndexMirrorsLines(t, q)
}

func TestMultiTakeNextDefaultsToFirstNonEmpty(t *testing.T) {
	deps, chat := testDeps(t)
	q := newMultiWithTopics(t, deps, "ex1", "ex2")
	newReadyOperator(chat)
	ctx := context.Background()
	chat.AddUser(5, "a")
	chat.JoinVoice(5, 300)
	q.Add(ctx, 5, "ex2")

	res, err := q.TakeNext(ctx, testOperator, "")
	if err != nil {
		t.Fatalf("takenext: %v", err)
	}
	if res.Taken != 5 || res.Topic != "ex2" {
		t.Fatalf("result %+v", res)
	}
	checkIndexMirrorsLines(t, q)

	// Everything is empty now.
	if _, err := q.TakeNext(ctx, testOperator, ""); err != ErrQueueEmpty {
		t.Fatalf("want ErrQueueEmpty, got %v", err)
	}
}

func TestMultiTakeNextKeepsOtherPairings(t *testing.T) {
	deps, chat := testDeps(t)
	q := newMultiWithTopics(t, deps, "ex1", "ex2")
	newReadyOperator(chat)
	ctx := context.Background()
	chat.AddUser(5, "a")
	chat.JoinVoice(5, 300)
	q.Add(ctx, 5, "ex1")
	q.Add(ctx, 5, "ex2")

	if _, err := q.TakeNext(ctx, testOperator, "ex1"); err != nil {
		t.Fatalf("takenext: %v", err)
	}
	got := q.WhereIs(5)
	if len(got) != 1 || got[0].Topic != "ex2" {
		t.Fatalf("whereis %v", got)
	}
	checkIndexMirrorsLines(t, q)
}

func TestMultiTakeNextUnknownTopic(t *testing.T) {
	deps, chat := testDeps(t)
	q := newMultiWithTopics(t, deps, "ex1")
	newReadyOperator(chat)

	if _, err := q.TakeNext(context.Background(), testOperator, "ex9"); err != ErrTopicNotOpen {
		t.Fatalf("want ErrTopicNotOpen, got %v", err)
	}
}

func TestMultiClearServedDropsAllPairings(t *testing.T) {
	deps, chat := testDeps(t)
	q := newMultiWithTopics(t, deps, "ex1", "ex2")
	newReadyOperator(chat)
	ctx := context.Background()
	chat.AddUser(5, "a")
	chat.JoinVoice(5, 300)
	chat.AddUser(6, "b")
	chat.JoinVoice(6, 300)
	q.Add(ctx, 5, "ex1")
	q.Add(ctx, 5, "ex2")
	q.Add(ctx, 6, "ex1")

	if _, err := q.TakeNext(ctx, testOperator, "ex1"); err != nil {
		t.Fatalf("takenext: %v", err)
	}
	q.ClearServed(testOperator)
	if got := q.WhereIs(5); got != nil {
		t.Fatalf("served participant still queued: %v", got)
	}
	checkIndexMirrorsLines(t, q)
	// The assignment is gone too.
	if _, err := q.PutBack(ctx, testOperator, 0); err != ErrNoAssignment {
		t.Fatalf("want ErrNoAssignment, got %v", err)
	}
}

func TestMultiPutBackReturnsToSameTopic(t *testing.T) {
	deps, chat := testDeps(t)
	q := newMultiWithTopics(t, deps, "ex1")
	newReadyOperator(chat)
	ctx := context.Background()
	chat.AddUser(5, "a")
	chat.JoinVoice(5, 300)
	q.Add(ctx, 5, "ex1")
	q.Add(ctx, 6, "ex1")

	if _, err := q.TakeNext(ctx, testOperator, "ex1"); err != nil {
		t.Fatalf("takenext: %v", err)
	}
	res, err := q.PutBack(ctx, testOperator, 0)
	if err != nil {
		t.Fatalf("putback: %v", err)
	}
	if res.Participant != 5 || res.Position != 1 {
		t.Fatalf("result %+v", res)
	}
	if !reflect.DeepEqual(q.lines["ex1"], Line{5, 6}) {
		t.Fatalf("line %v", q.lines["ex1"])
	}
	checkIndexMirrorsLines(t, q)
}

func TestMultiStopReviewingClearsLine(t *testing.T) {
	deps, _ := testDeps(t)
	q := newMultiWithTopics(t, deps, "ex1", "ex2")
	ctx := context.Background()
	q.Add(ctx, 1, "ex1")
	q.Add(ctx, 1, "ex2")
	q.Add(ctx, 2, "ex1")

	if err := q.StopReviewing(ctx, "ex1"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if q.Reviewing("ex1") {
		t.Fatalf("topic still open")
	}
	// 1 keeps their ex2 slot, 2 is gone entirely.
	if got := q.WhereIs(1); len(got) != 1 || got[0].Topic != "ex2" {
		t.Fatalf("whereis 1: %v", got)
	}
	if got := q.WhereIs(2); got != nil {
		t.Fatalf("whereis 2: %v", got)
	}
	checkIndexMirrorsLines(t, q)
}

func TestMultiSerializeRoundTrip(t *testing.T) {
	deps, _ := testDeps(t)
	q := newMultiWithTopics(t, deps, "ex1", "ex2")
	ctx := context.Background()
	q.Add(ctx, 1, "ex1")
	q.Add(ctx, 2, "ex1")
	q.Add(ctx, 1, "ex2")

	body, err := q.MarshalBody()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	scope, names := testScope()
	q2 := NewMultiReview(scope, names, deps)
	if err := q2.UnmarshalBody(body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(q2.topics, []string{"ex1", "ex2"}) {
		t.Fatalf("topics %v", q2.topics)
	}
	if !reflect.DeepEqual(q2.lines["ex1"], Line{1, 2}) {
		t.Fatalf("ex1 line %v", q2.lines["ex1"])
	}
	if q2.Size() != 2 {
		t.Fatalf("size %d", q2.Size())
	}
	checkIndexMirrorsLines(t, q2)
}
