package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/CryLyo/EduBot/internal/platform"
	logpkg "github.com/CryLyo/EduBot/pkg/log"
)

// assignment tracks the participant an operator currently holds, with the
// pre-move voice channel so put-back can restore them.
type assignment struct {
	Participant int64
	Topic       string
	Origin      int64
	HasOrigin   bool
}

// TakeResult reports the outcome of a TakeNext.
type TakeResult struct {
	Taken   int64
	Topic   string
	Skipped int
	// MoveFailed means the participant could not be moved into the
	// operator's channel and has been put back at position 10.
	MoveFailed bool
}

// PutBackResult reports the outcome of a PutBack.
type PutBackResult struct {
	Participant int64
	Position    int
}

// ReviewQueue is one FIFO line per channel, used when a channel handles one
// assignment topic at a time.
type ReviewQueue struct {
	base
	line     Line
	assigned map[int64]assignment
	topics   []string // topics currently open for review; display gating only
}

// NewReview constructs an empty single-topic review queue.
func NewReview(scope Scope, names Names, deps Deps) *ReviewQueue {
	return &ReviewQueue{
		base:     newBase(scope, names, deps),
		assigned: make(map[int64]assignment),
	}
}

func (q *ReviewQueue) Kind() Kind { return KindReview }

func (q *ReviewQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.line)
}

// Add appends the participant if absent; an existing member is reported
// without mutation. Topic is ignored: the whole channel is one line.
func (q *ReviewQueue) Add(_ context.Context, participant int64, _ string) (*AddResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pos, existed := q.line.Append(participant)
	return &AddResult{Position: pos, AlreadyQueued: existed}, nil
}

// Remove deletes the participant from the line.
func (q *ReviewQueue) Remove(participant int64, _ string) (*RemoveResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.line.Remove(participant) {
		return nil, ErrNotFound
	}
	return &RemoveResult{}, nil
}

// WhereIs reports the participant's 1-based position, or nothing.
func (q *ReviewQueue) WhereIs(participant int64) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i := q.line.IndexOf(participant); i >= 0 {
		return []Entry{{Participant: participant, Position: i + 1}}
	}
	return nil
}

// Entries snapshots the line in order.
func (q *ReviewQueue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, 0, len(q.line))
	for i, id := range q.line {
		out = append(out, Entry{Participant: id, Position: i + 1})
	}
	return out
}

// TakeNext pops the next participant who is ready to be moved, re-inserts
// the unready ones it skipped, moves the ready participant into the
// operator's voice channel, and records the assignment for put-back.
func (q *ReviewQueue) TakeNext(ctx context.Context, operator int64) (*TakeResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	opChan, ok := q.deps.Chat.VoiceChannel(ctx, operator)
	if !ok {
		return nil, ErrOperatorNotReady
	}
	if len(q.line) == 0 {
		return nil, ErrQueueEmpty
	}

	taken, skipped, err := q.takeFromLine(ctx, &q.line)
	if err != nil {
		return nil, err
	}

	origin, hasOrigin := q.deps.Chat.VoiceChannel(ctx, taken)
	q.assigned[operator] = assignment{Participant: taken, Origin: origin, HasOrigin: hasOrigin}

	res := &TakeResult{Taken: taken, Skipped: skipped}
	if err := q.deps.Chat.Move(ctx, taken, opChan); err != nil {
		q.deps.Logger.Warn("move failed, putting participant back",
			logpkg.Str("scope", q.scope.String()),
			logpkg.Int64("participant", taken), logpkg.Err(err))
		res.MoveFailed = true
		_, _ = q.putBackLocked(ctx, operator, defaultPutBackPos)
	}

	q.notifyUpcoming(ctx, q.line)
	return res, nil
}

// PutBack re-inserts the held participant at pos, restores them to their
// previous voice channel when possible, and clears the assignment.
func (q *ReviewQueue) PutBack(ctx context.Context, operator int64, pos int) (*PutBackResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.putBackLocked(ctx, operator, pos)
}

func (q *ReviewQueue) putBackLocked(ctx context.Context, operator int64, pos int) (*PutBackResult, error) {
	a, ok := q.assigned[operator]
	if !ok {
		return nil, ErrNoAssignment
	}
	q.line.Insert(pos, a.Participant)
	delete(q.assigned, operator)

	if a.HasOrigin && platform.ReadyToMove(ctx, q.deps.Chat, a.Participant) {
		if err := q.deps.Chat.Move(ctx, a.Participant, a.Origin); err != nil {
			q.deps.Logger.Debug("restore move failed",
				logpkg.Int64("participant", a.Participant), logpkg.Err(err))
		}
	}
	q.notify(ctx, a.Participant, msgPutBack)
	return &PutBackResult{Participant: a.Participant, Position: q.line.IndexOf(a.Participant) + 1}, nil
}

// StartReviewing opens a topic. Display gating only for this queue kind.
func (q *ReviewQueue) StartReviewing(ctx context.Context, topic string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.topics {
		if t == topic {
			return ErrAlreadyExists
		}
	}
	q.topics = append(q.topics, topic)
	sort.Strings(q.topics)
	q.redrawIndicator(ctx, q.indicatorText())
	return nil
}

// StopReviewing closes a topic.
func (q *ReviewQueue) StopReviewing(ctx context.Context, topic string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.topics {
		if t == topic {
			q.topics = append(q.topics[:i], q.topics[i+1:]...)
			q.redrawIndicator(ctx, q.indicatorText())
			return nil
		}
	}
	return ErrNotFound
}

// Reviewing reports whether the topic is currently open.
func (q *ReviewQueue) Reviewing(topic string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.topics {
		if t == topic {
			return true
		}
	}
	return false
}

// ActiveTopics returns the open topics in order.
func (q *ReviewQueue) ActiveTopics() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.topics...)
}

// UpdateIndicator replaces the live status message.
func (q *ReviewQueue) UpdateIndicator(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.redrawIndicator(ctx, q.indicatorText())
}

func (q *ReviewQueue) indicatorText() string {
	text := fmt.Sprintf("Queue for assignments %s\nLength of queue: %d\nNext in queue:\n",
		joinTopics(q.topics), len(q.line))
	for i, id := range q.line {
		if i >= 3 {
			break
		}
		text += fmt.Sprintf("%d: %d\n", i+1, id)
	}
	return text + indicatorFooter
}

// MarshalBody serializes the line as a flat array of participant ids.
func (q *ReviewQueue) MarshalBody() ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.line == nil {
		return json.Marshal([]int64{})
	}
	return json.Marshal(q.line)
}

// UnmarshalBody rebuilds the line from a flat array of participant ids.
func (q *ReviewQueue) UnmarshalBody(data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	var line Line
	if err := json.Unmarshal(data, &line); err != nil {
		return err
	}
	q.line = line
	return nil
}
