package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/CryLyo/EduBot/internal/platform"
	logpkg "github.com/CryLyo/EduBot/pkg/log"
)

// MultiReviewQueue keeps one FIFO line per open topic, so a channel can
// review several assignments in parallel. A participant may wait in any
// number of lines but at most once per line.
//
// byUser is derived state: it holds exactly the participants present in at
// least one line, each with the sorted set of topics they wait in. Every
// mutation keeps it in lockstep with lines.
type MultiReviewQueue struct {
	base
	lines    map[string]Line
	topics   []string // open topics, sorted; iteration order for defaults
	byUser   map[int64][]string
	assigned map[int64]assignment
}

// NewMultiReview constructs an empty multi-topic review queue.
func NewMultiReview(scope Scope, names Names, deps Deps) *MultiReviewQueue {
	return &MultiReviewQueue{
		base:     newBase(scope, names, deps),
		lines:    make(map[string]Line),
		byUser:   make(map[int64][]string),
		assigned: make(map[int64]assignment),
	}
}

func (q *MultiReviewQueue) Kind() Kind { return KindMultiReview }

// Size counts distinct participants across all lines.
func (q *MultiReviewQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byUser)
}

// Add appends the participant to the topic's line. The topic must name an
// open line; joining a closed topic is reported, not performed.
func (q *MultiReviewQueue) Add(_ context.Context, participant int64, topic string) (*AddResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if topic == "" {
		return nil, ErrTopicRequired
	}
	line, ok := q.lines[topic]
	if !ok {
		return nil, ErrTopicNotOpen
	}
	pos, existed := line.Append(participant)
	if existed {
		return &AddResult{Position: pos, AlreadyQueued: true}, nil
	}
	q.lines[topic] = line
	q.indexAdd(participant, topic)
	return &AddResult{Position: pos}, nil
}

// Remove takes the participant out of one line, or out of every line when
// topic is empty.
func (q *MultiReviewQueue) Remove(participant int64, topic string) (*RemoveResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if topic != "" {
		line, ok := q.lines[topic]
		if !ok || !line.Remove(participant) {
			return nil, ErrNotFound
		}
		q.lines[topic] = line
		q.indexRemove(participant, topic)
		return &RemoveResult{Topics: []string{topic}}, nil
	}

	topics, ok := q.byUser[participant]
	if !ok {
		return nil, ErrNotFound
	}
	removed := append([]string(nil), topics...)
	for _, t := range removed {
		line := q.lines[t]
		line.Remove(participant)
		q.lines[t] = line
	}
	delete(q.byUser, participant)
	return &RemoveResult{Topics: removed}, nil
}

// WhereIs reports the participant's position in every line they wait in.
func (q *MultiReviewQueue) WhereIs(participant int64) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Entry
	for _, t := range q.byUser[participant] {
		if i := q.lines[t].IndexOf(participant); i >= 0 {
			out = append(out, Entry{Participant: participant, Topic: t, Position: i + 1})
		}
	}
	return out
}

// Entries snapshots every line, topics in sorted order.
func (q *MultiReviewQueue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Entry
	for _, t := range q.topics {
		for i, id := range q.lines[t] {
			out = append(out, Entry{Participant: id, Topic: t, Position: i + 1})
		}
	}
	return out
}

// TakeNext serves the next ready participant from the topic's line. An empty
// topic defaults to the first open topic, in sorted order, whose line is
// non-empty. The taken participant keeps their place in any other lines.
func (q *MultiReviewQueue) TakeNext(ctx context.Context, operator int64, topic string) (*TakeResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	opChan, ok := q.deps.Chat.VoiceChannel(ctx, operator)
	if !ok {
		return nil, ErrOperatorNotReady
	}

	if topic == "" {
		for _, t := range q.topics {
			if len(q.lines[t]) > 0 {
				topic = t
				break
			}
		}
		if topic == "" {
			return nil, ErrQueueEmpty
		}
	} else if _, ok := q.lines[topic]; !ok {
		return nil, ErrTopicNotOpen
	}
	if len(q.lines[topic]) == 0 {
		return nil, ErrQueueEmpty
	}

	line := q.lines[topic]
	taken, skipped, err := q.takeFromLine(ctx, &line)
	q.lines[topic] = line
	if err != nil {
		return nil, err
	}
	q.indexRemove(taken, topic)

	origin, hasOrigin := q.deps.Chat.VoiceChannel(ctx, taken)
	q.assigned[operator] = assignment{Participant: taken, Topic: topic, Origin: origin, HasOrigin: hasOrigin}

	res := &TakeResult{Taken: taken, Topic: topic, Skipped: skipped}
	if err := q.deps.Chat.Move(ctx, taken, opChan); err != nil {
		q.deps.Logger.Warn("move failed, putting participant back",
			logpkg.Str("scope", q.scope.String()), logpkg.Str("topic", topic),
			logpkg.Int64("participant", taken), logpkg.Err(err))
		res.MoveFailed = true
		_, _ = q.putBackLocked(ctx, operator, defaultPutBackPos)
	}

	q.notifyUpcoming(ctx, q.lines[topic])
	return res, nil
}

// ClearServed finishes with the operator's current participant: the
// participant leaves every line they still wait in and the assignment is
// dropped. Used before taking the next participant when one review covers
// all of a participant's pending topics.
func (q *MultiReviewQueue) ClearServed(operator int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	a, ok := q.assigned[operator]
	if !ok {
		return
	}
	for _, t := range q.byUser[a.Participant] {
		line := q.lines[t]
		line.Remove(a.Participant)
		q.lines[t] = line
	}
	delete(q.byUser, a.Participant)
	delete(q.assigned, operator)
}

// PutBack re-inserts the held participant into the line they were taken
// from, restores their previous voice channel when possible, and clears the
// assignment.
func (q *MultiReviewQueue) PutBack(ctx context.Context, operator int64, pos int) (*PutBackResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.putBackLocked(ctx, operator, pos)
}

func (q *MultiReviewQueue) putBackLocked(ctx context.Context, operator int64, pos int) (*PutBackResult, error) {
	a, ok := q.assigned[operator]
	if !ok {
		return nil, ErrNoAssignment
	}
	line := q.lines[a.Topic]
	line.Insert(pos, a.Participant)
	q.lines[a.Topic] = line
	q.indexAdd(a.Participant, a.Topic)
	delete(q.assigned, operator)

	if a.HasOrigin && platform.ReadyToMove(ctx, q.deps.Chat, a.Participant) {
		if err := q.deps.Chat.Move(ctx, a.Participant, a.Origin); err != nil {
			q.deps.Logger.Debug("restore move failed",
				logpkg.Int64("participant", a.Participant), logpkg.Err(err))
		}
	}
	q.notify(ctx, a.Participant, msgPutBack)
	return &PutBackResult{Participant: a.Participant, Position: q.lines[a.Topic].IndexOf(a.Participant) + 1}, nil
}

// StartReviewing opens a new topic with an empty line.
func (q *MultiReviewQueue) StartReviewing(ctx context.Context, topic string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.lines[topic]; ok {
		return ErrAlreadyExists
	}
	q.lines[topic] = Line{}
	q.topics = append(q.topics, topic)
	sort.Strings(q.topics)
	q.redrawIndicator(ctx, q.indicatorText())
	return nil
}

// StopReviewing closes a topic. Everyone waiting in its line is dropped from
// that line only; their other pairings stay.
func (q *MultiReviewQueue) StopReviewing(ctx context.Context, topic string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	line, ok := q.lines[topic]
	if !ok {
		return ErrNotFound
	}
	for _, id := range line {
		q.indexRemove(id, topic)
	}
	delete(q.lines, topic)
	for i, t := range q.topics {
		if t == topic {
			q.topics = append(q.topics[:i], q.topics[i+1:]...)
			break
		}
	}
	q.redrawIndicator(ctx, q.indicatorText())
	return nil
}

// Reviewing reports whether the topic has an open line.
func (q *MultiReviewQueue) Reviewing(topic string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.lines[topic]
	return ok
}

// ActiveTopics returns the open topics in sorted order.
func (q *MultiReviewQueue) ActiveTopics() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.topics...)
}

// UpdateIndicator replaces the live status message.
func (q *MultiReviewQueue) UpdateIndicator(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.redrawIndicator(ctx, q.indicatorText())
}

func (q *MultiReviewQueue) indicatorText() string {
	if len(q.topics) == 0 {
		return "As soon as queues open up, you will see which you can join here."
	}
	text := "The following queues are active:\n"
	for _, t := range q.topics {
		line := q.lines[t]
		text += fmt.Sprintf("Queue %s (length %d)\n", t, len(line))
		for i, id := range line {
			if i >= 3 {
				break
			}
			text += fmt.Sprintf("  %d: %d\n", i+1, id)
		}
	}
	return text + indicatorFooter
}

// indexAdd records a participant/topic pairing, keeping topics sorted.
func (q *MultiReviewQueue) indexAdd(participant int64, topic string) {
	topics := q.byUser[participant]
	for _, t := range topics {
		if t == topic {
			return
		}
	}
	topics = append(topics, topic)
	sort.Strings(topics)
	q.byUser[participant] = topics
}

// indexRemove drops a pairing; the participant record goes when its last
// topic does.
func (q *MultiReviewQueue) indexRemove(participant int64, topic string) {
	topics := q.byUser[participant]
	for i, t := range topics {
		if t == topic {
			topics = append(topics[:i], topics[i+1:]...)
			break
		}
	}
	if len(topics) == 0 {
		delete(q.byUser, participant)
		return
	}
	q.byUser[participant] = topics
}

// multiBody is the persisted shape of a multi-topic queue.
type multiBody struct {
	Assignments []string        `json:"assignments"`
	Queue       map[string]Line `json:"queue"`
}

// MarshalBody serializes open topics and their lines.
func (q *MultiReviewQueue) MarshalBody() ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	body := multiBody{
		Assignments: q.topics,
		Queue:       q.lines,
	}
	if body.Assignments == nil {
		body.Assignments = []string{}
	}
	return json.Marshal(body)
}

// UnmarshalBody rebuilds lines from a persisted body and derives byUser
// from them.
func (q *MultiReviewQueue) UnmarshalBody(data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	var body multiBody
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	q.topics = body.Assignments
	sort.Strings(q.topics)
	q.lines = body.Queue
	if q.lines == nil {
		q.lines = make(map[string]Line)
	}
	for _, t := range q.topics {
		if _, ok := q.lines[t]; !ok {
			q.lines[t] = Line{}
		}
	}
	q.byUser = make(map[int64][]string)
	for _, t := range q.topics {
		for _, id := range q.lines[t] {
			q.indexAdd(id, t)
		}
	}
	return nil
}
