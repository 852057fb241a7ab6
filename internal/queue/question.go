package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/CryLyo/EduBot/internal/platform"
	logpkg "github.com/CryLyo/EduBot/pkg/log"
)

// Question is one open or answered question. The first follower is always
// the asker.
type Question struct {
	Index     int
	Text      string
	Followers []int64

	// msg is the channel message currently representing this question (the
	// question card while open, the answer card once answered).
	msg *platform.MessageRef

	AnswerText   string
	AnsweredBy   int64
	VoiceChannel int64 // set instead of AnswerText for voice answers
	Amendments   []Amendment
}

// Amendment is one follow-up addition to an answer.
type Amendment struct {
	By   int64
	Text string
}

// AnswerResult reports the outcome of an Answer.
type AnswerResult struct {
	Index int
	// SelfAnswered means the asker answered their own question.
	SelfAnswered bool
	// Voice is set when the answer happens in the operator's voice channel.
	Voice        bool
	VoiceChannel int64
}

// QuestionQueue collects questions for plenary or asynchronous answering.
// Indices are handed out monotonically and never reused while the queue is
// live; answered questions move to an archive that supports amendments.
type QuestionQueue struct {
	base
	open     map[int]*Question
	answered map[int]*Question
	nextIdx  int
}

// NewQuestion constructs an empty question queue.
func NewQuestion(scope Scope, names Names, deps Deps) *QuestionQueue {
	return &QuestionQueue{
		base:     newBase(scope, names, deps),
		open:     make(map[int]*Question),
		answered: make(map[int]*Question),
	}
}

func (q *QuestionQueue) Kind() Kind { return KindQuestion }

// Size counts open questions.
func (q *QuestionQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.open)
}

// openIndices returns the open question indices in ascending order, which is
// also insertion order.
func (q *QuestionQueue) openIndices() []int {
	idxs := make([]int, 0, len(q.open))
	for i := range q.open {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	return idxs
}

// Add asks a new question. The text travels in the topic argument; the
// asker becomes the first follower. Returns the assigned index and the
// question's position among open questions.
func (q *QuestionQueue) Add(ctx context.Context, asker int64, text string) (*AddResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuestion
	}
	q.nextIdx++
	qn := &Question{Index: q.nextIdx, Text: text, Followers: []int64{asker}}
	q.postCard(ctx, qn, qn.questionCard())
	q.open[qn.Index] = qn
	return &AddResult{Position: len(q.open), QuestionIndex: qn.Index}, nil
}

// Remove unfollows the participant everywhere. Questions keep their index
// and position even when their last follower leaves.
func (q *QuestionQueue) Remove(participant int64, _ string) (*RemoveResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	found := false
	for _, qn := range q.open {
		for i, f := range qn.Followers {
			if f == participant {
				qn.Followers = append(qn.Followers[:i], qn.Followers[i+1:]...)
				found = true
				break
			}
		}
	}
	if !found {
		return nil, ErrNotFound
	}
	return &RemoveResult{}, nil
}

// WhereIs reports the positions of the open questions the participant
// follows. Topic carries the question text.
func (q *QuestionQueue) WhereIs(participant int64) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Entry
	for pos, idx := range q.openIndices() {
		qn := q.open[idx]
		for _, f := range qn.Followers {
			if f == participant {
				out = append(out, Entry{Participant: participant, Topic: qn.Text, Position: pos + 1})
				break
			}
		}
	}
	return out
}

// Entries snapshots open questions in insertion order; the participant is
// the asker and the topic is the question text.
func (q *QuestionQueue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Entry
	for pos, idx := range q.openIndices() {
		qn := q.open[idx]
		var asker int64
		if len(qn.Followers) > 0 {
			asker = qn.Followers[0]
		}
		out = append(out, Entry{Participant: asker, Topic: qn.Text, Position: pos + 1})
	}
	return out
}

// Open returns the open questions in insertion order, for listings.
func (q *QuestionQueue) Open() []Question {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Question, 0, len(q.open))
	for _, idx := range q.openIndices() {
		qn := q.open[idx]
		cp := *qn
		cp.Followers = append([]int64(nil), qn.Followers...)
		out = append(out, cp)
	}
	return out
}

// Follow subscribes the participant to an open question. Following twice is
// reported, not an error.
func (q *QuestionQueue) Follow(_ context.Context, participant int64, idx int) (already bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	qn, ok := q.open[idx]
	if !ok {
		return false, ErrNotFound
	}
	for _, f := range qn.Followers {
		if f == participant {
			return true, nil
		}
	}
	qn.Followers = append(qn.Followers, participant)
	return false, nil
}

// Answer resolves an open question. A non-empty text answers in writing;
// an empty text announces the answer in the operator's voice channel, which
// therefore must exist. The question card is replaced by an answer card and
// the question moves to the answered archive.
func (q *QuestionQueue) Answer(ctx context.Context, operator int64, idx int, text string) (*AnswerResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	qn, ok := q.open[idx]
	if !ok {
		return nil, ErrNotFound
	}

	res := &AnswerResult{Index: idx}
	if text != "" {
		qn.AnswerText = text
	} else {
		vc, ok := q.deps.Chat.VoiceChannel(ctx, operator)
		if !ok {
			return nil, ErrOperatorNotReady
		}
		qn.VoiceChannel = vc
		res.Voice = true
		res.VoiceChannel = vc
	}
	qn.AnsweredBy = operator

	delete(q.open, idx)
	q.answered[idx] = qn
	q.postCard(ctx, qn, qn.answerCard())

	if len(qn.Followers) > 0 && qn.Followers[0] == operator {
		res.SelfAnswered = true
	}
	return res, nil
}

// Amend appends to the answer of an already answered question and redraws
// its card. Open questions cannot be amended.
func (q *QuestionQueue) Amend(ctx context.Context, by int64, idx int, text string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	qn, ok := q.answered[idx]
	if !ok {
		return ErrNotFound
	}
	qn.Amendments = append(qn.Amendments, Amendment{By: by, Text: text})
	q.postCard(ctx, qn, qn.answerCard())
	return nil
}

// UpdateIndicator is a no-op: every question already has its own card.
func (q *QuestionQueue) UpdateIndicator(context.Context) {}

// postCard deletes the question's previous channel message and posts text
// as its replacement. Best-effort.
func (q *QuestionQueue) postCard(ctx context.Context, qn *Question, text string) {
	if qn.msg != nil {
		_ = q.deps.Chat.Delete(ctx, *qn.msg)
	}
	ref, err := q.deps.Chat.Post(ctx, q.scope.Channel, text)
	if err != nil {
		q.deps.Logger.Warn("question card post failed",
			logpkg.Str("scope", q.scope.String()),
			logpkg.Int("index", qn.Index), logpkg.Err(err))
		qn.msg = nil
		return
	}
	qn.msg = &ref
}

func (qn *Question) questionCard() string {
	asker := int64(0)
	if len(qn.Followers) > 0 {
		asker = qn.Followers[0]
	}
	return fmt.Sprintf("Question %d:\nQuestion: %s\nAsked by: %d", qn.Index, qn.Text, asker)
}

func (qn *Question) answerCard() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Answer to question %d:\nQuestion: %s\n", qn.Index, qn.Text)
	if qn.AnswerText != "" {
		fmt.Fprintf(&b, "Answer: %s\n", qn.AnswerText)
	} else {
		fmt.Fprintf(&b, "Question %d will be answered in voice channel %d\n", qn.Index, qn.VoiceChannel)
	}
	for _, a := range qn.Amendments {
		fmt.Fprintf(&b, "Amendment from %d: %s\n", a.By, a.Text)
	}
	fmt.Fprintf(&b, "Answered by: %d\n", qn.AnsweredBy)
	fmt.Fprintf(&b, "Followers: %s", joinIDs(qn.Followers))
	return b.String()
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

// MarshalBody serializes open questions as [text, followers] pairs in
// insertion order. Answered questions are session state and not persisted.
func (q *QuestionQueue) MarshalBody() ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	body := make([][2]json.RawMessage, 0, len(q.open))
	for _, idx := range q.openIndices() {
		qn := q.open[idx]
		text, err := json.Marshal(qn.Text)
		if err != nil {
			return nil, err
		}
		followers := qn.Followers
		if followers == nil {
			followers = []int64{}
		}
		fl, err := json.Marshal(followers)
		if err != nil {
			return nil, err
		}
		body = append(body, [2]json.RawMessage{text, fl})
	}
	return json.Marshal(body)
}

// UnmarshalBody rebuilds open questions from [text, followers] pairs,
// renumbering indices from 1.
func (q *QuestionQueue) UnmarshalBody(data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	var body [][2]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	q.open = make(map[int]*Question)
	q.answered = make(map[int]*Question)
	q.nextIdx = 0
	for _, pair := range body {
		var text string
		if err := json.Unmarshal(pair[0], &text); err != nil {
			return err
		}
		var followers []int64
		if err := json.Unmarshal(pair[1], &followers); err != nil {
			return err
		}
		q.nextIdx++
		q.open[q.nextIdx] = &Question{Index: q.nextIdx, Text: text, Followers: followers}
	}
	return nil
}
