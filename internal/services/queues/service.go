// Package queuesvc exposes queue operations as one facade used by the HTTP
// API and the CLI. It resolves scopes through the directory, dispatches to
// the concrete queue kind, and turns queue outcomes into user-facing
// messages.
package queuesvc

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/CryLyo/EduBot/internal/directory"
	"github.com/CryLyo/EduBot/internal/platform"
	"github.com/CryLyo/EduBot/internal/queue"
	logpkg "github.com/CryLyo/EduBot/pkg/log"
)

// ErrWrongKind is returned when an operation does not apply to the queue
// kind living at the scope.
var ErrWrongKind = pkgerrors.New("queues: operation does not apply to this queue kind")

// Service coordinates the queue directory and the chat platform.
type Service struct {
	dir    *directory.Directory
	chat   platform.Chat
	logger logpkg.Logger
}

// New creates the queues service.
func New(dir *directory.Directory, chat platform.Chat, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	return &Service{dir: dir, chat: chat, logger: logger.With(logpkg.Component("queues"))}
}

// Result is the outcome of one queue operation. Message is always set;
// the other fields depend on the operation.
type Result struct {
	Message string `json:"message"`

	Position int    `json:"position,omitempty"`
	Taken    int64  `json:"taken,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Index    int    `json:"index,omitempty"`
}

// MakeQueue creates a queue for the scope.
func (s *Service) MakeQueue(ctx context.Context, scope queue.Scope, names queue.Names, kind queue.Kind) (*Result, error) {
	if !kind.Valid() {
		return nil, pkgerrors.Errorf("unknown queue kind %q", kind)
	}
	q, err := s.dir.Make(scope, names, kind)
	if err != nil {
		return nil, err
	}
	q.UpdateIndicator(ctx)
	return &Result{Message: fmt.Sprintf("Created a %s queue.", kind)}, nil
}

// DeleteQueue removes the scope's queue and its saved document.
func (s *Service) DeleteQueue(ctx context.Context, scope queue.Scope) (*Result, error) {
	if err := s.dir.Delete(ctx, scope); err != nil {
		return nil, err
	}
	return &Result{Message: "Queue removed."}, nil
}

// Convert switches the scope's queue between the review kinds.
func (s *Service) Convert(ctx context.Context, scope queue.Scope, target queue.Kind, seedTopic string) (*Result, error) {
	q, err := s.dir.Convert(scope, target, seedTopic)
	if err != nil {
		return nil, err
	}
	q.UpdateIndicator(ctx)
	return &Result{Message: fmt.Sprintf("Converted to a %s queue.", target)}, nil
}

// Join adds a participant to a review line. For multi-topic queues the topic
// selects the line and must name one that is open.
func (s *Service) Join(ctx context.Context, scope queue.Scope, participant int64, topic string) (*Result, error) {
	q, ok := s.dir.Get(scope)
	if !ok {
		return nil, queue.ErrNotFound
	}
	if q.Kind() == queue.KindQuestion {
		return nil, ErrWrongKind
	}
	res, err := q.Add(ctx, participant, topic)
	switch {
	case pkgerrors.Is(err, queue.ErrTopicNotOpen):
		return &Result{Message: fmt.Sprintf(
			"We aren't reviewing %s yet, so you'll have to wait until that queue opens.", topic)}, nil
	case err != nil:
		return nil, err
	}
	q.UpdateIndicator(ctx)
	if res.AlreadyQueued {
		ahead := res.Position - 1
		msg := "You are next in line!"
		if ahead > 0 {
			msg = fmt.Sprintf("There are still %d people waiting in front of you.", ahead)
		}
		return &Result{Message: "You're already in the queue! " + msg, Position: res.Position}, nil
	}
	return &Result{
		Message:  fmt.Sprintf("Added to the queue at position %d.", res.Position),
		Position: res.Position,
	}, nil
}

// Leave removes a participant from a queue. An empty topic leaves every
// line. Kicking somebody else goes through the same path.
func (s *Service) Leave(ctx context.Context, scope queue.Scope, participant int64, topic string) (*Result, error) {
	q, ok := s.dir.Get(scope)
	if !ok {
		return nil, queue.ErrNotFound
	}
	res, err := q.Remove(participant, topic)
	if pkgerrors.Is(err, queue.ErrNotFound) {
		return &Result{Message: "You don't appear to be in the queue."}, nil
	}
	if err != nil {
		return nil, err
	}
	q.UpdateIndicator(ctx)
	if len(res.Topics) > 0 {
		return &Result{Message: fmt.Sprintf("Removed from: %s.", strings.Join(res.Topics, ", "))}, nil
	}
	return &Result{Message: "Removed from the queue."}, nil
}

// WhereAmI reports the participant's positions in the scope's queue.
func (s *Service) WhereAmI(_ context.Context, scope queue.Scope, participant int64) (*Result, error) {
	q, ok := s.dir.Get(scope)
	if !ok {
		return nil, queue.ErrNotFound
	}
	entries := q.WhereIs(participant)
	if len(entries) == 0 {
		if q.Kind() == queue.KindQuestion {
			return &Result{Message: "You are not following any questions in this channel."}, nil
		}
		return &Result{Message: "You do not seem to be in any queue here."}, nil
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		switch {
		case q.Kind() == queue.KindQuestion:
			parts = append(parts, fmt.Sprintf("question %q at position %d", e.Topic, e.Position))
		case e.Topic != "":
			parts = append(parts, fmt.Sprintf("%s in queue %s", ordinal(e.Position), e.Topic))
		default:
			parts = append(parts, fmt.Sprintf("%s in the queue", ordinal(e.Position)))
		}
	}
	return &Result{Message: "You are: " + strings.Join(parts, ", ") + "."}, nil
}

// TakeNext serves the next ready participant to the operator. For
// multi-topic queues an empty topic defaults to the first non-empty line,
// and all=true first removes the operator's previous participant from every
// line they still wait in.
func (s *Service) TakeNext(ctx context.Context, scope queue.Scope, operator int64, topic string, all bool) (*Result, error) {
	q, ok := s.dir.Get(scope)
	if !ok {
		return nil, queue.ErrNotFound
	}

	var (
		res *queue.TakeResult
		err error
	)
	switch v := q.(type) {
	case *queue.ReviewQueue:
		res, err = v.TakeNext(ctx, operator)
	case *queue.MultiReviewQueue:
		if all {
			v.ClearServed(operator)
		}
		res, err = v.TakeNext(ctx, operator, topic)
	default:
		return nil, ErrWrongKind
	}

	switch {
	case pkgerrors.Is(err, queue.ErrOperatorNotReady):
		return &Result{Message: "Please select a voice channel first where you want to talk to the participant."}, nil
	case pkgerrors.Is(err, queue.ErrQueueEmpty):
		return &Result{Message: "Hurray, the queue is empty! Might want to check the other ones."}, nil
	case pkgerrors.Is(err, queue.ErrNoneReady):
		return &Result{Message: "There's nobody in the queue who is ready (in a voice channel)."}, nil
	case pkgerrors.Is(err, queue.ErrTopicNotOpen):
		return &Result{Message: fmt.Sprintf("Queue %s is not open.", topic)}, nil
	case err != nil:
		return nil, err
	}

	q.UpdateIndicator(ctx)
	if res.MoveFailed {
		return &Result{
			Message: fmt.Sprintf("Failed to move %d into your voice channel; they were put back in the queue.", res.Taken),
			Taken:   res.Taken, Topic: res.Topic,
		}, nil
	}
	msg := fmt.Sprintf("Now serving %d.", res.Taken)
	if res.Topic != "" {
		msg = fmt.Sprintf("Now serving %d from queue %s.", res.Taken, res.Topic)
	}
	return &Result{Message: msg, Taken: res.Taken, Topic: res.Topic}, nil
}

// PutBack returns the operator's current participant to the line at pos.
func (s *Service) PutBack(ctx context.Context, scope queue.Scope, operator int64, pos int) (*Result, error) {
	q, ok := s.dir.Get(scope)
	if !ok {
		return nil, queue.ErrNotFound
	}

	var (
		res *queue.PutBackResult
		err error
	)
	switch v := q.(type) {
	case *queue.ReviewQueue:
		res, err = v.PutBack(ctx, operator, pos)
	case *queue.MultiReviewQueue:
		res, err = v.PutBack(ctx, operator, pos)
	default:
		return nil, ErrWrongKind
	}
	if pkgerrors.Is(err, queue.ErrNoAssignment) {
		return &Result{Message: "You don't have a participant assigned to you yet."}, nil
	}
	if err != nil {
		return nil, err
	}
	q.UpdateIndicator(ctx)
	return &Result{
		Message:  fmt.Sprintf("Put %d back in the queue at position %d.", res.Participant, res.Position),
		Position: res.Position,
	}, nil
}

// StartReviewing opens a topic on the scope's review queue.
func (s *Service) StartReviewing(ctx context.Context, scope queue.Scope, topic string) (*Result, error) {
	q, ok := s.dir.Get(scope)
	if !ok {
		return nil, queue.ErrNotFound
	}
	var err error
	switch v := q.(type) {
	case *queue.ReviewQueue:
		err = v.StartReviewing(ctx, topic)
	case *queue.MultiReviewQueue:
		err = v.StartReviewing(ctx, topic)
	default:
		return nil, ErrWrongKind
	}
	if pkgerrors.Is(err, queue.ErrAlreadyExists) {
		return &Result{Message: fmt.Sprintf("%s is already being reviewed.", topic)}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Added queue for %s.", topic), Topic: topic}, nil
}

// StopReviewing closes a topic on the scope's review queue.
func (s *Service) StopReviewing(ctx context.Context, scope queue.Scope, topic string) (*Result, error) {
	q, ok := s.dir.Get(scope)
	if !ok {
		return nil, queue.ErrNotFound
	}
	var err error
	switch v := q.(type) {
	case *queue.ReviewQueue:
		err = v.StopReviewing(ctx, topic)
	case *queue.MultiReviewQueue:
		err = v.StopReviewing(ctx, topic)
	default:
		return nil, ErrWrongKind
	}
	if pkgerrors.Is(err, queue.ErrNotFound) {
		return &Result{Message: fmt.Sprintf("%s was not being reviewed.", topic)}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Removed queue for %s. Queue cleared.", topic), Topic: topic}, nil
}

// Ask adds a question to the scope's question queue.
func (s *Service) Ask(ctx context.Context, scope queue.Scope, asker int64, text string) (*Result, error) {
	qq, err := s.questionQueue(scope)
	if err != nil {
		return nil, err
	}
	res, err := qq.Add(ctx, asker, text)
	if pkgerrors.Is(err, queue.ErrEmptyQuestion) {
		return &Result{Message: "You can't ask without a question!"}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Result{
		Message: fmt.Sprintf("Your question was added at position %d with index %d.",
			res.Position, res.QuestionIndex),
		Position: res.Position,
		Index:    res.QuestionIndex,
	}, nil
}

// Follow subscribes the participant to a question. Index 0 lists the
// questions that can be followed instead.
func (s *Service) Follow(ctx context.Context, scope queue.Scope, participant int64, idx int) (*Result, error) {
	qq, err := s.questionQueue(scope)
	if err != nil {
		return nil, err
	}
	if idx == 0 {
		open := qq.Open()
		if len(open) == 0 {
			return &Result{Message: "There are no questions in the queue!"}, nil
		}
		var b strings.Builder
		b.WriteString("The following questions can be followed:\n")
		for _, qn := range open {
			fmt.Fprintf(&b, "- %02d: %s", qn.Index, qn.Text)
			for _, f := range qn.Followers {
				if f == participant {
					b.WriteString(" (already following)")
					break
				}
			}
			b.WriteString("\n")
		}
		return &Result{Message: b.String()}, nil
	}

	already, err := qq.Follow(ctx, participant, idx)
	if pkgerrors.Is(err, queue.ErrNotFound) {
		return &Result{Message: fmt.Sprintf("There's no question in the queue with index %d!", idx)}, nil
	}
	if err != nil {
		return nil, err
	}
	if already {
		return &Result{Message: fmt.Sprintf("You are already following question %d!", idx), Index: idx}, nil
	}
	return &Result{Message: fmt.Sprintf("You are now following question %d!", idx), Index: idx}, nil
}

// Answer resolves a question with text, or announces a voice answer in the
// operator's channel when text is empty.
func (s *Service) Answer(ctx context.Context, scope queue.Scope, operator int64, idx int, text string) (*Result, error) {
	qq, err := s.questionQueue(scope)
	if err != nil {
		return nil, err
	}
	res, err := qq.Answer(ctx, operator, idx, text)
	switch {
	case pkgerrors.Is(err, queue.ErrNotFound):
		return &Result{Message: fmt.Sprintf("No question in the queue with index %d!", idx)}, nil
	case pkgerrors.Is(err, queue.ErrOperatorNotReady):
		return &Result{Message: "Please select a voice channel first where you want to answer the question."}, nil
	case err != nil:
		return nil, err
	}
	switch {
	case res.SelfAnswered:
		return &Result{Message: "Well done! You solved your own question!", Index: idx}, nil
	case res.Voice:
		return &Result{
			Message: fmt.Sprintf("Question %d will be answered in voice channel %d.", idx, res.VoiceChannel),
			Index:   idx,
		}, nil
	}
	return &Result{Message: fmt.Sprintf("Question %d answered.", idx), Index: idx}, nil
}

// Amend appends to the answer of an answered question.
func (s *Service) Amend(ctx context.Context, scope queue.Scope, by int64, idx int, text string) (*Result, error) {
	qq, err := s.questionQueue(scope)
	if err != nil {
		return nil, err
	}
	err = qq.Amend(ctx, by, idx, text)
	if pkgerrors.Is(err, queue.ErrNotFound) {
		return &Result{Message: fmt.Sprintf("No answered question found with index %d.", idx)}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Amended the answer to question %d.", idx), Index: idx}, nil
}

// QueueInfo is one row of the queue listing.
type QueueInfo struct {
	Scope queue.Scope `json:"scope"`
	Kind  queue.Kind  `json:"kind"`
	Names queue.Names `json:"names"`
	Size  int         `json:"size"`
}

// List describes every live queue.
func (s *Service) List(_ context.Context) []QueueInfo {
	var out []QueueInfo
	for _, scope := range s.dir.Scopes() {
		q, ok := s.dir.Get(scope)
		if !ok {
			continue
		}
		out = append(out, QueueInfo{Scope: scope, Kind: q.Kind(), Names: q.Names(), Size: q.Size()})
	}
	return out
}

// Entries snapshots the scope's queue, optionally filtered by a CEL
// expression over participant, topic, position, and size.
func (s *Service) Entries(_ context.Context, scope queue.Scope, filterExpr string) ([]queue.Entry, error) {
	q, ok := s.dir.Get(scope)
	if !ok {
		return nil, queue.ErrNotFound
	}
	filter, err := newEntryFilter(filterExpr)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "compile filter")
	}
	all := q.Entries()
	size := q.Size()
	out := make([]queue.Entry, 0, len(all))
	for _, e := range all {
		if filter.Eval(e, size) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Save persists one scope's queue.
func (s *Service) Save(ctx context.Context, scope queue.Scope) (*Result, error) {
	if err := s.dir.Save(ctx, scope); err != nil {
		return nil, err
	}
	return &Result{Message: "Queue saved."}, nil
}

// Load restores one scope's queue from storage.
func (s *Service) Load(ctx context.Context, scope queue.Scope) (*Result, error) {
	q, err := s.dir.Load(ctx, scope)
	if pkgerrors.Is(err, queue.ErrNotFound) {
		return &Result{Message: "No saved queue available for this channel."}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Loaded a %s queue with %d entries.", q.Kind(), q.Size())}, nil
}

// SaveAll persists every live queue.
func (s *Service) SaveAll(ctx context.Context) (*Result, error) {
	n, err := s.dir.SaveAll(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Saved %d queues.", n)}, nil
}

// LoadAll restores every saved queue.
func (s *Service) LoadAll(ctx context.Context) (*Result, error) {
	n, err := s.dir.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Loaded %d queues.", n)}, nil
}

func (s *Service) questionQueue(scope queue.Scope) (*queue.QuestionQueue, error) {
	q, ok := s.dir.Get(scope)
	if !ok {
		return nil, queue.ErrNotFound
	}
	qq, ok := q.(*queue.QuestionQueue)
	if !ok {
		return nil, ErrWrongKind
	}
	return qq, nil
}

func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
