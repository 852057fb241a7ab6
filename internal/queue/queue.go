package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/CryLyo/EduBot/internal/platform"
	logpkg "github.com/CryLyo/EduBot/pkg/log"
)

// Kind tags the concrete queue variant. The values double as the `qtype`
// discriminator in the persisted envelope.
type Kind string

// Queue kinds
const (
	KindReview      Kind = "Review"
	KindMultiReview Kind = "MultiReview"
	KindQuestion    Kind = "Question"
)

// Valid reports whether k names a known queue kind.
func (k Kind) Valid() bool {
	switch k {
	case KindReview, KindMultiReview, KindQuestion:
		return true
	}
	return false
}

// Scope is the (guild, channel) pair that uniquely identifies one live queue.
type Scope struct {
	Guild   int64
	Channel int64
}

func (s Scope) String() string { return fmt.Sprintf("%d-%d", s.Guild, s.Channel) }

// Names carries display names for messages only; never authoritative.
type Names struct {
	Guild   string
	Channel string
}

// Deps are the external capabilities injected into every queue instance.
type Deps struct {
	Chat   platform.Chat
	Logger logpkg.Logger
}

// Entry is one row of a queue snapshot, used for listings and filtering.
type Entry struct {
	Participant int64
	Topic       string
	Position    int // 1-based within its line
}

// Queue is the contract shared by all queue variants.
type Queue interface {
	Scope() Scope
	Kind() Kind
	Names() Names

	// Size is the count of distinct participants across all lines.
	Size() int

	// Add appends a participant (or question asker, for question queues).
	// Topic selects the line for multi-topic queues and is ignored otherwise.
	Add(ctx context.Context, participant int64, topic string) (*AddResult, error)

	// Remove takes a participant out. An empty topic means "from every line".
	Remove(participant int64, topic string) (*RemoveResult, error)

	// WhereIs reports the participant's 1-based position in every line that
	// contains them. Empty result means not queued.
	WhereIs(participant int64) []Entry

	// Entries snapshots the queue contents in order.
	Entries() []Entry

	// MarshalBody serializes the kind-specific `qdata` body.
	MarshalBody() ([]byte, error)

	// UnmarshalBody rebuilds the queue contents from a `qdata` body.
	UnmarshalBody(data []byte) error

	// UpdateIndicator replaces the live status message for this queue.
	UpdateIndicator(ctx context.Context)
}

// AddResult reports the outcome of an Add.
type AddResult struct {
	// Position is the 1-based position in the joined line.
	Position int
	// AlreadyQueued is set when the participant was present already; Position
	// then reports where they were, and nothing was mutated.
	AlreadyQueued bool
	// QuestionIndex is the assigned index, for question queues.
	QuestionIndex int
}

// RemoveResult reports the outcome of a Remove.
type RemoveResult struct {
	// Topics lists the lines the participant was removed from.
	Topics []string
}

// base carries the state common to every variant. One mutex per live queue:
// an operation holds it for its full duration, so per-scope operations never
// interleave (scopes are fully independent).
type base struct {
	mu    sync.Mutex
	scope Scope
	names Names
	deps  Deps

	// indicator is the live status message this queue exclusively owns.
	// Shared by pointer across a type conversion so the replacement queue
	// keeps replacing the same message.
	indicator *platform.MessageRef
}

func newBase(scope Scope, names Names, deps Deps) base {
	if deps.Logger == nil {
		deps.Logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	return base{scope: scope, names: names, deps: deps}
}

func (b *base) Scope() Scope { return b.scope }
func (b *base) Names() Names { return b.names }

// redrawIndicator deletes the previous status message and posts text as the
// new one. Failures are swallowed: the indicator is cosmetic state.
func (b *base) redrawIndicator(ctx context.Context, text string) {
	if b.indicator != nil {
		_ = b.deps.Chat.Delete(ctx, *b.indicator)
	}
	ref, err := b.deps.Chat.Post(ctx, b.scope.Channel, text)
	if err != nil {
		b.deps.Logger.Warn("indicator post failed",
			logpkg.Str("scope", b.scope.String()), logpkg.Err(err))
		return
	}
	if b.indicator == nil {
		b.indicator = &platform.MessageRef{}
	}
	*b.indicator = ref
}

// notify sends a best-effort direct message; failures are logged and dropped.
func (b *base) notify(ctx context.Context, participant int64, text string) {
	if err := b.deps.Chat.Notify(ctx, participant, text); err != nil {
		b.deps.Logger.Debug("notify failed",
			logpkg.Int64("participant", participant), logpkg.Err(err))
	}
}
