package queue

import "errors"

// Operation failure taxonomy. All of these are recovered by callers and
// turned into informational messages for the invoking user; none is fatal.
var (
	// ErrNotFound indicates a participant, topic, or question index that is
	// not present where the operation expected it.
	ErrNotFound = errors.New("queue: not found")

	// ErrAlreadyExists indicates a duplicate queue or topic.
	ErrAlreadyExists = errors.New("queue: already exists")

	// ErrQueueEmpty indicates there is nobody to take from the line.
	ErrQueueEmpty = errors.New("queue: empty")

	// ErrNoneReady indicates that nobody currently in the line can be moved
	// to a voice channel.
	ErrNoneReady = errors.New("queue: nobody ready")

	// ErrOperatorNotReady indicates the calling operator is not in a voice
	// channel, so there is nowhere to move a participant to.
	ErrOperatorNotReady = errors.New("queue: operator not in a voice channel")

	// ErrNoAssignment indicates a put-back with no participant held.
	ErrNoAssignment = errors.New("queue: no participant assigned")

	// ErrTopicRequired indicates an operation on a multi-topic queue that
	// needs an explicit topic.
	ErrTopicRequired = errors.New("queue: topic required")

	// ErrTopicNotOpen indicates an attempt to join a topic line that is not
	// being reviewed yet. Informational, not a failure of the queue.
	ErrTopicNotOpen = errors.New("queue: topic not open for review")

	// ErrEmptyQuestion indicates an ask with no question text.
	ErrEmptyQuestion = errors.New("queue: empty question")
)
