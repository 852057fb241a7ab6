package platform

import (
	"context"
	"errors"
)

// ErrUnknownUser is returned by Resolve when the chat platform has no record
// of the requested participant.
var ErrUnknownUser = errors.New("platform: unknown user")

// Participant is the chat platform's view of a user.
type Participant struct {
	ID   int64
	Name string
}

// MessageRef identifies a message previously posted to a channel, so it can
// be deleted and replaced later.
type MessageRef struct {
	Channel int64
	ID      string
}

// Chat abstracts the chat platform capabilities the queue engine consumes.
// Notify is best-effort: callers log and drop its errors.
type Chat interface {
	// Resolve looks up a participant by id.
	Resolve(ctx context.Context, id int64) (Participant, error)

	// Notify sends a direct message to a participant.
	Notify(ctx context.Context, id int64, text string) error

	// VoiceChannel reports the voice channel a participant currently occupies.
	VoiceChannel(ctx context.Context, id int64) (int64, bool)

	// IsStreaming reports whether the participant is broadcasting their screen.
	IsStreaming(ctx context.Context, id int64) bool

	// Move places a participant into the given voice channel.
	Move(ctx context.Context, id int64, channel int64) error

	// Post sends a message to a text channel and returns a reference to it.
	Post(ctx context.Context, channel int64, text string) (MessageRef, error)

	// Delete removes a previously posted message.
	Delete(ctx context.Context, ref MessageRef) error
}

// ReadyToMove reports whether a participant can be pulled into a discussion
// channel: present in a voice channel and not screen-broadcasting.
func ReadyToMove(ctx context.Context, chat Chat, id int64) bool {
	if _, ok := chat.VoiceChannel(ctx, id); !ok {
		return false
	}
	return !chat.IsStreaming(ctx, id)
}
