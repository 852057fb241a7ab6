// Package fake provides an in-memory Chat implementation.
//
// It backs tests and local runs of the server when no real chat adapter is
// configured. Presence and streaming state are scripted by the caller;
// notifications, moves, and posts are recorded for inspection.
package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/CryLyo/EduBot/internal/platform"
	"github.com/google/uuid"
)

// Notice is one recorded direct message.
type Notice struct {
	To   int64
	Text string
}

// Move is one recorded voice-channel move.
type Move struct {
	User    int64
	Channel int64
}

// Post is one recorded channel message.
type Post struct {
	Ref  platform.MessageRef
	Text string
}

// Chat is an in-memory platform.Chat with scripted presence and failure
// injection. Zero value is not usable; construct with New.
type Chat struct {
	mu sync.Mutex

	users     map[int64]platform.Participant
	voice     map[int64]int64
	streaming map[int64]bool

	failNotify map[int64]bool
	failMove   map[int64]bool

	notices []Notice
	moves   []Move
	posts   []Post
	deleted []platform.MessageRef
}

// New returns an empty fake chat.
func New() *Chat {
	return &Chat{
		users:      make(map[int64]platform.Participant),
		voice:      make(map[int64]int64),
		streaming:  make(map[int64]bool),
		failNotify: make(map[int64]bool),
		failMove:   make(map[int64]bool),
	}
}

// AddUser registers a participant.
func (c *Chat) AddUser(id int64, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[id] = platform.Participant{ID: id, Name: name}
}

// JoinVoice puts a user into a voice channel.
func (c *Chat) JoinVoice(id, channel int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voice[id] = channel
}

// LeaveVoice removes a user from voice.
func (c *Chat) LeaveVoice(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.voice, id)
}

// SetStreaming marks a user as screen-broadcasting.
func (c *Chat) SetStreaming(id int64, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streaming[id] = on
}

// FailNotify makes Notify fail for the given user.
func (c *Chat) FailNotify(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNotify[id] = true
}

// FailMove makes Move fail for the given user.
func (c *Chat) FailMove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failMove[id] = true
}

// Notices returns a copy of recorded direct messages.
func (c *Chat) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notice(nil), c.notices...)
}

// Moves returns a copy of recorded voice moves.
func (c *Chat) Moves() []Move {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Move(nil), c.moves...)
}

// Posts returns a copy of recorded channel messages.
func (c *Chat) Posts() []Post {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Post(nil), c.posts...)
}

// Deleted returns refs of deleted messages.
func (c *Chat) Deleted() []platform.MessageRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]platform.MessageRef(nil), c.deleted...)
}

// Resolve implements platform.Chat.
func (c *Chat) Resolve(_ context.Context, id int64) (platform.Participant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.users[id]
	if !ok {
		return platform.Participant{}, platform.ErrUnknownUser
	}
	return p, nil
}

// Notify implements platform.Chat.
func (c *Chat) Notify(_ context.Context, id int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNotify[id] {
		return errors.New("fake: notify failed")
	}
	c.notices = append(c.notices, Notice{To: id, Text: text})
	return nil
}

// VoiceChannel implements platform.Chat.
func (c *Chat) VoiceChannel(_ context.Context, id int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.voice[id]
	return ch, ok
}

// IsStreaming implements platform.Chat.
func (c *Chat) IsStreaming(_ context.Context, id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming[id]
}

// Move implements platform.Chat.
func (c *Chat) Move(_ context.Context, id int64, channel int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failMove[id] {
		return errors.New("fake: move failed")
	}
	c.voice[id] = channel
	c.moves = append(c.moves, Move{User: id, Channel: channel})
	return nil
}

// Post implements platform.Chat.
func (c *Chat) Post(_ context.Context, channel int64, text string) (platform.MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := platform.MessageRef{Channel: channel, ID: uuid.NewString()}
	c.posts = append(c.posts, Post{Ref: ref, Text: text})
	return ref, nil
}

// Delete implements platform.Chat.
func (c *Chat) Delete(_ context.Context, ref platform.MessageRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, ref)
	return nil
}
