package queue

import (
	"context"
	"strings"

	"github.com/CryLyo/EduBot/internal/platform"
)

// defaultPutBackPos is where a participant lands when a move into the
// operator's channel fails and they are put back automatically.
const defaultPutBackPos = 10

// takeFromLine pops front participants until one is ready to be moved.
// Everyone skipped is notified and accumulated in order. If the line runs
// out before a ready participant is found, it is restored to exactly the
// skipped participants and ErrNoneReady is returned; otherwise the skipped
// participants are spliced back in and the ready participant is returned.
// Caller holds the queue mutex and has checked the line is non-empty.
func (b *base) takeFromLine(ctx context.Context, line *Line) (taken int64, skipped int, err error) {
	uid, _ := line.PopFront()
	var unready Line
	for !platform.ReadyToMove(ctx, b.deps.Chat, uid) {
		b.notify(ctx, uid, msgNotReadyWarning)
		unready = append(unready, uid)
		next, ok := line.PopFront()
		if !ok {
			*line = unready
			return 0, 0, ErrNoneReady
		}
		uid = next
	}
	*line = reinsertUnready(*line, unready)
	return uid, len(unready), nil
}

// notifyUpcoming tells the participants now at positions 1, 2, and 5 how
// close they are. All best-effort.
func (b *base) notifyUpcoming(ctx context.Context, line Line) {
	if len(line) > 0 {
		b.notify(ctx, line[0], b.upcomingText(ctx, line[0], "You are next in the queue!"))
	}
	if len(line) > 1 {
		b.notify(ctx, line[1], b.upcomingText(ctx, line[1], "You are second in the queue."))
	}
	if len(line) > 4 {
		b.notify(ctx, line[4], b.upcomingText(ctx, line[4], "You are fifth in the queue."))
	}
}

// upcomingText appends a voice-channel reminder when the recipient is not
// in one yet.
func (b *base) upcomingText(ctx context.Context, participant int64, text string) string {
	if _, ok := b.deps.Chat.VoiceChannel(ctx, participant); !ok {
		return text + msgJoinVoiceSuffix
	}
	return text
}

const (
	msgNotReadyWarning = "A reviewer tried to invite you, but you are not ready to join " +
		"a voice channel. You have been placed back in the queue."
	msgPutBack         = "You have been placed back in the queue."
	msgJoinVoiceSuffix = " Please join a voice channel so you can be moved!"

	indicatorFooter = "React with a thumbs-up to join the queue, remove your reaction to leave it."
)

// joinTopics renders an open-topic list for indicator headers.
func joinTopics(topics []string) string {
	if len(topics) == 0 {
		return "(none open)"
	}
	return strings.Join(topics, ", ")
}
