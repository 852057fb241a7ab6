package queue

// Line is one ordered FIFO sequence of participant ids. A participant appears
// at most once per line; Append enforces this.
type Line []int64

// IndexOf returns the 0-based index of participant, or -1.
func (l Line) IndexOf(participant int64) int {
	for i, id := range l {
		if id == participant {
			return i
		}
	}
	return -1
}

// Contains reports membership.
func (l Line) Contains(participant int64) bool { return l.IndexOf(participant) >= 0 }

// Append adds the participant at the back if absent. It returns the 1-based
// position and whether the participant was already present.
func (l *Line) Append(participant int64) (pos int, existed bool) {
	if i := l.IndexOf(participant); i >= 0 {
		return i + 1, true
	}
	*l = append(*l, participant)
	return len(*l), false
}

// Remove deletes the participant, preserving order. Returns false if absent.
func (l *Line) Remove(participant int64) bool {
	i := l.IndexOf(participant)
	if i < 0 {
		return false
	}
	*l = append((*l)[:i], (*l)[i+1:]...)
	return true
}

// Insert places the participant at index pos; past-the-end appends.
func (l *Line) Insert(pos int, participant int64) {
	if pos < 0 {
		pos = 0
	}
	if pos >= len(*l) {
		*l = append(*l, participant)
		return
	}
	*l = append(*l, 0)
	copy((*l)[pos+1:], (*l)[pos:])
	(*l)[pos] = participant
}

// PopFront removes and returns the front participant.
func (l *Line) PopFront() (int64, bool) {
	if len(*l) == 0 {
		return 0, false
	}
	front := (*l)[0]
	*l = (*l)[1:]
	return front, true
}

// Clone returns an independent copy.
func (l Line) Clone() Line { return append(Line(nil), l...) }

// maxUnreadyInsert caps how deep unready participants are re-inserted.
const maxUnreadyInsert = 10

// reinsertUnready splices skipped participants back into the line left after
// a take. Priority goes to those who are ready, but a short line must not
// push the unready all the way to the back, and a long line must not let
// them block the front: short lines get them appended, longer lines get them
// spliced near the midpoint, capped at position 10.
func reinsertUnready(remaining, unready Line) Line {
	if len(unready) == 0 {
		return remaining
	}
	if len(remaining) <= len(unready) {
		return append(remaining, unready...)
	}
	insertPos := len(remaining) / 2
	if insertPos > maxUnreadyInsert {
		insertPos = maxUnreadyInsert
	}
	out := make(Line, 0, len(remaining)+len(unready))
	out = append(out, remaining[:insertPos]...)
	out = append(out, unready...)
	out = append(out, remaining[insertPos:]...)
	return out
}
