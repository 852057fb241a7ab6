package queue

import (
	"github.com/pkg/errors"
)

// Convert rebuilds a review queue as the other review kind, preserving
// waiting participants, open topics, and the live indicator message. The
// seed topic names the line the existing participants land in when a
// single-topic queue without open topics becomes multi-topic.
//
// Question queues cannot be converted: their contents have no line shape.
func Convert(old Queue, target Kind, seedTopic string) (Queue, error) {
	if old.Kind() == target {
		return nil, ErrAlreadyExists
	}
	switch src := old.(type) {
	case *ReviewQueue:
		if target != KindMultiReview {
			return nil, errors.Errorf("cannot convert %s queue to %s", old.Kind(), target)
		}
		return convertToMulti(src, seedTopic)
	case *MultiReviewQueue:
		if target != KindReview {
			return nil, errors.Errorf("cannot convert %s queue to %s", old.Kind(), target)
		}
		return convertToSingle(src), nil
	}
	return nil, errors.Errorf("cannot convert %s queue to %s", old.Kind(), target)
}

func convertToMulti(src *ReviewQueue, seedTopic string) (*MultiReviewQueue, error) {
	src.mu.Lock()
	defer src.mu.Unlock()

	topics := append([]string(nil), src.topics...)
	if len(topics) == 0 {
		if seedTopic == "" {
			return nil, ErrTopicRequired
		}
		topics = []string{seedTopic}
	}

	dst := NewMultiReview(src.scope, src.names, src.deps)
	dst.indicator = src.indicator
	dst.topics = topics
	for _, t := range topics {
		dst.lines[t] = Line{}
	}
	// The whole single line lands in the first open topic.
	first := topics[0]
	dst.lines[first] = src.line.Clone()
	for _, id := range src.line {
		dst.indexAdd(id, first)
	}
	return dst, nil
}

func convertToSingle(src *MultiReviewQueue) *ReviewQueue {
	src.mu.Lock()
	defer src.mu.Unlock()

	dst := NewReview(src.scope, src.names, src.deps)
	dst.indicator = src.indicator
	dst.topics = append([]string(nil), src.topics...)
	// Flatten topic lines in order; a participant waiting in several lines
	// keeps only their earliest slot.
	for _, t := range src.topics {
		for _, id := range src.lines[t] {
			dst.line.Append(id)
		}
	}
	return dst
}
