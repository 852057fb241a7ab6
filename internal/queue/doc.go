// Package queue implements the waiting-line engine: ordered review lines,
// multi-topic parallel lines, and question queues, each scoped to one
// (guild, channel) pair.
//
// # Kinds
//
// Three queue kinds share the Queue contract. ReviewQueue is a single FIFO
// line for channels reviewing one assignment at a time. MultiReviewQueue
// keeps one line per open topic so several assignments can be reviewed in
// parallel. QuestionQueue collects questions with follower lists and an
// answered archive.
//
// # Concurrency
//
// Each live queue carries one mutex held for the full duration of an
// operation, so operations on a scope never interleave. Different scopes
// are fully independent. Chat notifications are best-effort and never fail
// an operation.
//
// # Persistence
//
// Queues serialize into a kind-tagged envelope (see Envelope); bodies are
// kind-specific. Assignments held by operators and answered questions are
// session state and do not survive a save/load cycle.
package queue
