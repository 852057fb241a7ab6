package queue

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Envelope is the persisted wire format shared by all queue kinds. The body
// layout under qdata is kind-specific.
type Envelope struct {
	Qtype     Kind            `json:"qtype"`
	Guildname string          `json:"guildname"`
	Channame  string          `json:"channame"`
	Qdata     json.RawMessage `json:"qdata"`
}

// New constructs an empty queue of the given kind.
func New(kind Kind, scope Scope, names Names, deps Deps) (Queue, error) {
	switch kind {
	case KindReview:
		return NewReview(scope, names, deps), nil
	case KindMultiReview:
		return NewMultiReview(scope, names, deps), nil
	case KindQuestion:
		return NewQuestion(scope, names, deps), nil
	}
	return nil, errors.Errorf("unknown queue kind %q", kind)
}

// Marshal serializes a queue into its envelope.
func Marshal(q Queue) ([]byte, error) {
	body, err := q.MarshalBody()
	if err != nil {
		return nil, errors.Wrap(err, "marshal queue body")
	}
	names := q.Names()
	return json.Marshal(Envelope{
		Qtype:     q.Kind(),
		Guildname: names.Guild,
		Channame:  names.Channel,
		Qdata:     body,
	})
}

// Unmarshal rebuilds a queue from its envelope. The scope is not part of the
// envelope; callers derive it from where the document was stored.
func Unmarshal(scope Scope, data []byte, deps Deps) (Queue, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "unmarshal queue envelope")
	}
	if !env.Qtype.Valid() {
		return nil, errors.Errorf("unknown queue kind %q", env.Qtype)
	}
	q, err := New(env.Qtype, scope, Names{Guild: env.Guildname, Channel: env.Channame}, deps)
	if err != nil {
		return nil, err
	}
	if len(env.Qdata) > 0 {
		if err := q.UnmarshalBody(env.Qdata); err != nil {
			return nil, errors.Wrapf(err, "unmarshal %s queue body", env.Qtype)
		}
	}
	return q, nil
}
