package codec

import (
	"bytes"
	"fmt"
)

const (
	keyArgs       = "args"
	keyReturnArgs = "return_args"
	keyWorkflowID = "workflow_id"
	keyError      = "error"
)

// Envelope is the unit exchanged on the wire. Requests, publications and state updates carry
// Args; replies carry ReturnArgs, or Error if the replying side failed. Empty fields are omitted.
type Envelope struct {
	Args       map[string]any
	ReturnArgs map[string]any
	WorkflowID string
	Error      string
}

func (e Envelope) toMap() map[string]any {
	m := make(map[string]any, 2)
	if e.Args != nil {
		m[keyArgs] = e.Args
	}
	if e.ReturnArgs != nil {
		m[keyReturnArgs] = e.ReturnArgs
	}
	if e.WorkflowID != "" {
		m[keyWorkflowID] = e.WorkflowID
	}
	if e.Error != "" {
		m[keyError] = e.Error
	}
	return m
}

func envelopeFromValue(v any) (Envelope, error) {
	var env Envelope

	m, ok := v.(map[string]any)
	if !ok {
		return env, fmt.Errorf("codec: envelope is %T, not a map", v)
	}

	if raw, present := m[keyArgs]; present && raw != nil {
		if env.Args, ok = raw.(map[string]any); !ok {
			return env, fmt.Errorf("codec: envelope args is %T, not a map", raw)
		}
	}
	if raw, present := m[keyReturnArgs]; present && raw != nil {
		if env.ReturnArgs, ok = raw.(map[string]any); !ok {
			return env, fmt.Errorf("codec: envelope return_args is %T, not a map", raw)
		}
	}
	if raw, present := m[keyWorkflowID]; present && raw != nil {
		env.WorkflowID = fmt.Sprint(raw)
	}
	if raw, present := m[keyError]; present && raw != nil {
		env.Error = fmt.Sprint(raw)
	}
	return env, nil
}

// EncodeEnvelope serializes env without a topic.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	return Encode(env.toMap())
}

// DecodeEnvelope deserializes an envelope without a topic frame.
func DecodeEnvelope(b []byte) (Envelope, error) {
	v, err := Decode(b)
	if err != nil {
		return Envelope{}, err
	}
	return envelopeFromValue(v)
}

// TopicPrefix is the byte prefix subscribers filter on for topic.
func TopicPrefix(topic string) ([]byte, error) {
	if topic == "" {
		return []byte{}, nil
	}
	return Encode(topic)
}

// EncodeFrame serializes env, prefixed with the encoded topic if topic is not empty.
func EncodeFrame(topic string, env Envelope) ([]byte, error) {
	prefix, err := TopicPrefix(topic)
	if err != nil {
		return nil, err
	}
	body, err := EncodeEnvelope(env)
	if err != nil {
		return nil, err
	}
	return append(prefix, body...), nil
}

// DecodeFrame splits off an optional topic and decodes the envelope that follows.
// An envelope is always a map, so a leading string is the topic.
func DecodeFrame(b []byte) (topic string, env Envelope, err error) {
	dec := newDecoder(b)

	first, err := dec.DecodeInterface()
	if err != nil {
		return "", env, fmt.Errorf("codec: decode frame: %w", err)
	}

	if s, ok := first.(string); ok {
		topic = s
		first, err = dec.DecodeInterface()
		if err != nil {
			return topic, env, fmt.Errorf("codec: decode frame after topic %q: %w", topic, err)
		}
	}

	v, err := unwrap(first)
	if err != nil {
		return topic, env, err
	}
	env, err = envelopeFromValue(v)
	return topic, env, err
}

// HasTopic reports whether frame starts with the encoded topic.
func HasTopic(frame []byte, topic string) bool {
	prefix, err := TopicPrefix(topic)
	if err != nil {
		return false
	}
	return bytes.HasPrefix(frame, prefix)
}
