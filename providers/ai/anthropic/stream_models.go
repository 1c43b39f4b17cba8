package anthropic

import (
	"encoding/json"
	"fmt"
)

/*
	ANTHROPIC SSE STREAMING - WIRE TYPES

	Streaming responses arrive as SSE with "event:" discriminator lines and
	"data:" JSON payloads. The payload repeats the discriminator in its
	"type" field, so the decoder works from the data lines alone.

	Event lifecycle:
	  message_start → (content_block_start → content_block_delta* →
	  content_block_stop)* → message_delta → message_stop
*/

// anthropicStreamEvent is the envelope shared by every SSE event. Type
// discriminates which optional fields are populated.
type anthropicStreamEvent struct {
	Type         string                `json:"type"`
	Message      *anthropicResponse    `json:"message,omitempty"`       // message_start
	Index        int                   `json:"index,omitempty"`         // content_block_start/delta/stop
	ContentBlock *responseContentBlock `json:"content_block,omitempty"` // content_block_start
	Delta        *streamDelta          `json:"delta,omitempty"`         // content_block_delta, message_delta
	Usage        *anthropicUsage       `json:"usage,omitempty"`         // message_delta
	Error        *anthropicStreamError `json:"error,omitempty"`         // error
}

// streamDelta carries the incremental payload of a delta event:
//   - "text_delta": Text
//   - "input_json_delta": PartialJSON (a tool call's argument fragment)
//   - message_delta (no Type): StopReason, StopSequence
type streamDelta struct {
	Type         string `json:"type,omitempty"`
	Text         string `json:"text,omitempty"`
	PartialJSON  string `json:"partial_json,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
	StopSequence string `json:"stop_sequence,omitempty"`
}

// anthropicStreamError is the payload of an in-band "error" event.
type anthropicStreamError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// unmarshalStreamEvent parses one SSE data payload. A missing type field is
// rejected because nothing downstream could route the event.
func unmarshalStreamEvent(payload string) (*anthropicStreamEvent, error) {
	var event anthropicStreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		return nil, fmt.Errorf("missing type field in stream event")
	}
	return &event, nil
}
