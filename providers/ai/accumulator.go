package ai

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/modelmux/modelmux/internal/utils"
)

// ToolCallAccumulator assembles streamed tool-call fragments into complete
// calls. The lifecycle per index is open → append* → close: [Open] records
// the header (ID and function name arrive only on the first fragment),
// [Append] concatenates argument fragments in arrival order, and [Close]
// yields the finished call with syntactically valid JSON arguments.
//
// Arguments are only guaranteed to parse after Close: fragments split JSON
// at arbitrary byte positions, so intermediate states are routinely invalid.
// Close repairs near-miss JSON (truncation, quoting defects) and reports an
// error when no valid document can be recovered.
//
// State is per-stream and not safe for concurrent use.
type ToolCallAccumulator struct {
	builders map[int]*toolCallBuilder
	order    []int
}

type toolCallBuilder struct {
	id        string
	name      string
	arguments strings.Builder
}

// NewToolCallAccumulator returns an empty accumulator.
func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{builders: map[int]*toolCallBuilder{}}
}

// Open starts (or re-opens) accumulation for index, recording whichever
// header fields are present. Repeated opens merge: a later non-empty ID or
// name fills a gap but never overwrites an earlier value.
func (acc *ToolCallAccumulator) Open(index int, id, name string) {
	builder, ok := acc.builders[index]
	if !ok {
		builder = &toolCallBuilder{}
		acc.builders[index] = builder
		acc.order = append(acc.order, index)
	}
	if builder.id == "" {
		builder.id = id
	}
	if builder.name == "" {
		builder.name = name
	}
}

// Append adds an argument fragment to the call at index. It fails when no
// call has been opened for index; streaming decoders surface that as a
// protocol violation.
func (acc *ToolCallAccumulator) Append(index int, fragment string) error {
	builder, ok := acc.builders[index]
	if !ok {
		return fmt.Errorf("no open tool call at index %d", index)
	}
	builder.arguments.WriteString(fragment)
	return nil
}

// Add merges a complete delta: it opens the index if needed and appends any
// argument fragment. This is the entry point for OpenAI-style streams, where
// the header and the first argument fragment share one delta.
func (acc *ToolCallAccumulator) Add(delta ToolCallDelta) {
	acc.Open(delta.Index, delta.ID, delta.Name)
	if delta.Arguments != "" {
		// Cannot fail: Open just ensured the builder exists.
		_ = acc.Append(delta.Index, delta.Arguments)
	}
}

// Close completes the call at index. Empty arguments become an empty object;
// invalid concatenations are repaired before being rejected. A provider that
// never supplied an ID gets a generated one, so downstream tool dispatch can
// always correlate results.
func (acc *ToolCallAccumulator) Close(index int) (ToolCall, error) {
	builder, ok := acc.builders[index]
	if !ok {
		return ToolCall{}, fmt.Errorf("no open tool call at index %d", index)
	}

	arguments, err := utils.RepairJSON(builder.arguments.String())
	if err != nil {
		return ToolCall{}, fmt.Errorf("tool call %d arguments: %w", index, err)
	}

	id := builder.id
	if id == "" {
		id = "call_" + uuid.NewString()
	}

	return ToolCall{
		ID:   id,
		Type: "function",
		Function: ToolCallFunction{
			Name:      builder.name,
			Arguments: arguments,
		},
	}, nil
}

// Finalize closes every accumulated call in first-seen order. It returns nil
// when nothing was accumulated.
func (acc *ToolCallAccumulator) Finalize() ([]ToolCall, error) {
	if len(acc.order) == 0 {
		return nil, nil
	}

	result := make([]ToolCall, 0, len(acc.order))
	for _, index := range acc.order {
		call, err := acc.Close(index)
		if err != nil {
			return result, err
		}
		result = append(result, call)
	}
	return result, nil
}

// Len returns how many distinct tool calls have been opened.
func (acc *ToolCallAccumulator) Len() int {
	return len(acc.order)
}
