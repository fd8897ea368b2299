package message

import "strings"

// Accumulator folds a chunk stream into the parts of an in-progress
// assistant message. Consecutive text deltas are coalesced into one running
// buffer and flushed into a single text part on the end-of-text signal; tool
// output events mutate the existing tool part addressed by invocation id.
type Accumulator struct {
	parts []Part
	text  strings.Builder
	meta  *Metadata
}

// Apply folds one chunk into the accumulated state. Chunks that do not
// contribute to message content (finish, error, question, need-auth) are
// ignored here; the orchestrator handles them.
func (a *Accumulator) Apply(c Chunk) {
	switch c.Type {
	case ChunkTextDelta:
		a.text.WriteString(c.Text)

	case ChunkTextEnd:
		a.flushText()

	case ChunkToolInput:
		// A tool call starting implies the preceding text span ended even
		// if the runtime never sent an explicit end-of-text.
		a.flushText()
		a.parts = append(a.parts, Part{
			Type:         PartTool,
			ToolName:     c.ToolName,
			InvocationID: c.InvocationID,
			Input:        c.Input,
			State:        ToolStateCall,
		})

	case ChunkToolOutput:
		for i := range a.parts {
			if a.parts[i].Type == PartTool && a.parts[i].InvocationID == c.InvocationID {
				a.parts[i].Output = c.Output
				a.parts[i].State = ToolStateResult
				return
			}
		}
		// Output with no recorded call: keep it rather than drop it, but
		// never duplicate an existing invocation id.
		a.parts = append(a.parts, Part{
			Type:         PartTool,
			ToolName:     c.ToolName,
			InvocationID: c.InvocationID,
			Output:       c.Output,
			State:        ToolStateResult,
		})

	case ChunkMetadata:
		a.mergeMeta(c.Meta)

	case ChunkSystem:
		a.flushText()
		a.parts = append(a.parts, Part{Type: PartSystem, Marker: c.Marker})
	}
}

func (a *Accumulator) flushText() {
	if a.text.Len() == 0 {
		return
	}
	a.parts = append(a.parts, Part{Type: PartText, Text: a.text.String()})
	a.text.Reset()
}

func (a *Accumulator) mergeMeta(m *Metadata) {
	if m == nil {
		return
	}
	if a.meta == nil {
		a.meta = &Metadata{}
	}
	if m.ResumeID != "" {
		a.meta.ResumeID = m.ResumeID
	}
	if m.MessageUUID != "" {
		a.meta.MessageUUID = m.MessageUUID
	}
	if m.Usage != nil {
		a.meta.Usage = m.Usage
	}
	if m.CostUSD != 0 {
		a.meta.CostUSD = m.CostUSD
	}
}

// ResumeID returns the upstream session id captured so far, if any.
func (a *Accumulator) ResumeID() string {
	if a.meta == nil {
		return ""
	}
	return a.meta.ResumeID
}

// MessageUUID returns the internal message UUID captured so far, if any.
func (a *Accumulator) MessageUUID() string {
	if a.meta == nil {
		return ""
	}
	return a.meta.MessageUUID
}

// Message flushes any buffered text and returns the accumulated assistant
// message. ok is false when nothing was accumulated, in which case no
// message should be persisted.
func (a *Accumulator) Message() (msg Message, ok bool) {
	a.flushText()
	if len(a.parts) == 0 {
		return Message{}, false
	}
	return Message{
		Role:  RoleAssistant,
		Parts: a.parts,
		Meta:  a.meta,
	}, true
}
