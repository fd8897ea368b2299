package message

import (
	"encoding/json"
	"testing"
)

func TestNewUserMessage(t *testing.T) {
	m := NewUserMessage("hello")
	if m.Role != RoleUser {
		t.Errorf("expected role 'user', got '%s'", m.Role)
	}
	if len(m.Parts) != 1 || m.Parts[0].Type != PartText {
		t.Fatalf("expected one text part, got %+v", m.Parts)
	}
	if m.TextContent() != "hello" {
		t.Errorf("expected 'hello', got '%s'", m.TextContent())
	}
}

func TestIsUserText(t *testing.T) {
	m := NewUserMessage("list files")
	if !m.IsUserText("list files") {
		t.Error("expected match for identical text")
	}
	if m.IsUserText("list files ") {
		t.Error("expected no match for different text")
	}

	a := Message{Role: RoleAssistant, Parts: []Part{{Type: PartText, Text: "list files"}}}
	if a.IsUserText("list files") {
		t.Error("assistant message must never match as user text")
	}
}

func TestAccumulatorCoalescesText(t *testing.T) {
	var acc Accumulator
	acc.Apply(Chunk{Type: ChunkTextDelta, Text: "o"})
	acc.Apply(Chunk{Type: ChunkTextDelta, Text: "k"})
	acc.Apply(Chunk{Type: ChunkTextDelta, Text: "."})
	acc.Apply(Chunk{Type: ChunkTextEnd})

	msg, ok := acc.Message()
	if !ok {
		t.Fatal("expected a message")
	}
	if len(msg.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(msg.Parts))
	}
	if msg.Parts[0].Text != "ok." {
		t.Errorf("expected 'ok.', got '%s'", msg.Parts[0].Text)
	}
}

func TestAccumulatorUpsertsToolPart(t *testing.T) {
	var acc Accumulator
	acc.Apply(Chunk{
		Type:         ChunkToolInput,
		ToolName:     "Glob",
		InvocationID: "inv-1",
		Input:        json.RawMessage(`{"pattern":"*"}`),
	})
	acc.Apply(Chunk{
		Type:         ChunkToolOutput,
		InvocationID: "inv-1",
		Output:       json.RawMessage(`["a.go"]`),
	})

	msg, ok := acc.Message()
	if !ok {
		t.Fatal("expected a message")
	}
	if len(msg.Parts) != 1 {
		t.Fatalf("tool output must mutate the existing part, got %d parts", len(msg.Parts))
	}
	p := msg.Parts[0]
	if p.State != ToolStateResult {
		t.Errorf("expected state 'result', got '%s'", p.State)
	}
	if string(p.Input) != `{"pattern":"*"}` {
		t.Errorf("input lost on upsert: %s", p.Input)
	}
	if string(p.Output) != `["a.go"]` {
		t.Errorf("unexpected output: %s", p.Output)
	}
}

func TestAccumulatorToolFlushesPendingText(t *testing.T) {
	var acc Accumulator
	acc.Apply(Chunk{Type: ChunkTextDelta, Text: "ok."})
	acc.Apply(Chunk{Type: ChunkToolInput, ToolName: "Glob", InvocationID: "inv-1"})
	acc.Apply(Chunk{Type: ChunkToolOutput, InvocationID: "inv-1"})
	acc.Apply(Chunk{Type: ChunkTextDelta, Text: "done"})

	msg, ok := acc.Message()
	if !ok {
		t.Fatal("expected a message")
	}
	if len(msg.Parts) != 3 {
		t.Fatalf("expected text, tool, text — got %d parts", len(msg.Parts))
	}
	if msg.Parts[0].Type != PartText || msg.Parts[0].Text != "ok." {
		t.Errorf("part 0: %+v", msg.Parts[0])
	}
	if msg.Parts[1].Type != PartTool || msg.Parts[1].ToolName != "Glob" {
		t.Errorf("part 1: %+v", msg.Parts[1])
	}
	if msg.Parts[2].Type != PartText || msg.Parts[2].Text != "done" {
		t.Errorf("part 2: %+v", msg.Parts[2])
	}
}

func TestAccumulatorEmpty(t *testing.T) {
	var acc Accumulator
	acc.Apply(Chunk{Type: ChunkFinish})
	if _, ok := acc.Message(); ok {
		t.Error("empty accumulator must not produce a message")
	}
}

func TestAccumulatorMetadata(t *testing.T) {
	var acc Accumulator
	acc.Apply(Chunk{Type: ChunkMetadata, Meta: &Metadata{ResumeID: "sess-1"}})
	acc.Apply(Chunk{Type: ChunkMetadata, Meta: &Metadata{
		MessageUUID: "uuid-1",
		Usage:       &Usage{InputTokens: 10, OutputTokens: 5},
	}})

	if acc.ResumeID() != "sess-1" {
		t.Errorf("expected resume id 'sess-1', got '%s'", acc.ResumeID())
	}
	if acc.MessageUUID() != "uuid-1" {
		t.Errorf("expected uuid-1, got '%s'", acc.MessageUUID())
	}

	acc.Apply(Chunk{Type: ChunkTextDelta, Text: "x"})
	msg, ok := acc.Message()
	if !ok {
		t.Fatal("expected a message")
	}
	if msg.Meta == nil || msg.Meta.ResumeID != "sess-1" || msg.Meta.Usage.InputTokens != 10 {
		t.Errorf("metadata not merged: %+v", msg.Meta)
	}
}

func TestAccumulatorSystemMarker(t *testing.T) {
	var acc Accumulator
	acc.Apply(Chunk{Type: ChunkTextDelta, Text: "before"})
	acc.Apply(Chunk{Type: ChunkSystem, Marker: MarkerCompactionStart})

	msg, ok := acc.Message()
	if !ok {
		t.Fatal("expected a message")
	}
	if len(msg.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(msg.Parts))
	}
	if msg.Parts[1].Type != PartSystem || msg.Parts[1].Marker != MarkerCompactionStart {
		t.Errorf("unexpected marker part: %+v", msg.Parts[1])
	}
}
