package chat

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Rib4ko/essaouira-guide/internal/backend"
)

func TestHandleInputFailureAppendsOneErrorEntry(t *testing.T) {
	sess := &fakeSession{script: []func([]backend.Part) (*backend.GenerateResponse, error){
		fail("bad credential"),
	}}
	out := &bytes.Buffer{}
	repl := &REPL{
		Orchestrator: newOrchestrator(sess, fallbackRegistry(), Options{}),
		Transcript:   &Transcript{},
		Logger:       discard(),
		Out:          out,
	}

	repl.HandleInput(context.Background(), "hello")

	msgs := repl.Transcript.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user + error entries, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Text != "hello" {
		t.Errorf("unexpected user entry %+v", msgs[0])
	}
	last := msgs[1]
	if !last.IsError || last.Text != ErrorReplyText || last.Role != RoleModel {
		t.Errorf("unexpected error entry %+v", last)
	}
	if repl.state != StateIdle {
		t.Errorf("loading state must be cleared, got %q", repl.state)
	}
}

func TestHandleInputSuccessAppendsOneModelEntry(t *testing.T) {
	sess := &fakeSession{script: []func([]backend.Part) (*backend.GenerateResponse, error){
		text("Marhba! The medina is lively this weekend.", "https://example.com/agenda"),
	}}
	out := &bytes.Buffer{}
	repl := &REPL{
		Orchestrator: newOrchestrator(sess, fallbackRegistry(), Options{}),
		Transcript:   &Transcript{},
		Logger:       discard(),
		Out:          out,
	}

	repl.HandleInput(context.Background(), "what's on?")

	msgs := repl.Transcript.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user + model entries, got %d", len(msgs))
	}
	model := msgs[1]
	if model.IsError {
		t.Error("success turn must not be flagged as error")
	}
	if len(model.WebSources) != 1 {
		t.Errorf("expected one source, got %v", model.WebSources)
	}
	if repl.state != StateIdle {
		t.Errorf("loading state must be cleared, got %q", repl.state)
	}
	if !strings.Contains(out.String(), "Marhba!") {
		t.Errorf("reply not printed: %q", out.String())
	}
}

func TestRunQuitsAndGreets(t *testing.T) {
	in := strings.NewReader("/quit\n")
	out := &bytes.Buffer{}
	repl := &REPL{
		Orchestrator: newOrchestrator(&fakeSession{}, fallbackRegistry(), Options{}),
		Transcript:   &Transcript{},
		Logger:       discard(),
		In:           in,
		Out:          out,
	}

	if err := repl.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Mogador Guide") {
		t.Errorf("greeting not printed: %q", out.String())
	}
	msgs := repl.Transcript.Messages()
	if len(msgs) != 1 || msgs[0].Role != RoleModel {
		t.Errorf("transcript should open with the greeting, got %+v", msgs)
	}
}
