package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Greeting opens every transcript, before the first user message.
const Greeting = "As-salamu alaykum! Marhba. I am your Mogador Guide. Je peux vous aider à trouver des événements à Essaouira. Kanahder hta Darija! How can I help you?"

// REPL is a minimal terminal front end over the orchestrator. One model
// transcript entry is appended per submission, success or failure, and
// the loading state is cleared unconditionally when a turn settles.
type REPL struct {
	Orchestrator *Orchestrator
	Transcript   *Transcript
	Logger       *slog.Logger

	// In and Out default to the process's standard streams.
	In  io.Reader
	Out io.Writer

	state LoadingState
}

// Run reads user input until EOF or /quit.
func (r *REPL) Run(ctx context.Context) error {
	if r.In == nil {
		r.In = os.Stdin
	}
	if r.Out == nil {
		r.Out = os.Stdout
	}
	if r.Transcript == nil {
		r.Transcript = &Transcript{}
	}
	r.state = StateIdle

	greeting := r.Transcript.Append(Message{Role: RoleModel, Text: Greeting})
	fmt.Fprintf(r.Out, "Guide: %s\n", greeting.Text)
	fmt.Fprintln(r.Out, "Type /help for commands, /quit to exit")
	fmt.Fprintln(r.Out)

	scanner := bufio.NewScanner(r.In)
	for {
		fmt.Fprint(r.Out, "You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if r.handleCommand(input) {
				break
			}
			continue
		}

		r.HandleInput(ctx, input)
	}

	fmt.Fprintln(r.Out, "Bslama!")
	return scanner.Err()
}

// HandleInput runs one full turn for the given user text.
func (r *REPL) HandleInput(ctx context.Context, input string) {
	r.Transcript.Append(Message{Role: RoleUser, Text: input})
	r.state = StateThinking
	defer func() { r.state = StateIdle }()

	reply, err := r.Orchestrator.SendMessage(ctx, input, func(status string) {
		r.state = StateExecutingTool
		fmt.Fprintf(r.Out, "  [%s]\n", status)
	})
	if err != nil {
		r.Logger.Error("failed to send message", "error", err)
		msg := r.Transcript.Append(Message{Role: RoleModel, Text: ErrorReplyText, IsError: true})
		fmt.Fprintf(r.Out, "Guide: %s\n\n", msg.Text)
		return
	}

	msg := r.Transcript.Append(Message{
		Role:       RoleModel,
		Text:       reply.Text,
		Events:     reply.Events,
		WebSources: reply.WebSources,
	})

	fmt.Fprintf(r.Out, "Guide: %s\n", msg.Text)
	for _, evt := range msg.Events {
		fmt.Fprintf(r.Out, "  * %s — %s @ %s\n", evt.Name, evt.Date, evt.Location)
		fmt.Fprintf(r.Out, "    %s\n", evt.Description)
	}
	if len(msg.WebSources) > 0 {
		fmt.Fprintln(r.Out, "  Sources:")
		for _, src := range msg.WebSources {
			fmt.Fprintf(r.Out, "    - %s\n", src)
		}
	}
	fmt.Fprintln(r.Out)
}

// handleCommand processes a /command line and reports whether to quit.
func (r *REPL) handleCommand(cmd string) bool {
	switch strings.Fields(cmd)[0] {
	case "/quit", "/exit":
		return true

	case "/history":
		for _, msg := range r.Transcript.Messages() {
			marker := ""
			if msg.IsError {
				marker = " [error]"
			}
			fmt.Fprintf(r.Out, "[%s] %s%s: %s\n",
				msg.Timestamp.Format("15:04:05"), msg.Role, marker, msg.Text)
		}
		fmt.Fprintln(r.Out)

	case "/help":
		fmt.Fprintln(r.Out, "Available commands:")
		fmt.Fprintln(r.Out, "  /quit, /exit  - Exit the guide")
		fmt.Fprintln(r.Out, "  /history      - Show the transcript so far")
		fmt.Fprintln(r.Out, "  /help         - Show this help message")
		fmt.Fprintln(r.Out)

	default:
		fmt.Fprintf(r.Out, "Unknown command: %s (try /help)\n\n", cmd)
	}
	return false
}
