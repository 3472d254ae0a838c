package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/Rib4ko/essaouira-guide/internal/backend"
	"github.com/Rib4ko/essaouira-guide/internal/event"
	"github.com/Rib4ko/essaouira-guide/internal/tools"
)

// SystemInstruction is the fixed persona handed to the model at session
// start.
const SystemInstruction = `You are 'Mogador Guide', a warm, local guide for Essaouira, Morocco.

**Languages:**
- You speak **French**, **Moroccan Darija**, and **English**.
- **Rule:** Detect the user's language and reply in the SAME language.

**Capabilities:**
1. **Web Search:** For public events, weather, news.
2. **Local DB:** For community workshops/events (use 'searchLocalEvents').
3. **Registration:** Add users to events (use 'addAttendee').

**Behavior:**
- If finding local events, the system will show cards automatically. You should briefly summarize them in text.
- Be friendly and hospitable ("Marhba").
`

// DefaultMaxToolIterations bounds the tool loop when no limit is configured.
const DefaultMaxToolIterations = 8

// fallbackAnswer replaces an empty final answer from the model.
const fallbackAnswer = "I found some information."

// ErrToolLoopExceeded reports that the model kept requesting tools past
// the configured iteration limit.
var ErrToolLoopExceeded = errors.New("tool loop exceeded maximum iterations")

// Session is one remote model conversation. The orchestrator treats it as
// an opaque handle; tests inject a fake.
type Session interface {
	Send(ctx context.Context, parts []backend.Part) (*backend.GenerateResponse, error)
}

// SessionFactory creates the remote session lazily, on the first message.
type SessionFactory func() (Session, error)

// BackendSessionFactory wires a Gemini client and tool registry into a
// SessionFactory declaring both the local tools and web search.
func BackendSessionFactory(client *backend.Client, reg *tools.Registry) SessionFactory {
	return func() (Session, error) {
		catalog := []backend.Tool{
			{FunctionDeclarations: reg.Declarations()},
			{GoogleSearch: &backend.GoogleSearch{}},
		}
		return client.NewSession(SystemInstruction, catalog), nil
	}
}

// Reply is the outcome of one successful turn: the answer text plus the
// side-channel data surfaced during the turn.
type Reply struct {
	Text       string        `json:"text"`
	Events     []event.Event `json:"events"`
	WebSources []string      `json:"webSources"`
}

// Options tune an Orchestrator. The zero value gives defaults.
type Options struct {
	MaxToolIterations int
	Tracer            trace.Tracer
	Meter             metric.Meter
}

// Orchestrator owns one remote chat session and runs the tool loop for
// each user message. All calls serialize through it: the conversation is
// a single logical thread.
type Orchestrator struct {
	newSession SessionFactory
	registry   *tools.Registry
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	maxIters   int

	mu      sync.Mutex
	session Session
}

// New creates an Orchestrator.
func New(factory SessionFactory, registry *tools.Registry, logger *slog.Logger, opts Options) *Orchestrator {
	if opts.MaxToolIterations <= 0 {
		opts.MaxToolIterations = DefaultMaxToolIterations
	}
	if opts.Tracer == nil {
		opts.Tracer = tracenoop.NewTracerProvider().Tracer("chat")
	}
	if opts.Meter == nil {
		opts.Meter = metricnoop.NewMeterProvider().Meter("chat")
	}
	return &Orchestrator{
		newSession: factory,
		registry:   registry,
		logger:     logger,
		tracer:     opts.Tracer,
		meter:      opts.Meter,
		maxIters:   opts.MaxToolIterations,
	}
}

// SendMessage sends one user message through the session, executing any
// tool calls the model requests until it produces a final answer.
// onToolStatus, when non-nil, receives a short progress label before each
// tool execution. Any remote failure surfaces once, with no retry.
func (o *Orchestrator) SendMessage(ctx context.Context, text string, onToolStatus func(status string)) (*Reply, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, span := o.tracer.Start(ctx, "chat.send_message")
	defer span.End()

	if o.session == nil {
		sess, err := o.newSession()
		if err != nil {
			return nil, fmt.Errorf("failed to start chat session: %w", err)
		}
		o.session = sess
	}

	resp, err := o.roundTrip(ctx, []backend.Part{{Text: text}})
	if err != nil {
		return nil, err
	}

	var found []event.Event
	for iter := 0; ; iter++ {
		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			break
		}
		if iter >= o.maxIters {
			o.logger.Error("tool loop did not terminate", "iterations", iter)
			return nil, fmt.Errorf("%w (%d)", ErrToolLoopExceeded, o.maxIters)
		}

		results := make([]backend.Part, 0, len(calls))
		for _, call := range calls {
			if onToolStatus != nil {
				onToolStatus(o.registry.Status(call.Name))
			}
			result := o.executeTool(ctx, call)
			if call.Name == tools.NameSearchLocalEvents {
				if events, ok := result.([]event.Event); ok {
					found = append(found, events...)
				}
			}
			results = append(results, backend.Part{
				FunctionResponse: &backend.FunctionResponse{
					ID:       call.ID,
					Name:     call.Name,
					Response: map[string]any{"result": result},
				},
			})
		}

		resp, err = o.roundTrip(ctx, results)
		if err != nil {
			return nil, err
		}
	}

	answer := resp.Text()
	if strings.TrimSpace(answer) == "" {
		answer = fallbackAnswer
	}

	if found == nil {
		found = []event.Event{}
	}
	return &Reply{
		Text:       answer,
		Events:     found,
		WebSources: dedupe(resp.GroundingSources()),
	}, nil
}

func (o *Orchestrator) roundTrip(ctx context.Context, parts []backend.Part) (*backend.GenerateResponse, error) {
	ctx, span := o.tracer.Start(ctx, "chat.model_round_trip")
	defer span.End()

	start := time.Now()
	resp, err := o.session.Send(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("model round trip failed: %w", err)
	}

	if histogram, herr := o.meter.Float64Histogram(
		"chat.model.request.duration",
		metric.WithDescription("Model round trip duration in milliseconds"),
	); herr == nil {
		histogram.Record(ctx, float64(time.Since(start).Milliseconds()))
	}

	return resp, nil
}

// executeTool dispatches one tool call. A failing or unknown tool becomes
// an error payload in the result; it never aborts the turn.
func (o *Orchestrator) executeTool(ctx context.Context, call backend.FunctionCall) any {
	ctx, span := o.tracer.Start(ctx, "chat.execute_tool")
	defer span.End()

	if counter, cerr := o.meter.Int64Counter(
		"chat.tool.calls",
		metric.WithDescription("Number of tool calls executed"),
	); cerr == nil {
		counter.Add(ctx, 1)
	}

	result, err := o.registry.Dispatch(ctx, call.Name, call.Args)
	if err != nil {
		o.logger.Error("tool invocation failed", "tool", call.Name, "error", err)
		return map[string]any{"error": err.Error()}
	}

	o.logger.Info("invoked tool", "tool", call.Name)
	return result
}

// dedupe removes duplicate URLs preserving first-seen order. The result
// is never nil.
func dedupe(sources []string) []string {
	seen := make(map[string]bool, len(sources))
	unique := []string{}
	for _, src := range sources {
		if seen[src] {
			continue
		}
		seen[src] = true
		unique = append(unique, src)
	}
	return unique
}
