package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rib4ko/essaouira-guide/internal/backend"
	"github.com/Rib4ko/essaouira-guide/internal/event"
)

// Tool names as declared to the model.
const (
	NameSearchLocalEvents = "searchLocalEvents"
	NameAddAttendee       = "addAttendee"
)

// ErrUnknownTool is returned when the model requests a tool that was
// never declared to it.
var ErrUnknownTool = errors.New("unknown tool")

// Handler executes one tool call with the arguments the model supplied.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool couples a model-facing declaration with its local handler and a
// short progress label shown to the user while it runs.
type Tool struct {
	Declaration backend.FunctionDeclaration
	Status      string
	Handler     Handler
}

// Registry is the static, read-only catalog of callable tools. It is
// built once at session start and never mutated.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

// NewRegistry builds a registry from the given tools.
func NewRegistry(tools ...Tool) *Registry {
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Declaration.Name] = t
	}
	return &Registry{tools: tools, byName: byName}
}

// Declarations returns the catalog in declaration order.
func (r *Registry) Declarations() []backend.FunctionDeclaration {
	decls := make([]backend.FunctionDeclaration, len(r.tools))
	for i, t := range r.tools {
		decls[i] = t.Declaration
	}
	return decls
}

// Status returns the progress label for a tool, with a generic label for
// names not in the catalog.
func (r *Registry) Status(name string) string {
	if t, ok := r.byName[name]; ok && t.Status != "" {
		return t.Status
	}
	return fmt.Sprintf("Executing: %s...", name)
}

// Dispatch routes a tool call by name to its handler.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t.Handler(ctx, args)
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}

// Catalog builds the guide's tool catalog over the given event store.
func Catalog(store *event.Store) *Registry {
	return NewRegistry(
		Tool{
			Declaration: backend.FunctionDeclaration{
				Name:        NameSearchLocalEvents,
				Description: `Search the local Essaouira community database for events. Use this for "local", "community", "database" queries or when specific local info is needed.`,
				Parameters: &backend.Schema{
					Type: "object",
					Properties: map[string]*backend.Schema{
						"query": {
							Type:        "string",
							Description: `Keywords to search for (e.g., "music", "workshop", "yoga").`,
						},
					},
					Required: []string{"query"},
				},
			},
			Status: "Searching local events...",
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				query, err := stringArg(args, "query")
				if err != nil {
					return nil, err
				}
				return store.SearchEvents(ctx, query), nil
			},
		},
		Tool{
			Declaration: backend.FunctionDeclaration{
				Name:        NameAddAttendee,
				Description: "Add a person to the attendee list of a specific local event in the database.",
				Parameters: &backend.Schema{
					Type: "object",
					Properties: map[string]*backend.Schema{
						"eventName": {
							Type:        "string",
							Description: "The name or ID of the event.",
						},
						"personName": {
							Type:        "string",
							Description: "The name of the person attending.",
						},
					},
					Required: []string{"eventName", "personName"},
				},
			},
			Status: "Registering attendee...",
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				eventName, err := stringArg(args, "eventName")
				if err != nil {
					return nil, err
				}
				personName, err := stringArg(args, "personName")
				if err != nil {
					return nil, err
				}
				return store.AddAttendee(ctx, eventName, personName), nil
			},
		},
	)
}
