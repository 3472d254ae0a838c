package tools

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Rib4ko/essaouira-guide/internal/event"
)

func fallbackCatalog() *Registry {
	store := event.NewStore(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), event.StoreOptions{
		Healthy: func(context.Context) bool { return false },
	})
	return Catalog(store)
}

func TestCatalogDeclarations(t *testing.T) {
	decls := fallbackCatalog().Declarations()
	if len(decls) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(decls))
	}
	if decls[0].Name != NameSearchLocalEvents || decls[1].Name != NameAddAttendee {
		t.Errorf("unexpected declaration order: %s, %s", decls[0].Name, decls[1].Name)
	}

	search := decls[0]
	if search.Parameters == nil || len(search.Parameters.Required) != 1 || search.Parameters.Required[0] != "query" {
		t.Errorf("searchLocalEvents must require query, got %+v", search.Parameters)
	}

	add := decls[1]
	if add.Parameters == nil || len(add.Parameters.Required) != 2 {
		t.Fatalf("addAttendee must require two arguments, got %+v", add.Parameters)
	}
}

func TestDispatchSearch(t *testing.T) {
	reg := fallbackCatalog()

	result, err := reg.Dispatch(context.Background(), NameSearchLocalEvents, map[string]any{"query": "workshop"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	events, ok := result.([]event.Event)
	if !ok {
		t.Fatalf("expected []event.Event, got %T", result)
	}
	if len(events) != 1 || events[0].Name != "Gnaoua Music Workshop" {
		t.Errorf("unexpected events %v", events)
	}
}

func TestDispatchAddAttendee(t *testing.T) {
	reg := fallbackCatalog()

	result, err := reg.Dispatch(context.Background(), NameAddAttendee, map[string]any{
		"eventName":  "Gnaoua Music Workshop",
		"personName": "Omar Benali",
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	msg, ok := result.(string)
	if !ok || msg == "" {
		t.Fatalf("addAttendee must return a non-empty message, got %v", result)
	}
	if !strings.Contains(msg, "not persisted") {
		t.Errorf("fallback registration should say not persisted, got %q", msg)
	}
}

func TestDispatchMissingArgument(t *testing.T) {
	reg := fallbackCatalog()

	if _, err := reg.Dispatch(context.Background(), NameSearchLocalEvents, map[string]any{}); err == nil {
		t.Error("expected error for missing query argument")
	}
	if _, err := reg.Dispatch(context.Background(), NameSearchLocalEvents, map[string]any{"query": 7}); err == nil {
		t.Error("expected error for non-string query argument")
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	reg := fallbackCatalog()

	_, err := reg.Dispatch(context.Background(), "bookHotel", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestStatusLabels(t *testing.T) {
	reg := fallbackCatalog()

	if got := reg.Status(NameSearchLocalEvents); got != "Searching local events..." {
		t.Errorf("unexpected status %q", got)
	}
	if got := reg.Status("bookHotel"); got != "Executing: bookHotel..." {
		t.Errorf("unexpected fallback status %q", got)
	}
}
