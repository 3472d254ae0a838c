package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Rib4ko/essaouira-guide/internal/cache"
)

// Store looks up events and registers attendees against the events
// database, falling back to a built-in dataset when the database is
// unreachable. Neither operation ever returns an error to the caller:
// search degrades to the fallback tier and registration reports its
// outcome as a message string.
type Store struct {
	db       *sql.DB
	logger   *slog.Logger
	tracer   trace.Tracer
	healthy  func(context.Context) bool
	fallback []Event
	newID    func() string
	cacheTTL time.Duration

	searchCache sync.Map
}

// StoreOptions tune a Store. The zero value gives sensible defaults.
type StoreOptions struct {
	// Healthy decides per call whether the primary tier is usable.
	// Defaults to pinging the database.
	Healthy func(context.Context) bool
	// NewID issues participant identifiers. Defaults to random UUIDs.
	NewID func() string
	// Fallback overrides the built-in dataset.
	Fallback []Event
	// CacheTTL memoizes search results for this long (0 disables).
	CacheTTL time.Duration
	// Tracer traces store operations.
	Tracer trace.Tracer
}

// NewStore creates a Store over db. A nil db is allowed and forces the
// fallback tier for every operation.
func NewStore(db *sql.DB, logger *slog.Logger, opts StoreOptions) *Store {
	s := &Store{
		db:       db,
		logger:   logger,
		tracer:   opts.Tracer,
		healthy:  opts.Healthy,
		fallback: opts.Fallback,
		newID:    opts.NewID,
		cacheTTL: opts.CacheTTL,
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("event")
	}
	if s.healthy == nil {
		s.healthy = func(ctx context.Context) bool {
			return db != nil && db.PingContext(ctx) == nil
		}
	}
	if s.fallback == nil {
		s.fallback = FallbackEvents()
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// SearchEvents returns events whose name contains query, case-insensitively.
// In fallback mode the description is matched as well. The result is never
// nil and the call never fails: a primary-tier error logs and degrades to
// the fallback dataset.
func (s *Store) SearchEvents(ctx context.Context, query string) []Event {
	ctx, span := s.tracer.Start(ctx, "event.search")
	defer span.End()

	key := cache.Key(query)
	if v, ok := s.searchCache.Load(key); ok {
		entry := v.(cache.Entry)
		if entry.Fresh(s.cacheTTL) {
			s.logger.Debug("event search cache hit", "query", query)
			return append([]Event(nil), entry.Value.([]Event)...)
		}
	}

	var results []Event
	if s.healthy(ctx) {
		var err error
		results, err = s.searchPrimary(ctx, query)
		if err != nil {
			s.logger.Error("event search failed, falling back to built-in dataset",
				"query", query, "error", err)
			results = nil
		}
	}
	if results == nil {
		results = s.searchFallback(query)
	}

	s.searchCache.Store(key, cache.Entry{Value: results, Timestamp: time.Now()})
	return append([]Event(nil), results...)
}

func (s *Store) searchPrimary(ctx context.Context, query string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, date, contact, price FROM evenement WHERE name LIKE ?",
		"%"+query+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	results := []Event{}
	for rows.Next() {
		var (
			id      int64
			name    string
			date    sql.NullString
			contact sql.NullString
			price   sql.NullFloat64
		)
		if err := rows.Scan(&id, &name, &date, &contact, &price); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		results = append(results, Event{
			ID:          strconv.FormatInt(id, 10),
			Name:        name,
			Date:        displayDate(date),
			Location:    "Essaouira",
			Description: describeRow(contact, price),
			Attendees:   []string{},
			Source:      SourceLocal,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event rows: %w", err)
	}
	return results, nil
}

func (s *Store) searchFallback(query string) []Event {
	q := strings.ToLower(query)
	results := []Event{}
	for _, evt := range s.fallback {
		if strings.Contains(strings.ToLower(evt.Name), q) ||
			strings.Contains(strings.ToLower(evt.Description), q) {
			results = append(results, evt)
		}
	}
	return results
}

func displayDate(date sql.NullString) string {
	if !date.Valid || date.String == "" {
		return "TBA"
	}
	return date.String
}

func describeRow(contact sql.NullString, price sql.NullFloat64) string {
	c := "N/A"
	if contact.Valid && contact.String != "" {
		c = contact.String
	}
	p := "Free"
	if price.Valid && price.Float64 > 0 {
		p = fmt.Sprintf("%.2f MAD", price.Float64)
	}
	return fmt.Sprintf("Contact: %s | Price: %s", c, p)
}

// AddAttendee registers attendeeName for the event whose name contains
// eventNameOrID. Every outcome comes back as a human-readable message,
// success or failure; the caller can hand it to the model verbatim.
func (s *Store) AddAttendee(ctx context.Context, eventNameOrID, attendeeName string) string {
	ctx, span := s.tracer.Start(ctx, "event.add_attendee")
	defer span.End()

	attendeeName = strings.TrimSpace(attendeeName)
	if attendeeName == "" {
		return "Cannot register: no attendee name was given."
	}

	if !s.healthy(ctx) {
		s.logger.Warn("events database unreachable, registration not persisted",
			"event", eventNameOrID, "attendee", attendeeName)
		return fmt.Sprintf("Noted %s for %q, but the events database is unreachable so the registration was not persisted.",
			attendeeName, eventNameOrID)
	}

	var (
		eventID   int64
		eventName string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM evenement WHERE name LIKE ? LIMIT 1",
		"%"+eventNameOrID+"%",
	).Scan(&eventID, &eventName)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Sprintf("Event %q not found in database.", eventNameOrID)
	}
	if err != nil {
		s.logger.Error("event lookup failed", "event", eventNameOrID, "error", err)
		return fmt.Sprintf("Error updating database: %v", err)
	}

	first, last := splitName(attendeeName)
	participantID := s.newID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Sprintf("Error updating database: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO participant (id, firstname, lastname, payed) VALUES (?, ?, ?, 0)",
		participantID, first, last,
	); err != nil {
		s.logger.Error("failed to create participant", "error", err)
		return fmt.Sprintf("Error updating database: failed to create participant: %v", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO event_participant (event_id, participant_id) VALUES (?, ?)",
		eventID, participantID,
	); err != nil {
		s.logger.Error("failed to link participant to event", "error", err)
		return fmt.Sprintf("Error updating database: failed to link participant to event: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Sprintf("Error updating database: %v", err)
	}

	s.logger.Info("registered attendee",
		"event", eventName, "participant_id", participantID)
	return fmt.Sprintf("Successfully registered %s for %q (database updated).",
		strings.TrimSpace(first+" "+last), eventName)
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	first = parts[0]
	if len(parts) > 1 {
		last = strings.Join(parts[1:], " ")
	}
	return first, last
}
