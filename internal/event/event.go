package event

// Source tags where an event came from.
type Source string

const (
	// SourceLocal marks events from the community database or its fallback.
	SourceLocal Source = "local"
	// SourceWeb is reserved for web results; they currently surface only as
	// grounding links, never as materialized events.
	SourceWeb Source = "web"
)

// Event is one discoverable happening. All fields are populated at
// creation; an Event is never partially constructed.
type Event struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Date        string   `json:"date"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Attendees   []string `json:"attendees"`
	Source      Source   `json:"source"`
}

// FallbackEvents returns the built-in dataset used when the events
// database is unreachable.
func FallbackEvents() []Event {
	return []Event{
		{
			ID:          "evt_001",
			Name:        "Gnaoua Music Workshop",
			Date:        "2023-11-15",
			Location:    "Dar Souiri",
			Description: "An introductory workshop to Gnaoua rhythms. Contact: info@dar-souiri.ma | Price: 200.00 MAD",
			Attendees:   []string{},
			Source:      SourceLocal,
		},
	}
}
