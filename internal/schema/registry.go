package schema

import "fmt"

// VenueID is the numeric identifier for a venue.
type VenueID uint16

// Venue describes a trading venue or broker.
type Venue struct {
	ID   VenueID
	Name string
}

// Instrument describes a tradable instrument and its venue-specific identity.
type Instrument struct {
	ID          InstrumentID
	VenueID     VenueID
	Symbol      string
	VenueSymbol string
}

// Registry stores venue and instrument reference data in a compact form.
// It is built once at startup and read-only afterwards.
type Registry struct {
	venues           []Venue
	instruments      []Instrument
	venueByName      map[string]VenueID
	instrumentByName map[string]InstrumentID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		venueByName:      make(map[string]VenueID),
		instrumentByName: make(map[string]InstrumentID),
	}
}

// AddVenue registers a new venue and returns its ID.
func (r *Registry) AddVenue(name string) (VenueID, error) {
	if name == "" {
		return 0, fmt.Errorf("venue name is empty")
	}
	if id, ok := r.venueByName[name]; ok {
		return id, fmt.Errorf("venue already exists: %s", name)
	}
	id := VenueID(len(r.venues) + 1)
	r.venues = append(r.venues, Venue{ID: id, Name: name})
	r.venueByName[name] = id
	return id, nil
}

// AddInstrument registers a new instrument and returns its ID.
// An empty venueSymbol defaults to symbol.
func (r *Registry) AddInstrument(symbol string, venueID VenueID, venueSymbol string) (InstrumentID, error) {
	if symbol == "" {
		return 0, fmt.Errorf("instrument symbol is empty")
	}
	if _, ok := r.Venue(venueID); !ok {
		return 0, fmt.Errorf("venue id not found: %d", venueID)
	}
	if id, ok := r.instrumentByName[symbol]; ok {
		return id, fmt.Errorf("instrument already exists: %s", symbol)
	}
	if venueSymbol == "" {
		venueSymbol = symbol
	}
	id := InstrumentID(len(r.instruments) + 1)
	r.instruments = append(r.instruments, Instrument{
		ID:          id,
		VenueID:     venueID,
		Symbol:      symbol,
		VenueSymbol: venueSymbol,
	})
	r.instrumentByName[symbol] = id
	return id, nil
}

// Venue returns the venue by ID.
func (r *Registry) Venue(id VenueID) (Venue, bool) {
	if id == 0 || int(id) > len(r.venues) {
		return Venue{}, false
	}
	return r.venues[id-1], true
}

// Instrument returns the instrument by ID.
func (r *Registry) Instrument(id InstrumentID) (Instrument, bool) {
	if id == 0 || int(id) > len(r.instruments) {
		return Instrument{}, false
	}
	return r.instruments[id-1], true
}

// InstrumentCount returns the number of instruments in the registry.
func (r *Registry) InstrumentCount() int {
	return len(r.instruments)
}

// InstrumentAt returns the instrument by zero-based index.
func (r *Registry) InstrumentAt(index int) (Instrument, bool) {
	if index < 0 || index >= len(r.instruments) {
		return Instrument{}, false
	}
	return r.instruments[index], true
}

func (r *Registry) VenueIDByName(name string) (VenueID, bool) {
	id, ok := r.venueByName[name]
	return id, ok
}

func (r *Registry) InstrumentIDBySymbol(symbol string) (InstrumentID, bool) {
	id, ok := r.instrumentByName[symbol]
	return id, ok
}

// VenueSymbol resolves the identity an upstream adapter uses for an instrument.
func (r *Registry) VenueSymbol(id InstrumentID) (string, bool) {
	inst, ok := r.Instrument(id)
	if !ok {
		return "", false
	}
	return inst.VenueSymbol, true
}
