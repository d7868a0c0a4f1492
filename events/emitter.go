package events

import "time"

// Emitter publishes events pre-bound to a run and result.
// A nil Emitter is valid and drops all events, so callers never need
// to guard emission sites.
type Emitter struct {
	bus      *Bus
	runID    string
	resultID string
}

// NewEmitter creates an emitter bound to the given run and result identifiers.
// Returns nil if bus is nil.
func NewEmitter(bus *Bus, runID, resultID string) *Emitter {
	if bus == nil {
		return nil
	}
	return &Emitter{bus: bus, runID: runID, resultID: resultID}
}

// Emit publishes an event of the given type with an optional payload.
func (e *Emitter) Emit(eventType EventType, data any) {
	if e == nil || e.bus == nil {
		return
	}
	e.bus.Publish(&Event{
		Type:      eventType,
		Timestamp: time.Now(),
		RunID:     e.runID,
		ResultID:  e.resultID,
		Data:      data,
	})
}
