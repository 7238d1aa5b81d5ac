package events

import "encoding/json"

// Event name constants
const (
	// ReadingUpdated carries a telemetry.NormalizedReading after every tick.
	ReadingUpdated = "reading.updated"
	// EstimatorReset carries an EstimatorResetEvent.
	EstimatorReset = "estimator.reset"
)

// Event is a named event with a JSON payload, as streamed by the daemon.
type Event struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EstimatorResetEvent is the typed payload for estimator.reset.
type EstimatorResetEvent struct {
	// Reason is "manual" or "schedule".
	Reason string `json:"reason"`
	Ts     int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	reading, err := events.DecodeAs[telemetry.NormalizedReading](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(reading.Level, reading.CurrentMA)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
