package telemetry

import (
	"encoding/json"
	"fmt"
)

// TimeToFullResult is the outcome of a time-to-full estimation. It is a
// closed set: Calculated, Full, LowCurrent, Calculating and NotCharging are
// the only implementations.
type TimeToFullResult interface {
	// Kind returns a stable identifier of the variant.
	Kind() ResultKind
	isTimeToFullResult()
}

// ResultKind identifies a TimeToFullResult variant.
type ResultKind string

const (
	KindCalculated  ResultKind = "calculated"
	KindFull        ResultKind = "full"
	KindLowCurrent  ResultKind = "lowCurrent"
	KindCalculating ResultKind = "calculating"
	KindNotCharging ResultKind = "notCharging"
)

// Calculated is an estimate of the remaining time until full.
type Calculated struct {
	Hours   int
	Minutes int
}

// Full means the battery reached 100%.
type Full struct{}

// LowCurrent means the charge current is too low for a meaningful estimate.
type LowCurrent struct{}

// Calculating means no stable estimate is available yet.
type Calculating struct{}

// NotCharging means the battery is not being charged.
type NotCharging struct{}

func (Calculated) Kind() ResultKind  { return KindCalculated }
func (Full) Kind() ResultKind        { return KindFull }
func (LowCurrent) Kind() ResultKind  { return KindLowCurrent }
func (Calculating) Kind() ResultKind { return KindCalculating }
func (NotCharging) Kind() ResultKind { return KindNotCharging }

func (Calculated) isTimeToFullResult()  {}
func (Full) isTimeToFullResult()        {}
func (LowCurrent) isTimeToFullResult()  {}
func (Calculating) isTimeToFullResult() {}
func (NotCharging) isTimeToFullResult() {}

// resultJSON is the wire form of a TimeToFullResult.
type resultJSON struct {
	Kind    ResultKind `json:"kind"`
	Hours   int        `json:"hours,omitempty"`
	Minutes int        `json:"minutes,omitempty"`
}

func toResultJSON(r TimeToFullResult) resultJSON {
	if r == nil {
		return resultJSON{Kind: KindNotCharging}
	}
	if c, ok := r.(Calculated); ok {
		return resultJSON{Kind: KindCalculated, Hours: c.Hours, Minutes: c.Minutes}
	}
	return resultJSON{Kind: r.Kind()}
}

func (j resultJSON) result() (TimeToFullResult, error) {
	switch j.Kind {
	case KindCalculated:
		return Calculated{Hours: j.Hours, Minutes: j.Minutes}, nil
	case KindFull:
		return Full{}, nil
	case KindLowCurrent:
		return LowCurrent{}, nil
	case KindCalculating:
		return Calculating{}, nil
	case KindNotCharging, "":
		return NotCharging{}, nil
	default:
		return nil, fmt.Errorf("unknown time to full result kind %q", j.Kind)
	}
}

// MarshalResult encodes a TimeToFullResult as JSON.
func MarshalResult(r TimeToFullResult) ([]byte, error) {
	return json.Marshal(toResultJSON(r))
}

// UnmarshalResult decodes a TimeToFullResult encoded by MarshalResult.
func UnmarshalResult(b []byte) (TimeToFullResult, error) {
	var j resultJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return nil, err
	}
	return j.result()
}

// readingAlias has the fields of NormalizedReading without its methods.
type readingAlias NormalizedReading

type readingJSON struct {
	readingAlias
	TimeToFull resultJSON `json:"timeToFull"`
}

// MarshalJSON implements json.Marshaler.
func (r NormalizedReading) MarshalJSON() ([]byte, error) {
	return json.Marshal(readingJSON{
		readingAlias: readingAlias(r),
		TimeToFull:   toResultJSON(r.TimeToFull),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *NormalizedReading) UnmarshalJSON(b []byte) error {
	var j readingJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	res, err := j.TimeToFull.result()
	if err != nil {
		return err
	}
	*r = NormalizedReading(j.readingAlias)
	r.TimeToFull = res
	return nil
}
