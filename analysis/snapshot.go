package analysis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mefai-dev/mefai-dev/shared"
)

const (
	// snapshotDecimalPlaces is the number of fractional digits used when
	// encoding snapshot values.
	snapshotDecimalPlaces = 5
)

// Snapshot represents the computed analysis for a market and timeframe. A new
// snapshot fully replaces the previous one for its key.
type Snapshot struct {
	ATR       float64
	SwingHigh float64
	SwingLow  float64
	UpdatedAt time.Time
}

// wireSnapshot is the text encoding of a snapshot, with all values as decimal
// text and the update time as an ISO-8601 timestamp.
type wireSnapshot struct {
	ATR       string `json:"atr"`
	SwingHigh string `json:"swingHigh"`
	SwingLow  string `json:"swingLow"`
	UpdatedAt string `json:"updatedAt"`
}

// EncodeSnapshot encodes the provided snapshot for storage.
func EncodeSnapshot(snapshot *Snapshot) ([]byte, error) {
	wire := wireSnapshot{
		ATR:       shared.FormatDecimal(snapshot.ATR, snapshotDecimalPlaces),
		SwingHigh: shared.FormatDecimal(snapshot.SwingHigh, snapshotDecimalPlaces),
		SwingLow:  shared.FormatDecimal(snapshot.SwingLow, snapshotDecimalPlaces),
		UpdatedAt: snapshot.UpdatedAt.UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	return data, nil
}

// DecodeSnapshot decodes a stored snapshot. Malformed numeric fields decode
// to 0.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var wire wireSnapshot
	err := json.Unmarshal(data, &wire)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339, wire.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot update time: %w", err)
	}

	snapshot := &Snapshot{
		ATR:       shared.ParseFloat(wire.ATR),
		SwingHigh: shared.ParseFloat(wire.SwingHigh),
		SwingLow:  shared.ParseFloat(wire.SwingLow),
		UpdatedAt: updatedAt,
	}

	return snapshot, nil
}
