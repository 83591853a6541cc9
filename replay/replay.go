// Package replay implements the Replay Adapter (C13): it loads an external
// dataset of timestamped events and schedules each one onto the event bus
// at its recorded offset, so recorded interaction traces can be replayed
// deterministically through the same delivery path as live drift and tool
// follow-ups.
package replay

import (
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/vei-sim/vei/bus"
)

type (
	// DatasetEvent is one recorded event in an external dataset.
	DatasetEvent struct {
		TimeMS  int64          `json:"time_ms"`
		ActorID string         `json:"actor_id"`
		Channel string         `json:"channel"`
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}

	// Dataset is the on-disk shape of a replay dataset file.
	Dataset struct {
		Metadata map[string]any `json:"metadata"`
		Events   []DatasetEvent `json:"events"`
	}

	// Adapter schedules a dataset's events onto a bus in recorded order.
	Adapter struct {
		bus    *bus.Bus
		events []DatasetEvent
	}
)

// LoadDatasetFile reads and decodes a dataset JSON file.
func LoadDatasetFile(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, err
	}
	defer f.Close()
	return decodeDataset(f)
}

func decodeDataset(r io.Reader) (Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// New constructs an Adapter over b for events, sorted ascending by TimeMS
// so Prime schedules them in recorded order regardless of input order.
func New(b *bus.Bus, events []DatasetEvent) *Adapter {
	sorted := make([]DatasetEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TimeMS < sorted[j].TimeMS })
	return &Adapter{bus: b, events: sorted}
}

// Prime schedules every event at offset max(0, event.TimeMS - bus.Clock())
// from the bus's current clock, wrapping each event's payload so the
// delivered record carries both its originating channel and the recorded
// payload, plus the dataset's actor and type for downstream inspection.
// Call once per simulation, before any call/tick advances the clock.
func (a *Adapter) Prime() {
	now := a.bus.Clock()
	for _, event := range a.events {
		dt := event.TimeMS - now
		if dt < 0 {
			dt = 0
		}
		a.bus.Schedule(dt, event.Channel, bus.Payload{
			"dataset":  event.Channel,
			"data":     event.Payload,
			"actor_id": event.ActorID,
			"type":     event.Type,
		})
	}
}
