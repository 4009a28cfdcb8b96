package vstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/scan"
)

type eventJSON struct {
	ID         string            `json:"id"`
	Version    string            `json:"version"`
	LastUpdate string            `json:"lastUpdate"`
	Attributes map[string]string `json:"attributes"`
}

// DecodeEvents reads a single change event object or an array of them.
// An event without a version is a tombstone.
func DecodeEvents(r io.Reader) ([]types.ChangeEvent, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	data = bytes.TrimSpace(data)
	var raw []eventJSON
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
	} else {
		var ev eventJSON
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		raw = append(raw, ev)
	}
	events := make([]types.ChangeEvent, 0, len(raw))
	for i, ev := range raw {
		if ev.ID == "" {
			return nil, &types.InvalidEventError{Reason: fmt.Sprintf("event %d: missing mandatory field id", i)}
		}
		if ev.Version == "" {
			events = append(events, &types.Tombstone{ID: ev.ID})
			continue
		}
		u := &types.Upsert{ID: ev.ID, Version: ev.Version, Attributes: ev.Attributes}
		if ev.LastUpdate != "" {
			u.LastUpdated, err = scan.ParseDate(ev.LastUpdate)
			if err != nil {
				return nil, &types.InvalidEventError{ID: ev.ID, Reason: fmt.Sprintf("lastUpdate: %v", err)}
			}
		}
		events = append(events, u)
	}
	return events, nil
}
