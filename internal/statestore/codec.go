// Package statestore persists the controller snapshot between cycles and
// serializes cycles that share the same storage.
package statestore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lux-EE464H/Lux/internal/lighting"
)

// DefaultLockTTL replaces a non-positive lock TTL
const DefaultLockTTL = 2 * time.Minute

// Record names, shared by every backend
const (
	recordOverride       = "override"
	recordLastObserved   = "last_observed"
	recordLastPrediction = "last_prediction"
	recordLastCloudCover = "last_cloud_cover"
)

var recordNames = []string{recordOverride, recordLastObserved, recordLastPrediction, recordLastCloudCover}

// encodeSnapshot splits a snapshot into records to write and records to remove
func encodeSnapshot(snap lighting.Snapshot) (map[string]string, []string, error) {
	set := make(map[string]string)
	var del []string

	values := map[string]interface{}{
		recordOverride:       activeOverride(snap.Override),
		recordLastObserved:   snap.LastObserved,
		recordLastPrediction: snap.LastPrediction,
		recordLastCloudCover: snap.LastCloudCover,
	}

	for _, name := range recordNames {
		v := values[name]
		if isNil(v) {
			del = append(del, name)
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode %s: %w", name, err)
		}
		set[name] = string(data)
	}

	return set, del, nil
}

// decodeSnapshot rebuilds a snapshot. Missing or empty records are nil, and an
// override with no weight left decodes as Idle. A record that cannot be decoded
// is logged and treated as missing so the rest of the snapshot still loads.
func decodeSnapshot(records map[string]string, logger *slog.Logger) lighting.Snapshot {
	var snap lighting.Snapshot

	var o lighting.OverrideRecord
	if decodeRecord(records, recordOverride, &o, logger) {
		snap.Override = activeOverride(&o)
	}
	var s lighting.LightState
	if decodeRecord(records, recordLastObserved, &s, logger) {
		snap.LastObserved = &s
	}
	var c lighting.RGB
	if decodeRecord(records, recordLastPrediction, &c, logger) {
		snap.LastPrediction = &c
	}
	var f float64
	if decodeRecord(records, recordLastCloudCover, &f, logger) {
		snap.LastCloudCover = &f
	}

	return snap
}

func decodeRecord(records map[string]string, name string, dst interface{}, logger *slog.Logger) bool {
	data, ok := present(records, name)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		logger.Error("Discarding undecodable state record", "record", name, "error", err)
		return false
	}
	return true
}

// lockTTLOrDefault keeps a misconfigured TTL from producing a lock that never
// excludes (SQLite) or never expires (Redis)
func lockTTLOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultLockTTL
	}
	return ttl
}

func activeOverride(o *lighting.OverrideRecord) *lighting.OverrideRecord {
	if !o.Active() {
		return nil
	}
	return o
}

func present(records map[string]string, name string) (string, bool) {
	data := strings.TrimSpace(records[name])
	if data == "" || data == "null" {
		return "", false
	}
	return data, true
}

func isNil(v interface{}) bool {
	switch x := v.(type) {
	case *lighting.OverrideRecord:
		return x == nil
	case *lighting.LightState:
		return x == nil
	case *lighting.RGB:
		return x == nil
	case *float64:
		return x == nil
	}
	return v == nil
}
