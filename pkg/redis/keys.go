package redis

import "fmt"

// Key construction helpers. Every key lives under {prefix}:{location}.

// OverrideKey returns the key of the active override record (JSON string)
// Pattern: {prefix}:{location}:override
func OverrideKey(prefix, location string) string {
	return fmt.Sprintf("%s:%s:override", prefix, location)
}

// LastObservedKey returns the key of the last commanded light state (JSON string)
// Pattern: {prefix}:{location}:last_observed
func LastObservedKey(prefix, location string) string {
	return fmt.Sprintf("%s:%s:last_observed", prefix, location)
}

// LastPredictionKey returns the key of the last successful prediction (JSON string)
// Pattern: {prefix}:{location}:last_prediction
func LastPredictionKey(prefix, location string) string {
	return fmt.Sprintf("%s:%s:last_prediction", prefix, location)
}

// LastCloudCoverKey returns the key of the last successful cloud cover reading
// Pattern: {prefix}:{location}:last_cloud_cover
func LastCloudCoverKey(prefix, location string) string {
	return fmt.Sprintf("%s:%s:last_cloud_cover", prefix, location)
}

// LockKey returns the key of the cycle lock
// Pattern: {prefix}:{location}:lock
func LockKey(prefix, location string) string {
	return fmt.Sprintf("%s:%s:lock", prefix, location)
}
