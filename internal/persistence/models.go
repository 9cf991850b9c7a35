package persistence

import "time"

// VersionMarker is one row of the version tracking table: the repository
// revision that was applied and when it was recorded.
type VersionMarker struct {
	Revision   string
	DeployedAt time.Time
}
