// Package activity maintains the per-user login history: a bounded,
// de-duplicated, newest-first log of connection metadata.
package activity

import (
	"time"

	"github.com/univx/authcore/internal/server/models"
)

// DefaultMaxEntries is the retention bound for the full activity log.
// The legacy IP-only history kept 5 entries; callers pick the bound.
const DefaultMaxEntries = 50

// NewEntry builds an activity entry for the given client, classifying the
// declared user agent. Classification never fails; unknown clients are
// recorded as "Unknown".
func NewEntry(ip, userAgent, activityType string) models.ActivityEntry {
	c := Classify(userAgent)
	return models.ActivityEntry{
		IP:        ip,
		Browser:   c.Browser,
		OS:        c.OS,
		Device:    c.Device,
		Type:      activityType,
		Timestamp: time.Now().UTC(),
	}
}

// Record returns the history with entry prepended. Any older entry for the
// same IP is dropped first (latest occurrence wins) and the result is
// truncated to max entries, oldest evicted. The input slice is not modified;
// the caller persists the returned history.
func Record(history []models.ActivityEntry, entry models.ActivityEntry, max int) []models.ActivityEntry {
	updated := make([]models.ActivityEntry, 0, len(history)+1)
	updated = append(updated, entry)
	for _, e := range history {
		if e.IP == entry.IP {
			continue
		}
		updated = append(updated, e)
	}

	if max > 0 && len(updated) > max {
		updated = updated[:max]
	}
	return updated
}
