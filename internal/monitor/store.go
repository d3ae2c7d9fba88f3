package monitor

import "pcmon/internal/model"

// Store provides durable storage for the report log and the per-machine
// user mappings. Implementations must make each call atomic: a report is
// either fully visible or not at all, mapping upserts never expose partial
// field writes, and concurrent appends never collide on the assigned id.
type Store interface {
	// Report log operations.

	// AppendReport persists one report and returns the assigned id.
	// Ids are monotonically increasing and never reused.
	AppendReport(r *model.Report) (int64, error)

	// LatestPerMachine returns, for each distinct computer name, the report
	// with the maximum id ("last received", tolerant of back-dated
	// timestamps), ordered by timestamp descending.
	LatestPerMachine() ([]*model.Report, error)

	// History returns all reports for the machine with timestamp >=
	// sinceDate (a "YYYY-MM-DD" lower bound compared against the full
	// timestamp string), ordered by timestamp descending.
	History(computerName, sinceDate string) ([]*model.Report, error)

	// PurgeOlderThan deletes all reports with timestamp < cutoffDate and
	// returns the number removed. Irreversible.
	PurgeOlderThan(cutoffDate string) (int64, error)

	// Statistics returns fleet-wide aggregates; today selects which
	// calendar date counts as "today's reports".
	Statistics(today string) (*model.Statistics, error)

	// User mapping operations.

	// FindMapping returns the mapping for a machine, or nil if none exists.
	FindMapping(computerName string) (*model.UserMapping, error)

	// SetDisplayName upserts the display fields for a machine. On conflict
	// it overwrites windows_user, display_name and updated_at, leaving
	// last_archive_date untouched.
	SetDisplayName(computerName, windowsUser, displayName, updatedAt string) error

	// SetArchiveDate upserts the archive date for a machine. An existing
	// row keeps its display fields; a new row uses windowsUser/userName,
	// falling back to "unknown" for either when empty. Idempotent.
	SetArchiveDate(computerName, archiveDate, windowsUser, userName, updatedAt string) error

	// ListMappings returns all mappings ordered by computer name.
	ListMappings() ([]*model.UserMapping, error)

	// Close closes the underlying storage.
	Close() error
}
