package monitor

import (
	"fmt"
	"strings"

	"pcmon/internal/model"
)

// Service is the orchestration layer over the Store: report ingestion,
// latest-state resolution, alert derivation, statistics and retention.
// It holds no state of its own beyond its dependencies.
type Service struct {
	store  Store
	logger Logger
	clock  Clock
}

// NewService creates a Service with the provided dependencies.
func NewService(store Store, logger Logger, clock Clock) *Service {
	return &Service{
		store:  store,
		logger: logger,
		clock:  clock,
	}
}

// Ingest validates and persists one report, returning the assigned id.
// Missing required fields yield a ValidationError before the store is
// touched.
//
// Side effect: when the report carries a last-archive date, the machine's
// mapping is updated with the date portion (anything after a space is a
// time-of-day component and is stripped). The mapping write is a separate
// atomic operation; its failure is logged and never fails the ingest, since
// the next report from the same machine retries the same write.
func (s *Service) Ingest(r *model.Report) (int64, error) {
	if err := validateReport(r); err != nil {
		return 0, err
	}

	id, err := s.store.AppendReport(r)
	if err != nil {
		return 0, fmt.Errorf("appending report: %w", err)
	}

	if r.LastArchiveDate != "" {
		date := r.LastArchiveDate
		if i := strings.IndexByte(date, ' '); i >= 0 {
			date = date[:i]
		}
		err := s.store.SetArchiveDate(r.ComputerName, date, r.WindowsUser, r.UserName, s.nowTimestamp())
		if err != nil {
			s.logger.Warn("recording archive date failed",
				"computer", r.ComputerName, "date", date, "error", err)
		} else {
			s.logger.Debug("archive date recorded", "computer", r.ComputerName, "date", date)
		}
	}

	s.logger.Info("report received",
		"computer", r.ComputerName, "user", r.UserName, "id", id)
	return id, nil
}

// History returns the machine's reports from the last N days, newest first.
// The result set is monotonically non-decreasing in days for fixed data.
func (s *Service) History(computerName string, days int) ([]*model.Report, error) {
	since := FormatDate(s.clock.Now().AddDate(0, 0, -days))
	reports, err := s.store.History(computerName, since)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return reports, nil
}

// Statistics returns fleet-wide aggregates as of now.
func (s *Service) Statistics() (*model.Statistics, error) {
	stats, err := s.store.Statistics(FormatDate(s.clock.Now()))
	if err != nil {
		return nil, fmt.Errorf("computing statistics: %w", err)
	}
	return stats, nil
}

// Mappings returns all user mappings ordered by computer name.
func (s *Service) Mappings() ([]*model.UserMapping, error) {
	mappings, err := s.store.ListMappings()
	if err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}
	return mappings, nil
}

// UpdateDisplayName upserts a machine's display fields.
func (s *Service) UpdateDisplayName(computerName, windowsUser, displayName string) error {
	err := s.store.SetDisplayName(computerName, windowsUser, displayName, s.nowTimestamp())
	if err != nil {
		return fmt.Errorf("setting display name: %w", err)
	}
	s.logger.Info("display name updated", "computer", computerName, "name", displayName)
	return nil
}

// UpdateArchiveDate upserts a machine's last archive date. The date must
// already be normalized to "YYYY-MM-DD"; the boundary validates format.
func (s *Service) UpdateArchiveDate(computerName, archiveDate string) error {
	err := s.store.SetArchiveDate(computerName, archiveDate, "", "", s.nowTimestamp())
	if err != nil {
		return fmt.Errorf("setting archive date: %w", err)
	}
	s.logger.Info("archive date updated", "computer", computerName, "date", archiveDate)
	return nil
}

// Sweep deletes reports older than the retention horizon: every report
// whose timestamp date is strictly before now minus days. Returns the
// number of rows removed. Deleted reports are unrecoverable.
func (s *Service) Sweep(days int) (int64, error) {
	cutoff := FormatDate(s.clock.Now().AddDate(0, 0, -days))
	count, err := s.store.PurgeOlderThan(cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging old reports: %w", err)
	}
	s.logger.Info("old reports purged", "cutoff", cutoff, "deleted", count)
	return count, nil
}

func (s *Service) nowTimestamp() string {
	return FormatTimestamp(s.clock.Now())
}

func validateReport(r *model.Report) error {
	switch {
	case r.ComputerName == "":
		return &ValidationError{Field: "computer_name"}
	case r.UserName == "":
		return &ValidationError{Field: "user_name"}
	case r.Timestamp == "":
		return &ValidationError{Field: "timestamp"}
	}
	return nil
}
