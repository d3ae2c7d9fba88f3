package monitor

import (
	"fmt"
	"slices"
	"time"

	"pcmon/internal/model"
)

// Alert thresholds. A drive at exactly the warn threshold fires medium; at
// the high threshold, high. Same pattern for the other rule families.
const (
	storageWarnPercent = 80
	storageHighPercent = 90

	pstWarnGB = 2
	pstHighGB = 5

	staleAfter = 24 * time.Hour

	archiveOverdueDays = 90
	archiveHighDays    = 180
)

// EvaluateAlerts derives the alert list for the given machine states at the
// given instant. Stateless and deterministic.
//
// Every rule family is evaluated independently per machine: one storage
// alert per breaching drive, plus at most one each of pst_size, outdated
// and archive_overdue. A malformed archive date (or report timestamp)
// simply keeps that rule from firing; resilience there is intentional, not
// an error path.
//
// The result is stably sorted high < medium < low, so ties keep the order
// in which they were generated (machine order of the input).
func EvaluateAlerts(states []*model.MachineState, now time.Time) []model.Alert {
	alerts := []model.Alert{}

	for _, st := range states {
		for _, d := range st.Drives {
			if d.UsedPercent < storageWarnPercent {
				continue
			}
			sev := model.SeverityMedium
			if d.UsedPercent >= storageHighPercent {
				sev = model.SeverityHigh
			}
			alerts = append(alerts, model.Alert{
				Type:         model.AlertStorage,
				Severity:     sev,
				ComputerName: st.ComputerName,
				Message:      fmt.Sprintf("drive %s at %g%% used (%gGB free)", d.Drive, d.UsedPercent, d.FreeGB),
				Timestamp:    st.Timestamp,
			})
		}

		if st.TotalPSTSizeGB >= pstWarnGB {
			sev := model.SeverityMedium
			if st.TotalPSTSizeGB >= pstHighGB {
				sev = model.SeverityHigh
			}
			alerts = append(alerts, model.Alert{
				Type:         model.AlertPSTSize,
				Severity:     sev,
				ComputerName: st.ComputerName,
				Message:      fmt.Sprintf("total PST size %gGB", st.TotalPSTSizeGB),
				Timestamp:    st.Timestamp,
			})
		}

		if reported, ok := ParseTimestamp(st.Timestamp); ok {
			if elapsed := now.Sub(reported); elapsed >= staleAfter {
				alerts = append(alerts, model.Alert{
					Type:         model.AlertOutdated,
					Severity:     model.SeverityLow,
					ComputerName: st.ComputerName,
					Message:      fmt.Sprintf("last report %d hours ago", int(elapsed.Hours())),
					Timestamp:    st.Timestamp,
				})
			}
		}

		if st.LastArchiveDate != "" {
			if archived, ok := ParseDate(st.LastArchiveDate); ok {
				days := int(now.Sub(archived).Hours() / 24)
				if days >= archiveOverdueDays {
					sev := model.SeverityMedium
					if days >= archiveHighDays {
						sev = model.SeverityHigh
					}
					alerts = append(alerts, model.Alert{
						Type:         model.AlertArchiveOverdue,
						Severity:     sev,
						ComputerName: st.ComputerName,
						Message:      fmt.Sprintf("archive overdue by %d days (last: %s)", days, st.LastArchiveDate),
						Timestamp:    st.Timestamp,
					})
				}
			}
		}
	}

	slices.SortStableFunc(alerts, func(a, b model.Alert) int {
		return severityRank(a.Severity) - severityRank(b.Severity)
	})
	return alerts
}

// Alerts resolves the current machine states and evaluates them with
// now = call time.
func (s *Service) Alerts() ([]model.Alert, error) {
	states, err := s.LatestStates()
	if err != nil {
		return nil, err
	}
	return EvaluateAlerts(states, s.clock.Now()), nil
}

func severityRank(severity string) int {
	switch severity {
	case model.SeverityHigh:
		return 0
	case model.SeverityMedium:
		return 1
	default:
		return 2
	}
}
