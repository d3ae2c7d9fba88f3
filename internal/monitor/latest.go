package monitor

import (
	"fmt"

	"pcmon/internal/model"
)

// LatestStates resolves the current view of every machine: the latest
// report per machine (by id, newest timestamp first) joined with the user
// mapping. The display name falls back to the report's own user name when
// no mapping exists or the mapped name is empty; the archive date is
// attached as-is (empty when none is recorded).
//
// This is the sole input to alert evaluation and the sole external
// "latest reports" view.
func (s *Service) LatestStates() ([]*model.MachineState, error) {
	reports, err := s.store.LatestPerMachine()
	if err != nil {
		return nil, fmt.Errorf("loading latest reports: %w", err)
	}

	states := make([]*model.MachineState, 0, len(reports))
	for _, r := range reports {
		mapping, err := s.store.FindMapping(r.ComputerName)
		if err != nil {
			return nil, fmt.Errorf("loading mapping for %s: %w", r.ComputerName, err)
		}

		display := r.UserName
		archiveDate := ""
		if mapping != nil {
			if mapping.DisplayName != "" {
				display = mapping.DisplayName
			}
			archiveDate = mapping.LastArchiveDate
		}

		states = append(states, &model.MachineState{
			Report:          *r,
			DisplayName:     display,
			LastArchiveDate: archiveDate,
		})
	}

	return states, nil
}
