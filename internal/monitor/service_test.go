package monitor_test

import (
	"testing"
	"time"

	"pcmon/internal/model"
	"pcmon/internal/monitor"
	"pcmon/internal/testutil"
)

func newTestService(t *testing.T) (*monitor.Service, monitor.Store, *testutil.StubClock) {
	t.Helper()
	store := testutil.NewTestStore(t)
	clock := testutil.FixedClock()
	svc := monitor.NewService(store, monitor.NewNopLogger(), clock)
	return svc, store, clock
}

func report(computer string, ts time.Time) *model.Report {
	return &model.Report{
		ComputerName: computer,
		UserName:     "alice",
		IPAddress:    "10.0.0.5",
		Timestamp:    monitor.FormatTimestamp(ts),
		Drives:       []model.DriveUsage{{Drive: "C:", UsedPercent: 42, FreeGB: 120}},
	}
}

func TestIngest_Validation(t *testing.T) {
	svc, _, clock := newTestService(t)
	now := clock.Now()

	tests := []struct {
		name   string
		mutate func(*model.Report)
	}{
		{name: "missing computer_name", mutate: func(r *model.Report) { r.ComputerName = "" }},
		{name: "missing user_name", mutate: func(r *model.Report) { r.UserName = "" }},
		{name: "missing timestamp", mutate: func(r *model.Report) { r.Timestamp = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := report("PC1", now)
			tt.mutate(r)

			id, err := svc.Ingest(r)
			if err == nil {
				t.Fatal("Ingest() error = nil, want validation error")
			}
			if !monitor.IsValidation(err) {
				t.Errorf("IsValidation(%v) = false, want true", err)
			}
			if id != 0 {
				t.Errorf("Ingest() id = %d, want 0", id)
			}
		})
	}
}

func TestIngest_AssignsIncreasingIDs(t *testing.T) {
	svc, _, clock := newTestService(t)
	now := clock.Now()

	id1, err := svc.Ingest(report("PC1", now))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	id2, err := svc.Ingest(report("PC2", now))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if id1 != 1 || id2 != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", id1, id2)
	}
}

func TestIngest_ArchiveDateSideEffect(t *testing.T) {
	t.Run("date with time component is truncated", func(t *testing.T) {
		svc, store, clock := newTestService(t)

		r := report("PC1", clock.Now())
		r.WindowsUser = `CORP\alice`
		r.LastArchiveDate = "2024-01-10 14:22:33"

		if _, err := svc.Ingest(r); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		m, err := store.FindMapping("PC1")
		if err != nil {
			t.Fatalf("FindMapping() error = %v", err)
		}
		if m == nil {
			t.Fatal("FindMapping() = nil, want mapping created by ingest")
		}
		if m.LastArchiveDate != "2024-01-10" {
			t.Errorf("LastArchiveDate = %q, want %q", m.LastArchiveDate, "2024-01-10")
		}
		if m.WindowsUser != `CORP\alice` {
			t.Errorf("WindowsUser = %q, want %q", m.WindowsUser, `CORP\alice`)
		}
		if m.DisplayName != "alice" {
			t.Errorf("DisplayName = %q, want %q", m.DisplayName, "alice")
		}
	})

	t.Run("no archive date leaves mappings alone", func(t *testing.T) {
		svc, store, clock := newTestService(t)

		if _, err := svc.Ingest(report("PC1", clock.Now())); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		m, err := store.FindMapping("PC1")
		if err != nil {
			t.Fatalf("FindMapping() error = %v", err)
		}
		if m != nil {
			t.Errorf("FindMapping() = %+v, want nil", m)
		}
	})

	t.Run("existing mapping keeps its display fields", func(t *testing.T) {
		svc, store, clock := newTestService(t)

		if err := svc.UpdateDisplayName("PC1", "CORP\\alice", "Alice A."); err != nil {
			t.Fatalf("UpdateDisplayName() error = %v", err)
		}

		r := report("PC1", clock.Now())
		r.UserName = "bob"
		r.LastArchiveDate = "2024-01-12"
		if _, err := svc.Ingest(r); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		m, err := store.FindMapping("PC1")
		if err != nil {
			t.Fatalf("FindMapping() error = %v", err)
		}
		if m.DisplayName != "Alice A." {
			t.Errorf("DisplayName = %q, want unchanged %q", m.DisplayName, "Alice A.")
		}
		if m.LastArchiveDate != "2024-01-12" {
			t.Errorf("LastArchiveDate = %q, want %q", m.LastArchiveDate, "2024-01-12")
		}
	})
}

func TestLatestStates_LastReceivedWins(t *testing.T) {
	svc, _, clock := newTestService(t)
	now := clock.Now()

	// A back-dated report arriving later still wins: latest means last
	// received, not newest timestamp.
	if _, err := svc.Ingest(report("PC1", now)); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	backDated := report("PC1", now.Add(-2*time.Hour))
	backDated.IPAddress = "10.0.0.99"
	if _, err := svc.Ingest(backDated); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	states, err := svc.LatestStates()
	if err != nil {
		t.Fatalf("LatestStates() error = %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("got %d states, want 1", len(states))
	}
	if states[0].ID != 2 {
		t.Errorf("state report id = %d, want 2 (last received)", states[0].ID)
	}
	if states[0].IPAddress != "10.0.0.99" {
		t.Errorf("IPAddress = %q, want %q", states[0].IPAddress, "10.0.0.99")
	}
}

func TestLatestStates_OrderedByTimestampDesc(t *testing.T) {
	svc, _, clock := newTestService(t)
	now := clock.Now()

	if _, err := svc.Ingest(report("PC-old", now.Add(-3*time.Hour))); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if _, err := svc.Ingest(report("PC-new", now)); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	states, err := svc.LatestStates()
	if err != nil {
		t.Fatalf("LatestStates() error = %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("got %d states, want 2", len(states))
	}
	if states[0].ComputerName != "PC-new" || states[1].ComputerName != "PC-old" {
		t.Errorf("order = %s, %s; want PC-new, PC-old",
			states[0].ComputerName, states[1].ComputerName)
	}
}

func TestLatestStates_DisplayNameResolution(t *testing.T) {
	t.Run("no mapping falls back to report user", func(t *testing.T) {
		svc, _, clock := newTestService(t)
		if _, err := svc.Ingest(report("PC1", clock.Now())); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		states, err := svc.LatestStates()
		if err != nil {
			t.Fatalf("LatestStates() error = %v", err)
		}
		if states[0].DisplayName != "alice" {
			t.Errorf("DisplayName = %q, want %q", states[0].DisplayName, "alice")
		}
		if states[0].LastArchiveDate != "" {
			t.Errorf("LastArchiveDate = %q, want empty", states[0].LastArchiveDate)
		}
	})

	t.Run("mapping overrides and attaches archive date", func(t *testing.T) {
		svc, _, clock := newTestService(t)
		if _, err := svc.Ingest(report("PC1", clock.Now())); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if err := svc.UpdateDisplayName("PC1", "CORP\\alice", "Alice A."); err != nil {
			t.Fatalf("UpdateDisplayName() error = %v", err)
		}
		if err := svc.UpdateArchiveDate("PC1", "2024-01-02"); err != nil {
			t.Fatalf("UpdateArchiveDate() error = %v", err)
		}

		states, err := svc.LatestStates()
		if err != nil {
			t.Fatalf("LatestStates() error = %v", err)
		}
		if states[0].DisplayName != "Alice A." {
			t.Errorf("DisplayName = %q, want %q", states[0].DisplayName, "Alice A.")
		}
		if states[0].LastArchiveDate != "2024-01-02" {
			t.Errorf("LastArchiveDate = %q, want %q", states[0].LastArchiveDate, "2024-01-02")
		}
	})

	t.Run("mapping with empty display name falls back", func(t *testing.T) {
		svc, _, clock := newTestService(t)
		if _, err := svc.Ingest(report("PC1", clock.Now())); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		// Archive-only mapping created with "unknown" display defaults is
		// still a mapping; only an empty display name falls back.
		if err := svc.UpdateDisplayName("PC1", "", ""); err != nil {
			t.Fatalf("UpdateDisplayName() error = %v", err)
		}

		states, err := svc.LatestStates()
		if err != nil {
			t.Fatalf("LatestStates() error = %v", err)
		}
		if states[0].DisplayName != "alice" {
			t.Errorf("DisplayName = %q, want fallback %q", states[0].DisplayName, "alice")
		}
	})
}

func TestHistory_Window(t *testing.T) {
	svc, _, clock := newTestService(t)
	now := clock.Now()

	for _, age := range []int{0, 3, 10} {
		if _, err := svc.Ingest(report("PC1", now.AddDate(0, 0, -age))); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
	}
	if _, err := svc.Ingest(report("PC2", now)); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	tests := []struct {
		name string
		days int
		want int
	}{
		{name: "7 day window", days: 7, want: 2},
		{name: "wider window is a superset", days: 15, want: 3},
		{name: "boundary day is included", days: 10, want: 3},
		{name: "zero days keeps today only", days: 0, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports, err := svc.History("PC1", tt.days)
			if err != nil {
				t.Fatalf("History() error = %v", err)
			}
			if len(reports) != tt.want {
				t.Fatalf("got %d reports, want %d", len(reports), tt.want)
			}
			for i := 1; i < len(reports); i++ {
				if reports[i-1].Timestamp < reports[i].Timestamp {
					t.Errorf("reports out of order: %q before %q",
						reports[i-1].Timestamp, reports[i].Timestamp)
				}
			}
			for _, r := range reports {
				if r.ComputerName != "PC1" {
					t.Errorf("history leaked report for %q", r.ComputerName)
				}
			}
		})
	}
}

func TestSweep_CutoffIsExclusive(t *testing.T) {
	svc, _, clock := newTestService(t)
	now := clock.Now()

	for _, age := range []int{40, 31, 30, 29, 0} {
		if _, err := svc.Ingest(report("PC1", now.AddDate(0, 0, -age))); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
	}

	deleted, err := svc.Sweep(30)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("Sweep() deleted = %d, want 2 (exactly-30-days kept)", deleted)
	}

	// A second sweep with the same clock is a no-op.
	deleted, err = svc.Sweep(30)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("second Sweep() deleted = %d, want 0", deleted)
	}
}

func TestStatistics(t *testing.T) {
	svc, _, clock := newTestService(t)
	now := clock.Now()

	t.Run("empty store", func(t *testing.T) {
		stats, err := svc.Statistics()
		if err != nil {
			t.Fatalf("Statistics() error = %v", err)
		}
		if stats.TotalPCs != 0 || stats.TodayReports != 0 || stats.LastReportTime != "" {
			t.Errorf("Statistics() = %+v, want zero values", stats)
		}
	})

	t.Run("counts machines and today's reports", func(t *testing.T) {
		if _, err := svc.Ingest(report("PC1", now.AddDate(0, 0, -1))); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if _, err := svc.Ingest(report("PC1", now.Add(-time.Hour))); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if _, err := svc.Ingest(report("PC2", now)); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		stats, err := svc.Statistics()
		if err != nil {
			t.Fatalf("Statistics() error = %v", err)
		}
		if stats.TotalPCs != 2 {
			t.Errorf("TotalPCs = %d, want 2", stats.TotalPCs)
		}
		if stats.TodayReports != 2 {
			t.Errorf("TodayReports = %d, want 2", stats.TodayReports)
		}
		if want := monitor.FormatTimestamp(now); stats.LastReportTime != want {
			t.Errorf("LastReportTime = %q, want %q", stats.LastReportTime, want)
		}
	})
}

func TestUpdateArchiveDate_Defaults(t *testing.T) {
	svc, store, _ := newTestService(t)

	if err := svc.UpdateArchiveDate("PC1", "2024-01-05"); err != nil {
		t.Fatalf("UpdateArchiveDate() error = %v", err)
	}

	m, err := store.FindMapping("PC1")
	if err != nil {
		t.Fatalf("FindMapping() error = %v", err)
	}
	if m == nil {
		t.Fatal("FindMapping() = nil, want mapping")
	}
	if m.WindowsUser != "unknown" || m.DisplayName != "unknown" {
		t.Errorf("defaults = %q/%q, want unknown/unknown", m.WindowsUser, m.DisplayName)
	}
	if m.LastArchiveDate != "2024-01-05" {
		t.Errorf("LastArchiveDate = %q, want %q", m.LastArchiveDate, "2024-01-05")
	}

	// Idempotent and re-settable.
	if err := svc.UpdateArchiveDate("PC1", "2024-01-06"); err != nil {
		t.Fatalf("UpdateArchiveDate() error = %v", err)
	}
	m, err = store.FindMapping("PC1")
	if err != nil {
		t.Fatalf("FindMapping() error = %v", err)
	}
	if m.LastArchiveDate != "2024-01-06" {
		t.Errorf("LastArchiveDate = %q, want %q", m.LastArchiveDate, "2024-01-06")
	}

	mappings, err := svc.Mappings()
	if err != nil {
		t.Fatalf("Mappings() error = %v", err)
	}
	if len(mappings) != 1 {
		t.Errorf("got %d mappings after repeated updates, want 1", len(mappings))
	}
}

func TestUpdateDisplayName_Overwrites(t *testing.T) {
	svc, store, _ := newTestService(t)

	if err := svc.UpdateDisplayName("PC1", "CORP\\old", "Old Name"); err != nil {
		t.Fatalf("UpdateDisplayName() error = %v", err)
	}
	if err := svc.UpdateDisplayName("PC1", "CORP\\new", "New Name"); err != nil {
		t.Fatalf("UpdateDisplayName() error = %v", err)
	}

	m, err := store.FindMapping("PC1")
	if err != nil {
		t.Fatalf("FindMapping() error = %v", err)
	}
	if m.WindowsUser != "CORP\\new" || m.DisplayName != "New Name" {
		t.Errorf("mapping = %q/%q, want CORP\\new/New Name", m.WindowsUser, m.DisplayName)
	}

	mappings, err := svc.Mappings()
	if err != nil {
		t.Fatalf("Mappings() error = %v", err)
	}
	if len(mappings) != 1 {
		t.Errorf("got %d mappings, want 1 (upsert, not append)", len(mappings))
	}
}

func TestAlerts_UsesMappingArchiveDate(t *testing.T) {
	svc, _, clock := newTestService(t)
	now := clock.Now()

	if _, err := svc.Ingest(report("PC1", now)); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if err := svc.UpdateArchiveDate("PC1", monitor.FormatDate(now.AddDate(0, 0, -200))); err != nil {
		t.Fatalf("UpdateArchiveDate() error = %v", err)
	}

	alerts, err := svc.Alerts()
	if err != nil {
		t.Fatalf("Alerts() error = %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].Type != model.AlertArchiveOverdue || alerts[0].Severity != model.SeverityHigh {
		t.Errorf("got %s/%s, want archive_overdue/high", alerts[0].Type, alerts[0].Severity)
	}
}
