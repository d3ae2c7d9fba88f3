package model

import "encoding/json"

// DriveUsage describes one logical drive from an agent report.
type DriveUsage struct {
	Drive       string  `json:"drive"`
	UsedPercent float64 `json:"used_percent"`
	FreeGB      float64 `json:"free_gb"`
}

// Report is one self-report from a fleet machine. Reports are immutable
// once stored; they are only ever removed in bulk by retention sweeps.
//
// Timestamp and CreatedAt are fixed-width "YYYY-MM-DD HH:MM:SS" strings.
// Lexical order of that format equals chronological order, and the store's
// range queries depend on it.
type Report struct {
	ID           int64        `json:"id,omitempty"`
	ComputerName string       `json:"computer_name"`
	UserName     string       `json:"user_name"`
	IPAddress    string       `json:"ip_address,omitempty"`
	Timestamp    string       `json:"timestamp"`
	Drives       []DriveUsage `json:"drives"`

	// PSTFiles and MailInfo are agent-structured blobs stored and returned
	// verbatim; the server only reads the pre-aggregated total size.
	PSTFiles       json.RawMessage `json:"pst_files,omitempty"`
	TotalPSTSizeGB float64         `json:"total_pst_size_gb"`
	MailInfo       json.RawMessage `json:"mail_info,omitempty"`

	ActiveEmailAccounts []string `json:"active_email_accounts"`

	CreatedAt string `json:"created_at,omitempty"`

	// Ingest-only fields. Agents may send these alongside a report; they
	// feed the user-mapping side effect and are not pc_reports columns.
	WindowsUser     string `json:"windows_user,omitempty"`
	LastArchiveDate string `json:"last_archive_date,omitempty"`
}

// UserMapping is the per-machine identity record: a display name for the
// reported account plus the last known archive-completed date. One row per
// computer name; created implicitly on first archive-date write or
// explicitly via a display-name update.
type UserMapping struct {
	ID              int64  `json:"id"`
	ComputerName    string `json:"computer_name"`
	WindowsUser     string `json:"windows_user"`
	DisplayName     string `json:"display_name"`
	LastArchiveDate string `json:"last_archive_date,omitempty"`
	UpdatedAt       string `json:"updated_at"`
}

// MachineState is the resolved current view of one machine: its latest
// report joined with the mapping's display name and archive date.
type MachineState struct {
	Report

	DisplayName     string `json:"display_name"`
	LastArchiveDate string `json:"last_archive_date"`
}

// Alert severities, ordered most to least urgent.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Alert rule families.
const (
	AlertStorage        = "storage"
	AlertPSTSize        = "pst_size"
	AlertOutdated       = "outdated"
	AlertArchiveOverdue = "archive_overdue"
)

// Alert is one condition violation derived from a machine's current state.
type Alert struct {
	Type         string `json:"type"`
	Severity     string `json:"severity"`
	ComputerName string `json:"computer_name"`
	Message      string `json:"message"`
	Timestamp    string `json:"timestamp"`
}

// Statistics summarizes the whole report log.
type Statistics struct {
	TotalPCs       int    `json:"total_pcs"`
	TodayReports   int    `json:"today_reports"`
	LastReportTime string `json:"last_report_time,omitempty"`
}
