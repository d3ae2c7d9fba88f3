package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"pcmon/internal/database/migrations"
	"pcmon/internal/model"
	"pcmon/internal/monitor"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the monitor.Store interface using SQLite.
//
// Structured report fields (drives, PST files, mail info, account list) are
// stored as serialized JSON text in their columns; timestamps are stored as
// the fixed-width strings the rest of the system sorts on.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens a SQLite store at path.
// path can be a file path or ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, path: ""}
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a raw connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Wait for locks instead of failing immediately; request handlers may
	// hit the store concurrently.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// Report log operations

const reportColumns = `id, computer_name, user_name, ip_address, timestamp,
	drives_info, pst_files, total_pst_size_gb, mail_info, active_email_accounts, created_at`

func (s *SQLiteStore) AppendReport(r *model.Report) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO pc_reports (
			computer_name, user_name, ip_address, timestamp,
			drives_info, pst_files, total_pst_size_gb, mail_info, active_email_accounts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ComputerName,
		r.UserName,
		r.IPAddress,
		r.Timestamp,
		encodeDrives(r.Drives),
		encodeRaw(r.PSTFiles, "[]"),
		r.TotalPSTSizeGB,
		encodeRaw(r.MailInfo, "{}"),
		encodeAccounts(r.ActiveEmailAccounts),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting report: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading report id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) LatestPerMachine() ([]*model.Report, error) {
	rows, err := s.db.Query(`
		SELECT ` + reportColumns + `
		FROM pc_reports
		WHERE id IN (
			SELECT MAX(id) FROM pc_reports GROUP BY computer_name
		)
		ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying latest reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

func (s *SQLiteStore) History(computerName, sinceDate string) ([]*model.Report, error) {
	rows, err := s.db.Query(`
		SELECT `+reportColumns+`
		FROM pc_reports
		WHERE computer_name = ? AND timestamp >= ?
		ORDER BY timestamp DESC`,
		computerName, sinceDate)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

func (s *SQLiteStore) PurgeOlderThan(cutoffDate string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM pc_reports WHERE timestamp < ?`, cutoffDate)
	if err != nil {
		return 0, fmt.Errorf("purging reports: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged reports: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Statistics(today string) (*model.Statistics, error) {
	stats := &model.Statistics{}

	err := s.db.QueryRow(`SELECT COUNT(DISTINCT computer_name) FROM pc_reports`).
		Scan(&stats.TotalPCs)
	if err != nil {
		return nil, fmt.Errorf("counting machines: %w", err)
	}

	err = s.db.QueryRow(`SELECT COUNT(*) FROM pc_reports WHERE DATE(timestamp) = DATE(?)`, today).
		Scan(&stats.TodayReports)
	if err != nil {
		return nil, fmt.Errorf("counting today's reports: %w", err)
	}

	var last sql.NullString
	err = s.db.QueryRow(`SELECT MAX(timestamp) FROM pc_reports`).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("finding last report time: %w", err)
	}
	stats.LastReportTime = last.String

	return stats, nil
}

// User mapping operations

func (s *SQLiteStore) FindMapping(computerName string) (*model.UserMapping, error) {
	row := s.db.QueryRow(`
		SELECT id, computer_name, windows_user, display_name, last_archive_date, updated_at
		FROM user_mappings
		WHERE computer_name = ?`,
		computerName)

	m, err := scanMapping(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding mapping: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) SetDisplayName(computerName, windowsUser, displayName, updatedAt string) error {
	_, err := s.db.Exec(`
		INSERT INTO user_mappings (computer_name, windows_user, display_name, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(computer_name) DO UPDATE SET
			windows_user = excluded.windows_user,
			display_name = excluded.display_name,
			updated_at = excluded.updated_at`,
		computerName, windowsUser, displayName, updatedAt)
	if err != nil {
		return fmt.Errorf("setting display name: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetArchiveDate(computerName, archiveDate, windowsUser, userName, updatedAt string) error {
	// Defaults apply only on the insert arm; an existing row keeps its
	// display fields.
	if windowsUser == "" {
		windowsUser = "unknown"
	}
	if userName == "" {
		userName = "unknown"
	}

	_, err := s.db.Exec(`
		INSERT INTO user_mappings (computer_name, windows_user, display_name, last_archive_date, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(computer_name) DO UPDATE SET
			last_archive_date = excluded.last_archive_date,
			updated_at = excluded.updated_at`,
		computerName, windowsUser, userName, archiveDate, updatedAt)
	if err != nil {
		return fmt.Errorf("setting archive date: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMappings() ([]*model.UserMapping, error) {
	rows, err := s.db.Query(`
		SELECT id, computer_name, windows_user, display_name, last_archive_date, updated_at
		FROM user_mappings
		ORDER BY computer_name`)
	if err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}
	defer rows.Close()

	mappings := []*model.UserMapping{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mappings: %w", err)
	}
	return mappings, nil
}

// Path returns the database file path (or ":memory:" for in-memory stores).
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Migrate brings the database schema to the latest version.
func (s *SQLiteStore) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Row mapping

type rowScanner interface {
	Scan(dest ...any) error
}

func collectReports(rows *sql.Rows) ([]*model.Report, error) {
	reports := []*model.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}
	return reports, nil
}

func scanReport(row rowScanner) (*model.Report, error) {
	var (
		r         model.Report
		ipAddress sql.NullString
		drives    sql.NullString
		pstFiles  sql.NullString
		totalPST  sql.NullFloat64
		mailInfo  sql.NullString
		accounts  sql.NullString
		createdAt sql.NullString
	)

	err := row.Scan(&r.ID, &r.ComputerName, &r.UserName, &ipAddress, &r.Timestamp,
		&drives, &pstFiles, &totalPST, &mailInfo, &accounts, &createdAt)
	if err != nil {
		return nil, err
	}

	r.IPAddress = ipAddress.String
	r.TotalPSTSizeGB = totalPST.Float64
	r.CreatedAt = createdAt.String

	r.Drives = []model.DriveUsage{}
	if drives.Valid && drives.String != "" {
		if err := json.Unmarshal([]byte(drives.String), &r.Drives); err != nil {
			return nil, fmt.Errorf("decoding drives for report %d: %w", r.ID, err)
		}
	}

	r.PSTFiles = decodeRaw(pstFiles, "[]")
	r.MailInfo = decodeRaw(mailInfo, "{}")

	r.ActiveEmailAccounts = []string{}
	if accounts.Valid && accounts.String != "" {
		if err := json.Unmarshal([]byte(accounts.String), &r.ActiveEmailAccounts); err != nil {
			return nil, fmt.Errorf("decoding accounts for report %d: %w", r.ID, err)
		}
	}

	return &r, nil
}

func scanMapping(row rowScanner) (*model.UserMapping, error) {
	var (
		m           model.UserMapping
		archiveDate sql.NullString
		updatedAt   sql.NullString
	)

	err := row.Scan(&m.ID, &m.ComputerName, &m.WindowsUser, &m.DisplayName,
		&archiveDate, &updatedAt)
	if err != nil {
		return nil, err
	}

	m.LastArchiveDate = archiveDate.String
	m.UpdatedAt = updatedAt.String
	return &m, nil
}

// JSON column encoding

func encodeDrives(drives []model.DriveUsage) string {
	if len(drives) == 0 {
		return "[]"
	}
	b, err := json.Marshal(drives)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func encodeAccounts(accounts []string) string {
	if len(accounts) == 0 {
		return "[]"
	}
	b, err := json.Marshal(accounts)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func encodeRaw(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	return string(raw)
}

func decodeRaw(col sql.NullString, fallback string) json.RawMessage {
	if col.Valid && col.String != "" {
		return json.RawMessage(col.String)
	}
	return json.RawMessage(fallback)
}

// Compile-time check that SQLiteStore implements the monitor.Store interface
var _ monitor.Store = (*SQLiteStore)(nil)
