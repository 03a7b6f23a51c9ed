package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/imkarma/zedd/internal/state"
	"github.com/imkarma/zedd/internal/task"
	"github.com/imkarma/zedd/internal/timeutil"
)

var (
	// ErrNotInitialized is returned by Open when no database exists yet.
	ErrNotInitialized = errors.New("zedd not initialized, run 'zedd init'")
	// ErrNoSnapshot is returned when the database holds no usable snapshot.
	ErrNoSnapshot = errors.New("no saved state")
)

// Store keeps the history of saved tracker states.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode so the TUI and one-shot commands can share the file.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Open opens an existing database.
func Open(dbPath string) (*Store, error) {
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotInitialized
	}
	return New(dbPath)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id                TEXT PRIMARY KEY,
		saved_at          INTEGER NOT NULL,
		current_task      TEXT NOT NULL DEFAULT '',
		timing            INTEGER NOT NULL DEFAULT 1,
		last_user_action  INTEGER NOT NULL DEFAULT 0,
		cursor            INTEGER NOT NULL DEFAULT -1
	);

	CREATE TABLE IF NOT EXISTS snapshot_tasks (
		snapshot_id  TEXT NOT NULL REFERENCES snapshots(id),
		pos          INTEGER NOT NULL,
		name         TEXT NOT NULL,
		key          TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS snapshot_slices (
		snapshot_id  TEXT NOT NULL REFERENCES snapshots(id),
		pos          INTEGER NOT NULL,
		start_ns     INTEGER NOT NULL,
		end_ns       INTEGER NOT NULL,
		task         TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshot_recent (
		snapshot_id  TEXT NOT NULL REFERENCES snapshots(id),
		pos          INTEGER NOT NULL,
		name         TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_saved_at ON snapshots(saved_at);
	CREATE INDEX IF NOT EXISTS idx_snapshot_slices ON snapshot_slices(snapshot_id, pos);
	CREATE INDEX IF NOT EXISTS idx_snapshot_tasks ON snapshot_tasks(snapshot_id, pos);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Task metadata was added after the first release.
	s.addColumnIfMissing("snapshot_tasks", "comment", "TEXT DEFAULT ''")
	s.addColumnIfMissing("snapshot_tasks", "external_id", "INTEGER DEFAULT 0")

	return nil
}

// addColumnIfMissing adds a column to a table if it doesn't exist yet.
func (s *Store) addColumnIfMissing(table, column, colDef string) {
	rows, err := s.db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue *string
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return
		}
		if name == column {
			return
		}
	}

	s.db.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + colDef)
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Save stores snap as a new history entry in one transaction and returns its id.
func (s *Store) Save(snap state.Snapshot, savedAt time.Time) (string, error) {
	id := uuid.NewString()
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	timing := 0
	if snap.TimingInProgress {
		timing = 1
	}
	if _, err := tx.Exec(
		`INSERT INTO snapshots (id, saved_at, current_task, timing, last_user_action, cursor)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, savedAt.UnixNano(), snap.CurrentTask, timing, nanos(snap.LastUserAction), snap.LastTimedSlice,
	); err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	for i, t := range snap.Tasks {
		if _, err := tx.Exec(
			`INSERT INTO snapshot_tasks (snapshot_id, pos, name, key, comment, external_id) VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, t.Name, t.Key, t.Comment, t.ExternalID,
		); err != nil {
			return "", fmt.Errorf("insert task: %w", err)
		}
	}
	for i, rec := range snap.Slices {
		if _, err := tx.Exec(
			`INSERT INTO snapshot_slices (snapshot_id, pos, start_ns, end_ns, task) VALUES (?, ?, ?, ?, ?)`,
			id, i, nanos(rec.Start), nanos(rec.End), rec.Task,
		); err != nil {
			return "", fmt.Errorf("insert slice: %w", err)
		}
	}
	for i, name := range snap.RecentTasks {
		if _, err := tx.Exec(
			`INSERT INTO snapshot_recent (snapshot_id, pos, name) VALUES (?, ?, ?)`,
			id, i, name,
		); err != nil {
			return "", fmt.Errorf("insert recent task: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save: %w", err)
	}
	return id, nil
}

// Load returns the newest snapshot.
func (s *Store) Load() (state.Snapshot, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM snapshots ORDER BY saved_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return state.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("find latest snapshot: %w", err)
	}
	return s.LoadID(id)
}

// LoadID returns the snapshot with the given id.
func (s *Store) LoadID(id string) (state.Snapshot, error) {
	var snap state.Snapshot
	var timing int
	var lastUserAction int64
	err := s.db.QueryRow(
		`SELECT current_task, timing, last_user_action, cursor FROM snapshots WHERE id = ?`, id,
	).Scan(&snap.CurrentTask, &timing, &lastUserAction, &snap.LastTimedSlice)
	if err == sql.ErrNoRows {
		return state.Snapshot{}, fmt.Errorf("snapshot %s: %w", id, ErrNoSnapshot)
	}
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	snap.TimingInProgress = timing != 0
	snap.LastUserAction = fromNanos(lastUserAction)

	rows, err := s.db.Query(
		`SELECT name, key, comment, external_id FROM snapshot_tasks WHERE snapshot_id = ? ORDER BY pos`, id,
	)
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("get tasks: %w", err)
	}
	for rows.Next() {
		var t task.Task
		var key, comment sql.NullString
		var externalID sql.NullInt64
		if err := rows.Scan(&t.Name, &key, &comment, &externalID); err != nil {
			rows.Close()
			return state.Snapshot{}, fmt.Errorf("scan task: %w", err)
		}
		t.Key, t.Comment, t.ExternalID = key.String, comment.String, externalID.Int64
		snap.Tasks = append(snap.Tasks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return state.Snapshot{}, fmt.Errorf("get tasks: %w", err)
	}

	rows, err = s.db.Query(
		`SELECT start_ns, end_ns, task FROM snapshot_slices WHERE snapshot_id = ? ORDER BY pos`, id,
	)
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("get slices: %w", err)
	}
	for rows.Next() {
		var start, end int64
		var rec state.SliceRecord
		if err := rows.Scan(&start, &end, &rec.Task); err != nil {
			rows.Close()
			return state.Snapshot{}, fmt.Errorf("scan slice: %w", err)
		}
		rec.Start, rec.End = fromNanos(start), fromNanos(end)
		snap.Slices = append(snap.Slices, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return state.Snapshot{}, fmt.Errorf("get slices: %w", err)
	}

	rows, err = s.db.Query(`SELECT name FROM snapshot_recent WHERE snapshot_id = ? ORDER BY pos`, id)
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("get recent tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return state.Snapshot{}, fmt.Errorf("scan recent task: %w", err)
		}
		snap.RecentTasks = append(snap.RecentTasks, name)
	}
	return snap, rows.Err()
}

// LoadNewest hands snapshots to restore from newest to oldest until one is
// accepted, and returns the id of that snapshot. Rejected snapshots are
// logged.
func (s *Store) LoadNewest(restore func(state.Snapshot) error) (string, error) {
	history, err := s.History()
	if err != nil {
		return "", err
	}
	for _, info := range history {
		snap, err := s.LoadID(info.ID)
		if err == nil {
			err = restore(snap)
		}
		if err == nil {
			return info.ID, nil
		}
		log.Printf("store: skip snapshot %s from %s: %v", info.ID, info.SavedAt.Format(time.RFC3339), err)
	}
	return "", ErrNoSnapshot
}

// History lists saved snapshots, newest first.
func (s *Store) History() ([]Info, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.saved_at, s.current_task,
		        (SELECT COUNT(*) FROM snapshot_slices sl WHERE sl.snapshot_id = s.id)
		 FROM snapshots s ORDER BY s.saved_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var savedAt int64
		if err := rows.Scan(&info.ID, &savedAt, &info.Current, &info.Slices); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		info.SavedAt = time.Unix(0, savedAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Prune thins out the history: everything from the last hour is kept, one
// snapshot per hour for the last day and one per day before that. It
// returns the number of snapshots deleted.
func (s *Store) Prune(now time.Time) (int, error) {
	history, err := s.History()
	if err != nil {
		return 0, err
	}
	dates := make([]time.Time, len(history))
	for i, info := range history {
		dates[i] = info.SavedAt.In(now.Location())
	}
	keep := falloff(dates, now)

	var doomed []string
	for i, info := range history {
		if !keep[i] {
			doomed = append(doomed, info.ID)
		}
	}
	return s.delete(doomed)
}

// Trim deletes every snapshot except the newest one.
func (s *Store) Trim() (int, error) {
	history, err := s.History()
	if err != nil || len(history) < 2 {
		return 0, err
	}
	var doomed []string
	for _, info := range history[1:] {
		doomed = append(doomed, info.ID)
	}
	return s.delete(doomed)
}

// delete removes the given snapshots with their children in one transaction.
func (s *Store) delete(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin prune: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		for _, table := range []string{"snapshot_slices", "snapshot_tasks", "snapshot_recent"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE snapshot_id = ?`, id); err != nil {
				return 0, fmt.Errorf("prune %s: %w", table, err)
			}
		}
		if _, err := tx.Exec(`DELETE FROM snapshots WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("prune snapshot: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return len(ids), nil
}

// falloff reports which of dates to keep. The newest is always kept; each
// further date is compared with the last kept one.
func falloff(dates []time.Time, now time.Time) []bool {
	order := make([]int, len(dates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return dates[order[a]].After(dates[order[b]]) })

	keep := make([]bool, len(dates))
	var prev time.Time
	for n, i := range order {
		cur := dates[i]
		switch age := now.Sub(cur); {
		case n == 0 || age < time.Hour:
			keep[i] = true
		case age < 24*time.Hour:
			keep[i] = !timeutil.SameDay(prev, cur) || prev.Hour() != cur.Hour()
		default:
			keep[i] = !timeutil.SameDay(prev, cur)
		}
		if keep[i] {
			prev = cur
		}
	}
	return keep
}
