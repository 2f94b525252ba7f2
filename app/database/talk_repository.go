package database

import (
	"database/sql"
	"fmt"
)

// TalkRepo handles database operations for talks
type TalkRepo struct {
	db *DB
}

func NewTalkRepository(db *DB) *TalkRepo {
	return &TalkRepo{db: db}
}

// UpsertTalk inserts a talk on first sight and otherwise overwrites it only when
// the snapshot's mtime is strictly newer than the stored one.
func (r *TalkRepo) UpsertTalk(s TalkSnapshot) (UpsertResult, error) {
	var storedMtime sql.NullInt64
	err := r.db.QueryRow(`SELECT last_mtime FROM talks WHERE id = ?`, s.ID).Scan(&storedMtime)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to check existing talk: %w", err)
	}

	if err == sql.ErrNoRows {
		_, err = r.db.Exec(`
			INSERT INTO talks (
				id, guid, title, room, status,
				start, duration, release_url, last_mtime
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, s.ID, s.GUID, s.Title, s.Room, s.Status,
			s.Start, s.Duration, nullString(s.ReleaseURL), s.Mtime)
		if err != nil {
			return "", fmt.Errorf("failed to insert talk: %w", err)
		}
		return UpsertInserted, nil
	}

	// A NULL mtime counts as 0
	if s.Mtime <= storedMtime.Int64 {
		return UpsertStale, nil
	}

	_, err = r.db.Exec(`
		UPDATE talks
		SET guid = ?, title = ?, room = ?, status = ?,
		    start = ?, duration = ?, release_url = ?, last_mtime = ?
		WHERE id = ?
	`, s.GUID, s.Title, s.Room, s.Status,
		s.Start, s.Duration, nullString(s.ReleaseURL), s.Mtime, s.ID)
	if err != nil {
		return "", fmt.Errorf("failed to update talk: %w", err)
	}

	return UpsertUpdated, nil
}

// UpdateEnrichment stores scraped authors and description. Nothing is written
// when both are empty so earlier results are not clobbered.
func (r *TalkRepo) UpdateEnrichment(talkID int64, authors string, description string) (bool, error) {
	if authors == "" && description == "" {
		return false, nil
	}

	res, err := r.db.Exec(`
		UPDATE talks
		SET authors = ?, description = ?
		WHERE id = ?
	`, authors, description, talkID)
	if err != nil {
		return false, fmt.Errorf("failed to update talk enrichment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *TalkRepo) GetTalk(id int64) (*Talk, error) {
	row := r.db.QueryRow(`
		SELECT `+talkColumns+`
		FROM talks
		WHERE id = ?
	`, id)

	talk, err := scanTalk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get talk: %w", err)
	}

	return talk, nil
}

// ListTalks returns talks ordered by start time; an empty status lists all.
func (r *TalkRepo) ListTalks(status string) ([]Talk, error) {
	rows, err := r.db.Query(`
		SELECT `+talkColumns+`
		FROM talks
		WHERE (? = '' OR status = ?)
		ORDER BY COALESCE(start, 0), id
	`, status, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list talks: %w", err)
	}
	defer rows.Close()

	var talks []Talk
	for rows.Next() {
		talk, err := scanTalk(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan talk row: %w", err)
		}
		talks = append(talks, *talk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating talk rows: %w", err)
	}

	return talks, nil
}

func (r *TalkRepo) GetTalkCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM talks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get talk count: %w", err)
	}
	return count, nil
}

func (r *TalkRepo) GetStatusCounts() ([]StatusCount, error) {
	rows, err := r.db.Query(`
		SELECT COALESCE(status, ''), COUNT(*)
		FROM talks
		GROUP BY COALESCE(status, '')
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get status counts: %w", err)
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}

	return counts, nil
}

const talkColumns = `id, COALESCE(guid, ''), COALESCE(title, ''), COALESCE(room, ''), COALESCE(status, ''),
	       COALESCE(start, 0), COALESCE(duration, 0), release_url,
	       COALESCE(authors, ''), COALESCE(description, ''), COALESCE(last_mtime, 0)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTalk(row rowScanner) (*Talk, error) {
	var talk Talk
	var releaseURL sql.NullString
	err := row.Scan(
		&talk.ID, &talk.GUID, &talk.Title, &talk.Room, &talk.Status,
		&talk.Start, &talk.Duration, &releaseURL,
		&talk.Authors, &talk.Description, &talk.LastMtime,
	)
	if err != nil {
		return nil, err
	}
	if releaseURL.Valid {
		talk.ReleaseURL = &releaseURL.String
	}
	return &talk, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
