package database

import (
	"database/sql"
	"fmt"
)

// FileRepo handles database operations for retrieved asset files
type FileRepo struct {
	db *DB
}

func NewFileRepository(db *DB) *FileRepo {
	return &FileRepo{db: db}
}

// RecordFileIfAbsent inserts a file row unless the (talk, type, url) triple is
// already recorded. It reports whether a row was inserted.
func (r *FileRepo) RecordFileIfAbsent(talkID int64, fileType string, fileURL string, localPath string) (bool, error) {
	var existingID int64
	err := r.db.QueryRow(`
		SELECT id FROM files
		WHERE talk_id = ? AND file_type = ? AND file_url = ?
	`, talkID, fileType, fileURL).Scan(&existingID)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to check existing file: %w", err)
	}

	res, err := r.db.Exec(`
		INSERT INTO files (talk_id, file_type, file_url, local_path)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (talk_id, file_type, file_url) DO NOTHING
	`, talkID, fileType, fileURL, localPath)
	if err != nil {
		return false, fmt.Errorf("failed to insert file: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *FileRepo) ListFiles(talkID int64) ([]File, error) {
	rows, err := r.db.Query(`
		SELECT id, talk_id, file_type, file_url, local_path
		FROM files
		WHERE talk_id = ?
		ORDER BY id
	`, talkID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.TalkID, &f.FileType, &f.FileURL, &f.LocalPath); err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file rows: %w", err)
	}

	return files, nil
}

func (r *FileRepo) GetFileCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get file count: %w", err)
	}
	return count, nil
}
