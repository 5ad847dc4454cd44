package store

import (
	"database/sql"
	"fmt"

	"github.com/franz/fav-janitor/internal/util"
)

// GetPath returns the cached path for a favorite if the file still exists.
// A row whose file has vanished is deleted and reported as a miss.
func (s *Store) GetPath(groupKey, identifier string) (string, bool, error) {
	var path string
	err := s.db.QueryRow(`
		SELECT path FROM path_cache WHERE group_key = ? AND identifier = ?
	`, groupKey, identifier).Scan(&path)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached path: %w", err)
	}

	if util.FileExists(path) {
		return path, true, nil
	}

	util.DebugLog("Cached path for %s/%s is stale: %s", groupKey, identifier, path)
	if _, err := s.db.Exec(`
		DELETE FROM path_cache WHERE group_key = ? AND identifier = ?
	`, groupKey, identifier); err != nil {
		return "", false, fmt.Errorf("failed to delete stale path: %w", err)
	}
	s.reportStale(groupKey, identifier, path)

	return "", false, nil
}

// PutPath records the resolved path for a favorite. Storing the same path
// again is a no-op. Re-pointing a favorite to a different file drops the
// metadata of the old file unless another favorite still references it.
func (s *Store) PutPath(groupKey, identifier, path string) error {
	if path == "" {
		return nil
	}

	return s.Transaction(func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRow(`
			SELECT path FROM path_cache WHERE group_key = ? AND identifier = ?
		`, groupKey, identifier).Scan(&existing)

		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.Exec(`
				INSERT INTO path_cache (group_key, identifier, path) VALUES (?, ?, ?)
			`, groupKey, identifier, path); err != nil {
				return fmt.Errorf("failed to insert path: %w", err)
			}
			return nil

		case err != nil:
			return fmt.Errorf("failed to read cached path: %w", err)

		case existing == path:
			return nil
		}

		if _, err := tx.Exec(`
			UPDATE path_cache SET path = ?, resolved_at = CURRENT_TIMESTAMP
			WHERE group_key = ? AND identifier = ?
		`, path, groupKey, identifier); err != nil {
			return fmt.Errorf("failed to update path: %w", err)
		}

		if _, err := tx.Exec(`
			DELETE FROM metadata_cache
			WHERE path = ? AND NOT EXISTS (SELECT 1 FROM path_cache WHERE path = ?)
		`, existing, existing); err != nil {
			return fmt.Errorf("failed to drop metadata of previous path: %w", err)
		}

		return nil
	})
}

// ListPaths returns every cached favorite ordered by group and identifier
func (s *Store) ListPaths() ([]*PathEntry, error) {
	rows, err := s.db.Query(`
		SELECT group_key, identifier, path, resolved_at
		FROM path_cache
		ORDER BY group_key, identifier
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query paths: %w", err)
	}
	defer rows.Close()

	var entries []*PathEntry
	for rows.Next() {
		e := &PathEntry{}
		if err := rows.Scan(&e.GroupKey, &e.Identifier, &e.Path, &e.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// purgePath removes every row referencing path from both tables and
// reports each favorite that pointed at it
func (s *Store) purgePath(path string) error {
	var (
		owners      []PathEntry
		metaRemoved int64
	)
	err := s.Transaction(func(tx *sql.Tx) error {
		rows, err := tx.Query(`
			SELECT group_key, identifier FROM path_cache WHERE path = ?
			ORDER BY group_key, identifier
		`, path)
		if err != nil {
			return fmt.Errorf("failed to query paths: %w", err)
		}
		for rows.Next() {
			e := PathEntry{Path: path}
			if err := rows.Scan(&e.GroupKey, &e.Identifier); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan path: %w", err)
			}
			owners = append(owners, e)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to query paths: %w", err)
		}

		res, err := tx.Exec("DELETE FROM metadata_cache WHERE path = ?", path)
		if err != nil {
			return fmt.Errorf("failed to purge metadata: %w", err)
		}
		metaRemoved, _ = res.RowsAffected()
		if _, err := tx.Exec("DELETE FROM path_cache WHERE path = ?", path); err != nil {
			return fmt.Errorf("failed to purge paths: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(owners) == 0 && metaRemoved > 0 {
		s.reportStale("", "", path)
	}
	for _, e := range owners {
		s.reportStale(e.GroupKey, e.Identifier, e.Path)
	}
	return nil
}
