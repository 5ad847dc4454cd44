package store

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/franz/fav-janitor/internal/util"
)

// PruneResult reports how many stale rows a sweep removed
type PruneResult struct {
	PathsRemoved    int
	MetadataRemoved int
}

// Stats summarizes the cache contents
type Stats struct {
	PathEntries     int
	MetadataEntries int
	MetadataPresent int
	MetadataAbsent  int
	MetadataPending int
	SizeBytes       int64
}

// PruneStale deletes every path and metadata row whose file no longer exists.
// Reads self-heal one row at a time; this sweeps the whole cache at once.
func (s *Store) PruneStale() (*PruneResult, error) {
	stalePaths, err := s.stalePaths("SELECT DISTINCT path FROM path_cache")
	if err != nil {
		return nil, err
	}
	staleMeta, err := s.stalePaths("SELECT path FROM metadata_cache")
	if err != nil {
		return nil, err
	}

	result := &PruneResult{}
	err = s.Transaction(func(tx *sql.Tx) error {
		for _, path := range stalePaths {
			res, err := tx.Exec("DELETE FROM path_cache WHERE path = ?", path)
			if err != nil {
				return fmt.Errorf("failed to prune path %s: %w", path, err)
			}
			n, _ := res.RowsAffected()
			result.PathsRemoved += int(n)
		}
		for _, path := range staleMeta {
			res, err := tx.Exec("DELETE FROM metadata_cache WHERE path = ?", path)
			if err != nil {
				return fmt.Errorf("failed to prune metadata %s: %w", path, err)
			}
			n, _ := res.RowsAffected()
			result.MetadataRemoved += int(n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) stalePaths(query string) ([]string, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached paths: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		if !util.FileExists(path) {
			stale = append(stale, path)
		}
	}

	return stale, rows.Err()
}

// Stats counts rows per table and metadata state
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM path_cache").Scan(&st.PathEntries); err != nil {
		return nil, fmt.Errorf("failed to count paths: %w", err)
	}

	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN metadata_json = '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN metadata_json IS NULL AND ckpt_name IS NULL
			                   AND sampler_name1 IS NULL AND sampler_name2 IS NULL
			             THEN 1 ELSE 0 END), 0)
		FROM metadata_cache
	`).Scan(&st.MetadataEntries, &st.MetadataAbsent, &st.MetadataPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count metadata: %w", err)
	}
	st.MetadataPresent = st.MetadataEntries - st.MetadataAbsent - st.MetadataPending

	if s.path != memoryPath {
		if info, err := os.Stat(s.path); err == nil {
			st.SizeBytes = info.Size()
		}
	}

	return st, nil
}

// Clear removes every cached row, keeping the schema
func (s *Store) Clear() error {
	return s.Transaction(func(tx *sql.Tx) error {
		for _, table := range []string{"path_cache", "metadata_cache"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// ValueCount is one distinct field value and the number of files carrying it
type ValueCount struct {
	Value string
	Count int
}

// TopCheckpoints returns the most common checkpoint names, most frequent first
func (s *Store) TopCheckpoints(limit int) ([]ValueCount, error) {
	return s.topValues(`
		SELECT ckpt_name, COUNT(*) AS n FROM metadata_cache
		WHERE ckpt_name IS NOT NULL AND ckpt_name != ''
		GROUP BY ckpt_name
		ORDER BY n DESC, ckpt_name
		LIMIT ?
	`, limit)
}

// TopSamplers returns the most common sampler names across both slots
func (s *Store) TopSamplers(limit int) ([]ValueCount, error) {
	return s.topValues(`
		SELECT name, COUNT(*) AS n FROM (
			SELECT sampler_name1 AS name FROM metadata_cache
			UNION ALL
			SELECT sampler_name2 AS name FROM metadata_cache
		)
		WHERE name IS NOT NULL AND name != ''
		GROUP BY name
		ORDER BY n DESC, name
		LIMIT ?
	`, limit)
}

func (s *Store) topValues(query string, limit int) ([]ValueCount, error) {
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to count values: %w", err)
	}
	defer rows.Close()

	var counts []ValueCount
	for rows.Next() {
		var vc ValueCount
		if err := rows.Scan(&vc.Value, &vc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan value count: %w", err)
		}
		counts = append(counts, vc)
	}

	return counts, rows.Err()
}
