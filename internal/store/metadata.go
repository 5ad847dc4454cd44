package store

import (
	"database/sql"
	"fmt"

	"github.com/franz/fav-janitor/internal/util"
)

// maxSamplerSlots is the number of sampler columns in metadata_cache
const maxSamplerSlots = 2

// GetMetadata returns the cached metadata for path. It returns nil when the
// path was never computed. When the file no longer exists, its metadata row
// and every favorite pointing at it are purged and nil is returned.
func (s *Store) GetMetadata(path string) (*Metadata, error) {
	if path == "" {
		return nil, nil
	}

	if !util.FileExists(path) {
		util.DebugLog("Purging cache rows for vanished file: %s", path)
		if err := s.purgePath(path); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var (
		rawJSON, ckpt, sampler1, sampler2 sql.NullString
		m                                 = &Metadata{Path: path}
	)
	err := s.db.QueryRow(`
		SELECT metadata_json, ckpt_name, sampler_name1, sampler_name2, extracted_at
		FROM metadata_cache WHERE path = ?
	`, path).Scan(&rawJSON, &ckpt, &sampler1, &sampler2, &m.ExtractedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}

	if !rawJSON.Valid && !ckpt.Valid && !sampler1.Valid && !sampler2.Valid {
		return nil, nil
	}

	m.JSON = rawJSON.String
	m.CkptName = ckpt.String
	for _, sampler := range []sql.NullString{sampler1, sampler2} {
		if sampler.Valid && sampler.String != "" {
			m.SamplerNames = append(m.SamplerNames, sampler.String)
		}
	}

	switch {
	case rawJSON.Valid && rawJSON.String == "":
		m.State = MetadataAbsent
	default:
		m.State = MetadataPresent
	}

	return m, nil
}

// PutMetadata inserts or replaces the metadata for m.Path. An absent result
// is stored as an empty JSON string so it is never recomputed. Only the
// first two sampler names are kept.
func (s *Store) PutMetadata(m *Metadata) error {
	if m == nil || m.Path == "" {
		return nil
	}

	var rawJSON string
	switch m.State {
	case MetadataPresent:
		rawJSON = m.JSON
	case MetadataAbsent:
		rawJSON = ""
	default:
		return fmt.Errorf("%w: metadata state must be absent or present", util.ErrInvalidConfig)
	}

	var samplers [maxSamplerSlots]any
	for i := range samplers {
		if i < len(m.SamplerNames) {
			samplers[i] = nullableString(m.SamplerNames[i])
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO metadata_cache (
			path, metadata_json, ckpt_name, sampler_name1, sampler_name2, extracted_at
		) VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			metadata_json = excluded.metadata_json,
			ckpt_name = excluded.ckpt_name,
			sampler_name1 = excluded.sampler_name1,
			sampler_name2 = excluded.sampler_name2,
			extracted_at = excluded.extracted_at
	`, m.Path, rawJSON, nullableString(m.CkptName), samplers[0], samplers[1])

	if err != nil {
		return fmt.Errorf("failed to insert metadata: %w", err)
	}

	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
