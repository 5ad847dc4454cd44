package store

// Schema v1 - path and metadata tables
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Resolved file per favorite
CREATE TABLE IF NOT EXISTS path_cache (
  group_key TEXT NOT NULL,
  identifier TEXT NOT NULL,
  path TEXT NOT NULL,
  resolved_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (group_key, identifier)
);

-- Extracted metadata per file path.
-- metadata_json = '' records "computed, nothing found";
-- all four value columns NULL means "not computed yet".
CREATE TABLE IF NOT EXISTS metadata_cache (
  path TEXT PRIMARY KEY,
  metadata_json TEXT,
  ckpt_name TEXT,
  sampler_name1 TEXT,
  sampler_name2 TEXT,
  extracted_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// Schema v2 - reverse lookup index
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_path_cache_path ON path_cache(path);
`
