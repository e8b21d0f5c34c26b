package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Search.MinTokenLength)
	assert.Equal(t, 15.0, cfg.Search.Weights.Title)
	assert.Equal(t, 5.0, cfg.Search.Weights.Term)
	assert.Equal(t, "index-published", cfg.Kafka.Topics.IndexPublished)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "dev.yaml", `
server:
  port: 9000
  readTimeout: 3s
index:
  dataDir: /srv/indexes
  watch: true
  collections:
    - name: tutorial
      path: tutorial/searchindex.js
    - name: api
      path: /abs/api.js
search:
  partialMatch: true
  weights:
    title: 20
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Index.Watch)
	assert.True(t, cfg.Search.PartialMatch)
	assert.Equal(t, 20.0, cfg.Search.Weights.Title)
	// untouched siblings keep their defaults
	assert.Equal(t, 5.0, cfg.Search.Weights.Term)
	require.Len(t, cfg.Index.Collections, 2)
	assert.Equal(t, "/srv/indexes/tutorial/searchindex.js", cfg.Index.Collections[0].ResolvedPath(cfg.Index.DataDir))
	assert.Equal(t, "/abs/api.js", cfg.Index.Collections[1].ResolvedPath(cfg.Index.DataDir))
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "dev.toml", `
[server]
port = 7000

[search]
defaultLimit = 25
minTokenLength = 2

[[index.collections]]
name = "tutorial"
path = "searchindex.js"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	assert.Equal(t, 2, cfg.Search.MinTokenLength)
	require.Len(t, cfg.Index.Collections, 1)
	assert.Equal(t, "tutorial", cfg.Index.Collections[0].Name)
}

func TestLoadRejectsDuplicateCollections(t *testing.T) {
	path := writeFile(t, "dup.yaml", `
index:
  collections:
    - {name: a, path: one.js}
    - {name: a, path: two.js}
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate collection name")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DS_SERVER_PORT", "8181")
	t.Setenv("DS_INDEX_COLLECTIONS", "tutorial=docs/searchindex.js, api=api.js")
	t.Setenv("DS_REDIS_ENABLED", "true")
	t.Setenv("DS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DS_SEARCH_PARTIAL_MATCH", "true")
	t.Setenv("DS_AUTH_ENABLED", "1")
	t.Setenv("DS_AUTH_KEYS", "one, ,two")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Search.PartialMatch)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, []string{"one", "two"}, cfg.Auth.Keys)
	assert.Equal(t, []CollectionConfig{
		{Name: "tutorial", Path: "docs/searchindex.js"},
		{Name: "api", Path: "api.js"},
	}, cfg.Index.Collections)
}

func TestDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", p.DSN())
}
