package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsZeroConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))

	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoad_ParsesFullConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
data_dir = "/var/lib/corpus"

[embedding]
provider = "openai"
model = "text-embedding-3-small"
api_key = "sk-test"
dimensions = 1536

[llm]
provider = "ollama"
model = "llama3"
base_url = "http://localhost:11434"

[chunk]
target_size = 800
overlap = 100

[retrieval]
top_k = 10
min_score = 0.5

[chat]
storage_mode = "persist-all"
transient_ttl = "45m"
sweep_interval = "10m"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/corpus", cfg.DataDir)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 800, cfg.Chunk.TargetSize)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.Equal(t, 0.5, cfg.Retrieval.MinScore)
	assert.Equal(t, "persist-all", cfg.Chat.StorageMode)
	assert.Equal(t, 45*time.Minute, cfg.Chat.TransientTTL.Duration())
	assert.Equal(t, 10*time.Minute, cfg.Chat.SweepInterval.Duration())
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[chat]\ntransient_ttl = \"soon\"\n"), 0600))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := &Config{
		DataDir: "/tmp/corpus",
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
		},
		Chat: ChatConfig{
			StorageMode:  "smart",
			TransientTTL: duration(30 * time.Minute),
		},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSave_RestrictsPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, Save(path, &Config{Embedding: EmbeddingConfig{APIKey: "sk-secret"}}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
