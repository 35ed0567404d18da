package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scttfrdmn/seqreads-go/pkg/archive"
)

const sample = `
repositories:
  - id: scratch
    path: /data/runs
  - id: sra
    type: S3
    path: s3://sra-pub-run-odp/sra
    region: us-east-1
defaults:
  forward_errors: false
  checkpoint_interval: 5000
  region_qualities: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.Len(t, cfg.Repositories, 2)
	assert.Equal(t, Repository{ID: "scratch", Type: "local", Path: "/data/runs"}, cfg.Repositories[0])
	assert.Equal(t, "s3", cfg.Repositories[1].Type)
	assert.Equal(t, "us-east-1", cfg.Repositories[1].Region)

	opts := cfg.Options()
	assert.False(t, opts.ForwardErrors)
	assert.Equal(t, 5000, opts.CheckpointInterval)
	assert.True(t, opts.RegionQualities)

	r, ok := opts.Opener.(*archive.Resolver)
	require.True(t, ok)
	assert.Equal(t, []archive.Repository{
		{ID: "scratch", Type: "local", Path: "/data/runs"},
		{ID: "sra", Type: "s3", Path: "s3://sra-pub-run-odp/sra", Region: "us-east-1"},
	}, r.Repositories)
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("# no overrides\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.Options().ForwardErrors)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"missing path":   "repositories:\n  - id: a\n",
		"duplicate id":   "repositories:\n  - {id: a, path: /x}\n  - {id: a, path: /y}\n",
		"unknown type":   "repositories:\n  - {id: a, type: ftp, path: /x}\n",
		"local s3 path":  "repositories:\n  - {id: a, type: local, path: s3://b/p}\n",
		"bad s3 path":    "repositories:\n  - {id: a, type: s3, path: /x}\n",
		"bad interval":   "defaults:\n  checkpoint_interval: 200000\n",
		"unknown field":  "repos: []\n",
		"malformed yaml": "repositories: [\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestCheckpointIntervalBounds(t *testing.T) {
	for _, n := range []int{0, 1, 100000} {
		cfg, err := Parse([]byte(fmt.Sprintf("defaults:\n  checkpoint_interval: %d\n", n)))
		require.NoError(t, err, n)
		assert.Equal(t, n, cfg.Defaults.CheckpointInterval)
	}

	_, err := Parse([]byte("defaults:\n  checkpoint_interval: -1\n"))
	assert.ErrorContains(t, err, "between 1 and 100000, or 0 for the default")
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvPath, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "seqreads.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Repositories, 2)

	t.Setenv(EnvPath, path)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Len(t, cfg.Repositories, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
