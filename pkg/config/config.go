// Package config loads repository locations and operation defaults from a
// YAML file.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/scttfrdmn/seqreads-go/pkg/archive"
	"github.com/scttfrdmn/seqreads-go/pkg/seqreads"
	"github.com/scttfrdmn/seqreads-go/pkg/storage"
)

// EnvPath names the environment variable consulted when no path is given
const EnvPath = "SEQREADS_CONFIG"

// Repository is a location searched for <accession><suffix> archives
type Repository struct {
	ID     string `yaml:"id"`
	Type   string `yaml:"type"`   // local or s3
	Path   string `yaml:"path"`   // directory or s3://bucket/prefix
	Region string `yaml:"region"` // AWS region for s3 repositories
}

// Defaults are the operation settings applied when a call does not
// override them
type Defaults struct {
	ForwardErrors      bool `yaml:"forward_errors"`
	CheckpointInterval int  `yaml:"checkpoint_interval"`
	RegionQualities    bool `yaml:"region_qualities"`
}

// Config is the on-disk configuration
type Config struct {
	Repositories []Repository `yaml:"repositories"`
	Defaults     Defaults     `yaml:"defaults"`
}

// Default returns the configuration used without a file: no repositories,
// errors forwarded, checkpoints every 100000 reads
func Default() *Config {
	return &Config{
		Defaults: Defaults{
			ForwardErrors:      true,
			CheckpointInterval: seqreads.DefaultCheckpointInterval,
		},
	}
}

// Load reads path, or the file named by SEQREADS_CONFIG when path is
// empty. With neither set it returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks repository entries and fills in their types
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i := range c.Repositories {
		repo := &c.Repositories[i]
		if repo.Path == "" {
			return fmt.Errorf("repository %d: path is required", i)
		}
		if repo.ID == "" {
			repo.ID = repo.Path
		}
		if seen[repo.ID] {
			return fmt.Errorf("repository %s: duplicate id", repo.ID)
		}
		seen[repo.ID] = true

		repo.Type = strings.ToLower(repo.Type)
		switch repo.Type {
		case "":
			repo.Type = "local"
			if storage.IsS3URI(repo.Path) {
				repo.Type = "s3"
			}
		case "local":
			if storage.IsS3URI(repo.Path) {
				return fmt.Errorf("repository %s: local repository has s3 path %s", repo.ID, repo.Path)
			}
		case "s3":
			if _, err := storage.ParseS3URI(repo.Path); err != nil {
				return fmt.Errorf("repository %s: %w", repo.ID, err)
			}
		default:
			return fmt.Errorf("repository %s: unknown type %q (expected local or s3)", repo.ID, repo.Type)
		}
	}

	if c.Defaults.CheckpointInterval < 0 || c.Defaults.CheckpointInterval > seqreads.DefaultCheckpointInterval {
		return fmt.Errorf("checkpoint_interval must be between 1 and %d, or 0 for the default", seqreads.DefaultCheckpointInterval)
	}
	return nil
}

// Resolver builds an accession resolver over the configured repositories
func (c *Config) Resolver() *archive.Resolver {
	repos := make([]archive.Repository, 0, len(c.Repositories))
	for _, r := range c.Repositories {
		repos = append(repos, archive.Repository{ID: r.ID, Type: r.Type, Path: r.Path, Region: r.Region})
	}
	return archive.NewResolver(repos...)
}

// Options returns operation options carrying the configured defaults
func (c *Config) Options() *seqreads.Options {
	opts := seqreads.NewOptions()
	opts.ForwardErrors = c.Defaults.ForwardErrors
	if c.Defaults.CheckpointInterval > 0 {
		opts.CheckpointInterval = c.Defaults.CheckpointInterval
	}
	opts.RegionQualities = c.Defaults.RegionQualities
	opts.Opener = c.Resolver()
	return opts
}
