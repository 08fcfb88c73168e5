// Package config loads the optional HCL run configuration. Every
// setting has a flag equivalent; flags win over the file.
package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/ncopendata/opibase/internal/catalog"
	"github.com/ncopendata/opibase/internal/engine"
)

// Config is the run configuration.
//
//	data_dir   = "./data"
//	database   = "opi.db"
//	reference  = "OFNT3AA1"
//	batch_size = 250
//	jobs       = 4
//	files      = ["OFNT1BA1", "INMT4AA1"]
type Config struct {
	DataDir   string   `hcl:"data_dir,optional"`
	Database  string   `hcl:"database,optional"`
	Reference string   `hcl:"reference,optional"`
	BatchSize int      `hcl:"batch_size,optional"`
	Jobs      int      `hcl:"jobs,optional"`
	Files     []string `hcl:"files,optional"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:   "data",
		Database:  "opi.db",
		Reference: catalog.DefaultReference,
		BatchSize: engine.DefaultBatchSize,
		Jobs:      4,
	}
}

// Load reads an HCL file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := hclsimple.DecodeFile(path, nil, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings no run can use.
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return fmt.Errorf("config: batch_size %d", c.BatchSize)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("config: jobs %d", c.Jobs)
	}
	if c.Reference != "" {
		if _, ok := catalog.ByID(c.Reference); !ok {
			return fmt.Errorf("config: unknown reference file %s", c.Reference)
		}
	}
	for _, id := range c.Files {
		if _, ok := catalog.ByID(id); !ok {
			return fmt.Errorf("config: unknown file %s", id)
		}
	}
	return nil
}
