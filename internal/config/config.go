// Package config loads the DataConfig that selects where and how ProgSnap2
// data is written.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Representation selects the CodeState store.
type Representation string

const (
	RepresentationTable     Representation = "Table"
	RepresentationDirectory Representation = "Directory"
	RepresentationGit       Representation = "Git"
)

// TableFormat selects the Table representation's physical format.
type TableFormat string

const (
	TableFormatSQL TableFormat = "sql"
	TableFormatCSV TableFormat = "csv"
)

// DataConfig is the on-disk configuration of a ProgSnap2 dataset.
type DataConfig struct {
	RootPath       string         `yaml:"root_path"`
	Database       string         `yaml:"database"`
	SchemaPath     string         `yaml:"schema_path"`
	Representation Representation `yaml:"representation"`
	TableFormat    TableFormat    `yaml:"table_format"`

	// OptimizeCodeStateIDs replaces caller temp ids with store-assigned ids.
	// When false the caller's ids are stored as is.
	OptimizeCodeStateIDs   bool              `yaml:"optimize_codestate_ids"`
	CodeStatesHaveSections bool              `yaml:"codestates_have_sections"`
	DefaultProjectID       string            `yaml:"default_project_id"`
	Metadata               map[string]string `yaml:"metadata"`
}

// Default returns a DataConfig with every optional field set.
func Default() DataConfig {
	return DataConfig{
		Database:               "progsnap2.db",
		Representation:         RepresentationTable,
		TableFormat:            TableFormatSQL,
		OptimizeCodeStateIDs:   true,
		CodeStatesHaveSections: true,
		DefaultProjectID:       "default",
	}
}

// Load reads a YAML DataConfig. Unknown fields are rejected. Relative
// root_path and schema_path values are resolved against the directory
// holding the file.
func Load(path string) (*DataConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	if !filepath.IsAbs(cfg.RootPath) {
		cfg.RootPath = filepath.Join(base, cfg.RootPath)
	}
	if cfg.SchemaPath != "" && !filepath.IsAbs(cfg.SchemaPath) {
		cfg.SchemaPath = filepath.Join(base, cfg.SchemaPath)
	}
	return cfg, nil
}

// Parse decodes YAML over Default() and validates the result.
func Parse(data []byte) (*DataConfig, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks required fields and enumerations.
func (c *DataConfig) Validate() error {
	if c.RootPath == "" {
		return fmt.Errorf("root_path is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	switch c.Representation {
	case RepresentationTable, RepresentationDirectory, RepresentationGit:
	default:
		return fmt.Errorf("unknown representation %q (want Table, Directory or Git)", c.Representation)
	}
	switch c.TableFormat {
	case TableFormatSQL, TableFormatCSV:
	default:
		return fmt.Errorf("unknown table_format %q (want sql or csv)", c.TableFormat)
	}
	if c.Representation == RepresentationGit && c.DefaultProjectID == "" {
		return fmt.Errorf("default_project_id is required for the Git representation")
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *DataConfig) DatabasePath() string {
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(c.RootPath, c.Database)
}

// CodeStatesDir is the root of the Directory and Git representations.
func (c *DataConfig) CodeStatesDir() string {
	return filepath.Join(c.RootPath, "CodeStates")
}

// CodeStatesCSV is the file backing the CSV table format.
func (c *DataConfig) CodeStatesCSV() string {
	return filepath.Join(c.RootPath, "CodeStates.csv")
}
