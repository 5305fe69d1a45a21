package cli

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/mattn/go-sqlite3"

	"github.com/progsnap2/progsnap2-go/internal/config"
	"github.com/progsnap2/progsnap2-go/internal/schema"
	"github.com/progsnap2/progsnap2-go/internal/store"
	"github.com/progsnap2/progsnap2-go/internal/writer"
)

// dataset is an opened ProgSnap2 dataset: config, schema and database.
type dataset struct {
	cfg     *config.DataConfig
	schema  *schema.Schema
	store   *store.Store
	factory *writer.Factory
}

// loadConfig loads the config and the schema it names. Failures are
// reported through f.
func loadConfig(opts *RootOptions, f *OutputFormatter) (*config.DataConfig, *schema.Schema, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fail(f, ErrCodeNotFound, WrapExitError(ExitCommandError, "config not found", err))
		}
		return nil, nil, fail(f, ErrCodeConfig, WrapExitError(ExitCommandError, "failed to load config", err))
	}
	f.VerboseLog("Loaded config %s (representation %s)", opts.Config, cfg.Representation)

	var sch *schema.Schema
	if cfg.SchemaPath != "" {
		sch, err = schema.LoadFile(cfg.SchemaPath)
	} else {
		sch, err = schema.Default()
	}
	if err != nil {
		return nil, nil, fail(f, ErrCodeConfig, WrapExitError(ExitCommandError, "failed to load schema", err))
	}
	return cfg, sch, nil
}

// openDataset loads the config and opens the database it names.
// The caller must Close the dataset.
func openDataset(opts *RootOptions, f *OutputFormatter) (*dataset, error) {
	cfg, sch, err := loadConfig(opts, f)
	if err != nil {
		return nil, err
	}

	slog.Debug("opening database", "path", cfg.DatabasePath())
	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fail(f, ErrCodeDatabase, WrapExitError(ExitCommandError, "failed to open database", err))
	}

	return &dataset{
		cfg:     cfg,
		schema:  sch,
		store:   st,
		factory: writer.NewFactory(st, cfg, sch),
	}, nil
}

func (d *dataset) Close() {
	if err := d.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// fail reports err through the formatter and returns it.
func fail(f *OutputFormatter, code string, err error) error {
	if outErr := f.Error(code, err.Error(), nil); outErr != nil {
		return outErr
	}
	return err
}

// writeErrCode classifies an error returned by a writer. Caller mistakes are
// input errors, SQLite failures are database errors and anything else is
// reported as generic.
func writeErrCode(err error) string {
	var sqliteErr sqlite3.Error
	switch {
	case errors.Is(err, writer.ErrAmbiguousCodeState), errors.Is(err, writer.ErrInvalidCodeState):
		return ErrCodeInput
	case errors.As(err, &sqliteErr):
		return ErrCodeDatabase
	default:
		return ErrCodeGeneric
	}
}
