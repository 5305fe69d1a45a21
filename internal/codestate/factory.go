package codestate

import (
	"fmt"

	"github.com/progsnap2/progsnap2-go/internal/config"
	"github.com/progsnap2/progsnap2-go/internal/store"
)

// New builds the Store selected by cfg. db is only used by the SQL table
// format and may be nil otherwise.
func New(cfg *config.DataConfig, db store.TxBeginner) (Store, error) {
	switch cfg.Representation {
	case config.RepresentationDirectory:
		return NewDirectory(cfg.CodeStatesDir(), cfg.DefaultProjectID), nil

	case config.RepresentationGit:
		return NewGit(cfg.CodeStatesDir(), cfg.DefaultProjectID), nil

	case config.RepresentationTable:
		switch cfg.TableFormat {
		case config.TableFormatCSV:
			t, err := NewCSVTable(cfg.CodeStatesCSV(), cfg.CodeStatesHaveSections, cfg.DefaultProjectID)
			if err != nil {
				return nil, err
			}
			return t, nil
		case config.TableFormatSQL:
			if db == nil {
				return nil, fmt.Errorf("codestate: sql table format needs a database connection")
			}
			return NewSQLTable(db, cfg.DefaultProjectID), nil
		default:
			return nil, fmt.Errorf("codestate: unknown table format %q", cfg.TableFormat)
		}

	default:
		return nil, fmt.Errorf("codestate: unknown representation %q", cfg.Representation)
	}
}

// NeedsConnection reports whether New requires a database connection for
// cfg. Stores that do not can be built once and shared between writes.
func NeedsConnection(cfg *config.DataConfig) bool {
	return cfg.Representation == config.RepresentationTable && cfg.TableFormat == config.TableFormatSQL
}
