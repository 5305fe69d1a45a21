package codestate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progsnap2/progsnap2-go/internal/config"
)

func TestNew_SelectsBackend(t *testing.T) {
	st := openStore(t)

	tests := []struct {
		name           string
		representation config.Representation
		format         config.TableFormat
		want           Store
		needsConn      bool
	}{
		{"directory", config.RepresentationDirectory, config.TableFormatSQL, &Directory{}, false},
		{"git", config.RepresentationGit, config.TableFormatSQL, &Git{}, false},
		{"sql table", config.RepresentationTable, config.TableFormatSQL, &SQLTable{}, true},
		{"csv table", config.RepresentationTable, config.TableFormatCSV, &CSVTable{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.RootPath = t.TempDir()
			cfg.Representation = tt.representation
			cfg.TableFormat = tt.format

			s, err := New(&cfg, st.DB())
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
			assert.Equal(t, "default", s.DefaultProjectID())
			assert.Equal(t, tt.needsConn, NeedsConnection(&cfg))
		})
	}
}

func TestNew_SQLTableNeedsConnection(t *testing.T) {
	cfg := config.Default()
	cfg.RootPath = t.TempDir()

	_, err := New(&cfg, nil)
	assert.Error(t, err)
}

func TestNew_UnknownRepresentation(t *testing.T) {
	cfg := config.Default()
	cfg.RootPath = t.TempDir()
	cfg.Representation = "Tape"

	_, err := New(&cfg, nil)
	assert.Error(t, err)
}
