package writer

import (
	"context"
	"sync"

	"github.com/progsnap2/progsnap2-go/internal/codestate"
	"github.com/progsnap2/progsnap2-go/internal/config"
	"github.com/progsnap2/progsnap2-go/internal/schema"
	"github.com/progsnap2/progsnap2-go/internal/store"
)

// Factory hands out BatchWriters over one Store.
//
// Each writer holds the store's connection until it is closed, so writes
// through one Factory are serialized. CodeState stores that do not live in
// the database are built on first use and shared by every writer.
type Factory struct {
	store  *store.Store
	cfg    *config.DataConfig
	schema *schema.Schema
	opts   []Option

	mu     sync.Mutex
	shared codestate.Store
}

// NewFactory returns a Factory writing to st.
func NewFactory(st *store.Store, cfg *config.DataConfig, sch *schema.Schema, opts ...Option) *Factory {
	return &Factory{
		store:  st,
		cfg:    cfg,
		schema: sch,
		opts:   opts,
	}
}

// NewWriter acquires the database connection and returns a writer bound to
// it. The caller must Close the writer.
func (f *Factory) NewWriter(ctx context.Context) (*BatchWriter, error) {
	conn, err := f.store.Conn(ctx)
	if err != nil {
		return nil, err
	}

	cs, err := f.codestateStore(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	bw := NewBatchWriter(conn, cs, f.schema, f.cfg, f.opts...)
	bw.release = conn.Close
	return bw, nil
}

// WithWriter runs fn with a fresh writer and closes it afterwards, whatever
// fn returns.
func (f *Factory) WithWriter(ctx context.Context, fn func(*BatchWriter) error) (err error) {
	bw, err := f.NewWriter(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := bw.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(bw)
}

func (f *Factory) codestateStore(db store.TxBeginner) (codestate.Store, error) {
	if codestate.NeedsConnection(f.cfg) {
		return codestate.New(f.cfg, db)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shared == nil {
		cs, err := codestate.New(f.cfg, nil)
		if err != nil {
			return nil, err
		}
		f.shared = cs
	}
	return f.shared, nil
}
