package writer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/progsnap2/progsnap2-go/internal/codestate"
	"github.com/progsnap2/progsnap2-go/internal/config"
	"github.com/progsnap2/progsnap2-go/internal/ir"
	"github.com/progsnap2/progsnap2-go/internal/schema"
	"github.com/progsnap2/progsnap2-go/internal/store"
)

// Option configures a BatchWriter.
type Option func(*BatchWriter)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *BatchWriter) {
		b.logger = l
	}
}

// WithCodeStateStore replaces the CodeState store the writer was built
// with.
func WithCodeStateStore(cs codestate.Store) Option {
	return func(b *BatchWriter) {
		b.codestates = cs
	}
}

// BatchWriter writes batches of events and their CodeStates.
//
// A BatchWriter holds one database connection (see Factory) and is not safe
// for concurrent use.
type BatchWriter struct {
	db         store.DB
	codestates codestate.Store
	schema     *schema.Schema
	validator  *schema.Validator
	cfg        *config.DataConfig
	logger     *slog.Logger
	release    func() error
}

// NewBatchWriter returns a BatchWriter inserting events through db and
// storing CodeStates in cs.
func NewBatchWriter(db store.DB, cs codestate.Store, sch *schema.Schema, cfg *config.DataConfig, opts ...Option) *BatchWriter {
	b := &BatchWriter{
		db:         db,
		codestates: cs,
		schema:     sch,
		validator:  schema.NewValidator(sch),
		cfg:        cfg,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Close releases the connection the writer was built on. Safe to call more
// than once.
func (b *BatchWriter) Close() error {
	if b.release == nil {
		return nil
	}
	release := b.release
	b.release = nil
	return release()
}

// InitializeDatabase creates MainTable and Metadata. Metadata holds the
// schema defaults, the configured CodeStateRepresentation and the
// configured metadata overrides, in increasing precedence.
//
// Returns false when the tables already existed and force was not set.
func (b *BatchWriter) InitializeDatabase(ctx context.Context, force bool) (bool, error) {
	metadata := map[string]string{
		"CodeStateRepresentation": string(b.cfg.Representation),
	}
	for k, v := range b.cfg.Metadata {
		metadata[k] = v
	}

	created, err := store.Initialize(ctx, b.db, b.schema, metadata, force)
	if err != nil {
		return false, err
	}
	if created {
		b.logger.Info("database initialized", "version", b.schema.Version(), "force", force)
	} else {
		b.logger.Debug("database already initialized")
	}
	return created, nil
}

// AddEventsWithCodeStates writes events and the CodeStates they reference.
//
// codestates maps caller temp ids to entries; events reference them through
// CodeStateID. The caller's events and entries are not modified.
//
// Row-level problems (validation findings, CodeState store failures, failed
// inserts) are reported in the LogResult. An error is returned only when
// the MainTable transaction cannot be started or committed.
func (b *BatchWriter) AddEventsWithCodeStates(ctx context.Context, events []ir.Event, codestates map[string]ir.Entry) (*LogResult, error) {
	res := newResult()

	work := make([]ir.Event, len(events))
	for i, e := range events {
		for _, finding := range b.validator.Validate(e) {
			res.warnf("event[%d]: %s", i, finding.Error())
		}
		work[i] = b.validator.Coerce(e)
	}

	entries := b.contextualize(work, codestates, res)

	if !b.resolve(ctx, work, entries, res) {
		b.finish(res, outcomeAborted)
		b.logger.Warn("batch aborted", "events", len(work), "errors", len(res.Errors))
		return res, nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		batchesTotal.WithLabelValues(outcomeFailed).Inc()
		return nil, fmt.Errorf("add events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for i, e := range work {
		if err := store.InsertEvent(ctx, tx, e); err != nil {
			res.failf("event[%d]: insert failed: %v", i, err)
			if rbErr := tx.Rollback(); rbErr != nil {
				b.logger.Error("rollback failed", "error", rbErr)
			}
			b.finish(res, outcomeRolledBack)
			b.logger.Warn("batch rolled back", "event", i, "error", err)
			return res, nil
		}
	}

	if err := tx.Commit(); err != nil {
		batchesTotal.WithLabelValues(outcomeFailed).Inc()
		return nil, fmt.Errorf("add events: commit: %w", err)
	}

	eventsInserted.Add(float64(len(work)))
	b.finish(res, outcomeCommitted)
	b.logger.Info("batch committed",
		"events", len(work),
		"codestates", len(entries),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

func (b *BatchWriter) finish(res *LogResult, outcome string) {
	batchesTotal.WithLabelValues(outcome).Inc()
	batchWarnings.Add(float64(len(res.Warnings)))
}

// placement accumulates the context inferred for one temp id.
type placement struct {
	grouping, project       string
	hasGrouping, hasProject bool
}

// contextualize returns a copy of codestates in which every entry without
// explicit context carries the placement inferred from the events that
// reference it. The first event seen wins; later disagreements are warned
// about once per temp id and column.
func (b *BatchWriter) contextualize(events []ir.Event, codestates map[string]ir.Entry, res *LogResult) map[string]ir.Entry {
	inferred := make(map[string]*placement)
	warned := make(map[string]bool)

	infer := func(tmp, column, value, current string, has *bool, dst *string) {
		if !*has {
			*dst, *has = value, true
			return
		}
		key := tmp + "\x00" + column
		if value != current && !warned[key] {
			warned[key] = true
			res.warnf("codestate %q: events disagree on %s (%q, %q); using %q", tmp, column, current, value, current)
		}
	}

	for _, e := range events {
		tmp, ok := e.StringValue(ir.ColCodeStateID)
		if !ok {
			continue
		}
		entry, ok := codestates[tmp]
		if !ok || entry.Context != nil {
			continue
		}
		p := inferred[tmp]
		if p == nil {
			p = &placement{}
			inferred[tmp] = p
		}
		if subject, ok := e.StringValue(ir.ColSubjectID); ok {
			infer(tmp, ir.ColSubjectID, subject, p.grouping, &p.hasGrouping, &p.grouping)
		}
		if project, ok := e.StringValue(ir.ColProjectID); ok {
			infer(tmp, ir.ColProjectID, project, p.project, &p.hasProject, &p.project)
		}
	}

	out := make(map[string]ir.Entry, len(codestates))
	for _, tmp := range sortedTempIDs(codestates) {
		entry := codestates[tmp]
		if entry.Context != nil {
			out[tmp] = entry
			continue
		}

		var c ir.Context
		if p := inferred[tmp]; p != nil {
			c = ir.Context{GroupingID: p.grouping, ProjectID: p.project}
		}
		if c.ProjectID == "" && !entry.Blank && b.codestates.RequiresProjectID() {
			c.ProjectID = b.codestates.DefaultProjectID()
			res.warnf("codestate %q: no ProjectID could be inferred; using default project %q", tmp, c.ProjectID)
		}
		out[tmp] = entry.WithContext(c)
	}
	return out
}

// resolve stores every entry and rewrites events to reference durable ids.
// Returns false, with errors recorded in res, when the store fails.
func (b *BatchWriter) resolve(ctx context.Context, events []ir.Event, entries map[string]ir.Entry, res *LogResult) bool {
	ids := make(map[string]string, len(entries))

	if b.cfg.OptimizeCodeStateIDs {
		for _, tmp := range sortedTempIDs(entries) {
			id, err := b.codestates.AddAndGetID(ctx, entries[tmp])
			if err != nil {
				res.failf("codestate %q: %v", tmp, err)
				return false
			}
			ids[tmp] = id
			if id != "" {
				codestatesResolved.WithLabelValues("optimize").Inc()
			}
		}
	} else {
		for _, tmp := range sortedTempIDs(entries) {
			entry := entries[tmp]
			if entry.Blank {
				ids[tmp] = ""
				continue
			}
			if err := b.codestates.AddWithID(ctx, entry, tmp); err != nil {
				res.failf("codestate %q: %v", tmp, err)
				return false
			}
			ids[tmp] = tmp
			codestatesResolved.WithLabelValues("fixed").Inc()
		}
	}

	for i, e := range events {
		tmp, ok := e.StringValue(ir.ColCodeStateID)
		if !ok {
			continue
		}
		id, known := ids[tmp]
		if !known {
			if b.cfg.OptimizeCodeStateIDs {
				res.warnf("event[%d]: CodeStateID %q does not name a codestate in this batch", i, tmp)
			}
			continue
		}
		e[ir.ColCodeStateID] = ir.String(id)
	}

	b.logger.Debug("codestates resolved", "count", len(entries), "optimize", b.cfg.OptimizeCodeStateIDs)
	return true
}

func sortedTempIDs(m map[string]ir.Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
