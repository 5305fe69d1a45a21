package codestate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/progsnap2/progsnap2-go/internal/ir"
)

const gitMetadataDir = ".git"

// Git stores each project's CodeStates as the history of a repository at
// root/<grouping>/<ProjectID>/. The id of a CodeState is the commit hash
// of HEAD after writing it, so equal content in two repositories gets two
// ids.
type Git struct {
	root             string
	defaultProjectID string
	author           object.Signature
	now              func() time.Time
}

var _ Store = (*Git)(nil)

// GitOption configures a Git store.
type GitOption func(*Git)

// WithAuthor sets the name and email recorded on commits.
func WithAuthor(name, email string) GitOption {
	return func(g *Git) {
		g.author.Name = name
		g.author.Email = email
	}
}

// WithClock sets the time source for commit timestamps.
func WithClock(now func() time.Time) GitOption {
	return func(g *Git) {
		g.now = now
	}
}

// NewGit returns a Git store rooted at root.
func NewGit(root, defaultProjectID string, opts ...GitOption) *Git {
	g := &Git{
		root:             root,
		defaultProjectID: defaultProjectID,
		author:           object.Signature{Name: "progsnap2", Email: "progsnap2@localhost"},
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Path returns the repository folder of a project.
func (g *Git) Path(grouping, projectID string) string {
	return filepath.Join(g.root, grouping, projectID)
}

// AddAndGetID replaces the repository's worktree with e's sections, commits
// if anything changed (or the repository has no commit yet) and returns the
// HEAD commit hash.
func (g *Git) AddAndGetID(ctx context.Context, e ir.Entry) (string, error) {
	if e.Blank {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	project := e.ProjectID()
	if project == "" {
		return "", ErrMissingProjectID
	}
	if err := checkPathElement("grouping", e.GroupingID()); err != nil {
		return "", err
	}
	if err := checkPathElement("project", project); err != nil {
		return "", err
	}
	if err := checkSectionPaths(e); err != nil {
		return "", err
	}

	dir := g.Path(e.GroupingID(), project)
	repo, err := openOrInit(dir)
	if err != nil {
		return "", fmt.Errorf("git codestate %s: %w", dir, err)
	}

	id, err := g.commitSnapshot(repo, dir, e, path.Join(e.GroupingID(), project))
	if err != nil {
		return "", fmt.Errorf("git codestate %s: %w", dir, err)
	}
	return id, nil
}

// AddWithID always fails: commit hashes cannot be chosen.
func (g *Git) AddWithID(context.Context, ir.Entry, string) error {
	return fmt.Errorf("%w: git codestate ids are commit hashes", ErrUnsupportedOperation)
}

func (g *Git) RequiresProjectID() bool { return true }

func (g *Git) DefaultProjectID() string { return g.defaultProjectID }

func openOrInit(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	repo, err = git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("init repository: %w", err)
	}
	slog.Debug("git codestate repository created", "path", dir)
	return repo, nil
}

func (g *Git) commitSnapshot(repo *git.Repository, dir string, e ir.Entry, placement string) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}

	if err := clearWorktree(dir); err != nil {
		return "", fmt.Errorf("clear worktree: %w", err)
	}
	if err := writeSections(dir, e.Sections); err != nil {
		return "", fmt.Errorf("write sections: %w", err)
	}
	if err := stageSections(repo, wt, e.Sections); err != nil {
		return "", fmt.Errorf("stage: %w", err)
	}

	_, err = repo.Head()
	noHead := errors.Is(err, plumbing.ErrReferenceNotFound)
	if err != nil && !noHead {
		return "", fmt.Errorf("head: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("status: %w", err)
	}

	if noHead || !status.IsClean() {
		sig := g.author
		sig.When = g.now()
		hash, err := wt.Commit("Automatic update: "+placement, &git.CommitOptions{
			All:               true,
			Author:            &sig,
			AllowEmptyCommits: noHead,
		})
		if err != nil {
			return "", fmt.Errorf("commit: %w", err)
		}
		slog.Debug("git codestate committed", "path", dir, "commit", hash.String())
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	return head.Hash().String(), nil
}

// stageSections makes the index hold exactly the section files. Sections
// may carry their own ignore files, so each one is added by path, which
// skips ignore matching, and index entries that are not sections are
// dropped.
func stageSections(repo *git.Repository, wt *git.Worktree, sections []ir.Section) error {
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return err
	}

	files := make(map[string]bool, len(sections))
	for _, s := range sections {
		name := path.Clean(sectionFile(s))
		files[name] = true
		if _, err := wt.Add(name); err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
	}

	idx, err := repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	kept := idx.Entries[:0]
	for _, ent := range idx.Entries {
		if files[ent.Name] {
			kept = append(kept, ent)
		}
	}
	if len(kept) == len(idx.Entries) {
		return nil
	}
	idx.Entries = kept
	return repo.Storer.SetIndex(idx)
}

// clearWorktree deletes everything in dir except the repository metadata.
func clearWorktree(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, ent := range entries {
		if ent.Name() == gitMetadataDir {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, ent.Name())); err != nil {
			return err
		}
	}
	return nil
}
