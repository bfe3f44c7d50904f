// Package gitarchive keeps committed chapter history in git: one
// repository per chapter and one commit per history entry.
package gitarchive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

const entryFile = "entry.json"

// Verify interface compliance
var _ driven.HistoryArchive = (*Archive)(nil)

// Archive implements driven.HistoryArchive on plain git repositories
type Archive struct {
	baseDir string
	author  string

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// New creates an archive rooted at baseDir
func New(baseDir, author string) *Archive {
	if author == "" {
		author = "plana-core"
	}
	return &Archive{
		baseDir: baseDir,
		author:  author,
		locks:   make(map[string]*sync.Mutex),
	}
}

// archivedEntry is the committed file
type archivedEntry struct {
	ProposalID   string `json:"proposal_id"`
	ChapterTitle string `json:"chapter_title"`
	domain.HistoryEntry
}

// Record commits entry to the chapter's repository, creating it on first use
func (a *Archive) Record(ctx context.Context, chapter *domain.Chapter, entry domain.HistoryEntry) error {
	path, err := a.repoPath(chapter.ID)
	if err != nil {
		return err
	}
	lock := a.chapterLock(chapter.ID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := openOrInit(path)
	if err != nil {
		return err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(archivedEntry{
		ProposalID:   chapter.ProposalID,
		ChapterTitle: chapter.Title,
		HistoryEntry: entry,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, entryFile), append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", entryFile, err)
	}
	if _, err := worktree.Add(entryFile); err != nil {
		return fmt.Errorf("git add entry: %w", err)
	}

	when := entry.Timestamp
	if when.IsZero() {
		when = time.Now()
	}
	_, err = worktree.Commit(commitMessage(chapter.Title, when), &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  a.author,
			Email: a.author + "@local.plana",
			When:  when,
		},
	})
	if err != nil {
		return fmt.Errorf("commit entry: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. A chapter that was never
// archived has no entries.
func (a *Archive) List(ctx context.Context, chapterID string, limit int) ([]domain.HistoryEntry, error) {
	path, err := a.repoPath(chapterID)
	if err != nil {
		return nil, err
	}
	lock := a.chapterLock(chapterID)
	lock.Lock()
	defer lock.Unlock()

	entries := []domain.HistoryEntry{}
	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := readEntry(c)
		if err != nil {
			return err
		}
		entries = append(entries, entry.HistoryEntry)
		if limit > 0 && len(entries) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return entries, nil
}

func (a *Archive) repoPath(chapterID string) (string, error) {
	if chapterID == "" || chapterID != filepath.Base(chapterID) || strings.HasPrefix(chapterID, ".") {
		return "", domain.NewValidationError("chapter_id", "invalid chapter id")
	}
	return filepath.Join(a.baseDir, chapterID), nil
}

func (a *Archive) chapterLock(chapterID string) *sync.Mutex {
	a.lockMu.Lock()
	defer a.lockMu.Unlock()
	lock, ok := a.locks[chapterID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[chapterID] = lock
	}
	return lock
}

func openOrInit(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

func readEntry(c *object.Commit) (archivedEntry, error) {
	file, err := c.File(entryFile)
	if err != nil {
		return archivedEntry{}, fmt.Errorf("load %s from %s: %w", entryFile, c.Hash, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return archivedEntry{}, fmt.Errorf("read %s: %w", entryFile, err)
	}
	var entry archivedEntry
	if err := json.Unmarshal([]byte(contents), &entry); err != nil {
		return archivedEntry{}, fmt.Errorf("decode %s: %w", entryFile, err)
	}
	return entry, nil
}

func commitMessage(title string, when time.Time) string {
	return fmt.Sprintf("%s @ %s", title, when.Format(time.RFC3339))
}
