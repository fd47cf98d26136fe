// Package ingest reconciles registered note sources with the card store:
// new notes become new cards, removed notes are deleted, and cards that
// are still present keep their review progress.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/knolreview/internal/gitsource"
	"github.com/conorfennell/knolreview/internal/knol"
	"github.com/conorfennell/knolreview/internal/parser"
	"github.com/conorfennell/knolreview/internal/storage"
)

// Syncer runs source reconciliation against a database.
type Syncer struct {
	DB       *storage.DB
	ReposDir string
	Logger   *slog.Logger
	// Progress receives git clone/pull output; nil discards it.
	Progress io.Writer
	Now      func() time.Time
}

// Report summarizes one reconciliation.
type Report struct {
	Source  string  `json:"source"`
	Parsed  int     `json:"parsed"`
	Added   int     `json:"added"`
	Removed int     `json:"removed"`
	Errors  []error `json:"-"`
}

func (s *Syncer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Syncer) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// AddSource registers a local directory or git URL.
func (s *Syncer) AddSource(ctx context.Context, path string) (storage.Source, error) {
	sourceType := storage.SourceLocal
	if gitsource.IsGitURL(path) {
		sourceType = storage.SourceGit
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return storage.Source{}, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		path = abs
	}

	id, err := s.DB.InsertSource(ctx, path, sourceType)
	if err != nil {
		return storage.Source{}, err
	}
	s.logger().Info("source added", "id", id, "type", sourceType, "path", path)
	return storage.Source{ID: id, Path: path, Type: sourceType}, nil
}

// Run iterates over all sources and reconciles them. A failing source is
// logged and skipped; the error is only returned if sources can't be listed.
func (s *Syncer) Run(ctx context.Context) ([]Report, error) {
	sources, err := s.DB.AllSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	if len(sources) == 0 {
		s.logger().Info("no sources configured")
		return nil, nil
	}

	var reports []Report
	for _, source := range sources {
		s.logger().Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		dir := source.Path
		if source.Type == storage.SourceGit {
			dir, err = gitsource.LocalPath(s.ReposDir, source.Path)
			if err != nil {
				s.logger().Error("error determining local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(ctx, source.Path, dir, s.Progress); err != nil {
				s.logger().Error("error syncing git repo", "url", source.Path, "error", err)
				continue
			}
		}

		report, err := s.Reconcile(ctx, source.ID, dir)
		report.Source = source.Path
		if err != nil {
			s.logger().Error("reconciliation failed", "path", source.Path, "error", err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Reconcile parses every markdown file under dir and brings the cards of
// sourceID in line with it.
func (s *Syncer) Reconcile(ctx context.Context, sourceID int64, dir string) (Report, error) {
	var report Report
	found := make(map[string]bool)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, card := range fileCards {
			card.ID = knol.ID(card)
			card.SourceID = sourceID
			if found[card.ID] {
				continue
			}
			found[card.ID] = true
			report.Parsed++

			_, findErr := s.DB.FindCard(ctx, card.ID)
			switch {
			case findErr == nil:
				continue
			case !errors.Is(findErr, storage.ErrNotFound):
				report.Errors = append(report.Errors, fmt.Errorf("db check for %s: %w", card.ID, findErr))
				continue
			}
			s.logger().Debug("new card found, inserting", "id", card.ID)
			if err := s.DB.InsertCard(ctx, card); err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("db insert for %s: %w", card.ID, err))
				continue
			}
			report.Added++
		}
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("error walking directory %s: %w", dir, walkErr)
	}

	dbCards, err := s.DB.CardsBySource(ctx, sourceID)
	if err != nil {
		return report, err
	}
	for _, c := range dbCards {
		if found[c.ID] || c.CreatedByStudent {
			continue
		}
		s.logger().Debug("orphaned card, deleting", "id", c.ID)
		if err := s.DB.DeleteCard(ctx, c.ID); err != nil {
			s.logger().Warn("failed to delete orphaned card", "id", c.ID, "error", err)
			continue
		}
		report.Removed++
	}

	if err := s.DB.UpdateSourceLastScanned(ctx, sourceID, s.now()); err != nil {
		s.logger().Warn("failed to update last scanned for source", "source_id", sourceID, "error", err)
	}

	s.logger().Info("reconciliation complete",
		"path", dir,
		"parsed_cards", report.Parsed,
		"added", report.Added,
		"orphaned_deleted", report.Removed,
		"errors", len(report.Errors),
	)
	return report, nil
}
