// Package gitsource keeps local checkouts of git-hosted note repositories.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// IsGitURL reports whether path looks like a git remote rather than a
// local directory.
func IsGitURL(path string) bool {
	return strings.HasSuffix(path, ".git") ||
		strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "http://")
}

// LocalPath maps a remote URL to a checkout directory under baseDir,
// e.g. https://github.com/u/notes.git -> baseDir/github.com/u/notes.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// scp-like syntax: git@host:user/repo.git
		if user, rest, ok := strings.Cut(repoURL, "@"); ok && user != "" {
			host, repoPath, ok := strings.Cut(rest, ":")
			if ok && host != "" && repoPath != "" {
				return filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git")), nil
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	if parsedURL.Host == "" || strings.Trim(sanitizedPath, "/") == "" {
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}

// Sync clones a git repository if it doesn't exist at localPath,
// or pulls the latest changes if it does. progress may be nil.
func Sync(ctx context.Context, repoURL, localPath string, progress io.Writer) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		slog.Info("cloning repository", "url", repoURL, "path", localPath)
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:      repoURL,
			Progress: progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
		return nil

	case err != nil:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	slog.Info("pulling repository", "path", localPath)
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
	}

	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName: "origin",
		Progress:   progress,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
	}
	return nil
}
