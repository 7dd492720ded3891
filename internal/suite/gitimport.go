package suite

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog/log"
)

// ImportFromGit clones a repository and loads every YAML suite it
// contains. Files that fail to parse are skipped with a warning so one
// bad suite does not block an import.
func ImportFromGit(ctx context.Context, repoURL, branch string) ([]*Suite, error) {
	dir, err := os.MkdirTemp("", "prompteval-import-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	opts := &git.CloneOptions{
		URL:   repoURL,
		Depth: 1,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", repoURL, err)
	}

	suites, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("repo", repoURL).
		Int("suites", len(suites)).
		Msg("imported suites from git")

	return suites, nil
}

// LoadDir walks a directory tree and loads every .yaml/.yml suite in it
func LoadDir(root string) ([]*Suite, error) {
	var suites []*Suite

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		s, err := Load(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("skipping invalid suite file")
			return nil
		}

		suites = append(suites, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return suites, nil
}
