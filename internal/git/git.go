package git

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	gogit "github.com/go-git/go-git/v5"
)

func logger() *log.Logger { return log.Default().WithPrefix("git") }

var ErrNotRepository = errors.New("not a git repository")

// Repository is an opened work tree.
type Repository struct {
	repo *gogit.Repository
	root string
}

// Open finds the repository containing dir.
func Open(dir string) (*Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNotRepository)
		}
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening work tree at %s: %w", dir, err)
	}
	root := wt.Filesystem.Root()
	logger().Debug("repository opened", "root", root)
	return &Repository{repo: repo, root: root}, nil
}

// Root is the absolute work tree root.
func (r *Repository) Root() string { return r.root }

// GitDir returns the .git directory, or an error for linked work trees
// where .git is a file.
func (r *Repository) GitDir() (string, error) {
	dir := filepath.Join(r.root, ".git")
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}
	return dir, nil
}

// StagedFiles lists index entries added, modified, renamed or copied
// relative to HEAD, as sorted repository-relative slash paths. Deletions
// are left out since there is nothing left to check.
func (r *Repository) StagedFiles() ([]string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening work tree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	var files []string
	for path, fs := range status {
		switch fs.Staging {
		case gogit.Added, gogit.Modified, gogit.Renamed, gogit.Copied:
			files = append(files, path)
		}
	}
	slices.Sort(files)
	logger().Debug("staged files collected", "count", len(files))
	return files, nil
}
