package gitstore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/mickael31/location-benne-occitanie/internal/util"
	"github.com/mickael31/location-benne-occitanie/remote"
)

func (s *Store) Identify(_ context.Context, token string) (remote.Identity, error) {
	if !s.authorized(token) {
		return remote.Identity{}, fmt.Errorf("%w: unknown token", remote.ErrAuth)
	}
	return remote.Identity{Login: s.author}, nil
}

func (s *Store) Fetch(ctx context.Context, loc remote.Location, token string) (remote.Document, error) {
	dir, err := s.repoPath(loc)
	if err != nil {
		return remote.Document{}, err
	}
	if !s.authorized(token) {
		return remote.Document{}, fmt.Errorf("%w: unknown token", remote.ErrNotFoundOrAuth)
	}

	lock := s.repoLock(dir)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(dir)
	if err != nil {
		return remote.Document{}, fmt.Errorf("%w: open %s/%s: %v", remote.ErrNotFoundOrAuth, loc.Owner, loc.Repo, err)
	}
	file, err := headFile(repo, loc)
	if err != nil {
		return remote.Document{}, err
	}
	text, err := file.Contents()
	if err != nil {
		return remote.Document{}, fmt.Errorf("read %s: %w", loc.Path, err)
	}
	if !utf8.ValidString(text) {
		return remote.Document{}, fmt.Errorf("%w: content is not UTF-8", remote.ErrUnsupportedEncoding)
	}

	s.logger.DebugContext(ctx, "git fetch", "location", loc.String(), "revision", file.Hash.String())
	return remote.Document{Revision: file.Hash.String(), Text: string(util.StripBOM([]byte(text)))}, nil
}

// Write commits req.Text on loc.Branch if the file is still at req.Revision.
func (s *Store) Write(ctx context.Context, loc remote.Location, token string, req remote.WriteRequest) (remote.WriteResult, error) {
	if err := remote.CheckWrite(req); err != nil {
		return remote.WriteResult{}, err
	}
	dir, err := s.repoPath(loc)
	if err != nil {
		return remote.WriteResult{}, err
	}
	if !s.authorized(token) {
		return remote.WriteResult{}, fmt.Errorf("%w: unknown token", remote.ErrNotFoundOrAuth)
	}

	lock := s.repoLock(dir)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(dir)
	if err != nil {
		return remote.WriteResult{}, fmt.Errorf("%w: open %s/%s: %v", remote.ErrNotFoundOrAuth, loc.Owner, loc.Repo, err)
	}
	current, err := headFile(repo, loc)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return remote.WriteResult{}, fmt.Errorf("%w: %s no longer exists", remote.ErrConflict, loc.Path)
		}
		return remote.WriteResult{}, err
	}
	if current.Hash.String() != strings.TrimSpace(req.Revision) {
		return remote.WriteResult{}, fmt.Errorf("%w: %s is at %s, not %s", remote.ErrConflict, loc.Path, current.Hash, req.Revision)
	}

	hash, err := s.commit(repo, loc, req.Text, req.CommitMessage(loc.Path))
	if err != nil {
		return remote.WriteResult{}, err
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return remote.WriteResult{}, fmt.Errorf("read commit object: %w", err)
	}
	file, err := commitObj.File(loc.Path)
	if err != nil {
		return remote.WriteResult{}, fmt.Errorf("load %s from commit: %w", loc.Path, err)
	}

	s.logger.DebugContext(ctx, "git write", "location", loc.String(), "commit", hash.String())
	return remote.WriteResult{Revision: file.Hash.String(), CommitRef: hash.String()}, nil
}

// EnsureRepository creates the repository for loc with text as the first
// version of the document. It does nothing if the repository exists.
func (s *Store) EnsureRepository(loc remote.Location, text string) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	dir, err := s.repoPath(loc)
	if err != nil {
		return err
	}

	lock := s.repoLock(dir)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(dir); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat repo path: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create repo dir: %w", err)
	}

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return fmt.Errorf("init repo: %w", err)
	}
	branchRef := plumbing.NewBranchReferenceName(loc.Branch)
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branchRef)); err != nil {
		return fmt.Errorf("set HEAD to %s: %w", loc.Branch, err)
	}
	if _, err := s.commit(repo, loc, text, "Import "+loc.Path); err != nil {
		return err
	}
	return nil
}

func (s *Store) commit(repo *git.Repository, loc remote.Location, text, message string) (plumbing.Hash, error) {
	if err := checkoutBranch(repo, loc.Branch); err != nil {
		return plumbing.ZeroHash, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}

	target := filepath.Join(worktree.Filesystem.Root(), filepath.FromSlash(loc.Path))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("create %s: %w", filepath.Dir(loc.Path), err)
	}
	if err := os.WriteFile(target, []byte(text), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write %s: %w", loc.Path, err)
	}
	if _, err := worktree.Add(loc.Path); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git add %s: %w", loc.Path, err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  s.author,
			Email: s.email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit %s: %w", loc.Path, err)
	}
	return hash, nil
}

// checkoutBranch only runs once the repository has a first commit, so the
// branch normally exists; an unborn branch is left to the next commit.
func checkoutBranch(repo *git.Repository, branch string) error {
	branchRef := plumbing.NewBranchReferenceName(branch)
	if _, err := repo.Reference(branchRef, true); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil
		}
		return fmt.Errorf("resolve branch %s: %w", branch, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: branchRef, Force: true}); err != nil {
		return fmt.Errorf("checkout branch %s: %w", branch, err)
	}
	return nil
}

func headFile(repo *git.Repository, loc remote.Location) (*object.File, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(loc.Branch), true)
	if err != nil {
		return nil, fmt.Errorf("%w: branch %s: %v", remote.ErrNotFoundOrAuth, loc.Branch, err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load commit object: %w", err)
	}
	file, err := commitObj.File(loc.Path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %w", remote.ErrNotFoundOrAuth, err)
		}
		return nil, fmt.Errorf("load %s from commit: %w", loc.Path, err)
	}
	return file, nil
}

func (s *Store) authorized(token string) bool {
	if s.token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(s.token)) == 1
}

// repoPath maps loc to its repository directory. Owner, repo and path must
// stay inside baseDir.
func (s *Store) repoPath(loc remote.Location) (string, error) {
	if err := loc.Validate(); err != nil {
		return "", err
	}
	for _, name := range []string{loc.Owner, loc.Repo} {
		if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return "", fmt.Errorf("%w: bad repository name %q", remote.ErrInvalidLocation, name)
		}
	}
	if !filepath.IsLocal(filepath.FromSlash(loc.Path)) {
		return "", fmt.Errorf("%w: bad path %q", remote.ErrInvalidLocation, loc.Path)
	}
	return filepath.Join(s.baseDir, loc.Owner, loc.Repo), nil
}

func (s *Store) repoLock(dir string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[dir]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[dir] = lock
	return lock
}
