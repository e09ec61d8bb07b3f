package vcs

import (
	"errors"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// gitBackend implements Backend on top of github.com/go-git/go-git/v5,
// the concrete VCS client spec.md §1 names as an out-of-scope collaborator
// (only the Backend interface it satisfies is specified).
type gitBackend struct{}

func (gitBackend) Valid(dir, location string) bool {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return false
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return false
	}
	urls := remote.Config().URLs
	return len(urls) > 0 && urls[0] == location
}

func (gitBackend) Clone(dir, location string) error {
	_, err := git.PlainClone(dir, false, &git.CloneOptions{
		URL:  location,
		Tags: git.AllTags,
	})
	return err
}

func (gitBackend) Update(dir string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return err
	}
	err = repo.Fetch(&git.FetchOptions{
		RemoteName: "origin",
		Tags:       git.AllTags,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

// Checkout resolves revision (an exact ref, a commit hash, or a semver
// constraint matched against the repository's tags — SPEC_FULL.md §13.6)
// and moves the working tree there.
func (gitBackend) Checkout(dir, revision string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return err
	}

	hash, err := resolveRevision(repo, revision)
	if err != nil {
		return err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true})
}

// Head returns the commit hash currently checked out at dir.
func (gitBackend) Head(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	return head.Hash().String(), nil
}

func resolveRevision(repo *git.Repository, revision string) (*plumbing.Hash, error) {
	if isSemverConstraint(revision) {
		return resolveSemverTag(repo, revision)
	}
	h, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		// Fall back to an explicit remote branch/tag reference.
		h, err = repo.ResolveRevision(plumbing.Revision("refs/remotes/origin/" + revision))
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}

// isSemverConstraint reports whether revision looks like a range rather than
// an exact tag/branch/commit, e.g. "^1.4", "~2", "1.2.*".
func isSemverConstraint(revision string) bool {
	return strings.ContainsAny(revision, "^~*") || strings.Contains(revision, ">") || strings.Contains(revision, "<")
}

func resolveSemverTag(repo *git.Repository, constraint string) (*plumbing.Hash, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, err
	}
	tags, err := repo.Tags()
	if err != nil {
		return nil, err
	}
	var best *semver.Version
	var bestRef *plumbing.Reference
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		v, err := semver.NewVersion(name)
		if err != nil {
			return nil // not a semver tag, skip
		}
		if c.Check(v) && (best == nil || v.GreaterThan(best)) {
			best, bestRef = v, ref
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if bestRef == nil {
		return nil, errors.New("no tag satisfies constraint " + constraint)
	}
	h := bestRef.Hash()
	return &h, nil
}
