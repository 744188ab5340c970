package payload

import (
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/jackerschott/sparrow/pkg/errors"
)

// DefaultDeployKeyPath is the ssh key used to fetch pinned revisions
// and their submodules.
func DefaultDeployKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".ssh", "id_ed25519")
	}
	return filepath.Join(home, ".ssh", "id_ed25519")
}

// UnpackRevision materializes a pinned revision at destinationPath:
// clone over ssh with the deploy key, resolve and check out the
// revision with a detached HEAD, then update submodules recursively
// with the same credentials. Any failing step aborts the whole
// materialization; a run must never proceed on a partial checkout.
func UnpackRevision(url, revision, destinationPath, sshKeyPath string) error {
	auth, err := gitssh.NewPublicKeysFromFile("git", sshKeyPath, "")
	if err != nil {
		return errors.Newf("could not load deploy key %s", sshKeyPath).Wrap(err)
	}

	repo, err := git.PlainClone(destinationPath, false, &git.CloneOptions{
		URL:  url,
		Auth: auth,
	})
	if err != nil {
		return errors.Newf("could not clone %s to %s", url, destinationPath).
			Wrap(errors.ErrExternalTool.Wrap(err))
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return errors.Newf("revision %q of %s could not be resolved; did you push it?", revision, url).
			Wrap(errors.ErrExternalTool.Wrap(err))
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return errors.Newf("could not open worktree of %s", destinationPath).Wrap(err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		return errors.Newf("could not check out %q (%s)", revision, hash).
			Wrap(errors.ErrExternalTool.Wrap(err))
	}

	submodules, err := worktree.Submodules()
	if err != nil {
		return errors.Newf("could not list submodules of %s", destinationPath).Wrap(err)
	}
	if err := submodules.Update(&git.SubmoduleUpdateOptions{
		Init:              true,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
		Auth:              auth,
	}); err != nil {
		return errors.Newf("could not update submodules of %s", destinationPath).
			Wrap(errors.ErrExternalTool.Wrap(err))
	}

	return nil
}
