package sshexec

import (
	"context"
	"io"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
)

// Upload copies a local file to the server over SFTP. A relative remotePath
// is placed under the server's resolved WordPress root.
func (e *Executor) Upload(ctx context.Context, targetID, localPath, remotePath string) error {
	profile, err := e.resolver.Resolve(targetID)
	if err != nil {
		return err
	}

	client, err := e.dial(ctx, profile)
	if err != nil {
		return err
	}
	defer client.Close()

	sc, err := sftp.NewClient(client)
	if err != nil {
		return errors.Wrap(err, "could not start sftp connection")
	}
	defer sc.Close()

	src, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "unable to open file %s", localPath)
	}
	defer src.Close()

	dstPath := remoteAbs(profile.WPRootPath, remotePath)
	dst, err := sc.Create(dstPath)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", dstPath)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return errors.Wrapf(err, "unable to copy to file %s", dstPath)
	}

	st, err := os.Stat(localPath)
	if err != nil {
		return errors.Wrapf(err, "unable to stat file %s", localPath)
	}
	if n != st.Size() {
		return errors.Errorf("wrote %d of %d bytes to %s", n, st.Size(), dstPath)
	}

	e.logger.Debug("uploaded file", "target", targetID, "local", localPath, "remote", dstPath)
	return nil
}

// Download copies a remote file to localPath over SFTP. A relative
// remotePath is read from under the server's resolved WordPress root.
func (e *Executor) Download(ctx context.Context, targetID, remotePath, localPath string) error {
	profile, err := e.resolver.Resolve(targetID)
	if err != nil {
		return err
	}

	client, err := e.dial(ctx, profile)
	if err != nil {
		return err
	}
	defer client.Close()

	sc, err := sftp.NewClient(client)
	if err != nil {
		return errors.Wrap(err, "could not start sftp connection")
	}
	defer sc.Close()

	srcPath := remoteAbs(profile.WPRootPath, remotePath)
	src, err := sc.Open(srcPath)
	if err != nil {
		return errors.Wrapf(err, "unable to open file %s", srcPath)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", localPath)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.Wrapf(err, "unable to copy from file %s", srcPath)
	}

	e.logger.Debug("downloaded file", "target", targetID, "remote", srcPath, "local", localPath)
	return nil
}

func remoteAbs(root, p string) string {
	if path.IsAbs(p) {
		return p
	}
	return path.Join(root, p)
}
