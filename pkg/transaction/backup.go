package transaction

import (
	"bytes"
	"io"
	"os"

	"github.com/zeebo/blake3"

	"github.com/ajitpratap0/scrub/pkg/errors"
)

// BackupPath names the sibling safety copy of path
func BackupPath(path, suffix string) string {
	return path + suffix
}

// backup copies src to dst, which must not exist, and returns the BLAKE3
// digest of the copied bytes. The copy is synced and re-read to confirm it
// matches before backup returns.
func backup(src, dst string) ([]byte, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeBackupFailed, "failed to open original").
			WithDetail("path", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeBackupFailed, "failed to stat original").
			WithDetail("path", src)
	}

	// O_EXCL: an existing backup may be the only good copy from an earlier run.
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeBackupFailed, "failed to create backup").
			WithDetail("backup", dst)
	}

	digest, err := copyAndHash(out, in)
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return nil, errors.Wrap(err, errors.ErrorTypeBackupFailed, "failed to write backup").
			WithDetail("backup", dst)
	}

	got, err := hashFile(dst)
	if err != nil || !bytes.Equal(got, digest) {
		os.Remove(dst)
		if err == nil {
			err = errors.New(errors.ErrorTypeBackupFailed, "backup digest mismatch")
		}
		return nil, errors.Wrap(err, errors.ErrorTypeBackupFailed, "failed to verify backup").
			WithDetail("backup", dst)
	}

	return digest, nil
}

// restore moves the backup over the original and checks that the restored
// bytes hash to digest. Every failure is rollback_failed.
func restore(backupPath, path string, digest []byte) error {
	if err := os.Rename(backupPath, path); err != nil {
		return errors.Wrap(err, errors.ErrorTypeRollbackFailed, "failed to restore original from backup").
			WithDetail("path", path).
			WithDetail("backup", backupPath)
	}

	got, err := hashFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeRollbackFailed, "failed to read restored original").
			WithDetail("path", path)
	}
	if !bytes.Equal(got, digest) {
		return errors.New(errors.ErrorTypeRollbackFailed, "restored original does not match backup digest").
			WithDetail("path", path)
	}
	return nil
}

func copyAndHash(dst io.Writer, src io.Reader) ([]byte, error) {
	h := blake3.New()
	if _, err := io.Copy(io.MultiWriter(dst, h), src); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return copyAndHash(io.Discard, f)
}
