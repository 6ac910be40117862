package rosbag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// uncompress decompresses a compressed storage file into a scratch file and
// returns its path together with a cleanup function. Recorders compress
// finished splits with xz or lz4 before upload; the sqlite driver needs a
// plain file to seek in.
func uncompress(path string) (scratch string, cleanup func(), err error) {
	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", nil, err
	}
	defer src.Close()

	var r io.Reader
	switch filepath.Ext(path) {
	case ".xz":
		if r, err = xz.NewReader(src); err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrUnsupportedStorage, err)
		}
	case ".lz4":
		r = lz4.NewReader(src)
	default:
		return "", nil, fmt.Errorf("%w: unknown compression suffix on %s", ErrUnsupportedStorage, path)
	}

	dst, err := os.CreateTemp("", "rosbag-export-*.db3")
	if err != nil {
		return "", nil, err
	}
	cleanup = func() { os.Remove(dst.Name()) }
	if _, err = io.Copy(dst, r); err != nil {
		dst.Close()
		cleanup()
		return "", nil, fmt.Errorf("%w: %v", ErrUnsupportedStorage, err)
	}
	if err = dst.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return dst.Name(), cleanup, nil
}

func isCompressed(path string) bool {
	switch filepath.Ext(path) {
	case ".xz", ".lz4":
		return true
	}
	return false
}

func isBagDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
