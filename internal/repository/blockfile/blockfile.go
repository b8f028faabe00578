// Package blockfile stores a sequence of equally sized blocks in a plain file.
// Files are only ever appended to or replaced whole; a replace goes through a
// renameio pending file in the same directory, so readers see either the old
// content or the new content.
package blockfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/mamadbah2/chapaquote/pkg/apperrors"
)

const filePerm = 0o644

// ReadAll returns every block of path in file order. A missing file yields no
// blocks. A trailing chunk shorter than size is reported as a
// *apperrors.CorruptionError.
func ReadAll(path string, size int) ([][]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", size)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var (
		blocks [][]byte
		offset int64
	)
	for {
		block := make([]byte, size)
		n, err := io.ReadFull(r, block)
		switch {
		case err == nil:
			blocks = append(blocks, block)
			offset += int64(n)
		case errors.Is(err, io.EOF):
			return blocks, nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			return blocks, &apperrors.CorruptionError{Path: path, Offset: offset, Got: n, BlockSize: size}
		default:
			return blocks, fmt.Errorf("read %s at offset %d: %w", path, offset, err)
		}
	}
}

// Append writes one block at the end of path, creating the file if needed.
func Append(path string, block []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, filePerm)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", path, err)
	}

	if _, err := f.Write(block); err != nil {
		_ = f.Close()
		return fmt.Errorf("append to %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// Replace atomically swaps the content of path for blocks.
func Replace(path string, blocks [][]byte) error {
	dir := filepath.Dir(path)
	pending, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(dir),
		renameio.WithStaticPermissions(filePerm))
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer func() { _ = pending.Cleanup() }()

	w := bufio.NewWriter(pending)
	for _, block := range blocks {
		if _, err := w.Write(block); err != nil {
			return fmt.Errorf("write temp file for %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush temp file for %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	syncDir(dir)
	return nil
}

// Exists reports whether path is present.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

// syncDir makes the rename durable where the platform allows syncing a
// directory; failures are ignored since the rename itself already succeeded.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
