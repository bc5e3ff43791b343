// Package output writes generated files atomically and skips unchanged content.
package output

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"relnotes/internal/models"
)

// Result describes one written file.
type Result struct {
	Path    string
	Hash    string
	Bytes   int
	Changed bool
}

// CalculateHash computes the hex SHA-256 of content.
func CalculateHash(content []byte) string {
	hash := sha256.Sum256(content)

	return hex.EncodeToString(hash[:])
}

// FileHash returns the hash of the file at path, or "" if it does not exist.
func FileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	return CalculateHash(data), nil
}

// WriteFile writes content to path using a temp file in the same directory
// followed by a rename, so readers never see a partial file. When the file
// already holds identical content it is left untouched and Changed is false.
func WriteFile(path string, content []byte) (*Result, error) {
	res := &Result{Path: path, Hash: CalculateHash(content), Bytes: len(content)}

	existing, err := FileHash(path)
	if err != nil {
		return nil, err
	}

	if existing == res.Hash {
		return res, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return nil, fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)

		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)

		return nil, fmt.Errorf("setting file mode: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)

		return nil, fmt.Errorf("renaming temp file: %w", err)
	}

	res.Changed = true

	return res, nil
}

// EncodeRowsCSV writes the header row followed by rows as CSV.
func EncodeRowsCSV(w io.Writer, rows []models.Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(models.HeaderRow()); err != nil {
		return err
	}

	for _, r := range rows {
		if err := cw.Write(r.Columns()); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteRowsCSV writes rows as CSV to path with the same guarantees as WriteFile.
func WriteRowsCSV(path string, rows []models.Row) (*Result, error) {
	var buf bytes.Buffer
	if err := EncodeRowsCSV(&buf, rows); err != nil {
		return nil, fmt.Errorf("encoding rows: %w", err)
	}

	return WriteFile(path, buf.Bytes())
}
