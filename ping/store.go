// Licensed to Elasticsearch B.V. under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Elasticsearch B.V. licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package ping

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/elastic/glean-core-go/logger"

	"github.com/tidwall/gjson"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	pingsDirName   = "pings"
	stagingDirName = "tmp"
	stagingPrefix  = "glean-ping-"
)

var (
	// ErrInvalidDocumentID is returned for document ids that are not a
	// single path element.
	ErrInvalidDocumentID = errors.New("invalid document id")
	// ErrInvalidPath is returned for upload paths spanning several lines.
	ErrInvalidPath = errors.New("invalid upload path")
)

// PendingPing is a stored ping waiting to be uploaded.
type PendingPing struct {
	DocumentID string
	// Path is the upload path, relative to the server URL.
	Path string
	Body []byte
}

// Store writes ping files to <data_path>/pings.
//
// A ping file holds the upload path, a newline, then the JSON body. It is
// written to the staging directory first and renamed into place, so a
// file in the pings directory is always complete.
type Store struct {
	pingsDir   string
	stagingDir string
	logger     *zap.SugaredLogger

	rename  func(oldpath, newpath string) error
	syncDir func(dir string) error
	now     func() time.Time
}

// NewStore returns a store for dataPath. Nothing is created on disk until
// the first ping is stored.
func NewStore(dataPath string, opts ...Option) *Store {
	o := newOptions(opts)
	s := &Store{
		pingsDir:   filepath.Join(dataPath, pingsDirName),
		stagingDir: o.stagingDir,
		logger:     logger.OrNop(o.logger),
		rename:     os.Rename,
		syncDir:    syncDir,
		now:        o.now,
	}
	if s.stagingDir == "" {
		s.stagingDir = filepath.Join(dataPath, stagingDirName)
	}
	return s
}

// Dir returns the directory pending pings are stored in.
func (s *Store) Dir() string {
	return s.pingsDir
}

// Put stores body under docID, to be uploaded to urlPath.
func (s *Store) Put(docID, urlPath string, body []byte) error {
	if err := validateDocumentID(docID); err != nil {
		return err
	}
	if strings.ContainsAny(urlPath, "\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, urlPath)
	}

	if err := os.MkdirAll(s.pingsDir, 0o700); err != nil {
		return fmt.Errorf("failed to create pings directory: %w", err)
	}
	if err := os.MkdirAll(s.stagingDir, 0o700); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	staged, err := s.stage(docID, urlPath, body)
	if err != nil {
		return err
	}

	if err := s.rename(staged, filepath.Join(s.pingsDir, docID)); err != nil {
		return fmt.Errorf("failed to move ping %s into place: %w", docID, err)
	}
	// The rename is only durable once the directory entry is on disk.
	if err := s.syncDir(s.pingsDir); err != nil {
		return fmt.Errorf("failed to sync pings directory after storing %s: %w", docID, err)
	}
	s.logger.Debugf("Stored ping %s", docID)
	return nil
}

// stage writes the ping file to the staging directory and returns its
// path. The file is synced and closed on success.
func (s *Store) stage(docID, urlPath string, body []byte) (string, error) {
	f, err := os.CreateTemp(s.stagingDir, stagingPrefix+docID+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}
	name := f.Name()

	err = writePingFile(f, urlPath, body)
	if err = multierr.Append(err, f.Close()); err != nil {
		if rmErr := os.Remove(name); rmErr != nil {
			s.logger.Warnf("Failed to remove staging file %s: %v", name, rmErr)
		}
		return "", fmt.Errorf("failed to write ping %s: %w", docID, err)
	}
	return name, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	return multierr.Append(d.Sync(), d.Close())
}

func writePingFile(f *os.File, urlPath string, body []byte) error {
	if _, err := f.WriteString(urlPath + "\n"); err != nil {
		return err
	}
	if _, err := f.Write(body); err != nil {
		return err
	}
	return f.Sync()
}

// Read returns the stored ping docID.
func (s *Store) Read(docID string) (*PendingPing, error) {
	if err := validateDocumentID(docID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.pingsDir, docID))
	if err != nil {
		return nil, fmt.Errorf("failed to read ping %s: %w", docID, err)
	}
	path, body, ok := bytes.Cut(data, []byte("\n"))
	if !ok {
		return nil, fmt.Errorf("ping %s has no upload path", docID)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("ping %s has an invalid JSON body", docID)
	}
	return &PendingPing{
		DocumentID: docID,
		Path:       string(path),
		Body:       body,
	}, nil
}

// Pending returns every stored ping. Unreadable ping files are skipped;
// their errors are combined in the returned error.
func (s *Store) Pending() ([]PendingPing, error) {
	entries, err := os.ReadDir(s.pingsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list pending pings: %w", err)
	}

	var (
		pending []PendingPing
		errs    error
	)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		p, err := s.Read(e.Name())
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		pending = append(pending, *p)
	}
	return pending, errs
}

// Remove deletes the stored ping docID. Removing a missing ping is not an
// error.
func (s *Store) Remove(docID string) error {
	if err := validateDocumentID(docID); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.pingsDir, docID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove ping %s: %w", docID, err)
	}
	return nil
}

// CleanStaging removes the staging files older than olderThan left behind
// by failed writes, and returns how many were removed.
func (s *Store) CleanStaging(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.stagingDir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list staging directory: %w", err)
	}

	cutoff := s.now().Add(-olderThan)
	var (
		removed int
		errs    error
	)
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasPrefix(e.Name(), stagingPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.stagingDir, e.Name())); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Infof("Removed %d leftover staging files", removed)
	}
	return removed, errs
}

func validateDocumentID(docID string) error {
	if docID == "" || docID == "." || docID == ".." ||
		strings.ContainsAny(docID, `/\`) || strings.ContainsRune(docID, filepath.Separator) {
		return fmt.Errorf("%w: %q", ErrInvalidDocumentID, docID)
	}
	return nil
}
