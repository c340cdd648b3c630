// Package artifact persists trained models as a single compressed file and
// caches the ones recently loaded.
package artifact

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/okian/edupredict/internal/domain/classifier"
	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/internal/domain/schema"
)

// Format identifies the on-disk envelope version.
const Format = "edupredict/model/v1"

const filePermission = 0o644

type envelope struct {
	Format string              `json:"format"`
	Model  *classifier.Trained `json:"model"`
}

// Save writes m to path atomically: a temp file in the same directory is
// fully written and synced, then renamed over the destination.
func Save(path string, m *classifier.Trained) (err error) {
	const op = "artifact.save"
	if !m.Ready() {
		return errs.WrapKind(op, errs.ErrValidation, classifier.ErrNotTrained)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%s: create dir: %w", op, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%s: create temp: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	zw := gzip.NewWriter(tmp)
	if err = json.NewEncoder(zw).Encode(envelope{Format: Format, Model: m}); err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("%s: compress: %w", op, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%s: sync: %w", op, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%s: close: %w", op, err)
	}
	if err = os.Chmod(tmp.Name(), filePermission); err != nil {
		return fmt.Errorf("%s: chmod: %w", op, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%s: rename: %w", op, err)
	}
	return nil
}

// Load reads an artifact. A missing file is NotFound; anything unreadable,
// from another format, or trained against a different feature schema is
// CorruptArtifact.
func Load(path string) (*classifier.Trained, error) {
	const op = "artifact.load"
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.WrapKind(op, errs.ErrNotFound, err)
		}
		return nil, errs.WrapKind(op, errs.ErrCorruptArtifact, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errs.WrapKind(op, errs.ErrCorruptArtifact, fmt.Errorf("%s: %w", path, err))
	}
	defer zr.Close()

	var env envelope
	if err := json.NewDecoder(zr).Decode(&env); err != nil {
		return nil, errs.WrapKind(op, errs.ErrCorruptArtifact, fmt.Errorf("%s: %w", path, err))
	}
	if env.Format != Format {
		return nil, errs.WrapKind(op, errs.ErrCorruptArtifact, fmt.Errorf("%s: unsupported format %q", path, env.Format))
	}
	if !env.Model.Ready() {
		return nil, errs.WrapKind(op, errs.ErrCorruptArtifact, fmt.Errorf("%s: empty model", path))
	}
	if err := CheckSchema(env.Model); err != nil {
		return nil, errs.WrapKind(op, errs.ErrCorruptArtifact, fmt.Errorf("%s: %w", path, err))
	}
	return env.Model, nil
}

// CheckSchema verifies that m was trained with the running feature schema.
func CheckSchema(m *classifier.Trained) error {
	if m.Fingerprint != schema.Fingerprint() || !slices.Equal(m.Features, schema.Names()) {
		return fmt.Errorf("feature schema mismatch: model has %v, expected %v", m.Features, schema.Names())
	}
	return nil
}
