package persistence

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"clickpredict/internal/models"
	"clickpredict/internal/preprocessing"
)

var (
	ErrModelNotFound    = errors.New("model artifact not found")
	ErrCorruptArtifact  = errors.New("model artifact is corrupt")
	errIncompleteBundle = errors.New("bundle is incomplete")
)

// ModelBundle is the single artifact the serving side loads: the classifier
// and the scaler fitted on the same training partition.
type ModelBundle struct {
	Model     *models.LogisticRegression
	Scaler    *preprocessing.Scaler
	Metadata  BundleMetadata
	CreatedAt time.Time
}

type BundleMetadata struct {
	ModelName    string
	Dataset      string
	Metric       string
	Score        float64
	Evaluated    bool
	TrainSize    int
	TestSize     int
	Iterations   int
	Converged    bool
	TrainingTime time.Duration
	Features     []string
	Classes      []int
	Parameters   map[string]any
}

func NewModelBundle(model *models.LogisticRegression, scaler *preprocessing.Scaler, features []string) *ModelBundle {
	return &ModelBundle{
		Model:     model,
		Scaler:    scaler,
		CreatedAt: time.Now(),
		Metadata: BundleMetadata{
			ModelName:  model.GetName(),
			Parameters: model.GetParams(),
			Classes:    model.GetClasses(),
			Iterations: model.NIter,
			Converged:  model.Converged,
			Features:   append([]string(nil), features...),
		},
	}
}

func (mb *ModelBundle) Validate() error {
	if mb.Model == nil || !mb.Model.IsFitted() {
		return fmt.Errorf("%w: no fitted classifier", errIncompleteBundle)
	}
	if mb.Scaler == nil || !mb.Scaler.IsFitted {
		return fmt.Errorf("%w: no fitted scaler", errIncompleteBundle)
	}
	n := mb.Model.NumFeatures()
	if mb.Scaler.NumFeatures() != n || len(mb.Metadata.Features) != n {
		return fmt.Errorf("%w: classifier has %d weights, scaler %d features, schema %d names",
			errIncompleteBundle, n, mb.Scaler.NumFeatures(), len(mb.Metadata.Features))
	}
	return nil
}

// Save overwrites filename atomically.
func (mb *ModelBundle) Save(filename string) error {
	if err := mb.Validate(); err != nil {
		return err
	}

	return writeFileAtomic(filename, func(w io.Writer) error {
		encoder := gob.NewEncoder(w)
		if err := encoder.Encode(mb); err != nil {
			return fmt.Errorf("failed to encode bundle: %w", err)
		}
		return nil
	})
}

func LoadModelBundle(filename string) (*ModelBundle, error) {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, filename)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	defer file.Close()

	var bundle ModelBundle
	decoder := gob.NewDecoder(bufio.NewReader(file))
	if err := decoder.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrCorruptArtifact, filename, err)
	}

	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArtifact, filename, err)
	}

	return &bundle, nil
}

func (mb *ModelBundle) SaveMetadata(filename string) error {
	return writeFileAtomic(filename, func(w io.Writer) error {
		fmt.Fprintf(w, "Model: %s\n", mb.Metadata.ModelName)
		fmt.Fprintf(w, "Dataset: %s\n", mb.Metadata.Dataset)
		fmt.Fprintf(w, "Created: %s\n", mb.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "Features: %d\n", len(mb.Metadata.Features))
		fmt.Fprintf(w, "Train/Test: %d/%d\n", mb.Metadata.TrainSize, mb.Metadata.TestSize)
		if mb.Metadata.Evaluated {
			fmt.Fprintf(w, "%s: %.4f\n", mb.Metadata.Metric, mb.Metadata.Score)
		}
		fmt.Fprintf(w, "Iterations: %d\n", mb.Metadata.Iterations)
		fmt.Fprintf(w, "Converged: %t\n", mb.Metadata.Converged)
		_, err := fmt.Fprintf(w, "Training Time: %v\n", mb.Metadata.TrainingTime)
		return err
	})
}

// writeFileAtomic writes to a temp file beside filename and renames it into
// place, so readers never observe a partial artifact.
func writeFileAtomic(filename string, write func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	buffered := bufio.NewWriter(tmp)
	if err := write(buffered); err != nil {
		tmp.Close()
		return err
	}
	if err := buffered.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", filename, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filename, err)
	}
	return nil
}
