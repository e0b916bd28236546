package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"

	"clickpredict/internal/models"
	"clickpredict/internal/persistence"
)

var ErrSchemaMismatch = errors.New("feature schema mismatch")

// FeatureVector is a single row with named columns, in training order.
type FeatureVector struct {
	Names  []string
	Values []decimal.Decimal
}

func NewFeatureVector(names []string, values []float64) FeatureVector {
	v := FeatureVector{
		Names:  append([]string(nil), names...),
		Values: make([]decimal.Decimal, len(values)),
	}
	for i, f := range values {
		v.Values[i] = decimal.NewFromFloat(f)
	}
	return v
}

func (v FeatureVector) key() string {
	var b strings.Builder
	for i, val := range v.Values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(val.String())
	}
	return b.String()
}

type Prediction struct {
	Label         int        `json:"label"`
	Probabilities [2]float64 `json:"probabilities"`
}

// Confidence is the probability of the predicted label.
func (p Prediction) Confidence() float64 {
	return p.Probabilities[p.Label]
}

type Options struct {
	// CacheSize bounds memoised predictions; 0 disables the cache.
	CacheSize int
}

// Service serves one loaded bundle. It is never mutated after construction.
type Service struct {
	bundle *persistence.ModelBundle
	cache  *lru.Cache[string, Prediction]
}

func NewService(bundle *persistence.ModelBundle, opts Options) (*Service, error) {
	if bundle == nil {
		return nil, fmt.Errorf("%w: no bundle", persistence.ErrModelNotFound)
	}
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", persistence.ErrCorruptArtifact, err)
	}

	s := &Service{bundle: bundle}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, Prediction](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create prediction cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Load reads the bundle at path. It fails with persistence.ErrModelNotFound
// before the first training run.
func Load(path string, opts Options) (*Service, error) {
	bundle, err := persistence.LoadModelBundle(path)
	if err != nil {
		return nil, err
	}
	return NewService(bundle, opts)
}

// PredictFromArtifact loads the bundle at path and predicts one scaled vector.
func PredictFromArtifact(ctx context.Context, path string, scaled FeatureVector) (Prediction, error) {
	s, err := Load(path, Options{})
	if err != nil {
		return Prediction{}, err
	}
	return s.PredictScaled(ctx, scaled)
}

func (s *Service) Features() []string {
	return append([]string(nil), s.bundle.Metadata.Features...)
}

func (s *Service) Metadata() persistence.BundleMetadata {
	return s.bundle.Metadata
}

func (s *Service) Model() *models.LogisticRegression {
	return s.bundle.Model
}

func (s *Service) ValidateSchema(v FeatureVector) error {
	expected := s.bundle.Metadata.Features
	if len(v.Names) != len(v.Values) {
		return fmt.Errorf("%w: %d names for %d values", ErrSchemaMismatch, len(v.Names), len(v.Values))
	}
	if len(v.Names) != len(expected) {
		return fmt.Errorf("%w: expected %d features %v, got %d %v",
			ErrSchemaMismatch, len(expected), expected, len(v.Names), v.Names)
	}
	for i, name := range expected {
		if v.Names[i] != name {
			return fmt.Errorf("%w: feature %d is %q, expected %q", ErrSchemaMismatch, i, v.Names[i], name)
		}
	}
	return nil
}

// Predict scales a raw vector with the bundled scaler and predicts it.
func (s *Service) Predict(ctx context.Context, raw FeatureVector) (Prediction, error) {
	if err := s.ValidateSchema(raw); err != nil {
		return Prediction{}, err
	}

	scaled, err := s.bundle.Scaler.TransformRow(raw.Values)
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to scale input: %w", err)
	}

	return s.PredictScaled(ctx, FeatureVector{Names: raw.Names, Values: scaled})
}

func (s *Service) PredictScaled(ctx context.Context, scaled FeatureVector) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if err := s.ValidateSchema(scaled); err != nil {
		return Prediction{}, err
	}

	var key string
	if s.cache != nil {
		key = scaled.key()
		if p, ok := s.cache.Get(key); ok {
			return p, nil
		}
	}

	x := models.ToFloats(scaled.Values)
	p := Prediction{
		Label:         s.bundle.Model.PredictRow(x),
		Probabilities: s.bundle.Model.ProbaRow(x),
	}

	if s.cache != nil {
		s.cache.Add(key, p)
	}
	return p, nil
}
