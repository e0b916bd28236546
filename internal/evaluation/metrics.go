package evaluation

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Metric names one scoring function over binary predictions.
type Metric int

const (
	Accuracy Metric = iota
	Precision
	Recall
)

var metricNames = map[Metric]string{
	Accuracy:  "accuracy",
	Precision: "precision",
	Recall:    "recall",
}

func ParseMetric(s string) (Metric, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for m, name := range metricNames {
		if name == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown metric: %q", s)
}

func (m Metric) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	return fmt.Sprintf("metric(%d)", int(m))
}

func (m Metric) Title() string {
	return cases.Title(language.English).String(m.String())
}

func (m Metric) Score(yTrue, yPred []int) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}

	switch m {
	case Accuracy:
		return cm.Accuracy(), nil
	case Precision:
		return cm.Precision(), nil
	case Recall:
		return cm.Recall(), nil
	default:
		return 0, fmt.Errorf("unknown metric: %s", m)
	}
}

// ConfusionMatrix counts binary outcomes with 1 as the positive class.
type ConfusionMatrix struct {
	TruePositive  int `json:"true_positive"`
	FalsePositive int `json:"false_positive"`
	TrueNegative  int `json:"true_negative"`
	FalseNegative int `json:"false_negative"`
}

func NewConfusionMatrix(yTrue, yPred []int) (*ConfusionMatrix, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("label and prediction lengths differ: %d vs %d", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("no samples to score")
	}

	cm := &ConfusionMatrix{}
	for i, actual := range yTrue {
		predicted := yPred[i]
		switch {
		case actual == 1 && predicted == 1:
			cm.TruePositive++
		case actual == 0 && predicted == 1:
			cm.FalsePositive++
		case actual == 0 && predicted == 0:
			cm.TrueNegative++
		case actual == 1 && predicted == 0:
			cm.FalseNegative++
		default:
			return nil, fmt.Errorf("non-binary label at sample %d: actual=%d predicted=%d", i, actual, predicted)
		}
	}
	return cm, nil
}

func (cm *ConfusionMatrix) Total() int {
	return cm.TruePositive + cm.FalsePositive + cm.TrueNegative + cm.FalseNegative
}

func (cm *ConfusionMatrix) Accuracy() float64 {
	return safeDivide(float64(cm.TruePositive+cm.TrueNegative), float64(cm.Total()))
}

// Precision is 0 when nothing was predicted positive.
func (cm *ConfusionMatrix) Precision() float64 {
	return safeDivide(float64(cm.TruePositive), float64(cm.TruePositive+cm.FalsePositive))
}

// Recall is 0 when there are no positive samples.
func (cm *ConfusionMatrix) Recall() float64 {
	return safeDivide(float64(cm.TruePositive), float64(cm.TruePositive+cm.FalseNegative))
}

func (cm *ConfusionMatrix) F1Score() float64 {
	p, r := cm.Precision(), cm.Recall()
	return safeDivide(2*p*r, p+r)
}

func (cm *ConfusionMatrix) FormatMetrics() string {
	result := fmt.Sprintf("Accuracy: %.4f\n", cm.Accuracy())
	result += fmt.Sprintf("Precision: %.4f, Recall: %.4f, F1: %.4f\n",
		cm.Precision(), cm.Recall(), cm.F1Score())
	result += fmt.Sprintf("TP=%d FP=%d TN=%d FN=%d\n",
		cm.TruePositive, cm.FalsePositive, cm.TrueNegative, cm.FalseNegative)
	return result
}

func safeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0.0
	}
	result := numerator / denominator
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0.0
	}
	return result
}
