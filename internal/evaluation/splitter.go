package evaluation

import (
	"fmt"
	"math"
	"math/rand"
)

// TrainTestSplitter assigns row indices to train and test partitions. The
// same seed and row count always yield the same assignment.
type TrainTestSplitter struct {
	testSize   float64
	randomSeed int64
	shuffle    bool
}

func NewTrainTestSplitter(testSize float64, randomSeed int64, shuffle bool) *TrainTestSplitter {
	return &TrainTestSplitter{
		testSize:   testSize,
		randomSeed: randomSeed,
		shuffle:    shuffle,
	}
}

func (tts *TrainTestSplitter) validate(n int) error {
	if n == 0 {
		return fmt.Errorf("cannot split empty dataset")
	}
	if tts.testSize <= 0 || tts.testSize >= 1 {
		return fmt.Errorf("test size must be between 0 and 1")
	}
	return nil
}

// TestCount is ceil(n * testSize), ignoring float noise such as 10*0.3.
func (tts *TrainTestSplitter) TestCount(n int) int {
	return int(math.Ceil(float64(n)*tts.testSize - 1e-9))
}

func (tts *TrainTestSplitter) Split(n int) (train, test []int, err error) {
	if err := tts.validate(n); err != nil {
		return nil, nil, err
	}

	testCount := tts.TestCount(n)
	if testCount >= n {
		return nil, nil, fmt.Errorf("test size %.2f leaves no training rows out of %d", tts.testSize, n)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	if tts.shuffle {
		rng := rand.New(rand.NewSource(tts.randomSeed))
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	trainCount := n - testCount
	train = append([]int(nil), indices[:trainCount]...)
	test = append([]int(nil), indices[trainCount:]...)
	return train, test, nil
}

// StratifiedSplit keeps the class proportions of y in both partitions.
func (tts *TrainTestSplitter) StratifiedSplit(y []int) (train, test []int, err error) {
	if err := tts.validate(len(y)); err != nil {
		return nil, nil, err
	}

	classIndices := make(map[int][]int)
	var classes []int
	for i, label := range y {
		if _, ok := classIndices[label]; !ok {
			classes = append(classes, label)
		}
		classIndices[label] = append(classIndices[label], i)
	}

	rng := rand.New(rand.NewSource(tts.randomSeed))
	for _, class := range classes {
		indices := classIndices[class]
		if tts.shuffle {
			rng.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}

		testCount := tts.TestCount(len(indices))
		if testCount >= len(indices) {
			testCount = len(indices) - 1
		}

		trainCount := len(indices) - testCount
		train = append(train, indices[:trainCount]...)
		test = append(test, indices[trainCount:]...)
	}

	if len(train) == 0 || len(test) == 0 {
		return nil, nil, fmt.Errorf("stratified split of %d rows produced an empty partition", len(y))
	}

	if tts.shuffle {
		rng.Shuffle(len(train), func(i, j int) {
			train[i], train[j] = train[j], train[i]
		})
		rng.Shuffle(len(test), func(i, j int) {
			test[i], test[j] = test[j], test[i]
		})
	}

	return train, test, nil
}
