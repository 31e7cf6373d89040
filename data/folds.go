package data

import (
	"fmt"
	"math/rand"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/notargets/gossm/types"
	"github.com/notargets/gossm/utils"
)

// Fold is one training/testing split of a parent collection. The index
// bitmaps hold positions in the parent's item sequence.
type Fold struct {
	TrainingData    *DataCollection
	TestingData     *DataCollection
	TrainingIndices *roaring.Bitmap
	TestingIndices  *roaring.Bitmap
}

// CreateCrossValidationFolds splits the items into k contiguous groups whose
// sizes differ by at most one. Fold i tests on group i and trains on the rest.
func (dc *DataCollection) CreateCrossValidationFolds(k int) ([]Fold, error) {
	order := make([]int, dc.Size())
	for i := range order {
		order[i] = i
	}
	return dc.createFolds(order, k)
}

// CreateLeaveOneOutFolds is cross validation with one fold per item.
func (dc *DataCollection) CreateLeaveOneOutFolds() ([]Fold, error) {
	return dc.CreateCrossValidationFolds(dc.Size())
}

// CreateShuffledCrossValidationFolds permutes the item positions with rng
// before grouping. The same seed reproduces the same folds.
func (dc *DataCollection) CreateShuffledCrossValidationFolds(k int, rng *rand.Rand) ([]Fold, error) {
	if rng == nil {
		return nil, fmt.Errorf("shuffled folds need an explicit random source")
	}
	return dc.createFolds(rng.Perm(dc.Size()), k)
}

func (dc *DataCollection) createFolds(order []int, k int) (folds []Fold, err error) {
	n := len(order)
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: k = %d for %d items", types.ErrInvalidFoldCount, k, n)
	}
	pm := utils.NewPartitionMap(k, n)
	folds = make([]Fold, k)
	for i := 0; i < k; i++ {
		var (
			lo, hi  = pm.GetBucketRange(i)
			testing = roaring.New()
			train   = make([]int, 0, n-pm.GetBucketDimension(i))
			test    = order[lo:hi]
		)
		for _, idx := range test {
			testing.Add(uint32(idx))
		}
		for idx := 0; idx < n; idx++ {
			if !testing.Contains(uint32(idx)) {
				train = append(train, idx)
			}
		}
		training := roaring.New()
		for _, idx := range train {
			training.Add(uint32(idx))
		}
		folds[i] = Fold{
			TrainingData:    dc.Subset(train),
			TestingData:     dc.Subset(test),
			TrainingIndices: training,
			TestingIndices:  testing,
		}
	}
	return
}

// Validate checks the fold partitions a parent of the given size: training
// and testing positions are disjoint, in range, and together cover it.
func (f Fold) Validate(parentSize int) error {
	if roaring.And(f.TrainingIndices, f.TestingIndices).GetCardinality() != 0 {
		return fmt.Errorf("fold training and testing sets overlap")
	}
	union := roaring.Or(f.TrainingIndices, f.TestingIndices)
	if union.GetCardinality() != uint64(parentSize) {
		return fmt.Errorf("fold covers %d of %d items", union.GetCardinality(), parentSize)
	}
	if parentSize > 0 && union.Maximum() >= uint32(parentSize) {
		return fmt.Errorf("fold index %d out of range for %d items", union.Maximum(), parentSize)
	}
	if int(f.TrainingIndices.GetCardinality()) != f.TrainingData.Size() ||
		int(f.TestingIndices.GetCardinality()) != f.TestingData.Size() {
		return fmt.Errorf("fold index sets disagree with collection sizes")
	}
	return nil
}
