package utils

// PartitionMap splits the index range [0, MaxIndex) into ParallelDegree
// contiguous buckets whose sizes differ by at most one.
type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

// GetBucketDimension is the number of indices in bucket bn.
func (pm *PartitionMap) GetBucketDimension(bn int) int {
	kMin, kMax := pm.GetBucketRange(bn)
	return kMax - kMin
}

// Split1D returns the half open range of bucket bucketNum. The remainder of
// MaxIndex/ParallelDegree is spread one apiece over the leading buckets.
func (pm *PartitionMap) Split1D(bucketNum int) (bucket [2]int) {
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 {
		if bucketNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = bucketNum
			endAdd = 1
		}
	}
	bucket[0] = bucketNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}
