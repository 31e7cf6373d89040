package mesh

import (
	"math"

	"github.com/notargets/gossm/types"
)

// AverageCorrespondingDistance is the mean distance between vertices with the
// same index. Both meshes must share the point domain.
func AverageCorrespondingDistance(a, b *TriangleMesh) (float64, error) {
	if a.NumVertices() != b.NumVertices() {
		return 0, types.NewDomainMismatch("vertex count", a.NumVertices(), b.NumVertices())
	}
	if a.NumVertices() == 0 {
		return 0, nil
	}
	var sum float64
	for i, p := range a.Vertices {
		sum += p.Distance(b.Vertices[i])
	}
	return sum / float64(a.NumVertices()), nil
}

// AverageDistance is the symmetric mean closest-vertex distance. It does not
// require correspondence.
func AverageDistance(a, b *TriangleMesh) float64 {
	da, na := closestSum(a, b)
	db, nb := closestSum(b, a)
	if na+nb == 0 {
		return 0
	}
	return (da + db) / float64(na+nb)
}

func HausdorffDistance(a, b *TriangleMesh) float64 {
	return math.Max(closestMax(a, b), closestMax(b, a))
}

func closestSum(from, to *TriangleMesh) (sum float64, n int) {
	for _, p := range from.Vertices {
		sum += math.Sqrt(closest2(p, to))
	}
	return sum, len(from.Vertices)
}

func closestMax(from, to *TriangleMesh) (max float64) {
	for _, p := range from.Vertices {
		max = math.Max(max, math.Sqrt(closest2(p, to)))
	}
	return
}

func closest2(p [3]float64, to *TriangleMesh) (best float64) {
	best = math.Inf(1)
	for _, q := range to.Vertices {
		dx, dy, dz := p[0]-q[0], p[1]-q[1], p[2]-q[2]
		if d := dx*dx + dy*dy + dz*dz; d < best {
			best = d
		}
	}
	return
}
