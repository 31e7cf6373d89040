package field

import "math"

// MeanDistance is the mean point-wise Euclidean distance between two fields
// on the same domain.
func MeanDistance(a, b *DeformationField) float64 {
	a.mustMatch(b)
	if a.Len() == 0 {
		return 0
	}
	var sum float64
	for i := range a.Vectors {
		sum += a.Vectors[i].Sub(b.Vectors[i]).Norm()
	}
	return sum / float64(a.Len())
}

// MeanSquaredError is the mean point-wise squared distance.
func MeanSquaredError(a, b *DeformationField) float64 {
	a.mustMatch(b)
	if a.Len() == 0 {
		return 0
	}
	var sum float64
	for i := range a.Vectors {
		sum += a.Vectors[i].Sub(b.Vectors[i]).Norm2()
	}
	return sum / float64(a.Len())
}

func Norm(p InnerProduct, u []float64) float64 {
	return math.Sqrt(math.Max(p.Dot(u, u), 0))
}
