package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gossm/types"
)

// RigidAlign returns the least squares rotation and translation about center
// that maps moving onto fixed (paired by index).
func RigidAlign(moving, fixed []Point3, center Point3) (RigidTransform, error) {
	return align(moving, fixed, center, false)
}

// SimilarityAlign additionally solves for the optimal uniform scale.
func SimilarityAlign(moving, fixed []Point3, center Point3) (RigidTransform, error) {
	return align(moving, fixed, center, true)
}

func RigidAlignLandmarks(moving, fixed Landmarks, center Point3) (RigidTransform, error) {
	mp, fp, err := moving.Pair(fixed)
	if err != nil {
		return Identity(), err
	}
	return RigidAlign(mp, fp, center)
}

func align(moving, fixed []Point3, center Point3, withScale bool) (t RigidTransform, err error) {
	t = Identity()
	if len(moving) != len(fixed) {
		return t, types.NewDomainMismatch("paired points", len(fixed), len(moving))
	}
	if len(moving) == 0 {
		return t, types.NewInsufficientData("paired points", 1, 0)
	}
	var (
		cm = Centroid(moving)
		cf = Centroid(fixed)
		H  = mat.NewDense(3, 3, nil)
		ss float64
	)
	for i := range moving {
		a := moving[i].Sub(cm)
		b := fixed[i].Sub(cf)
		ss += a.Norm2()
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				H.Set(r, c, H.At(r, c)+a[r]*b[c])
			}
		}
	}
	var svd mat.SVD
	if ok := svd.Factorize(H, mat.SVDFull); !ok {
		return t, fmt.Errorf("rigid alignment: SVD of cross covariance failed")
	}
	var U, V mat.Dense
	svd.UTo(&U)
	svd.VTo(&V)
	sigma := svd.Values(nil)

	// R = V D Uᵀ, D flips the weakest axis when the fit would be a reflection
	var VUt mat.Dense
	VUt.Mul(&V, U.T())
	d := 1.
	if mat.Det(&VUt) < 0 {
		d = -1
	}
	D := mat.NewDiagDense(3, []float64{1, 1, d})
	var VD, R mat.Dense
	VD.Mul(&V, D)
	R.Mul(&VD, U.T())

	scale := 1.
	if withScale && ss > 0 {
		scale = (sigma[0] + sigma[1] + d*sigma[2]) / ss
	}
	var rot Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			rot[r][c] = R.At(r, c)
		}
	}
	// fixed centroid = s R (cm - center) + center + translation
	moved := rot.MulVec(cm.Sub(center)).Scale(scale)
	t = RigidTransform{
		Rotation:    rot,
		Center:      center,
		Scale:       scale,
		Translation: cf.Sub(center).Sub(moved),
	}
	return t, nil
}
