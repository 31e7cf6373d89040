package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gossm/types"
)

func cloud() []Point3 {
	return []Point3{
		{0, 0, 0}, {1, 0, 0}, {0, 2, 0}, {0, 0, 3}, {1, 1, 1}, {-1, 0.5, 2},
	}
}

func assertPointsNear(t *testing.T, a, b []Point3, tol float64) {
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.InDelta(t, 0., a[i].Distance(b[i]), tol, "point %d", i)
	}
}

func TestRigidTransform(t *testing.T) {
	{ // Identity leaves points unchanged; zero scale is treated as one
		p := Point3{1, 2, 3}
		assert.Equal(t, p, Identity().Apply(p))
		assert.Equal(t, p, RigidTransform{Rotation: Identity3()}.Apply(p))
	}
	{ // Rotation about a center keeps the center fixed
		c := Point3{1, 1, 0}
		tr := NewRotation(RotationXYZ(0, 0, math.Pi/2), c)
		q := tr.Apply(c)
		assert.InDelta(t, 0., q.Distance(c), 1e-14)
		q = tr.Apply(Point3{2, 1, 0})
		assert.InDelta(t, 0., q.Distance(Point3{1, 2, 0}), 1e-14)
	}
	{ // Compose and Inverse agree with sequential application
		a := RigidTransform{Rotation: RotationXYZ(0.3, -0.2, 0.9), Translation: Vector3{1, 2, 3}, Center: Point3{0.5, 0, 0}, Scale: 1}
		b := RigidTransform{Rotation: RotationXYZ(-0.1, 0.4, 0.2), Translation: Vector3{-1, 0, 2}, Center: Point3{0, 1, 0}, Scale: 1.5}
		for _, p := range cloud() {
			seq := a.Apply(b.Apply(p))
			assert.InDelta(t, 0., seq.Distance(a.Compose(b).Apply(p)), 1e-12)
			assert.InDelta(t, 0., p.Distance(b.Inverse().Apply(b.Apply(p))), 1e-12)
		}
		v := Vector3{1, 0, 0}
		assert.InDelta(t, 1.5, b.ApplyVector(v).Norm(), 1e-14)
	}
}

func TestRigidAlign(t *testing.T) {
	{ // Recovers a known rotation and translation exactly
		truth := RigidTransform{Rotation: RotationXYZ(0.4, 0.1, -0.7), Translation: Vector3{3, -2, 1}, Scale: 1}
		moving := cloud()
		fixed := truth.ApplyAll(moving)
		for _, center := range []Point3{{0, 0, 0}, Centroid(moving), {5, 5, 5}} {
			est, err := RigidAlign(moving, fixed, center)
			require.NoError(t, err)
			assertPointsNear(t, est.ApplyAll(moving), fixed, 1e-10)
			assert.InDelta(t, 1., est.Rotation.Det(), 1e-12)
			assert.Equal(t, 1., est.Scale)
		}
	}
	{ // Mirrored target never produces a reflection
		moving := cloud()
		fixed := make([]Point3, len(moving))
		for i, p := range moving {
			fixed[i] = Point3{-p[0], p[1], p[2]}
		}
		est, err := RigidAlign(moving, fixed, Point3{})
		require.NoError(t, err)
		assert.InDelta(t, 1., est.Rotation.Det(), 1e-12)
	}
	{ // Similarity alignment recovers a uniform scale
		truth := RigidTransform{Rotation: RotationXYZ(0.2, 0.3, 0.1), Translation: Vector3{1, 1, 1}, Scale: 2.5}
		moving := cloud()
		fixed := truth.ApplyAll(moving)
		est, err := SimilarityAlign(moving, fixed, Centroid(moving))
		require.NoError(t, err)
		assert.InDelta(t, 2.5, est.Scale, 1e-10)
		assertPointsNear(t, est.ApplyAll(moving), fixed, 1e-10)
	}
	{ // Input validation
		_, err := RigidAlign(cloud(), cloud()[:2], Point3{})
		assert.True(t, errors.Is(err, types.ErrDomainMismatch))
		_, err = RigidAlign(nil, nil, Point3{})
		assert.True(t, errors.Is(err, types.ErrInsufficientData))
	}
}

func TestLandmarks(t *testing.T) {
	moving := Landmarks{{"a", Point3{0, 0, 0}}, {"b", Point3{1, 0, 0}}, {"c", Point3{0, 1, 0}}, {"d", Point3{0, 0, 1}}}
	shift := NewTranslation(Vector3{0, 0, 5})
	fixed := moving.ApplyRigid(shift)
	// Reverse the order of the fixed set: pairing is by ID
	reversed := make(Landmarks, len(fixed))
	for i := range fixed {
		reversed[len(fixed)-1-i] = fixed[i]
	}
	est, err := RigidAlignLandmarks(moving, reversed, Point3{})
	require.NoError(t, err)
	assertPointsNear(t, moving.ApplyRigid(est).Points(), fixed.Points(), 1e-12)

	_, err = RigidAlignLandmarks(moving, Landmarks{{"x", Point3{}}}, Point3{})
	assert.Error(t, err)
}
