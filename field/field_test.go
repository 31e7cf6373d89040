package field

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gossm/geometry"
	"github.com/notargets/gossm/mesh"
	"github.com/notargets/gossm/types"
)

func TestDeformationField(t *testing.T) {
	ref := mesh.NewUVSphere("ref", 1, 4, 6)
	{ // Construction checks the domain size
		_, err := New(ref, make([]geometry.Vector3, 3))
		assert.True(t, errors.Is(err, types.ErrDomainMismatch))
		_, err = FromFlat(ref, make([]float64, 5))
		assert.True(t, errors.Is(err, types.ErrDomainMismatch))
	}
	{ // Flatten and FromFlat are inverse, point-major
		f := Constant(ref, geometry.Vector3{1, 2, 3})
		flat := f.Flatten()
		assert.Equal(t, []float64{1, 2, 3, 1, 2, 3}, flat[:6])
		g, err := FromFlat(ref, flat)
		require.NoError(t, err)
		assert.Equal(t, f.Vectors, g.Vectors)
		assert.Equal(t, 3*ref.NumVertices(), g.Dim())
	}
	{ // FromMeshes and Warp round trip; the domain is shared, not copied
		target := ref.ApplyRigid(geometry.NewRotation(geometry.RotationXYZ(0.1, 0.2, 0.3), geometry.Point3{}))
		f, err := FromMeshes(ref, target)
		require.NoError(t, err)
		assert.True(t, f.Domain == ref)
		w := f.Warp("warped")
		for i := range w.Vertices {
			assert.InDelta(t, 0., w.Vertices[i].Distance(target.Vertices[i]), 1e-14)
		}
		_, err = FromMeshes(ref, mesh.NewUVSphere("other", 1, 3, 6))
		assert.True(t, errors.Is(err, types.ErrDomainMismatch))
	}
	{ // ApplyRigid moves the deformed shape, not the displacement vectors
		f := Constant(ref, geometry.Vector3{1, 0, 0})
		back := f.ApplyRigid(geometry.NewTranslation(geometry.Vector3{-1, 0, 0}))
		for _, v := range back.Vectors {
			assert.InDelta(t, 0., v.Norm(), 1e-15)
		}
		rot := geometry.NewRotation(geometry.RotationXYZ(0, 0, math.Pi/3), geometry.Point3{})
		g := Zero(ref).ApplyRigid(rot)
		w := g.Warp("rotated")
		for i, p := range ref.Vertices {
			assert.InDelta(t, 0., w.Vertices[i].Distance(rot.Apply(p)), 1e-14)
		}
	}
	{ // Arithmetic and rebasing
		a := Constant(ref, geometry.Vector3{1, 1, 0})
		b := Constant(ref, geometry.Vector3{0, 1, 1})
		assert.Equal(t, geometry.Vector3{1, 2, 1}, a.Add(b).Vectors[0])
		assert.Equal(t, geometry.Vector3{1, 0, -1}, a.Sub(b).Vectors[0])
		assert.Equal(t, geometry.Vector3{2, 2, 0}, a.Scale(2).Vectors[3])
		assert.Panics(t, func() { a.Add(Zero(mesh.NewUVSphere("o", 1, 3, 3))) })

		shifted := ref.ApplyRigid(geometry.NewTranslation(geometry.Vector3{0, 0, 1}))
		r := a.Rebase(shifted)
		assert.True(t, r.Domain == shifted)
		assert.InDelta(t, 0., r.Warp("x").Vertices[2].Distance(a.Warp("y").Vertices[2]), 1e-15)
		assert.NoError(t, r.DefinedOn(ref))
	}
	{ // Metrics
		a := Constant(ref, geometry.Vector3{3, 4, 0})
		z := Zero(ref)
		assert.InDelta(t, 5., MeanDistance(a, z), 1e-14)
		assert.InDelta(t, 25., MeanSquaredError(a, z), 1e-13)
	}
}

func TestInnerProducts(t *testing.T) {
	ref := mesh.NewUVSphere("ref", 1, 6, 8)
	aw, err := NewAreaWeighted(ref, false)
	require.NoError(t, err)
	lumped, err := NewAreaWeighted(ref, true)
	require.NoError(t, err)
	var (
		c    = Constant(ref, geometry.Vector3{1, 0, 0}).Flatten()
		u    = make([]float64, len(c))
		wu   = make([]float64, len(c))
		euc  Euclidean
		prod = []InnerProduct{euc, aw, lumped}
	)
	for i := range u {
		u[i] = math.Sin(float64(i))
	}
	for _, p := range prod {
		{ // Constant fields keep their per-point magnitude: ||c||² = n
			assert.InDelta(t, float64(ref.NumVertices()), p.Dot(c, c), 1e-10)
		}
		{ // Dot agrees with Apply and is symmetric
			p.Apply(wu, u)
			assert.InDelta(t, euc.Dot(c, wu), p.Dot(c, u), 1e-12)
			assert.InDelta(t, p.Dot(u, c), p.Dot(c, u), 1e-12)
			assert.True(t, p.Dot(u, u) > 0)
			assert.InDelta(t, math.Sqrt(p.Dot(u, u)), Norm(p, u), 1e-14)
		}
	}
	{ // Each coordinate is weighted by the same scaled mass matrix
		aw.Apply(wu, u)
		n := ref.NumVertices()
		for i := 0; i < n; i++ {
			for a := 0; a < 3; a++ {
				var want float64
				for j := 0; j < n; j++ {
					want += aw.normalizingFactor * aw.M.At(i, j) * u[3*j+a]
				}
				assert.InDelta(t, want, wu[3*i+a], 1e-12)
			}
		}
	}
	_, err = NewAreaWeighted(&mesh.TriangleMesh{Vertices: ref.Vertices}, true)
	assert.Error(t, err)
}
