package gp

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/notargets/gossm/geometry"
	"github.com/notargets/gossm/mesh"
	"github.com/notargets/gossm/types"
)

// Sampler picks the points at which the kernel Gram matrix is evaluated.
// Random samplers draw only from rng.
type Sampler interface {
	Sample(domain *mesh.TriangleMesh, rng *rand.Rand) ([]geometry.Point3, error)
}

// VertexSampler uses every vertex, in order. It needs no random source.
type VertexSampler struct{}

func (VertexSampler) Sample(domain *mesh.TriangleMesh, _ *rand.Rand) ([]geometry.Point3, error) {
	return append([]geometry.Point3(nil), domain.Vertices...), nil
}

// RandomVertexSampler draws N distinct vertices.
type RandomVertexSampler struct {
	N int
}

func (s RandomVertexSampler) Sample(domain *mesh.TriangleMesh, rng *rand.Rand) (points []geometry.Point3, err error) {
	if rng == nil {
		return nil, fmt.Errorf("random vertex sampler needs a random source")
	}
	n := s.N
	switch {
	case n < 0:
		n = 0
	case n > domain.NumVertices():
		n = domain.NumVertices()
	}
	for _, idx := range rng.Perm(domain.NumVertices())[:n] {
		points = append(points, domain.Vertices[idx])
	}
	return
}

// RandomSurfaceSampler draws N points uniformly with respect to surface area.
type RandomSurfaceSampler struct {
	N int
}

func (s RandomSurfaceSampler) Sample(domain *mesh.TriangleMesh, rng *rand.Rand) (points []geometry.Point3, err error) {
	if rng == nil {
		return nil, fmt.Errorf("random surface sampler needs a random source")
	}
	if domain.NumTriangles() == 0 {
		return nil, types.NewInsufficientData("surface triangles", 1, 0)
	}
	cumulative := domain.TriangleAreas()
	for i := 1; i < len(cumulative); i++ {
		cumulative[i] += cumulative[i-1]
	}
	total := cumulative[len(cumulative)-1]
	for i := 0; i < s.N; i++ {
		tri := sort.SearchFloat64s(cumulative, rng.Float64()*total)
		if tri == len(cumulative) {
			tri--
		}
		// The square root makes the barycentric density uniform over the triangle
		r1, r2 := math.Sqrt(rng.Float64()), rng.Float64()
		points = append(points, domain.PointOnTriangle(tri, r1*(1-r2), r1*r2))
	}
	return
}

func NewSampler(kind types.SamplerType, n int) (Sampler, error) {
	switch kind {
	case types.AllVertices:
		return VertexSampler{}, nil
	case types.RandomVertices:
		if n < 1 {
			return nil, fmt.Errorf("random vertex sampler needs a positive count, got %d", n)
		}
		return RandomVertexSampler{N: n}, nil
	case types.RandomSurface:
		if n < 1 {
			return nil, fmt.Errorf("random surface sampler needs a positive count, got %d", n)
		}
		return RandomSurfaceSampler{N: n}, nil
	}
	return nil, fmt.Errorf("unsupported sampler %v", kind)
}
