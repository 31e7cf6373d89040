package mesh

import (
	"fmt"
	"math"

	"github.com/notargets/gossm/geometry"
)

// NewUVSphere builds a closed triangulated sphere with nLat latitude bands and
// nLon longitude segments. It is the synthetic reference used by the examples
// and tests.
func NewUVSphere(name string, radius float64, nLat, nLon int) *TriangleMesh {
	if nLat < 2 || nLon < 3 {
		panic(fmt.Errorf("sphere needs nLat >= 2 and nLon >= 3, got %d, %d", nLat, nLon))
	}
	var (
		vertices  = []geometry.Point3{{0, 0, radius}}
		triangles [][3]int
	)
	for i := 1; i < nLat; i++ {
		theta := math.Pi * float64(i) / float64(nLat)
		for j := 0; j < nLon; j++ {
			phi := 2 * math.Pi * float64(j) / float64(nLon)
			vertices = append(vertices, geometry.Point3{
				radius * math.Sin(theta) * math.Cos(phi),
				radius * math.Sin(theta) * math.Sin(phi),
				radius * math.Cos(theta),
			})
		}
	}
	south := len(vertices)
	vertices = append(vertices, geometry.Point3{0, 0, -radius})
	ring := func(i, j int) int { return 1 + (i-1)*nLon + (j % nLon) }
	for j := 0; j < nLon; j++ {
		triangles = append(triangles, [3]int{0, ring(1, j), ring(1, j+1)})
	}
	for i := 1; i < nLat-1; i++ {
		for j := 0; j < nLon; j++ {
			a, b := ring(i, j), ring(i, j+1)
			c, d := ring(i+1, j), ring(i+1, j+1)
			triangles = append(triangles, [3]int{a, c, d}, [3]int{a, d, b})
		}
	}
	for j := 0; j < nLon; j++ {
		triangles = append(triangles, [3]int{south, ring(nLat-1, j+1), ring(nLat-1, j)})
	}
	return &TriangleMesh{Name: name, Vertices: vertices, Triangles: triangles}
}
