package mesh

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gossm/geometry"
	"github.com/notargets/gossm/types"
)

func unitSquare() *TriangleMesh {
	m, err := NewTriangleMesh("square",
		[]geometry.Point3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		[][3]int{{0, 1, 2}, {0, 2, 3}})
	if err != nil {
		panic(err)
	}
	return m
}

func TestTriangleMesh(t *testing.T) {
	{ // Construction validates vertex indices
		_, err := NewTriangleMesh("bad", []geometry.Point3{{0, 0, 0}}, [][3]int{{0, 1, 2}})
		assert.Error(t, err)
	}
	{ // Areas
		sq := unitSquare()
		assert.InDeltaSlice(t, []float64{0.5, 0.5}, sq.TriangleAreas(), 1e-15)
		assert.InDelta(t, 1., sq.SurfaceArea(), 1e-15)
		assert.InDelta(t, math.Sqrt2, sq.BoundingBoxDiagonal(), 1e-15)
		p := sq.PointOnTriangle(0, 0.5, 0.5)
		assert.Equal(t, geometry.Point3{1, 0.5, 0}, p)
	}
	{ // Topology sharing and comparison
		sq := unitSquare()
		moved := sq.ApplyRigid(geometry.NewTranslation(geometry.Vector3{0, 0, 1}))
		assert.True(t, sq.SameTopology(moved))
		assert.Equal(t, geometry.Point3{1, 1, 1}, moved.Vertices[2])
		assert.Equal(t, geometry.Point3{1, 1, 0}, sq.Vertices[2])

		flipped := &TriangleMesh{Vertices: sq.Vertices, Triangles: [][3]int{{0, 2, 1}, {0, 2, 3}}}
		assert.False(t, sq.SameTopology(flipped))
		assert.False(t, sq.SameTopology(nil))
		assert.Panics(t, func() { sq.WithVertices("short", sq.Vertices[:2]) })
	}
	{ // Sphere approximates 4πr² from below and is closed
		s := NewUVSphere("s", 2, 16, 24)
		assert.Equal(t, 2+15*24, s.NumVertices())
		assert.Equal(t, 2*24+2*14*24, s.NumTriangles())
		area := s.SurfaceArea()
		assert.True(t, area < 16*math.Pi)
		assert.InDelta(t, 16*math.Pi, area, 0.05*16*math.Pi)
	}
}

func TestMassMatrix(t *testing.T) {
	sq := unitSquare()
	for _, lumped := range []bool{false, true} {
		M, err := MassMatrix(sq, lumped)
		require.NoError(t, err)
		var total float64
		M.DoNonZero(func(i, j int, v float64) {
			total += v
			assert.InDelta(t, v, M.At(j, i), 1e-15)
		})
		assert.InDelta(t, 1., total, 1e-14)
		if lumped {
			assert.Equal(t, 0., M.At(0, 1))
			assert.InDelta(t, 1./3, M.At(0, 0), 1e-15)
		} else {
			assert.InDelta(t, 1./24, M.At(1, 2), 1e-15)
			assert.InDelta(t, 1./12, M.At(0, 2), 1e-15)
			assert.InDelta(t, 1./6, M.At(0, 0), 1e-15)
		}
	}
	_, err := MassMatrix(&TriangleMesh{Vertices: []geometry.Point3{{0, 0, 0}}}, true)
	assert.Error(t, err)
}

func TestDistances(t *testing.T) {
	sq := unitSquare()
	up := sq.ApplyRigid(geometry.NewTranslation(geometry.Vector3{0, 0, 2}))
	d, err := AverageCorrespondingDistance(sq, up)
	require.NoError(t, err)
	assert.InDelta(t, 2., d, 1e-15)
	assert.InDelta(t, 2., AverageDistance(sq, up), 1e-15)
	assert.InDelta(t, 2., HausdorffDistance(sq, up), 1e-15)
	assert.Equal(t, 0., AverageDistance(sq, sq))

	_, err = AverageCorrespondingDistance(sq, NewUVSphere("s", 1, 3, 3))
	assert.True(t, errors.Is(err, types.ErrDomainMismatch))
}

func TestReadWriteMesh(t *testing.T) {
	dir := t.TempDir()
	sphere := NewUVSphere("ball", 1.5, 5, 7)
	for _, ext := range []string{".obj", ".off"} {
		path := filepath.Join(dir, "ball"+ext)
		require.NoError(t, WriteMeshFile(path, sphere))
		back, err := ReadMeshFile(path)
		require.NoError(t, err)
		assert.Equal(t, "ball", back.Name)
		assert.Equal(t, sphere.Vertices, back.Vertices)
		assert.True(t, sphere.SameTopology(back))
	}
	{ // Polygons are fan triangulated, negative OBJ indices are relative
		obj := `# quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1/1/1 2/2/2 3/3/3 4/4/4
f -4 -2 -1
`
		m, err := ReadOBJ("quad", strings.NewReader(obj))
		require.NoError(t, err)
		assert.Equal(t, [][3]int{{0, 1, 2}, {0, 2, 3}, {0, 2, 3}}, m.Triangles)
	}
	{ // OFF counts may share the header line
		off := "OFF 3 1 0\n0 0 0\n1 0 0\n0 1 0\n3 0 1 2\n"
		m, err := ReadOFF("tri", strings.NewReader(off))
		require.NoError(t, err)
		assert.Equal(t, 3, m.NumVertices())
	}
	{ // Malformed and missing files are reported
		_, err := ReadOBJ("bad", strings.NewReader("v 0 0\n"))
		assert.Error(t, err)
		_, err = ReadOBJ("bad", strings.NewReader("v 0 0 0\nf 1 0 1\n"))
		assert.Error(t, err)
		_, err = ReadOFF("bad", strings.NewReader("OFF\n4 1 0\n0 0 0\n"))
		assert.Error(t, err)
		_, err = ReadOFF("bad", strings.NewReader("PLY\n"))
		assert.Error(t, err)
		_, err = ReadMeshFile(filepath.Join(dir, "missing.obj"))
		assert.True(t, errors.Is(err, os.ErrNotExist))
		_, err = ReadMeshFile(filepath.Join(dir, "x.stl"))
		assert.Error(t, err)
		assert.Error(t, WriteMeshFile(filepath.Join(dir, "x.stl"), sphere))
	}
}
