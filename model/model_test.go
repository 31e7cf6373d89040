package model

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gossm/data"
	"github.com/notargets/gossm/field"
	"github.com/notargets/gossm/geometry"
	"github.com/notargets/gossm/mesh"
	"github.com/notargets/gossm/types"
)

// randomCollection draws n fields from a handful of smooth modes plus noise.
func randomCollection(t *testing.T, ref *mesh.TriangleMesh, n int, seed int64) *data.DataCollection {
	rng := rand.New(rand.NewSource(seed))
	items := make([]data.DataItem, n)
	for i := range items {
		a, b, c := rng.NormFloat64(), rng.NormFloat64(), 0.3*rng.NormFloat64()
		f := field.Zero(ref)
		for j, p := range ref.Vertices {
			f.Vectors[j] = geometry.Vector3{
				a*p[0] + 0.01*rng.NormFloat64(),
				b*p[1]*p[1] + 0.01*rng.NormFloat64(),
				c + 0.01*rng.NormFloat64(),
			}
		}
		items[i] = data.DataItem{ID: string(rune('a' + i)), Transformation: f}
	}
	dc, err := data.NewDataCollection(ref, items)
	require.NoError(t, err)
	return dc
}

func TestBuildPCA(t *testing.T) {
	ref := mesh.NewUVSphere("ref", 1, 4, 6)
	dc := randomCollection(t, ref, 8, 1)
	area, err := field.NewAreaWeighted(ref, false)
	require.NoError(t, err)
	for _, product := range []field.InnerProduct{field.Euclidean{}, area} {
		m, err := BuildPCA(dc, PCAConfig{Product: product})
		require.NoError(t, err)
		assert.LessOrEqual(t, m.Rank(), dc.Size()-1)
		assert.Equal(t, dc.Size()-1, m.Rank())
		v := m.Variances()
		for k := 1; k < len(v); k++ {
			assert.GreaterOrEqual(t, v[k-1], v[k])
		}
		require.NoError(t, m.CheckOrthonormal(1e-8))

		// Training items lie in the model span
		for _, item := range dc.Items {
			p, err := m.Project(item.Transformation)
			require.NoError(t, err)
			assert.Less(t, field.MeanDistance(p, item.Transformation), 1e-8)
		}
		explained := m.VarianceExplained()
		assert.InDelta(t, 1., explained[len(explained)-1], 1e-12)
	}
	{
		m, err := BuildPCA(dc, PCAConfig{MaxRank: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, m.Rank())
	}
	{ // Debug logging reports the singular value range of the centered data
		core, logs := observer.New(zap.DebugLevel)
		_, err := BuildPCA(dc, PCAConfig{Logger: zap.New(core)})
		require.NoError(t, err)
		entries := logs.FilterMessage("pca factor conditioning").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Greater(t, fields["max_singular"].(float64), 0.)
		assert.GreaterOrEqual(t, fields["max_singular"].(float64), fields["min_singular"].(float64))
	}
	{
		_, err := BuildPCA(dc.Subset([]int{0}), PCAConfig{})
		assert.True(t, errors.Is(err, types.ErrInsufficientData))
		var ide *types.InsufficientDataError
		require.True(t, errors.As(err, &ide))
		assert.Equal(t, 2, ide.Required)
	}
	{ // Identical items carry no variance
		same := data.DataItem{ID: "s", Transformation: field.Constant(ref, geometry.Vector3{1, 0, 0})}
		flat, err := data.NewDataCollection(ref, []data.DataItem{same, same, same})
		require.NoError(t, err)
		m, err := BuildPCA(flat, PCAConfig{})
		require.NoError(t, err)
		assert.Equal(t, 0, m.Rank())
	}
}

func TestRoundTripProjection(t *testing.T) {
	ref := mesh.NewUVSphere("ref", 1, 4, 6)
	m, err := BuildPCA(randomCollection(t, ref, 6, 2), PCAConfig{})
	require.NoError(t, err)
	alpha := []float64{0.5, -1.2, 2, 0.1, -0.3}
	require.Len(t, alpha, m.Rank())
	f, err := m.Instance(alpha)
	require.NoError(t, err)
	got, err := m.Coefficients(f)
	require.NoError(t, err)
	assert.InDeltaSlice(t, alpha, got, 1e-8)
	back, err := m.Project(f)
	require.NoError(t, err)
	assert.Less(t, field.MeanDistance(f, back), 1e-10)

	shape := f.Warp("instance")
	rec, err := m.Reconstruct(shape)
	require.NoError(t, err)
	d, err := mesh.AverageCorrespondingDistance(shape, rec)
	require.NoError(t, err)
	assert.Less(t, d, 1e-10)

	_, err = m.Instance([]float64{1})
	assert.True(t, errors.Is(err, types.ErrDomainMismatch))
	_, err = m.Coefficients(field.Zero(mesh.NewUVSphere("other", 1, 3, 6)))
	assert.True(t, errors.Is(err, types.ErrDomainMismatch))

	s1 := m.Sample(rand.New(rand.NewSource(9)))
	s2 := m.Sample(rand.New(rand.NewSource(9)))
	assert.Equal(t, s1.Vectors, s2.Vectors)
	assert.Equal(t, 2, m.Truncate(2).Rank())
	assert.Equal(t, m.Rank(), m.Truncate(100).Rank())
}

func TestCovariancePath(t *testing.T) {
	tri, err := mesh.NewTriangleMesh("tri",
		[]geometry.Point3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [][3]int{{0, 1, 2}})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(4))
	var items []data.DataItem
	for i := 0; i < 15; i++ {
		f := field.Zero(tri)
		for j := range f.Vectors {
			f.Vectors[j] = geometry.Vector3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		}
		items = append(items, data.DataItem{ID: "x", Transformation: f})
	}
	dc, err := data.NewDataCollection(tri, items)
	require.NoError(t, err)
	cov, err := BuildPCA(dc, PCAConfig{})
	require.NoError(t, err)
	assert.Equal(t, 9, cov.Rank())
	require.NoError(t, cov.CheckOrthonormal(1e-10))

	// Gram and covariance factorizations agree on the variances
	gram, err := FromFactor(tri, cov.Mean, cov.Factor(), field.Euclidean{}, DefaultRelativeTolerance)
	require.NoError(t, err)
	assert.InDeltaSlice(t, cov.Variances(), gram.Variances(), 1e-9)
}

func TestFromFactor(t *testing.T) {
	ref := mesh.NewUVSphere("ref", 1, 3, 4)
	d := 3 * ref.NumVertices()
	_, err := FromFactor(ref, field.Zero(ref), mat.NewDense(d+3, 2, nil), nil, 0)
	assert.True(t, errors.Is(err, types.ErrDomainMismatch))

	// Two equal columns collapse to a single direction
	col := make([]float64, d)
	for i := range col {
		col[i] = float64(i % 5)
	}
	B := mat.NewDense(d, 2, nil)
	B.SetCol(0, col)
	B.SetCol(1, col)
	m, err := FromFactor(ref, field.Zero(ref), B, nil, DefaultRelativeTolerance)
	require.NoError(t, err)
	require.Equal(t, 1, m.Rank())
	var norm2 float64
	for _, c := range col {
		norm2 += c * c
	}
	assert.InDelta(t, 2*norm2, m.Basis[0].Variance, 1e-9)

	B.Set(4, 1, math.NaN())
	_, err = FromFactor(ref, field.Zero(ref), B, nil, DefaultRelativeTolerance)
	assert.True(t, errors.Is(err, types.ErrNotFinite))
}

func TestAugment(t *testing.T) {
	ref := mesh.NewUVSphere("ref", 1, 4, 6)
	pca, err := BuildPCA(randomCollection(t, ref, 5, 3), PCAConfig{})
	require.NoError(t, err)
	pca2, err := BuildPCA(randomCollection(t, ref, 4, 5), PCAConfig{})
	require.NoError(t, err)
	bias := &LowRankModel{Reference: ref, Mean: field.Zero(ref), Basis: pca2.Basis}

	aug, err := Augment(pca, bias)
	require.NoError(t, err)
	assert.LessOrEqual(t, aug.Rank(), pca.Rank()+bias.Rank())
	assert.Same(t, pca.Mean, aug.Mean)
	require.NoError(t, aug.CheckOrthonormal(1e-8))

	// Covariances add
	var want, got, part mat.Dense
	want.Mul(pca.Factor(), pca.Factor().T())
	part.Mul(bias.Factor(), bias.Factor().T())
	want.Add(&want, &part)
	got.Mul(aug.Factor(), aug.Factor().T())
	assert.True(t, mat.EqualApprox(&want, &got, 1e-8))

	other := mesh.NewUVSphere("other", 1, 3, 6)
	_, err = Augment(pca, &LowRankModel{Reference: other, Mean: field.Zero(other)})
	assert.True(t, errors.Is(err, types.ErrDomainMismatch))

	empty := &LowRankModel{Reference: ref, Mean: field.Zero(ref)}
	same, err := Augment(pca, empty)
	require.NoError(t, err)
	assert.InDeltaSlice(t, pca.Variances(), same.Variances(), 1e-9)
}

func TestSaveLoad(t *testing.T) {
	ref := mesh.NewUVSphere("ref", 2, 4, 6)
	area, err := field.NewAreaWeighted(ref, true)
	require.NoError(t, err)
	m, err := BuildPCA(randomCollection(t, ref, 6, 7), PCAConfig{Product: area})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.ssm")
	require.NoError(t, Save(path, m))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ref", loaded.Reference.Name)
	assert.True(t, loaded.Reference.SameTopology(m.Reference))
	assert.Equal(t, "area-lumped", field.ProductKind(loaded.Product))
	assert.InDeltaSlice(t, m.Variances(), loaded.Variances(), 1e-14)
	assert.Less(t, field.MeanDistance(m.Mean, loaded.Mean), 1e-14)
	for k := range m.Basis {
		assert.Less(t, field.MeanDistance(m.Basis[k].Eigenvector, loaded.Basis[k].Eigenvector), 1e-14)
	}
	require.NoError(t, loaded.CheckOrthonormal(1e-8))

	_, err = Load(filepath.Join(t.TempDir(), "missing.ssm"))
	assert.Error(t, err)
	assert.False(t, math.IsNaN(loaded.TotalVariance()))
}
