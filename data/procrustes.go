package data

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/notargets/gossm/field"
	"github.com/notargets/gossm/geometry"
	"github.com/notargets/gossm/types"
)

type AlignmentState uint8

const (
	Aligning AlignmentState = iota
	Converged
	IterationLimitReached
)

func (s AlignmentState) String() string {
	switch s {
	case Aligning:
		return "Aligning"
	case Converged:
		return "Converged"
	case IterationLimitReached:
		return "IterationLimitReached"
	}
	return fmt.Sprintf("AlignmentState(%d)", uint8(s))
}

// ProcrustesConfig holds the knobs of generalized Procrustes alignment.
type ProcrustesConfig struct {
	MaxIterations int     // Hard cap on alignment sweeps
	HaltDistance  float64 // Stop once the mean moves less than this
	WithScaling   bool    // Solve for a uniform scale per item
	Logger        *zap.Logger
}

func DefaultProcrustesConfig() ProcrustesConfig {
	return ProcrustesConfig{
		MaxIterations: 3,
		HaltDistance:  1e-5,
	}
}

func (c ProcrustesConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("procrustes: MaxIterations must be positive, got %d", c.MaxIterations)
	}
	if c.HaltDistance < 0 || math.IsNaN(c.HaltDistance) {
		return fmt.Errorf("procrustes: invalid HaltDistance %v", c.HaltDistance)
	}
	return nil
}

// ProcrustesResult is the terminal state of an alignment run.
type ProcrustesResult struct {
	// Collection has the final mean as its reference, items re-expressed
	// over it
	Collection *DataCollection
	State      AlignmentState
	Iterations int
	// Transforms[i] maps item i's original shape onto its aligned shape
	Transforms []geometry.RigidTransform
	// DistanceHistory[j] is how far the mean moved in sweep j
	DistanceHistory []float64
}

// Err is non nil when the iteration cap was hit before the mean settled.
// The collection is still usable in that case.
func (r *ProcrustesResult) Err() error {
	if r.State != IterationLimitReached {
		return nil
	}
	last := math.NaN()
	if n := len(r.DistanceHistory); n > 0 {
		last = r.DistanceHistory[n-1]
	}
	return fmt.Errorf("%w: mean still moving %g after %d iterations",
		types.ErrNonConvergence, last, r.Iterations)
}

// ProcrustesStep aligns every shape onto reference and returns the aligned
// shapes, their point-wise mean and the mean distance the reference moved.
// The shapes are not modified.
func ProcrustesStep(shapes [][]geometry.Point3, reference []geometry.Point3, withScaling bool) (
	aligned [][]geometry.Point3, mean []geometry.Point3, moved float64,
	transforms []geometry.RigidTransform, err error) {
	if len(shapes) == 0 {
		err = types.NewInsufficientData("procrustes shapes", 1, 0)
		return
	}
	var (
		center = geometry.Centroid(reference)
		align  = geometry.RigidAlign
		np     = len(reference)
	)
	if withScaling {
		align = geometry.SimilarityAlign
	}
	aligned = make([][]geometry.Point3, len(shapes))
	transforms = make([]geometry.RigidTransform, len(shapes))
	mean = make([]geometry.Point3, np)
	for i, shape := range shapes {
		if transforms[i], err = align(shape, reference, center); err != nil {
			err = fmt.Errorf("procrustes item %d: %w", i, err)
			return
		}
		aligned[i] = transforms[i].ApplyAll(shape)
		for j, p := range aligned[i] {
			mean[j] = mean[j].Add(p.ToVector())
		}
	}
	scale := 1. / float64(len(shapes))
	for j := range mean {
		mean[j] = mean[j].ToVector().Scale(scale).ToPoint()
	}
	if withScaling {
		// Similarity fits shrink the mean every sweep without this
		normalizeSize(mean, centroidSize(reference))
	}
	for j := range mean {
		moved += mean[j].Distance(reference[j])
	}
	if np > 0 {
		moved /= float64(np)
	}
	return
}

// AlignCollection runs generalized Procrustes alignment. Each sweep aligns
// the original item shapes onto the working reference and replaces the
// reference with the mean of the aligned shapes. The run stops when the mean
// moves less than HaltDistance or after MaxIterations sweeps.
func AlignCollection(dc *DataCollection, cfg ProcrustesConfig) (*ProcrustesResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dc.Size() == 0 {
		return nil, types.NewInsufficientData("procrustes collection", 1, 0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		shapes     = dc.Shapes()
		reference  = dc.Reference.Vertices
		res        = &ProcrustesResult{State: Aligning}
		aligned    [][]geometry.Point3
		mean       []geometry.Point3
		moved      float64
		transforms []geometry.RigidTransform
		err        error
	)
	for res.State == Aligning {
		aligned, mean, moved, transforms, err = ProcrustesStep(shapes, reference, cfg.WithScaling)
		if err != nil {
			return nil, err
		}
		res.Iterations++
		res.DistanceHistory = append(res.DistanceHistory, moved)
		logger.Debug("procrustes sweep",
			zap.Int("iteration", res.Iterations), zap.Float64("moved", moved))
		reference = mean
		switch {
		case moved < cfg.HaltDistance:
			res.State = Converged
		case res.Iterations >= cfg.MaxIterations:
			res.State = IterationLimitReached
		}
	}
	res.Transforms = transforms

	meanMesh := dc.Reference.WithVertices("mean", reference)
	items := make([]DataItem, dc.Size())
	for i, item := range dc.Items {
		vectors := make([]geometry.Vector3, len(reference))
		for j := range vectors {
			vectors[j] = aligned[i][j].Sub(reference[j])
		}
		items[i] = DataItem{ID: item.ID,
			Transformation: &field.DeformationField{Domain: meanMesh, Vectors: vectors}}
	}
	res.Collection = &DataCollection{Reference: meanMesh, Items: items}

	logger.Info("procrustes alignment finished",
		zap.Stringer("state", res.State),
		zap.Int("iterations", res.Iterations),
		zap.Int("items", dc.Size()),
		zap.Float64("distance_before", dc.TotalDistanceToReference()),
		zap.Float64("distance_after", res.Collection.TotalDistanceToReference()))
	return res, nil
}

func centroidSize(points []geometry.Point3) (size float64) {
	c := geometry.Centroid(points)
	for _, p := range points {
		size += p.Distance2(c)
	}
	return math.Sqrt(size)
}

func normalizeSize(points []geometry.Point3, target float64) {
	size := centroidSize(points)
	if size == 0 || target == 0 {
		return
	}
	c := geometry.Centroid(points)
	s := target / size
	for j, p := range points {
		points[j] = c.Add(p.Sub(c).Scale(s))
	}
}
