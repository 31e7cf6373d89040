package data

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gossm/field"
	"github.com/notargets/gossm/geometry"
	"github.com/notargets/gossm/mesh"
	"github.com/notargets/gossm/types"
)

// DataItem is one subject: a named deformation of the collection reference.
type DataItem struct {
	ID             string
	Transformation *field.DeformationField
}

// Shape is the subject mesh, reference displaced by the item's field.
func (d DataItem) Shape() *mesh.TriangleMesh { return d.Transformation.Warp(d.ID) }

// DataCollection owns its item sequence. The reference mesh is shared read
// only with every collection derived from this one.
type DataCollection struct {
	Reference *mesh.TriangleMesh
	Items     []DataItem
}

// ItemFailure reports an input that could not be turned into a DataItem.
type ItemFailure struct {
	ID    string
	Index int
	Err   error
}

func (f ItemFailure) Error() string { return fmt.Sprintf("item %d (%q): %v", f.Index, f.ID, f.Err) }

func (f ItemFailure) Unwrap() error { return f.Err }

// CorrespondenceFunc establishes the deformation from reference to target.
type CorrespondenceFunc func(reference, target *mesh.TriangleMesh) (*field.DeformationField, error)

// PointwiseCorrespondence assumes the target vertices are already in
// correspondence with the reference vertices.
var PointwiseCorrespondence CorrespondenceFunc = field.FromMeshes

// NewDataCollection validates that every item is defined on the reference
// point domain. Items defined over a different mesh with the same topology are
// re-expressed relative to reference.
func NewDataCollection(reference *mesh.TriangleMesh, items []DataItem) (*DataCollection, error) {
	dc := &DataCollection{Reference: reference, Items: make([]DataItem, len(items))}
	for i, item := range items {
		if item.Transformation == nil {
			return nil, fmt.Errorf("item %d (%q): nil transformation", i, item.ID)
		}
		if err := item.Transformation.DefinedOn(reference); err != nil {
			return nil, fmt.Errorf("item %d (%q): %w", i, item.ID, err)
		}
		if item.Transformation.Domain != reference {
			item.Transformation = item.Transformation.Rebase(reference)
		}
		dc.Items[i] = item
	}
	return dc, nil
}

// FromMeshSequence registers every mesh to the reference and collects the
// resulting fields. Meshes that fail are reported and skipped; the rest of
// the batch still forms the collection.
func FromMeshSequence(reference *mesh.TriangleMesh, meshes []*mesh.TriangleMesh,
	correspondence CorrespondenceFunc) (dc *DataCollection, failures []ItemFailure) {
	if correspondence == nil {
		correspondence = PointwiseCorrespondence
	}
	dc = &DataCollection{Reference: reference}
	for i, m := range meshes {
		id := m.Name
		if id == "" {
			id = fmt.Sprintf("item-%d", i)
		}
		if m.NumVertices() != reference.NumVertices() {
			failures = append(failures, ItemFailure{ID: id, Index: i,
				Err: types.NewDomainMismatch("vertex count", reference.NumVertices(), m.NumVertices())})
			continue
		}
		f, err := correspondence(reference, m)
		if err == nil {
			err = f.DefinedOn(reference)
		}
		if err != nil {
			failures = append(failures, ItemFailure{ID: id, Index: i, Err: err})
			continue
		}
		dc.Items = append(dc.Items, DataItem{ID: id, Transformation: f})
	}
	return
}

// MeshLoader reads one mesh; mesh.ReadMeshFile is the default.
type MeshLoader func(path string) (*mesh.TriangleMesh, error)

// FromMeshFiles loads each path and builds the collection, reporting load
// failures alongside registration failures.
func FromMeshFiles(reference *mesh.TriangleMesh, paths []string, loader MeshLoader,
	correspondence CorrespondenceFunc) (dc *DataCollection, failures []ItemFailure) {
	if loader == nil {
		loader = mesh.ReadMeshFile
	}
	var (
		meshes  []*mesh.TriangleMesh
		indices []int
	)
	for i, p := range paths {
		m, err := loader(p)
		if err != nil {
			failures = append(failures, ItemFailure{ID: p, Index: i, Err: err})
			continue
		}
		meshes = append(meshes, m)
		indices = append(indices, i)
	}
	dc, regFailures := FromMeshSequence(reference, meshes, correspondence)
	for _, f := range regFailures {
		f.Index = indices[f.Index]
		failures = append(failures, f)
	}
	return
}

func (dc *DataCollection) Size() int { return len(dc.Items) }

func (dc *DataCollection) Item(i int) DataItem { return dc.Items[i] }

func (dc *DataCollection) IDs() (ids []string) {
	ids = make([]string, len(dc.Items))
	for i, item := range dc.Items {
		ids[i] = item.ID
	}
	return
}

// Subset returns the items at the given positions, sharing the reference.
func (dc *DataCollection) Subset(indices []int) *DataCollection {
	sub := &DataCollection{Reference: dc.Reference, Items: make([]DataItem, len(indices))}
	for i, idx := range indices {
		sub.Items[i] = dc.Items[idx]
	}
	return sub
}

// Shapes returns the vertex positions of every item shape.
func (dc *DataCollection) Shapes() (shapes [][]geometry.Point3) {
	shapes = make([][]geometry.Point3, len(dc.Items))
	for i, item := range dc.Items {
		shapes[i] = item.Shape().Vertices
	}
	return
}

// MeanField is the point-wise mean of the item fields.
func (dc *DataCollection) MeanField() (*field.DeformationField, error) {
	if dc.Size() == 0 {
		return nil, types.NewInsufficientData("mean of collection", 1, 0)
	}
	var (
		acc  = make([]float64, 3*dc.Reference.NumVertices())
		flat = make([]float64, len(acc))
	)
	for _, item := range dc.Items {
		item.Transformation.FlattenTo(flat)
		floats.Add(acc, flat)
	}
	floats.Scale(1./float64(dc.Size()), acc)
	return field.FromFlat(dc.Reference, acc)
}

// MeanShape is the reference displaced by the mean field.
func (dc *DataCollection) MeanShape() (*mesh.TriangleMesh, error) {
	mean, err := dc.MeanField()
	if err != nil {
		return nil, err
	}
	return mean.Warp("mean"), nil
}

// TotalDistanceToReference sums, over items, the average distance between
// corresponding points of the item shape and the reference.
func (dc *DataCollection) TotalDistanceToReference() (total float64) {
	zero := field.Zero(dc.Reference)
	for _, item := range dc.Items {
		total += field.MeanDistance(item.Transformation, zero)
	}
	return
}
