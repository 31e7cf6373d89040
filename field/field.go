package field

import (
	"fmt"

	"github.com/notargets/gossm/geometry"
	"github.com/notargets/gossm/mesh"
	"github.com/notargets/gossm/types"
)

// DeformationField holds one displacement vector per vertex of Domain. The
// domain is shared, never copied, by every field defined over it.
type DeformationField struct {
	Domain  *mesh.TriangleMesh
	Vectors []geometry.Vector3
}

func New(domain *mesh.TriangleMesh, vectors []geometry.Vector3) (*DeformationField, error) {
	if len(vectors) != domain.NumVertices() {
		return nil, types.NewDomainMismatch("field vectors", domain.NumVertices(), len(vectors))
	}
	return &DeformationField{Domain: domain, Vectors: vectors}, nil
}

func Zero(domain *mesh.TriangleMesh) *DeformationField {
	return &DeformationField{Domain: domain, Vectors: make([]geometry.Vector3, domain.NumVertices())}
}

// Constant is a field with the same vector at every point, e.g. a pure translation.
func Constant(domain *mesh.TriangleMesh, v geometry.Vector3) *DeformationField {
	f := Zero(domain)
	for i := range f.Vectors {
		f.Vectors[i] = v
	}
	return f
}

// FromFlat unpacks a point-major (x0, y0, z0, x1, ...) vector.
func FromFlat(domain *mesh.TriangleMesh, flat []float64) (*DeformationField, error) {
	if len(flat) != 3*domain.NumVertices() {
		return nil, types.NewDomainMismatch("flat field length", 3*domain.NumVertices(), len(flat))
	}
	f := Zero(domain)
	for i := range f.Vectors {
		f.Vectors[i] = geometry.Vector3{flat[3*i], flat[3*i+1], flat[3*i+2]}
	}
	return f, nil
}

// FromMeshes is the point-wise displacement from reference to target, valid
// when both meshes are in vertex correspondence.
func FromMeshes(reference, target *mesh.TriangleMesh) (*DeformationField, error) {
	if target.NumVertices() != reference.NumVertices() {
		return nil, types.NewDomainMismatch("vertex count", reference.NumVertices(), target.NumVertices())
	}
	if len(target.Triangles) != 0 && !reference.SameTopology(target) {
		return nil, types.NewDomainMismatch("triangle count", reference.NumTriangles(), target.NumTriangles())
	}
	f := Zero(reference)
	for i, p := range target.Vertices {
		f.Vectors[i] = p.Sub(reference.Vertices[i])
	}
	return f, nil
}

func (f *DeformationField) Len() int { return len(f.Vectors) }

func (f *DeformationField) Dim() int { return 3 * len(f.Vectors) }

func (f *DeformationField) Flatten() []float64 {
	flat := make([]float64, 3*len(f.Vectors))
	f.FlattenTo(flat)
	return flat
}

func (f *DeformationField) FlattenTo(dst []float64) {
	for i, v := range f.Vectors {
		dst[3*i], dst[3*i+1], dst[3*i+2] = v[0], v[1], v[2]
	}
}

// DefinedOn checks the field is defined over the point domain of m.
func (f *DeformationField) DefinedOn(m *mesh.TriangleMesh) error {
	if f.Len() != m.NumVertices() {
		return types.NewDomainMismatch("field domain", m.NumVertices(), f.Len())
	}
	if !f.Domain.SameTopology(m) {
		return fmt.Errorf("field domain %q and mesh %q differ in connectivity: %w", f.Domain.Name, m.Name, types.ErrDomainMismatch)
	}
	return nil
}

func (f *DeformationField) Add(g *DeformationField) *DeformationField {
	f.mustMatch(g)
	out := Zero(f.Domain)
	for i := range f.Vectors {
		out.Vectors[i] = f.Vectors[i].Add(g.Vectors[i])
	}
	return out
}

func (f *DeformationField) Sub(g *DeformationField) *DeformationField {
	f.mustMatch(g)
	out := Zero(f.Domain)
	for i := range f.Vectors {
		out.Vectors[i] = f.Vectors[i].Sub(g.Vectors[i])
	}
	return out
}

func (f *DeformationField) Scale(a float64) *DeformationField {
	out := Zero(f.Domain)
	for i, v := range f.Vectors {
		out.Vectors[i] = v.Scale(a)
	}
	return out
}

// Warp returns the domain mesh displaced by the field.
func (f *DeformationField) Warp(name string) *mesh.TriangleMesh {
	pts := make([]geometry.Point3, f.Len())
	for i, p := range f.Domain.Vertices {
		pts[i] = p.Add(f.Vectors[i])
	}
	return f.Domain.WithVertices(name, pts)
}

// ApplyRigid moves the deformed shape: reference + result = t(reference + f).
func (f *DeformationField) ApplyRigid(t geometry.RigidTransform) *DeformationField {
	out := Zero(f.Domain)
	for i, p := range f.Domain.Vertices {
		out.Vectors[i] = t.Apply(p.Add(f.Vectors[i])).Sub(p)
	}
	return out
}

// Rebase re-expresses the shape reference+f as a field over another domain
// with the same point topology.
func (f *DeformationField) Rebase(domain *mesh.TriangleMesh) *DeformationField {
	if domain.NumVertices() != f.Len() {
		panic(types.NewDomainMismatch("rebase", f.Len(), domain.NumVertices()))
	}
	out := Zero(domain)
	for i, p := range f.Domain.Vertices {
		out.Vectors[i] = p.Add(f.Vectors[i]).Sub(domain.Vertices[i])
	}
	return out
}

func (f *DeformationField) mustMatch(g *DeformationField) {
	if f.Len() != g.Len() {
		panic(types.NewDomainMismatch("field length", f.Len(), g.Len()))
	}
}
