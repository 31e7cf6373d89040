package model

import (
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"

	"github.com/notargets/gossm/field"
	"github.com/notargets/gossm/geometry"
	"github.com/notargets/gossm/mesh"
)

// On disk a model is zstd compressed JSON holding the reference topology,
// the mean field and the (eigenvector, variance) pairs.
type modelFile struct {
	Version   int          `json:"version"`
	Reference meshRecord   `json:"reference"`
	Product   string       `json:"product"`
	Mean      [][3]float64 `json:"mean"`
	Basis     []basisEntry `json:"basis"`
}

type meshRecord struct {
	Name      string       `json:"name"`
	Vertices  [][3]float64 `json:"vertices"`
	Triangles [][3]int     `json:"triangles"`
}

type basisEntry struct {
	Eigenvector [][3]float64 `json:"eigenvector"`
	Variance    float64      `json:"variance"`
}

const fileVersion = 1

func vectorsToRecord(v []geometry.Vector3) (out [][3]float64) {
	out = make([][3]float64, len(v))
	for i := range v {
		out[i] = v[i]
	}
	return
}

func recordToField(domain *mesh.TriangleMesh, rec [][3]float64) (*field.DeformationField, error) {
	v := make([]geometry.Vector3, len(rec))
	for i := range rec {
		v[i] = rec[i]
	}
	return field.New(domain, v)
}

// Encode writes m to w.
func Encode(w io.Writer, m *LowRankModel) (err error) {
	rec := modelFile{
		Version: fileVersion,
		Reference: meshRecord{
			Name:      m.Reference.Name,
			Vertices:  make([][3]float64, m.Reference.NumVertices()),
			Triangles: m.Reference.Triangles,
		},
		Product: field.ProductKind(m.Product),
		Mean:    vectorsToRecord(m.Mean.Vectors),
		Basis:   make([]basisEntry, m.Rank()),
	}
	for i, p := range m.Reference.Vertices {
		rec.Reference.Vertices[i] = p
	}
	for k, b := range m.Basis {
		rec.Basis[k] = basisEntry{Eigenvector: vectorsToRecord(b.Eigenvector.Vectors), Variance: b.Variance}
	}
	buf, err := sonic.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err = enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Decode reads a model written by Encode.
func Decode(r io.Reader) (*LowRankModel, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	buf, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	var rec modelFile
	if err = sonic.Unmarshal(buf, &rec); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if rec.Version != fileVersion {
		return nil, fmt.Errorf("unsupported model file version %d", rec.Version)
	}
	vertices := make([]geometry.Point3, len(rec.Reference.Vertices))
	for i := range vertices {
		vertices[i] = rec.Reference.Vertices[i]
	}
	ref, err := mesh.NewTriangleMesh(rec.Reference.Name, vertices, rec.Reference.Triangles)
	if err != nil {
		return nil, err
	}
	m := &LowRankModel{Reference: ref, Basis: make([]BasisElement, len(rec.Basis))}
	if m.Product, err = field.NewInnerProduct(rec.Product, ref); err != nil {
		return nil, err
	}
	if m.Mean, err = recordToField(ref, rec.Mean); err != nil {
		return nil, fmt.Errorf("model mean: %w", err)
	}
	for k, b := range rec.Basis {
		ev, err := recordToField(ref, b.Eigenvector)
		if err != nil {
			return nil, fmt.Errorf("model basis %d: %w", k, err)
		}
		m.Basis[k] = BasisElement{Eigenvector: ev, Variance: b.Variance}
	}
	return m, nil
}

func Save(path string, m *LowRankModel) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return Encode(file, m)
}

func Load(path string) (*LowRankModel, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Decode(file)
}
