package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/notargets/gossm/geometry"
)

// ReadMeshFile reads a mesh file based on extension
func ReadMeshFile(filename string) (*TriangleMesh, error) {
	var (
		ext  = strings.ToLower(filepath.Ext(filename))
		name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	)
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch ext {
	case ".obj":
		return ReadOBJ(name, file)
	case ".off":
		return ReadOFF(name, file)
	default:
		return nil, fmt.Errorf("unsupported mesh format: %s", ext)
	}
}

// WriteMeshFile writes a mesh in the format implied by the extension
func WriteMeshFile(filename string, m *TriangleMesh) (err error) {
	var (
		ext  = strings.ToLower(filepath.Ext(filename))
		file *os.File
	)
	if ext != ".obj" && ext != ".off" {
		return fmt.Errorf("unsupported mesh format: %s", ext)
	}
	if file, err = os.Create(filename); err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(file)
	if ext == ".obj" {
		err = WriteOBJ(w, m)
	} else {
		err = WriteOFF(w, m)
	}
	if err != nil {
		return err
	}
	return w.Flush()
}

// ReadOBJ reads vertices and faces of a Wavefront OBJ stream. Polygons are
// fan triangulated; texture and normal indices are ignored.
func ReadOBJ(name string, r io.Reader) (*TriangleMesh, error) {
	var (
		scanner   = bufio.NewScanner(r)
		vertices  []geometry.Point3
		triangles [][3]int
		lineNum   int
	)
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			p, err := parsePoint(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("obj %q line %d: %w", name, lineNum, err)
			}
			vertices = append(vertices, p)
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("obj %q line %d: face needs at least 3 vertices", name, lineNum)
			}
			poly := make([]int, len(fields)-1)
			for i, f := range fields[1:] {
				idx, err := strconv.Atoi(strings.SplitN(f, "/", 2)[0])
				if err != nil {
					return nil, fmt.Errorf("obj %q line %d: %w", name, lineNum, err)
				}
				switch {
				case idx > 0:
					poly[i] = idx - 1
				case idx < 0:
					poly[i] = len(vertices) + idx
				default:
					return nil, fmt.Errorf("obj %q line %d: vertex index 0 is invalid", name, lineNum)
				}
			}
			triangles = append(triangles, fan(poly)...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(vertices) == 0 {
		return nil, fmt.Errorf("obj %q: no vertices", name)
	}
	return NewTriangleMesh(name, vertices, triangles)
}

// ReadOFF reads an Object File Format stream.
func ReadOFF(name string, r io.Reader) (*TriangleMesh, error) {
	var (
		scanner = bufio.NewScanner(r)
		tokens  [][]string
	)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		if fields := strings.Fields(line); len(fields) != 0 {
			tokens = append(tokens, fields)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(tokens) == 0 || tokens[0][0] != "OFF" {
		return nil, fmt.Errorf("off %q: missing OFF header", name)
	}
	counts := tokens[0][1:]
	tokens = tokens[1:]
	if len(counts) == 0 {
		if len(tokens) == 0 {
			return nil, fmt.Errorf("off %q: missing element counts", name)
		}
		counts, tokens = tokens[0], tokens[1:]
	}
	if len(counts) < 2 {
		return nil, fmt.Errorf("off %q: malformed element counts", name)
	}
	nv, err1 := strconv.Atoi(counts[0])
	nf, err2 := strconv.Atoi(counts[1])
	if err1 != nil || err2 != nil || nv < 0 || nf < 0 {
		return nil, fmt.Errorf("off %q: malformed element counts %v", name, counts)
	}
	if len(tokens) < nv+nf {
		return nil, fmt.Errorf("off %q: expected %d vertex and %d face lines, got %d lines", name, nv, nf, len(tokens))
	}
	vertices := make([]geometry.Point3, nv)
	for i := 0; i < nv; i++ {
		p, err := parsePoint(tokens[i])
		if err != nil {
			return nil, fmt.Errorf("off %q vertex %d: %w", name, i, err)
		}
		vertices[i] = p
	}
	var triangles [][3]int
	for i := 0; i < nf; i++ {
		fields := tokens[nv+i]
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 3 || len(fields) < n+1 {
			return nil, fmt.Errorf("off %q face %d: malformed polygon", name, i)
		}
		poly := make([]int, n)
		for j := 0; j < n; j++ {
			if poly[j], err = strconv.Atoi(fields[1+j]); err != nil {
				return nil, fmt.Errorf("off %q face %d: %w", name, i, err)
			}
		}
		triangles = append(triangles, fan(poly)...)
	}
	return NewTriangleMesh(name, vertices, triangles)
}

func WriteOBJ(w io.Writer, m *TriangleMesh) (err error) {
	if _, err = fmt.Fprintf(w, "# %s\n", m.Name); err != nil {
		return
	}
	for _, p := range m.Vertices {
		if _, err = fmt.Fprintf(w, "v %.17g %.17g %.17g\n", p[0], p[1], p[2]); err != nil {
			return
		}
	}
	for _, t := range m.Triangles {
		if _, err = fmt.Fprintf(w, "f %d %d %d\n", t[0]+1, t[1]+1, t[2]+1); err != nil {
			return
		}
	}
	return
}

func WriteOFF(w io.Writer, m *TriangleMesh) (err error) {
	if _, err = fmt.Fprintf(w, "OFF\n%d %d 0\n", m.NumVertices(), m.NumTriangles()); err != nil {
		return
	}
	for _, p := range m.Vertices {
		if _, err = fmt.Fprintf(w, "%.17g %.17g %.17g\n", p[0], p[1], p[2]); err != nil {
			return
		}
	}
	for _, t := range m.Triangles {
		if _, err = fmt.Fprintf(w, "3 %d %d %d\n", t[0], t[1], t[2]); err != nil {
			return
		}
	}
	return
}

func parsePoint(fields []string) (p geometry.Point3, err error) {
	if len(fields) < 3 {
		return p, fmt.Errorf("expected 3 coordinates, got %d", len(fields))
	}
	for d := 0; d < 3; d++ {
		if p[d], err = strconv.ParseFloat(fields[d], 64); err != nil {
			return
		}
	}
	return
}

func fan(poly []int) (tris [][3]int) {
	for i := 1; i+1 < len(poly); i++ {
		tris = append(tris, [3]int{poly[0], poly[i], poly[i+1]})
	}
	return
}
