package geometry

import "fmt"

type Landmark struct {
	ID    string
	Point Point3
}

type Landmarks []Landmark

func (l Landmarks) ApplyRigid(t RigidTransform) Landmarks {
	out := make(Landmarks, len(l))
	for i, lm := range l {
		out[i] = Landmark{ID: lm.ID, Point: t.Apply(lm.Point)}
	}
	return out
}

func (l Landmarks) Points() (points []Point3) {
	points = make([]Point3, len(l))
	for i, lm := range l {
		points[i] = lm.Point
	}
	return
}

// Pair matches landmarks by ID, keeping the order of l.
func (l Landmarks) Pair(other Landmarks) (moving, fixed []Point3, err error) {
	byID := make(map[string]Point3, len(other))
	for _, lm := range other {
		byID[lm.ID] = lm.Point
	}
	for _, lm := range l {
		p, ok := byID[lm.ID]
		if !ok {
			return nil, nil, fmt.Errorf("landmark %q has no counterpart", lm.ID)
		}
		moving = append(moving, lm.Point)
		fixed = append(fixed, p)
	}
	return
}
