package geometry

import "math"

type Point3 [3]float64

type Vector3 [3]float64

type Mat3 [3][3]float64

func (p Point3) Add(v Vector3) Point3 { return Point3{p[0] + v[0], p[1] + v[1], p[2] + v[2]} }

func (p Point3) Sub(q Point3) Vector3 { return Vector3{p[0] - q[0], p[1] - q[1], p[2] - q[2]} }

func (p Point3) ToVector() Vector3 { return Vector3(p) }

func (p Point3) Distance(q Point3) float64 { return p.Sub(q).Norm() }

func (p Point3) Distance2(q Point3) float64 { return p.Sub(q).Norm2() }

func (v Vector3) Add(w Vector3) Vector3 { return Vector3{v[0] + w[0], v[1] + w[1], v[2] + w[2]} }

func (v Vector3) Sub(w Vector3) Vector3 { return Vector3{v[0] - w[0], v[1] - w[1], v[2] - w[2]} }

func (v Vector3) Scale(a float64) Vector3 { return Vector3{a * v[0], a * v[1], a * v[2]} }

func (v Vector3) Dot(w Vector3) float64 { return v[0]*w[0] + v[1]*w[1] + v[2]*w[2] }

func (v Vector3) Cross(w Vector3) Vector3 {
	return Vector3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

func (v Vector3) Norm2() float64 { return v.Dot(v) }

func (v Vector3) Norm() float64 { return math.Sqrt(v.Norm2()) }

func (v Vector3) ToPoint() Point3 { return Point3(v) }

func Identity3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func (m Mat3) MulVec(v Vector3) (r Vector3) {
	for i := 0; i < 3; i++ {
		r[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2]
	}
	return
}

func (m Mat3) Mul(b Mat3) (r Mat3) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][0]*b[0][j] + m[i][1]*b[1][j] + m[i][2]*b[2][j]
		}
	}
	return
}

func (m Mat3) Transpose() (r Mat3) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[j][i]
		}
	}
	return
}

func (m Mat3) Scale(a float64) (r Mat3) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = a * m[i][j]
		}
	}
	return
}

func (m Mat3) Add(b Mat3) (r Mat3) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][j] + b[i][j]
		}
	}
	return
}

func (m Mat3) Det() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// RotationXYZ composes rotations about x, then y, then z (radians).
func RotationXYZ(ax, ay, az float64) Mat3 {
	var (
		cx, sx = math.Cos(ax), math.Sin(ax)
		cy, sy = math.Cos(ay), math.Sin(ay)
		cz, sz = math.Cos(az), math.Sin(az)
		Rx     = Mat3{{1, 0, 0}, {0, cx, -sx}, {0, sx, cx}}
		Ry     = Mat3{{cy, 0, sy}, {0, 1, 0}, {-sy, 0, cy}}
		Rz     = Mat3{{cz, -sz, 0}, {sz, cz, 0}, {0, 0, 1}}
	)
	return Rz.Mul(Ry.Mul(Rx))
}

func Centroid(points []Point3) (c Point3) {
	if len(points) == 0 {
		return
	}
	for _, p := range points {
		c[0] += p[0]
		c[1] += p[1]
		c[2] += p[2]
	}
	inv := 1. / float64(len(points))
	c[0] *= inv
	c[1] *= inv
	c[2] *= inv
	return
}
