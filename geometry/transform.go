package geometry

// RigidTransform maps x to Scale*Rotation*(x - Center) + Center + Translation.
// Scale is 1 for a proper rigid motion; a similarity alignment may set it.
type RigidTransform struct {
	Rotation    Mat3
	Translation Vector3
	Center      Point3
	Scale       float64
}

// Transformable is implemented by every domain object that can be moved by a
// rigid transform, returning a transformed copy.
type Transformable[T any] interface {
	ApplyRigid(t RigidTransform) T
}

func Identity() RigidTransform {
	return RigidTransform{Rotation: Identity3(), Scale: 1}
}

func NewTranslation(v Vector3) RigidTransform {
	t := Identity()
	t.Translation = v
	return t
}

func NewRotation(R Mat3, center Point3) RigidTransform {
	return RigidTransform{Rotation: R, Center: center, Scale: 1}
}

func (t RigidTransform) scale() float64 {
	if t.Scale == 0 {
		return 1
	}
	return t.Scale
}

func (t RigidTransform) Apply(p Point3) Point3 {
	var (
		local = p.Sub(t.Center)
		moved = t.Rotation.MulVec(local).Scale(t.scale())
	)
	return t.Center.Add(moved).Add(t.Translation)
}

// ApplyVector moves a direction: only rotation and scale act on it.
func (t RigidTransform) ApplyVector(v Vector3) Vector3 {
	return t.Rotation.MulVec(v).Scale(t.scale())
}

func (t RigidTransform) ApplyAll(points []Point3) (out []Point3) {
	out = make([]Point3, len(points))
	for i, p := range points {
		out[i] = t.Apply(p)
	}
	return
}

// Linear returns the affine form x -> A x + b of the transform.
func (t RigidTransform) Linear() (A Mat3, b Vector3) {
	A = t.Rotation.Scale(t.scale())
	b = t.Center.ToVector().Sub(A.MulVec(t.Center.ToVector())).Add(t.Translation)
	return
}

// Compose returns the transform applying other first, then t.
func (t RigidTransform) Compose(other RigidTransform) RigidTransform {
	A1, b1 := t.Linear()
	_, b2 := other.Linear()
	var (
		s = t.scale() * other.scale()
		R = t.Rotation.Mul(other.Rotation)
		b = A1.MulVec(b2).Add(b1)
	)
	return RigidTransform{Rotation: R, Translation: b, Scale: s}
}

func (t RigidTransform) Inverse() RigidTransform {
	var (
		s    = 1. / t.scale()
		RT   = t.Rotation.Transpose()
		_, b = t.Linear()
	)
	Ainv := RT.Scale(s)
	return RigidTransform{Rotation: RT, Translation: Ainv.MulVec(b).Scale(-1), Scale: s}
}
