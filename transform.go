package reel

import "math"

// Affine is a 2D affine matrix.
//
//	Matrix layout: [a, b, c, d, tx, ty]
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
type Affine [6]float64

// Identity is the identity affine matrix.
var Identity = Affine{1, 0, 0, 1, 0, 0}

// Mul multiplies two affine matrices: result = m * c.
func (m Affine) Mul(c Affine) Affine {
	return Affine{
		m[0]*c[0] + m[2]*c[1],
		m[1]*c[0] + m[3]*c[1],
		m[0]*c[2] + m[2]*c[3],
		m[1]*c[2] + m[3]*c[3],
		m[0]*c[4] + m[2]*c[5] + m[4],
		m[1]*c[4] + m[3]*c[5] + m[5],
	}
}

// Invert computes the inverse of the matrix.
// Returns the identity matrix if the matrix is singular (determinant ~ 0).
func (m Affine) Invert() Affine {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return Identity
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return Affine{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}
}

// Apply transforms the point (x, y).
func (m Affine) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Translate returns m followed by a translation in m's local space.
func (m Affine) Translate(x, y float64) Affine {
	return m.Mul(Affine{1, 0, 0, 1, x, y})
}

// IsIdentity reports whether m is exactly the identity.
func (m Affine) IsIdentity() bool { return m == Identity }

// Transform holds a node's animated transform properties. Rotation and skew
// are in degrees. The pivot is a fraction of the node's layout rect;
// (0.5, 0.5) rotates and scales around the center.
type Transform struct {
	X, Y           *Animated[float64]
	ScaleX, ScaleY *Animated[float64]
	Rotation       *Animated[float64]
	SkewX, SkewY   *Animated[float64]
	PivotX, PivotY float64
}

func newTransform() Transform {
	return Transform{
		X:        NewFloat(0),
		Y:        NewFloat(0),
		ScaleX:   NewFloat(1),
		ScaleY:   NewFloat(1),
		Rotation: NewFloat(0),
		SkewX:    NewFloat(0),
		SkewY:    NewFloat(0),
		PivotX:   0.5,
		PivotY:   0.5,
	}
}

// update evaluates every property at local time t.
func (tr *Transform) update(t float64) {
	tr.X.Update(t)
	tr.Y.Update(t)
	tr.ScaleX.Update(t)
	tr.ScaleY.Update(t)
	tr.Rotation.Update(t)
	tr.SkewX.Update(t)
	tr.SkewY.Update(t)
}

// Local computes the visual transform applied on top of the layout rect r,
// from the values cached by the last update. Content drawn in absolute rect
// coordinates is mapped through the returned matrix.
//
// Composition order:
//
//	Translate(-pivot) -> Scale -> Skew -> Rotate -> Translate(pivot + X, Y)
func (tr *Transform) Local(r Rect) Affine {
	px := r.X + tr.PivotX*r.Width
	py := r.Y + tr.PivotY*r.Height
	return computeLocalTransform(
		tr.X.Current+px, tr.Y.Current+py,
		tr.ScaleX.Current, tr.ScaleY.Current,
		tr.Rotation.Current*math.Pi/180,
		tr.SkewX.Current*math.Pi/180, tr.SkewY.Current*math.Pi/180,
		px, py,
	)
}

// computeLocalTransform builds [a, b, c, d, tx, ty] from decomposed
// properties. Angles are in radians.
func computeLocalTransform(x, y, sx, sy, rot, skewX, skewY, px, py float64) Affine {
	sin, cos := math.Sincos(rot)

	var tanSkewX, tanSkewY float64
	if skewX != 0 {
		tanSkewX = math.Tan(skewX)
	}
	if skewY != 0 {
		tanSkewY = math.Tan(skewY)
	}

	// After Scale * Translate(-pivot):
	//   a=sx, b=0, c=0, d=sy, tx=-px*sx, ty=-py*sy
	//
	// After Skew:
	a := sx
	b := tanSkewY * sx
	c := tanSkewX * sy
	d := sy

	preTx := -px*sx - tanSkewX*py*sy
	preTy := -tanSkewY*px*sx - py*sy

	// After Rotate:
	ra := cos*a - sin*b
	rb := sin*a + cos*b
	rc := cos*c - sin*d
	rd := sin*c + cos*d
	rtx := cos*preTx - sin*preTy
	rty := sin*preTx + cos*preTy

	return Affine{ra, rb, rc, rd, rtx + x, rty + y}
}
