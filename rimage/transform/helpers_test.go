package transform

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func testIntrinsics() *PinholeCameraIntrinsics {
	return &PinholeCameraIntrinsics{
		Width:  1164,
		Height: 874,
		Fx:     910,
		Fy:     910,
		Ppx:    582,
		Ppy:    437,
	}
}

// scenePoints returns a non-coplanar cloud a few meters in front of the first camera.
func scenePoints() []r3.Vector {
	pts := make([]r3.Vector, 0, 30)
	for i := 0; i < 5; i++ {
		for j := 0; j < 3; j++ {
			for _, dz := range []float64{0, 2.5} {
				pts = append(pts, r3.Vector{
					X: -2 + float64(i),
					Y: -1 + float64(j),
					Z: 6 + dz + 0.3*float64(i) - 0.2*float64(j),
				})
			}
		}
	}
	return pts
}

func projectScene(tb testing.TB, k *PinholeCameraIntrinsics, rot, t mat.Matrix, pts []r3.Vector) Correspondences {
	tb.Helper()
	corr := Correspondences{Src: make([]r2.Point, len(pts)), Dst: make([]r2.Point, len(pts))}
	for i, pt := range pts {
		src, depth1 := k.ProjectPoint(eye(3), mat.NewDense(3, 1, nil), pt)
		dst, depth2 := k.ProjectPoint(rot, t, pt)
		test.That(tb, depth1, test.ShouldBeGreaterThan, 0)
		test.That(tb, depth2, test.ShouldBeGreaterThan, 0)
		corr.Src[i] = src
		corr.Dst[i] = dst
	}
	return corr
}

// unitTranslation returns t scaled to unit length, as recovered from an essential matrix.
func unitTranslation(x, y, z float64) *mat.Dense {
	v := r3.Vector{X: x, Y: y, Z: z}.Normalize()
	return mat.NewDense(3, 1, []float64{v.X, v.Y, v.Z})
}
