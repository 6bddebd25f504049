package spatial

import "testing"

func TestIdentityIsIdentity(t *testing.T) {
	if !Identity().IsIdentity() {
		t.Fatalf("Identity() should report IsIdentity")
	}
	if Translation(1, 0, 0).IsIdentity() {
		t.Fatalf("a translation should not report IsIdentity")
	}
}

func TestTranslationTransformsPoint(t *testing.T) {
	m := Translation(10, 20, 0)
	x, y := m.TransformPoint2D(1, 2)
	if x != 11 || y != 22 {
		t.Fatalf("got (%v, %v) want (11, 22)", x, y)
	}
}

func TestMulComposesLeftAfterRight(t *testing.T) {
	translate := Translation(10, 0, 0)
	m := translate.Mul(Identity())
	x, y := m.TransformPoint2D(0, 0)
	if x != 10 || y != 0 {
		t.Fatalf("got (%v, %v) want (10, 0)", x, y)
	}
}

func TestInvertRoundTrips(t *testing.T) {
	m := Translation(5, -3, 0)
	inv, ok := m.Invert()
	if !ok {
		t.Fatalf("translation should be invertible")
	}
	x, y := inv.TransformPoint2D(5, -3)
	if x > 1e-9 || x < -1e-9 || y > 1e-9 || y < -1e-9 {
		t.Fatalf("expected inverse to map back near origin, got (%v, %v)", x, y)
	}
	if !m.Mul(inv).Equal(Identity(), 1e-9) {
		t.Fatalf("m * inverse(m) should be identity")
	}
}

func TestInvertSingularReportsFalse(t *testing.T) {
	// Zero-scale along every axis: an all-zero matrix is singular.
	var zero Matrix4
	if _, ok := zero.Invert(); ok {
		t.Fatalf("expected singular matrix to report false")
	}
}

func TestFromArrayToArrayRoundTrip(t *testing.T) {
	want := Translation(1, 2, 3)
	got := FromArray(want.ToArray())
	if !got.Equal(want, 1e-12) {
		t.Fatalf("FromArray(ToArray(m)) != m")
	}
}

func TestRotationYPreservesOrigin(t *testing.T) {
	m := RotationY(1.2345)
	x, y := m.TransformPoint2D(0, 0)
	if x != 0 || y != 0 {
		t.Fatalf("rotation about origin should fix (0,0), got (%v, %v)", x, y)
	}
}
