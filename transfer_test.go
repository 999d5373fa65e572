package fuelopt

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

func TestHohmannLEO2GEO(t *testing.T) {
	const r1 = 6678.0  // 300 km LEO
	const r2 = 42164.0 // GEO
	hoh, err := Hohmann(r1, r2, Earth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !floats.EqualWithinAbs(hoh.TotalΔv(), 3.8924, 1e-3) {
		t.Fatalf("total Δv=%f", hoh.TotalΔv())
	}
	if hoh.ΔvDeparture < 0 || hoh.ΔvArrival < 0 {
		t.Fatalf("raising transfer must have prograde burns: %f, %f", hoh.ΔvDeparture, hoh.ΔvArrival)
	}
	if math.Abs(hoh.TOF.Seconds()-18990) > 60 {
		t.Fatalf("transfer time %s", hoh.TOF)
	}
	if !floats.EqualWithinAbs(hoh.ATransfer, (r1+r2)/2, 1e-9) {
		t.Fatalf("transfer SMA %f", hoh.ATransfer)
	}

	// Lowering transfer has both burns retrograde, same total.
	back, err := Hohmann(r2, r1, Earth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.ΔvDeparture > 0 || back.ΔvArrival > 0 {
		t.Fatalf("lowering transfer must have retrograde burns: %f, %f", back.ΔvDeparture, back.ΔvArrival)
	}
	if !floats.EqualWithinAbs(back.TotalΔv(), hoh.TotalΔv(), 1e-9) {
		t.Fatalf("asymmetric totals: %f vs %f", back.TotalΔv(), hoh.TotalΔv())
	}
}

func TestHohmannInvalidRadii(t *testing.T) {
	for _, radii := range [][2]float64{{-1, 42164}, {6678, 0}, {0, 0}} {
		if _, err := Hohmann(radii[0], radii[1], Earth); !errors.Is(err, ErrInvalidOrbit) {
			t.Fatalf("radii %v: expected ErrInvalidOrbit, got %v", radii, err)
		}
	}
}

// Vallado's Lambert example (example 7-5).
func TestLambertVallado(t *testing.T) {
	Ri := mat64.NewVector(3, []float64{15945.34, 0, 0})
	Rf := mat64.NewVector(3, []float64{12214.83899, 10249.46731, 0})
	Vi, Vf, err := Lambert(Ri, Rf, 76*time.Minute, TTypeAuto, Earth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expVi := []float64{2.058913, 2.915965, 0}
	expVf := []float64{-3.451565, 0.910315, 0}
	for j := 0; j < 3; j++ {
		if !floats.EqualWithinAbs(Vi.At(j, 0), expVi[j], 1e-5) {
			t.Fatalf("Vi[%d]=%f expected %f", j, Vi.At(j, 0), expVi[j])
		}
		if !floats.EqualWithinAbs(Vf.At(j, 0), expVf[j], 1e-5) {
			t.Fatalf("Vf[%d]=%f expected %f", j, Vf.At(j, 0), expVf[j])
		}
	}
}

func TestLambertErrors(t *testing.T) {
	// Degenerate 180 degree geometry.
	Ri := mat64.NewVector(3, []float64{6678, 0, 0})
	Rf := mat64.NewVector(3, []float64{-42164, -1e-6, 0})
	if _, _, err := Lambert(Ri, Rf, 5*time.Hour, TTypeAuto, Earth); !errors.Is(err, ErrNoSolution) {
		t.Fatalf("expected ErrNoSolution, got %v", err)
	}
	// Wrong dimensions.
	bad := mat64.NewVector(2, []float64{1, 2})
	if _, _, err := Lambert(bad, bad, time.Hour, TTypeAuto, Earth); err == nil {
		t.Fatal("expected an error for non 3x1 vectors")
	}
}

// A general boundary-value solution can only match or beat the restricted
// two-burn case over the same transfer window.
func TestHohmannVersusLambert(t *testing.T) {
	const r1 = 6678.0
	const r2 = 42164.0
	hoh, err := Hohmann(r1, r2, Earth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Just off the 180 degree singularity.
	θ := Deg2rad(179)
	Ri := mat64.NewVector(3, []float64{r1, 0, 0})
	Rf := mat64.NewVector(3, []float64{r2 * math.Cos(θ), r2 * math.Sin(θ), 0})
	Vi, Vf, err := Lambert(Ri, Rf, hoh.TOF, TTypeAuto, Earth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vc1 := math.Sqrt(Earth.μ / r1)
	vc2 := math.Sqrt(Earth.μ / r2)
	dep := math.Sqrt(math.Pow(Vi.At(0, 0), 2) + math.Pow(Vi.At(1, 0)-vc1, 2))
	arr := math.Sqrt(math.Pow(Vf.At(0, 0)-(-vc2*math.Sin(θ)), 2) + math.Pow(Vf.At(1, 0)-vc2*math.Cos(θ), 2))
	lam := dep + arr
	if hoh.TotalΔv() < lam-0.1 {
		t.Fatalf("Hohmann %f km/s beats the boundary solver %f km/s beyond the geometry margin", hoh.TotalΔv(), lam)
	}
}
