package fuelopt

import (
	"fmt"
	"math"
	"time"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

// TransferType defines the type of Lambert transfer.
type TransferType uint8

const (
	// TTypeAuto lets the Lambert solver determine the direction of motion.
	TTypeAuto TransferType = iota + 1
	// TType1 is a short-way transfer.
	TType1
	// TType2 is a long-way transfer.
	TType2
	lambertε     = 1e-4 // General epsilon
	lambertTimeε = 1e-4 // Time epsilon, in seconds
	lambertνε    = (5e-5 / 180) * math.Pi
	lambertMaxIt = 10000
)

func (t TransferType) String() string {
	switch t {
	case TTypeAuto:
		return "auto"
	case TType1:
		return "short-way"
	case TType2:
		return "long-way"
	default:
		panic("unknown transfer type")
	}
}

// HohmannTransfer is the closed-form two-burn solution between coplanar
// circular orbits.
type HohmannTransfer struct {
	ΔvDeparture float64 // km/s, tangential burn at r1
	ΔvArrival   float64 // km/s, tangential burn at r2
	ATransfer   float64 // km, semi-major axis of the transfer ellipse
	TOF         time.Duration
}

// TotalΔv returns the summed magnitude of both burns.
func (h HohmannTransfer) TotalΔv() float64 {
	return math.Abs(h.ΔvDeparture) + math.Abs(h.ΔvArrival)
}

// Hohmann computes the two-burn minimum-energy transfer between circular
// orbits of radii r1 and r2 about the given body. Fails with ErrInvalidOrbit
// if either radius is not positive.
func Hohmann(r1, r2 float64, body CelestialObject) (HohmannTransfer, error) {
	if r1 <= 0 || r2 <= 0 {
		return HohmannTransfer{}, fmt.Errorf("radii %f, %f: %w", r1, r2, ErrInvalidOrbit)
	}
	aTransfer := 0.5 * (r1 + r2)
	vDeparture := math.Sqrt((2 * body.GM() / r1) - (body.GM() / aTransfer))
	vArrival := math.Sqrt((2 * body.GM() / r2) - (body.GM() / aTransfer))
	tof := time.Duration(math.Pi*math.Sqrt(math.Pow(aTransfer, 3)/body.GM())) * time.Second
	return HohmannTransfer{
		ΔvDeparture: vDeparture - math.Sqrt(body.GM()/r1),
		ΔvArrival:   math.Sqrt(body.GM()/r2) - vArrival,
		ATransfer:   aTransfer,
		TOF:         tof,
	}, nil
}

// Lambert solves the Lambert boundary problem: given the initial and final
// radii and a central body, it returns the needed initial and final
// velocities. Fails with ErrNoSolution if the universal-variable iteration
// does not converge within its cap; a degraded guess is never returned.
func Lambert(Ri, Rf *mat64.Vector, Δt0 time.Duration, ttype TransferType, body CelestialObject) (Vi, Vf *mat64.Vector, err error) {
	// Initialize return variables
	Vi = mat64.NewVector(3, nil)
	Vf = mat64.NewVector(3, nil)
	// Sanity checks
	Rir, _ := Ri.Dims()
	Rfr, _ := Rf.Dims()
	if Rir != Rfr || Rir != 3 {
		return nil, nil, fmt.Errorf("initial and final radii must be 3x1 vectors: %w", ErrInvalidOrbit)
	}
	Δt0Sec := Δt0.Seconds()
	rI := mat64.Norm(Ri, 2)
	rF := mat64.Norm(Rf, 2)
	cosΔν := mat64.Dot(Ri, Rf) / (rI * rF)
	// Compute the direction of motion
	νI := math.Atan2(Ri.At(1, 0), Ri.At(0, 0))
	νF := math.Atan2(Rf.At(1, 0), Rf.At(0, 0))
	dm := 1.0
	if ttype == TType2 {
		dm = -1.0
	} else if ttype == TTypeAuto {
		Δν := νF - νI
		if Δν > 2*math.Pi {
			Δν -= 2 * math.Pi
		} else if Δν < 0 {
			Δν += 2 * math.Pi
		}
		if Δν > math.Pi {
			dm = -1.0
		}
	}

	A := dm * math.Sqrt(rI*rF*(1+cosΔν))
	if νF-νI < lambertνε && floats.EqualWithinAbs(A, 0, lambertε) {
		return nil, nil, fmt.Errorf("Δν ~= 0 and A ~= 0: %w", ErrNoSolution)
	}

	φup := 4 * math.Pow(math.Pi, 2)
	φlow := -4 * math.Pi
	// Initial guesses for c2 and c3
	c2 := 1 / 2.
	c3 := 1 / 6.
	var φ, Δt, y float64
	var iteration uint
	for math.Abs(Δt-Δt0Sec) > lambertTimeε {
		if iteration > lambertMaxIt {
			return nil, nil, fmt.Errorf("did not converge after %d iterations: %w", lambertMaxIt, ErrNoSolution)
		}
		iteration++
		y = rI + rF + A*(φ*c3-1)/math.Sqrt(c2)
		if A > 0 && y < 0 {
			tmpIt := 0
			for y < 0 {
				φ += 0.1
				y = rI + rF + A*(φ*c3-1)/math.Sqrt(c2)
				if tmpIt > lambertMaxIt {
					return nil, nil, fmt.Errorf("could not increase φ to make y positive: %w", ErrNoSolution)
				}
				tmpIt++
			}
		}
		χ := math.Sqrt(y / c2)
		Δt = (math.Pow(χ, 3)*c3 + A*math.Sqrt(y)) / math.Sqrt(body.μ)
		if Δt <= Δt0Sec {
			φlow = φ
		} else {
			φup = φ
		}
		φ = (φup + φlow) / 2
		if φ > lambertε {
			sφ := math.Sqrt(φ)
			ssφ, csφ := math.Sincos(sφ)
			c2 = (1 - csφ) / φ
			c3 = (sφ - ssφ) / math.Sqrt(math.Pow(φ, 3))
		} else if φ < -lambertε {
			sφ := math.Sqrt(-φ)
			c2 = (1 - math.Cosh(sφ)) / φ
			c3 = (math.Sinh(sφ) - sφ) / math.Sqrt(math.Pow(-φ, 3))
		} else {
			c2 = 1 / 2.
			c3 = 1 / 6.
		}
	}
	f := 1 - y/rI
	gDot := 1 - y/rF
	g := A * math.Sqrt(y/body.μ)
	// Compute velocities
	Rf2 := mat64.NewVector(3, nil)
	Vi.AddScaledVec(Rf, -f, Ri)
	Vi.ScaleVec(1/g, Vi)
	Rf2.ScaleVec(gDot, Rf)
	Vf.AddScaledVec(Rf2, -1, Ri)
	Vf.ScaleVec(1/g, Vf)
	return Vi, Vf, nil
}
