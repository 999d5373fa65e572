package fuelopt

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/gonum/floats"
)

func TestJulianDate(t *testing.T) {
	j2000 := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	if jd := JulianDate(j2000); !floats.EqualWithinAbs(jd, 2451545.0, 1e-6) {
		t.Fatalf("JD=%f", jd)
	}
}

func TestExportPlanCSV(t *testing.T) {
	opt := NewTrajectoryOptimizer(Earth, Bipropellant, nil, 42)
	plan, err := opt.HohmannPlan(300, 35786, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 100, 700, 0, HardConstraints{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := ExportPlanCSV(&buf, plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 burns, got %d lines", len(lines))
	}
	if lines[0] != "burn,epoch,jd,dv_kms,burn_s,fuel_kg" {
		t.Fatalf("header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "0,2026-03-01T00:00:00Z,") {
		t.Fatalf("first burn row %q", lines[1])
	}
}
