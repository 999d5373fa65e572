package fuelopt

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testMissionTOML = `
[mission]
init_altitude = 400.0
target_altitude = 35786.0
dry_mass = 1200.0
fuel_mass = 800.0
max_time = "72h"
max_power = 5000.0
priority = "balanced"
body = "Earth"
epoch = "2026-03-01T00:00:00Z"

[realtime]
min_fuel_mass = 50.0
min_power_level = 0.3
max_decay_rate = 1.0
check_interval = "1s"
optimize_interval = "30s"
escalate_after = 3
`

func writeMission(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mission.toml"), []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeMission(t, testMissionTOML)
	req, rtc, err := LoadConfig(dir, "mission")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.InitAltitude != 400 || req.TargetAltitude != 35786 {
		t.Fatalf("altitudes %f/%f", req.InitAltitude, req.TargetAltitude)
	}
	if req.DryMass != 1200 || req.FuelMass != 800 {
		t.Fatalf("masses %f/%f", req.DryMass, req.FuelMass)
	}
	if req.MaxTime != 72*time.Hour {
		t.Fatalf("max time %s", req.MaxTime)
	}
	if req.Priority != PriorityBalanced {
		t.Fatalf("priority %s", req.Priority)
	}
	if !req.Body.Equals(Earth) {
		t.Fatalf("body %s", req.Body)
	}
	if req.Epoch != time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("epoch %s", req.Epoch)
	}
	if rtc.MinFuelMass != 50 || rtc.MinPowerLevel != 0.3 {
		t.Fatalf("thresholds %f/%f", rtc.MinFuelMass, rtc.MinPowerLevel)
	}
	if rtc.CheckInterval != time.Second || rtc.OptimizeInterval != 30*time.Second {
		t.Fatalf("intervals %s/%s", rtc.CheckInterval, rtc.OptimizeInterval)
	}
	if rtc.EscalateAfter != 3 {
		t.Fatalf("escalate after %d", rtc.EscalateAfter)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, _, err := LoadConfig(t.TempDir(), "mission"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
	badPriority := writeMission(t, `
[mission]
init_altitude = 400.0
target_altitude = 35786.0
dry_mass = 1200.0
fuel_mass = 800.0
priority = "cheapest"
`)
	if _, _, err := LoadConfig(badPriority, "mission"); err == nil {
		t.Fatal("expected an error for an unknown priority")
	}
	badBody := writeMission(t, `
[mission]
init_altitude = 400.0
target_altitude = 35786.0
dry_mass = 1200.0
fuel_mass = 800.0
priority = "fuel"
body = "Krypton"
`)
	if _, _, err := LoadConfig(badBody, "mission"); err == nil {
		t.Fatal("expected an error for an unknown body")
	}
	badEpoch := writeMission(t, `
[mission]
init_altitude = 400.0
target_altitude = 35786.0
dry_mass = 1200.0
fuel_mass = 800.0
priority = "fuel"
epoch = "mars-years-ago"
`)
	if _, _, err := LoadConfig(badEpoch, "mission"); err == nil {
		t.Fatal("expected an error for a malformed epoch")
	}
}
