package fuelopt

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfig reads a TOML mission file ("<name>.toml" under dir) into the
// mission requirements and real-time constraints it defines.
//
// Layout:
//
//	[mission]
//	init_altitude = 400.0     # km
//	target_altitude = 35786.0 # km
//	dry_mass = 1000.0         # kg
//	fuel_mass = 500.0         # kg
//	max_time = "72h"
//	max_power = 5000.0        # W
//	priority = "balanced"
//	body = "Earth"
//
//	[realtime]
//	min_fuel_mass = 50.0
//	min_power_level = 0.3
//	max_decay_rate = 1.0      # km/day
//	check_interval = "1s"
//	optimize_interval = "30s"
//	escalate_after = 3
func LoadConfig(dir, name string) (MissionRequirements, RealTimeConstraints, error) {
	var req MissionRequirements
	var rtc RealTimeConstraints
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		return req, rtc, fmt.Errorf("could not read mission config %s/%s.toml: %w", dir, name, err)
	}

	req = MissionRequirements{
		InitAltitude:   v.GetFloat64("mission.init_altitude"),
		TargetAltitude: v.GetFloat64("mission.target_altitude"),
		DryMass:        v.GetFloat64("mission.dry_mass"),
		FuelMass:       v.GetFloat64("mission.fuel_mass"),
		MaxTime:        v.GetDuration("mission.max_time"),
		MaxFuel:        v.GetFloat64("mission.max_fuel"),
		MaxMass:        v.GetFloat64("mission.max_mass"),
		MaxPower:       v.GetFloat64("mission.max_power"),
		Epoch:          time.Now().UTC(),
	}
	if e := v.GetString("mission.epoch"); e != "" {
		epoch, err := time.Parse(time.RFC3339, e)
		if err != nil {
			return req, rtc, fmt.Errorf("mission.epoch: %w", err)
		}
		req.Epoch = epoch
	}
	pr, err := ParsePriority(v.GetString("mission.priority"))
	if err != nil {
		return req, rtc, err
	}
	req.Priority = pr
	switch body := v.GetString("mission.body"); body {
	case "", "Earth":
		req.Body = Earth
	case "Mars":
		req.Body = Mars
	default:
		return req, rtc, fmt.Errorf("unknown central body %q", body)
	}
	if err := req.Validate(); err != nil {
		return req, rtc, err
	}

	rtc = RealTimeConstraints{
		MinFuelMass:      v.GetFloat64("realtime.min_fuel_mass"),
		MinPowerLevel:    v.GetFloat64("realtime.min_power_level"),
		MaxDecayRate:     v.GetFloat64("realtime.max_decay_rate"),
		MaxTemperature:   v.GetFloat64("realtime.max_temperature"),
		CheckInterval:    v.GetDuration("realtime.check_interval"),
		OptimizeInterval: v.GetDuration("realtime.optimize_interval"),
		EscalateAfter:    v.GetInt("realtime.escalate_after"),
	}
	return req, rtc, nil
}
