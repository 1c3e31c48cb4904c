// Package rig describes a multi-sensor camera rig: per-sensor pinhole
// intrinsics plus a lens distortion model, loaded from a JSON configuration
// file that is also handed verbatim to the external reconstruction tools.
package rig

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Config is a rig configuration: one reference sensor and the full list of
// sensors mounted on the rig.
type Config struct {
	RefSensor string   `json:"ref_sensor"`
	Sensors   []Sensor `json:"sensors"`
}

// Sensor is a single camera on the rig.
type Sensor struct {
	Name       string            `json:"name"`
	Intrinsics *Intrinsics       `json:"intrinsics"`
	Distortion *DistortionConfig `json:"distortion,omitempty"`
}

// DistortionConfig is the JSON shape of a distortion model before it is
// turned into a Distorter.
type DistortionConfig struct {
	Type       DistortionType `json:"type"`
	Parameters []float64      `json:"parameters"`
}

// Intrinsics holds the parameters of a pinhole projection from a 3D scene to
// the 2D image plane.
type Intrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for Intrinsics have valid inputs.
func (params *Intrinsics) CheckValid() error {
	if params == nil {
		return errors.New("intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return errors.Errorf("invalid image size (%d, %d)", params.Width, params.Height)
	}
	if params.Fx <= 0 {
		return errors.Errorf("invalid focal length Fx = %v", params.Fx)
	}
	if params.Fy <= 0 {
		return errors.Errorf("invalid focal length Fy = %v", params.Fy)
	}
	if params.Ppx < 0 {
		return errors.Errorf("invalid principal point Ppx = %v", params.Ppx)
	}
	if params.Ppy < 0 {
		return errors.Errorf("invalid principal point Ppy = %v", params.Ppy)
	}
	return nil
}

// Distorter builds the distortion model described by the config.
func (d *DistortionConfig) Distorter() (Distorter, error) {
	if d == nil {
		return &BrownConrady{}, nil
	}
	return NewDistorter(d.Type, d.Parameters)
}

// ReadConfig reads a rig configuration from a JSON file and validates it.
func ReadConfig(path string) (*Config, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening rig config")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "error reading rig config")
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing rig config")
	}
	if err := cfg.Validate(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if len(cfg.Sensors) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "sensors")
	}
	if cfg.RefSensor == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "ref_sensor")
	}
	seen := map[string]bool{}
	for i, sensor := range cfg.Sensors {
		sensorPath := fmt.Sprintf("%s.sensors.%d", path, i)
		if sensor.Name == "" {
			return utils.NewConfigValidationFieldRequiredError(sensorPath, "name")
		}
		if seen[sensor.Name] {
			return utils.NewConfigValidationError(sensorPath,
				errors.Errorf("duplicate sensor name %q", sensor.Name))
		}
		seen[sensor.Name] = true
		if err := sensor.Intrinsics.CheckValid(); err != nil {
			return utils.NewConfigValidationError(sensorPath, err)
		}
		if sensor.Distortion != nil {
			dist, err := sensor.Distortion.Distorter()
			if err != nil {
				return utils.NewConfigValidationError(sensorPath, err)
			}
			if err := dist.CheckValid(); err != nil {
				return utils.NewConfigValidationError(sensorPath, err)
			}
		}
	}
	if _, err := cfg.Sensor(cfg.RefSensor); err != nil {
		return utils.NewConfigValidationError(path,
			errors.Wrap(err, "ref_sensor"))
	}
	return nil
}

// Sensor returns the named sensor, or an error listing the rig's sensors if
// no such sensor is configured.
func (cfg *Config) Sensor(name string) (*Sensor, error) {
	for i := range cfg.Sensors {
		if cfg.Sensors[i].Name == name {
			return &cfg.Sensors[i], nil
		}
	}
	names := make([]string, 0, len(cfg.Sensors))
	for _, s := range cfg.Sensors {
		names = append(names, s.Name)
	}
	return nil, errors.Errorf("sensor %q is not part of the rig %v", name, names)
}
