package confidence

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WeightsConfig is the YAML-loadable form of the signal weight table,
// resolving the open question of dynamic key/weight tables at module
// scope into an explicit, injected record instead. All
// fields default via DefaultWeights, so the
// YAML file is optional — a deployment only needs one to override the
// defaults.
type WeightsConfig struct {
	Signature   int `yaml:"signature"`
	GpsAccuracy int `yaml:"gps_accuracy"`
	SpeedGate   int `yaml:"speed_gate"`
	Moratorium  int `yaml:"moratorium"`
	Attestation int `yaml:"attestation"`
	GnssRaw     int `yaml:"gnss_raw"`
	CellTower   int `yaml:"cell_tower"`
	Wifi        int `yaml:"wifi"`
	Witness     int `yaml:"witness"`
}

// DefaultWeights returns the weight table exactly as specified
//, so a deployment with no weights file still runs with
// the documented defaults.
func DefaultWeights() WeightsConfig {
	return WeightsConfig{
		Signature:   WeightSignature,
		GpsAccuracy: WeightGpsAccuracy,
		SpeedGate:   WeightSpeedGate,
		Moratorium:  WeightMoratorium,
		Attestation: WeightAttestation,
		GnssRaw:     WeightGnssRaw,
		CellTower:   WeightCellTower,
		Wifi:        WeightWifi,
		Witness:     WeightWitness,
	}
}

// LoadWeights reads a WeightsConfig from a YAML file at path. A missing
// file is not an error — callers get DefaultWeights() back, since the
// weights file is an optional override.
func LoadWeights(path string) (WeightsConfig, error) {
	defaults := DefaultWeights()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults, nil
		}
		return defaults, fmt.Errorf("read weights config: %w", err)
	}

	cfg := defaults
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return defaults, fmt.Errorf("parse weights config: %w", err)
	}
	return cfg, nil
}
