package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical gait defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/gait.defaults.json"

// GaitConfig represents the root configuration for the gait pipeline.
// Every field is optional; the Get* methods fall back to the documented
// defaults so partial files are safe.
type GaitConfig struct {
	// Stride segmentation
	FilterOrder       *int     `json:"filter_order,omitempty"`
	CutoffFrequency   *float64 `json:"cutoff_frequency,omitempty"`
	NyquistFrequency  *float64 `json:"nyquist_frequency,omitempty"`
	PeakProminence    *float64 `json:"peak_prominence,omitempty"`
	PeakDistance      *float64 `json:"peak_distance,omitempty"`
	ThresholdFraction *float64 `json:"threshold_fraction,omitempty"`
	ToeOffLookahead   *int     `json:"toeoff_lookahead,omitempty"`

	// Evaluator
	VerticalOffset    *float64 `json:"vertical_offset,omitempty"`
	AngleMedianWindow *int     `json:"angle_median_window,omitempty"` // 0 disables smoothing

	// Input conditioning
	LikelihoodThreshold *float64 `json:"likelihood_threshold,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyGaitConfig returns a GaitConfig with all fields set to nil.
// Use LoadGaitConfig to load actual values from a file.
func EmptyGaitConfig() *GaitConfig {
	return &GaitConfig{}
}

// DefaultGaitConfig returns a GaitConfig with every field populated from the
// built-in defaults. It mirrors config/gait.defaults.json.
func DefaultGaitConfig() *GaitConfig {
	c := EmptyGaitConfig()
	return &GaitConfig{
		FilterOrder:         ptrInt(c.GetFilterOrder()),
		CutoffFrequency:     ptrFloat64(c.GetCutoffFrequency()),
		NyquistFrequency:    ptrFloat64(c.GetNyquistFrequency()),
		PeakProminence:      ptrFloat64(c.GetPeakProminence()),
		PeakDistance:        ptrFloat64(c.GetPeakDistance()),
		ThresholdFraction:   ptrFloat64(c.GetThresholdFraction()),
		ToeOffLookahead:     ptrInt(c.GetToeOffLookahead()),
		VerticalOffset:      ptrFloat64(c.GetVerticalOffset()),
		AngleMedianWindow:   ptrInt(c.GetAngleMedianWindow()),
		LikelihoodThreshold: ptrFloat64(c.GetLikelihoodThreshold()),
	}
}

// LoadGaitConfig loads a GaitConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadGaitConfig(path string) (*GaitConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseGaitConfig(data)
}

// ParseGaitConfig decodes and validates a JSON document. Unknown keys are
// rejected so that a misspelt constant does not silently fall back to its
// default.
func ParseGaitConfig(data []byte) (*GaitConfig, error) {
	cfg := EmptyGaitConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *GaitConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadGaitConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *GaitConfig) Validate() error {
	if c.FilterOrder != nil && *c.FilterOrder < 1 {
		return fmt.Errorf("filter_order must be at least 1, got %d", *c.FilterOrder)
	}
	if c.NyquistFrequency != nil && *c.NyquistFrequency <= 0 {
		return fmt.Errorf("nyquist_frequency must be positive, got %f", *c.NyquistFrequency)
	}
	if wn := c.GetCutoffFrequency() / c.GetNyquistFrequency(); wn <= 0 || wn >= 1 {
		return fmt.Errorf("cutoff_frequency/nyquist_frequency must be in (0, 1), got %f", wn)
	}
	if c.PeakProminence != nil && *c.PeakProminence < 0 {
		return fmt.Errorf("peak_prominence must be non-negative, got %f", *c.PeakProminence)
	}
	if c.PeakDistance != nil && *c.PeakDistance < 0 {
		return fmt.Errorf("peak_distance must be non-negative, got %f", *c.PeakDistance)
	}
	if c.ToeOffLookahead != nil && *c.ToeOffLookahead < 0 {
		return fmt.Errorf("toeoff_lookahead must be non-negative, got %d", *c.ToeOffLookahead)
	}
	if c.VerticalOffset != nil && *c.VerticalOffset == 0 {
		return fmt.Errorf("vertical_offset must be non-zero")
	}
	if c.AngleMedianWindow != nil && *c.AngleMedianWindow < 0 {
		return fmt.Errorf("angle_median_window must be non-negative, got %d", *c.AngleMedianWindow)
	}
	if c.LikelihoodThreshold != nil {
		if *c.LikelihoodThreshold < 0 || *c.LikelihoodThreshold > 1 {
			return fmt.Errorf("likelihood_threshold must be between 0 and 1, got %f", *c.LikelihoodThreshold)
		}
	}
	return nil
}

// GetFilterOrder returns the filter_order value or the default.
func (c *GaitConfig) GetFilterOrder() int {
	if c.FilterOrder == nil {
		return 8
	}
	return *c.FilterOrder
}

// GetCutoffFrequency returns the cutoff_frequency value or the default.
func (c *GaitConfig) GetCutoffFrequency() float64 {
	if c.CutoffFrequency == nil {
		return 0.05
	}
	return *c.CutoffFrequency
}

// GetNyquistFrequency returns the nyquist_frequency value or the default.
func (c *GaitConfig) GetNyquistFrequency() float64 {
	if c.NyquistFrequency == nil {
		return 0.5
	}
	return *c.NyquistFrequency
}

// GetPeakProminence returns the peak_prominence value or the default.
func (c *GaitConfig) GetPeakProminence() float64 {
	if c.PeakProminence == nil {
		return 1
	}
	return *c.PeakProminence
}

// GetPeakDistance returns the peak_distance value or the default.
func (c *GaitConfig) GetPeakDistance() float64 {
	if c.PeakDistance == nil {
		return 25
	}
	return *c.PeakDistance
}

// GetThresholdFraction returns the threshold_fraction value or the default.
func (c *GaitConfig) GetThresholdFraction() float64 {
	if c.ThresholdFraction == nil {
		return 0.25
	}
	return *c.ThresholdFraction
}

// GetToeOffLookahead returns the toeoff_lookahead value or the default.
func (c *GaitConfig) GetToeOffLookahead() int {
	if c.ToeOffLookahead == nil {
		return 10
	}
	return *c.ToeOffLookahead
}

// GetVerticalOffset returns the vertical_offset value or the default.
func (c *GaitConfig) GetVerticalOffset() float64 {
	if c.VerticalOffset == nil {
		return 1
	}
	return *c.VerticalOffset
}

// GetAngleMedianWindow returns the angle_median_window value or the default
// (0, smoothing disabled).
func (c *GaitConfig) GetAngleMedianWindow() int {
	if c.AngleMedianWindow == nil {
		return 0
	}
	return *c.AngleMedianWindow
}

// GetLikelihoodThreshold returns the likelihood_threshold value or the
// default (0, masking disabled).
func (c *GaitConfig) GetLikelihoodThreshold() float64 {
	if c.LikelihoodThreshold == nil {
		return 0
	}
	return *c.LikelihoodThreshold
}
