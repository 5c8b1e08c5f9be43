// Package config holds runtime configuration for the slot editor and the
// save endpoint service.
package config

import (
	"encoding/json"
	"os"
	"time"

	"slot-editor/pkg/colorutil"
)

// Config holds runtime configuration. Fields are loaded from a JSON file and
// may be overridden by command-line flags.
type Config struct {
	Debug bool `json:"debug"`

	// Editor
	MinRectSize float64 `json:"min_rect_size"`
	ZoomMin     float64 `json:"zoom_min"`
	ZoomMax     float64 `json:"zoom_max"`
	ZoomStep    float64 `json:"zoom_step"`
	FitPadding  float64 `json:"fit_padding"`

	// Overlay colors, "#RRGGBB" or "#RRGGBBAA"
	SlotStroke    string `json:"slot_stroke"`
	SlotFill      string `json:"slot_fill"`
	LabelColor    string `json:"label_color"`
	PendingColor  string `json:"pending_color"`
	OccupiedColor string `json:"occupied_color"`
	VacantColor   string `json:"vacant_color"`

	// Persistence
	SaveURL        string `json:"save_url"`
	SlotsURL       string `json:"slots_url"`
	DashboardURL   string `json:"dashboard_url"`
	RequestTimeout int    `json:"request_timeout_seconds"`

	// Save endpoint service
	ListenAddr string `json:"listen_addr"`
	DataDir    string `json:"data_dir"`

	// Occupancy
	OccupancyThreshold int `json:"occupancy_threshold"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:              false,
		MinRectSize:        10,
		ZoomMin:            0.2,
		ZoomMax:            5.0,
		ZoomStep:           0.1,
		FitPadding:         80,
		SlotStroke:         "#00FF00",
		SlotFill:           "#00FF0033",
		LabelColor:         "#FFFFFF",
		PendingColor:       "#FFFF00",
		OccupiedColor:      "#FF0000",
		VacantColor:        "#00FF00",
		SaveURL:            "http://localhost:8080/api/save_slots",
		SlotsURL:           "http://localhost:8080/api/slots",
		DashboardURL:       "http://localhost:8080/lots",
		RequestTimeout:     15,
		ListenAddr:         ":8080",
		DataDir:            "",
		OccupancyThreshold: 800,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	d := DefaultConfig()
	if c.MinRectSize < 0 {
		c.MinRectSize = d.MinRectSize
	}
	if c.ZoomMin <= 0 {
		c.ZoomMin = d.ZoomMin
	}
	if c.ZoomMax < c.ZoomMin {
		c.ZoomMax = d.ZoomMax
		if c.ZoomMax < c.ZoomMin {
			c.ZoomMin, c.ZoomMax = d.ZoomMin, d.ZoomMax
		}
	}
	if c.ZoomStep <= 0 || c.ZoomStep > c.ZoomMax-c.ZoomMin {
		c.ZoomStep = d.ZoomStep
	}
	if c.FitPadding < 0 {
		c.FitPadding = 0
	}
	fixColor := func(v *string, def string) {
		if _, err := colorutil.ParseHex(*v); err != nil {
			*v = def
		}
	}
	fixColor(&c.SlotStroke, d.SlotStroke)
	fixColor(&c.SlotFill, d.SlotFill)
	fixColor(&c.LabelColor, d.LabelColor)
	fixColor(&c.PendingColor, d.PendingColor)
	fixColor(&c.OccupiedColor, d.OccupiedColor)
	fixColor(&c.VacantColor, d.VacantColor)
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.OccupancyThreshold <= 0 {
		c.OccupancyThreshold = d.OccupancyThreshold
	}
	return nil
}

// Timeout returns the persistence request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return DefaultConfig(), err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
