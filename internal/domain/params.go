package domain

// Params are the run parameters consumed by unit extraction and persisted
// as metadata on the written dataset.
type Params struct {
	// HoursBefore and HoursAfter bound the forcing-data window around the
	// landfall time.
	HoursBefore float64 `json:"hours_before"`
	HoursAfter  float64 `json:"hours_after"`
	// CoastalDistCutoff excludes mesh nodes farther than this from the
	// coastline, in km.
	CoastalDistCutoff float64 `json:"cutoff_coastal_dist"`
	// MaxDepth and MinDepth bound the bathymetric depth of selected nodes.
	MaxDepth float64 `json:"max_depth"`
	MinDepth float64 `json:"min_depth"`
	// Radius excludes nodes farther than this from the landfall point, in km.
	Radius float64 `json:"r"`
	// DownsampleFactor keeps every n-th node of the masked selection.
	DownsampleFactor int `json:"downsample_factor"`
}

// DefaultParams returns the documented parameter defaults.
func DefaultParams() Params {
	return Params{
		HoursBefore:       6,
		HoursAfter:        6,
		CoastalDistCutoff: 30,
		MaxDepth:          2,
		MinDepth:          -4,
		Radius:            150,
		DownsampleFactor:  10,
	}
}
