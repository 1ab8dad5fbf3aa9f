package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"fusionguard/internal/telemetry"
)

// ErrUnsupportedFormat marks inputs this build cannot decode.
var ErrUnsupportedFormat = fmt.Errorf("unsupported input format: %w", telemetry.ErrUnsupportedConfiguration)

// Format identifies an input encoding.
type Format int

const (
	FormatAuto Format = iota
	FormatCSV
	FormatHDF5
	FormatNetCDF
	FormatSynthetic
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatHDF5:
		return "hdf5"
	case FormatNetCDF:
		return "netcdf"
	case FormatSynthetic:
		return "synthetic"
	default:
		return "auto"
	}
}

// ParseFormat resolves a format name; an empty name means auto-detection.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return FormatAuto, nil
	case "csv":
		return FormatCSV, nil
	case "hdf5", "h5":
		return FormatHDF5, nil
	case "netcdf", "nc":
		return FormatNetCDF, nil
	case "synthetic":
		return FormatSynthetic, nil
	default:
		return FormatAuto, fmt.Errorf("format %q: %w", name, ErrUnsupportedFormat)
	}
}

// DetectFormat picks the format from the file suffix.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".h5", ".hdf5":
		return FormatHDF5, nil
	case ".nc", ".netcdf":
		return FormatNetCDF, nil
	default:
		return FormatAuto, fmt.Errorf("detect format of %s: %w", path, ErrUnsupportedFormat)
	}
}

// IsUnsupported reports whether err stems from an unsupported format.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat)
}
