package telemetry

import "errors"

// Error kinds shared by every pipeline stage. Stage errors wrap one of these so
// callers can classify failures with errors.Is.
var (
	// ErrInvalidInput marks fatal input problems: missing columns, empty arrays,
	// windows shorter than one sample, unresolved disruption info.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedConfiguration marks a request the pipeline cannot honour,
	// such as an unknown calibration kind.
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")
	// ErrDegenerateData marks data on which a metric is undefined, e.g. a
	// single-class label set for ROC-AUC.
	ErrDegenerateData = errors.New("degenerate data")
)
