package risk

import (
	"fmt"
	"math"

	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Calibrator maps a raw log-odds score to a bounded approval probability.
type Calibrator struct{}

// NewCalibrator creates a Calibrator.
func NewCalibrator() *Calibrator {
	return &Calibrator{}
}

// Calibrate applies the configured calibration method. The isotonic method
// is a named placeholder; selecting it fails fast instead of silently
// falling back to logistic.
func (c *Calibrator) Calibrate(t *config.Tables, raw float64) (float64, error) {
	cal := t.Risk.Calibration
	switch cal.Method {
	case config.CalibrationLogistic:
		return logistic(cal, raw), nil
	case config.CalibrationIsotonic:
		return 0, fmt.Errorf("%w: isotonic calibration", domain.ErrNotImplemented)
	default:
		// Store validation rejects unknown methods; hitting this means a
		// hand-built snapshot skipped Validate
		return 0, fmt.Errorf("%w: calibration method %q", domain.ErrNotImplemented, cal.Method)
	}
}

// logistic is Platt scaling: p = 1 / (1 + exp(-(scale*raw + bias))).
// Exponent overflow drives p to 0 or 1 and is recovered by the clamp, as is
// a NaN raw score.
func logistic(cal config.CalibrationParams, raw float64) float64 {
	z := cal.Scale*raw + cal.Bias
	p := 1.0 / (1.0 + math.Exp(-z))
	if math.IsNaN(p) {
		return cal.PMin
	}
	if p < cal.PMin {
		return cal.PMin
	}
	if p > cal.PMax {
		return cal.PMax
	}
	return p
}
