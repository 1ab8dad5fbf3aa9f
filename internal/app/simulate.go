package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fusionguard/internal/calibration"
	"fusionguard/internal/evaluation"
	"fusionguard/internal/pipeline"
	"fusionguard/internal/service"
)

// SimulateAlert pushes a fabricated evaluation through the quality gate so
// that notification delivery can be checked without training a model.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is disabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	result := &pipeline.Result{
		Horizons: []pipeline.HorizonResult{{
			HorizonMs:   opts.HorizonMs,
			Calibration: calibration.IdentityModel{},
			Report: evaluation.Report{
				ROCAUC:           opts.ROCAUC,
				CalibrationError: opts.CalibrationError,
			},
		}},
	}

	svc := service.New(a.Config, nil, notifier, nil, a.Logger)
	outcomes, err := svc.Publish(ctx, uuid.New(), "simulated", result)
	if err != nil {
		return err
	}
	if len(outcomes) == 1 && len(outcomes[0].Violations) == 0 {
		return fmt.Errorf("roc_auc %.3f and calibration_error %.3f pass the quality gate; nothing to send", opts.ROCAUC, opts.CalibrationError)
	}
	return nil
}
