package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/MrDragar/LDPR-reports-generator/internal/logging"
	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

const module = "draft"

// #region adapter
// Adapter converts between the store's bytes and report values.
type Adapter struct {
	store  Store
	logger logrus.FieldLogger
}

func NewAdapter(store Store, logger logrus.FieldLogger) *Adapter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Adapter{store: store, logger: logger}
}

// Store returns the wrapped store.
func (a *Adapter) Store() Store { return a.store }

// Load restores the saved report merged over the default. It never fails:
// an empty slot, an unreadable store or a corrupt payload all yield the
// default report and false, the last two after logging.
func (a *Adapter) Load(ctx context.Context) (report.Report, bool) {
	payload, err := a.store.Load(ctx)
	if errors.Is(err, ErrNoDraft) {
		return report.Default(), false
	}
	if err != nil {
		logging.LogError(a.logger, module, "Load", "read draft", nil, err)
		return report.Default(), false
	}

	r, err := report.MergeLoaded(report.Default(), payload)
	if err != nil {
		logging.LogError(a.logger, module, "Load", "corrupt draft, starting from default", len(payload), err)
		return report.Default(), false
	}
	return r, true
}

// Save serializes r into the slot. Errors are logged and returned; the
// caller decides how to surface them.
func (a *Adapter) Save(ctx context.Context, r report.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		logging.LogError(a.logger, module, "Save", "encode draft", nil, err)
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := a.store.Save(ctx, payload); err != nil {
		logging.LogError(a.logger, module, "Save", "write draft", nil, err)
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (a *Adapter) Clear(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		logging.LogError(a.logger, module, "Clear", "clear draft", nil, err)
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
// #endregion adapter
