// Package form owns the single working report and everything derived from
// it: field errors, the submission latch, undo history, draft persistence,
// notices and the submission pipeline.
package form

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MrDragar/LDPR-reports-generator/internal/artifact"
	"github.com/MrDragar/LDPR-reports-generator/internal/draft"
	"github.com/MrDragar/LDPR-reports-generator/internal/logging"
	"github.com/MrDragar/LDPR-reports-generator/internal/mutate"
	"github.com/MrDragar/LDPR-reports-generator/internal/notice"
	"github.com/MrDragar/LDPR-reports-generator/internal/report"
	"github.com/MrDragar/LDPR-reports-generator/internal/submit"
	"github.com/MrDragar/LDPR-reports-generator/internal/validate"
)

const module = "form"

// Notice texts.
const (
	MsgDraftSaveFailed = "Не удалось сохранить черновик."
	MsgDraftClearFail  = "Не удалось удалить черновик."
	MsgReset           = "Форма очищена"
	MsgImported        = "Данные успешно импортированы"
	MsgImportFailed    = "Ошибка при импорте JSON файла"
	MsgExportedJSON    = "JSON файл успешно экспортирован"
	MsgExportJSONFail  = "Ошибка при экспорте JSON файла"
	MsgExportedXLSX    = "Файл Excel успешно экспортирован"
	MsgExportXLSXFail  = "Ошибка при экспорте файла Excel"
	MsgBusy            = "Отчёт уже формируется, подождите."
)

// DefaultHistory bounds the undo stack when Deps.History is zero.
const DefaultHistory = 100

// #region types
// Deps wires a Controller. Pipeline may be nil for tools that never submit.
type Deps struct {
	Draft    *draft.Adapter
	Notices  *notice.Board
	Pipeline *submit.Pipeline
	Logger   logrus.FieldLogger
	Prefix   string
	Now      func() time.Time
	History  int
}

// View is a consistent snapshot for rendering.
type View struct {
	Report     report.Report   `json:"report"`
	Errors     validate.Errors `json:"errors"`
	Attempted  bool            `json:"submission_attempted"`
	Submitting bool            `json:"submitting"`
	Stage      submit.Stage    `json:"stage"`
	CanUndo    bool            `json:"can_undo"`
}

// File is an export ready for download.
type File struct {
	Name string
	Data []byte
}
// #endregion types

// #region controller
// Controller serializes every change to the working report.
type Controller struct {
	deps Deps

	mu         sync.Mutex
	report     report.Report
	latch      validate.Latch
	errs       validate.Errors
	history    []report.Report
	submitting bool
}

// New restores the saved draft, or starts from the default report.
func New(ctx context.Context, deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.History <= 0 {
		deps.History = DefaultHistory
	}
	if deps.Notices == nil {
		deps.Notices = notice.NewBoard(0)
	}

	r := report.Default()
	if deps.Draft != nil {
		var restored bool
		r, restored = deps.Draft.Load(ctx)
		if restored {
			deps.Logger.WithField("full_name", r.GeneralInfo.FullName).Info("draft restored")
		}
	}
	c := &Controller{deps: deps, report: r}
	c.revalidate()
	return c
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	errs := make(validate.Errors, len(c.errs))
	for k, v := range c.errs {
		errs[k] = v
	}
	stage := submit.StageIdle
	if c.deps.Pipeline != nil {
		stage = c.deps.Pipeline.State()
	}
	return View{
		Report:     c.report.Clone(),
		Errors:     errs,
		Attempted:  c.latch.Attempted(),
		Submitting: c.submitting,
		Stage:      stage,
		CanUndo:    len(c.history) > 0,
	}
}

// Notices exposes the notice board.
func (c *Controller) Notices() *notice.Board { return c.deps.Notices }

// Submitting reports whether a submission is in flight.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

func (c *Controller) revalidate() {
	c.errs = validate.Validate(c.report, c.latch.Attempted())
}

// replace installs next as the working report, remembering the previous one.
func (c *Controller) replace(ctx context.Context, next report.Report) {
	c.history = append(c.history, c.report)
	if over := len(c.history) - c.deps.History; over > 0 {
		c.history = append([]report.Report(nil), c.history[over:]...)
	}
	c.report = next
	c.revalidate()
	c.persist(ctx)
}

func (c *Controller) persist(ctx context.Context) {
	if c.deps.Draft == nil {
		return
	}
	if err := c.deps.Draft.Save(ctx, c.report); err != nil {
		c.deps.Notices.Error(MsgDraftSaveFailed)
	}
}
// #endregion controller

// #region edits
// Apply runs one edit. A rejected edit returns its error and changes
// nothing; an edit that leaves the report structurally equal is a no-op.
func (c *Controller) Apply(ctx context.Context, op mutate.Op) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := mutate.Apply(c.report, op)
	if err != nil {
		return c.viewLocked(), err
	}
	if reflect.DeepEqual(next, c.report) {
		return c.viewLocked(), nil
	}
	c.replace(ctx, next)
	return c.viewLocked(), nil
}

// Undo restores the report as it was before the last change. It reports
// false when there is nothing to undo.
func (c *Controller) Undo(ctx context.Context) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.history) == 0 {
		return c.viewLocked(), false
	}
	last := len(c.history) - 1
	c.report = c.history[last]
	c.history = c.history[:last]
	c.revalidate()
	c.persist(ctx)
	return c.viewLocked(), true
}

// Reset returns to the default report, clears the latch, the history and
// the saved draft.
func (c *Controller) Reset(ctx context.Context) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.report = report.Default()
	c.latch.Reset()
	c.history = nil
	c.revalidate()
	if c.deps.Draft != nil {
		if err := c.deps.Draft.Clear(ctx); err != nil {
			c.deps.Notices.Error(MsgDraftClearFail)
		}
	}
	c.deps.Notices.Success(MsgReset)
	return c.viewLocked()
}

// Import replaces the report with data merged over the default report. A
// document that does not parse leaves the report untouched.
func (c *Controller) Import(ctx context.Context, data []byte) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := report.MergeLoaded(report.Default(), data)
	if err != nil {
		logging.LogError(c.deps.Logger, module, "Import", "parse imported report", len(data), err)
		c.deps.Notices.Error(MsgImportFailed)
		return c.viewLocked(), err
	}
	c.replace(ctx, next)
	c.deps.Notices.Success(MsgImported)
	return c.viewLocked(), nil
}
// #endregion edits

// #region exports
// ExportJSON renders the normalized report as a downloadable JSON file.
func (c *Controller) ExportJSON() (File, error) {
	r := c.View().Report
	name, data, err := artifact.ExportJSON(r, c.deps.Prefix, c.deps.Now())
	if err != nil {
		logging.LogError(c.deps.Logger, module, "ExportJSON", "render export", nil, err)
		c.deps.Notices.Error(MsgExportJSONFail)
		return File{}, err
	}
	c.deps.Notices.Success(MsgExportedJSON)
	return File{Name: name, Data: data}, nil
}

// ExportXLSX renders the normalized report as a spreadsheet.
func (c *Controller) ExportXLSX() (File, error) {
	r := c.View().Report
	name, data, err := artifact.ExportXLSX(r, c.deps.Prefix, c.deps.Now())
	if err != nil {
		logging.LogError(c.deps.Logger, module, "ExportXLSX", "render workbook", nil, err)
		c.deps.Notices.Error(MsgExportXLSXFail)
		return File{}, err
	}
	c.deps.Notices.Success(MsgExportedXLSX)
	return File{Name: name, Data: data}, nil
}
// #endregion exports

// #region submit
// ErrNoPipeline is returned by Submit on a controller built without one.
var ErrNoPipeline = errors.New("submission is not configured")

// Submit latches the submission attempt, then runs the pipeline on a
// snapshot without holding the lock, so edits stay possible meanwhile.
func (c *Controller) Submit(ctx context.Context) (submit.Result, error) {
	c.mu.Lock()
	c.latch.Set()
	c.revalidate()
	if c.deps.Pipeline == nil {
		c.mu.Unlock()
		return submit.Result{}, ErrNoPipeline
	}
	if c.submitting {
		c.mu.Unlock()
		c.deps.Notices.Error(MsgBusy)
		return submit.Result{}, submit.ErrBusy
	}
	c.submitting = true
	snapshot := c.report.Clone()
	c.mu.Unlock()

	res, err := c.deps.Pipeline.Run(ctx, snapshot)

	c.mu.Lock()
	c.submitting = false
	c.mu.Unlock()

	var fail *submit.Failure
	switch {
	case err == nil:
		c.deps.Notices.Success(submit.MsgSucceeded)
	case errors.As(err, &fail):
		c.deps.Notices.Error(fail.Message)
	case errors.Is(err, submit.ErrBusy):
		c.deps.Notices.Error(MsgBusy)
	default:
		c.deps.Notices.Error(submit.MsgUnreachable)
	}
	return res, err
}
// #endregion submit
