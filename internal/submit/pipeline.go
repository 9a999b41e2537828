// Package submit drives one report through validation, the report service and
// the download of the rendered document.
package submit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MrDragar/LDPR-reports-generator/internal/artifact"
	"github.com/MrDragar/LDPR-reports-generator/internal/gate"
	"github.com/MrDragar/LDPR-reports-generator/internal/logging"
	"github.com/MrDragar/LDPR-reports-generator/internal/normalize"
	"github.com/MrDragar/LDPR-reports-generator/internal/report"
	"github.com/MrDragar/LDPR-reports-generator/internal/reportsvc"
	"github.com/MrDragar/LDPR-reports-generator/internal/validate"
)

const module = "submit"

// User-visible messages.
const (
	MsgInvalidForm  = "Пожалуйста, исправьте ошибки в форме."
	MsgBadResponse  = "Некорректный ответ сервера"
	MsgUnreachable  = "Ошибка при формировании отчёта."
	MsgSaveFailed   = "Не удалось сохранить файл отчёта."
	MsgSucceeded    = "Отчёт успешно сформирован и скачан!"
	msgServerStatus = "Ошибка сервера: %d"
	msgFetchStatus  = "Не удалось загрузить PDF: %d"
	msgBlocked      = "Отчёт не может быть отправлен: %s"
)

// #region stage
// Stage is the pipeline's position. A run moves Idle, Validating,
// Submitting, AwaitingArtifact, Downloading, then Succeeded or Failed, and
// back to Idle.
type Stage string

const (
	StageIdle             Stage = "idle"
	StageValidating       Stage = "validating"
	StageSubmitting       Stage = "submitting"
	StageAwaitingArtifact Stage = "awaiting_artifact"
	StageDownloading      Stage = "downloading"
	StageSucceeded        Stage = "succeeded"
	StageFailed           Stage = "failed"
)
// #endregion stage

// #region failure
// Failure is a run that ended in StageFailed. Message is what the user sees.
type Failure struct {
	Stage   Stage
	Message string
	Errors  validate.Errors // set when validation stopped the run
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Stage, f.Message)
	}
	return fmt.Sprintf("%s: %s: %v", f.Stage, f.Message, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
// #endregion failure

// #region types
// Service is the remote report renderer.
type Service interface {
	Post(ctx context.Context, payload []byte) ([]byte, error)
	Decode(body []byte) (string, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Result describes a successful run.
type Result struct {
	AttemptID string
	Locator   string
	FileName  string
	Path      string
	Bytes     int
	Payload   []byte
}

// Deps wires a Pipeline. Log and OnState are optional.
type Deps struct {
	Service  Service
	Saver    artifact.Saver
	Guard    Guard
	Gate     *gate.Gate
	Logger   logrus.FieldLogger
	Log      *sql.DB
	Endpoint string
	Prefix   string
	Now      func() time.Time
	OnState  func(Stage)
}
// #endregion types

// #region pipeline
// Pipeline runs submissions. It never modifies the report it is given.
type Pipeline struct {
	deps  Deps
	mu    sync.Mutex
	stage Stage
}

func New(deps Deps) *Pipeline {
	if deps.Guard == nil {
		deps.Guard = &LocalGuard{}
	}
	if deps.Gate == nil {
		deps.Gate = gate.NewGate(gate.DefaultGateConfig())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Prefix == "" {
		deps.Prefix = artifact.DefaultPrefix
	}
	return &Pipeline{deps: deps, stage: StageIdle}
}

// State returns the current stage.
func (p *Pipeline) State() Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

func (p *Pipeline) setState(s Stage) {
	p.mu.Lock()
	p.stage = s
	p.mu.Unlock()
	if p.deps.OnState != nil {
		p.deps.OnState(s)
	}
}

// Run submits r. A concurrent call returns ErrBusy without touching the
// state; any other failure is a *Failure.
func (p *Pipeline) Run(ctx context.Context, r report.Report) (Result, error) {
	release, err := p.deps.Guard.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()
	defer p.setState(StageIdle)

	res := Result{AttemptID: uuid.New().String()}
	log := p.deps.Logger.WithFields(logrus.Fields{"attempt_id": res.AttemptID})

	// Validating
	p.setState(StageValidating)
	errs := validate.Validate(r, true)
	normalized := normalize.Report(r)
	payload, err := reportsvc.EncodePayload(normalized)
	if err != nil {
		return res, p.fail(ctx, log, res, r, &Failure{Stage: StageValidating, Message: MsgUnreachable, Err: err})
	}
	res.Payload = payload

	decision := p.deps.Gate.Evaluate(errs, normalized, payload, p.deps.Endpoint)
	if decision.Vetoed {
		f := &Failure{Stage: StageValidating, Message: MsgInvalidForm, Errors: errs}
		if decision.VetoSignals[0].Type != gate.VetoValidation {
			f.Message = fmt.Sprintf(msgBlocked, decision.VetoSignals[0].Reason)
		}
		return res, p.fail(ctx, log, res, r, f)
	}
	log.WithField("completeness", decision.Completeness).Debug(decision.Reason)

	// Submitting
	p.setState(StageSubmitting)
	body, err := p.deps.Service.Post(ctx, payload)
	if err != nil {
		return res, p.fail(ctx, log, res, r, submitFailure(err))
	}

	// AwaitingArtifact
	p.setState(StageAwaitingArtifact)
	locator, err := p.deps.Service.Decode(body)
	if err != nil {
		return res, p.fail(ctx, log, res, r, submitFailure(err))
	}
	res.Locator = locator

	// Downloading
	p.setState(StageDownloading)
	data, err := p.deps.Service.Fetch(ctx, locator)
	if err != nil {
		return res, p.fail(ctx, log, res, r, fetchFailure(err))
	}
	res.Bytes = len(data)
	res.FileName = artifact.FileName(p.deps.Prefix, r.FullNameOrDefault(), p.deps.Now(), "pdf")
	res.Path, err = p.deps.Saver.Save(res.FileName, data)
	if err != nil {
		return res, p.fail(ctx, log, res, r, &Failure{Stage: StageDownloading, Message: MsgSaveFailed, Err: err})
	}

	p.setState(StageSucceeded)
	log.WithFields(logrus.Fields{"locator": res.Locator, "file": res.Path, "bytes": res.Bytes}).Info("report submitted")
	p.record(ctx, log, logging.SubmissionEntry{
		AttemptID:   res.AttemptID,
		FullName:    r.GeneralInfo.FullName,
		Outcome:     logging.OutcomeSucceeded,
		Stage:       string(StageSucceeded),
		Message:     MsgSucceeded,
		Locator:     res.Locator,
		FileName:    res.FileName,
		PayloadHash: hash(payload),
		Bytes:       res.Bytes,
	})
	return res, nil
}
// #endregion pipeline

// #region failure-mapping
func submitFailure(err error) *Failure {
	var se *reportsvc.StatusError
	switch {
	case errors.As(err, &se):
		return &Failure{Stage: StageSubmitting, Message: fmt.Sprintf(msgServerStatus, se.Code), Err: err}
	case errors.Is(err, reportsvc.ErrBadResponse):
		return &Failure{Stage: StageAwaitingArtifact, Message: MsgBadResponse, Err: err}
	}
	return &Failure{Stage: StageSubmitting, Message: MsgUnreachable, Err: err}
}

func fetchFailure(err error) *Failure {
	var se *reportsvc.StatusError
	if errors.As(err, &se) {
		return &Failure{Stage: StageDownloading, Message: fmt.Sprintf(msgFetchStatus, se.Code), Err: err}
	}
	return &Failure{Stage: StageDownloading, Message: MsgUnreachable, Err: err}
}

func (p *Pipeline) fail(ctx context.Context, log logrus.FieldLogger, res Result, r report.Report, f *Failure) error {
	p.setState(StageFailed)
	outcome := logging.OutcomeFailed
	if f.Errors != nil && !f.Errors.Empty() {
		outcome = logging.OutcomeRejected
		log.WithFields(logrus.Fields{"stage": f.Stage, "errors": len(f.Errors)}).Warn(f.Message)
	} else {
		logging.LogError(log, module, "Run", string(f.Stage), res.Locator, f)
	}
	p.record(ctx, log, logging.SubmissionEntry{
		AttemptID:   res.AttemptID,
		FullName:    r.GeneralInfo.FullName,
		Outcome:     outcome,
		Stage:       string(f.Stage),
		Message:     f.Message,
		Locator:     res.Locator,
		PayloadHash: hash(res.Payload),
	})
	return f
}

// record appends to the submission log. A broken log never fails a run.
func (p *Pipeline) record(ctx context.Context, log logrus.FieldLogger, e logging.SubmissionEntry) {
	if p.deps.Log == nil {
		return
	}
	e.CreatedAt = p.deps.Now().UTC()
	if err := logging.LogSubmission(ctx, p.deps.Log, e); err != nil {
		logging.LogError(log, module, "record", "append submission log", e.AttemptID, err)
	}
}

func hash(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
// #endregion failure-mapping
