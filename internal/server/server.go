// Package server exposes the report form controller as JSON over HTTP.
package server

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MrDragar/LDPR-reports-generator/internal/form"
	"github.com/MrDragar/LDPR-reports-generator/internal/mutate"
	"github.com/MrDragar/LDPR-reports-generator/internal/submit"
)

// MaxImportBytes bounds an imported report document.
const MaxImportBytes = 4 << 20

const (
	mimeJSON = "application/json"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// #region router
// Options configures the router.
type Options struct {
	Logger      logrus.FieldLogger
	CORSOrigins []string
}

// New builds the gin engine for ctrl.
func New(ctrl *form.Controller, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	h := &handlers{ctrl: ctrl}

	r := gin.New()
	r.Use(requestID())
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	r.Use(accessLog(opts.Logger))
	r.Use(gin.Recovery())

	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	api := r.Group("/api")
	api.GET("/report", h.view)
	api.POST("/report/ops", h.apply)
	api.POST("/report/undo", h.undo)
	api.POST("/report/reset", h.reset)
	api.POST("/report/import", h.importReport)
	api.GET("/report/export.json", h.exportJSON)
	api.GET("/report/export.xlsx", h.exportXLSX)
	api.POST("/report/submit", h.submit)
	api.GET("/notices", h.notices)
	api.DELETE("/notices/:id", h.dismiss)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AddAllowMethods("GET", "POST", "DELETE", "OPTIONS")
	cfg.AddAllowHeaders("Origin", "Content-Type", "X-Request-Id")
	cfg.AddExposeHeaders("Content-Length", "Content-Disposition")
	return cfg
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func accessLog(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": c.GetString("request_id"),
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
			return
		}
		entry.Debug("request")
	}
}
// #endregion router

// #region handlers
type handlers struct {
	ctrl *form.Controller
}

func (h *handlers) view(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.View())
}

func (h *handlers) apply(c *gin.Context) {
	var op mutate.Op
	if err := c.ShouldBindJSON(&op); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	v, err := h.ctrl.Apply(c.Request.Context(), op)
	if err != nil {
		c.JSON(opStatus(err), gin.H{"error": err.Error(), "view": v})
		return
	}
	c.JSON(http.StatusOK, v)
}

func opStatus(err error) int {
	switch {
	case errors.Is(err, mutate.ErrIndexOutOfRange):
		return http.StatusConflict
	case errors.Is(err, mutate.ErrUnknownField), errors.Is(err, mutate.ErrValueType), errors.Is(err, mutate.ErrBadOp):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *handlers) undo(c *gin.Context) {
	v, ok := h.ctrl.Undo(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"undone": ok, "view": v})
}

func (h *handlers) reset(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.Reset(c.Request.Context()))
}

// importReport accepts either a raw JSON body or a multipart "file" field.
func (h *handlers) importReport(c *gin.Context) {
	data, err := readImport(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	v, err := h.ctrl.Import(c.Request.Context(), data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": form.MsgImportFailed, "view": v})
		return
	}
	c.JSON(http.StatusOK, v)
}

func readImport(c *gin.Context) ([]byte, error) {
	if c.ContentType() == "multipart/form-data" {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, MaxImportBytes))
	}
	return io.ReadAll(io.LimitReader(c.Request.Body, MaxImportBytes))
}

func (h *handlers) exportJSON(c *gin.Context) {
	f, err := h.ctrl.ExportJSON()
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": form.MsgExportJSONFail})
		return
	}
	download(c, f, mimeJSON)
}

func (h *handlers) exportXLSX(c *gin.Context) {
	f, err := h.ctrl.ExportXLSX()
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": form.MsgExportXLSXFail})
		return
	}
	download(c, f, mimeXLSX)
}

func download(c *gin.Context, f form.File, mime string) {
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(f.Name))
	c.Data(http.StatusOK, mime, f.Data)
}

func (h *handlers) submit(c *gin.Context) {
	res, err := h.ctrl.Submit(c.Request.Context())
	if err == nil {
		c.JSON(http.StatusOK, gin.H{
			"attempt_id": res.AttemptID,
			"file_name":  res.FileName,
			"locator":    res.Locator,
			"bytes":      res.Bytes,
			"message":    submit.MsgSucceeded,
		})
		return
	}

	var fail *submit.Failure
	switch {
	case errors.As(err, &fail):
		status := http.StatusBadGateway
		if fail.Stage == submit.StageValidating {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": fail.Message, "stage": fail.Stage, "errors": fail.Errors})
	case errors.Is(err, submit.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": form.MsgBusy})
	case errors.Is(err, form.ErrNoPipeline):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": submit.MsgUnreachable})
	}
}

func (h *handlers) notices(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.Notices().List())
}

func (h *handlers) dismiss(c *gin.Context) {
	if !h.ctrl.Notices().Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notice not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
// #endregion handlers
