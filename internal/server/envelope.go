package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/openlist-service/internal/apierr"
)

// Envelope is the response shape every endpoint but /health and
// /metrics returns,
// per spec §4.5: success/error are mutually exclusive and success
// always lines up with a 2xx status.
type Envelope struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp int64   `json:"timestamp"`
}

func writeOK(c *gin.Context, code int, data any) {
	c.JSON(code, Envelope{Success: true, Data: data, Timestamp: time.Now().Unix()})
}

func writeErr(c *gin.Context, code int, kind string) {
	c.JSON(code, Envelope{Success: false, Error: &kind, Timestamp: time.Now().Unix()})
}

// writeFail translates a Supervisor/apierr failure into the envelope
// form, mapping Kind to HTTP status per spec §4.5.
func writeFail(c *gin.Context, err error) {
	ae := apierr.As(err)
	if ae == nil {
		writeErr(c, http.StatusInternalServerError, string(apierr.KindInternal))
		return
	}
	status := http.StatusInternalServerError
	switch ae.Kind {
	case apierr.KindNotFound:
		status = http.StatusNotFound
	case apierr.KindAlreadyRunning, apierr.KindNotRunning, apierr.KindInvalidConfig, apierr.KindAlreadyExists:
		status = http.StatusConflict
	case apierr.KindLaunchFailed, apierr.KindPersistenceFail, apierr.KindInternal:
		status = http.StatusInternalServerError
	case apierr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apierr.KindBadRequest:
		status = http.StatusBadRequest
	}
	kind := string(ae.Kind)
	c.JSON(status, Envelope{Success: false, Error: &kind, Timestamp: time.Now().Unix()})
}
