package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/loykin/openlist-service/internal/catalog"
	"github.com/loykin/openlist-service/internal/logsink"
	"github.com/loykin/openlist-service/internal/version"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	stats := s.sup.Stats()
	writeOK(c, http.StatusOK, stats)
}

func (s *Server) handleVersion(c *gin.Context) {
	writeOK(c, http.StatusOK, gin.H{"version": version.Version})
}

func (s *Server) handleShutdown(c *gin.Context) {
	writeOK(c, http.StatusOK, gin.H{"message": "shutting down"})
	go s.shutdownFn()
}

func (s *Server) handleList(c *gin.Context) {
	writeOK(c, http.StatusOK, s.sup.List())
}

// createProcessRequest mirrors catalog.Config minus id/timestamps, per
// spec §6's "body=ProcessConfig minus id/timestamps". Name/BinPath are
// intentionally not marked binding:"required": an empty bin_path must
// reach Supervisor.Create and fail catalog.Config.Validate so the
// error surfaces as apierr.KindInvalidConfig (409), not a gin bind
// error with no matching apierr.Kind.
type createProcessRequest struct {
	Name        string            `json:"name"`
	BinPath     string            `json:"bin_path"`
	Args        []string          `json:"args"`
	LogFile     string            `json:"log_file"`
	WorkingDir  string            `json:"working_dir"`
	EnvVars     map[string]string `json:"env_vars"`
	AutoRestart bool              `json:"auto_restart"`
	RunAsAdmin  bool              `json:"run_as_admin"`
	Priority    int               `json:"priority"`
	Schedule    string            `json:"schedule"`
}

func (s *Server) handleCreate(c *gin.Context) {
	var req createProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, http.StatusBadRequest, "invalid_request")
		return
	}
	v, err := s.sup.Create(catalog.Config{
		Name:        req.Name,
		BinPath:     req.BinPath,
		Args:        req.Args,
		LogFile:     req.LogFile,
		WorkingDir:  req.WorkingDir,
		EnvVars:     req.EnvVars,
		AutoRestart: req.AutoRestart,
		RunAsAdmin:  req.RunAsAdmin,
		Priority:    req.Priority,
		Schedule:    req.Schedule,
	})
	if err != nil {
		writeFail(c, err)
		return
	}
	writeOK(c, http.StatusCreated, v)
}

func (s *Server) handleGet(c *gin.Context) {
	v, err := s.sup.Get(c.Param("id"))
	if err != nil {
		writeFail(c, err)
		return
	}
	writeOK(c, http.StatusOK, v)
}

// updateProcessRequest carries only fields the caller wishes to
// change; nil means unchanged, matching catalog.Patch.
type updateProcessRequest struct {
	Name        *string           `json:"name"`
	BinPath     *string           `json:"bin_path"`
	Args        []string          `json:"args"`
	LogFile     *string           `json:"log_file"`
	WorkingDir  *string           `json:"working_dir"`
	EnvVars     map[string]string `json:"env_vars"`
	AutoRestart *bool             `json:"auto_restart"`
	RunAsAdmin  *bool             `json:"run_as_admin"`
	Priority    *int              `json:"priority"`
	Schedule    *string           `json:"schedule"`
}

func (s *Server) handleUpdate(c *gin.Context) {
	var req updateProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, http.StatusBadRequest, "invalid_request")
		return
	}
	v, err := s.sup.Update(c.Param("id"), catalog.Patch{
		Name:        req.Name,
		BinPath:     req.BinPath,
		Args:        req.Args,
		LogFile:     req.LogFile,
		WorkingDir:  req.WorkingDir,
		EnvVars:     req.EnvVars,
		AutoRestart: req.AutoRestart,
		RunAsAdmin:  req.RunAsAdmin,
		Priority:    req.Priority,
		Schedule:    req.Schedule,
	})
	if err != nil {
		writeFail(c, err)
		return
	}
	writeOK(c, http.StatusOK, v)
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.sup.Delete(c.Param("id")); err != nil {
		writeFail(c, err)
		return
	}
	writeOK(c, http.StatusOK, gin.H{})
}

func (s *Server) handleStart(c *gin.Context) {
	v, err := s.sup.Start(c.Param("id"))
	if err != nil {
		writeFail(c, err)
		return
	}
	writeOK(c, http.StatusOK, v)
}

func (s *Server) handleStop(c *gin.Context) {
	v, err := s.sup.Stop(c.Param("id"))
	if err != nil {
		writeFail(c, err)
		return
	}
	writeOK(c, http.StatusOK, v)
}

func (s *Server) handleLogs(c *gin.Context) {
	raw := c.Query("lines")
	lines := logsink.DefaultTailLines
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErr(c, http.StatusBadRequest, "bad_request")
			return
		}
		lines = n
	}
	out, err := s.sup.Logs(c.Param("id"), lines)
	if err != nil {
		writeFail(c, err)
		return
	}
	writeOK(c, http.StatusOK, gin.H{"lines": out})
}
