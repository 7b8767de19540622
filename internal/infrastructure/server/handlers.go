package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fortunadb/ateles/internal/engine"
	"github.com/fortunadb/ateles/internal/wire"
)

const greeting = "HELLO Ateles on Go with goja!!!!"

// responseContentType matches what protocol clients expect for the binary
// response body.
const responseContentType = "application/octet-stream"

func (s *Server) root(c *gin.Context) {
	c.String(http.StatusOK, greeting)
}

func (s *Server) health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// execute decodes one command, runs it on the connection's session and
// encodes the outcome. Well-formed requests always get a 200 with a
// status field; only malformed bytes produce a 400, and nothing on this
// path crashes the listener.
func (s *Server) execute(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxRequestBytes))
	if err != nil {
		s.respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	req, err := wire.UnmarshalRequest(body)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	holder, ok := c.Request.Context().Value(connSessionKey{}).(*sessionHolder)
	if !ok {
		s.respondError(c, http.StatusInternalServerError, "no session bound to connection")
		return
	}
	sess, err := holder.session()
	if err != nil {
		s.respondError(c, http.StatusOK, err.Error())
		return
	}

	cmd := engine.Translate(req.Action, req.Script, req.Args)
	timeout := s.timeoutFor(req.Timeout)

	start := time.Now()
	pending := sess.Run(cmd)
	out := sess.Await(c.Request.Context(), pending, timeout)

	status := wire.StatusOK
	if !out.OK {
		status = wire.StatusError
	}
	resp := &wire.JsResponse{Status: status, Result: out.Text}

	s.logger.Info("request executed",
		zap.String("operation", cmd.Op.String()),
		zap.String("session_id", sess.ID()),
		zap.Int32("status", status),
		zap.Duration("duration", time.Since(start)),
	)
	c.Data(http.StatusOK, responseContentType, resp.Marshal())
}

func (s *Server) respondError(c *gin.Context, httpStatus int, msg string) {
	resp := &wire.JsResponse{Status: wire.StatusError, Result: msg}
	c.Data(httpStatus, responseContentType, resp.Marshal())
}

// timeoutFor converts the request's advisory timeout into the enforced
// budget: missing or non-positive values use the configured default and
// everything is clamped to the configured maximum.
func (s *Server) timeoutFor(requestMS int32) time.Duration {
	ms := int(requestMS)
	if ms <= 0 {
		ms = s.cfg.Engine.DefaultTimeoutMS
	}
	if max := s.cfg.Engine.MaxTimeoutMS; max > 0 && ms > max {
		ms = max
	}
	return time.Duration(ms) * time.Millisecond
}
