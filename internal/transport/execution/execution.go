package execution

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagent "github.com/alanyang/agent-exec/internal/domain/agent"
	domainexec "github.com/alanyang/agent-exec/internal/domain/execution"
	portidem "github.com/alanyang/agent-exec/internal/port/idempotency"
	execsvc "github.com/alanyang/agent-exec/internal/service/execution"
	trackersvc "github.com/alanyang/agent-exec/internal/service/tracker"
)

const (
	idempotencyHeader = "Idempotency-Key"
	opExecuteAgent    = "execute_agent"
)

func Register(rg *gin.RouterGroup, core *execsvc.Core, tracker *trackersvc.Service, idem portidem.Store) {
	rg.POST("", executeAgent(core, idem))
	rg.GET("", listExecutions(tracker))
	rg.GET("/:id", getExecution(tracker))
}

type executeReq struct {
	AgentName      string         `json:"agent_name" binding:"required"`
	UserID         string         `json:"user_id" binding:"required"`
	ThreadID       string         `json:"thread_id"`
	CorrelationID  string         `json:"correlation_id"`
	RetryCount     int            `json:"retry_count" binding:"min=0"`
	UserRequest    string         `json:"user_request"`
	Context        map[string]any `json:"context"`
	TimeoutSeconds float64        `json:"timeout_seconds" binding:"min=0"`
}

// executeAgent runs the agent synchronously. A failed run is still a 200:
// the request succeeded, the run did not. Idempotency keys are scoped to the
// requesting user; reusing a key for a different request is a 422.
func executeAgent(core *execsvc.Core, idem portidem.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req executeReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		key := c.GetHeader(idempotencyHeader)
		useIdem := key != "" && idem != nil
		var scoped, hash string
		if useIdem {
			scoped = scopedKey(req.UserID, key)
			hash = req.fingerprint()
			op, ok, err := idem.Check(ctx, scoped)
			switch {
			case err != nil:
				slog.WarnContext(ctx, "idempotency check failed", "key", key, "user_id", req.UserID, "error", err)
			case ok && op.RequestHash != hash:
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Idempotency-Key was already used for a different request"})
				return
			case ok:
				c.Header("Idempotent-Replayed", "true")
				c.Data(http.StatusOK, "application/json; charset=utf-8", op.Result)
				return
			}
		}

		ec := domainexec.NewContext(req.AgentName, req.CorrelationID)
		ec.RetryCount = req.RetryCount

		state := domainagent.NewState(req.UserID, req.ThreadID, req.UserRequest)
		state.RunID = ec.RunID.String()
		for k, v := range req.Context {
			state.Context[k] = v
		}

		timeout := time.Duration(req.TimeoutSeconds * float64(time.Second))
		result := core.ExecuteAgent(ctx, ec, state, timeout)

		body, err := json.Marshal(execsvc.ResultPayload(result, ec.RunID))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if useIdem {
			op := portidem.Operation{RunID: ec.RunID, Type: opExecuteAgent, RequestHash: hash, Result: body}
			if err := idem.Store(context.WithoutCancel(ctx), scoped, op); err != nil {
				slog.WarnContext(ctx, "failed to store idempotency key", "key", key, "run_id", ec.RunID, "error", err)
			}
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

// scopedKey prefixes the user id with its length so no (user, key) pair can
// collide with another.
func scopedKey(userID, key string) string {
	return strconv.Itoa(len(userID)) + ":" + userID + ":" + key
}

// fingerprint hashes the canonical JSON of the request. Map keys are encoded
// sorted, so equal requests hash equally.
func (r executeReq) fingerprint() string {
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

func listExecutions(tracker *trackersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters domainexec.ListFilters

		if v := c.Query("user_id"); v != "" {
			filters.UserID = &v
		}
		if v := c.Query("agent_name"); v != "" {
			filters.AgentName = &v
		}
		if v := c.Query("status"); v != "" {
			s := domainexec.Status(v)
			filters.Status = &s
		}
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			filters.Limit = n
		}

		recs, err := tracker.List(c.Request.Context(), filters)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if recs == nil {
			recs = []domainexec.Record{}
		}
		c.JSON(http.StatusOK, recs)
	}
}

func getExecution(tracker *trackersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		rec, err := tracker.GetByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, trackersvc.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}
