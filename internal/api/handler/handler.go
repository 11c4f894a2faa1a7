package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"go-roundflow/internal/api/dto"
	"go-roundflow/internal/core/ports"
	"go-roundflow/internal/domain"
	"go-roundflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RunHandler struct {
	service service.RunService
	bus     ports.EventBus
}

func NewRunHandler(svc service.RunService, bus ports.EventBus) *RunHandler {
	return &RunHandler{service: svc, bus: bus}
}

// Register mounts the run routes on an /api/v1 group.
func (h *RunHandler) Register(api *gin.RouterGroup) {
	api.POST("/workflows/:kind", h.SubmitRun)
	api.POST("/runs/:id/retry", h.RetryRun)
	api.GET("/runs/:id", h.GetRun)
	api.GET("/runs/:id/events", h.StreamEvents)
	api.POST("/payouts/classify", h.ClassifyPayouts)
}

func (h *RunHandler) SubmitRun(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	wait := waitParam(c)
	run, err := h.service.SubmitRun(c.Request.Context(), c.Param("kind"), payload, wait)
	if err != nil {
		respondError(c, err, run)
		return
	}

	status := http.StatusAccepted
	if wait {
		status = http.StatusCreated
	}
	c.JSON(status, run)
}

func (h *RunHandler) RetryRun(c *gin.Context) {
	runID, ok := runIDParam(c)
	if !ok {
		return
	}
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	wait := waitParam(c)
	run, err := h.service.RetryRun(c.Request.Context(), runID, payload, wait)
	if err != nil {
		respondError(c, err, run)
		return
	}

	status := http.StatusAccepted
	if wait {
		status = http.StatusOK
	}
	c.JSON(status, run)
}

func (h *RunHandler) GetRun(c *gin.Context) {
	runID, ok := runIDParam(c)
	if !ok {
		return
	}
	run, err := h.service.GetRun(c.Request.Context(), runID)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, run)
}

// StreamEvents sends the current run as a "snapshot" event followed by its
// phase transitions as "phase" events until the client goes away.
func (h *RunHandler) StreamEvents(c *gin.Context) {
	runID, ok := runIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	run, err := h.service.GetRun(ctx, runID)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	events, err := h.bus.SubscribeToEvents(ctx)
	if err != nil {
		log.Printf("Handler: subscribe for run %s failed: %v", runID, err)
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "event stream unavailable"})
		return
	}

	c.SSEvent("snapshot", run)
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			if event.RunID == runID {
				c.SSEvent("phase", event)
			}
			return true
		}
	})
}

func (h *RunHandler) ClassifyPayouts(c *gin.Context) {
	var req dto.ClassifyPayoutsRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.service.ClassifyPayouts(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func runIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid run id"})
		return uuid.Nil, false
	}
	return id, true
}

func waitParam(c *gin.Context) bool {
	wait, _ := strconv.ParseBool(c.Query("wait"))
	return wait
}

func respondError(c *gin.Context, err error, run *dto.RunResponse) {
	resp := dto.ErrorResponse{Error: err.Error(), Run: run}

	var phaseErr *domain.PhaseFailure
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidPayload):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyFinalized):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNoSigner):
		status = http.StatusServiceUnavailable
	case errors.As(err, &phaseErr):
		status = http.StatusBadGateway
		resp.Category = domain.CategoryOf(err)
	}
	c.JSON(status, resp)
}
