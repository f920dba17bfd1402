package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/range-feed-service/internal/repository"
	"github.com/maxviazov/range-feed-service/internal/service"
	"github.com/maxviazov/range-feed-service/pkg/response"
)

// EventHandler serves topic feeds: publishing and range-paginated reads.
type EventHandler struct {
	svc service.FeedService
}

// NewEventHandler creates a new EventHandler backed by svc.
func NewEventHandler(svc service.FeedService) *EventHandler { return &EventHandler{svc: svc} }

func (h *EventHandler) Register(r *gin.RouterGroup) {
	g := r.Group("/topics")
	{
		g.GET("", h.listTopics)
		g.GET("/:topic/events", h.read)
		g.POST("/:topic/events", h.publish)
		g.POST("/:topic/events/batch", h.publishBatch)
	}
}

type publishRequest struct {
	Payload json.RawMessage `json:"payload"`
	Final   bool            `json:"final"`
}

type publishBatchRequest struct {
	Events []publishRequest `json:"events"`
}

func (h *EventHandler) publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	e, err := h.svc.Publish(c.Request.Context(), c.Param("topic"), service.EventInput{Payload: req.Payload, Final: req.Final})
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, e)
}

func (h *EventHandler) publishBatch(c *gin.Context) {
	var req publishBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	batch := make([]service.EventInput, len(req.Events))
	for i, e := range req.Events {
		batch[i] = service.EventInput{Payload: e.Payload, Final: e.Final}
	}
	out, err := h.svc.PublishBatch(c.Request.Context(), c.Param("topic"), batch)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, out)
}

// read serves GET with an optional Range header. A long poll cut short by
// the client leaves nothing to answer, so no body is written then. A request
// that runs out of time is answered with 504.
func (h *EventHandler) read(c *gin.Context) {
	spec, err := response.ParseRange(c.GetHeader(response.HeaderRange))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	ctx := c.Request.Context()
	resp, err := h.svc.Read(ctx, c.Param("topic"), spec)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			c.Abort()
			return
		}
		response.WriteError(c, err)
		return
	}
	response.WritePage(c, resp)
}

func (h *EventHandler) listTopics(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	res, err := h.svc.ListTopics(c.Request.Context(), repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, res)
}
