package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kozuki35/hot-desking/internal/apperr"
	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/kozuki35/hot-desking/internal/service/desks"
	"github.com/kozuki35/hot-desking/pkg/model"
)

type DeskHandler struct {
	service desks.DeskUseCase
}

func NewDeskHandler(service desks.DeskUseCase) *DeskHandler {
	return &DeskHandler{service: service}
}

func (h *DeskHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", RequireAdmin(), h.get)
	router.POST("", RequireAdmin(), h.create)
	router.PUT("/:id", RequireAdmin(), h.update)
}

func (h *DeskHandler) list(c *gin.Context) {
	filter := desks.ListFilter{Query: c.Query("q")}
	if v := c.Query("status"); v != "" && v != "all" {
		filter.Status = domain.DeskStatus(v)
	}
	if v := c.Query("date"); v != "" {
		date, err := domain.ParseDate(v)
		if err != nil {
			writeError(c, apperr.InvalidInput(err.Error()))
			return
		}
		filter.Date = date
	}

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.DesksResponse{Desks: toDesks(list)})
}

func (h *DeskHandler) get(c *gin.Context) {
	desk, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.DeskResponse{Desk: toDesk(desk)})
}

func (h *DeskHandler) create(c *gin.Context) {
	var req model.DeskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	desk, err := h.service.Create(c.Request.Context(), deskInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.DeskResponse{Desk: toDesk(desk)})
}

func (h *DeskHandler) update(c *gin.Context) {
	var req model.DeskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	desk, err := h.service.Update(c.Request.Context(), c.Param("id"), deskInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.DeskResponse{Desk: toDesk(desk)})
}

func deskInput(req model.DeskRequest) desks.DeskInput {
	return desks.DeskInput{
		Code:        req.Code,
		Name:        req.Name,
		Location:    req.Location,
		Status:      domain.DeskStatus(req.Status),
		Description: req.Description,
	}
}
