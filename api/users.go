package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kozuki35/hot-desking/internal/apperr"
	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/kozuki35/hot-desking/internal/service/users"
	"github.com/kozuki35/hot-desking/pkg/model"
)

type UserHandler struct {
	service users.UserUseCase
}

func NewUserHandler(service users.UserUseCase) *UserHandler {
	return &UserHandler{service: service}
}

// Register mounts signup and login on public and everything else on
// private, which must already require authentication.
func (h *UserHandler) Register(public, private *gin.RouterGroup) {
	public.POST("/signup", h.signUp)
	public.POST("/login", h.login)

	private.GET("/me", h.me)
	private.GET("/:id/profile", h.profile)
	private.PUT("/:id/profile", h.updateProfile)
	private.GET("", RequireAdmin(), h.list)
	private.PUT("/:id", RequireAdmin(), h.update)
}

func (h *UserHandler) signUp(c *gin.Context) {
	var req model.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	res, err := h.service.SignUp(c.Request.Context(), users.SignUpInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.AuthResponse{Token: res.Token, User: toUser(res.User)})
}

func (h *UserHandler) login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.AuthResponse{Token: res.Token, User: toUser(res.User)})
}

func (h *UserHandler) me(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.UserResponse{User: toUser(user)})
}

func (h *UserHandler) profile(c *gin.Context) {
	user, err := h.service.GetProfile(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.UserResponse{User: toUser(user)})
}

func (h *UserHandler) updateProfile(c *gin.Context) {
	var req model.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), actorFrom(c), c.Param("id"), users.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.UserResponse{User: toUser(user)})
}

func (h *UserHandler) list(c *gin.Context) {
	status, err := userStatusParam(c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}

	var roles []domain.Role
	for _, r := range c.QueryArray("role") {
		role := domain.Role(r)
		if !role.Valid() {
			writeError(c, apperr.InvalidInput("unknown role "+r))
			return
		}
		roles = append(roles, role)
	}

	list, err := h.service.List(c.Request.Context(), users.ListFilter{Status: status, Query: c.Query("q"), Roles: roles})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.UsersResponse{Users: toUsers(list)})
}

func (h *UserHandler) update(c *gin.Context) {
	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	user, err := h.service.Update(c.Request.Context(), c.Param("id"), users.UpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Status:    domain.UserStatus(req.Status),
		Role:      domain.Role(req.Role),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.UserResponse{User: toUser(user)})
}

// userStatusParam maps "" and "all" to no filter.
func userStatusParam(v string) (domain.UserStatus, error) {
	if v == "" || v == "all" {
		return "", nil
	}
	status := domain.UserStatus(v)
	if !status.Valid() {
		return "", apperr.InvalidInput("unknown user status " + v)
	}
	return status, nil
}
