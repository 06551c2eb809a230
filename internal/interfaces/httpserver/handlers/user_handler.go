package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"qc-vision/backend/internal/domain/user"
	"qc-vision/backend/internal/interfaces/httpserver/responses"
	"qc-vision/backend/internal/utils/platformerrors"
)

// UserHandler exposes identity endpoints.
type UserHandler struct {
	service *user.Service
	log     zerolog.Logger
}

func NewUserHandler(service *user.Service, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log.With().Str("component", "user-handler").Logger(),
	}
}

// Me godoc
// @Summary      Get the calling user
// @Description  Resolves the X-User header, provisioning a default-role row on first sight.
// @Tags         users
// @Produce      json
// @Success      200  {object}  user.User
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      401  {object}  responses.ErrorResponse
// @Router       /api/v1/users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	username := c.GetHeader("X-User")
	if username == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "X-User header is required")
		return
	}

	u, err := h.service.Resolve(c.Request.Context(), username)
	if err != nil {
		responses.HandleError(c, err, "failed to resolve user")
		return
	}
	c.JSON(http.StatusOK, u)
}
