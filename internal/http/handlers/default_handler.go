package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-task-backend/internal/http/envelope"
)

// Greeting is the payload of the default route.
type Greeting struct {
	Greeting string `json:"greeting" example:"Hello from Silver App"`
}

// Index godoc
// @ID          index
// @Summary     Default route
// @Description Returns a greeting inside the standard success envelope.
// @Tags        Default
// @Produce     json
// @Success     200  {object}  envelope.SuccessEnvelope{data=handlers.Greeting}
// @Router      / [get]
func (h *Handlers) Index(c *gin.Context) (envelope.Result, error) {
	return envelope.Data(Greeting{Greeting: "Hello from Silver App"}), nil
}
