// User HTTP handlers.
//
// This file exposes account endpoints:
//   - POST /user/register   (create account, returns access token)
//   - POST /user/login      (exchange credentials for an access token)
//   - GET  /user            (current user; requires authentication)
//
// The access token is returned in metadata and also set as an HttpOnly
// cookie so browser clients need not store it themselves.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-task-backend/internal/auth"
	"github.com/tbourn/go-task-backend/internal/domain"
	"github.com/tbourn/go-task-backend/internal/http/envelope"
	"github.com/tbourn/go-task-backend/internal/services"
)

//
// DTOs
//

// RegisterRequest is the JSON payload for registration.
type RegisterRequest struct {
	User RegisterUser `json:"user"`
}

// RegisterUser holds the account fields of RegisterRequest.
type RegisterUser struct {
	Username string `json:"username" binding:"required,max=80" example:"alice"`
	Email    string `json:"email"    binding:"required,email,max=100" example:"alice@example.com"`
	Password string `json:"password" binding:"required,min=8,max=72" example:"correct-horse"`
}

// LoginRequest is the JSON payload for login.
type LoginRequest struct {
	User LoginUser `json:"user"`
}

// LoginUser holds the credentials of LoginRequest.
type LoginUser struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required" example:"correct-horse"`
}

// UserPayload is the data of every user endpoint.
type UserPayload struct {
	User *domain.User `json:"user"`
}

//
// Handlers
//

// Register godoc
// @ID          registerUser
// @Summary     Register a new user
// @Description Creates an account and returns an access token in metadata (also set as the access_token cookie).
// @Tags        User
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterRequest  true  "Registration payload"
// @Success     201   {object}  envelope.SuccessEnvelope{data=handlers.UserPayload}
// @Failure     400   {object}  envelope.ErrorEnvelope  "validation_error"
// @Failure     409   {object}  envelope.ErrorEnvelope  "conflict_error"
// @Failure     500   {object}  envelope.ErrorEnvelope  "server_error"
// @Router      /user/register [post]
func (h *Handlers) Register(c *gin.Context) (envelope.Result, error) {
	var req RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return envelope.Result{}, err
	}
	sess, err := h.authSvc.Register(c.Request.Context(), services.Registration{
		Username: req.User.Username,
		Email:    req.User.Email,
		Password: req.User.Password,
	})
	if err != nil {
		return envelope.Result{}, err
	}
	return h.sessionResult(c, sess), nil
}

// Login godoc
// @ID          loginUser
// @Summary     Log in
// @Description Verifies credentials and returns an access token in metadata (also set as the access_token cookie).
// @Tags        User
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  envelope.SuccessEnvelope{data=handlers.UserPayload}
// @Failure     400   {object}  envelope.ErrorEnvelope  "validation_error"
// @Failure     401   {object}  envelope.ErrorEnvelope  "unauthorized_error"
// @Router      /user/login [post]
func (h *Handlers) Login(c *gin.Context) (envelope.Result, error) {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return envelope.Result{}, err
	}
	sess, err := h.authSvc.Login(c.Request.Context(), req.User.Username, req.User.Password)
	if err != nil {
		return envelope.Result{}, err
	}
	return h.sessionResult(c, sess), nil
}

// GetUser godoc
// @ID          getUser
// @Summary     Current user
// @Description Returns the authenticated user.
// @Tags        User
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  envelope.SuccessEnvelope{data=handlers.UserPayload}
// @Failure     401  {object}  envelope.ErrorEnvelope  "unauthorized_error"
// @Failure     404  {object}  envelope.ErrorEnvelope  "not_found_error"
// @Router      /user [get]
func (h *Handlers) GetUser(c *gin.Context) (envelope.Result, error) {
	uid, err := currentUser(c)
	if err != nil {
		return envelope.Result{}, err
	}
	u, err := h.authSvc.GetUser(c.Request.Context(), uid)
	if err != nil {
		return envelope.Result{}, err
	}
	return envelope.Data(UserPayload{User: u}), nil
}

func (h *Handlers) sessionResult(c *gin.Context, sess *services.Session) envelope.Result {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, sess.Token, maxAge, "/", "", h.SecureCookie, true)

	return envelope.WithMeta(UserPayload{User: sess.User}, map[string]any{
		"access_token": sess.Token,
		"expires_at":   sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
