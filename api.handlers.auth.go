package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Register godoc
// @Summary      Register a user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        user  body      RegisterInput  true  "account details"
// @Success      201   {object}  APIResponse
// @Failure      400   {object}  APIError
// @Failure      409   {object}  APIError
// @Router       /v1/auth/register [post]
func (api *APIHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input RegisterInput
	if err := DecodeRequestBody(r, &input); err != nil {
		api.sendError(w, r, "failed to register the user", &ValidationError{Field: "body", Message: err.Error()})
		return
	}

	user, err := api.authService.Register(r.Context(), input)
	if err != nil {
		api.sendError(w, r, "failed to register the user", err)
		return
	}
	api.logger.Info("success to register user",
		zap.Uint("user.id", user.ID),
		zap.String("request.id", GetValueFromContext(r.Context(), ContextRequestID)),
	)
	api.sendResponse(w, r, http.StatusCreated, "User registered successfully.", nil, user)
}

// Login godoc
// @Summary      Log in
// @Description  Returns a bearer access token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      LoginInput  true  "credentials"
// @Success      200          {object}  APIResponse
// @Failure      401          {object}  APIError
// @Router       /v1/auth/login [post]
func (api *APIHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input LoginInput
	if err := DecodeRequestBody(r, &input); err != nil {
		api.sendError(w, r, "failed to log in", &ValidationError{Field: "body", Message: err.Error()})
		return
	}

	token, err := api.authService.Login(r.Context(), input)
	if err != nil {
		api.sendError(w, r, "failed to log in", err)
		return
	}
	api.logger.Info("success to log in user",
		zap.Uint("user.id", token.User.ID),
		zap.String("request.id", GetValueFromContext(r.Context(), ContextRequestID)),
	)
	api.sendResponse(w, r, http.StatusOK, "Logged in successfully.", nil, token)
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  APIResponse
// @Failure      401  {object}  APIError
// @Router       /v1/auth/me [get]
func (api *APIHandler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims := GetClaimsFromContext(r.Context())
	if claims == nil {
		api.sendError(w, r, "failed to get the user", ErrInvalidToken)
		return
	}
	user, err := api.authService.Me(r.Context(), claims.UserID)
	if err != nil {
		api.sendError(w, r, "failed to get the user", err, zap.Uint("user.id", claims.UserID))
		return
	}
	api.sendResponse(w, r, http.StatusOK, "User fetched successfully.", nil, user)
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes the access token used for this request.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  APIResponse
// @Failure      401  {object}  APIError
// @Router       /v1/auth/logout [post]
func (api *APIHandler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims := GetClaimsFromContext(r.Context())
	if err := api.authService.Logout(r.Context(), claims); err != nil {
		api.sendError(w, r, "failed to log out", err)
		return
	}
	api.logger.Info("success to log out user",
		zap.Uint("user.id", claims.UserID),
		zap.String("request.id", GetValueFromContext(r.Context(), ContextRequestID)),
	)
	api.sendResponse(w, r, http.StatusOK, "Logged out successfully.", nil, EmptyData)
}
