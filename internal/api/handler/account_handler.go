package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/d60-Lab/persona-graph/pkg/response"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

type loginResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
}

// Register 注册账号
// @Summary 注册账号
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body credentialsRequest true "用户名与密码"
// @Success 201 {object} response.Response{data=model.User}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/accounts [post]
func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	u, err := h.accounts.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, u)
}

// Login 登录并签发会话令牌
// @Summary 登录
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body credentialsRequest true "用户名与密码"
// @Success 201 {object} response.Response{data=loginResponse}
// @Failure 401 {object} response.Response
// @Router /api/v1/sessions [post]
func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	u, err := h.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	sid := uuid.New().String()
	tok, err := h.tokens.Issue(u.Username, u.ID, sid)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, loginResponse{Token: tok, SessionID: sid, Username: u.Username})
}

// Logout 解除会话的活跃 persona 绑定
// @Summary 登出
// @Tags 账号
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/sessions [delete]
func (h *Handler) Logout(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.binder.Clear(c.Request.Context(), sess); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// DeleteAccount 删除当前账号及其全部 persona 与关注关系
// @Summary 删除账号
// @Tags 账号
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/accounts/me [delete]
func (h *Handler) DeleteAccount(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.accounts.Delete(c.Request.Context(), sess); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
