package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/persona-graph/internal/service"
	"github.com/d60-Lab/persona-graph/pkg/response"
)

type createPersonaRequest struct {
	Handle string `json:"handle" binding:"required,handle"`
	Name   string `json:"name" binding:"required,personaname"`
}

type updatePersonaRequest struct {
	Handle *string `json:"handle" binding:"omitempty,handle"`
	Name   *string `json:"name" binding:"omitempty,personaname"`
}

type signInRequest struct {
	Handle string `json:"handle" binding:"required,handle"`
}

// CreatePersona 在当前账号下创建 persona
// @Summary 创建 persona
// @Tags Persona
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body createPersonaRequest true "handle 与名称"
// @Success 201 {object} response.Response{data=model.Persona}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/personas [post]
func (h *Handler) CreatePersona(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req createPersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	p, err := h.personas.Create(c.Request.Context(), sess.AccountUsername, req.Handle, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, p)
}

// ListMyPersonas 当前账号的全部 persona
// @Summary 我的 persona
// @Tags Persona
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/personas [get]
func (h *Handler) ListMyPersonas(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	list, err := h.personas.ListByOwner(c.Request.Context(), sess.AccountUsername)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// GetPersona 按 handle 精确查询
// @Summary 查询 persona
// @Tags Persona
// @Produce json
// @Param handle path string true "handle"
// @Success 200 {object} response.Response{data=model.Persona}
// @Failure 404 {object} response.Response
// @Router /api/v1/personas/{handle} [get]
func (h *Handler) GetPersona(c *gin.Context) {
	p, err := h.personas.GetByHandle(c.Request.Context(), c.Param("handle"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, p)
}

// UpdatePersona 修改名称或 handle（仅所属账号）
// @Summary 更新 persona
// @Tags Persona
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "persona id"
// @Param request body updatePersonaRequest true "需要修改的字段"
// @Success 200 {object} response.Response{data=model.Persona}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/personas/{id} [patch]
func (h *Handler) UpdatePersona(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req updatePersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	p, err := h.personas.UpdateOwned(c.Request.Context(), actor, c.Param("id"),
		service.PersonaUpdate{Name: req.Name, Handle: req.Handle})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, p)
}

// DeletePersona 删除 persona 及其关注关系；不能删除当前活跃 persona
// @Summary 删除 persona
// @Tags Persona
// @Security BearerAuth
// @Param id path string true "persona id"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/personas/{id} [delete]
func (h *Handler) DeletePersona(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.coordinator.DeletePersona(c.Request.Context(), actor, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// SignInPersona 切换会话的活跃 persona
// @Summary 切换活跃 persona
// @Tags Persona
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body signInRequest true "handle"
// @Success 200 {object} response.Response{data=model.Persona}
// @Failure 404 {object} response.Response
// @Router /api/v1/personas/signin [post]
func (h *Handler) SignInPersona(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	p, err := h.binder.SignIn(c.Request.Context(), sess, req.Handle)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, p)
}

// CurrentPersona 当前活跃 persona
// @Summary 当前活跃 persona
// @Tags Persona
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=model.Persona}
// @Failure 403 {object} response.Response
// @Router /api/v1/personas/current [get]
func (h *Handler) CurrentPersona(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	p, err := h.binder.CurrentPersona(c.Request.Context(), sess)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, p)
}
