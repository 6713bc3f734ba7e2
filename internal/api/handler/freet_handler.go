package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/persona-graph/pkg/response"
)

type publishRequest struct {
	Content string `json:"content" binding:"required,max=140"`
}

// PublishFreet 以活跃 persona 发帖
// @Summary 发帖
// @Tags Freet
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body publishRequest true "内容"
// @Success 201 {object} response.Response{data=model.Freet}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/freets [post]
func (h *Handler) PublishFreet(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	f, err := h.freets.Publish(c.Request.Context(), actor, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, f)
}

// ListFreets 某作者的帖子，新帖在前
// @Summary 作者帖子列表
// @Tags Freet
// @Produce json
// @Param author query string true "作者 handle"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/freets [get]
func (h *Handler) ListFreets(c *gin.Context) {
	author := c.Query("author")
	if author == "" {
		response.BadRequest(c, "author is required")
		return
	}
	page, pageSize := pageQuery(c)
	list, err := h.freets.ListByAuthor(c.Request.Context(), author, page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// DeleteFreet 删除帖子（仅作者所属账号）
// @Summary 删除帖子
// @Tags Freet
// @Security BearerAuth
// @Param id path string true "freet id"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/freets/{id} [delete]
func (h *Handler) DeleteFreet(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.freets.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
