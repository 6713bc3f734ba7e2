package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/persona-graph/internal/model"
	"github.com/d60-Lab/persona-graph/internal/service"
	"github.com/d60-Lab/persona-graph/pkg/response"
)

type followRequest struct {
	Handle string `json:"handle" binding:"required,handle"`
}

type personaSummary struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Name   string `json:"name"`
}

type edgeResponse struct {
	ID        string         `json:"id"`
	Follower  personaSummary `json:"follower"`
	Following personaSummary `json:"following"`
	CreatedAt time.Time      `json:"created_at"`
}

func summarize(p *model.Persona) personaSummary {
	return personaSummary{ID: p.ID, Handle: p.Handle, Name: p.Name}
}

func toEdgeResponses(views []service.EdgeView) []edgeResponse {
	out := make([]edgeResponse, 0, len(views))
	for _, v := range views {
		out = append(out, edgeResponse{
			ID:        v.Edge.ID,
			Follower:  summarize(v.Follower),
			Following: summarize(v.Following),
			CreatedAt: v.Edge.CreatedAt,
		})
	}
	return out
}

// Follow 以活跃 persona 关注目标 handle
// @Summary 关注
// @Tags 关系链
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body followRequest true "被关注者 handle"
// @Success 201 {object} response.Response{data=model.Follow}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/relations/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	edge, err := h.relService.FollowHandle(c.Request.Context(), actor, req.Handle)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, edge)
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Security BearerAuth
// @Param handle path string true "被关注者 handle"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/follow/{handle} [delete]
func (h *Handler) Unfollow(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.relService.UnfollowHandle(c.Request.Context(), actor, c.Param("handle")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// UnfollowAll 活跃 persona 取消全部关注
// @Summary 取消全部关注
// @Tags 关系链
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/relations/following [delete]
func (h *Handler) UnfollowAll(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.relService.UnfollowAll(c.Request.Context(), actor); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ListFollowing 查询某 persona 关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Param handle path string true "persona handle"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/{handle}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	page, pageSize := pageQuery(c)
	views, err := h.relService.Following(c.Request.Context(), c.Param("handle"), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": toEdgeResponses(views)})
}

// ListFollowers 查询某 persona 的粉丝
// @Summary 查询粉丝列表
// @Tags 关系链
// @Param handle path string true "persona handle"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/{handle}/followers [get]
func (h *Handler) ListFollowers(c *gin.Context) {
	page, pageSize := pageQuery(c)
	views, err := h.relService.Followers(c.Request.Context(), c.Param("handle"), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": toEdgeResponses(views)})
}
