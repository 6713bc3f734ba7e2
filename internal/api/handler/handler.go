package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/persona-graph/internal/api/middleware"
	"github.com/d60-Lab/persona-graph/internal/apperr"
	"github.com/d60-Lab/persona-graph/internal/service"
	"github.com/d60-Lab/persona-graph/internal/session"
	"github.com/d60-Lab/persona-graph/pkg/response"
	"github.com/d60-Lab/persona-graph/pkg/token"
)

// Deps handler 依赖的服务
type Deps struct {
	Accounts    *service.AccountService
	Personas    service.PersonaRegistry
	Graph       service.RelationshipService
	Binder      *service.Binder
	Coordinator *service.Coordinator
	Freets      *service.FreetService
	Tokens      *token.Manager
}

type Handler struct {
	accounts    *service.AccountService
	personas    service.PersonaRegistry
	relService  service.RelationshipService
	binder      *service.Binder
	coordinator *service.Coordinator
	freets      *service.FreetService
	tokens      *token.Manager
}

func New(d Deps) *Handler {
	return &Handler{
		accounts:    d.Accounts,
		personas:    d.Personas,
		relService:  d.Graph,
		binder:      d.Binder,
		coordinator: d.Coordinator,
		freets:      d.Freets,
		tokens:      d.Tokens,
	}
}

// RegisterValidators 注册 gin 绑定用的 handle / personaname 标签，规则与核心校验一致
func RegisterValidators(names service.NamePolicy) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	if err := v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return service.ValidHandle(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("personaname", func(fl validator.FieldLevel) bool {
		return names.Validate(fl.Field().String()) == nil
	})
}

// statusOf 业务错误到 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrDeleteActivePersona):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrSelfFollow):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrBadCredentials):
		return http.StatusUnauthorized
	}
	switch apperr.KindOf(err) {
	case apperr.KindInvalidFormat:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden, apperr.KindUnauthenticated, apperr.KindStale:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Kind == apperr.KindInternal {
		response.InternalError(c, err)
		return
	}
	response.Fail(c, statusOf(err), e.Code, e.Message)
}

func bindFail(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		response.BadRequest(c, err.Error())
		return
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	response.BadRequest(c, strings.Join(msgs, "; "))
}

// session 取认证会话；路由未挂 Auth 时视为未登录
func (h *Handler) session(c *gin.Context) (session.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
	}
	return sess, ok
}

func (h *Handler) actor(c *gin.Context) (service.ActorContext, bool) {
	sess, ok := h.session(c)
	if !ok {
		return service.ActorContext{}, false
	}
	actor, err := h.binder.Actor(c.Request.Context(), sess)
	if err != nil {
		fail(c, err)
		return service.ActorContext{}, false
	}
	return actor, true
}

func pageQuery(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
