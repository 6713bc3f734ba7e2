package service

// ActorContext 一次请求的操作者：账号、会话以及会话当前的活跃 persona。
// 由 Binder 构造并显式传入需要归属的操作。
type ActorContext struct {
	AccountUsername string
	SessionID       string
	ActivePersonaID string
}

// HasActivePersona 会话是否绑定了活跃身份（不代表该身份仍然存在）
func (a ActorContext) HasActivePersona() bool { return a.ActivePersonaID != "" }
