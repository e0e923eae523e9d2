package agent

import "context"

type sessionIDKey struct{}

// WithSessionID 把会话编号放入上下文，用于审计日志与工单归属。
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext 取出会话编号，不存在时返回空串。
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}
