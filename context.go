package goPubtkt

import "context"

type clientIPContextKey struct{}
type requestPathContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for the forgery throttle and audit logging.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithRequestPath attaches the request path to ctx for audit records.
func WithRequestPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, requestPathContextKey{}, path)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func requestPathFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	path, _ := ctx.Value(requestPathContextKey{}).(string)
	return path
}
