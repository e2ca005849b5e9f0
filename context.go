package goPhoneAuth

import "context"

type clientIPContextKey struct{}
type deviceContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The engine uses it
// for the per-IP issue throttle, login history and audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithDevice attaches a device description (typically the User-Agent) to
// ctx. It is recorded with every login attempt.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, deviceContextKey{}, device)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func deviceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	device, _ := ctx.Value(deviceContextKey{}).(string)
	return device
}

// ClientFromContext returns the values set by WithClientIP and WithDevice.
func ClientFromContext(ctx context.Context) (ip, device string) {
	return clientIPFromContext(ctx), deviceFromContext(ctx)
}
