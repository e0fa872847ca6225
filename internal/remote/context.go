package remote

import "context"

type contextKey string

const clientIDKey contextKey = "remote_client_id"

// WithClientID attaches the client id of the item a call is made for, so the
// sync journal can attribute calls made before a server id exists.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, clientID)
}

// ClientIDFrom extracts the client id from the context.
func ClientIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(clientIDKey).(string); ok {
		return v
	}
	return ""
}
