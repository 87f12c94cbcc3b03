package logctx

import (
	"context"
	"log/slog"
)

// Handler decorates an slog.Handler with request- and grant-scoped
// attributes carried in the context.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("method", rd.Method),
			slog.String("user_agent", rd.UserAgent),
			slog.String("remote_addr", rd.RemoteAddr),
			slog.String("path", rd.Path),
		))
	}

	if gd, ok := ctx.Value(grantDataKey{}).(*GrantData); ok {
		r.AddAttrs(slog.Group("grant",
			slog.String("type", gd.GrantType),
			slog.String("client_id", gd.ClientID),
		))
	}

	return h.Handler.Handle(ctx, r)
}

type requestDataKey struct{}

type RequestData struct {
	RequestID  string
	Method     string
	UserAgent  string
	RemoteAddr string
	Path       string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}

type grantDataKey struct{}

// GrantData identifies the OAuth exchange being processed.
type GrantData struct {
	GrantType string
	ClientID  string
}

func WithGrantData(ctx context.Context, data *GrantData) context.Context {
	return context.WithValue(ctx, grantDataKey{}, data)
}
