package utils

import (
	"context"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

type rqIDKey struct{}

func GetRequestIDFromCtx(ctx context.Context) string {
	rqID, ok := ctx.Value(rqIDKey{}).(string)
	if !ok {
		return ""
	}
	return rqID
}

// WithRequestID кладет в контекст новый rqID, если его там еще нет
func WithRequestID(ctx context.Context) context.Context {
	if GetRequestIDFromCtx(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, rqIDKey{}, uuid.NewString())
}

func CreateCtxWithRqID(c tele.Context) context.Context {
	rqId, ok := c.Get("rqID").(string)
	if !ok {
		return context.WithValue(context.Background(), rqIDKey{}, uuid.NewString())
	}
	return context.WithValue(context.Background(), rqIDKey{}, rqId)
}
