package middleware

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

func Logger() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			now := time.Now()

			rqID := uuid.NewString()
			c.Set("rqID", rqID)

			attrs := []any{slog.String("rqID", rqID), slog.String("kind", updateKind(c))}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chatID", chat.ID))
			}

			slog.Info("start request", attrs...)

			defer func() {
				slog.Info(
					"request finished",
					slog.String("rqID", rqID),
					slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
				)
			}()

			err := next(c)
			if err != nil {
				slog.Error("handler returned error", slog.String("rqID", rqID), slog.String("err", err.Error()))
			}
			return err
		}
	}
}

func updateKind(c tele.Context) string {
	switch {
	case c.Callback() != nil:
		return "callback:" + c.Callback().Unique
	case c.Message() != nil && strings.HasPrefix(c.Message().Text, "/"):
		return "command"
	case c.Message() != nil:
		return "text"
	default:
		return "other"
	}
}
