package tgbot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/KotFed0t/stocks_tracker_bot/config"
	"github.com/KotFed0t/stocks_tracker_bot/data/session"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model/tgCallback"
	"github.com/KotFed0t/stocks_tracker_bot/internal/transport/telegram"
	customMW "github.com/KotFed0t/stocks_tracker_bot/internal/transport/telegram/middleware"
	"github.com/KotFed0t/stocks_tracker_bot/utils"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type TGBot struct {
	bot            *tele.Bot
	ctrl           *telegram.Controller
	session        Session
	allowedChatIDs []int64
}

func New(cfg *config.Config, ctrl *telegram.Controller, session Session) (*TGBot, error) {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
		OnError: func(err error, c tele.Context) {
			slog.Error("telebot error", slog.String("err", err.Error()))
		},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		return nil, err
	}

	return &TGBot{bot: b, ctrl: ctrl, session: session, allowedChatIDs: cfg.Telegram.AllowedChatIDs}, nil
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	// списки личные, поэтому при заданном whitelist остальные чаты игнорируются
	if len(b.allowedChatIDs) > 0 {
		b.bot.Use(middleware.Whitelist(b.allowedChatIDs...))
	}

	b.setupRoutes()

	err := b.bot.SetCommands([]tele.Command{
		{Text: "lists", Description: "показать списки"},
		{Text: "add", Description: "добавить акцию: /add Active или /add Watch"},
		{Text: "search", Description: "поиск акций"},
		{Text: "movers", Description: "лидеры рынка"},
		{Text: "export", Description: "выгрузка списков в xlsx"},
	})
	if err != nil {
		slog.Warn("can't set bot commands", slog.String("err", err.Error()))
	}

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		// получение сесии и выбор метода контроллера на основе шага пользователя
		ctx := utils.CreateCtxWithRqID(c)
		rqID := utils.GetRequestIDFromCtx(ctx)
		chatSession, err := b.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send("что-то пошло не так...")
		}

		c.Set("session", chatSession)

		switch chatSession.State {
		case model.ExpectingTicker:
			return b.ctrl.ProcessAddStock(c)
		case model.ExpectingSearchQuery:
			return b.ctrl.ProcessSearch(c)
		default:
			slog.Debug("unexpected text in default state", slog.String("rqID", rqID))
			return b.ctrl.UnexpectedText(c)
		}
	})

	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/lists", b.ctrl.ShowLists)
	b.bot.Handle("/add", b.ctrl.InitAddStock)
	b.bot.Handle("/search", b.ctrl.InitSearch)
	b.bot.Handle("/movers", b.ctrl.Movers)
	b.bot.Handle("/export", b.ctrl.Export)

	b.handleCallback(tgCallback.ShowLists, b.ctrl.RedrawLists)
	b.handleCallback(tgCallback.RefreshLists, b.ctrl.RefreshLists)
	b.handleCallback(tgCallback.AddStock, b.ctrl.InitAddStock)
	b.handleCallback(tgCallback.StockMenu, b.ctrl.StockMenu)
	b.handleCallback(tgCallback.MoveStock, b.ctrl.MoveStock)
	b.handleCallback(tgCallback.MoveStockUp, b.ctrl.MoveStockUp)
	b.handleCallback(tgCallback.DeleteStock, b.ctrl.DeleteStock)
	b.handleCallback(tgCallback.RankMenu, b.ctrl.RankMenu)
	b.handleCallback(tgCallback.SetRank, b.ctrl.SetRank)
	b.handleCallback(tgCallback.SetMembership, b.ctrl.SetMembership)
}

func (b *TGBot) handleCallback(unique string, h tele.HandlerFunc) {
	b.bot.Handle(&tele.Btn{Unique: unique}, h)
}
