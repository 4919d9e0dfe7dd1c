package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KotFed0t/stocks_tracker_bot/data/session"
	"github.com/KotFed0t/stocks_tracker_bot/internal/converter/telebotConverter"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/KotFed0t/stocks_tracker_bot/internal/service"
	"github.com/KotFed0t/stocks_tracker_bot/utils"
	tele "gopkg.in/telebot.v4"
)

const (
	internalErrMsg  = "что-то пошло не так..."
	notFoundMsg     = "Не удалось найти указанный тикер"
	staleButtonMsg  = "Акция не найдена, обновите списки"
	startMsg        = "Привет! Я слежу за двумя списками акций: Active и Watch.\n\n/lists - показать списки\n/add - добавить акцию\n/search - поиск акций\n/movers - лидеры рынка\n/export - выгрузка в xlsx"
	enterTickerMsg  = "Введите тикер для списка %s:"
	enterSearchMsg  = "Введите тикер или название компании:"
	emptyTickerMsg  = "Тикер не может быть пустым, попробуйте еще раз"
	useCommandsMsg  = "сначала введите одну из команд"
	invalidArgsMsg  = "некорректные данные кнопки"
	uploadedLinkMsg = "Файл слишком большой для телеграма, скачать можно по ссылке:\n%s"
)

type TrackerService interface {
	Snapshot() model.Lists
	LoadStocks(ctx context.Context) model.Lists
	AddStock(ctx context.Context, form model.StockForm) (model.Lists, error)
	MoveStock(ctx context.Context, stockID int64, from model.ListType) (model.Lists, error)
	DeleteStock(ctx context.Context, stockID int64) (model.Lists, error)
	SetRank(ctx context.Context, stockID int64, rank model.Rank) (model.Lists, error)
	MoveStockUp(ctx context.Context, stockID int64, listType model.ListType) (model.Lists, error)
	Search(ctx context.Context, text string) ([]model.SearchResult, error)
	SetMembership(ctx context.Context, ticker, performanceID string, target model.Membership) (model.Lists, error)
	GetMarketMovers(ctx context.Context) (model.MarketMovers, error)
	ExportLists(ctx context.Context) (model.Report, error)
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type Controller struct {
	trackerService TrackerService
	session        Session
}

func NewController(trackerService TrackerService, session Session) *Controller {
	return &Controller{
		trackerService: trackerService,
		session:        session,
	}
}

func (ctrl *Controller) Start(c tele.Context) error {
	return c.Send(startMsg)
}

func (ctrl *Controller) ShowLists(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	text, markup := telebotConverter.ListsResponse(ctrl.trackerService.LoadStocks(ctx))
	return c.Send(text, markup, tele.ModeHTML)
}

// RedrawLists показывает последний снимок списков без перезагрузки цен
func (ctrl *Controller) RedrawLists(c tele.Context) error {
	text, markup := telebotConverter.ListsResponse(ctrl.trackerService.Snapshot())
	return c.Edit(text, markup, tele.ModeHTML)
}

func (ctrl *Controller) RefreshLists(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	text, markup := telebotConverter.ListsResponse(ctrl.trackerService.LoadStocks(ctx))
	_ = c.Respond(&tele.CallbackResponse{Text: "Цены обновлены"})
	return c.Edit(text, markup, tele.ModeHTML)
}

func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) (model.Session, error) {
	chatSession, ok := c.Get("session").(model.Session)
	if ok {
		return chatSession, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	chatSession, err := ctrl.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return model.Session{}, nil
		}
		slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Session{}, err
	}
	return chatSession, nil
}

func (ctrl *Controller) setSessionState(ctx context.Context, c tele.Context, update func(s *model.Session)) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return err
	}

	update(&chatSession)

	err = ctrl.session.SetSession(ctx, strconv.FormatInt(c.Chat().ID, 10), chatSession)
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	c.Set("session", chatSession)
	return nil
}

// InitAddStock переводит чат в ожидание тикера. Список берется из кнопки или из /add <list>
func (ctrl *Controller) InitAddStock(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	listType := model.ListTypeActive
	if arg := firstArg(c); arg != "" {
		parsed, err := model.ParseListType(arg)
		if err != nil {
			return c.Send("Укажите список: Active или Watch")
		}
		listType = parsed
	}

	err := ctrl.setSessionState(ctx, c, func(s *model.Session) {
		s.State = model.ExpectingTicker
		s.ListType = listType
	})
	if err != nil {
		return c.Send(internalErrMsg)
	}

	if c.Callback() != nil {
		_ = c.Respond()
	}

	return c.Send(fmt.Sprintf(enterTickerMsg, listType))
}

func (ctrl *Controller) ProcessAddStock(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	form := model.StockForm{Ticker: c.Message().Text, ListType: chatSession.ListType}
	if form.ListType == "" {
		form.ListType = model.ListTypeActive
	}

	lists, err := ctrl.trackerService.AddStock(ctx, form)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyTicker):
			// остаемся в ожидании тикера
			return c.Send(emptyTickerMsg)
		case errors.Is(err, service.ErrNotFound):
			_ = ctrl.resetState(ctx, c)
			return c.Send(notFoundMsg)
		default:
			slog.Error("got error from trackerService.AddStock", slog.String("rqID", rqID), slog.String("err", err.Error()))
			_ = ctrl.resetState(ctx, c)
			return c.Send(internalErrMsg)
		}
	}

	_ = ctrl.resetState(ctx, c)

	text, markup := telebotConverter.ListsResponse(lists)
	return c.Send(text, markup, tele.ModeHTML)
}

func (ctrl *Controller) resetState(ctx context.Context, c tele.Context) error {
	return ctrl.setSessionState(ctx, c, func(s *model.Session) {
		s.State = model.DefaultState
	})
}

// InitSearch ищет сразу, если запрос передан в команде, иначе ждет его следующим сообщением
func (ctrl *Controller) InitSearch(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if query := strings.TrimSpace(c.Message().Payload); query != "" {
		return ctrl.search(ctx, c, query)
	}

	err := ctrl.setSessionState(ctx, c, func(s *model.Session) {
		s.State = model.ExpectingSearchQuery
	})
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(enterSearchMsg)
}

func (ctrl *Controller) ProcessSearch(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	return ctrl.search(ctx, c, c.Message().Text)
}

func (ctrl *Controller) search(ctx context.Context, c tele.Context, query string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	results, err := ctrl.trackerService.Search(ctx, query)
	if err != nil {
		slog.Error("got error from trackerService.Search", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	err = ctrl.setSessionState(ctx, c, func(s *model.Session) {
		s.State = model.DefaultState
		s.LastSearch = query
	})
	if err != nil {
		slog.Warn("can't save last search", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}

	text, markup := telebotConverter.SearchResultsResponse(query, results)
	return c.Send(text, markup, tele.ModeHTML)
}

func (ctrl *Controller) SetMembership(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	args := c.Args()
	if len(args) != 3 {
		return c.Respond(&tele.CallbackResponse{Text: invalidArgsMsg})
	}

	target, err := model.ParseMembership(args[2])
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: invalidArgsMsg})
	}

	_, err = ctrl.trackerService.SetMembership(ctx, args[0], args[1], target)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Respond(&tele.CallbackResponse{Text: notFoundMsg})
		}
		slog.Error("got error from trackerService.SetMembership", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Respond(&tele.CallbackResponse{Text: internalErrMsg})
	}

	_ = c.Respond(&tele.CallbackResponse{Text: "Готово"})

	// перерисовываем результаты последнего поиска с новой принадлежностью
	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil || chatSession.LastSearch == "" {
		return nil
	}

	results, err := ctrl.trackerService.Search(ctx, chatSession.LastSearch)
	if err != nil {
		slog.Warn("can't redraw search results", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil
	}

	text, markup := telebotConverter.SearchResultsResponse(chatSession.LastSearch, results)
	return c.Edit(text, markup, tele.ModeHTML)
}

func (ctrl *Controller) StockMenu(c tele.Context) error {
	stock, listType, ok := ctrl.stockFromArgs(c)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: staleButtonMsg})
	}

	_ = c.Respond()
	text, markup := telebotConverter.StockMenuResponse(stock, listType)
	return c.Edit(text, markup, tele.ModeHTML)
}

func (ctrl *Controller) RankMenu(c tele.Context) error {
	stock, listType, ok := ctrl.stockFromArgs(c)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: staleButtonMsg})
	}

	_ = c.Respond()
	text, markup := telebotConverter.RankMenuResponse(stock, listType)
	return c.Edit(text, markup, tele.ModeHTML)
}

func (ctrl *Controller) SetRank(c tele.Context) error {
	args := c.Args()
	if len(args) != 2 {
		return c.Respond(&tele.CallbackResponse{Text: invalidArgsMsg})
	}

	stockID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: invalidArgsMsg})
	}

	rank, err := model.ParseRank(args[1])
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: invalidArgsMsg})
	}

	return ctrl.applyListsChange(c, func(ctx context.Context) (model.Lists, error) {
		return ctrl.trackerService.SetRank(ctx, stockID, rank)
	})
}

func (ctrl *Controller) MoveStock(c tele.Context) error {
	stockID, listType, ok := parseStockArgs(c)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: invalidArgsMsg})
	}

	return ctrl.applyListsChange(c, func(ctx context.Context) (model.Lists, error) {
		return ctrl.trackerService.MoveStock(ctx, stockID, listType)
	})
}

func (ctrl *Controller) MoveStockUp(c tele.Context) error {
	stockID, listType, ok := parseStockArgs(c)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: invalidArgsMsg})
	}

	return ctrl.applyListsChange(c, func(ctx context.Context) (model.Lists, error) {
		return ctrl.trackerService.MoveStockUp(ctx, stockID, listType)
	})
}

func (ctrl *Controller) DeleteStock(c tele.Context) error {
	stockID, err := strconv.ParseInt(firstArg(c), 10, 64)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: invalidArgsMsg})
	}

	return ctrl.applyListsChange(c, func(ctx context.Context) (model.Lists, error) {
		return ctrl.trackerService.DeleteStock(ctx, stockID)
	})
}

// applyListsChange выполняет изменение списков и перерисовывает сообщение
func (ctrl *Controller) applyListsChange(c tele.Context, change func(ctx context.Context) (model.Lists, error)) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	lists, err := change(ctx)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Respond(&tele.CallbackResponse{Text: staleButtonMsg})
		}
		slog.Error("got error while changing lists", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Respond(&tele.CallbackResponse{Text: internalErrMsg})
	}

	_ = c.Respond()
	text, markup := telebotConverter.ListsResponse(lists)
	return c.Edit(text, markup, tele.ModeHTML)
}

func (ctrl *Controller) Movers(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	movers, err := ctrl.trackerService.GetMarketMovers(ctx)
	if err != nil {
		slog.Error("got error from trackerService.GetMarketMovers", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.MoversResponse(movers), tele.ModeHTML)
}

func (ctrl *Controller) Export(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	_ = c.Notify(tele.UploadingDocument)

	report, err := ctrl.trackerService.ExportLists(ctx)
	if err != nil {
		slog.Error("got error from trackerService.ExportLists", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	if report.DownloadLink != "" {
		return c.Send(fmt.Sprintf(uploadedLinkMsg, report.DownloadLink))
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(report.Content)),
		FileName: report.FileName,
	}
	return c.Send(doc)
}

func (ctrl *Controller) stockFromArgs(c tele.Context) (model.Stock, model.ListType, bool) {
	stockID, listType, ok := parseStockArgs(c)
	if !ok {
		return model.Stock{}, "", false
	}

	for _, stock := range ctrl.trackerService.Snapshot().Get(listType) {
		if stock.ID == stockID {
			return stock, listType, true
		}
	}
	return model.Stock{}, "", false
}

// parseStockArgs разбирает данные кнопки вида stockID|listType
func parseStockArgs(c tele.Context) (int64, model.ListType, bool) {
	args := c.Args()
	if len(args) != 2 {
		return 0, "", false
	}

	stockID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, "", false
	}

	listType, err := model.ParseListType(args[1])
	if err != nil {
		return 0, "", false
	}

	return stockID, listType, true
}

func firstArg(c tele.Context) string {
	args := c.Args()
	if len(args) == 0 {
		return ""
	}
	return strings.TrimSpace(args[0])
}

func (ctrl *Controller) UnexpectedText(c tele.Context) error {
	return c.Send(useCommandsMsg)
}
