package telebotConverter

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/KotFed0t/stocks_tracker_bot/internal/model/tgCallback"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

const notAvailable = "N/A"

var listEmoji = map[model.ListType]string{
	model.ListTypeActive: "🟢",
	model.ListTypeWatch:  "👀",
}

func RankEmoji(rank model.Rank) string {
	switch rank {
	case model.RankCold:
		return "❄️"
	case model.RankHot:
		return "🔥"
	case model.RankVeryHot:
		return "🌋"
	default:
		return ""
	}
}

// FormatPrice форматирует цену в долларах, nil - цена неизвестна
func FormatPrice(price *decimal.Decimal) string {
	if price == nil {
		return notAvailable
	}
	return "$" + price.StringFixed(2)
}

func stockLine(ordinal int, stock model.Stock) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%d. <b>%s</b>", ordinal, html.EscapeString(stock.Ticker)))
	if emoji := RankEmoji(stock.Rank); emoji != "" {
		sb.WriteString(" " + emoji)
	}
	if stock.Name != "" {
		sb.WriteString(fmt.Sprintf(" %s", html.EscapeString(stock.Name)))
	}

	price := notAvailable
	if stock.HasPerformanceID() {
		price = FormatPrice(&stock.Price)
	}
	sb.WriteString(fmt.Sprintf(" · %s\n", price))

	return sb.String()
}

func ListsResponse(lists model.Lists) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder
	rows := make([]tele.Row, 0, len(lists.Active)+len(lists.Watch)+2)

	for _, listType := range model.ListTypes {
		stocks := lists.Get(listType)
		sb.WriteString(fmt.Sprintf("%s <b>%s</b> (%d)\n", listEmoji[listType], listType, len(stocks)))

		if len(stocks) == 0 {
			sb.WriteString("пусто\n")
		}

		btns := make([]tele.Btn, 0, len(stocks))
		for i, stock := range stocks {
			sb.WriteString(stockLine(i+1, stock))
			btns = append(btns, markup.Data(stock.Ticker, tgCallback.StockMenu, strconv.FormatInt(stock.ID, 10), listType.String()))
		}
		sb.WriteString("\n")

		rows = append(rows, markup.Split(4, btns)...)
	}

	rows = append(rows,
		markup.Row(
			markup.Data("➕ Active", tgCallback.AddStock, model.ListTypeActive.String()),
			markup.Data("➕ Watch", tgCallback.AddStock, model.ListTypeWatch.String()),
		),
		markup.Row(markup.Data("🔄 Обновить цены", tgCallback.RefreshLists)),
	)
	markup.Inline(rows...)

	return strings.TrimRight(sb.String(), "\n"), markup
}

func StockMenuResponse(stock model.Stock, listType model.ListType) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	id := strconv.FormatInt(stock.ID, 10)

	price := notAvailable
	if stock.HasPerformanceID() {
		price = FormatPrice(&stock.Price)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s</b> %s\n", html.EscapeString(stock.Ticker), RankEmoji(stock.Rank)))
	if stock.Name != "" {
		sb.WriteString(html.EscapeString(stock.Name) + "\n")
	}
	if stock.Exchange != "" {
		sb.WriteString(fmt.Sprintf("Биржа: %s\n", html.EscapeString(stock.Exchange)))
	}
	sb.WriteString(fmt.Sprintf("Цена: %s\n", price))
	sb.WriteString(fmt.Sprintf("Список: %s", listType))

	markup.Inline(
		markup.Row(
			markup.Data("➡️ В "+listType.Other().String(), tgCallback.MoveStock, id, listType.String()),
			markup.Data("⬆️ Выше", tgCallback.MoveStockUp, id, listType.String()),
		),
		markup.Row(
			markup.Data("🏷 Ранг", tgCallback.RankMenu, id, listType.String()),
			markup.Data("🗑 Удалить", tgCallback.DeleteStock, id),
		),
		markup.Row(markup.Data("« Назад", tgCallback.ShowLists)),
	)

	return strings.TrimSpace(sb.String()), markup
}

func RankMenuResponse(stock model.Stock, listType model.ListType) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	id := strconv.FormatInt(stock.ID, 10)

	btns := make([]tele.Btn, 0, len(model.Ranks))
	for _, rank := range model.Ranks {
		label := strings.TrimSpace(RankEmoji(rank) + " " + rank.Label())
		if rank == stock.Rank {
			label = "✅ " + label
		}
		btns = append(btns, markup.Data(label, tgCallback.SetRank, id, rank.Label()))
	}

	markup.Inline(
		markup.Row(btns...),
		markup.Row(markup.Data("« Назад", tgCallback.StockMenu, id, listType.String())),
	)

	return fmt.Sprintf("Выберите ранг для <b>%s</b>", html.EscapeString(stock.Ticker)), markup
}

func membershipLabel(m model.Membership) string {
	switch m {
	case model.MembershipActive:
		return "в Active"
	case model.MembershipWatch:
		return "в Watch"
	default:
		return "не отслеживается"
	}
}

func SearchResultsResponse(query string, results []model.SearchResult) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}

	if len(results) == 0 {
		return fmt.Sprintf("По запросу «%s» ничего не найдено", html.EscapeString(query)), markup
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔎 Результаты по запросу «%s»:\n\n", html.EscapeString(query)))

	rows := make([]tele.Row, 0, len(results))
	for i, res := range results {
		sb.WriteString(fmt.Sprintf(
			"%d. <b>%s</b> %s (%s) · %s · %s\n",
			i+1,
			html.EscapeString(res.Stock.Ticker),
			html.EscapeString(res.Stock.Name),
			html.EscapeString(res.Stock.Exchange),
			FormatPrice(res.Price),
			membershipLabel(res.Membership),
		))

		btns := make([]tele.Btn, 0, 2)
		for _, target := range []model.Membership{model.MembershipActive, model.MembershipWatch, model.MembershipNone} {
			if target == res.Membership {
				continue
			}
			label := fmt.Sprintf("%s → %s", res.Stock.Ticker, target)
			if target == model.MembershipNone {
				label = fmt.Sprintf("%s ✖", res.Stock.Ticker)
			}
			btns = append(btns, markup.Data(label, tgCallback.SetMembership, res.Stock.Ticker, res.Stock.PerformanceID, string(target)))
		}
		rows = append(rows, markup.Row(btns...))
	}
	markup.Inline(rows...)

	return strings.TrimRight(sb.String(), "\n"), markup
}

func moversSection(sb *strings.Builder, title string, movers []model.Mover) {
	sb.WriteString(title + "\n")
	if len(movers) == 0 {
		sb.WriteString("нет данных\n\n")
		return
	}
	for i, m := range movers {
		sb.WriteString(fmt.Sprintf(
			"%d. <b>%s</b> %s · $%s (%s%%)\n",
			i+1,
			html.EscapeString(m.Ticker),
			html.EscapeString(m.Name),
			m.LastPrice.StringFixed(2),
			signed(m.PercentNetChange),
		))
	}
	sb.WriteString("\n")
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

func MoversResponse(movers model.MarketMovers) string {
	var sb strings.Builder
	moversSection(&sb, "📈 <b>Лидеры роста</b>", movers.Gainers)
	moversSection(&sb, "📉 <b>Лидеры падения</b>", movers.Losers)
	moversSection(&sb, "💹 <b>Самые активные</b>", movers.Actives)
	return strings.TrimRight(sb.String(), "\n")
}
