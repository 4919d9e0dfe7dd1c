package tgCallback

// Callbacks buttons uniques, данные передаются через "|"
const (
	ShowLists     string = "show_lists"     // перерисовать оба списка
	RefreshLists  string = "refresh_lists"  // перезагрузить списки с обновлением цен
	AddStock      string = "add_stock"      // listType - инициировать ввод тикера
	StockMenu     string = "stock_menu"     // stockID|listType
	MoveStock     string = "move_stock"     // stockID|listType откуда переносим
	MoveStockUp   string = "move_stock_up"  // stockID|listType
	DeleteStock   string = "delete_stock"   // stockID
	RankMenu      string = "rank_menu"      // stockID|listType
	SetRank       string = "set_rank"       // stockID|rank
	SetMembership string = "set_membership" // ticker|performanceID|membership
)
