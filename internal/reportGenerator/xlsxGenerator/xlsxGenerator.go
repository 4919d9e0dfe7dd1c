package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
	"github.com/KotFed0t/stocks_tracker_bot/utils"
	"github.com/xuri/excelize/v2"
)

var listColors = map[model.ListType]string{
	model.ListTypeActive: "#d9ead3", // светло-зеленый
	model.ListTypeWatch:  "#cfe2f3", // светло-голубой
}

var columns = []string{"#", "Тикер", "Название", "Биржа", "Цена, $", "Ранг"}

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate строит книгу с отдельным листом на каждый список
func (g *XLSXGenerator) Generate(ctx context.Context, lists model.Lists) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	for _, listType := range model.ListTypes {
		err = g.fillSheet(ctx, f, listType, lists.Get(listType))
		if err != nil {
			return nil, "", err
		}
	}

	// Удаляем лист по умолчанию "Sheet1"
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("size", buf.Len()))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) fillSheet(ctx context.Context, f *excelize.File, listType model.ListType, stocks []model.Stock) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.fillSheet"

	sheetName := listType.String()
	_, err := f.NewSheet(sheetName)
	if err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}

	err = f.MergeCell(sheetName, "A1", lastCol+"1")
	if err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A1", fmt.Sprintf("%s (%d)", sheetName, len(stocks)))

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{listColors[listType]},
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("ошибка применения стиля: %w", err)
	}

	err = f.SetSheetRow(sheetName, "A2", &columns)
	if err != nil {
		return err
	}

	for i, stock := range stocks {
		row := i + 3
		_ = f.SetCellInt(sheetName, fmt.Sprintf("A%d", row), int64(i+1))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), stock.Ticker)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), stock.Name)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", row), stock.Exchange)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), stock.Price.InexactFloat64())
		_ = f.SetCellStr(sheetName, fmt.Sprintf("F%d", row), string(stock.Rank))
	}

	_ = f.SetColWidth(sheetName, "C", "C", 30)

	return nil
}
