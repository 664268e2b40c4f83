// Package records は投稿レコードの入出力 (入力 CSV の読み込みと、
// 確定済みレコード・中断記録の追記書き込み) を担います。
// 列レイアウトの定義はこのパッケージが単独で所有します。
package records

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shouni/promo-post-gen-go/internal/model"
)

// ParseItems はヘッダ付き CSV から処理対象の商品参照を読み込みます。
// 必須列は item_url と region のみで、それ以外の列は任意のオーバーライドです。
// item_url が空の行は警告を出してスキップします。
func ParseItems(r io.Reader) ([]model.ItemInput, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("入力CSVの読み込みに失敗しました: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("入力CSVが空です")
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"item_url", "region"} {
		if _, ok := header[required]; !ok {
			return nil, fmt.Errorf("入力CSVに必須列 %q がありません", required)
		}
	}

	cell := func(row []string, name string) string {
		idx, ok := header[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var items []model.ItemInput
	for i, row := range rows[1:] {
		rowNum := i + 2 // ヘッダ行の次から

		itemURL := cell(row, "item_url")
		if itemURL == "" {
			slog.Warn("item_url が空のため行をスキップします", slog.Int("row", rowNum))
			continue
		}

		items = append(items, model.ItemInput{
			ItemURL:           itemURL,
			Region:            cell(row, "region"),
			ItemName:          cell(row, "item_name"),
			Category:          cell(row, "category"),
			Interest:          cell(row, "interest"),
			Warehouse:         cell(row, "warehouse"),
			SourcePrice:       parseFloat(cell(row, "source_price"), rowNum, "source_price"),
			SourceCurrency:    cell(row, "source_currency"),
			ImageURL:          cell(row, "image_url"),
			ItemWeight:        parseFloat(cell(row, "item_weight"), rowNum, "item_weight"),
			Title:             cell(row, "title"),
			Content:           cell(row, "content"),
			User:              cell(row, "user"),
			Status:            cell(row, "status"),
			TeamID:            cell(row, "team_id"),
			Service:           cell(row, "service"),
			PaymentMethod:     cell(row, "payment_method"),
			Discounted:        cell(row, "discounted"),
			IsPinned:          parseBool(cell(row, "is_pinned")),
			PinnedEndDatetime: parseInt(cell(row, "pinned_end_datetime"), rowNum, "pinned_end_datetime"),
			PinnedExpireHours: int(parseInt(cell(row, "pinned_expire_hours"), rowNum, "pinned_expire_hours")),
			DisableComment:    parseBool(cell(row, "disable_comment")),
		})
	}

	return items, nil
}

// parseFloat は数値変換に失敗しても行を落とさず、警告を出して 0 を返します。
func parseFloat(v string, row int, column string) float64 {
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("数値に変換できないため 0 を使用します",
			slog.Int("row", row),
			slog.String("column", column),
			slog.String("value", v))
		return 0
	}
	return f
}

func parseInt(v string, row int, column string) int64 {
	if v == "" {
		return 0
	}
	// "1.0" のような表記も受け付ける。
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("整数に変換できないため 0 を使用します",
			slog.Int("row", row),
			slog.String("column", column),
			slog.String("value", v))
		return 0
	}
	return int64(f)
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
