package records

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/shouni/promo-post-gen-go/internal/model"
)

// postColumns は確定済みレコードの列レイアウトです。
var postColumns = []string{
	"item_url", "region",
	"item_name", "brand_name", "category", "category_label", "interest", "warehouse",
	"source_price", "source_currency", "item_unit_price", "item_price_currency",
	"image_url", "item_weight",
	"title", "content",
	"user", "status", "team_id", "service", "payment_method", "discounted",
	"is_pinned", "pinned_end_datetime", "pinned_expire_hours", "disable_comment",
}

// abortedColumns は中断記録の列レイアウトです。
var abortedColumns = []string{"item_url", "region", "abort_reason"}

// Writer は確定済みレコードを CSV へ1件ずつ追記します。
// ヘッダはファイルが存在しない場合にのみ書かれます。並列実行される
// ワーカーからの Append を直列化するため、内部でロックを取ります。
type Writer struct {
	mu   sync.Mutex
	path string
}

// NewWriter は path への追記ライターを作成します。ファイルは最初の
// Append まで作られません。
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Append は1件のレコードを追記します。
func (w *Writer) Append(rec model.PostRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return appendRow(w.path, postColumns, []string{
		rec.ItemURL, rec.Region,
		rec.ItemName, rec.BrandName, rec.Category, rec.CategoryLabel, rec.Interest, rec.Warehouse,
		formatFloat(rec.SourcePrice), rec.SourceCurrency, formatFloat(rec.ItemUnitPrice), rec.ItemPriceCurrency,
		rec.ImageURL, formatFloat(rec.ItemWeight),
		rec.Title, rec.Content,
		rec.User, rec.Status, rec.TeamID, rec.Service, rec.PaymentMethod, rec.Discounted,
		strconv.FormatBool(rec.IsPinned),
		strconv.FormatInt(rec.PinnedEndDatetime, 10),
		strconv.Itoa(rec.PinnedExpireHours),
		strconv.FormatBool(rec.DisableComment),
	})
}

// AbortedWriter はスキップされた商品の記録を CSV へ追記します。
type AbortedWriter struct {
	mu   sync.Mutex
	path string
}

// NewAbortedWriter は path への中断記録ライターを作成します。
func NewAbortedWriter(path string) *AbortedWriter {
	return &AbortedWriter{path: path}
}

// Append は1件の中断記録を追記します。
func (w *AbortedWriter) Append(rec model.AbortedRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return appendRow(w.path, abortedColumns, []string{rec.ItemURL, rec.Region, rec.Reason})
}

// appendRow はファイルが未作成の場合のみヘッダを先頭に書き、行を追記します。
func appendRow(path string, columns, row []string) error {
	_, statErr := os.Stat(path)
	needHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("出力CSVを開けませんでした: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if needHeader {
		if err := writer.Write(columns); err != nil {
			return fmt.Errorf("ヘッダの書き込みに失敗しました: %w", err)
		}
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("行の書き込みに失敗しました: %w", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("出力CSVのフラッシュに失敗しました: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
