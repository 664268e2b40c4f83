// Package catalog は、照合に使うマスターデータ (カテゴリ・興味分野・倉庫の
// ホワイトリスト、為替レートテーブル、デモ投稿プール) の読み込みを担います。
// パーサはすべて io.Reader を受け取るため、ローカルファイルでも GCS 由来の
// ストリームでも同じ経路で処理できます。
package catalog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shouni/promo-post-gen-go/internal/forex"
	"github.com/shouni/promo-post-gen-go/internal/model"
)

// ParseCatalogEntries は label,code の2列ヘッダ付き CSV からホワイトリストを
// 読み込みます。kind はエラーメッセージと空チェックに使う名称です。
func ParseCatalogEntries(r io.Reader, kind string) ([]model.CatalogEntry, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%sのCSV読み込みに失敗しました: %w", kind, err)
	}

	labelIdx, codeIdx, err := headerIndexes(rows, kind, "label", "code")
	if err != nil {
		return nil, err
	}

	var entries []model.CatalogEntry
	for _, row := range rows[1:] {
		if len(row) <= labelIdx || len(row) <= codeIdx {
			continue
		}
		label := strings.TrimSpace(row[labelIdx])
		code := strings.TrimSpace(row[codeIdx])
		if label == "" || code == "" {
			continue
		}
		entries = append(entries, model.CatalogEntry{Label: label, Code: code})
	}

	if len(entries) == 0 {
		return nil, &model.InvalidConfigurationError{Reason: fmt.Sprintf("%sのホワイトリストが空です", kind)}
	}
	return entries, nil
}

// ParseWarehouses は label,warehouse_id,currency の3列ヘッダ付き CSV から
// 倉庫リストを読み込みます。通貨コードは大文字に正規化されます。
func ParseWarehouses(r io.Reader) ([]model.Warehouse, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("倉庫のCSV読み込みに失敗しました: %w", err)
	}

	idx, err := headerIndexMap(rows, "倉庫", "label", "warehouse_id", "currency")
	if err != nil {
		return nil, err
	}

	var warehouses []model.Warehouse
	for _, row := range rows[1:] {
		if len(row) <= idx["label"] || len(row) <= idx["warehouse_id"] || len(row) <= idx["currency"] {
			continue
		}
		w := model.Warehouse{
			Label:    strings.TrimSpace(row[idx["label"]]),
			Code:     strings.TrimSpace(row[idx["warehouse_id"]]),
			Currency: strings.ToUpper(strings.TrimSpace(row[idx["currency"]])),
		}
		if w.Code == "" || w.Currency == "" {
			continue
		}
		warehouses = append(warehouses, w)
	}

	if len(warehouses) == 0 {
		return nil, &model.InvalidConfigurationError{Reason: "倉庫のホワイトリストが空です"}
	}
	return warehouses, nil
}

// ParseRates は currency → currency → rate の入れ子 JSON オブジェクトから
// 為替レートテーブルを読み込みます。通貨コードは大文字に正規化されます。
func ParseRates(r io.Reader) (forex.Table, error) {
	var raw map[string]map[string]float64
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("為替レートのJSON読み込みに失敗しました: %w", err)
	}

	table := make(forex.Table, len(raw))
	for from, inner := range raw {
		row := make(map[string]float64, len(inner))
		for to, rate := range inner {
			row[strings.ToUpper(to)] = rate
		}
		table[strings.ToUpper(from)] = row
	}
	return table, nil
}

// ParseDemoPool は過去投稿の JSON 配列からデモプールを読み込みます。
// プールが空かどうかの判断は Sampler の構築時に行われます。
func ParseDemoPool(r io.Reader) ([]model.DemoPost, error) {
	var pool []model.DemoPost
	if err := json.NewDecoder(r).Decode(&pool); err != nil {
		return nil, fmt.Errorf("デモプールのJSON読み込みに失敗しました: %w", err)
	}
	return pool, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// headerIndexes は2列の固定ヘッダ位置を返すショートカットです。
func headerIndexes(rows [][]string, kind, col1, col2 string) (int, int, error) {
	idx, err := headerIndexMap(rows, kind, col1, col2)
	if err != nil {
		return 0, 0, err
	}
	return idx[col1], idx[col2], nil
}

// headerIndexMap は先頭行から必須列の位置を解決します。列が欠けている
// 場合は設定エラーです。
func headerIndexMap(rows [][]string, kind string, cols ...string) (map[string]int, error) {
	if len(rows) == 0 {
		return nil, &model.InvalidConfigurationError{Reason: fmt.Sprintf("%sのCSVが空です", kind)}
	}

	idx := make(map[string]int, len(cols))
	for i, name := range rows[0] {
		idx[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, col := range cols {
		if _, ok := idx[col]; !ok {
			return nil, &model.InvalidConfigurationError{Reason: fmt.Sprintf("%sのCSVに必須列 %q がありません", kind, col)}
		}
	}
	return idx, nil
}
