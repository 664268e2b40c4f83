package prompt

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed master_examples.json
var defaultExamplesJSON []byte

// Example は文体見本として使うゴールドスタンダード投稿です。
type Example struct {
	ItemURL  string `json:"item_url"`
	ItemName string `json:"item_name"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// RegionExamples は地域コード (大文字) から文体見本リストへの対応表です。
// 埋め込み定数ではなく設定としてビルダーへ渡します。
type RegionExamples map[string][]Example

// DefaultRegionExamples は同梱の既定見本を返します。
// 埋め込み JSON が壊れている場合は panic します (ビルド成果物の破損)。
func DefaultRegionExamples() RegionExamples {
	var examples RegionExamples
	if err := json.Unmarshal(defaultExamplesJSON, &examples); err != nil {
		panic(fmt.Sprintf("組み込みの見本JSONをパースできません: %v", err))
	}
	return examples
}

// ForRegion は地域に対応する見本を返します。地域は大文字に正規化されます。
// 見本が未定義の地域はプロンプトを組めないためエラーです。
func (re RegionExamples) ForRegion(region string) ([]Example, error) {
	examples, ok := re[strings.ToUpper(region)]
	if !ok || len(examples) == 0 {
		return nil, fmt.Errorf("地域 %q の文体見本が定義されていません", region)
	}
	return examples, nil
}
