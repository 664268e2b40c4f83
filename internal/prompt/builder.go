// Package prompt は LLM へ送るプロンプトの組み立てを担います。
// テンプレートは go:embed で同梱し、text/template で展開します。
package prompt

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/shouni/promo-post-gen-go/internal/model"
)

//go:embed post_prompt.md
var PostPromptTemplate string

//go:embed warehouse_prompt.md
var WarehousePromptTemplate string

// ----------------------------------------------------------------
// テンプレート構造体
// ----------------------------------------------------------------

// PostTemplateData は投稿生成プロンプトの埋め込みデータです。
type PostTemplateData struct {
	Region             string
	ItemURL            string
	ItemName           string
	CategoryLabels     string
	InterestLabels     string
	DemosJSON          string
	MasterExamplesJSON string
}

// WarehouseTemplateData は倉庫予測プロンプトの埋め込みデータです。
type WarehouseTemplateData struct {
	SourceCurrency string
	WarehouseCodes string
}

// ----------------------------------------------------------------
// ビルダー実装
// ----------------------------------------------------------------

// Builder はプロンプトの構成とテンプレート実行を管理します。
type Builder struct {
	tmpl     *template.Template
	examples RegionExamples
	err      error
}

// NewPostBuilder は投稿生成用の Builder を初期化します。examples は地域別の
// 文体見本です。パースに失敗した場合は、内部にエラーを保持した Builder を返します。
func NewPostBuilder(examples RegionExamples) *Builder {
	tmpl, err := template.New("post").Parse(PostPromptTemplate)
	return &Builder{tmpl: tmpl, examples: examples, err: err}
}

// NewWarehouseBuilder は倉庫予測用の Builder を初期化します。
func NewWarehouseBuilder() *Builder {
	tmpl, err := template.New("warehouse").Parse(WarehousePromptTemplate)
	return &Builder{tmpl: tmpl, err: err}
}

// Err は Builder の初期化（テンプレートパース）時に発生したエラーを返します。
func (b *Builder) Err() error {
	return b.err
}

// BuildPost は商品情報・ホワイトリスト・デモ投稿からプロンプトを完成させます。
func (b *Builder) BuildPost(input model.ItemInput, categories, interests []model.CatalogEntry, demos []model.DemoPost) (string, error) {
	if b.tmpl == nil || b.err != nil {
		return "", fmt.Errorf("投稿プロンプトのテンプレートが初期化されていません: %w", b.err)
	}
	if input.ItemURL == "" {
		return "", fmt.Errorf("投稿プロンプトを構築できません: item_url が空です")
	}

	examples, err := b.examples.ForRegion(input.Region)
	if err != nil {
		return "", err
	}
	examplesJSON, err := json.MarshalIndent(examples, "", "  ")
	if err != nil {
		return "", fmt.Errorf("文体見本のシリアライズに失敗しました: %w", err)
	}

	demosJSON, err := FormatDemos(demos)
	if err != nil {
		return "", err
	}

	data := PostTemplateData{
		Region:             input.Region,
		ItemURL:            input.ItemURL,
		ItemName:           input.ItemName,
		CategoryLabels:     joinLabels(categories),
		InterestLabels:     joinLabels(interests),
		DemosJSON:          demosJSON,
		MasterExamplesJSON: string(examplesJSON),
	}

	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("投稿プロンプトの実行に失敗しました: %w", err)
	}
	return sb.String(), nil
}

// BuildWarehouse は仕入通貨から倉庫コードを予測させるプロンプトを完成させます。
func (b *Builder) BuildWarehouse(sourceCurrency string, warehouses []model.Warehouse) (string, error) {
	if b.tmpl == nil || b.err != nil {
		return "", fmt.Errorf("倉庫プロンプトのテンプレートが初期化されていません: %w", b.err)
	}
	if sourceCurrency == "" {
		return "", fmt.Errorf("倉庫プロンプトを構築できません: 仕入通貨が空です")
	}

	codes := make([]string, len(warehouses))
	for i, w := range warehouses {
		codes[i] = w.Code
	}

	data := WarehouseTemplateData{
		SourceCurrency: sourceCurrency,
		WarehouseCodes: strings.Join(codes, ", "),
	}

	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("倉庫プロンプトの実行に失敗しました: %w", err)
	}
	return sb.String(), nil
}

// FormatDemos はデモ投稿を few-shot 用の JSON 文字列へ整形します。
// 空のスライスは空文字列になり、テンプレート側でセクションごと省略されます。
func FormatDemos(demos []model.DemoPost) (string, error) {
	if len(demos) == 0 {
		return "", nil
	}

	type demoView struct {
		ItemName string `json:"item_name"`
		Title    string `json:"title"`
		Content  string `json:"content"`
	}
	views := make([]demoView, len(demos))
	for i, d := range demos {
		views[i] = demoView{ItemName: d.ItemName, Title: d.Title, Content: d.Content}
	}

	out, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return "", fmt.Errorf("デモ投稿のシリアライズに失敗しました: %w", err)
	}
	return string(out), nil
}

func joinLabels(entries []model.CatalogEntry) string {
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Label
	}
	return strings.Join(labels, ", ")
}
