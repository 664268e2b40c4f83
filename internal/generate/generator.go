// Package generate は1商品分の投稿生成フローを束ねます。
// 倉庫予測 → デモ選定 → プロンプト構築 → モデル呼び出し → フィールド照合、
// の順で進み、確定済みの投稿レコードを返します。
package generate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/promo-post-gen-go/internal/llm"
	"github.com/shouni/promo-post-gen-go/internal/model"
	"github.com/shouni/promo-post-gen-go/internal/prompt"
	"github.com/shouni/promo-post-gen-go/internal/reconcile"
	"github.com/shouni/promo-post-gen-go/internal/sampler"
)

// DefaultDemoCount は few-shot に使うデモ投稿の既定数です。
const DefaultDemoCount = 2

// postFields はモデルの構造化出力のスキーマです。
type postFields struct {
	ItemName  string `json:"item_name"`
	BrandName string `json:"brand_name"`
	Category  string `json:"category"`
	Interest  string `json:"interest"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// warehousePrediction は倉庫予測プロンプトの応答スキーマです。
type warehousePrediction struct {
	Warehouse string `json:"warehouse"`
}

// Config は Generator の構築パラメータです。
type Config struct {
	Client     llm.Client
	Sampler    *sampler.Sampler
	Reconciler *reconcile.Reconciler
	Examples   prompt.RegionExamples

	Categories []model.CatalogEntry
	Interests  []model.CatalogEntry
	Warehouses []model.Warehouse

	Model     string
	DemoCount int
}

// Generator は投稿生成のコアロジックです。I/O はすべて注入された
// 依存先に委譲されるため、フェイクの Client を使ってテストできます。
type Generator struct {
	client           llm.Client
	sampler          *sampler.Sampler
	reconciler       *reconcile.Reconciler
	postBuilder      *prompt.Builder
	warehouseBuilder *prompt.Builder

	categories []model.CatalogEntry
	interests  []model.CatalogEntry
	warehouses []model.Warehouse

	model     string
	demoCount int
}

// New は Generator を構築します。依存先の欠落とテンプレートの破損は
// ここで検出して即時失敗します。
func New(cfg Config) (*Generator, error) {
	if cfg.Client == nil {
		return nil, &model.InvalidConfigurationError{Reason: "LLMクライアントが未設定です"}
	}
	if cfg.Sampler == nil {
		return nil, &model.InvalidConfigurationError{Reason: "デモサンプラーが未設定です"}
	}
	if cfg.Reconciler == nil {
		return nil, &model.InvalidConfigurationError{Reason: "フィールド照合器が未設定です"}
	}
	if cfg.Model == "" {
		return nil, &model.InvalidConfigurationError{Reason: "生成モデル名が未設定です"}
	}

	postBuilder := prompt.NewPostBuilder(cfg.Examples)
	if err := postBuilder.Err(); err != nil {
		return nil, fmt.Errorf("投稿プロンプトの初期化に失敗しました: %w", err)
	}
	warehouseBuilder := prompt.NewWarehouseBuilder()
	if err := warehouseBuilder.Err(); err != nil {
		return nil, fmt.Errorf("倉庫プロンプトの初期化に失敗しました: %w", err)
	}

	demoCount := cfg.DemoCount
	if demoCount <= 0 {
		demoCount = DefaultDemoCount
	}

	return &Generator{
		client:           cfg.Client,
		sampler:          cfg.Sampler,
		reconciler:       cfg.Reconciler,
		postBuilder:      postBuilder,
		warehouseBuilder: warehouseBuilder,
		categories:       cfg.Categories,
		interests:        cfg.Interests,
		warehouses:       cfg.Warehouses,
		model:            cfg.Model,
		demoCount:        demoCount,
	}, nil
}

// Generate は1商品分の投稿を生成します。返るエラーはアイテム単位の失敗で、
// 呼び出し側はスキップして記録する前提です (バッチ全体は止めません)。
func (g *Generator) Generate(ctx context.Context, input model.ItemInput) (model.PostRecord, error) {
	predicted := g.predictWarehouse(ctx, input)

	demos := g.sampler.Select(sampler.Target{
		Region:       input.Region,
		ItemCategory: input.Category,
	}, g.demoCount)

	postPrompt, err := g.postBuilder.BuildPost(input, g.categories, g.interests, demos)
	if err != nil {
		return model.PostRecord{}, err
	}

	resp, err := g.client.GenerateContent(ctx, postPrompt, g.model)
	if err != nil {
		return model.PostRecord{}, fmt.Errorf("投稿の生成に失敗しました: %w", err)
	}

	// 検索対応クライアントでは、実際に検索が行われたことを要求します。
	// 検索なしの応答は商品情報の裏取りができていないため採用しません。
	if g.client.SupportsWebSearch() && !resp.SearchOccurred() {
		return model.PostRecord{}, fmt.Errorf("モデル応答にウェブ検索の痕跡がありません: %s", input.ItemURL)
	}

	var fields postFields
	if err := llm.ExtractJSON(resp.Text, &fields); err != nil {
		return model.PostRecord{}, err
	}

	return g.reconciler.Reconcile(input, reconcile.ModelFields{
		ItemName:      fields.ItemName,
		BrandName:     fields.BrandName,
		CategoryLabel: fields.Category,
		InterestLabel: fields.Interest,
		Warehouse:     predicted,
		Title:         fields.Title,
		Content:       fields.Content,
	})
}

// predictWarehouse は仕入通貨から倉庫コードを予測します。呼び出し元が倉庫を
// 指定済み、または通貨が不明な場合は何もしません。予測の失敗は警告止まりで、
// 照合側のフォールバックに委ねます。
func (g *Generator) predictWarehouse(ctx context.Context, input model.ItemInput) string {
	if input.Warehouse != "" || input.SourceCurrency == "" {
		return ""
	}

	warehousePrompt, err := g.warehouseBuilder.BuildWarehouse(input.SourceCurrency, g.warehouses)
	if err != nil {
		slog.Warn("倉庫予測プロンプトの構築に失敗しました", slog.Any("error", err))
		return ""
	}

	resp, err := g.client.GenerateContent(ctx, warehousePrompt, g.model)
	if err != nil {
		slog.Warn("倉庫予測の呼び出しに失敗しました",
			slog.String("item_url", input.ItemURL),
			slog.Any("error", err))
		return ""
	}

	var pred warehousePrediction
	if err := llm.ExtractJSON(resp.Text, &pred); err != nil {
		slog.Warn("倉庫予測の応答をパースできませんでした",
			slog.String("item_url", input.ItemURL),
			slog.Any("error", err))
		return ""
	}

	for _, w := range g.warehouses {
		if w.Code == pred.Warehouse {
			return pred.Warehouse
		}
	}

	slog.Warn("倉庫予測がホワイトリスト外のコードを返しました",
		slog.String("item_url", input.ItemURL),
		slog.String("predicted", pred.Warehouse))
	return ""
}
