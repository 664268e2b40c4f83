package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/promo-post-gen-go/internal/forex"
	"github.com/shouni/promo-post-gen-go/internal/llm"
	"github.com/shouni/promo-post-gen-go/internal/model"
	"github.com/shouni/promo-post-gen-go/internal/prompt"
	"github.com/shouni/promo-post-gen-go/internal/reconcile"
	"github.com/shouni/promo-post-gen-go/internal/sampler"
)

// fakeClient はプロンプト内容に応じて定型応答を返すテスト用クライアントです。
type fakeClient struct {
	webSearch      bool
	searchOccurred bool
	postResponse   string
	prompts        []string
}

func (f *fakeClient) GenerateContent(_ context.Context, p, _ string) (*llm.Response, error) {
	f.prompts = append(f.prompts, p)

	if strings.Contains(p, "warehouse codes") {
		return &llm.Response{Text: `{"warehouse": "warehouse-qs-osaka"}`}, nil
	}

	resp := &llm.Response{Text: f.postResponse}
	if f.searchOccurred {
		resp.SearchSources = []string{"https://example.com/source"}
	}
	return resp, nil
}

func (f *fakeClient) SupportsWebSearch() bool { return f.webSearch }

const validPostJSON = "```json\n" + `{
	"item_name": "Widget Pro",
	"brand_name": "Acme",
	"category": "家電・ガジェット",
	"interest": "テック好き",
	"title": "🎧 Widget Pro | 最高の一台",
	"content": "本文です。"
}` + "\n```"

func newTestGenerator(t *testing.T, client llm.Client) *Generator {
	t.Helper()

	categories := []model.CatalogEntry{{Label: "家電・ガジェット", Code: "electronics"}}
	interests := []model.CatalogEntry{{Label: "テック好き", Code: "tech"}}
	warehouses := []model.Warehouse{
		{Label: "米国倉庫", Code: "WH1", Currency: "USD"},
		{Label: "大阪倉庫", Code: "warehouse-qs-osaka", Currency: "JPY"},
	}

	s, err := sampler.New([]model.DemoPost{
		{PostID: "p1", Region: "HK", ItemCategory: "electronics", ItemName: "Past Widget", Popularity: 100},
	})
	require.NoError(t, err)

	r, err := reconcile.New(categories, interests, warehouses,
		forex.Table{"JPY": {"USD": 0.0066}}, reconcile.DefaultCTAConfig())
	require.NoError(t, err)

	g, err := New(Config{
		Client:     client,
		Sampler:    s,
		Reconciler: r,
		Examples:   prompt.DefaultRegionExamples(),
		Categories: categories,
		Interests:  interests,
		Warehouses: warehouses,
		Model:      "gemini-2.5-flash",
	})
	require.NoError(t, err)
	return g
}

func baseInput() model.ItemInput {
	return model.ItemInput{
		ItemURL:        "https://example.com/item/1",
		Region:         "HK",
		ImageURL:       "https://example.com/I/img.jpg",
		SourcePrice:    1000,
		SourceCurrency: "JPY",
	}
}

func TestGenerate(t *testing.T) {
	client := &fakeClient{postResponse: validPostJSON}
	g := newTestGenerator(t, client)

	rec, err := g.Generate(context.Background(), baseInput())
	require.NoError(t, err)

	assert.Equal(t, "Widget Pro", rec.ItemName)
	assert.Equal(t, "Acme", rec.BrandName)
	assert.Equal(t, "electronics", rec.Category)
	assert.Equal(t, "tech", rec.Interest)
	// 通貨 JPY からの倉庫予測が採用され、価格は倉庫通貨のまま。
	assert.Equal(t, "warehouse-qs-osaka", rec.Warehouse)
	assert.Equal(t, "JPY", rec.ItemPriceCurrency)
	assert.Equal(t, 1000.0, rec.ItemUnitPrice)

	// 倉庫予測 + 投稿生成の2回呼ばれる。
	require.Len(t, client.prompts, 2)
	assert.Contains(t, client.prompts[0], "'JPY'")
	assert.Contains(t, client.prompts[1], "Past Widget")
}

func TestGenerateSkipsWarehousePredictionWhenCallerSupplied(t *testing.T) {
	client := &fakeClient{postResponse: validPostJSON}
	g := newTestGenerator(t, client)

	input := baseInput()
	input.Warehouse = "WH1"

	rec, err := g.Generate(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "WH1", rec.Warehouse)
	// 投稿生成の1回のみ。
	assert.Len(t, client.prompts, 1)
}

func TestGenerateRequiresSearchEvidence(t *testing.T) {
	client := &fakeClient{postResponse: validPostJSON, webSearch: true, searchOccurred: false}
	g := newTestGenerator(t, client)

	_, err := g.Generate(context.Background(), baseInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ウェブ検索")
}

func TestGenerateSearchClientWithEvidenceSucceeds(t *testing.T) {
	client := &fakeClient{postResponse: validPostJSON, webSearch: true, searchOccurred: true}
	g := newTestGenerator(t, client)

	_, err := g.Generate(context.Background(), baseInput())
	require.NoError(t, err)
}

func TestGenerateMalformedModelOutput(t *testing.T) {
	client := &fakeClient{postResponse: "これはJSONではありません"}
	g := newTestGenerator(t, client)

	_, err := g.Generate(context.Background(), baseInput())
	assert.Error(t, err)
}

func TestGenerateMissingPricePropagatesTypedError(t *testing.T) {
	client := &fakeClient{postResponse: validPostJSON}
	g := newTestGenerator(t, client)

	input := baseInput()
	input.SourcePrice = 0

	_, err := g.Generate(context.Background(), input)
	require.Error(t, err)
	var priceErr *model.MissingPriceInformationError
	assert.ErrorAs(t, err, &priceErr)
}

func TestNewValidatesDependencies(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	var cfgErr *model.InvalidConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
