package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/promo-post-gen-go/internal/model"
)

// ----------------------------------------------------------------
// テスト用スタブ
// ----------------------------------------------------------------

type stringOpener struct {
	files map[string]string
}

func (o *stringOpener) Open(_ context.Context, path string) (io.ReadCloser, error) {
	content, ok := o.files[path]
	if !ok {
		return nil, errors.New("ファイルが見つかりません: " + path)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

type stubGenerator struct {
	mu     sync.Mutex
	inputs []model.ItemInput
	err    error
}

func (g *stubGenerator) Generate(_ context.Context, input model.ItemInput) (model.PostRecord, error) {
	g.mu.Lock()
	g.inputs = append(g.inputs, input)
	g.mu.Unlock()
	if g.err != nil {
		return model.PostRecord{}, g.err
	}
	return model.PostRecord{
		ItemURL:  input.ItemURL,
		Region:   input.Region,
		ItemName: input.ItemName,
		Title:    "生成済み: " + input.ItemName,
	}, nil
}

type memorySink struct {
	mu      sync.Mutex
	records []model.PostRecord
}

func (s *memorySink) Append(rec model.PostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

type memoryAbortedSink struct {
	mu      sync.Mutex
	records []model.AbortedRecord
}

func (s *memoryAbortedSink) Append(rec model.AbortedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func newTestExecutor(gen PostGenerator, sink RecordSink, aborted AbortedSink, parallel int) *GenerateExecutorImpl {
	e := NewGenerateExecutorImpl(gen, sink, aborted, parallel)
	e.rateLimit = time.Millisecond
	return e
}

func completeItem(url string) model.ItemInput {
	return model.ItemInput{
		ItemURL:        url,
		Region:         "HK",
		ItemName:       "テスト商品",
		SourcePrice:    1000,
		SourceCurrency: "JPY",
		ImageURL:       "https://example.com/images/I/item.jpg",
	}
}

// ----------------------------------------------------------------
// CSVItemSource
// ----------------------------------------------------------------

func TestCSVItemSource_Read(t *testing.T) {
	opener := &stringOpener{files: map[string]string{
		"items.csv": "item_url,region,item_name\nhttps://example.com/a,HK,商品A\nhttps://example.com/b,TW,商品B\n",
	}}
	source := NewCSVItemSource(opener)

	items, err := source.Read(context.Background(), CmdOptions{InputFile: "items.csv"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://example.com/a", items[0].ItemURL)
	assert.Equal(t, "TW", items[1].Region)
}

func TestCSVItemSource_Read_MissingFile(t *testing.T) {
	source := NewCSVItemSource(&stringOpener{files: map[string]string{}})

	_, err := source.Read(context.Background(), CmdOptions{})
	assert.Error(t, err, "入力ファイル未指定はエラーになるべき")

	_, err = source.Read(context.Background(), CmdOptions{InputFile: "nothing.csv"})
	assert.Error(t, err)
}

// ----------------------------------------------------------------
// LoadMasterData
// ----------------------------------------------------------------

func TestLoadMasterData(t *testing.T) {
	opener := &stringOpener{files: map[string]string{
		"categories.csv": "label,code\n美容・化粧品,beauty\n",
		"interests.csv":  "label,code\nコスメ,cosmetics\n",
		"warehouses.csv": "label,warehouse_id,currency\n大阪倉庫,warehouse-qs-osaka,JPY\n",
		"rates.json":     `{"USD": {"JPY": 150.0}}`,
		"demos.json":     `[{"post_id": "p1", "region": "HK", "item_category": "beauty", "like_count": 10}]`,
	}}
	opts := CmdOptions{
		CategoriesFile: "categories.csv",
		InterestsFile:  "interests.csv",
		WarehousesFile: "warehouses.csv",
		RatesFile:      "rates.json",
		DemoPoolFile:   "demos.json",
	}

	md, err := LoadMasterData(context.Background(), opener, opts)
	require.NoError(t, err)
	assert.Len(t, md.Categories, 1)
	assert.Len(t, md.Interests, 1)
	assert.Equal(t, "warehouse-qs-osaka", md.Warehouses[0].Code)
	assert.Equal(t, 150.0, md.Rates["USD"]["JPY"])
	assert.Len(t, md.DemoPool, 1)
}

func TestLoadMasterData_MissingFileFailsFast(t *testing.T) {
	opener := &stringOpener{files: map[string]string{}}

	_, err := LoadMasterData(context.Background(), opener, CmdOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "カテゴリ")
}

// ----------------------------------------------------------------
// GenerateExecutorImpl
// ----------------------------------------------------------------

func TestGenerateExecutorImpl_Run_Success(t *testing.T) {
	gen := &stubGenerator{}
	sink := &memorySink{}
	aborted := &memoryAbortedSink{}
	executor := newTestExecutor(gen, sink, aborted, 2)

	items := []model.ItemInput{
		completeItem("https://example.com/a"),
		completeItem("https://example.com/b"),
	}

	summary, err := executor.Run(context.Background(), CmdOptions{}, items, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Generated)
	assert.Equal(t, 0, summary.Aborted)
	require.Len(t, sink.records, 2)
	// 入力順が保たれること
	assert.Equal(t, "https://example.com/a", sink.records[0].ItemURL)
	assert.Equal(t, "https://example.com/b", sink.records[1].ItemURL)
}

func TestGenerateExecutorImpl_Run_MandatoryGate(t *testing.T) {
	gen := &stubGenerator{}
	sink := &memorySink{}
	aborted := &memoryAbortedSink{}
	executor := newTestExecutor(gen, sink, aborted, 1)

	// 画像・価格・通貨がすべて欠けている商品
	items := []model.ItemInput{{ItemURL: "https://example.com/bare", Region: "HK"}}

	summary, err := executor.Run(context.Background(), CmdOptions{}, items, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Generated)
	assert.Equal(t, 1, summary.Aborted)
	assert.Empty(t, gen.inputs, "必須属性が欠けた商品は生成器に渡されないべき")

	require.Len(t, aborted.records, 1)
	reason := aborted.records[0].Reason
	assert.Contains(t, reason, "image_url")
	assert.Contains(t, reason, "source_price")
	assert.Contains(t, reason, "source_currency")
}

func TestGenerateExecutorImpl_Run_MergesScrapedPage(t *testing.T) {
	gen := &stubGenerator{}
	sink := &memorySink{}
	aborted := &memoryAbortedSink{}
	executor := newTestExecutor(gen, sink, aborted, 1)

	item := model.ItemInput{ItemURL: "https://example.com/page", Region: "HK"}
	page := "# 高品質チタンコーティングフライパン 26cm\n\n" +
		"![商品画像](https://example.com/images/I/pan._SL1500_.jpg)\n\n" +
		"価格: ￥3,980\n"

	summary, err := executor.Run(context.Background(), CmdOptions{},
		[]model.ItemInput{item}, map[string]string{item.ItemURL: page})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Generated)

	require.Len(t, gen.inputs, 1)
	merged := gen.inputs[0]
	assert.Equal(t, "https://example.com/images/I/pan._SL1500_.jpg", merged.ImageURL)
	assert.Equal(t, 3980.0, merged.SourcePrice)
	assert.Equal(t, "JPY", merged.SourceCurrency)
}

func TestGenerateExecutorImpl_Run_GeneratorErrorIsPerItem(t *testing.T) {
	gen := &stubGenerator{err: &model.CurrencyConversionFailedError{From: "XXX", To: "JPY"}}
	sink := &memorySink{}
	aborted := &memoryAbortedSink{}
	executor := newTestExecutor(gen, sink, aborted, 1)

	items := []model.ItemInput{completeItem("https://example.com/a")}

	summary, err := executor.Run(context.Background(), CmdOptions{}, items, map[string]string{})
	require.NoError(t, err, "商品単位の失敗はバッチを停止させないべき")
	assert.Equal(t, 0, summary.Generated)
	assert.Equal(t, 1, summary.Aborted)
	require.Len(t, aborted.records, 1)
	assert.Contains(t, aborted.records[0].Reason, "XXX")
}

// ----------------------------------------------------------------
// Pipeline.Execute
// ----------------------------------------------------------------

type stubStages struct {
	items     []model.ItemInput
	fetchURLs []string
	summary   *RunSummary
	published bool
}

func (s *stubStages) Read(context.Context, CmdOptions) ([]model.ItemInput, error) {
	return s.items, nil
}

func (s *stubStages) Fetch(_ context.Context, urls []string) (map[string]string, error) {
	s.fetchURLs = urls
	return map[string]string{}, nil
}

func (s *stubStages) Run(context.Context, CmdOptions, []model.ItemInput, map[string]string) (*RunSummary, error) {
	return s.summary, nil
}

func (s *stubStages) Publish(_ context.Context, _ CmdOptions, summary *RunSummary) error {
	s.published = true
	return nil
}

func TestPipeline_Execute(t *testing.T) {
	stages := &stubStages{
		items:   []model.ItemInput{completeItem("https://example.com/a")},
		summary: &RunSummary{Generated: 1},
	}
	p := NewPipeline(CmdOptions{}, stages, stages, stages, stages)

	err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a"}, stages.fetchURLs)
	assert.True(t, stages.published)
}

// ----------------------------------------------------------------
// GCS URI
// ----------------------------------------------------------------

func TestParseGCSURI(t *testing.T) {
	bucket, object, err := parseGCSURI("gs://my-bucket/path/to/output.csv")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "path/to/output.csv", object)

	_, _, err = parseGCSURI("gs://bucket-only")
	assert.Error(t, err)

	_, _, err = parseGCSURI("gs:///no-bucket")
	assert.Error(t, err)
}
