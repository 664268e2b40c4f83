package pipeline

import (
	"context"
	"time"

	"github.com/shouni/promo-post-gen-go/internal/model"
)

// ----------------------------------------------------------------
// 共通構造体
// ----------------------------------------------------------------

// CmdOptions は CLI オプションの値を集約するための構造体です。
type CmdOptions struct {
	LLMAPIKey  string
	LLMModel   string
	WebSearch  bool
	LLMTimeout time.Duration

	ScraperTimeout      time.Duration
	MaxScraperParallel  int
	MaxGenerateParallel int
	DemoCount           int

	InputFile      string
	CategoriesFile string
	InterestsFile  string
	WarehousesFile string
	RatesFile      string
	DemoPoolFile   string

	OutputFile  string
	AbortedFile string
}

// ----------------------------------------------------------------
// パイプラインステージのインターフェース (DIの契約)
// ----------------------------------------------------------------

// ItemSource は、処理対象の商品参照リストを読み込むステージの契約です。
type ItemSource interface {
	// Read は入力CSV (ローカル/GCS) から商品参照を読み込みます。
	Read(ctx context.Context, opts CmdOptions) ([]model.ItemInput, error)
}

// PageFetcher は、商品URLからページコンテンツを取得するステージの契約です。
type PageFetcher interface {
	// Fetch はURLリストを並列スクレイプし、URL→コンテンツの対応表を返します。
	Fetch(ctx context.Context, urls []string) (map[string]string, error)
}

// PostGenerator は、1商品分の投稿生成の契約です。
type PostGenerator interface {
	Generate(ctx context.Context, input model.ItemInput) (model.PostRecord, error)
}

// RecordSink は確定済みレコードの書き込み先です。実装は並行呼び出しに耐えること。
type RecordSink interface {
	Append(rec model.PostRecord) error
}

// AbortedSink はスキップされた商品の記録先です。
type AbortedSink interface {
	Append(rec model.AbortedRecord) error
}

// BatchExecutor は、取得済みページと商品参照から投稿を一括生成する
// ステージの契約です。
type BatchExecutor interface {
	Run(ctx context.Context, opts CmdOptions, items []model.ItemInput, pages map[string]string) (*RunSummary, error)
}

// OutputPublisher は、実行完了後に出力を公開する (GCSへのアップロードや
// プレビュー表示) ステージの契約です。
type OutputPublisher interface {
	Publish(ctx context.Context, opts CmdOptions, summary *RunSummary) error
}

// RunSummary は1回のバッチ実行の結果集計です。
type RunSummary struct {
	Generated int
	Aborted   int
	Records   []model.PostRecord
}

// ----------------------------------------------------------------
// Pipeline コア構造
// ----------------------------------------------------------------

// Pipeline はアプリケーションの実行パイプラインを定義し、DIされた依存関係を保持します。
type Pipeline struct {
	// Options はパイプライン実行全体で必要な設定値を保持します。
	Options CmdOptions
	// DIされるステージ実装
	Source    ItemSource
	Fetcher   PageFetcher
	Executor  BatchExecutor
	Publisher OutputPublisher
}

// NewPipeline は CmdOptions とステージの具象実装を受け取り、Pipelineインスタンスを構築します。
func NewPipeline(
	opts CmdOptions,
	source ItemSource,
	fetcher PageFetcher,
	executor BatchExecutor,
	publisher OutputPublisher,
) *Pipeline {
	return &Pipeline{
		Options:   opts,
		Source:    source,
		Fetcher:   fetcher,
		Executor:  executor,
		Publisher: publisher,
	}
}
