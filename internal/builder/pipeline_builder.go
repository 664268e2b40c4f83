package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/shouni/promo-post-gen-go/internal/generate"
	"github.com/shouni/promo-post-gen-go/internal/llm"
	"github.com/shouni/promo-post-gen-go/internal/pipeline"
	"github.com/shouni/promo-post-gen-go/internal/prompt"
	"github.com/shouni/promo-post-gen-go/internal/reconcile"
	"github.com/shouni/promo-post-gen-go/internal/records"
	"github.com/shouni/promo-post-gen-go/internal/sampler"
	"github.com/shouni/promo-post-gen-go/internal/scrape"
	"github.com/shouni/web-text-pipe-go/pkg/builder"
)

// BuildPipeline は、必要なすべての依存関係を構築し、DIされた Pipeline インスタンスと
// GCSクライアントのクリーンアップ関数 (Close) を返します。
func BuildPipeline(ctx context.Context, opts pipeline.CmdOptions) (*pipeline.Pipeline, func(), error) {

	// ----------------------------------------------------------------
	// 1. GCS クライアントの初期化とクリーンアップ設定
	// ----------------------------------------------------------------

	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("GCSクライアントの初期化に失敗しました: %w", err)
	}

	// クリーンアップ関数を定義
	gcsClientCloser := func() {
		gcsClient.Close()
	}

	// ----------------------------------------------------------------
	// 2. 入力ステージとマスターデータの具体化
	// ----------------------------------------------------------------

	opener := pipeline.NewLocalGCSOpener(gcsClient)
	source := pipeline.NewCSVItemSource(opener)

	masterData, err := pipeline.LoadMasterData(ctx, opener, opts)
	if err != nil {
		return nil, gcsClientCloser, fmt.Errorf("マスターデータの読み込みに失敗しました: %w", err)
	}

	// ----------------------------------------------------------------
	// 3. Webコンテンツ取得のための依存関係の具体化
	// ----------------------------------------------------------------

	// BuildReliableScraperExecutor を呼び出し、リトライ実行者を取得
	scraperExecutor, err := builder.BuildReliableScraperExecutor(opts.ScraperTimeout, opts.MaxScraperParallel)
	if err != nil {
		return nil, gcsClientCloser, fmt.Errorf("ReliableScraperExecutorの初期化に失敗しました: %w", err)
	}
	fetcher := scrape.NewFetcher(scraperExecutor)

	// ----------------------------------------------------------------
	// 4. 投稿生成コア (サンプラー・リコンサイラー・LLMクライアント) の構築
	// ----------------------------------------------------------------

	demoSampler, err := sampler.New(masterData.DemoPool)
	if err != nil {
		return nil, gcsClientCloser, fmt.Errorf("デモサンプラーの初期化に失敗しました: %w", err)
	}

	reconciler, err := reconcile.New(
		masterData.Categories,
		masterData.Interests,
		masterData.Warehouses,
		masterData.Rates,
		reconcile.DefaultCTAConfig(),
	)
	if err != nil {
		return nil, gcsClientCloser, fmt.Errorf("リコンサイラーの初期化に失敗しました: %w", err)
	}

	llmClient, err := llm.NewClient(ctx, llm.Config{
		APIKey:    opts.LLMAPIKey,
		WebSearch: opts.WebSearch,
		Timeout:   opts.LLMTimeout,
	})
	if err != nil {
		return nil, gcsClientCloser, fmt.Errorf("LLMクライアントの初期化に失敗しました: %w", err)
	}

	generator, err := generate.New(generate.Config{
		Client:     llmClient,
		Sampler:    demoSampler,
		Reconciler: reconciler,
		Examples:   prompt.DefaultRegionExamples(),
		Categories: masterData.Categories,
		Interests:  masterData.Interests,
		Warehouses: masterData.Warehouses,
		Model:      opts.LLMModel,
		DemoCount:  opts.DemoCount,
	})
	if err != nil {
		return nil, gcsClientCloser, fmt.Errorf("投稿生成器の初期化に失敗しました: %w", err)
	}

	// ----------------------------------------------------------------
	// 5. 出力シンクと実行ステージの構築 (DIの実行)
	// ----------------------------------------------------------------

	// 出力先が GCS の場合、シンクは一時ディレクトリに書き込み、
	// Publisher がアップロードを担います。
	localOutput, localAborted, err := resolveLocalSinkPaths(opts)
	if err != nil {
		return nil, gcsClientCloser, err
	}

	sink := records.NewWriter(localOutput)
	abortedSink := records.NewAbortedWriter(localAborted)

	executor := pipeline.NewGenerateExecutorImpl(generator, sink, abortedSink, opts.MaxGenerateParallel)
	publisher := pipeline.NewCSVPublisherImpl(gcsClient, localOutput, localAborted)

	// 全てのステージとオプションをPipelineに注入し、クリーンアップ関数も一緒に返す
	return pipeline.NewPipeline(opts, source, fetcher, executor, publisher), gcsClientCloser, nil
}

// resolveLocalSinkPaths はシンクが追記するローカルCSVパスを決定します。
// GCS URI が指定された場合は一時ディレクトリ配下のパスを割り当てます。
func resolveLocalSinkPaths(opts pipeline.CmdOptions) (string, string, error) {
	localOutput := opts.OutputFile
	localAborted := opts.AbortedFile

	if strings.HasPrefix(localOutput, "gs://") || strings.HasPrefix(localAborted, "gs://") {
		tmpDir, err := os.MkdirTemp("", "promo-post-gen-*")
		if err != nil {
			return "", "", fmt.Errorf("一時ディレクトリの作成に失敗しました: %w", err)
		}
		if strings.HasPrefix(localOutput, "gs://") {
			localOutput = filepath.Join(tmpDir, "posts.csv")
		}
		if strings.HasPrefix(localAborted, "gs://") {
			localAborted = filepath.Join(tmpDir, "aborted.csv")
		}
	}

	if localOutput == "" {
		return "", "", fmt.Errorf("出力ファイルが指定されていません。--output で出力先を指定してください。")
	}
	if localAborted == "" {
		localAborted = defaultAbortedPath(localOutput)
	}
	return localOutput, localAborted, nil
}

// defaultAbortedPath は出力CSVの隣に中断記録CSVのパスを導出します。
func defaultAbortedPath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	base := strings.TrimSuffix(outputPath, ext)
	if ext == "" {
		ext = ".csv"
	}
	return base + "_aborted" + ext
}
