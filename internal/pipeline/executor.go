package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shouni/promo-post-gen-go/internal/model"
	"github.com/shouni/promo-post-gen-go/internal/scrape"
)

// DefaultLLMRateLimit はLLM APIコール間の最小間隔です。
const DefaultLLMRateLimit = 2 * time.Second

// itemResult は1商品分の処理結果を保持します。成功・中断のどちらか一方が入ります。
type itemResult struct {
	record  model.PostRecord
	aborted *model.AbortedRecord
}

// GenerateExecutorImpl は BatchExecutor の具象実装です。
// Goroutine、セマフォ、レートリミッターを使用して商品ごとの生成を並列実行します。
type GenerateExecutorImpl struct {
	generator PostGenerator
	sink      RecordSink
	abortSink AbortedSink
	parallel  int
	rateLimit time.Duration
}

// インターフェースの実装を強制
var _ BatchExecutor = (*GenerateExecutorImpl)(nil)

// NewGenerateExecutorImpl は GenerateExecutorImpl の新しいインスタンスを作成します。
func NewGenerateExecutorImpl(generator PostGenerator, sink RecordSink, abortSink AbortedSink, parallel int) *GenerateExecutorImpl {
	if parallel < 1 {
		parallel = 1
	}
	return &GenerateExecutorImpl{
		generator: generator,
		sink:      sink,
		abortSink: abortSink,
		parallel:  parallel,
		rateLimit: DefaultLLMRateLimit,
	}
}

// Run は全商品の投稿生成を並列実行し、成功・中断をそれぞれのシンクに記録します。
// 商品単位の失敗は中断記録として吸収し、バッチ全体は停止しません。
func (e *GenerateExecutorImpl) Run(ctx context.Context, opts CmdOptions, items []model.ItemInput, pages map[string]string) (*RunSummary, error) {
	var wg sync.WaitGroup
	results := make([]itemResult, len(items))

	// 並列処理セマフォ
	sem := make(chan struct{}, e.parallel)

	// LLM APIのコール間隔を制御するレートリミッター
	ticker := time.NewTicker(e.rateLimit)
	defer ticker.Stop()
	rateLimiter := ticker.C

	slog.Info("商品ごとの投稿生成を開始します。",
		slog.Int("total_items", len(items)),
		slog.Int("max_parallel", e.parallel),
		slog.Duration("rate_limit", e.rateLimit))

	for i, item := range items {
		sem <- struct{}{} // セマフォ取得
		wg.Add(1)

		go func(index int, input model.ItemInput) {
			defer func() { <-sem }() // セマフォ解放
			defer wg.Done()

			// レートリミットとコンテキストキャンセルを select で同時に監視
			select {
			case <-rateLimiter:
				// 続行
			case <-ctx.Done():
				results[index] = itemResult{aborted: &model.AbortedRecord{
					ItemURL: input.ItemURL,
					Region:  input.Region,
					Reason:  fmt.Sprintf("コンテキストキャンセルにより中断されました: %v", ctx.Err()),
				}}
				return
			}

			results[index] = e.processItem(ctx, input, pages[input.ItemURL])
		}(i, item)
	}

	wg.Wait()

	// 入力順を保ったままシンクに記録する
	summary := &RunSummary{}
	for _, res := range results {
		if res.aborted != nil {
			if err := e.abortSink.Append(*res.aborted); err != nil {
				return nil, fmt.Errorf("中断記録の書き込みに失敗しました: %w", err)
			}
			summary.Aborted++
			continue
		}
		if err := e.sink.Append(res.record); err != nil {
			return nil, fmt.Errorf("投稿記録の書き込みに失敗しました: %w", err)
		}
		summary.Records = append(summary.Records, res.record)
		summary.Generated++
	}

	return summary, nil
}

// processItem は1商品分の補完・検証・生成を行います。
func (e *GenerateExecutorImpl) processItem(ctx context.Context, input model.ItemInput, page string) itemResult {
	// 取得済みページから商品属性を補完する (呼び出し元の明示値が常に優先)
	if page != "" {
		input = scrape.ExtractProduct(page).MergeInto(input)
	}

	// 必須属性ゲート: 欠損があれば生成せずに中断記録へ回す
	if missing := missingMandatoryAttrs(input); len(missing) > 0 {
		reason := fmt.Sprintf("必須属性が不足しています: %s", strings.Join(missing, ", "))
		slog.Warn("商品をスキップします。", slog.String("item_url", input.ItemURL), slog.String("reason", reason))
		return itemResult{aborted: &model.AbortedRecord{
			ItemURL: input.ItemURL,
			Region:  input.Region,
			Reason:  reason,
		}}
	}

	record, err := e.generator.Generate(ctx, input)
	if err != nil {
		slog.Warn("投稿生成に失敗したため商品をスキップします。",
			slog.String("item_url", input.ItemURL),
			slog.Any("error", err))
		return itemResult{aborted: &model.AbortedRecord{
			ItemURL: input.ItemURL,
			Region:  input.Region,
			Reason:  err.Error(),
		}}
	}

	return itemResult{record: record}
}

// missingMandatoryAttrs は投稿生成に必須の属性のうち欠けているものを列挙します。
func missingMandatoryAttrs(input model.ItemInput) []string {
	var missing []string
	if input.ImageURL == "" {
		missing = append(missing, "image_url")
	}
	if input.SourcePrice <= 0 {
		missing = append(missing, "source_price")
	}
	if input.SourceCurrency == "" {
		missing = append(missing, "source_currency")
	}
	return missing
}
