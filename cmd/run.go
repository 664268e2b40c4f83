package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/promo-post-gen-go/internal/builder"
	"github.com/shouni/promo-post-gen-go/internal/generate"
	"github.com/shouni/promo-post-gen-go/internal/pipeline"
)

// パイプライン全体の最大実行時間。個別のLLM/スクレイピングタイムアウトとは別に、全体の上限を設ける。
const defaultContextTimeout = 60 * time.Minute

// 投稿生成のデフォルトモデル
const defaultModelName = "gemini-2.5-flash"

// runCmd は、バッチ生成のCLIコマンド定義です。
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "商品CSVを読み込み、プロモーション投稿レコードを一括生成します。",
	Long: `
商品CSVを読み込み、各商品についてページ取得・LLM生成・フィールド整合を行い、
確定済みレコードを出力CSVに追記します。

実行には -f/--input で商品CSVを、--categories/--interests/--warehouses/--rates/--demos で
マスターデータを指定してください。入力・出力パスには gs:// 形式の GCS URI も使用できます。
スキップされた商品は中断記録CSV (省略時は出力の隣の *_aborted.csv) に理由付きで記録されます。
`,
	RunE: runMainLogic,
}

// init関数でサブコマンド固有のフラグを定義します。
func init() {
	runCmd.Flags().StringP("input", "f", "", "処理対象の商品CSVのパス (ローカルまたは gs://)")
	runCmd.Flags().String("categories", "", "カテゴリホワイトリストCSVのパス")
	runCmd.Flags().String("interests", "", "興味関心ホワイトリストCSVのパス")
	runCmd.Flags().String("warehouses", "", "倉庫ホワイトリストCSVのパス")
	runCmd.Flags().String("rates", "", "為替レートJSONのパス")
	runCmd.Flags().String("demos", "", "過去投稿プールJSONのパス")
	runCmd.Flags().StringP("output", "o", "./output/posts.csv", "確定済みレコードを追記する出力CSVのパス (ローカルまたは gs://)")
	runCmd.Flags().String("aborted", "", "中断記録CSVのパス (省略時は出力の隣に *_aborted.csv)")

	runCmd.Flags().StringP("api-key", "k", "", "Gemini APIキー (環境変数 GEMINI_API_KEY が優先)")
	runCmd.Flags().String("model", defaultModelName, "投稿生成に使用するAIモデル名")
	runCmd.Flags().Bool("web-search", false, "ウェブ検索ツール付きのLLMクライアントを使用する")
	runCmd.Flags().DurationP("llm-timeout", "t", 5*time.Minute, "LLM処理のタイムアウト時間")
	runCmd.Flags().DurationP("scraper-timeout", "s", 15*time.Second, "WebスクレイピングのHTTPタイムアウト時間")
	runCmd.Flags().IntP("parallel", "p", 5, "Webスクレイピングの最大同時並列リクエスト数")
	runCmd.Flags().Int("generate-parallel", 2, "投稿生成の最大同時並列数")
	runCmd.Flags().Int("demo-count", generate.DefaultDemoCount, "プロンプトに含める類似過去投稿の件数")

	runCmd.MarkFlagRequired("input")
	runCmd.MarkFlagRequired("categories")
	runCmd.MarkFlagRequired("interests")
	runCmd.MarkFlagRequired("warehouses")
	runCmd.MarkFlagRequired("rates")
	runCmd.MarkFlagRequired("demos")
}

// newCmdOptionsFromFlags は cobra.Command のフラグから CmdOptions 構造体を生成します。
// これにより、runMainLogic のフラグ取得ロジックが簡潔になります。
func newCmdOptionsFromFlags(cmd *cobra.Command) (pipeline.CmdOptions, error) {
	var opts pipeline.CmdOptions
	var err error

	stringFlags := []struct {
		name string
		dst  *string
	}{
		{"input", &opts.InputFile},
		{"categories", &opts.CategoriesFile},
		{"interests", &opts.InterestsFile},
		{"warehouses", &opts.WarehousesFile},
		{"rates", &opts.RatesFile},
		{"demos", &opts.DemoPoolFile},
		{"output", &opts.OutputFile},
		{"aborted", &opts.AbortedFile},
		{"api-key", &opts.LLMAPIKey},
		{"model", &opts.LLMModel},
	}
	for _, f := range stringFlags {
		if *f.dst, err = cmd.Flags().GetString(f.name); err != nil {
			return pipeline.CmdOptions{}, fmt.Errorf("%sフラグの取得に失敗しました: %w", f.name, err)
		}
	}

	if opts.WebSearch, err = cmd.Flags().GetBool("web-search"); err != nil {
		return pipeline.CmdOptions{}, fmt.Errorf("web-searchフラグの取得に失敗しました: %w", err)
	}
	if opts.LLMTimeout, err = cmd.Flags().GetDuration("llm-timeout"); err != nil {
		return pipeline.CmdOptions{}, fmt.Errorf("llm-timeoutフラグの取得に失敗しました: %w", err)
	}
	if opts.ScraperTimeout, err = cmd.Flags().GetDuration("scraper-timeout"); err != nil {
		return pipeline.CmdOptions{}, fmt.Errorf("scraper-timeoutフラグの取得に失敗しました: %w", err)
	}
	if opts.MaxScraperParallel, err = cmd.Flags().GetInt("parallel"); err != nil {
		return pipeline.CmdOptions{}, fmt.Errorf("parallelフラグの取得に失敗しました: %w", err)
	}
	if opts.MaxGenerateParallel, err = cmd.Flags().GetInt("generate-parallel"); err != nil {
		return pipeline.CmdOptions{}, fmt.Errorf("generate-parallelフラグの取得に失敗しました: %w", err)
	}
	if opts.DemoCount, err = cmd.Flags().GetInt("demo-count"); err != nil {
		return pipeline.CmdOptions{}, fmt.Errorf("demo-countフラグの取得に失敗しました: %w", err)
	}

	if opts.MaxScraperParallel < 1 {
		return pipeline.CmdOptions{}, fmt.Errorf("--parallel には1以上の値を指定する必要があります")
	}
	if opts.MaxGenerateParallel < 1 {
		return pipeline.CmdOptions{}, fmt.Errorf("--generate-parallel には1以上の値を指定する必要があります")
	}
	if opts.LLMModel == "" {
		return pipeline.CmdOptions{}, fmt.Errorf("--model には空でないAIモデル名を指定する必要があります")
	}

	return opts, nil
}

// runMainLogicはCLIのメインロジックを実行し、フラグをパイプラインに渡します。
// フラグ取得処理は newCmdOptionsFromFlags に抽出されています。
func runMainLogic(cmd *cobra.Command, args []string) error {
	// 1. フラグからオプション構造体を生成する処理をヘルパー関数に委譲
	opts, err := newCmdOptionsFromFlags(cmd)
	if err != nil {
		return err // フラグ取得エラーを直接返す
	}

	// パイプライン全体の実行コンテキストを作成
	ctx, cancel := context.WithTimeout(cmd.Context(), defaultContextTimeout)
	defer cancel()

	// 2. パイプラインの構築
	p, closer, err := builder.BuildPipeline(ctx, opts)
	if err != nil {
		return fmt.Errorf("パイプラインの構築に失敗しました: %w", err)
	}

	// GCSクライアントを含むすべてのリソースを確実にクローズする
	defer closer()

	// 3. パイプラインの実行
	if err := p.Execute(ctx); err != nil {
		return fmt.Errorf("パイプラインの実行中にエラーが発生しました: %w", err)
	}

	return nil
}
