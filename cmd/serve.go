package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/promo-post-gen-go/internal/catalog"
	"github.com/shouni/promo-post-gen-go/internal/generate"
	"github.com/shouni/promo-post-gen-go/internal/llm"
	"github.com/shouni/promo-post-gen-go/internal/model"
	"github.com/shouni/promo-post-gen-go/internal/pipeline"
	"github.com/shouni/promo-post-gen-go/internal/prompt"
	"github.com/shouni/promo-post-gen-go/internal/server"
)

// serveCmd は、生成パイプラインをHTTPサーバーとして公開するコマンド定義です。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "投稿生成パイプラインをHTTPサーバーとして公開します。",
	Long: `
POST /process エンドポイントで商品参照のバッチを受け付け、確定済みレコードの
JSONリストを返します。ホワイトリスト・為替レートはリクエストボディで受け取ります。

--demos で過去投稿プールを起動時に読み込むと、demo_pool を省略したリクエストでも
類似投稿サンプリングが行われます。
`,
	RunE: runServeLogic,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "待ち受けアドレス")
	serveCmd.Flags().StringP("api-key", "k", "", "Gemini APIキー (環境変数 GEMINI_API_KEY が優先)")
	serveCmd.Flags().String("model", defaultModelName, "投稿生成に使用するAIモデル名")
	serveCmd.Flags().Bool("web-search", false, "ウェブ検索ツール付きのLLMクライアントを使用する")
	serveCmd.Flags().DurationP("llm-timeout", "t", 5*time.Minute, "LLM処理のタイムアウト時間")
	serveCmd.Flags().String("demos", "", "過去投稿プールJSONのパス (省略可)")
	serveCmd.Flags().Int("demo-count", generate.DefaultDemoCount, "プロンプトに含める類似過去投稿の件数")
}

// runServeLogic はHTTPサーバーを構築して待ち受けを開始します。
func runServeLogic(cmd *cobra.Command, args []string) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("addrフラグの取得に失敗しました: %w", err)
	}
	apiKey, err := cmd.Flags().GetString("api-key")
	if err != nil {
		return fmt.Errorf("api-keyフラグの取得に失敗しました: %w", err)
	}
	modelName, err := cmd.Flags().GetString("model")
	if err != nil {
		return fmt.Errorf("modelフラグの取得に失敗しました: %w", err)
	}
	webSearch, err := cmd.Flags().GetBool("web-search")
	if err != nil {
		return fmt.Errorf("web-searchフラグの取得に失敗しました: %w", err)
	}
	llmTimeout, err := cmd.Flags().GetDuration("llm-timeout")
	if err != nil {
		return fmt.Errorf("llm-timeoutフラグの取得に失敗しました: %w", err)
	}
	demosFile, err := cmd.Flags().GetString("demos")
	if err != nil {
		return fmt.Errorf("demosフラグの取得に失敗しました: %w", err)
	}
	demoCount, err := cmd.Flags().GetInt("demo-count")
	if err != nil {
		return fmt.Errorf("demo-countフラグの取得に失敗しました: %w", err)
	}

	ctx := cmd.Context()

	llmClient, err := llm.NewClient(ctx, llm.Config{
		APIKey:    apiKey,
		WebSearch: webSearch,
		Timeout:   llmTimeout,
	})
	if err != nil {
		return fmt.Errorf("LLMクライアントの初期化に失敗しました: %w", err)
	}

	// 過去投稿プールは任意。省略時はリクエストの demo_pool が必須になる。
	var demoPool []model.DemoPost
	if demosFile != "" {
		opener := pipeline.NewLocalGCSOpener(nil)
		rc, err := opener.Open(ctx, demosFile)
		if err != nil {
			return fmt.Errorf("過去投稿プールのオープンに失敗しました: %w", err)
		}
		demoPool, err = catalog.ParseDemoPool(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("過去投稿プールの解析に失敗しました: %w", err)
		}
	}

	srv, err := server.New(server.Config{
		Client:    llmClient,
		Examples:  prompt.DefaultRegionExamples(),
		DemoPool:  demoPool,
		Model:     modelName,
		DemoCount: demoCount,
	})
	if err != nil {
		return fmt.Errorf("サーバーの初期化に失敗しました: %w", err)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// 生成はLLM呼び出しを含むため、書き込みタイムアウトは余裕を持たせる
		WriteTimeout: llmTimeout + time.Minute,
	}

	slog.Info("HTTPサーバーを起動します。", slog.String("addr", addr), slog.String("model", modelName))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTPサーバーの実行中にエラーが発生しました: %w", err)
	}
	return nil
}
