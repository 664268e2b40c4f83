package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shouni/go-cli-base"
)

// Execute は、CLIアプリケーションのルートエントリポイントです。
// 全てのサブコマンドをルートコマンドにアタッチし、実行を開始します。
func Execute() {
	// CustomFlagFunc: アプリ固有の永続フラグを追加する関数
	// CustomPreRunEFunc: PersistentPreRunEに追加するアプリ固有のロジック

	clibase.Execute("promo-post-gen-go", nil, createPreRunE(nil), runCmd, serveCmd)
}

// createPreRunE は、clibase共通のPersistentPreRunEロジックとアプリケーション固有のロジックを結合した関数を作成します。
func createPreRunE(preRunE func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		// .env があれば読み込む (GEMINI_API_KEY など)。無くてもエラーにしない。
		if err := godotenv.Load(); err == nil {
			slog.Debug(".env を読み込みました。")
		}

		// clibase 共通の PersistentPreRun 処理
		level := slog.LevelInfo
		if clibase.Flags.Verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		if clibase.Flags.Verbose {
			slog.Debug("Verbose mode enabled.")
		}

		// アプリケーション固有の PersistentPreRunE 処理を実行
		if preRunE != nil {
			return preRunE(cmd, args)
		}
		return nil
	}
}
