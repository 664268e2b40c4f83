package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/shouni/go-utils/iohandler"
)

const previewRecords = 10

// CSVPublisherImpl は OutputPublisher の具象実装です。
// シンクが書き込んだローカルCSVを GCS へアップロードするか、
// 標準出力へ結果プレビューを表示します。
type CSVPublisherImpl struct {
	gcsClient    *storage.Client
	localOutput  string // 投稿記録CSVのローカルパス
	localAborted string // 中断記録CSVのローカルパス
}

// インターフェースの実装を強制
var _ OutputPublisher = (*CSVPublisherImpl)(nil)

// NewCSVPublisherImpl は CSVPublisherImpl の新しいインスタンスを作成します。
func NewCSVPublisherImpl(gcsClient *storage.Client, localOutput, localAborted string) *CSVPublisherImpl {
	return &CSVPublisherImpl{
		gcsClient:    gcsClient,
		localOutput:  localOutput,
		localAborted: localAborted,
	}
}

// Publish は生成結果を公開します。出力先が GCS URI の場合はアップロードし、
// ローカルパスの場合はシンクが既に書き込み済みのためプレビューのみ表示します。
func (p *CSVPublisherImpl) Publish(ctx context.Context, opts CmdOptions, summary *RunSummary) error {
	if strings.HasPrefix(opts.OutputFile, "gs://") {
		if err := p.uploadCSV(ctx, p.localOutput, opts.OutputFile); err != nil {
			return fmt.Errorf("投稿記録CSVのアップロードに失敗しました: %w", err)
		}
	}
	if strings.HasPrefix(opts.AbortedFile, "gs://") {
		if err := p.uploadCSV(ctx, p.localAborted, opts.AbortedFile); err != nil {
			return fmt.Errorf("中断記録CSVのアップロードに失敗しました: %w", err)
		}
	}

	return p.outputPreview(summary)
}

// uploadCSV はローカルCSVを読み込み、指定された GCS URI へ書き込みます。
// ローカルファイルが存在しない場合 (記録が1件もない場合) はスキップします。
func (p *CSVPublisherImpl) uploadCSV(ctx context.Context, localPath, gcsURI string) error {
	content, err := os.ReadFile(localPath)
	if os.IsNotExist(err) {
		slog.Warn("アップロード対象のCSVが存在しないためスキップします。", slog.String("path", localPath))
		return nil
	}
	if err != nil {
		return fmt.Errorf("ローカルCSVの読み込みに失敗しました (%s): %w", localPath, err)
	}

	if p.gcsClient == nil {
		return fmt.Errorf("GCS URIが指定されましたが、GCSクライアントが初期化されていません。")
	}

	bucketName, objectName, err := parseGCSURI(gcsURI)
	if err != nil {
		return err
	}

	// Writerを取得し、コンテキストを使用してタイムアウトやキャンセルを処理可能にする
	wc := p.gcsClient.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = "text/csv"

	if _, err := wc.Write(content); err != nil {
		wc.Close() // 書き込みエラー時は必ず閉じる
		return fmt.Errorf("GCSへのコンテンツ書き込みに失敗しました: %w", err)
	}

	// Writerを閉じる (これが実際のアップロードをトリガーします)
	if err := wc.Close(); err != nil {
		return fmt.Errorf("GCS Writerのクローズに失敗しました (アップロード失敗): %w", err)
	}

	slog.Info("GCSへのアップロードが完了しました。",
		slog.String("uri", gcsURI),
		slog.Int("bytes", len(content)))
	return nil
}

// outputPreview は生成結果の冒頭を標準出力に表示します。
func (p *CSVPublisherImpl) outputPreview(summary *RunSummary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "生成: %d件 / 中断: %d件\n", summary.Generated, summary.Aborted)

	end := len(summary.Records)
	if end > previewRecords {
		end = previewRecords
	}
	for _, rec := range summary.Records[:end] {
		fmt.Fprintf(&b, "- [%s] %s (%s %.2f)\n", rec.Region, rec.Title, rec.ItemPriceCurrency, rec.ItemUnitPrice)
	}

	return iohandler.WriteOutputString("", b.String())
}

// parseGCSURI は gs://bucket/object 形式の URI をバケット名とオブジェクト名に分解します。
func parseGCSURI(gcsURI string) (string, string, error) {
	path := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("無効なGCS URI形式です: %s (gs://bucket-name/object-name の形式で指定してください)", gcsURI)
	}
	return parts[0], parts[1], nil
}
