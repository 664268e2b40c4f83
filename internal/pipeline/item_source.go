package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/promo-post-gen-go/internal/model"
	"github.com/shouni/promo-post-gen-go/internal/records"
)

// CSVItemSource は ItemSource の具象実装であり、
// ローカルまたは GCS 上の入力CSVから商品参照を読み込みます。
type CSVItemSource struct {
	opener Opener
}

// インターフェースの実装を強制
var _ ItemSource = (*CSVItemSource)(nil)

// NewCSVItemSource は CSVItemSource の新しいインスタンスを作成します。
func NewCSVItemSource(opener Opener) *CSVItemSource {
	return &CSVItemSource{opener: opener}
}

// Read は入力CSVを開き、商品参照の一覧を返します。
func (s *CSVItemSource) Read(ctx context.Context, opts CmdOptions) ([]model.ItemInput, error) {
	if opts.InputFile == "" {
		return nil, fmt.Errorf("入力ファイルが指定されていません。--input で商品CSVを指定してください。")
	}

	rc, err := s.opener.Open(ctx, opts.InputFile)
	if err != nil {
		return nil, fmt.Errorf("入力CSVのオープンに失敗しました: %w", err)
	}
	defer rc.Close()

	items, err := records.ParseItems(rc)
	if err != nil {
		return nil, fmt.Errorf("入力CSVの解析に失敗しました (%s): %w", opts.InputFile, err)
	}

	slog.Info("入力CSVを読み込みました。",
		slog.String("file", opts.InputFile),
		slog.Int("items", len(items)))
	return items, nil
}
