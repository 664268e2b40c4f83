package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/promo-post-gen-go/internal/catalog"
	"github.com/shouni/promo-post-gen-go/internal/forex"
	"github.com/shouni/promo-post-gen-go/internal/model"
)

// MasterData は生成・整合に必要なマスターデータ一式を保持します。
type MasterData struct {
	Categories []model.CatalogEntry
	Interests  []model.CatalogEntry
	Warehouses []model.Warehouse
	Rates      forex.Table
	DemoPool   []model.DemoPost
}

// LoadMasterData は各マスターデータファイルを読み込み、検証済みの MasterData を返します。
// いずれかのファイルが欠けている・空である場合はエラーを返します (フェイルファスト)。
func LoadMasterData(ctx context.Context, opener Opener, opts CmdOptions) (*MasterData, error) {
	md := &MasterData{}

	if err := withStream(ctx, opener, opts.CategoriesFile, "カテゴリ", func(r io.Reader) error {
		entries, err := catalog.ParseCatalogEntries(r, "category")
		md.Categories = entries
		return err
	}); err != nil {
		return nil, err
	}

	if err := withStream(ctx, opener, opts.InterestsFile, "興味関心", func(r io.Reader) error {
		entries, err := catalog.ParseCatalogEntries(r, "interest")
		md.Interests = entries
		return err
	}); err != nil {
		return nil, err
	}

	if err := withStream(ctx, opener, opts.WarehousesFile, "倉庫", func(r io.Reader) error {
		warehouses, err := catalog.ParseWarehouses(r)
		md.Warehouses = warehouses
		return err
	}); err != nil {
		return nil, err
	}

	if err := withStream(ctx, opener, opts.RatesFile, "為替レート", func(r io.Reader) error {
		rates, err := catalog.ParseRates(r)
		md.Rates = rates
		return err
	}); err != nil {
		return nil, err
	}

	if err := withStream(ctx, opener, opts.DemoPoolFile, "過去投稿プール", func(r io.Reader) error {
		pool, err := catalog.ParseDemoPool(r)
		md.DemoPool = pool
		return err
	}); err != nil {
		return nil, err
	}

	slog.Info("マスターデータの読み込みが完了しました。",
		slog.Int("categories", len(md.Categories)),
		slog.Int("interests", len(md.Interests)),
		slog.Int("warehouses", len(md.Warehouses)),
		slog.Int("demo_pool", len(md.DemoPool)))
	return md, nil
}

// withStream はファイルを開いて parse を適用し、クローズまで面倒を見ます。
func withStream(ctx context.Context, opener Opener, path, label string, parse func(io.Reader) error) error {
	if path == "" {
		return fmt.Errorf("%sマスターファイルが指定されていません。", label)
	}
	rc, err := opener.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("%sマスターファイルのオープンに失敗しました: %w", label, err)
	}
	defer rc.Close()

	if err := parse(rc); err != nil {
		return fmt.Errorf("%sマスターファイルの解析に失敗しました (%s): %w", label, path, err)
	}
	return nil
}
