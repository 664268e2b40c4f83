// Package reconcile は、呼び出し元入力・スクレイパー補完済み入力・モデル出力という
// 独立した3系統のフィールド値を、ホワイトリスト制約の下で1件の確定済み
// 投稿レコードへ統合します。解決は単一パスで、再開やリトライの状態を持ちません。
//
// 一般規則: 空でない呼び出し元の値 > モデルの値 > 文書化されたフォールバック。
// ハードエラーは価格情報の欠落と通貨換算の失敗の2種類のみで、
// それ以外の不備はすべて警告付きフォールバックで吸収されます。
package reconcile

import (
	"log/slog"
	"strings"

	"github.com/shouni/promo-post-gen-go/internal/forex"
	"github.com/shouni/promo-post-gen-go/internal/model"
)

// 投稿メタデータの既定値。
const (
	defaultUser    = "B2kKF5R47K8VpY3ynBh9CB"
	defaultStatus  = "draft"
	defaultTeamID  = "hk"
	defaultService = "buyforyou"
)

// 自由文フィールドが空の場合に充てる固定プレースホルダ。
const (
	placeholderTitle   = "（タイトル未生成）"
	placeholderContent = "（本文未生成）"
)

// ModelFields は言語モデルの構造化出力から取り出したフィールド群です。
// category / interest は人間向けラベルで、ホワイトリストを通じて
// コードへ翻訳されます。warehouse は予測済みのコードです。
type ModelFields struct {
	ItemName       string
	BrandName      string
	CategoryLabel  string
	InterestLabel  string
	Warehouse      string
	Title          string
	Content        string
	SourcePrice    float64
	SourceCurrency string
}

// Reconciler は呼び出し単位で不変のホワイトリストとレートテーブルを保持します。
// I/O を行わないため、複数アイテムの Reconcile を並列に呼び出せます。
type Reconciler struct {
	categories []model.CatalogEntry
	interests  []model.CatalogEntry
	warehouses []model.Warehouse
	rates      forex.Table
	cta        CTAConfig
}

// New は Reconciler を構築します。いずれかのホワイトリストが空の場合は
// 黙って補完せず、設定エラーとして即時失敗します。
func New(
	categories []model.CatalogEntry,
	interests []model.CatalogEntry,
	warehouses []model.Warehouse,
	rates forex.Table,
	cta CTAConfig,
) (*Reconciler, error) {
	if len(categories) == 0 {
		return nil, &model.InvalidConfigurationError{Reason: "カテゴリのホワイトリストが空です"}
	}
	if len(interests) == 0 {
		return nil, &model.InvalidConfigurationError{Reason: "興味分野のホワイトリストが空です"}
	}
	if len(warehouses) == 0 {
		return nil, &model.InvalidConfigurationError{Reason: "倉庫のホワイトリストが空です"}
	}

	return &Reconciler{
		categories: categories,
		interests:  interests,
		warehouses: warehouses,
		rates:      rates,
		cta:        cta,
	}, nil
}

// Reconcile は input と fields をフィールド単位で解決し、確定済みレコードを返します。
// 失敗するのは、仕入価格と仕入通貨の対が解決できない場合
// (MissingPriceInformationError) と、倉庫決済通貨への換算レートが無い場合
// (CurrencyConversionFailedError) のみです。
func (r *Reconciler) Reconcile(input model.ItemInput, fields ModelFields) (model.PostRecord, error) {
	rec := model.PostRecord{
		ItemURL: input.ItemURL,
		Region:  input.Region,

		ImageURL:   input.ImageURL,
		ItemWeight: input.ItemWeight,

		BrandName:         fields.BrandName,
		PaymentMethod:     input.PaymentMethod,
		Discounted:        input.Discounted,
		IsPinned:          input.IsPinned,
		PinnedEndDatetime: input.PinnedEndDatetime,
		PinnedExpireHours: input.PinnedExpireHours,
		DisableComment:    input.DisableComment,

		User:    fallbackString(input.User, defaultUser),
		Status:  fallbackString(input.Status, defaultStatus),
		TeamID:  fallbackString(input.TeamID, defaultTeamID),
		Service: fallbackString(input.Service, defaultService),
	}

	rec.ItemName = resolveName(input.ItemName, fields.ItemName)

	// 倉庫: ホワイトリスト所属チェック → モデル予測 → 先頭エントリ。
	// 解決された倉庫の決済通貨が価格換算の目標通貨になります。
	warehouse := r.resolveWarehouse(input, fields)
	rec.Warehouse = warehouse.Code
	rec.ItemPriceCurrency = strings.ToUpper(warehouse.Currency)

	rec.Category, rec.CategoryLabel = resolveCatalog("カテゴリ", input.ItemURL, input.Category, fields.CategoryLabel, r.categories)
	rec.Interest, _ = resolveCatalog("興味分野", input.ItemURL, input.Interest, fields.InterestLabel, r.interests)

	// 仕入価格と仕入通貨はそれぞれ独立に解決される (出どころが異なってよい)。
	// どちらかが未解決のまま残った場合のみハードエラー。
	price, currency, err := resolveSourcePrice(input, fields)
	if err != nil {
		return model.PostRecord{}, err
	}
	rec.SourcePrice = price
	rec.SourceCurrency = currency

	unitPrice, err := r.convertPrice(price, currency, rec.ItemPriceCurrency)
	if err != nil {
		return model.PostRecord{}, err
	}
	rec.ItemUnitPrice = unitPrice

	rec.Title = resolveFreeText("title", input.ItemURL, input.Title, fields.Title, placeholderTitle)
	rec.Content = resolveFreeText("content", input.ItemURL, input.Content, fields.Content, placeholderContent)

	// 最終的な倉庫と商品名に基づき CTA を本文末尾に付加する。
	rec.Content = r.cta.Append(rec.Content, rec.Warehouse, rec.ItemName, rec.ItemWeight)

	return rec, nil
}

// resolveName はスクレイプ由来の冗長なタイトルより、モデルが整形した
// 簡潔な商品名を優先します。モデル名が呼び出し元の名前に含まれるか、
// 同じ長さ以下であればモデル側を採用します。
func resolveName(callerName, modelName string) string {
	switch {
	case modelName == "":
		return callerName
	case callerName == "":
		return modelName
	case strings.Contains(callerName, modelName):
		return modelName
	case len([]rune(modelName)) <= len([]rune(callerName)):
		return modelName
	default:
		return callerName
	}
}

// resolveCatalog はカテゴリ/興味分野の共通解決規則です。
// 呼び出し元のコードがホワイトリストのメンバーならそれを採用し、
// 次にモデルのラベルをコードへ翻訳、どちらも無効なら先頭エントリへ
// フォールバックして警告を出します (エラーにはしません)。
func resolveCatalog(kind, itemURL, callerCode, modelLabel string, whitelist []model.CatalogEntry) (code, label string) {
	for _, e := range whitelist {
		if callerCode != "" && e.Code == callerCode {
			return e.Code, e.Label
		}
	}
	for _, e := range whitelist {
		if modelLabel != "" && e.Label == modelLabel {
			return e.Code, e.Label
		}
	}

	slog.Warn("ホワイトリスト外の値のため先頭エントリへフォールバックします",
		slog.String("field", kind),
		slog.String("item_url", itemURL),
		slog.String("caller_value", callerCode),
		slog.String("model_label", modelLabel))
	return whitelist[0].Code, whitelist[0].Label
}

// resolveWarehouse は倉庫コードを解決します。規則はカタログと同じですが、
// モデル側もコード (通貨からの予測結果) で照合します。
func (r *Reconciler) resolveWarehouse(input model.ItemInput, fields ModelFields) model.Warehouse {
	for _, w := range r.warehouses {
		if input.Warehouse != "" && w.Code == input.Warehouse {
			return w
		}
	}
	for _, w := range r.warehouses {
		if fields.Warehouse != "" && w.Code == fields.Warehouse {
			return w
		}
	}

	slog.Warn("倉庫コードが無効または未指定のため先頭エントリへフォールバックします",
		slog.String("item_url", input.ItemURL),
		slog.String("caller_value", input.Warehouse),
		slog.String("model_value", fields.Warehouse))
	return r.warehouses[0]
}

// resolveSourcePrice は仕入価格と仕入通貨をそれぞれ独立に解決します。
// このフィールド対だけはフォールバック先が存在しません。
func resolveSourcePrice(input model.ItemInput, fields ModelFields) (float64, string, error) {
	price := input.SourcePrice
	if price == 0 {
		price = fields.SourcePrice
	}

	currency := normalizeCurrency(input.SourceCurrency)
	if currency == "" {
		currency = normalizeCurrency(fields.SourceCurrency)
	}

	switch {
	case price == 0 && currency == "":
		return 0, "", &model.MissingPriceInformationError{ItemURL: input.ItemURL, Reason: "仕入価格と仕入通貨がどの入力からも解決できませんでした"}
	case price == 0:
		return 0, "", &model.MissingPriceInformationError{ItemURL: input.ItemURL, Reason: "仕入価格がどの入力からも解決できませんでした"}
	case currency == "":
		return 0, "", &model.MissingPriceInformationError{ItemURL: input.ItemURL, Reason: "仕入通貨がどの入力からも解決できませんでした"}
	}

	return price, currency, nil
}

// convertPrice は仕入価格を倉庫決済通貨建てへ換算します。
// レート未解決は型付きエラーであり、0 への置き換えは行いません。
func (r *Reconciler) convertPrice(price float64, from, to string) (float64, error) {
	if from == to {
		return price, nil
	}
	converted, err := forex.Convert(price, from, to, r.rates)
	if err != nil {
		return 0, &model.CurrencyConversionFailedError{From: from, To: to}
	}
	return converted, nil
}

// resolveFreeText は自由文フィールドを解決します。呼び出し元 → モデル →
// 固定プレースホルダの順で、欠落しても中断はせず警告のみ出します。
func resolveFreeText(field, itemURL, callerText, modelText, placeholder string) string {
	if callerText != "" {
		return callerText
	}
	if modelText != "" {
		return modelText
	}

	slog.Warn("自由文フィールドが空のためプレースホルダを使用します",
		slog.String("field", field),
		slog.String("item_url", itemURL))
	return placeholder
}

// normalizeCurrency は通貨コードを正規化します。"N/A" は未指定扱いです。
func normalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "N/A" {
		return ""
	}
	return code
}

func fallbackString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
