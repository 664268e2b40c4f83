// Package model は、プロモーション投稿生成パイプライン全体で共有される
// データ型を定義します。各パッケージはこのパッケージにのみ依存し、
// 相互参照を避けます。
package model

// ----------------------------------------------------------------
// カタログ (ホワイトリスト)
// ----------------------------------------------------------------

// CatalogEntry は選択可能なカテゴリまたは興味分野の1エントリです。
// Label は人間向けの表示名、Code はシステム内部で保存される安定コードです。
type CatalogEntry struct {
	Label string `json:"label"`
	Code  string `json:"code"`
}

// Warehouse は出荷元倉庫の1エントリです。決済通貨 (Currency) を追加で持ちます。
type Warehouse struct {
	Label    string `json:"label"`
	Code     string `json:"code"`
	Currency string `json:"currency"`
}

// ----------------------------------------------------------------
// 入力 (呼び出し元から与えられる商品参照)
// ----------------------------------------------------------------

// ItemInput は処理対象の商品参照です。ItemURL と Region が必須で、
// それ以外のフィールドは呼び出し元によるオーバーライドです。
// コアのリコンサイル処理はこの構造体を変更しません。
type ItemInput struct {
	ItemURL string `json:"item_url"`
	Region  string `json:"region"`

	// 以下はすべて任意のオーバーライド。空値はスクレイパー/モデル出力で補完されます。
	ItemName       string  `json:"item_name,omitempty"`
	Category       string  `json:"category,omitempty"`
	Interest       string  `json:"interest,omitempty"`
	Warehouse      string  `json:"warehouse,omitempty"`
	SourcePrice    float64 `json:"source_price,omitempty"`
	SourceCurrency string  `json:"source_currency,omitempty"`
	ImageURL       string  `json:"image_url,omitempty"`
	ItemWeight     float64 `json:"item_weight,omitempty"` // グラム単位
	Title          string  `json:"title,omitempty"`
	Content        string  `json:"content,omitempty"`

	// 投稿メタデータ (未指定時は reconcile パッケージの既定値が適用されます)
	User              string `json:"user,omitempty"`
	Status            string `json:"status,omitempty"`
	TeamID            string `json:"team_id,omitempty"`
	Service           string `json:"service,omitempty"`
	PaymentMethod     string `json:"payment_method,omitempty"`
	Discounted        string `json:"discounted,omitempty"`
	IsPinned          bool   `json:"is_pinned,omitempty"`
	PinnedEndDatetime int64  `json:"pinned_end_datetime,omitempty"`
	PinnedExpireHours int    `json:"pinned_expire_hours,omitempty"`
	DisableComment    bool   `json:"disable_comment,omitempty"`
}

// ----------------------------------------------------------------
// 出力 (確定済みレコード)
// ----------------------------------------------------------------

// PostRecord はリコンサイル済みの最終投稿レコードです。
// category/interest/warehouse は必ず呼び出し時のホワイトリストのメンバーであり、
// ItemUnitPrice は必ず解決済み倉庫の決済通貨建てです。生成後は不変として扱います。
type PostRecord struct {
	ItemURL string `json:"item_url"`
	Region  string `json:"region"`

	ItemName      string `json:"item_name"`
	BrandName     string `json:"brand_name,omitempty"`
	Category      string `json:"category"`
	CategoryLabel string `json:"category_label,omitempty"`
	Interest      string `json:"interest"`
	Warehouse     string `json:"warehouse"`

	SourcePrice       float64 `json:"source_price"`
	SourceCurrency    string  `json:"source_currency"`
	ItemUnitPrice     float64 `json:"item_unit_price"`
	ItemPriceCurrency string  `json:"item_price_currency"`

	ImageURL   string  `json:"image_url,omitempty"`
	ItemWeight float64 `json:"item_weight,omitempty"`

	Title   string `json:"title"`
	Content string `json:"content"`

	User              string `json:"user"`
	Status            string `json:"status"`
	TeamID            string `json:"team_id"`
	Service           string `json:"service"`
	PaymentMethod     string `json:"payment_method,omitempty"`
	Discounted        string `json:"discounted,omitempty"`
	IsPinned          bool   `json:"is_pinned"`
	PinnedEndDatetime int64  `json:"pinned_end_datetime"`
	PinnedExpireHours int    `json:"pinned_expire_hours"`
	DisableComment    bool   `json:"disable_comment"`
}

// AbortedRecord は、必須フィールドの欠落などでリコンサイルに到達できず
// スキップされた商品の記録です。バッチは中断せず、この記録だけを残します。
type AbortedRecord struct {
	ItemURL string `json:"item_url"`
	Region  string `json:"region"`
	Reason  string `json:"abort_reason"`
}

// ----------------------------------------------------------------
// 過去事例 (few-shot デモ)
// ----------------------------------------------------------------

// DemoPost はプロンプトの few-shot 例として使う過去の確定済み投稿です。
// Popularity (元データの like_count) は 0 以上の整数です。
type DemoPost struct {
	PostID       string `json:"post_id"`
	Region       string `json:"region"`
	ItemCategory string `json:"item_category"`
	ItemName     string `json:"item_name"`
	ItemURL      string `json:"item_url"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Popularity   int    `json:"like_count"`
}
