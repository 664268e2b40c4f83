package model

import "fmt"

// 型付きエラー群。呼び出し元は errors.As でハンドリングできます。
// 方針: 設定エラーは構築時に即時失敗、価格情報の欠落と換算不能は
// アイテム単位の失敗であり、バッチ全体は継続します。

// InvalidConfigurationError は構築時設定の不備 (空のデモプール、
// 空のホワイトリストなど) を表します。
type InvalidConfigurationError struct {
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("設定が不正です: %s", e.Reason)
}

// MissingPriceInformationError は、呼び出し元入力とモデル出力の両方を
// 辿っても仕入価格または仕入通貨が解決できなかったことを表します。
// このフィールド対だけはフォールバックを持ちません。
type MissingPriceInformationError struct {
	ItemURL string
	Reason  string
}

func (e *MissingPriceInformationError) Error() string {
	return fmt.Sprintf("価格情報が欠落しています (URL: %s): %s", e.ItemURL, e.Reason)
}

// CurrencyConversionFailedError は、仕入通貨から倉庫決済通貨への
// 換算レートが解決できなかったことを表します。0 への暗黙の置き換えは行いません。
type CurrencyConversionFailedError struct {
	From string
	To   string
}

func (e *CurrencyConversionFailedError) Error() string {
	return fmt.Sprintf("通貨換算に失敗しました: %s から %s へのレートが見つかりません", e.From, e.To)
}
