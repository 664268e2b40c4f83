// Package forex は疎な通貨ペアレートテーブルに対するベストエフォートの
// レート解決を提供します。直接レート、逆レート、アンカー通貨 (USD) を
// 1ホップだけ経由するブリッジの3段階で解決します。
// テーブルは呼び出し中に変更されない前提の純粋関数群であり、
// 複数ゴルーチンから同時に呼び出せます。
package forex

import (
	"errors"
	"math"
	"strings"
)

// Table は 通貨コード → 通貨コード → 正のレート のマッピングです。
// 疎で非対称なことがあり、ペアが丸ごと欠けていることもあります。
type Table map[string]map[string]float64

// AnchorCurrency はブリッジ解決に使う唯一の中継通貨です。
// 多段チェーンは行わず、この1通貨を経由する1ホップのみ許可します。
const AnchorCurrency = "USD"

// ErrRateNotFound は、直接・逆・アンカー経由のいずれでもレートが
// 解決できなかったことを表します。呼び出し元はこれをハードエラーとして
// 扱う必要があり、0 や 1 などの既定値に置き換えてはいけません。
var ErrRateNotFound = errors.New("換算レートが見つかりません")

// Rate は from から to への換算レートを返します。
// 解決順序: 同一通貨 → 直接レート → 逆レート (ゼロは不採用) → USDブリッジ。
func Rate(from, to string, table Table) (float64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	if r, ok := lookup(from, to, table); ok {
		return r, nil
	}

	// アンカー通貨を経由する1ホップブリッジ。
	// 両レッグが揃わなければ全体として「見つからない」扱いにします。
	toAnchor, okA := lookup(from, AnchorCurrency, table)
	fromAnchor, okB := lookup(AnchorCurrency, to, table)
	if okA && okB {
		return toAnchor * fromAnchor, nil
	}

	return 0, ErrRateNotFound
}

// Convert は amount を from 建てから to 建てへ換算し、小数第2位に丸めて返します。
// レートが解決できない場合は ErrRateNotFound を返します。
func Convert(amount float64, from, to string, table Table) (float64, error) {
	rate, err := Rate(from, to, table)
	if err != nil {
		return 0, err
	}
	return math.Round(amount*rate*100) / 100, nil
}

// lookup は同一通貨・直接・逆の3段階でレートを探します。
// 逆レートが 0 の場合は除算せず不採用とします。
func lookup(from, to string, table Table) (float64, bool) {
	if from == to {
		return 1.0, true
	}
	if r, ok := table[from][to]; ok {
		return r, true
	}
	if inv, ok := table[to][from]; ok && inv != 0 {
		return 1.0 / inv, true
	}
	return 0, false
}
