package reconcile

import (
	"fmt"
	"math"
	"strings"
)

// gramsPerPound は重量表示のグラム→ポンド換算係数です。
const gramsPerPound = 453.59237

// ctaDefaultKey は倉庫別テンプレートが無い場合に使うキーです。
const ctaDefaultKey = "DEFAULT"

// CTAConfig は本文末尾に付加する行動喚起文 (CTA) の設定です。
// Templates のキーは倉庫コードで、{item_name} / {country} / {weight_blurb}
// の3つのプレースホルダを展開します。Countries は倉庫コードから
// CTA 内で言及する国・地域名への対応表です。
type CTAConfig struct {
	Templates map[string]string
	Countries map[string]string
}

// DefaultCTAConfig は Buy&Ship 香港向けの既定 CTA 設定を返します。
func DefaultCTAConfig() CTAConfig {
	return CTAConfig{
		Templates: map[string]string{
			ctaDefaultKey: "想入手{item_name}香港未必有？ 想知道{item_name} 怎樣買？\n" +
				"立即在{country}網站下單，{weight_blurb}透過 Buy&Ship 運回香港，立即建立代購訂單！",
		},
		Countries: map[string]string{
			"warehouse-4px-uspdx":     "美國",
			"warehouse-bnsus-la":      "美國",
			"warehouse-bnsca-toronto": "加拿大",
			"warehouse-bnsuk-ashford": "英國",
			"warehouse-bnsit-milan":   "意大利",
			"warehouse-qs-osaka":      "日本",
			"warehouse-bnsjp-2":       "日本",
			"warehouse-kas-seoul":     "韓國",
			"warehouse-lht-dongguan":  "中國",
			"warehouse-bns-hk":        "香港",
			"warehouse-bnstw-taipei":  "台灣",
			"warehouse-bnsau-sydney":  "澳洲",
			"warehouse-bnsth-bangkok": "泰國",
			"warehouse-bnsid-jakarta": "印尼",
		},
	}
}

// Append は倉庫コードと商品重量 (グラム) に応じた CTA を content の末尾へ
// 空行区切りで付加します。テンプレートが1つも無い設定では content を
// そのまま返します。
func (c CTAConfig) Append(content, warehouseCode, itemName string, itemWeightGrams float64) string {
	tmpl, ok := c.Templates[warehouseCode]
	if !ok {
		tmpl = c.Templates[ctaDefaultKey]
	}
	if tmpl == "" {
		return content
	}

	weightBlurb := ""
	if itemWeightGrams > 0 {
		pounds := math.Round(itemWeightGrams/gramsPerPound*100) / 100
		weightBlurb = fmt.Sprintf("大約%v磅，", pounds)
	}

	cta := strings.NewReplacer(
		"{item_name}", itemName,
		"{country}", c.Countries[warehouseCode],
		"{weight_blurb}", weightBlurb,
	).Replace(tmpl)

	return strings.TrimRight(content, " \t\r\n") + "\n\n" + cta
}
