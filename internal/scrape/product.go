package scrape

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shouni/promo-post-gen-go/internal/model"
)

// Product は商品ページから抽出された構造化データです。
// 見つからなかったフィールドはゼロ値のまま残ります。
type Product struct {
	ImageURL       string
	ItemName       string
	SourcePrice    float64
	SourceCurrency string
	ItemWeight     float64 // グラム
}

// MergeInto は呼び出し元入力の空フィールドだけを抽出値で補完します。
// 呼び出し元が明示した値は常に優先されます。
func (p Product) MergeInto(input model.ItemInput) model.ItemInput {
	if input.ImageURL == "" {
		input.ImageURL = p.ImageURL
	}
	if input.ItemName == "" {
		input.ItemName = p.ItemName
	}
	if input.SourcePrice == 0 {
		input.SourcePrice = p.SourcePrice
	}
	if input.SourceCurrency == "" {
		input.SourceCurrency = p.SourceCurrency
	}
	if input.ItemWeight == 0 {
		input.ItemWeight = p.ItemWeight
	}
	return input
}

// ExtractProduct は抽出済み Markdown から商品データを取り出します。
// 各フィールドはベストエフォートで、取れなかったものは空のままです。
func ExtractProduct(md string) Product {
	price, currency := extractPrice(md)
	return Product{
		ImageURL:       extractMainImageURL(md),
		ItemName:       extractItemName(md),
		SourcePrice:    price,
		SourceCurrency: currency,
		ItemWeight:     extractWeightGrams(md),
	}
}

var (
	imageMarkdownRe = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^)]+?\.(?:jpg|jpeg|png))\)`)
	imageNakedRe    = regexp.MustCompile(`(?i)(https?://[^\s)]+?\.(?:jpg|jpeg|png))`)
	productPathRe   = regexp.MustCompile(`/I/`)
	highResRe       = regexp.MustCompile(`_(?:AC|SL|SX)`)
)

// 商品画像と無関係な UI 素材を弾くための URL 断片。
var junkImageFragments = []string{
	"sprite", "icon", "nav-", "logo", "sash", "_SS40_", "global-", "privacy",
}

// extractMainImageURL は Markdown 中の画像 URL から商品画像として最も
// 確からしいものを選びます。高解像度の命名規則を持つ候補を優先します。
func extractMainImageURL(md string) string {
	var all []string
	for _, m := range imageMarkdownRe.FindAllStringSubmatch(md, -1) {
		all = append(all, m[1])
	}
	for _, m := range imageNakedRe.FindAllStringSubmatch(md, -1) {
		all = append(all, m[1])
	}
	if len(all) == 0 {
		return ""
	}

	var candidates []string
	for _, u := range all {
		if isJunkImage(u) || !productPathRe.MatchString(u) {
			continue
		}
		candidates = append(candidates, u)
	}

	if len(candidates) > 0 {
		for _, u := range candidates {
			if highResRe.MatchString(u) {
				return u
			}
		}
		return candidates[0]
	}
	return all[0]
}

func isJunkImage(url string) bool {
	for _, j := range junkImageFragments {
		if strings.Contains(url, j) {
			return true
		}
	}
	return false
}

var headerRe = regexp.MustCompile(`(?m)^#{1,2}\s*(.+)$`)

// 商品名として採用しない定型行。
var nonNameLineRe = regexp.MustCompile(`(?i)(menu|add to cart|customer review|visit the|shop|store|category)`)

// extractItemName は見出しの中で最も長いものを商品名として採用します。
// 見出しが短すぎる場合は末尾の見出し、見出しが無ければ本文行へフォールバックします。
func extractItemName(md string) string {
	headers := headerRe.FindAllStringSubmatch(md, -1)
	if len(headers) > 0 {
		var longest string
		for _, h := range headers {
			name := strings.TrimSpace(h[1])
			if len([]rune(name)) >= 15 && len(name) > len(longest) {
				longest = name
			}
		}
		if longest != "" {
			return longest
		}
		return strings.TrimSpace(headers[len(headers)-1][1])
	}

	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isMarkupLine(line) {
			continue
		}
		if len([]rune(line)) < 15 || nonNameLineRe.MatchString(line) {
			continue
		}
		return line
	}
	return ""
}

func isMarkupLine(line string) bool {
	for _, prefix := range []string{"!", "[", "#", "-", "*", ">", "```"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// 価格パターンは記載順に試行されます。通貨記号の特定度が高いものが先です。
var pricePatterns = []struct {
	re       *regexp.Regexp
	currency string
}{
	{regexp.MustCompile(`￥([0-9,]+)`), "JPY"},
	{regexp.MustCompile(`([0-9,]+)円`), "JPY"},
	{regexp.MustCompile(`NT\$([0-9,.]+)`), "TWD"},
	{regexp.MustCompile(`HK\$([0-9,.]+)`), "HKD"},
	{regexp.MustCompile(`\$([0-9][0-9,.]*)`), "USD"},
	{regexp.MustCompile(`([0-9,.]+)\s*元`), "CNY"},
}

func extractPrice(md string) (float64, string) {
	for _, p := range pricePatterns {
		m := p.re.FindStringSubmatch(md)
		if m == nil {
			continue
		}
		val := strings.ReplaceAll(m[1], ",", "")
		price, err := strconv.ParseFloat(val, 64)
		if err != nil || price <= 0 {
			continue
		}
		return price, p.currency
	}
	return 0, ""
}

// 重量パターンとグラムへの換算係数。
var weightPatterns = []struct {
	re     *regexp.Regexp
	factor float64
}{
	{regexp.MustCompile(`(?i)([0-9]+(?:\.[0-9]+)?)\s*(?:g\b|グラム|克)`), 1},
	{regexp.MustCompile(`(?i)([0-9]+(?:\.[0-9]+)?)\s*(?:kg\b|キロ|公斤)`), 1000},
	{regexp.MustCompile(`(?i)([0-9]+(?:\.[0-9]+)?)\s*(?:lb\b|磅)`), 453.592},
}

func extractWeightGrams(md string) float64 {
	for _, p := range weightPatterns {
		m := p.re.FindStringSubmatch(md)
		if m == nil {
			continue
		}
		w, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return math.Round(w*p.factor*100) / 100
	}
	return 0
}
