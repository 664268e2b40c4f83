// Package sampler は、プロンプトの few-shot 例として使う過去投稿を
// 決定論的に選択します。地域一致とカテゴリ一致による4層のティア分割、
// ティア内の人気度降順・元順序安定の並び替え、という固定手順で、
// 同じ入力には常に同じ結果を返します。
package sampler

import (
	"sort"

	"github.com/shouni/promo-post-gen-go/internal/model"
)

// Target はデモ選択の照合対象 (地域 + 商品カテゴリ) です。
type Target struct {
	Region       string
	ItemCategory string
}

// TierOrder は一致条件の組み合わせをティア番号 (小さいほど優先) に写像する
// 交換可能なポリシーです。既定では地域一致をカテゴリ一致より優先します。
// 下流のプロンプトはタクソノミの一致より言語・地域スタイルの一致を重視するためです。
type TierOrder func(regionMatch, categoryMatch bool) int

// DefaultTierOrder は既定のティア順序です:
// 両方一致 → 地域のみ → カテゴリのみ → 不一致。
func DefaultTierOrder(regionMatch, categoryMatch bool) int {
	switch {
	case regionMatch && categoryMatch:
		return 0
	case regionMatch:
		return 1
	case categoryMatch:
		return 2
	default:
		return 3
	}
}

// Sampler は構築時に受け取ったデモプールの凍結スナップショットを保持します。
// Select は複数ゴルーチンから同時に呼び出せます。
type Sampler struct {
	pool  []model.DemoPost
	order TierOrder
}

// Option は Sampler の構築オプションです。
type Option func(*Sampler)

// WithTierOrder はティア優先順位ポリシーを差し替えます。
func WithTierOrder(order TierOrder) Option {
	return func(s *Sampler) {
		if order != nil {
			s.order = order
		}
	}
}

// New は Sampler を構築します。空のプールは設定エラーとして即時失敗します。
// プールはコピーされ、以後の呼び出し元の変更から隔離されます。
func New(pool []model.DemoPost, opts ...Option) (*Sampler, error) {
	if len(pool) == 0 {
		return nil, &model.InvalidConfigurationError{Reason: "デモプールが空です"}
	}

	s := &Sampler{
		pool:  append([]model.DemoPost(nil), pool...),
		order: DefaultTierOrder,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PoolSize は保持しているデモプールの件数を返します。
func (s *Sampler) PoolSize() int {
	return len(s.pool)
}

// Select は target に最も関連する最大 count 件のデモを順序付きで返します。
// count が 0 以下なら空、プールが count より小さければ短い列を返します。
// 返される列に重複は無く、すべてプールのメンバーです。
func (s *Sampler) Select(target Target, count int) []model.DemoPost {
	if count <= 0 {
		return nil
	}

	// プールの元の添字を保持したまま (ティア昇順, 人気度降順) で安定ソートする。
	// 安定ソートにより同点は元のプール順を保ち、結果が再現可能になります。
	idx := make([]int, len(s.pool))
	tiers := make([]int, len(s.pool))
	for i, d := range s.pool {
		idx[i] = i
		tiers[i] = s.order(d.Region == target.Region, d.ItemCategory == target.ItemCategory)
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if tiers[ia] != tiers[ib] {
			return tiers[ia] < tiers[ib]
		}
		return s.pool[ia].Popularity > s.pool[ib].Popularity
	})

	if count > len(idx) {
		count = len(idx)
	}
	selected := make([]model.DemoPost, 0, count)
	for _, i := range idx[:count] {
		selected = append(selected, s.pool[i])
	}
	return selected
}
