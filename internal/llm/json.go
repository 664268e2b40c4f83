package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON は、モデル応答に含まれがちな Markdown コードフェンス
// (```json ... ```) を除去してから v へデコードします。
// フェンスなしの素の JSON もそのまま受け付けます。
func ExtractJSON(raw string, v any) error {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return fmt.Errorf("応答が空のためJSONを抽出できません")
	}

	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	clean = strings.TrimSpace(clean)

	if clean == "" {
		return fmt.Errorf("コードフェンス除去後のJSONが空です")
	}

	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return fmt.Errorf("応答のJSONパースに失敗しました: %w", err)
	}
	return nil
}
