package helper

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"GoldEater/internal/domain/model"
)

// SystemPrompt は全プラットフォーム共通のシステムプロンプト (v1.0.0)
const SystemPrompt = `You are a local restaurant recommendation expert. 
When asked about restaurants, provide specific recommendations with:
1. Restaurant name (exact name as it appears on Google Maps)
2. Why you recommend it (2-3 sentences)
3. Vibe tags (e.g., Romantic, Casual, Trendy, Family-friendly)
4. Any potential downsides

Always respond in valid JSON format.`

const shortJSONInstruction = "Respond in JSON format with: name, rank, reasoning, vibe_tags, negative_flags"

// userPromptTemplates はプロンプト種別ごとのユーザープロンプト。
// %[1]s=緯度 %[2]s=経度 %[3]s=地区表示名
var userPromptTemplates = map[string]string{
	model.PromptGenericBest: `I'm currently at coordinates (%[1]s, %[2]s) in %[3]s, Sydney.
What are the top 5 best restaurants near me?

Respond in this JSON format:
{
  "recommendations": [
    {
      "name": "Restaurant Name",
      "rank": 1,
      "reasoning": "Why this restaurant is recommended",
      "vibe_tags": ["Tag1", "Tag2"],
      "negative_flags": ["Any downsides"]
    }
  ]
}`,

	model.PromptDateNight: `I'm at (%[1]s, %[2]s) in %[3]s, Sydney.
I'm looking for a romantic restaurant for a date night. 
What are the top 5 best options nearby?

` + shortJSONInstruction,

	model.PromptBusinessLunch: `I'm at (%[1]s, %[2]s) in %[3]s, Sydney.
I need a restaurant for a business lunch - professional atmosphere, good for conversation.
What are the top 5 best options nearby?

` + shortJSONInstruction,

	model.PromptAvoidTourist: `I'm at (%[1]s, %[2]s) in %[3]s, Sydney.
I want to eat like a local - no tourist traps, authentic neighborhood spots.
What are the top 5 best hidden gems nearby?

` + shortJSONInstruction,

	model.PromptCoffeeSpot: `I'm at (%[1]s, %[2]s) in %[3]s, Sydney.
I'm looking for a great coffee shop or cafe to work from.
What are the top 5 best options nearby?

` + shortJSONInstruction,
}

// IsKnownPromptType はプロンプト種別が定義済みかチェックする
func IsKnownPromptType(promptType string) bool {
	_, ok := userPromptTemplates[promptType]
	return ok
}

// BuildUserPrompt はセル中心と地区名からユーザープロンプトを生成する。
// 未知の種別は generic_best にフォールバックする。
func BuildUserPrompt(promptType string, center model.LatLng, district string) string {
	tmpl, ok := userPromptTemplates[promptType]
	if !ok {
		tmpl = userPromptTemplates[model.PromptGenericBest]
	}
	return fmt.Sprintf(tmpl, formatCoordinate(center.Lat), formatCoordinate(center.Lng), district)
}

// BuildWorkItemPrompt は WorkItem 用のユーザープロンプトを生成する
func BuildWorkItemPrompt(item model.WorkItem) string {
	district := item.DistrictDisplay
	if district == "" {
		district = DistrictDisplayName(item.District)
	}
	return BuildUserPrompt(item.PromptType, item.Cell.Center(), district)
}

// DistrictDisplayName は地区キー (surry_hills) を表示名 (Surry Hills) に変換する
func DistrictDisplayName(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
