package model

// PlatformConstants はスキャン対象のAIプラットフォーム
const (
	PlatformChatGPT    = "chatgpt"
	PlatformPerplexity = "perplexity"
	PlatformGemini     = "gemini"
	PlatformClaude     = "claude"
)

// PromptTypeConstants はスキャンで使用するプロンプト種別
const (
	PromptGenericBest   = "generic_best"
	PromptDateNight     = "date_night"
	PromptBusinessLunch = "business_lunch"
	PromptAvoidTourist  = "avoid_tourist"
	PromptCoffeeSpot    = "coffee_spot"
)

// DefaultH3Resolution はグリッド生成のH3解像度（res 10 は一辺約66m）
const DefaultH3Resolution = 10

// DefaultTapCount は同一条件での繰り返し回数（Double-Tap）
const DefaultTapCount = 2

// DefaultSystemPromptVersion はシステムプロンプトのバージョン
const DefaultSystemPromptVersion = "v1.0.0"

// PromptTypeNameMap はプロンプト種別から表示名へのマッピング
var PromptTypeNameMap = map[string]string{
	PromptGenericBest:   "Generic Best",
	PromptDateNight:     "Date Night",
	PromptBusinessLunch: "Business Lunch",
	PromptAvoidTourist:  "Avoid Tourist Traps",
	PromptCoffeeSpot:    "Coffee Spot",
}

// GetPromptTypeDisplayName はプロンプト種別から表示名を取得する
func GetPromptTypeDisplayName(promptType string) string {
	if name, ok := PromptTypeNameMap[promptType]; ok {
		return name
	}
	return promptType // デフォルトはそのまま返す
}

// GetAllPlatforms は全プラットフォームの一覧を取得する
func GetAllPlatforms() []string {
	return []string{
		PlatformChatGPT,
		PlatformPerplexity,
		PlatformGemini,
		PlatformClaude,
	}
}

// GetAllPromptTypes は全プロンプト種別の一覧を取得する
func GetAllPromptTypes() []string {
	return []string{
		PromptGenericBest,
		PromptDateNight,
		PromptBusinessLunch,
		PromptAvoidTourist,
		PromptCoffeeSpot,
	}
}
