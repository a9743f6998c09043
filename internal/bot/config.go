package bot

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Learning path assigned to new learners before they pick one
	DefaultLearningPath string
	// Cards per session for learners who never set a target
	DefaultDailyTarget int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		DefaultLearningPath: "en-de",
		DefaultDailyTarget:  20,
	}
}
