package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Conversation: ConversationConfig{
			FriendlyName: "Friendly Conversation",
		},
		Poll: PollConfig{
			IntervalSeconds: 1,
			ReplyAuthor:     "system",
			ReplyBody:       "Message received. I am the server.",
		},
		Notify: NotifyConfig{
			Body: "This is a message that I want to send over WhatsApp with Twilio!",
		},
		Health: HealthConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8080,
		},
		Store: StoreConfig{
			Path: "",
		},
	}
}
