package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			Workspace:       "~/.sara/workspace",
			LogLevel:        "info",
			StateTTLMinutes: 30,
		},
		Slack: SlackConfig{
			BotToken: "${SLACK_BOT_TOKEN}",
			AppToken: "${SLACK_APP_TOKEN}",
		},
		OpenAI: OpenAIConfig{
			APIKey:      "${OPENAI_API_KEY}",
			APIBase:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
		},
		Sheets: SheetsConfig{
			TokenFile:          "~/.sara/token.json",
			CredentialsFile:    "~/.sara/credentials.json",
			BrandMasterRange:   "Brand Master!A:Z",
			BrandBalancesRange: "Brand Balances!A:Z",
			StatusDocTitle:     "Sara Status Doc",
		},
		SMTP: SMTPConfig{
			Host:       "smtp.gmail.com",
			Port:       587,
			SenderName: "Sara",
		},
		Templates: TemplatesConfig{
			AgreementPath: "~/.sara/templates/partnership_agreement.docx",
			InvoicePath:   "~/.sara/templates/deposit_invoice.docx",
			OutputDir:     "~/.sara/generated",
		},
		History: HistoryConfig{
			Enabled:       true,
			DBPath:        "~/.sara/history.db",
			RetentionDays: 365,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
			Port:     9090,
		},
	}
}
