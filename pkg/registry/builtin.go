package registry

import "github.com/dukex/flowcanvas/pkg/models"

// Builtin returns the integrations shipped with the editor.
func Builtin() []Tool {
	return []Tool{
		{
			ID:           models.ServiceGmail,
			Label:        "Gmail",
			Kind:         models.KindTrigger,
			Actions:      []string{"new_email", "send_email"},
			AuthProvider: "gmail",
		},
		{
			ID:           models.ServiceNotion,
			Label:        "Notion",
			Kind:         models.KindAction,
			Actions:      []string{"create_page", "update_page"},
			AuthProvider: "notion",
		},
		{
			ID:      models.ServiceYouTube,
			Label:   "YouTube",
			Kind:    models.KindAction,
			Actions: []string{"new_video", "upload_video"},
		},
		{
			ID:      models.ServiceGoogleSheets,
			Label:   "Google Sheets",
			Kind:    models.KindAction,
			Actions: []string{"add_row", "update_row"},
		},
		{
			ID:      models.ServiceSlack,
			Label:   "Slack",
			Kind:    models.KindAction,
			Actions: []string{"send_message", "new_message"},
		},
		{
			ID:      models.ServiceFacebook,
			Label:   "Facebook",
			Kind:    models.KindAction,
			Actions: []string{"create_post"},
		},
		{
			ID:      models.ServiceYahooFinance,
			Label:   "Yahoo Finance",
			Kind:    models.KindAction,
			Actions: []string{"get_quote", "price_alert"},
		},
		{
			ID:      models.ServiceOpenAI,
			Label:   "OpenAI",
			Kind:    models.KindAction,
			Actions: []string{"generate_text", "summarize"},
		},
		{
			ID:      models.ServiceTwilio,
			Label:   "Twilio",
			Kind:    models.KindAction,
			Actions: []string{"send_sms", "make_call"},
		},
	}
}
