package cli

import (
	"fmt"
	"io"

	"github.com/kabuto-ai/kabuto/config"
)

// renderSources shows each data source and whether it is usable with
// the current configuration. Keyless sources are always available.
func renderSources(w io.Writer, cfg *config.Config) {
	type source struct {
		name       string
		credential string
		available  bool
	}
	sources := []source{
		{"edinet", "EDINET_API_KEY", cfg.EdinetAPIKey != ""},
		{"tdnet", "", true},
		{"stock_price", "", true},
		{"longport", "LONGPORT_APP_KEY / SECRET / ACCESS_TOKEN", cfg.LongportAppKey != "" && cfg.LongportAppSecret != "" && cfg.LongportAccessToken != ""},
		{"news", "", true},
		{"estat", "ESTAT_APP_ID", cfg.EStatAppID != ""},
		{"fx", "", true},
		{"telegram", "TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID", cfg.TelegramBotToken != "" && cfg.TelegramChatID != ""},
	}

	fmt.Fprintln(w, sectionStyle.Render("Data Sources"))
	available := 0
	for _, s := range sources {
		status := approvedStyle.Render("available")
		if !s.available {
			status = rejectedStyle.Render("not configured")
		} else {
			available++
		}
		cred := ""
		if s.credential != "" {
			cred = dimStyle.Render("  (" + s.credential + ")")
		}
		fmt.Fprintf(w, "  %-12s %s%s\n", s.name, status, cred)
	}
	fmt.Fprintf(w, "\n%d/%d sources available\n", available, len(sources))
}
