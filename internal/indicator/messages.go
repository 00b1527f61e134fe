package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish    locale = "en"
	localeVietnamese locale = "vi"
)

type messages struct {
	listening      string
	identifying    string
	confidentLabel string
	errorText      string
}

func (m messages) confident(song string) string {
	song = strings.TrimSpace(song)
	if song == "" {
		return m.confidentLabel
	}
	return m.confidentLabel + ": " + song
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "vi") {
		return localeVietnamese
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeVietnamese:
		return messages{
			listening:      "Đang nghe...",
			identifying:    "Đang nhận diện...",
			confidentLabel: "Đã tìm thấy",
			errorText:      "Lỗi nhận diện bài hát",
		}
	case localeEnglish:
		fallthrough
	default:
		return messages{
			listening:      "Listening...",
			identifying:    "Identifying...",
			confidentLabel: "Confident",
			errorText:      "Song recognition error",
		}
	}
}
