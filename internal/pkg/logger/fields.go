package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Email returns a field carrying a masked address: the first character of the
// local part and the full domain, e.g. "a***@x.com".
func Email(email string) zap.Field {
	return zap.String("email", MaskEmail(email))
}

func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
