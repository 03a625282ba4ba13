package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// JoinURL склеивает базовый URL цели и endpoint из отчёта.
// Абсолютный endpoint заменяет базу, относительный разрешается как в браузере.
func JoinURL(base, endpoint string) (string, error) {
	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// AppendQuery добавляет фрагмент запроса через "?" или "&", если query уже есть
func AppendQuery(rawURL, part string) string {
	if part == "" {
		return rawURL
	}
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + part
	}
	return rawURL + "?" + part
}

// QuoteLoose экранирует только символы, недопустимые в URL (пробелы, кавычки, <>, не-ASCII),
// оставляя payload из отчёта как есть: "=", "&", "/", "%" не трогаются.
func QuoteLoose(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c <= ' ' || c >= 0x7f || strings.IndexByte(`"'<>\^`+"`{|}#", c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
