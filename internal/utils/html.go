package utils

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageInfo - то, что удалось вытащить из HTML ответа
type PageInfo struct {
	Title         string
	FormFields    []string
	HasCSRFToken  bool
	CSRFTokenName string
}

type FormExtractor struct {
	csrfPatterns []*regexp.Regexp
}

func NewFormExtractor() *FormExtractor {
	return &FormExtractor{
		csrfPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(csrf[_-]?token|_token|authenticity_token)`),
			regexp.MustCompile(`(?i)(x-csrf-token|csrf)`),
		},
	}
}

// ExtractPage разбирает HTML ответа: title, имена полей форм, наличие CSRF токена.
// Для не-HTML ответа возвращает false.
func (fe *FormExtractor) ExtractPage(body, contentType string) (PageInfo, bool) {
	if !looksLikeHTML(body, contentType) {
		return PageInfo{}, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return PageInfo{}, false
	}

	info := PageInfo{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	seen := make(map[string]bool)
	doc.Find("form input, form select, form textarea").Each(func(_ int, field *goquery.Selection) {
		name, _ := field.Attr("name")
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		info.FormFields = append(info.FormFields, name)

		if !info.HasCSRFToken {
			for _, pattern := range fe.csrfPatterns {
				if pattern.MatchString(name) {
					info.HasCSRFToken = true
					info.CSRFTokenName = name
					break
				}
			}
		}
	})

	return info, true
}

func looksLikeHTML(body, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(body))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.Contains(head, "<html")
}
