package exploit

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/BetterCallFirewall/Revalidator/internal/utils"
)

const formContentType = "application/x-www-form-urlencoded"

// BuildRequest превращает нормализованный запрос в HTTP запрос к baseURL.
//
// GET: payload уходит в query (?param=payload или ?payload, через "&" если query уже есть).
// Остальные методы: form body из param=payload, пар key=value из payload или одного поля "data".
func BuildRequest(baseURL string, nr models.NormalizedRequest, userAgent string) (*Request, error) {
	method := strings.ToUpper(strings.TrimSpace(nr.Method))
	if method == "" {
		method = http.MethodGet
	}

	target, err := utils.JoinURL(baseURL, nr.Endpoint)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Method:  method,
		URL:     target,
		Headers: http.Header{},
	}
	req.Headers.Set("User-Agent", userAgent)

	if method == http.MethodGet {
		req.URL = utils.AppendQuery(target, queryPart(nr))
		return req, nil
	}

	if form := formBody(nr); len(form) > 0 {
		req.Body = []byte(form.Encode())
		req.Headers.Set("Content-Type", formContentType)
	}
	return req, nil
}

func queryPart(nr models.NormalizedRequest) string {
	if nr.Payload == "" {
		return ""
	}
	if nr.Parameter != "" {
		return utils.QuoteLoose(nr.Parameter + "=" + nr.Payload)
	}
	return utils.QuoteLoose(nr.Payload)
}

func formBody(nr models.NormalizedRequest) url.Values {
	form := url.Values{}
	switch {
	case nr.Payload == "":
	case nr.Parameter != "":
		form.Set(nr.Parameter, nr.Payload)
	case strings.Contains(nr.Payload, "="):
		for _, pair := range strings.Split(nr.Payload, "&") {
			if key, value, ok := strings.Cut(pair, "="); ok {
				form.Set(key, value)
			}
		}
	default:
		form.Set("data", nr.Payload)
	}
	return form
}
