package exploit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Request - один HTTP запрос к цели
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response - то, что вернул сетевой коллаборатор
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Elapsed    time.Duration
}

// Client - сетевой коллаборатор. Ошибка означает, что ответа не было вообще.
type Client interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// NetHTTPClient - net/http реализация Client
type NetHTTPClient struct {
	client      *http.Client
	maxBodySize int64
}

// NewNetHTTPClient оборачивает httpClient; nil означает клиент с таймаутом timeout (30s по умолчанию)
func NewNetHTTPClient(httpClient *http.Client, timeout time.Duration, maxBodySize int64) *NetHTTPClient {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &NetHTTPClient{client: httpClient, maxBodySize: maxBodySize}
}

func (c *NetHTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}

	method := strings.ToUpper(req.Method)

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		log.Warn().Str("method", method).Str("url", req.URL).Err(err).Msg("⚠️ HTTP request failed")
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if c.maxBodySize > 0 {
		reader = io.LimitReader(resp.Body, c.maxBodySize)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		Elapsed:    time.Since(start),
	}, nil
}
