package whttp

import (
	"bytes"
	"io"
	stdlog "log"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
)

type Header struct {
	Name  string
	Value string
}

type Request struct {
	URL         string
	Method      string
	Headers     []Header
	Body        []byte
	ContentType string
}

type Response struct {
	StatusCode int
	Body       []byte
	IsHTML     bool
	HTMLTitle  string
}

// NewClient returns a retrying HTTP client with its internal logging silenced.
func NewClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.Logger = stdlog.New(io.Discard, "", 0)
	client.RetryMax = 4
	return client
}

// Send performs the request with the given client (a default one is created
// when client is nil) and captures the full response body.
func Send(wReq *Request, client *retryablehttp.Client) (*Response, error) {
	var body interface{}
	if len(wReq.Body) > 0 {
		body = wReq.Body
	}

	req, err := retryablehttp.NewRequest(wReq.Method, wReq.URL, body)
	if err != nil {
		return nil, err
	}

	// Set common headers
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:83.0) Gecko/20100101 Firefox/83.0")
	req.Header.Set("Accept-Language", "en")
	if wReq.ContentType != "" {
		req.Header.Set("Content-Type", wReq.ContentType)
	}

	// Set custom headers
	for _, h := range wReq.Headers {
		req.Header.Add(h.Name, h.Value)
	}

	if client == nil {
		client = NewClient()
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	wRes := &Response{
		StatusCode: resp.StatusCode,
		Body:       bodyBytes,
	}

	wRes.IsHTML = looksLikeHTML(resp.Header.Get("Content-Type"), bodyBytes)
	if wRes.IsHTML {
		if title, ok := getHTMLTitle(bodyBytes); ok {
			wRes.HTMLTitle = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
		}
	}

	return wRes, nil
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "text/html") {
		return true
	}
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("<!")) || bytes.HasPrefix(trimmed, []byte("<html"))
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

func getHTMLTitle(body []byte) (string, bool) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	return traverse(doc)
}
