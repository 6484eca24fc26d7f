package jnovel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/jncsync/jncsync/pkg/whttp"
)

const (
	defaultAPIBase  = "https://api.j-novel.club/api"
	defaultLabsBase = "https://labs.j-novel.club/app/v1"
)

// Client talks to the remote catalog. It carries no account state; every
// call takes the UserData it needs and the caller applies balance changes.
type Client struct {
	APIBase  string
	LabsBase string
	HTTP     *retryablehttp.Client
}

func NewClient() *Client {
	return &Client{
		APIBase:  defaultAPIBase,
		LabsBase: defaultLabsBase,
		HTTP:     whttp.NewClient(),
	}
}

// SetProxy routes all client traffic through the given HTTP proxy.
func (c *Client) SetProxy(proxy string) error {
	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}
	c.HTTP.HTTPClient.Transport = &http.Transport{
		Proxy: http.ProxyURL(proxyURL),
	}
	return nil
}

// Login exchanges credentials for a fresh account snapshot. This does not
// work for SSO accounts.
func (c *Client) Login(email, password string) (UserData, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return UserData{}, err
	}

	res, err := whttp.Send(&whttp.Request{
		Method:      "POST",
		URL:         c.APIBase + "/users/login?include=user",
		ContentType: "application/json",
		Headers:     []whttp.Header{{Name: "Accept", Value: "application/json"}},
		Body:        payload,
	}, c.HTTP)
	if err != nil {
		return UserData{}, fmt.Errorf("login request: %w", err)
	}

	if res.StatusCode == http.StatusUnauthorized || gjson.GetBytes(res.Body, "error").Exists() {
		return UserData{}, ErrBadCredentials
	}
	if res.StatusCode >= 300 {
		return UserData{}, &StatusError{Op: "login", Status: res.StatusCode}
	}

	return parseUserData(gjson.GetBytes(res.Body, "user"), gjson.GetBytes(res.Body, "id").String()), nil
}

// FetchUserData refreshes the account snapshot for a stored token.
func (c *Client) FetchUserData(token string) (UserData, error) {
	res, err := whttp.Send(&whttp.Request{
		Method:  "GET",
		URL:     c.APIBase + "/users/me",
		Headers: authHeaders(token),
	}, c.HTTP)
	if err != nil {
		return UserData{}, fmt.Errorf("fetching account: %w", err)
	}

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return UserData{}, ErrUnauthorized
	}
	if res.StatusCode >= 300 {
		return UserData{}, &StatusError{Op: "fetch account", Status: res.StatusCode}
	}

	return parseUserData(gjson.ParseBytes(res.Body), token), nil
}

// Logout invalidates the token on the catalog side. Best effort.
func (c *Client) Logout(user UserData) error {
	res, err := whttp.Send(&whttp.Request{
		Method:  "POST",
		URL:     c.APIBase + "/users/logout",
		Headers: authHeaders(user.AuthToken),
	}, c.HTTP)
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	if res.StatusCode >= 300 {
		return &StatusError{Op: "logout", Status: res.StatusCode}
	}
	return nil
}

// FetchLibrary returns every owned book keyed by id, normalized from the
// catalog's nested library response.
func (c *Client) FetchLibrary(user UserData) (map[string]Book, error) {
	res, err := whttp.Send(&whttp.Request{
		Method:  "GET",
		URL:     c.LabsBase + "/me/library?include=serie&format=json",
		Headers: bearerHeaders(user.AuthToken),
	}, c.HTTP)
	if err != nil {
		return nil, fmt.Errorf("fetching library: %w", err)
	}

	if res.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if res.StatusCode >= 300 {
		return nil, &StatusError{Op: "fetch library", Status: res.StatusCode}
	}

	library := make(map[string]Book)
	gjson.GetBytes(res.Body, "books").ForEach(func(_, item gjson.Result) bool {
		book := parseLibraryItem(item)
		if book.ID != "" {
			library[book.ID] = book
		}
		return true
	})
	return library, nil
}

// FetchBook fetches the authoritative post-purchase record of one volume,
// including a fresh download handle.
func (c *Client) FetchBook(user UserData, bookID string) (Book, error) {
	res, err := whttp.Send(&whttp.Request{
		Method:  "GET",
		URL:     c.LabsBase + "/me/library/volume/" + url.PathEscape(bookID) + "?format=json",
		Headers: bearerHeaders(user.AuthToken),
	}, c.HTTP)
	if err != nil {
		return Book{}, fmt.Errorf("fetching book %s: %w", bookID, err)
	}

	if res.StatusCode == http.StatusUnauthorized {
		return Book{}, ErrUnauthorized
	}
	if res.StatusCode >= 300 {
		return Book{}, &StatusError{Op: "fetch book " + bookID, Status: res.StatusCode}
	}

	return parseLibraryItem(gjson.ParseBytes(res.Body)), nil
}

// FetchSeries fetches a series detail, including its volume list and tags.
func (c *Client) FetchSeries(slug string) (Series, error) {
	filter := fmt.Sprintf(`{"where":{"titleslug":%q},"include":["volumes"]}`, slug)
	res, err := whttp.Send(&whttp.Request{
		Method: "GET",
		URL:    c.APIBase + "/series/findOne?filter=" + url.QueryEscape(filter),
	}, c.HTTP)
	if err != nil {
		return Series{}, fmt.Errorf("fetching series %s: %w", slug, err)
	}
	if res.StatusCode >= 300 {
		return Series{}, &StatusError{Op: "fetch series " + slug, Status: res.StatusCode}
	}

	body := gjson.ParseBytes(res.Body)
	series := Series{
		ID:    body.Get("id").String(),
		Slug:  body.Get("titleslug").String(),
		Title: body.Get("title").String(),
	}
	body.Get("tags").ForEach(func(_, tag gjson.Result) bool {
		series.Tags = append(series.Tags, tag.String())
		return true
	})
	body.Get("volumes").ForEach(func(_, vol gjson.Result) bool {
		book := Book{
			ID:          vol.Get("id").String(),
			Title:       vol.Get("title").String(),
			Slug:        vol.Get("titleslug").String(),
			Volume:      int(vol.Get("volumeNumber").Int()),
			SeriesID:    series.ID,
			SeriesSlug:  series.Slug,
			Price:       int(vol.Get("coinPrice").Int()),
			PublishedAt: parseTime(vol.Get("publishingDate").String()),
		}
		series.Volumes = append(series.Volumes, book)
		return true
	})
	return series, nil
}

// OrderBook redeems coins for one volume. The balance change is applied by
// the caller, not here.
func (c *Client) OrderBook(user UserData, book Book) error {
	payload, err := json.Marshal(map[string]string{"titleslug": book.Slug})
	if err != nil {
		return err
	}

	res, err := whttp.Send(&whttp.Request{
		Method:      "POST",
		URL:         c.APIBase + "/users/" + url.PathEscape(user.UserID) + "/redeemcredit",
		ContentType: "application/json",
		Headers:     authHeaders(user.AuthToken),
		Body:        payload,
	}, c.HTTP)
	if err != nil {
		return fmt.Errorf("ordering %s: %w", book.Slug, err)
	}

	switch {
	case res.StatusCode == http.StatusUnprocessableEntity:
		return ErrAlreadyOwned
	case res.StatusCode == http.StatusPaymentRequired:
		return ErrInsufficientFunds
	case res.StatusCode >= 300:
		msg := gjson.GetBytes(res.Body, "error.message").String()
		if strings.Contains(strings.ToLower(msg), "credit") || strings.Contains(strings.ToLower(msg), "coin") {
			return ErrInsufficientFunds
		}
		return &StatusError{Op: "order " + book.Slug, Status: res.StatusCode, Message: msg}
	}
	return nil
}

// FetchCoinOptions returns the catalog's coin purchase constraints and pack
// table. Missing packs fall back to the documented defaults.
func (c *Client) FetchCoinOptions(user UserData) (CoinOptions, error) {
	res, err := whttp.Send(&whttp.Request{
		Method:  "GET",
		URL:     c.LabsBase + "/me/coins?format=json",
		Headers: bearerHeaders(user.AuthToken),
	}, c.HTTP)
	if err != nil {
		return CoinOptions{}, fmt.Errorf("fetching coin options: %w", err)
	}
	if res.StatusCode >= 300 {
		return CoinOptions{}, &StatusError{Op: "fetch coin options", Status: res.StatusCode}
	}

	defaults := DefaultCoinOptions()
	body := gjson.ParseBytes(res.Body)
	opts := CoinOptions{
		Min:             intOr(body.Get("purchaseMinimumCoins"), defaults.Min),
		Max:             intOr(body.Get("purchaseMaximumCoins"), defaults.Max),
		DiscountPercent: int(body.Get("coinDiscount").Int()),
		PriceInCents:    intOr(body.Get("coinPriceInCents"), defaults.PriceInCents),
	}
	body.Get("packs").ForEach(func(_, pack gjson.Result) bool {
		opts.Packs = append(opts.Packs, CoinPack{
			Coins: int(pack.Get("coins").Int()),
			Cents: int(pack.Get("cents").Int()),
		})
		return true
	})
	if len(opts.Packs) == 0 {
		opts.Packs = defaults.Packs
	}
	return opts, nil
}

// BuyCoins purchases a coin amount. Amounts outside the purchasable range
// are rejected before any network call.
func (c *Client) BuyCoins(user UserData, amount int, opts CoinOptions) error {
	if amount < opts.Min || amount > opts.Max {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrCoinAmount, amount, opts.Min, opts.Max)
	}

	payload, err := json.Marshal(map[string]int{"number": amount})
	if err != nil {
		return err
	}

	res, err := whttp.Send(&whttp.Request{
		Method:      "POST",
		URL:         c.APIBase + "/users/me/purchasecredit",
		ContentType: "application/json",
		Headers:     authHeaders(user.AuthToken),
		Body:        payload,
	}, c.HTTP)
	if err != nil {
		return fmt.Errorf("buying coins: %w", err)
	}
	if res.StatusCode >= 300 {
		return &StatusError{Op: "buy coins", Status: res.StatusCode, Message: gjson.GetBytes(res.Body, "error.message").String()}
	}
	return nil
}

// DownloadBook fetches a volume's EPUB content. The endpoint responds with
// an HTML error page (often behind a 200-status redirect) when the book is
// not downloadable yet, so an HTML body means not-available.
func (c *Client) DownloadBook(user UserData, book Book) ([]byte, error) {
	target := book.DownloadURL
	if target == "" {
		query := url.Values{}
		query.Set("userId", user.UserID)
		query.Set("userName", user.Name)
		query.Set("access_token", user.AuthToken)
		target = c.APIBase + "/volumes/" + url.PathEscape(book.ID) + "/getpremiumebook?" + query.Encode()
	}

	res, err := whttp.Send(&whttp.Request{Method: "GET", URL: target}, c.HTTP)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", book.Slug, err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrNotAvailable, book.Slug, res.StatusCode)
	}
	if res.IsHTML {
		msg := errorPageMessage(res.Body)
		if msg == "" {
			msg = res.HTMLTitle
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrNotAvailable, book.Slug, msg)
	}
	return res.Body, nil
}

func errorPageMessage(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find(".error-message, .message, h1").First().Text())
}

func intOr(r gjson.Result, fallback int) int {
	if !r.Exists() {
		return fallback
	}
	return int(r.Int())
}

func authHeaders(token string) []whttp.Header {
	return []whttp.Header{
		{Name: "Accept", Value: "application/json"},
		{Name: "Authorization", Value: token},
	}
}

func bearerHeaders(token string) []whttp.Header {
	return []whttp.Header{
		{Name: "Accept", Value: "application/json"},
		{Name: "Authorization", Value: "Bearer " + token},
	}
}

func parseUserData(user gjson.Result, token string) UserData {
	name := user.Get("username").String()
	if name == "" {
		name = user.Get("name").String()
	}
	return UserData{
		UserID:      user.Get("id").String(),
		Name:        name,
		AuthToken:   token,
		Coins:       int(user.Get("earnedCredits").Int() - user.Get("usedCredits").Int()),
		AccountType: user.Get("currentSubscription.plan.id").String(),
	}
}

func parseLibraryItem(item gjson.Result) Book {
	vol := item.Get("volume")
	book := Book{
		ID:          vol.Get("legacyId").String(),
		Title:       vol.Get("title").String(),
		Slug:        vol.Get("slug").String(),
		Volume:      int(vol.Get("number").Int()),
		SeriesID:    item.Get("serie.legacyId").String(),
		SeriesSlug:  item.Get("serie.slug").String(),
		Price:       int(vol.Get("coinPrice").Int()),
		Owned:       true,
		PublishedAt: parseTime(vol.Get("publishing").String()),
	}
	if t, ok := parseOptTime(vol.Get("updated").String()); ok {
		book.UpdatedAt = &t
	}
	if t, ok := parseOptTime(item.Get("purchased").String()); ok {
		book.PurchasedAt = &t
	}
	item.Get("downloads").ForEach(func(_, dl gjson.Result) bool {
		if dl.Get("type").String() == "EPUB" {
			book.DownloadURL = dl.Get("link").String()
			return false
		}
		return true
	})
	return book
}

func parseTime(value string) time.Time {
	t, _ := parseOptTime(value)
	return t
}

func parseOptTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
