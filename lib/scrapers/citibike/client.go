package citibike

import (
	"bytes"
	"citibike-scraper/lib/htmlutil"
	"citibike-scraper/lib/restyutil"
	"citibike-scraper/lib/telemetry"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
)

const (
	report_client_login     = "client.login"
	report_client_trips_url = "client.trips-url"
	report_client_open      = "client.open"
)

const DEFAULT_BASE_URL = "https://member.citibikenyc.com"

// Session is an authenticated connection to the member site.
type Session interface {
	// Open fetches url and returns the response body, an *FetchError is
	// returned on any failure.
	Open(ctx context.Context, url string) ([]byte, error)
}

type ClientOptions struct {
	BaseUrl     string
	LoginPath   string
	ProfilePath string
	Selectors   Selectors
	UserAgent   string
	Timeout     time.Duration
	// routes requests through a transport that mimics a browser tls handshake
	CloudflareBypass bool
	// if set, every http exchange is written to it with the password redacted
	Dump restyutil.InstrumentOutput
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		BaseUrl:          DEFAULT_BASE_URL,
		LoginPath:        "/profile/login",
		ProfilePath:      "/profile/",
		Selectors:        DefaultSelectors(),
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		Timeout:          time.Second * 30,
		CloudflareBypass: true,
	}
}

// Client is the Session for the member site, it keeps the login cookies.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	opts ClientOptions
	tel  telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	tel = telemetry.NewScopedAPI("citibike", tel)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseUrl)
	}
	err = opts.Selectors.Validate()
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(baseUrl.String())
	client.SetCookieJar(jar)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	if opts.UserAgent != "" {
		client.SetHeader("user-agent", opts.UserAgent)
	}
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	telemetry.InstrumentResty(client, "scrapers/citibike/http", tel)
	restyutil.RecordExchanges(client, opts.Dump, opts.Selectors.PasswordField)

	return &Client{
		BaseUrl: baseUrl,
		Http:    client,
		opts:    opts,
		tel:     tel,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*resty.Response, *goquery.Document, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		return nil, nil, &FetchError{Url: endpoint, Err: err}
	}
	if res.IsError() {
		return res, nil, &FetchError{Url: endpoint, Status: res.StatusCode()}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return res, nil, fmt.Errorf("parse %s: %w", endpoint, err)
	}
	return res, doc, nil
}

// finalUrl is the url the response was served from after redirects.
func finalUrl(res *resty.Response, fallback *url.URL) *url.URL {
	if res != nil && res.RawResponse != nil && res.RawResponse.Request != nil {
		return res.RawResponse.Request.URL
	}
	return fallback
}

func (c *Client) formValues(form *goquery.Selection, username, password string) url.Values {
	values := url.Values{}
	form.Find("input[name]").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		inputType := strings.ToLower(input.AttrOr("type", "text"))
		switch inputType {
		case "submit", "button", "image", "reset", "file":
			return
		case "checkbox", "radio":
			if _, checked := input.Attr("checked"); !checked {
				return
			}
			values.Add(name, input.AttrOr("value", "on"))
			return
		}
		values.Add(name, input.AttrOr("value", ""))
	})
	values.Set(c.opts.Selectors.UsernameField, username)
	values.Set(c.opts.Selectors.PasswordField, password)
	return values
}

// Login submits the login form with the given credentials, it returns
// ErrAuthentication if the site does not accept them.
func (c *Client) Login(ctx context.Context, username, password string) error {
	loginError := func(err error) error {
		return fmt.Errorf("citibike: login failed: %w", err)
	}
	sel := c.opts.Selectors

	res, doc, err := c.get(ctx, c.opts.LoginPath)
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("login page: %w", err))
		return loginError(err)
	}

	form := doc.Find(sel.LoginForm).First()
	if form.Length() == 0 {
		err := &ExtractionError{Field: "login_form", Selector: sel.LoginForm, Row: -1}
		c.tel.ReportBroken(report_client_login, err)
		return loginError(err)
	}

	loginPage := finalUrl(res, c.BaseUrl.JoinPath(c.opts.LoginPath))
	action, err := url.Parse(form.AttrOr("action", ""))
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("parse form action: %w", err))
		return loginError(err)
	}
	target := loginPage.ResolveReference(action)

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormDataFromValues(c.formValues(form, username, password)).
		Post(target.String())
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("login request: %w", err))
		return loginError(&FetchError{Url: target.String(), Err: err})
	}
	if res.StatusCode() == 401 || res.StatusCode() == 403 {
		return ErrAuthentication
	}
	if res.IsError() {
		err := &FetchError{Url: target.String(), Status: res.StatusCode()}
		c.tel.ReportBroken(report_client_login, err)
		return loginError(err)
	}

	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("parse login response: %w", err))
		return loginError(err)
	}
	if doc.Find(sel.LoginForm).Length() > 0 {
		c.tel.ReportWarning(report_client_login, "login form still present after submission")
		return ErrAuthentication
	}

	c.tel.ReportDebug("logged in", username)
	return nil
}

// TripsUrl finds the link to the trip history of the logged in member on the
// profile page, the page number parameter is removed from it.
func (c *Client) TripsUrl(ctx context.Context) (*url.URL, error) {
	sel := c.opts.Selectors

	res, doc, err := c.get(ctx, c.opts.ProfilePath)
	if err != nil {
		c.tel.ReportBroken(report_client_trips_url, err)
		return nil, err
	}

	profile := finalUrl(res, c.BaseUrl.JoinPath(c.opts.ProfilePath))
	anchors := htmlutil.GetAnchors(profile, doc.Find(sel.TripsLink))
	if len(anchors) == 0 {
		err := &ExtractionError{Field: "trips_link", Selector: sel.TripsLink, Row: -1}
		c.tel.ReportBroken(report_client_trips_url, err)
		return nil, err
	}

	tripsUrl := anchors[0].Url
	query := tripsUrl.Query()
	query.Del(sel.PageParam)
	tripsUrl.RawQuery = query.Encode()

	c.tel.ReportDebug("found trips url", tripsUrl.String())
	return tripsUrl, nil
}

func (c *Client) Open(ctx context.Context, endpoint string) ([]byte, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		c.tel.ReportBroken(report_client_open, err, endpoint)
		return nil, &FetchError{Url: endpoint, Err: err}
	}
	if res.IsError() {
		err := &FetchError{Url: endpoint, Status: res.StatusCode()}
		c.tel.ReportBroken(report_client_open, err)
		return nil, err
	}
	return res.Body(), nil
}
