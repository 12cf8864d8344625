package convert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	SourceNBP         = "nbp"
	SourceCurrencyAPI = "currencyapi"
	SourceDefault     = "default"

	baseCurrency = "USD"

	refreshTimeout = 30 * time.Second
)

var tracer = otel.Tracer("convert")

// Rates holds exchange rates as units of each currency per US dollar.
type Rates struct {
	Values  map[string]float64 `json:"rates"`
	Names   map[string]string  `json:"names"`
	Source  string             `json:"source"`
	Updated time.Time          `json:"updated"`
}

// Prices in US dollars of one unit of each currency.
var defaultDollarPrices = map[string]float64{
	"PLN": 0.24, "USD": 1.0, "EUR": 1.08, "GBP": 1.25,
	"CHF": 1.05, "JPY": 0.0068, "CZK": 0.043, "HUF": 0.0028, "AUD": 0.64,
}

var defaultNames = map[string]string{
	"PLN": "Polish Złoty", "USD": "US Dollar", "EUR": "Euro",
	"GBP": "British Pound", "CHF": "Swiss Franc", "JPY": "Japanese Yen",
	"CZK": "Czech Koruna", "HUF": "Hungarian Forint", "AUD": "Australian Dollar",
}

// DefaultRates returns the built-in rate table used when no provider can be reached.
func DefaultRates() Rates {
	values := make(map[string]float64, len(defaultDollarPrices))
	for code, price := range defaultDollarPrices {
		values[code] = 1 / price
	}
	return Rates{Values: values, Names: copyNames(defaultNames), Source: SourceDefault}
}

func copyNames(names map[string]string) map[string]string {
	out := make(map[string]string, len(names))
	for k, v := range names {
		out[k] = v
	}
	return out
}

// RateSource supplies exchange rates. Fetch always returns a usable table.
type RateSource interface {
	Fetch(ctx context.Context) Rates
}

// Endpoints are the base URLs of the rate providers.
type Endpoints struct {
	NBP         string
	CurrencyAPI string
}

var DefaultEndpoints = Endpoints{
	NBP:         "https://api.nbp.pl",
	CurrencyAPI: "https://api.currencyapi.com",
}

type FetcherOption func(*RateFetcher)

func WithEndpoints(e Endpoints) FetcherOption {
	return func(f *RateFetcher) {
		f.endpoints = e
	}
}

func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *RateFetcher) {
		f.client = c
	}
}

// WithAPIKey sets the currencyapi.com key. Without one the fallback provider and the
// currency names are skipped.
func WithAPIKey(key string) FetcherOption {
	return func(f *RateFetcher) {
		f.apiKey = key
	}
}

// RateFetcher downloads rates from the National Bank of Poland, falling back to
// currencyapi.com and finally to DefaultRates.
type RateFetcher struct {
	client    *http.Client
	endpoints Endpoints
	apiKey    string
	logger    *zap.SugaredLogger
}

func NewRateFetcher(opts ...FetcherOption) *RateFetcher {
	f := &RateFetcher{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
		endpoints: DefaultEndpoints,
		logger:    zap.S().Named("rates"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *RateFetcher) Fetch(ctx context.Context) Rates {
	ctx, span := tracer.Start(ctx, "convert.fetch_rates")
	defer span.End()

	names := copyNames(defaultNames)
	if f.apiKey != "" {
		fetched, err := f.fetchNames(ctx)
		if err != nil {
			f.logger.Warnw("Failed to fetch currency names", "error", err)
		}
		for code, name := range fetched {
			names[code] = name
		}
	}

	values, err := f.fetchNBP(ctx)
	if err == nil {
		return f.done(span, Rates{Values: values, Names: names, Source: SourceNBP})
	}
	f.logger.Warnw("NBP rates unavailable, trying fallback", "error", err)

	values, err = f.fetchCurrencyAPI(ctx)
	if err == nil {
		return f.done(span, Rates{Values: values, Names: names, Source: SourceCurrencyAPI})
	}
	f.logger.Errorw("Fallback rates unavailable, using defaults", "error", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, "no rate provider reachable")

	return f.done(span, DefaultRates())
}

func (f *RateFetcher) done(span trace.Span, r Rates) Rates {
	r.Updated = time.Now()
	span.SetAttributes(
		attribute.String("rates.source", r.Source),
		attribute.Int("rates.count", len(r.Values)),
	)
	return r
}

type nbpTable struct {
	Rates []struct {
		Code string  `json:"code"`
		Mid  float64 `json:"mid"`
	} `json:"rates"`
}

// fetchNBP reads table A, which quotes the złoty price of one unit of each currency, and
// rebases it on the dollar.
func (f *RateFetcher) fetchNBP(ctx context.Context) (map[string]float64, error) {
	var tables []nbpTable
	if err := f.getJSON(ctx, f.endpoints.NBP+"/api/exchangerates/tables/A/?format=json", &tables); err != nil {
		return nil, err
	}
	if len(tables) == 0 || len(tables[0].Rates) == 0 {
		return nil, errors.New("NBP: missing rates")
	}

	perZloty := map[string]float64{"PLN": 1}
	for _, r := range tables[0].Rates {
		if r.Mid > 0 {
			perZloty[r.Code] = 1 / r.Mid
		}
	}

	dollar, ok := perZloty[baseCurrency]
	if !ok {
		return nil, errors.New("NBP: no dollar rate")
	}

	values := make(map[string]float64, len(perZloty))
	for code, rate := range perZloty {
		values[code] = rate / dollar
	}
	return values, nil
}

type currencyAPIResponse struct {
	Data map[string]struct {
		Code  string  `json:"code"`
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	} `json:"data"`
}

func (f *RateFetcher) fetchCurrencyAPI(ctx context.Context) (map[string]float64, error) {
	if f.apiKey == "" {
		return nil, errors.New("currencyapi: no API key configured")
	}

	var resp currencyAPIResponse
	if err := f.getJSON(ctx, f.currencyAPIURL("/v3/latest"), &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("currencyapi: missing data")
	}

	base := 1.0
	if d, ok := resp.Data[baseCurrency]; ok && d.Value != 0 {
		base = d.Value
	}

	values := map[string]float64{baseCurrency: 1}
	for code, d := range resp.Data {
		v := d.Value / base
		if v == 0 {
			v = 1
		}
		values[code] = v
	}
	return values, nil
}

func (f *RateFetcher) fetchNames(ctx context.Context) (map[string]string, error) {
	var resp currencyAPIResponse
	if err := f.getJSON(ctx, f.currencyAPIURL("/v3/currencies"), &resp); err != nil {
		return nil, err
	}

	names := make(map[string]string, len(resp.Data))
	for code, d := range resp.Data {
		if d.Name != "" {
			names[code] = d.Name
		}
	}
	return names, nil
}

func (f *RateFetcher) currencyAPIURL(path string) string {
	return f.endpoints.CurrencyAPI + path + "?apikey=" + url.QueryEscape(f.apiKey)
}

func (f *RateFetcher) getJSON(ctx context.Context, target string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request to %s failed", req.URL.Host)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s returned HTTP %d", req.URL.Host, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrapf(err, "failed to decode response from %s", req.URL.Host)
	}
	return nil
}

// Refresh fetches a new rate table from src and installs it.
func (c *Converter) Refresh(ctx context.Context, src RateSource) Rates {
	r := src.Fetch(ctx)
	c.SetRates(r)
	return r
}

// Poll refreshes the rates immediately and then at every interval until ctx is done. A
// non-positive interval refreshes once and returns.
func (c *Converter) Poll(ctx context.Context, src RateSource, interval time.Duration) {
	if interval <= 0 {
		c.refreshWithTimeout(ctx, src, refreshTimeout)
		zap.S().Infow("Exchange rate polling disabled", "interval", interval)
		return
	}

	c.refreshWithTimeout(ctx, src, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refreshWithTimeout(ctx, src, interval)
		}
	}
}

func (c *Converter) refreshWithTimeout(ctx context.Context, src RateSource, limit time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	r := c.Refresh(ctx, src)
	zap.S().Infow("Exchange rates refreshed", "source", r.Source, "currencies", len(r.Values))
}
