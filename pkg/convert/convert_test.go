package convert

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charithe/calcengine/pkg/storage"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	c := NewConverter()
	c.SetRates(Rates{Values: map[string]float64{"USD": 1, "PLN": 4, "EUR": 0.5}})

	testCases := []struct {
		category Category
		from     string
		to       string
		value    float64
		want     string
	}{
		{category: Length, from: "km", to: "m", value: 1.5, want: "1500"},
		{category: Length, from: "cm", to: "m", value: 25, want: "0,25"},
		{category: Length, from: "mi", to: "km", value: 1, want: "1,609344"},
		{category: Length, from: "in", to: "cm", value: 1, want: "2,54"},
		{category: Mass, from: "lb", to: "kg", value: 1, want: "0,45359237"},
		{category: Mass, from: "kg", to: "g", value: 2, want: "2000"},
		{category: Volume, from: "l", to: "ml", value: 1, want: "1000"},
		{category: Volume, from: "m3", to: "l", value: 0.5, want: "500"},
		{category: Temperature, from: "C", to: "F", value: 100, want: "212"},
		{category: Temperature, from: "F", to: "C", value: 32, want: "0"},
		{category: Temperature, from: "K", to: "C", value: 0, want: "-273,15"},
		{category: Temperature, from: "C", to: "K", value: -40, want: "233,15"},
		{category: Currency, from: "USD", to: "PLN", value: 10, want: "40"},
		{category: Currency, from: "PLN", to: "EUR", value: 10, want: "1,25"},
		{category: Currency, from: "EUR", to: "EUR", value: 3, want: "3"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(fmt.Sprintf("%s_%s_%s", tc.category, tc.from, tc.to), func(t *testing.T) {
			have, err := c.Convert(tc.category, tc.from, tc.to, tc.value)
			require.NoError(t, err)
			require.Equal(t, tc.want, FormatValue(have, tc.category.Decimals()))
		})
	}
}

func TestConvertFailures(t *testing.T) {
	c := NewConverter()

	testCases := []struct {
		name     string
		category Category
		from     string
		to       string
		value    float64
		want     error
	}{
		{name: "negative_length", category: Length, from: "m", to: "cm", value: -1, want: ErrNegativeValue},
		{name: "negative_currency", category: Currency, from: "USD", to: "PLN", value: -1, want: ErrNegativeValue},
		{name: "nan", category: Mass, from: "kg", to: "g", value: math.NaN(), want: ErrInvalidValue},
		{name: "unknown_length", category: Length, from: "furlong", to: "m", value: 1, want: ErrUnknownUnit},
		{name: "unknown_temperature", category: Temperature, from: "C", to: "R", value: 1, want: ErrUnknownUnit},
		{name: "unknown_currency", category: Currency, from: "USD", to: "XYZ", value: 1, want: ErrUnknownUnit},
		{name: "cross_category", category: Mass, from: "kg", to: "m", value: 1, want: ErrUnknownUnit},
		{name: "unknown_category", category: Category("time"), from: "s", to: "h", value: 1, want: ErrUnknownCategory},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Convert(tc.category, tc.from, tc.to, tc.value)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUnits(t *testing.T) {
	c := NewConverter()

	units, err := c.Units(Temperature)
	require.NoError(t, err)
	require.Equal(t, []Unit{{Code: "C", Name: "Celsius"}, {Code: "F", Name: "Fahrenheit"}, {Code: "K", Name: "Kelvin"}}, units)

	currencies, err := c.Units(Currency)
	require.NoError(t, err)
	require.Len(t, currencies, 9)
	require.Equal(t, Unit{Code: "AUD", Name: "Australian Dollar"}, currencies[0])

	_, err = c.Units(Category("time"))
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestParseCategory(t *testing.T) {
	have, err := ParseCategory("temp")
	require.NoError(t, err)
	require.Equal(t, Temperature, have)

	have, err = ParseCategory("volume")
	require.NoError(t, err)
	require.Equal(t, Volume, have)

	_, err = ParseCategory("speed")
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestParseInput(t *testing.T) {
	testCases := []struct {
		input string
		want  float64
	}{
		{input: "12,5", want: 12.5},
		{input: "12.5", want: 12.5},
		{input: "1.234,5", want: 1.2345},
		{input: "1,2,3", want: 1.23},
		{input: " 42kg", want: 42},
		{input: "-3", want: -3},
		{input: ".5", want: 0.5},
		{input: "1e3", want: 1000},
		{input: "Infinity", want: math.Inf(1)},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			require.Equal(t, tc.want, ParseInput(tc.input))
		})
	}

	for _, input := range []string{"", "abc", ",", "-"} {
		require.True(t, math.IsNaN(ParseInput(input)), input)
	}
}

func TestFormatValue(t *testing.T) {
	testCases := []struct {
		value    float64
		decimals int
		want     string
	}{
		{value: 100, decimals: 2, want: "100"},
		{value: 100.5, decimals: 2, want: "100,5"},
		{value: 1.0 / 3, decimals: 2, want: "0,33"},
		{value: 1.0 / 3, decimals: 10, want: "0,3333333333"},
		{value: 0.00001, decimals: 2, want: "0"},
		{value: 1e21, decimals: 2, want: "1e+21"},
		{value: 1.5e25, decimals: 10, want: "1,5e+25"},
		{value: math.NaN(), decimals: 2, want: ""},
		{value: math.Inf(-1), decimals: 2, want: ""},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.want, func(t *testing.T) {
			require.Equal(t, tc.want, FormatValue(tc.value, tc.decimals))
		})
	}
}

const nbpBody = `[{"table":"A","no":"001/A/NBP/2024","effectiveDate":"2024-01-02","rates":[
	{"currency":"dolar amerykański","code":"USD","mid":4.0},
	{"currency":"euro","code":"EUR","mid":5.0},
	{"currency":"jen (Japonia)","code":"JPY","mid":0.025}
]}]`

const currencyAPIRates = `{"meta":{},"data":{
	"USD":{"code":"USD","value":1},
	"EUR":{"code":"EUR","value":0.9},
	"GBP":{"code":"GBP","value":0.8}
}}`

const currencyAPINames = `{"data":{
	"EUR":{"code":"EUR","name":"Euro"},
	"GBP":{"code":"GBP","name":"Pound Sterling"}
}}`

type providers struct {
	nbpStatus    int
	apiStatus    int
	apiKeys      []string
	nbpRequested bool
}

func (p *providers) start(t *testing.T) Endpoints {
	t.Helper()

	nbp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.nbpRequested = true
		require.Equal(t, "/api/exchangerates/tables/A/", r.URL.Path)
		if p.nbpStatus != http.StatusOK {
			w.WriteHeader(p.nbpStatus)
			return
		}
		fmt.Fprint(w, nbpBody)
	}))
	t.Cleanup(nbp.Close)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.apiKeys = append(p.apiKeys, r.URL.Query().Get("apikey"))
		if p.apiStatus != http.StatusOK {
			w.WriteHeader(p.apiStatus)
			return
		}
		switch r.URL.Path {
		case "/v3/latest":
			fmt.Fprint(w, currencyAPIRates)
		case "/v3/currencies":
			fmt.Fprint(w, currencyAPINames)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(api.Close)

	return Endpoints{NBP: nbp.URL, CurrencyAPI: api.URL}
}

func TestRateFetcher(t *testing.T) {
	t.Run("nbp", func(t *testing.T) {
		p := &providers{nbpStatus: http.StatusOK, apiStatus: http.StatusOK}
		f := NewRateFetcher(WithEndpoints(p.start(t)), WithAPIKey("secret"))

		rates := f.Fetch(context.Background())
		require.Equal(t, SourceNBP, rates.Source)
		require.InDelta(t, 1, rates.Values["USD"], 1e-12)
		require.InDelta(t, 4, rates.Values["PLN"], 1e-12)
		require.InDelta(t, 0.8, rates.Values["EUR"], 1e-12)
		require.InDelta(t, 160, rates.Values["JPY"], 1e-9)
		require.Equal(t, "Pound Sterling", rates.Names["GBP"])
		require.Equal(t, "Polish Złoty", rates.Names["PLN"])
		require.Equal(t, []string{"secret"}, p.apiKeys)
		require.False(t, rates.Updated.IsZero())
	})

	t.Run("fallback", func(t *testing.T) {
		p := &providers{nbpStatus: http.StatusServiceUnavailable, apiStatus: http.StatusOK}
		f := NewRateFetcher(WithEndpoints(p.start(t)), WithAPIKey("secret"))

		rates := f.Fetch(context.Background())
		require.True(t, p.nbpRequested)
		require.Equal(t, SourceCurrencyAPI, rates.Source)
		require.InDelta(t, 0.9, rates.Values["EUR"], 1e-12)
		require.InDelta(t, 0.8, rates.Values["GBP"], 1e-12)
		require.Equal(t, "Euro", rates.Names["EUR"])
	})

	t.Run("defaults", func(t *testing.T) {
		p := &providers{nbpStatus: http.StatusInternalServerError, apiStatus: http.StatusUnauthorized}
		f := NewRateFetcher(WithEndpoints(p.start(t)), WithAPIKey("secret"))

		rates := f.Fetch(context.Background())
		require.Equal(t, SourceDefault, rates.Source)
		require.Len(t, rates.Values, 9)
		require.InDelta(t, 1/0.24, rates.Values["PLN"], 1e-12)
	})

	t.Run("no_api_key", func(t *testing.T) {
		p := &providers{nbpStatus: http.StatusBadGateway, apiStatus: http.StatusOK}
		f := NewRateFetcher(WithEndpoints(p.start(t)))

		rates := f.Fetch(context.Background())
		require.Equal(t, SourceDefault, rates.Source)
		require.Empty(t, p.apiKeys)
	})
}

type staticSource Rates

func (s staticSource) Fetch(context.Context) Rates {
	return Rates(s)
}

func TestRefresh(t *testing.T) {
	c := NewConverter()
	require.Equal(t, SourceDefault, c.Rates().Source)

	c.Refresh(context.Background(), staticSource{Values: map[string]float64{"USD": 1, "SEK": 10}, Source: "test"})

	have, err := c.Convert(Currency, "USD", "SEK", 2)
	require.NoError(t, err)
	require.InDelta(t, 20, have, 1e-12)

	_, err = c.Convert(Currency, "USD", "PLN", 2)
	require.ErrorIs(t, err, ErrUnknownUnit)
}

func TestPoll(t *testing.T) {
	src := staticSource{Values: map[string]float64{"USD": 1, "NOK": 11}, Source: "test"}

	t.Run("once", func(t *testing.T) {
		for _, interval := range []time.Duration{0, -time.Minute} {
			c := NewConverter()
			c.Poll(context.Background(), src, interval)
			require.Equal(t, "test", c.Rates().Source)
		}
	})

	t.Run("until_cancelled", func(t *testing.T) {
		c := NewConverter()
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			defer close(done)
			c.Poll(ctx, src, time.Hour)
		}()

		require.Eventually(t, func() bool { return c.Rates().Source == "test" }, time.Second, 10*time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Poll did not return after cancellation")
		}
	})
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	prefs := NewPreferences(storage.NewMemory().Profile("test"))

	defaults := map[Category]Selection{
		Currency:    {From: "USD", To: "PLN"},
		Length:      {From: "cm", To: "m"},
		Mass:        {From: "kg", To: "g"},
		Temperature: {From: "C", To: "F"},
		Volume:      {From: "l", To: "ml"},
	}
	for cat, want := range defaults {
		have, err := prefs.Selection(ctx, cat)
		require.NoError(t, err)
		require.Equal(t, want, have, cat)
	}

	require.NoError(t, prefs.SetSelection(ctx, Length, Selection{From: "mi", To: "km"}))
	have, err := prefs.Selection(ctx, Length)
	require.NoError(t, err)
	require.Equal(t, Selection{From: "mi", To: "km"}, have)

	swapped, err := prefs.Swap(ctx, Temperature)
	require.NoError(t, err)
	require.Equal(t, Selection{From: "F", To: "C"}, swapped)

	have, err = prefs.Selection(ctx, Temperature)
	require.NoError(t, err)
	require.Equal(t, swapped, have)

	_, err = prefs.Selection(ctx, Category("time"))
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestPreferencesKeys(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory().Profile("test")
	prefs := NewPreferences(store)

	require.NoError(t, prefs.SetSelection(ctx, Temperature, Selection{From: "K", To: "C"}))
	from, err := store.Get(ctx, "converterFromTemp")
	require.NoError(t, err)
	require.Equal(t, "K", from)

	require.NoError(t, prefs.SetSelection(ctx, Currency, Selection{From: "EUR", To: "GBP"}))
	to, err := store.Get(ctx, "converterToCurrency")
	require.NoError(t, err)
	require.Equal(t, "GBP", to)
}

func TestTheme(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory().Profile("test")
	prefs := NewPreferences(store)

	theme, err := prefs.Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, "value-1", theme)

	require.NoError(t, prefs.SetTheme(ctx, "value-3"))
	theme, err = prefs.Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, "value-3", theme)

	require.ErrorIs(t, prefs.SetTheme(ctx, "value-9"), ErrUnknownTheme)

	require.NoError(t, store.Set(ctx, ThemeKey, "neon"))
	theme, err = prefs.Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, "value-1", theme)
}
