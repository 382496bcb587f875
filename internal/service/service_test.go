package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/city-weather/internal/circuitbreaker"
	"github.com/kjstillabower/city-weather/internal/client"
	"github.com/kjstillabower/city-weather/internal/models"
)

type mockGeocoder struct {
	loc   models.Location
	err   error
	calls int
	got   string
}

func (m *mockGeocoder) Geocode(ctx context.Context, city string) (models.Location, error) {
	m.calls++
	m.got = city
	return m.loc, m.err
}

type mockForecast struct {
	conditions models.CurrentConditions
	err        error
	calls      int
}

func (m *mockForecast) CurrentConditions(ctx context.Context, lat, lon float64) (models.CurrentConditions, error) {
	m.calls++
	return m.conditions, m.err
}

type mockProvider struct {
	name    string
	reading models.AirQualityReading
	err     error
	calls   int
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) CurrentAirQuality(ctx context.Context, lat, lon float64) (models.AirQualityReading, error) {
	m.calls++
	return m.reading, m.err
}

func f64(v float64) *float64 { return &v }

var (
	london = models.Location{
		Name:      "London",
		Country:   "United Kingdom",
		Latitude:  51.50853,
		Longitude: -0.12574,
		Timezone:  "Europe/London",
	}
	drizzle = models.CurrentConditions{
		Temperature: 11.4,
		WeatherCode: 53,
		WindSpeed:   3.2,
		Humidity:    87,
		PressureMSL: 1009.8,
	}
	fixedNow = time.Date(2026, 10, 17, 14, 5, 0, 0, time.UTC)
)

func newTestService(g client.Geocoder, f client.ForecastClient, providers ...client.AirQualityProvider) *WeatherService {
	s := NewWeatherService(g, f, NewAirQualityResolver(providers...), 100)
	s.now = func() time.Time { return fixedNow }
	return s
}

// TestLookup_Success verifies the full pipeline produces a classified report.
func TestLookup_Success(t *testing.T) {
	geo := &mockGeocoder{loc: london}
	fc := &mockForecast{conditions: drizzle}
	primary := &mockProvider{name: "primary", reading: models.AirQualityReading{Index: f64(57.6), PM25: f64(14.25)}}
	s := newTestService(geo, fc, primary)

	got, err := s.Lookup(context.Background(), "  London ")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if geo.got != "London" {
		t.Errorf("geocoder got %q, want trimmed London", geo.got)
	}
	if got.Location != london || got.Conditions != drizzle {
		t.Errorf("Lookup() location/conditions = %+v / %+v", got.Location, got.Conditions)
	}
	if got.Condition.Description != "Moderate Drizzle" || got.Condition.Icon != "🌧️" {
		t.Errorf("Condition = %+v", got.Condition)
	}
	if got.AirQuality == nil {
		t.Fatal("AirQuality = nil, want reading")
	}
	if got.AirQuality.Index != 57 || got.AirQuality.Category.Label != "Fair" {
		t.Errorf("AirQuality = %+v, want index 57 Fair", got.AirQuality)
	}
	if got.AirQuality.PM25 == nil || *got.AirQuality.PM25 != 14.25 {
		t.Errorf("PM25 = %v, want 14.25", got.AirQuality.PM25)
	}
	if got.AirQuality.Source != "primary" {
		t.Errorf("Source = %q, want primary", got.AirQuality.Source)
	}
	if !got.QueriedAt.Equal(fixedNow) {
		t.Errorf("QueriedAt = %v, want %v", got.QueriedAt, fixedNow)
	}
}

// TestLookup_PunctuatedNamesReachGeocoder verifies only empty, overlong or
// control-character input is blocked; the geocoder judges everything else.
func TestLookup_PunctuatedNamesReachGeocoder(t *testing.T) {
	for _, city := range []string{"Biel/Bienne", "Paris!", "Saint-Denis"} {
		geo := &mockGeocoder{err: client.ErrLocationNotFound}
		fc := &mockForecast{conditions: drizzle}
		s := newTestService(geo, fc, &mockProvider{name: "primary"})

		_, err := s.Lookup(context.Background(), city)
		if errors.Is(err, ErrInvalidCity) {
			t.Errorf("Lookup(%q) rejected as invalid: %v", city, err)
		}
		if !errors.Is(err, ErrCityNotFound) {
			t.Errorf("Lookup(%q) error = %v, want ErrCityNotFound", city, err)
		}
		if geo.calls != 1 {
			t.Errorf("Lookup(%q) geocoder calls = %d, want 1", city, geo.calls)
		}
		if fc.calls != 0 {
			t.Errorf("Lookup(%q) forecast calls = %d, want 0", city, fc.calls)
		}
	}
}

// TestLookup_WhitespaceRejectedBeforeAnyRequest verifies validation happens first.
func TestLookup_WhitespaceRejectedBeforeAnyRequest(t *testing.T) {
	geo := &mockGeocoder{loc: london}
	fc := &mockForecast{conditions: drizzle}
	primary := &mockProvider{name: "primary"}
	s := newTestService(geo, fc, primary)

	for _, city := range []string{"", "  ", "\t\n"} {
		_, err := s.Lookup(context.Background(), city)
		if !errors.Is(err, ErrInvalidCity) {
			t.Errorf("Lookup(%q) error = %v, want ErrInvalidCity", city, err)
		}
	}
	if geo.calls+fc.calls+primary.calls != 0 {
		t.Errorf("upstream calls = %d/%d/%d, want none", geo.calls, fc.calls, primary.calls)
	}
}

// TestLookup_NotFoundSkipsWeather verifies an empty geocoder result aborts before the weather request.
func TestLookup_NotFoundSkipsWeather(t *testing.T) {
	geo := &mockGeocoder{err: client.ErrLocationNotFound}
	fc := &mockForecast{conditions: drizzle}
	primary := &mockProvider{name: "primary"}
	s := newTestService(geo, fc, primary)

	_, err := s.Lookup(context.Background(), "Atlantis")
	if !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("Lookup() error = %v, want ErrCityNotFound", err)
	}
	var re *RetrievalError
	if errors.As(err, &re) {
		t.Error("not found must not be a RetrievalError")
	}
	if fc.calls != 0 || primary.calls != 0 {
		t.Errorf("weather calls = %d, air quality calls = %d, want 0", fc.calls, primary.calls)
	}
}

// TestLookup_RetrievalErrors verifies geocoding and weather failures abort with the cause text.
func TestLookup_RetrievalErrors(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	t.Run("geocoding", func(t *testing.T) {
		fc := &mockForecast{conditions: drizzle}
		s := newTestService(&mockGeocoder{err: cause}, fc)
		_, err := s.Lookup(context.Background(), "London")
		var re *RetrievalError
		if !errors.As(err, &re) || re.Stage != StageGeocoding {
			t.Fatalf("Lookup() error = %v, want geocoding RetrievalError", err)
		}
		if !errors.Is(err, cause) || !strings.Contains(err.Error(), "connection refused") {
			t.Errorf("error = %q, want cause included", err)
		}
		if fc.calls != 0 {
			t.Error("weather fetched after geocoding failure")
		}
	})

	t.Run("weather", func(t *testing.T) {
		primary := &mockProvider{name: "primary"}
		s := newTestService(&mockGeocoder{loc: london}, &mockForecast{err: cause}, primary)
		_, err := s.Lookup(context.Background(), "London")
		var re *RetrievalError
		if !errors.As(err, &re) || re.Stage != StageWeather {
			t.Fatalf("Lookup() error = %v, want weather RetrievalError", err)
		}
		if !strings.Contains(err.Error(), "connection refused") {
			t.Errorf("error = %q, want cause included", err)
		}
		if primary.calls != 0 {
			t.Error("air quality fetched after weather failure")
		}
	})
}

// TestLookup_AirQualityUnavailable verifies both sources failing still completes the lookup.
func TestLookup_AirQualityUnavailable(t *testing.T) {
	primary := &mockProvider{name: "primary", err: errors.New("timeout")}
	fallback := &mockProvider{name: "fallback", err: errors.New("status error")}
	s := newTestService(&mockGeocoder{loc: london}, &mockForecast{conditions: drizzle}, primary, fallback)

	got, err := s.Lookup(context.Background(), "London")
	if err != nil {
		t.Fatalf("Lookup() error = %v, want nil", err)
	}
	if got.AirQuality != nil {
		t.Errorf("AirQuality = %+v, want nil", got.AirQuality)
	}
	if got.Conditions != drizzle || got.Condition.Description != "Moderate Drizzle" {
		t.Error("core conditions missing from degraded report")
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.calls, fallback.calls)
	}
}

// TestLookup_Idempotent verifies repeated lookups against unchanged upstream data are identical.
func TestLookup_Idempotent(t *testing.T) {
	primary := &mockProvider{name: "primary", reading: models.AirQualityReading{Index: f64(42), PM25: f64(9.9)}}
	s := newTestService(&mockGeocoder{loc: london}, &mockForecast{conditions: drizzle}, primary)

	a, err := s.Lookup(context.Background(), "London")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Lookup(context.Background(), "London")
	if err != nil {
		t.Fatal(err)
	}
	if a.Location != b.Location || a.Conditions != b.Conditions || a.Condition != b.Condition ||
		*a.AirQuality.PM25 != *b.AirQuality.PM25 || a.AirQuality.Index != b.AirQuality.Index {
		t.Errorf("reports differ:\n%+v\n%+v", a, b)
	}
}

func TestResolve_FallbackUsedWhenPrimaryFails(t *testing.T) {
	primary := &mockProvider{name: "primary", err: context.DeadlineExceeded}
	fallback := &mockProvider{name: "fallback", reading: models.AirQualityReading{Index: f64(42)}}
	r := NewAirQualityResolver(primary, fallback)

	got := r.Resolve(context.Background(), 1, 2)
	if got == nil {
		t.Fatal("Resolve() = nil")
	}
	if got.Index != 42 || got.Category.Label != "Good" || got.Source != "fallback" {
		t.Errorf("Resolve() = %+v, want 42 Good from fallback", got)
	}
}

func TestResolve_InvalidIndexFallsThrough(t *testing.T) {
	tests := []struct {
		name    string
		primary models.AirQualityReading
	}{
		{"missing index", models.AirQualityReading{PM25: f64(5)}},
		{"above scale", models.AirQualityReading{Index: f64(612), PM25: f64(5)}},
		{"negative", models.AirQualityReading{Index: f64(-3), PM25: f64(5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &mockProvider{name: "primary", reading: tt.primary}
			fallback := &mockProvider{name: "fallback", reading: models.AirQualityReading{Index: f64(160)}}
			got := NewAirQualityResolver(primary, fallback).Resolve(context.Background(), 1, 2)
			if got == nil || got.Source != "fallback" || got.Category.Label != "Poor" {
				t.Fatalf("Resolve() = %+v, want fallback Poor", got)
			}
			if got.PM25 == nil || *got.PM25 != 5 {
				t.Errorf("PM25 = %v, want primary's 5 retained", got.PM25)
			}
		})
	}
}

func TestResolve_FallbackNotCalledWhenPrimaryValid(t *testing.T) {
	primary := &mockProvider{name: "primary", reading: models.AirQualityReading{Index: f64(0)}}
	fallback := &mockProvider{name: "fallback", reading: models.AirQualityReading{Index: f64(400)}}
	got := NewAirQualityResolver(primary, fallback).Resolve(context.Background(), 1, 2)
	if got == nil || got.Index != 0 || got.Category.Label != "Good" {
		t.Fatalf("Resolve() = %+v, want 0 Good", got)
	}
	if fallback.calls != 0 {
		t.Error("fallback called after a valid primary reading")
	}
}

func TestResolve_BothInvalidIsAbsent(t *testing.T) {
	primary := &mockProvider{name: "primary", reading: models.AirQualityReading{Index: f64(501)}}
	fallback := &mockProvider{name: "fallback", reading: models.AirQualityReading{}}
	if got := NewAirQualityResolver(primary, fallback).Resolve(context.Background(), 1, 2); got != nil {
		t.Errorf("Resolve() = %+v, want nil", got)
	}
}

func TestWithCircuitBreaker_FailsFastWhenOpen(t *testing.T) {
	fallback := &mockProvider{name: "fallback", err: errors.New("HTTP 503")}
	cb := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 2, Timeout: time.Hour, Component: "fallback"})
	guarded := WithCircuitBreaker(fallback, cb)
	if guarded.Name() != "fallback" {
		t.Errorf("Name() = %q, want fallback", guarded.Name())
	}
	r := NewAirQualityResolver(guarded)

	for i := 0; i < 4; i++ {
		if got := r.Resolve(context.Background(), 1, 2); got != nil {
			t.Fatalf("Resolve() = %+v, want nil", got)
		}
	}
	if fallback.calls != 2 {
		t.Errorf("fallback calls = %d, want 2 (breaker open afterwards)", fallback.calls)
	}
	if cb.State() != circuitbreaker.StateOpen {
		t.Errorf("breaker state = %v, want open", cb.State())
	}
}

func TestWithCircuitBreaker_EmptyReadingIsNotFailure(t *testing.T) {
	fallback := &mockProvider{name: "fallback"}
	cb := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 1, Timeout: time.Hour})
	r := NewAirQualityResolver(WithCircuitBreaker(fallback, cb))
	_ = r.Resolve(context.Background(), 1, 2)
	_ = r.Resolve(context.Background(), 1, 2)
	if cb.State() != circuitbreaker.StateClosed || fallback.calls != 2 {
		t.Errorf("state = %v calls = %d, want closed and 2", cb.State(), fallback.calls)
	}
}

// TestLookup_RealClientsPrimaryTimeoutFallbackOK drives the pipeline against fake
// upstream servers: the primary air quality source hangs past its timeout and the
// fallback answers {status: ok, data: {aqi: 42}}.
func TestLookup_RealClientsPrimaryTimeoutFallbackOK(t *testing.T) {
	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"name":"Paris","country":"France","latitude":48.85341,"longitude":2.3488,"timezone":"Europe/Paris"}]}`))
	}))
	defer geoSrv.Close()
	wxSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":18.2,"weather_code":2,"wind_speed_10m":2.5,"relative_humidity_2m":64,"pressure_msl":1018.1}}`))
	}))
	defer wxSrv.Close()
	aqSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer aqSrv.Close()
	waqiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","data":{"aqi":42}}`))
	}))
	defer waqiSrv.Close()

	geo, _ := client.NewOpenMeteoGeocoder(geoSrv.URL, time.Second)
	wx, _ := client.NewOpenMeteoForecastClient(wxSrv.URL, time.Second)
	aq, _ := client.NewOpenMeteoAirQualityClient(aqSrv.URL, 50*time.Millisecond)
	waqi, _ := client.NewWAQIClient(waqiSrv.URL, "demo", time.Second)
	s := NewWeatherService(geo, wx, NewAirQualityResolver(aq, waqi), 100)

	got, err := s.Lookup(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.Condition.Description != "Partly Cloudy" {
		t.Errorf("Description = %q, want Partly Cloudy", got.Condition.Description)
	}
	if got.AirQuality == nil || got.AirQuality.Index != 42 || got.AirQuality.Category.Label != "Good" {
		t.Fatalf("AirQuality = %+v, want 42 Good", got.AirQuality)
	}
	if got.AirQuality.Source != client.ProviderWAQI {
		t.Errorf("Source = %q, want waqi", got.AirQuality.Source)
	}
}
