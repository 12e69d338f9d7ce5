// Package smalltalk answers the commands that need no record store: the
// current time, the weather, and jokes.
//
// Weather uses the Open-Meteo current-weather endpoint with a bounded HTTP
// client; a failure is reported to the caller, which degrades to a spoken
// apology rather than ending the conversation.
package smalltalk

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

const (
	weatherURL     = "https://api.open-meteo.com/v1/forecast"
	weatherTimeout = 5 * time.Second
)

// Option is a functional option for configuring [Talk].
type Option func(*Talk)

// WithHTTPClient overrides the HTTP client used for weather lookups.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Talk) {
		t.client = c
	}
}

// WithRandSource seeds joke selection, for deterministic tests.
func WithRandSource(src rand.Source) Option {
	return func(t *Talk) {
		t.rng = rand.New(src)
	}
}

// WithWeatherURL overrides the forecast endpoint.
func WithWeatherURL(url string) Option {
	return func(t *Talk) {
		t.baseURL = url
	}
}

// Talk implements time, weather, and joke responses. Safe for concurrent
// use.
type Talk struct {
	lat, lon float64
	baseURL  string
	client   *http.Client

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Talk for the given coordinates.
func New(lat, lon float64, opts ...Option) *Talk {
	t := &Talk{
		lat:     lat,
		lon:     lon,
		baseURL: weatherURL,
		client:  &http.Client{Timeout: weatherTimeout},
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Time phrases the given wall-clock time.
func (t *Talk) Time(now time.Time) string {
	return fmt.Sprintf("It is %s.", now.Format("3:04 PM"))
}

// weatherResponse is the subset of the Open-Meteo payload we read.
type weatherResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		Windspeed   float64 `json:"windspeed"`
		Weathercode int     `json:"weathercode"`
	} `json:"current_weather"`
}

// Weather fetches and phrases current conditions for the configured
// coordinates.
func (t *Talk) Weather(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&current_weather=true&temperature_unit=fahrenheit",
		t.baseURL, t.lat, t.lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("smalltalk: build weather request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("smalltalk: fetch weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("smalltalk: weather service returned %s", resp.Status)
	}

	var w weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return "", fmt.Errorf("smalltalk: decode weather: %w", err)
	}

	return fmt.Sprintf("It is currently %.0f degrees with %s.",
		w.CurrentWeather.Temperature,
		describeWeatherCode(w.CurrentWeather.Weathercode),
	), nil
}

// describeWeatherCode maps WMO weather codes to spoken descriptions.
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "clear skies"
	case code <= 3:
		return "some clouds"
	case code <= 48:
		return "fog"
	case code <= 57:
		return "drizzle"
	case code <= 67:
		return "rain"
	case code <= 77:
		return "snow"
	case code <= 82:
		return "rain showers"
	case code <= 86:
		return "snow showers"
	default:
		return "a thunderstorm"
	}
}

// jokes is the embedded joke list. Additions welcome; groans guaranteed.
var jokes = []string{
	"Why don't skeletons fight each other? They don't have the guts.",
	"I'm reading a book about anti-gravity. It's impossible to put down.",
	"What do you call a fish with no eyes? A fsh.",
	"Why did the scarecrow win an award? Because he was outstanding in his field.",
	"I used to hate facial hair, but then it grew on me.",
	"What do you call cheese that isn't yours? Nacho cheese.",
	"Why don't eggs tell jokes? They'd crack each other up.",
	"I only know 25 letters of the alphabet. I don't know y.",
	"What did the ocean say to the beach? Nothing, it just waved.",
	"Why did the bicycle fall over? Because it was two tired.",
}

// Joke returns one joke, uniformly chosen.
func (t *Talk) Joke() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return jokes[t.rng.Intn(len(jokes))]
}
