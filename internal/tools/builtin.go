package tools

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"

	"github.com/Strob0t/ChatForge/internal/domain/chat"
)

// Built-in tool names.
const (
	ToolGetWeather    = "get_weather"
	ToolCreateSlides  = "create_slides"
	ToolGenerateImage = "generate_image"
	ToolSearchWeb     = "search_web"
)

// MaxSlides caps create_slides regardless of the requested count.
const MaxSlides = 10

// PlaceholderImageURL is returned by generate_image.
const PlaceholderImageURL = "https://images.pexels.com/photos/933054/pexels-photo-933054.jpeg?auto=compress&cs=tinysrgb&w=800"

var (
	weatherConditions = []string{"Sunny", "Cloudy", "Rainy", "Snowy", "Windy"}
	imageStyles       = []string{"realistic", "artistic", "cartoon", "abstract"}
)

// Rand is the randomness source for the stub tools.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Weather is the result of get_weather.
type Weather struct {
	Weather     string `json:"weather"`
	Temperature int    `json:"temperature"`
	City        string `json:"city"`
}

// Slide is a single generated slide.
type Slide struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SlideDeck is the result of create_slides.
type SlideDeck struct {
	Slides []Slide `json:"slides"`
}

// Image is the result of generate_image.
type Image struct {
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
	Style    string `json:"style"`
}

// SearchResult is a single synthesized search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchResults is the result of search_web.
type SearchResults struct {
	Results []SearchResult `json:"results"`
}

// Builtins implements the four stub tools. None performs I/O.
type Builtins struct {
	rng Rand
}

// NewBuiltins returns the stub tools using rng; nil uses math/rand/v2.
func NewBuiltins(rng Rand) *Builtins {
	if rng == nil {
		rng = globalRand{}
	}
	return &Builtins{rng: rng}
}

// GetWeather returns a pseudo-random condition and temperature for city.
func (b *Builtins) GetWeather(city string) Weather {
	return Weather{
		Weather:     weatherConditions[b.rng.IntN(len(weatherConditions))],
		Temperature: b.rng.IntN(30) + 5,
		City:        city,
	}
}

// CreateSlides returns min(count, MaxSlides) slides about topic.
func (b *Builtins) CreateSlides(topic string, count int) SlideDeck {
	n := min(count, MaxSlides)
	slides := make([]Slide, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		slides = append(slides, Slide{
			Title:   fmt.Sprintf("%s - Slide %d", topic, i),
			Content: fmt.Sprintf("This is the content for slide %d about %s. It includes key points and information relevant to the topic.", i, topic),
		})
	}
	return SlideDeck{Slides: slides}
}

// GenerateImage returns the placeholder image, echoing style when given.
func (b *Builtins) GenerateImage(prompt, style string) Image {
	if style == "" {
		style = imageStyles[b.rng.IntN(len(imageStyles))]
	}
	return Image{ImageURL: PlaceholderImageURL, Prompt: prompt, Style: style}
}

// SearchWeb returns three results synthesized from query.
func (b *Builtins) SearchWeb(query string) SearchResults {
	q := url.PathEscape(query)
	return SearchResults{Results: []SearchResult{
		{
			Title:   query + " - Overview",
			URL:     "https://example.com/search?q=" + q,
			Snippet: fmt.Sprintf("Comprehensive information about %s. Learn more about the latest developments and insights.", query),
		},
		{
			Title:   "Understanding " + query,
			URL:     "https://example.com/guide/" + q,
			Snippet: fmt.Sprintf("A detailed guide covering everything you need to know about %s.", query),
		},
		{
			Title:   query + " Best Practices",
			URL:     "https://example.com/best-practices/" + q,
			Snippet: fmt.Sprintf("Industry-standard best practices and recommendations for %s.", query),
		},
	}}
}

// Register adds the four built-in tools to r in catalog order.
func (b *Builtins) Register(r *Registry) error {
	builtins := []struct {
		def     chat.ToolDefinition
		handler Handler
	}{
		{
			def: chat.NewFunctionTool(ToolGetWeather,
				"Retrieve current weather information for a city. Use this when the user asks about weather conditions.",
				[]string{"city"},
				map[string]chat.Property{
					"city": {Type: "string", Description: "Name of the city to get weather for"},
				}),
			handler: func(_ context.Context, args map[string]any) (any, error) {
				return b.GetWeather(stringArg(args, "city")), nil
			},
		},
		{
			def: chat.NewFunctionTool(ToolCreateSlides,
				"Generate presentation slides on a given topic. Use this when the user wants to create a presentation or slides.",
				[]string{"topic", "slide_count"},
				map[string]chat.Property{
					"topic":       {Type: "string", Description: "The topic or subject for the slides"},
					"slide_count": {Type: "number", Description: "Number of slides to generate (max 10)"},
				}),
			handler: func(_ context.Context, args map[string]any) (any, error) {
				return b.CreateSlides(stringArg(args, "topic"), intArg(args, "slide_count")), nil
			},
		},
		{
			def: chat.NewFunctionTool(ToolGenerateImage,
				"Generate or find an image based on a text description. Use this when the user wants to create or see an image.",
				[]string{"prompt"},
				map[string]chat.Property{
					"prompt": {Type: "string", Description: "Description of the image to generate"},
					"style":  {Type: "string", Description: "Style of the image (realistic, artistic, cartoon, abstract)"},
				}),
			handler: func(_ context.Context, args map[string]any) (any, error) {
				return b.GenerateImage(stringArg(args, "prompt"), stringArg(args, "style")), nil
			},
		},
		{
			def: chat.NewFunctionTool(ToolSearchWeb,
				"Search the web for information on a topic. Use this when the user needs current information or research.",
				[]string{"query"},
				map[string]chat.Property{
					"query": {Type: "string", Description: "Search query or topic to research"},
				}),
			handler: func(_ context.Context, args map[string]any) (any, error) {
				return b.SearchWeb(stringArg(args, "query")), nil
			},
		},
	}

	for i := range builtins {
		if err := r.Register(builtins[i].def, builtins[i].handler); err != nil {
			return err
		}
	}
	return nil
}

// NewDefaultRegistry returns a registry holding the built-in tools.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	// Built-in names are unique, so registration cannot fail.
	_ = NewBuiltins(nil).Register(r)
	return r
}
