// Package render builds social post text for syndicated answers.
package render

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

const (
	templateCount = 5
	hookCount     = 4

	// PreviewLength is the number of answer runes quoted in a post.
	PreviewLength = 100
	ellipsis      = "…"
)

// Overrides replaces the catalog templates or hooks. Empty lists keep the
// catalog values.
type Overrides struct {
	Templates []string `yaml:"templates"`
	Hooks     []string `yaml:"hooks"`
}

// LoadOverrides reads template overrides from a YAML file.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, fmt.Errorf("read templates: %w", err)
	}
	var overrides Overrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return Overrides{}, fmt.Errorf("parse templates: %w", err)
	}
	for i, tmpl := range overrides.Templates {
		if strings.TrimSpace(tmpl) == "" {
			return Overrides{}, fmt.Errorf("template %d is empty", i+1)
		}
	}
	return overrides, nil
}

// Config configures a Renderer.
type Config struct {
	// Language selects the catalog, e.g. "en" or "pt-BR".
	Language string
	// BaseURL is the public site root used for answer links.
	BaseURL   string
	Overrides Overrides
	// Pick returns an index in [0, n). Defaults to a uniform random choice.
	Pick func(n int) int
}

// Renderer fills a randomly chosen template for each post.
type Renderer struct {
	templates      []string
	hooks          []string
	expertFallback string
	baseURL        string
	pick           func(n int) int
}

// New builds a renderer from the language catalog and overrides.
func New(cfg Config) (*Renderer, error) {
	tag := language.English
	if raw := strings.TrimSpace(cfg.Language); raw != "" {
		parsed, err := language.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse language %q: %w", raw, err)
		}
		tag = parsed
	}
	printer := message.NewPrinter(tag)

	templates := cfg.Overrides.Templates
	if len(templates) == 0 {
		templates = catalogEntries(printer, "social.template.", templateCount)
	}
	hooks := cfg.Overrides.Hooks
	if len(hooks) == 0 {
		hooks = catalogEntries(printer, "social.hook.", hookCount)
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("no post templates for language %s", tag)
	}
	if len(hooks) == 0 {
		hooks = []string{""}
	}

	pick := cfg.Pick
	if pick == nil {
		pick = rand.IntN
	}
	return &Renderer{
		templates:      templates,
		hooks:          hooks,
		expertFallback: localizeWithFallback(printer, "social.expert.fallback", "one of our experts"),
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		pick:           pick,
	}, nil
}

// Render fills one template with the question, expert, preview, and link.
func (r *Renderer) Render(answer domain.Answer, subject domain.Subject) (string, error) {
	if r == nil || len(r.templates) == 0 {
		return "", fmt.Errorf("renderer is not configured")
	}
	expertName := strings.TrimSpace(subject.Expert.DisplayName)
	if expertName == "" {
		expertName = r.expertFallback
	}
	replacer := strings.NewReplacer(
		"{hook}", r.hooks[r.pick(len(r.hooks))],
		"{question}", strings.TrimSpace(subject.Question.Title),
		"{expertName}", expertName,
		"{answerPreview}", Preview(answer.Content),
		"{url}", r.QuestionURL(subject.Question),
	)
	return replacer.Replace(r.templates[r.pick(len(r.templates))]), nil
}

// QuestionURL links to the question page, by slug when one is set.
func (r *Renderer) QuestionURL(question domain.Question) string {
	ref := strings.TrimSpace(question.Slug)
	if ref == "" {
		ref = question.ID
	}
	return r.baseURL + "/questions/" + url.PathEscape(ref)
}

// Preview returns the first PreviewLength runes of the trimmed content,
// followed by an ellipsis when content was cut. Inner line breaks are kept.
func Preview(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= PreviewLength {
		return content
	}
	runes := []rune(content)
	return strings.TrimRightFunc(string(runes[:PreviewLength]), unicode.IsSpace) + ellipsis
}

func catalogEntries(printer *message.Printer, prefix string, count int) []string {
	entries := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		key := prefix + strconv.Itoa(i)
		if value := printer.Sprintf(key); value != key {
			entries = append(entries, value)
		}
	}
	return entries
}

func localizeWithFallback(printer *message.Printer, key string, fallback string) string {
	value := printer.Sprintf(key)
	if value == key {
		return fallback
	}
	return value
}
