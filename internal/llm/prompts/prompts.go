package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/vidyavistaar/portal/internal/model"
)

// StruggleThreshold is the percentage below which a student is reported as struggling.
const StruggleThreshold = 60

const maxInputRunes = 10000

// Templates holds the built-in prompt templates.
//
//go:embed templates/*.tmpl
var Templates embed.FS

var userMessageRegex = regexp.MustCompile(`(?i)</?\s*(user-message|system-instructions)\b[^>]*>`)

var (
	loadOnce          sync.Once
	loadErr           error
	chatTemplate      *template.Template
	analysisTemplates map[model.Language]*template.Template
)

// ChatData holds template data for the tutoring system instruction.
type ChatData struct {
	Language string
	Subjects []string
	Careers  []string
	Refusal  string
	Teacher  bool
}

// AnalysisData holds template data for the report-analysis system instruction.
type AnalysisData struct {
	Threshold int
}

// Load parses prompt templates from fsys. It uses sync.Once to ensure
// templates are loaded only once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		funcs := template.FuncMap{"join": strings.Join}

		content, err := fs.ReadFile(fsys, "templates/chat.tmpl")
		if err != nil {
			loadErr = errors.New("failed to read prompt file chat.tmpl: " + err.Error())
			return
		}
		chatTemplate, err = template.New("chat").Funcs(funcs).Parse(string(content))
		if err != nil {
			loadErr = errors.New("failed to parse prompt template chat.tmpl: " + err.Error())
			return
		}

		analysisTemplates = make(map[model.Language]*template.Template)
		for _, lang := range []model.Language{model.LanguageEnglish, model.LanguagePunjabi} {
			file := "templates/analysis_" + string(lang) + ".tmpl"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = errors.New("failed to read prompt file " + file + ": " + err.Error())
				return
			}
			tmpl, err := template.New("analysis").Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
				return
			}
			analysisTemplates[lang] = tmpl
		}
	})
	return loadErr
}

// BuildChatPrompt builds the tutoring system instruction. data.Subjects and
// data.Careers are the closed set of topics the assistant may talk about.
func BuildChatPrompt(data ChatData) (string, error) {
	if chatTemplate == nil {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("templates not initialized: call Load first")
	}
	data.Subjects = dedupe(data.Subjects)
	var buf bytes.Buffer
	if err := chatTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildAnalysisPrompt builds the report-analysis system instruction for lang.
func BuildAnalysisPrompt(lang model.Language) (string, error) {
	if analysisTemplates == nil {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := analysisTemplates[lang]
	if !ok {
		return "", errors.New("unsupported analysis language: " + string(lang))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, AnalysisData{Threshold: StruggleThreshold}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WrapUserMessage sanitizes a chat turn and encloses it in <user-message> tags.
func WrapUserMessage(text string) string {
	return "<user-message>\n" + sanitizeInput(text) + "\n</user-message>"
}

func sanitizeInput(text string) string {
	text = userMessageRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if text == "" {
		return "[No message provided]"
	}

	if utf8.RuneCountInString(text) > maxInputRunes {
		runes := []rune(text)
		text = string(runes[:maxInputRunes]) + "\n\n[Message truncated due to length]"
	}
	return text
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
