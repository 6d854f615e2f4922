// Package extract derives skill names from free text and source metadata.
package extract

import (
	"regexp"
	"sort"
	"strings"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
)

// DefaultKeywords is the recognized technology vocabulary.
var DefaultKeywords = []string{
	"python", "javascript", "typescript", "react", "vue", "angular",
	"node", "nodejs", "express", "django", "flask", "fastapi",
	"java", "spring", "kotlin", "scala", "go", "rust",
	"aws", "azure", "gcp", "docker", "kubernetes", "terraform",
	"sql", "mysql", "postgresql", "mongodb", "redis", "elasticsearch",
	"html", "css", "sass", "tailwind", "bootstrap",
	"git", "github", "gitlab", "jenkins", "circleci", "travis",
	"machine learning", "deep learning", "ai", "data science",
	"tensorflow", "pytorch", "keras", "scikit-learn", "pandas", "numpy",
	"rest", "graphql", "grpc", "websocket", "oauth", "jwt",
}

type keyword struct {
	name string
	re   *regexp.Regexp
}

type Extractor struct {
	keywords []keyword
}

// New compiles a matcher per keyword. Keywords match on word boundaries, so
// "go" is found in "written in go" but not in "google".
func New(keywords ...string) *Extractor {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	seen := map[string]struct{}{}
	e := &Extractor{}
	for _, k := range keywords {
		k = types.NormalizeSkill(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		e.keywords = append(e.keywords, keyword{
			name: k,
			re:   regexp.MustCompile(`(?:^|[^a-z0-9+#])` + regexp.QuoteMeta(k) + `(?:$|[^a-z0-9+#])`),
		})
	}
	return e
}

// Text returns the sorted keywords found in text.
func (e *Extractor) Text(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(text)
	set := map[string]struct{}{}
	for _, k := range e.keywords {
		if k.re.MatchString(lower) {
			set[k.name] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Repository combines a repository's primary language, its topics and the
// keywords of its description. Language and topics are taken as-is even
// when they are not in the vocabulary.
func (e *Extractor) Repository(language string, topics []string, description string) []string {
	set := map[string]struct{}{}
	add := func(s string) {
		if n := types.NormalizeSkill(s); n != "" {
			set[n] = struct{}{}
		}
	}
	add(language)
	for _, t := range topics {
		add(t)
	}
	for _, s := range e.Text(description) {
		set[s] = struct{}{}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
