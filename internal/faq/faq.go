// Package faq serves preconfigured answers loaded from a plain-text
// file of "pregunta: respuesta" lines. Lookup tries an exact
// (accent-folded) match first and falls back to BM25 keyword scoring,
// so close paraphrases still hit the canned answer instead of costing
// a completion call.
package faq

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/crawlab-team/bm25"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gesin-frd/srat-assistant-go/internal/logger"
	"github.com/gesin-frd/srat-assistant-go/internal/metrics"
)

// Entry is one question/answer pair.
type Entry struct {
	Question string
	Answer   string
}

// Store holds the loaded entries and their BM25 index.
type Store struct {
	entries   []Entry
	byFolded  map[string]int
	bm25Okapi *bm25.BM25Okapi
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func fold(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	folded, _, err := transform.String(foldTransformer, lowered)
	if err != nil {
		return lowered
	}
	return folded
}

// stopwords are Spanish function words (accent-folded) excluded from
// BM25 scoring, so only content words can produce a positive score.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"a al ante como con cual cuando de del donde el ella ellas ellos en es ese esta este esto " +
			"hay la las le les lo los me mi mis muy no nos o para pero por que se si sin sobre " +
			"su sus te tu tus un una unas unos y yo") {
		stopwords[w] = struct{}{}
	}
}

// tokenize splits folded text into alphanumeric word tokens, dropping
// stopwords.
func tokenize(s string) []string {
	words := strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := words[:0]
	for _, w := range words {
		if _, ok := stopwords[w]; !ok {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// Load reads a "pregunta: respuesta" file and builds the store.
// A missing path yields an empty store, not an error: the FAQ is an
// optional shortcut, never a requirement.
func Load(path string, log *logger.Logger, m *metrics.Metrics) (*Store, error) {
	s := &Store{
		byFolded: make(map[string]int),
		logger:   log,
		metrics:  m,
	}

	if path == "" {
		return s, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			if log != nil {
				log.WithField("path", path).Info("FAQ file not found, canned answers disabled")
			}
			return s, nil
		}
		return nil, fmt.Errorf("opening FAQ file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		question, answer, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		question = strings.TrimSpace(question)
		answer = strings.TrimSpace(answer)
		if question == "" || answer == "" {
			continue
		}
		s.byFolded[fold(question)] = len(s.entries)
		s.entries = append(s.entries, Entry{Question: question, Answer: answer})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading FAQ file: %w", err)
	}

	if len(s.entries) > 0 {
		corpus := make([]string, len(s.entries))
		for i, e := range s.entries {
			corpus[i] = e.Question
		}
		// k1=1.5, b=0.75 are standard BM25 parameters
		okapi, err := bm25.NewBM25Okapi(corpus, tokenize, 1.5, 0.75, nil)
		if err != nil {
			return nil, fmt.Errorf("building FAQ index: %w", err)
		}
		s.bm25Okapi = okapi
	}

	if log != nil {
		log.WithField("entries", len(s.entries)).Info("FAQ store loaded")
	}
	return s, nil
}

// Len returns the number of loaded entries.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Match returns the canned answer for a message, if one applies.
func (s *Store) Match(message string) (string, bool) {
	if s == nil || len(s.entries) == 0 {
		return "", false
	}

	// Exact match on the folded question
	if i, ok := s.byFolded[fold(message)]; ok {
		s.record("exact")
		return s.entries[i].Answer, true
	}

	if s.bm25Okapi == nil {
		s.record("miss")
		return "", false
	}

	tokens := tokenize(message)
	if len(tokens) == 0 {
		s.record("miss")
		return "", false
	}

	scores, err := s.bm25Okapi.GetScores(tokens)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("FAQ scoring failed")
		}
		s.record("miss")
		return "", false
	}

	type scored struct {
		idx   int
		score float64
	}
	var ranked []scored
	for i, score := range scores {
		if score > 0 {
			ranked = append(ranked, scored{idx: i, score: score})
		}
	}
	if len(ranked) == 0 {
		s.record("miss")
		return "", false
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	s.record("fuzzy")
	return s.entries[ranked[0].idx].Answer, true
}

func (s *Store) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordFAQLookup(result)
	}
}
