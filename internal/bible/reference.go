package bible

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// DefaultSimilarityThreshold is the minimum fuzzy score (exclusive) a misspelled
// book name must reach before it is accepted.
const DefaultSimilarityThreshold = 0.6

// ErrParse is wrapped by every ParseError.
var ErrParse = errors.New("invalid scripture reference")

// ParseError describes why a reference could not be resolved.
type ParseError struct {
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse reference %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrParse
}

// Is lets errors.Is(err, ErrParse) match even when a lower-level cause is attached.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Reference is a resolved (book, chapter, verse) triple. Verse is 0 when the
// reference points at a whole chapter.
type Reference struct {
	Book    BookID `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse,omitempty"`
}

// HasVerse reports whether the reference names a single verse.
func (r Reference) HasVerse() bool {
	return r.Verse > 0
}

func (r Reference) String() string {
	if r.Verse > 0 {
		return fmt.Sprintf("%s %d:%d", r.Book.Name(), r.Chapter, r.Verse)
	}
	return fmt.Sprintf("%s %d", r.Book.Name(), r.Chapter)
}

// locator is the chapter/verse tail of a reference: "3", "3:16", "3 16", "3:16-18".
type locator struct {
	Chapter  int  `@Number`
	Verse    *int `( ":"? @Number`
	VerseEnd *int `  ( "-" @Number )? )?`
}

var locatorLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `\d+`},
	{Name: "Punct", Pattern: `[:\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var locatorParser = participle.MustBuild[locator](
	participle.Lexer(locatorLexer),
	participle.Elide("Whitespace"),
)

// Parser resolves free-form references. The zero value is not usable; use
// NewParser or the package-level ParseReference.
type Parser struct {
	// Threshold is the exclusive lower bound on the fuzzy score, in [0,1].
	Threshold float64
	metric    strutil.StringMetric
}

// NewParser returns a parser with the given similarity threshold.
func NewParser(threshold float64) *Parser {
	return &Parser{
		Threshold: threshold,
		metric:    metrics.NewLevenshtein(),
	}
}

var defaultParser = NewParser(DefaultSimilarityThreshold)

// ParseReference resolves raw text such as "John 3:16", "jhn 3 16" or
// "mathew 1 15" using the default similarity threshold.
func ParseReference(raw string) (Reference, error) {
	return defaultParser.Parse(raw)
}

// Parse resolves raw into a Reference.
func (p *Parser) Parse(raw string) (Reference, error) {
	tokens := tokenize(raw)

	boundary := -1
	for i, tok := range tokens {
		if !isNumericToken(tok) {
			continue
		}
		// "1 john 3:16": a leading ordinal belongs to the book name
		if i == 0 && isOrdinal(tok) && len(tokens) > 1 && !isNumericToken(tokens[1]) {
			continue
		}
		boundary = i
		break
	}
	if boundary < 0 {
		return Reference{}, &ParseError{Input: raw, Reason: "no chapter number"}
	}
	if boundary == 0 {
		return Reference{}, &ParseError{Input: raw, Reason: "empty book name"}
	}

	bookText := strings.Join(tokens[:boundary], " ")
	id, ok := p.resolveBook(bookText)
	if !ok {
		return Reference{}, &ParseError{Input: raw, Reason: fmt.Sprintf("unknown book %q", bookText)}
	}

	loc, err := locatorParser.ParseString("", strings.Join(tokens[boundary:], " "))
	if err != nil {
		return Reference{}, &ParseError{Input: raw, Reason: "invalid chapter or verse", Err: err}
	}

	book, _ := BookByID(id)
	if loc.Chapter < 1 || loc.Chapter > book.Chapters {
		return Reference{}, &ParseError{
			Input:  raw,
			Reason: fmt.Sprintf("chapter %d out of range for %s (1-%d)", loc.Chapter, book.Name, book.Chapters),
		}
	}
	ref := Reference{Book: id, Chapter: loc.Chapter}
	if loc.Verse != nil {
		if *loc.Verse < 1 {
			return Reference{}, &ParseError{Input: raw, Reason: "verse must be positive"}
		}
		ref.Verse = *loc.Verse
	}
	return ref, nil
}

func (p *Parser) resolveBook(text string) (BookID, bool) {
	if id, ok := aliases[text]; ok {
		return id, true
	}
	compact := strings.ReplaceAll(text, " ", "")
	if id, ok := aliases[compact]; ok {
		return id, true
	}
	return p.closestBook(text)
}

// closestBook returns the alias with the highest similarity to text, provided it
// beats the threshold. Ties keep the first candidate in sorted order.
func (p *Parser) closestBook(text string) (BookID, bool) {
	best, bestScore := "", 0.0
	for _, candidate := range aliasKeys {
		score := strutil.Similarity(text, candidate, p.metric)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if best == "" || bestScore <= p.Threshold {
		return 0, false
	}
	return aliases[best], true
}

// tokenize lowercases raw, keeps ':' and '-', turns '.' and ',' into separators
// ("Gen.1.1", "John 3,16") and drops any other punctuation.
func tokenize(raw string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ':', r == '-':
			b.WriteRune(r)
		case r == '–' || r == '—':
			b.WriteRune('-')
		case unicode.IsSpace(r), r == '.', r == ',':
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

func isNumericToken(tok string) bool {
	digits := 0
	for _, r := range tok {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ':' || r == '-':
		default:
			return false
		}
	}
	return digits > 0
}

func isOrdinal(tok string) bool {
	return tok == "1" || tok == "2" || tok == "3"
}
