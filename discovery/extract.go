package discovery

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/mostwanted/logging"
	"github.com/pevans/mostwanted/persons"
	"github.com/pevans/mostwanted/scraper"
)

// SplitName splits a full name at its last space. Everything before the
// space is the first name and the rest is the last name, so "Jane Q Doe"
// gives ("Jane Q", "Doe"). A surname containing spaces is not kept together.
// A name without a space is returned entirely as the last name. Both parts
// are trimmed, so "Jane  Doe" gives ("Jane", "Doe").
func SplitName(fullName string) (first, last string) {
	fullName = strings.TrimSpace(fullName)

	idx := strings.LastIndex(fullName, " ")
	if idx < 0 {
		return "", fullName
	}

	return strings.TrimSpace(fullName[:idx]), strings.TrimSpace(fullName[idx:])
}

// LabelKey turns a label such as "Place of Birth:" into "place_of_birth".
// Surrounding whitespace and colons are removed first.
func LabelKey(label string) string {
	key := strings.TrimFunc(label, func(r rune) bool {
		return unicode.IsSpace(r) || r == ':'
	})
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, " ", "_")
}

// DecodeSpanPairs reads the span elements under sel in document order as
// label, value, label, value... A trailing label without a value is dropped.
// When a label repeats, the later value wins.
func DecodeSpanPairs(sel *goquery.Selection, pairSelector string, logger *slog.Logger) map[string]string {
	logger = logging.OrDiscard(logger)
	if pairSelector == "" {
		pairSelector = "span"
	}

	nodes := sel.Find(pairSelector)
	pairs := make(map[string]string, nodes.Length()/2)

	for i := 0; i+1 < nodes.Length(); i += 2 {
		key := LabelKey(nodes.Eq(i).Text())
		pairs[key] = strings.TrimSpace(nodes.Eq(i + 1).Text())
	}

	if nodes.Length()%2 == 1 {
		label := nodes.Last().Text()
		logger.Debug("dropping unpaired label", "label", LabelKey(label))
	}

	return pairs
}

// ExtractPerson extracts a person from a parsed detail page. Every
// configured element must be present; a missing one fails the whole page
// with an *ExtractionError.
func ExtractPerson(doc *goquery.Document, pageURL string, cfg scraper.DetailConfig, logger *slog.Logger) (*persons.Person, error) {
	logger = logging.OrDiscard(logger)

	fail := func(err error) (*persons.Person, error) {
		return nil, &ExtractionError{URL: pageURL, Err: err}
	}

	container := doc.Find(cfg.ContainerSelector).First()
	if container.Length() == 0 {
		return fail(notFound(cfg.ContainerSelector))
	}

	headline := container.Find(cfg.HeadlineSelector).First()
	if headline.Length() == 0 {
		return fail(notFound(cfg.HeadlineSelector))
	}

	fullName := strings.TrimSpace(headline.Text())
	first, last := SplitName(fullName)
	if first == "" {
		logger.Warn("name has a single token, storing it as last name", "url", pageURL, "name", fullName)
	}

	body := container.Find(cfg.BodySelector).First()
	if body.Length() == 0 {
		return fail(notFound(cfg.BodySelector))
	}

	person := &persons.Person{
		Firstname: first,
		Lastname:  last,
		General:   strings.TrimSpace(body.Text()),
	}

	for _, group := range cfg.Groups {
		column := container.Find(group.Selector).First()
		if column.Length() == 0 {
			return fail(notFound(group.Selector))
		}

		pairs := DecodeSpanPairs(column, cfg.PairSelector, logger.With("url", pageURL, "group", group.Name))

		switch group.Name {
		case scraper.GroupCrime:
			person.Crime = pairs
		case scraper.GroupAbout:
			person.About = pairs
		case scraper.GroupOther:
			person.Other = pairs
		default:
			return fail(fmt.Errorf("%w %q", scraper.ErrUnknownGroup, group.Name))
		}
	}

	// Groups left out of the config still serialize as objects.
	if person.Crime == nil {
		person.Crime = map[string]string{}
	}
	if person.About == nil {
		person.About = map[string]string{}
	}
	if person.Other == nil {
		person.Other = map[string]string{}
	}

	return person, nil
}
