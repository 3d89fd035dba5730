package markdown

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
)

// DefaultTitle is used when a document declares no title.
const DefaultTitle = "Untitled"

// DateLayout is the date-only ISO 8601 layout used for publication dates.
const DateLayout = "2006-01-02"

// FrontMatter is the metadata block at the top of a post.
type FrontMatter struct {
	Title       string
	Date        string
	Updated     string
	Tags        []string
	Description string
	Image       string
	Draft       bool
	Author      string
}

// PublishedAt parses Date. The second return value is false when the date
// is in none of the supported layouts.
func (fm FrontMatter) PublishedAt() (time.Time, bool) {
	return ParseDate(fm.Date)
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
}

// ParseDate parses a front matter date in any of the accepted layouts.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Parser splits documents into front matter and body. The zero value is
// ready to use and takes today's date from the system clock.
type Parser struct {
	// Now supplies the date used when a document has none.
	Now func() time.Time
}

// ParseFrontMatter parses source with a zero Parser.
func ParseFrontMatter(source string) (FrontMatter, string) {
	return Parser{}.Parse(source)
}

// Parse extracts the leading metadata block from source and returns it with
// defaults applied, together with the remaining body. It never fails: each
// field that is missing or of the wrong type gets its default on its own,
// and when the block cannot be decoded at all every field is defaulted and
// the block, if any, is stripped from the body.
func (p Parser) Parse(source string) (FrontMatter, string) {
	var meta map[string]any
	rest, err := frontmatter.Parse(strings.NewReader(source), &meta)
	body := string(rest)
	if err != nil {
		meta = nil
		body = stripMetadataBlock(source)
	}

	fm := FrontMatter{
		Title:       strings.TrimSpace(stringField(meta, "title")),
		Date:        strings.TrimSpace(dateField(meta, "date")),
		Updated:     strings.TrimSpace(dateField(meta, "updated")),
		Tags:        cleanTags(tagsField(meta, "tags")),
		Description: stringField(meta, "description"),
		Image:       strings.TrimSpace(stringField(meta, "image")),
		Draft:       boolField(meta, "draft"),
		Author:      strings.TrimSpace(stringField(meta, "author")),
	}
	if fm.Title == "" {
		fm.Title = DefaultTitle
	}
	if fm.Date == "" {
		fm.Date = p.now().UTC().Format(DateLayout)
	}
	return fm, body
}

func (p Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// scalar formats strings, numbers and booleans. Lists, maps and nulls are
// not scalars.
func scalar(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(val), true
	case time.Time:
		return formatDate(val), true
	}
	return "", false
}

func stringField(meta map[string]any, key string) string {
	s, _ := scalar(meta[key])
	return s
}

// dateField accepts dates written as plain strings or as native YAML/TOML
// timestamps.
func dateField(meta map[string]any, key string) string {
	switch val := meta[key].(type) {
	case string:
		return val
	case time.Time:
		return formatDate(val)
	}
	return ""
}

// tagsField accepts either a list of tags or a single comma separated
// string. Entries that are not scalars are dropped.
func tagsField(meta map[string]any, key string) []string {
	switch val := meta[key].(type) {
	case string:
		return strings.Split(val, ",")
	case []any:
		tags := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := scalar(item); ok {
				tags = append(tags, s)
			}
		}
		return tags
	}
	return nil
}

// boolField reads a flag written as a boolean, a number or a string. Any
// non-empty string that is not a recognised false value counts as set.
func boolField(meta map[string]any, key string) bool {
	switch val := meta[key].(type) {
	case bool:
		return val
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case string:
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "", "no", "off":
			return false
		case "yes", "on":
			return true
		}
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
		return true
	}
	return false
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DateLayout)
	}
	return t.Format(time.RFC3339)
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

var metadataDelimiters = []string{"---", "+++", ";;;"}

// stripMetadataBlock drops a leading delimited block whose contents could
// not be decoded. Sources without a closed block are returned unchanged.
func stripMetadataBlock(source string) string {
	lines := strings.SplitAfter(source, "\n")
	open := strings.TrimSpace(lines[0])
	delim := ""
	for _, d := range metadataDelimiters {
		if strings.HasPrefix(open, d) {
			delim = d
			break
		}
	}
	if delim == "" {
		return source
	}
	offset := len(lines[0])
	for _, line := range lines[1:] {
		offset += len(line)
		if strings.TrimSpace(line) == delim {
			return source[offset:]
		}
	}
	return source
}
