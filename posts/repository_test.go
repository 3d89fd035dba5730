package posts

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"golang.org/x/text/language"
)

func doc(title, date string, tags string, draft bool) *fstest.MapFile {
	src := "---\ntitle: " + title + "\ndate: " + date + "\n"
	if tags != "" {
		src += "tags: [" + tags + "]\n"
	}
	if draft {
		src += "draft: true\n"
	}
	src += "---\n# " + title + "\n\nBody of " + title + ".\n"
	return &fstest.MapFile{Data: []byte(src)}
}

func sampleFS() fstest.MapFS {
	return fstest.MapFS{
		"a.md":       doc("Alpha", "2024-01-01", "Go, Web", false),
		"b.md":       doc("Bravo", "2024-03-01", "TypeScript", false),
		"c.md":       doc("Charlie", "2024-02-01", "typescript, Go", false),
		"d.md":       doc("Delta", "2024-04-01", "Go", true),
		"notes.txt":  &fstest.MapFile{Data: []byte("not a post")},
		".hidden.md": doc("Hidden", "2024-05-01", "", false),
	}
}

func slugsOf(ps []Post) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Slug
	}
	return out
}

func equalSlugs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestListAllSortsByDateDescending(t *testing.T) {
	repo := NewRepository(sampleFS())
	got := slugsOf(repo.ListAll(context.Background(), Options{}))
	want := []string{"b", "c", "a"}
	if !equalSlugs(got, want) {
		t.Errorf("ListAll = %v, want %v", got, want)
	}
}

func TestListAllOptions(t *testing.T) {
	repo := NewRepository(sampleFS())
	ctx := context.Background()

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"include drafts", Options{IncludeDrafts: true}, []string{"d", "b", "c", "a"}},
		{"ascending", Options{Order: Asc}, []string{"a", "c", "b"}},
		{"limit", Options{Limit: 2}, []string{"b", "c"}},
		{"limit larger than corpus", Options{Limit: 10}, []string{"b", "c", "a"}},
		{"title", Options{SortBy: SortByTitle, Order: Asc}, []string{"a", "b", "c"}},
		{"title descending", Options{SortBy: SortByTitle}, []string{"c", "b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slugsOf(repo.ListAll(ctx, tt.opts))
			if !equalSlugs(got, tt.want) {
				t.Errorf("ListAll(%+v) = %v, want %v", tt.opts, got, tt.want)
			}
		})
	}
}

func TestListAllStableTies(t *testing.T) {
	fsys := fstest.MapFS{
		"m.md": doc("M", "2024-01-01", "", false),
		"k.md": doc("K", "2024-01-01", "", false),
		"z.md": doc("Z", "2024-01-01", "", false),
	}
	got := slugsOf(NewRepository(fsys, WithWorkers(3)).ListAll(context.Background(), Options{}))
	want := []string{"k", "m", "z"}
	if !equalSlugs(got, want) {
		t.Errorf("ties should keep directory order: got %v, want %v", got, want)
	}
}

func TestListAllDerivedFields(t *testing.T) {
	posts := NewRepository(sampleFS()).ListAll(context.Background(), Options{Limit: 1})
	if len(posts) != 1 {
		t.Fatalf("expected one post, got %d", len(posts))
	}
	p := posts[0]
	if p.FrontMatter.Title != "Bravo" {
		t.Errorf("Title = %q", p.FrontMatter.Title)
	}
	if p.ReadingTime != 1 {
		t.Errorf("ReadingTime = %d, want 1", p.ReadingTime)
	}
	if p.HTML == "" || p.Excerpt == "" {
		t.Errorf("HTML and Excerpt should be populated: %+v", p)
	}
	if !p.Published.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Published = %v", p.Published)
	}
	if len(p.TOC) != 1 || p.TOC[0].ID != "bravo" {
		t.Errorf("TOC = %#v", p.TOC)
	}
	if p.Link() != "/posts/b/" {
		t.Errorf("Link = %q", p.Link())
	}
}

func TestListAllMissingDirectory(t *testing.T) {
	repo := NewDirRepository("/nonexistent/mdblog/content")
	if got := repo.ListAll(context.Background(), Options{}); len(got) != 0 {
		t.Errorf("missing directory should yield no posts, got %v", slugsOf(got))
	}
}

type failingFS struct {
	fstest.MapFS
	broken string
}

func (f failingFS) Open(name string) (fs.File, error) {
	if name == f.broken {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return f.MapFS.Open(name)
}

func (f failingFS) ReadFile(name string) ([]byte, error) {
	if name == f.broken {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrPermission}
	}
	return f.MapFS.ReadFile(name)
}

func TestListAllSkipsUnreadable(t *testing.T) {
	var (
		mu      sync.Mutex
		skipped []string
	)
	fsys := failingFS{MapFS: sampleFS(), broken: "c.md"}
	repo := NewRepository(fsys, WithSkipHook(func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if !errors.Is(err, fs.ErrPermission) {
			t.Errorf("unexpected skip error: %v", err)
		}
		skipped = append(skipped, name)
	}))

	got := slugsOf(repo.ListAll(context.Background(), Options{}))
	if !equalSlugs(got, []string{"b", "a"}) {
		t.Errorf("ListAll = %v, want [b a]", got)
	}
	if len(skipped) != 1 || skipped[0] != "c.md" {
		t.Errorf("skipped = %v, want [c.md]", skipped)
	}
}

func TestListAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := NewRepository(sampleFS()).ListAll(ctx, Options{}); len(got) != 0 {
		t.Errorf("cancelled listing should be empty, got %v", slugsOf(got))
	}
}

func TestGetBySlug(t *testing.T) {
	ctx := context.Background()
	dev := NewRepository(sampleFS())
	prod := NewRepository(sampleFS(), WithBuildMode(Production))

	tests := []struct {
		name string
		repo *Repository
		slug string
		ok   bool
	}{
		{"published", dev, "a", true},
		{"draft in development", dev, "d", true},
		{"draft in production", prod, "d", false},
		{"published in production", prod, "b", true},
		{"nonexistent", dev, "nonexistent", false},
		{"traversal", dev, "../a", false},
		{"nested", dev, "x/a", false},
		{"hidden", dev, ".hidden", false},
		{"empty", dev, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := tt.repo.GetBySlug(ctx, tt.slug)
			if ok != tt.ok {
				t.Fatalf("GetBySlug(%q) ok = %v, want %v", tt.slug, ok, tt.ok)
			}
			if ok && p.Slug != tt.slug {
				t.Errorf("Slug = %q, want %q", p.Slug, tt.slug)
			}
		})
	}
}

func TestGetByTag(t *testing.T) {
	repo := NewRepository(sampleFS())
	ctx := context.Background()

	tests := []struct {
		tag  string
		want []string
	}{
		{"Go", []string{"c", "a"}},
		{"go", []string{"c", "a"}},
		{"typescript", []string{"b", "c"}},
		{"TYPESCRIPT", []string{"b", "c"}},
		{"web", []string{"a"}},
		{"rust", nil},
		{"  ", nil},
	}
	for _, tt := range tests {
		got := slugsOf(repo.GetByTag(ctx, tt.tag))
		if !equalSlugs(got, tt.want) {
			t.Errorf("GetByTag(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}

func TestGetByTagSlugForm(t *testing.T) {
	fsys := fstest.MapFS{
		"a.md": doc("A", "2024-01-01", "Machine Learning", false),
		"b.md": doc("B", "2024-01-02", "C++", false),
	}
	repo := NewRepository(fsys)
	if got := slugsOf(repo.GetByTag(context.Background(), "machine-learning")); !equalSlugs(got, []string{"a"}) {
		t.Errorf("slug lookup = %v, want [a]", got)
	}
	if got := slugsOf(repo.GetByTag(context.Background(), "c++")); !equalSlugs(got, []string{"b"}) {
		t.Errorf("name lookup = %v, want [b]", got)
	}
}

func TestGetAdjacent(t *testing.T) {
	repo := NewRepository(sampleFS())
	ctx := context.Background()

	tests := []struct {
		slug       string
		prev, next string
	}{
		{"b", "", "c"},
		{"c", "b", "a"},
		{"a", "c", ""},
		{"d", "", ""},
		{"missing", "", ""},
	}
	for _, tt := range tests {
		prev, next := repo.GetAdjacent(ctx, tt.slug)
		if got := slugOrEmpty(prev); got != tt.prev {
			t.Errorf("GetAdjacent(%q) prev = %q, want %q", tt.slug, got, tt.prev)
		}
		if got := slugOrEmpty(next); got != tt.next {
			t.Errorf("GetAdjacent(%q) next = %q, want %q", tt.slug, got, tt.next)
		}
	}
}

func slugOrEmpty(p *Post) string {
	if p == nil {
		return ""
	}
	return p.Slug
}

func TestRecentAndSlugs(t *testing.T) {
	fsys := fstest.MapFS{}
	for i, d := range []string{"01", "02", "03", "04", "05", "06", "07"} {
		name := string(rune('a'+i)) + ".md"
		fsys[name] = doc("Post "+d, "2024-01-"+d, "", false)
	}
	repo := NewRepository(fsys)
	ctx := context.Background()

	if got := slugsOf(repo.Recent(ctx, 0)); !equalSlugs(got, []string{"g", "f", "e", "d", "c"}) {
		t.Errorf("Recent(0) = %v", got)
	}
	if got := slugsOf(repo.Recent(ctx, 2)); !equalSlugs(got, []string{"g", "f"}) {
		t.Errorf("Recent(2) = %v", got)
	}
	if got := repo.Slugs(ctx); len(got) != 7 {
		t.Errorf("Slugs = %v, want 7 entries", got)
	}
}

func TestParseBuildMode(t *testing.T) {
	tests := []struct {
		in   string
		want BuildMode
	}{
		{"production", Production},
		{"PROD", Production},
		{" production ", Production},
		{"development", Development},
		{"", Development},
		{"staging", Development},
	}
	for _, tt := range tests {
		if got := ParseBuildMode(tt.in); got != tt.want {
			t.Errorf("ParseBuildMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestQuotedDraftStaysHidden(t *testing.T) {
	fsys := fstest.MapFS{
		"secret.md": &fstest.MapFile{Data: []byte("---\ntitle: Secret plans\ndate: 2024-01-01\ntags: [go]\ndraft: \"true\"\n---\nbody\n")},
		"public.md": doc("Public", "2024-01-02", "go", false),
	}
	repo := NewRepository(fsys, WithBuildMode(Production))
	ctx := context.Background()

	if got := slugsOf(repo.ListAll(ctx, Options{})); !equalSlugs(got, []string{"public"}) {
		t.Errorf("ListAll = %v, want [public]", got)
	}
	if _, ok := repo.GetBySlug(ctx, "secret"); ok {
		t.Error("a quoted draft flag must hide the post in production")
	}
	all := repo.ListAll(ctx, Options{IncludeDrafts: true})
	for _, p := range all {
		if p.Slug == "secret" && (p.FrontMatter.Title != "Secret plans" || !p.FrontMatter.Draft) {
			t.Errorf("secret front matter = %+v", p.FrontMatter)
		}
	}
}

func TestListedSlugsResolve(t *testing.T) {
	fsys := fstest.MapFS{
		"lower.md": doc("Lower", "2024-01-01", "", false),
		"Upper.MD": doc("Upper", "2024-01-02", "", false),
		"Mixed.md": doc("Mixed", "2024-01-03", "", false),
	}
	repo := NewRepository(fsys)
	ctx := context.Background()

	listed := repo.ListAll(ctx, Options{})
	if got := slugsOf(listed); !equalSlugs(got, []string{"Mixed", "lower"}) {
		t.Errorf("ListAll = %v, want [Mixed lower]", got)
	}
	for _, p := range listed {
		if _, ok := repo.GetBySlug(ctx, p.Slug); !ok {
			t.Errorf("listed slug %q does not resolve", p.Slug)
		}
	}

	repo = NewRepository(fsys, WithExtensions(".md", ".MD"))
	if got := slugsOf(repo.ListAll(ctx, Options{})); len(got) != 3 {
		t.Fatalf("ListAll with .MD = %v, want 3 posts", got)
	}
	if p, ok := repo.GetBySlug(ctx, "Upper"); !ok || p.FrontMatter.Title != "Upper" {
		t.Errorf("GetBySlug(Upper) = %+v, %v", p.FrontMatter, ok)
	}
}

func TestWithClockDefaultsMissingDate(t *testing.T) {
	fsys := fstest.MapFS{
		"undated.md": &fstest.MapFile{Data: []byte("---\ntitle: Undated\n---\nbody\n")},
	}
	clock := func() time.Time { return time.Date(2023, 7, 14, 9, 30, 0, 0, time.UTC) }
	repo := NewRepository(fsys, WithClock(clock))

	p, ok := repo.GetBySlug(context.Background(), "undated")
	if !ok {
		t.Fatal("undated post not found")
	}
	if p.FrontMatter.Date != "2023-07-14" {
		t.Errorf("Date = %q, want the clock's date", p.FrontMatter.Date)
	}
	if !p.Published.Equal(time.Date(2023, 7, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Published = %v", p.Published)
	}
}

func TestWithLocaleTitleOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"apa.md":   doc("Apa", "2024-01-01", "", false),
		"apple.md": doc("Äpple", "2024-01-02", "", false),
		"zebra.md": doc("Zebra", "2024-01-03", "", false),
	}
	opts := Options{SortBy: SortByTitle, Order: Asc}
	ctx := context.Background()

	tests := []struct {
		locale language.Tag
		want   []string
	}{
		{language.English, []string{"apa", "apple", "zebra"}},
		{language.Swedish, []string{"apa", "zebra", "apple"}},
	}
	for _, tt := range tests {
		repo := NewRepository(fsys, WithLocale(tt.locale))
		if got := slugsOf(repo.ListAll(ctx, opts)); !equalSlugs(got, tt.want) {
			t.Errorf("%v: order = %v, want %v", tt.locale, got, tt.want)
		}
	}
}

func TestMode(t *testing.T) {
	if m := NewRepository(fstest.MapFS{}).Mode(); m != Development {
		t.Errorf("default mode = %v, want development", m)
	}
	if m := NewRepository(fstest.MapFS{}, WithBuildMode(Production)).Mode(); m != Production {
		t.Errorf("mode = %v, want production", m)
	}
}

func TestAdjacent(t *testing.T) {
	list := []Post{{Slug: "x"}, {Slug: "y"}, {Slug: "z"}}
	prev, next := Adjacent(list, "y")
	if slugOrEmpty(prev) != "x" || slugOrEmpty(next) != "z" {
		t.Errorf("Adjacent(y) = %q, %q", slugOrEmpty(prev), slugOrEmpty(next))
	}
	if prev, next := Adjacent(nil, "y"); prev != nil || next != nil {
		t.Error("Adjacent on an empty list should return nils")
	}
}
