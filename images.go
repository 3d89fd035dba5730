package mdblog

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// CoverImage describes a post's cover image for the page template.
type CoverImage struct {
	URL    string
	Alt    string
	Width  int
	Height int
	Format string
}

// coverImage resolves the post image reference. Remote images are returned
// without dimensions. Local images are looked up under the static directory
// and their dimensions read from the file header; a local image that cannot
// be read yields nil.
func (a *App) coverImage(ref, alt string) *CoverImage {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return &CoverImage{URL: ref, Alt: alt}
	}
	name := strings.TrimPrefix(path.Clean("/"+ref), "/")
	name = strings.TrimPrefix(name, "public/")
	cover, err := readCover(os.DirFS(a.Config.StaticDir), name)
	if err != nil {
		a.Logger.Warn().Err(err).Str("image", ref).Msg("cover image unavailable")
		return nil
	}
	cover.Alt = alt
	return cover
}

// readCover decodes the dimensions of the image stored at name in fsys.
func readCover(fsys fs.FS, name string) (*CoverImage, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid image path %q", name)
	}
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}
	return &CoverImage{
		URL:    "/public/" + name,
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}, nil
}
