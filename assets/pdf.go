package assets

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/sync/errgroup"
)

// parsePDFRef splits "deck.pdf#3" into the file and a 1-based page. A
// missing page is returned as 0.
func parsePDFRef(ref string) (string, int, error) {
	file, frag, ok := strings.Cut(ref, "#")
	if file == "" {
		return "", 0, fmt.Errorf("pdf reference %q has no file", ref)
	}
	if !ok {
		return file, 0, nil
	}
	page, err := strconv.Atoi(frag)
	if err != nil || page < 1 {
		return "", 0, fmt.Errorf("pdf reference %q: page must be a positive number", ref)
	}
	return file, page, nil
}

// pdfPage renders one 1-based page.
func (l *Loader) pdfPage(path string, page int) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	if n := doc.NumPage(); page > n {
		return nil, fmt.Errorf("%s has %d pages, page %d requested", path, n, page)
	}
	img, err := doc.ImageDPI(page-1, float64(l.dpi))
	if err != nil {
		return nil, fmt.Errorf("render %s page %d: %w", path, page, err)
	}
	l.logger.Debug("pdf page rendered", "path", path, "page", page, "dpi", l.dpi)
	return img, nil
}

// pdfPages renders every page in parallel. Documents are not safe for
// concurrent use, so each worker opens its own.
func (l *Loader) pdfPages(ctx context.Context, path string) ([]image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	n := doc.NumPage()
	doc.Close()
	if n == 0 {
		return nil, fmt.Errorf("%s has no pages", path)
	}

	pages := make([]image.Image, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := l.pdfPage(path, i+1)
			if err != nil {
				return err
			}
			pages[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}
