package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const pageExtractTimeout = 10 * time.Second

type rawPage struct {
	Number  int
	Content string
}

func extractPDF(path string) ([]rawPage, error) {
	logger.Debug("extractPDF", "attempting extraction", path)
	f, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []rawPage
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			logger.Debug("extractPDF", "page value is null", i)
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// one bad page should not lose the rest of the document
			logger.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}

		pages = append(pages, rawPage{
			Number:  i,
			Content: content,
		})
	}
	return pages, nil
}

// extractDocx reads a .docx (or .odt/.rtf) file through cat.
func extractDocx(path string) ([]rawPage, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract docx: %w", err)
	}
	return []rawPage{{Number: 1, Content: text}}, nil
}

func extractPlain(path string) ([]rawPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []rawPage{{Number: 1, Content: decodeText(data)}}, nil
}

// extractHTML keeps the visible text of an HTML page and returns the <title>, if any.
func extractHTML(path string) ([]rawPage, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	z := html.NewTokenizer(bytes.NewReader(data))
	var b strings.Builder
	var title string
	skipDepth := 0
	inTitle := false

	for {
		switch z.Next() {
		case html.ErrorToken:
			if !errors.Is(z.Err(), io.EOF) {
				return nil, "", fmt.Errorf("failed to parse html: %w", z.Err())
			}
			return []rawPage{{Number: 1, Content: tidyLines(b.String())}}, strings.TrimSpace(title), nil

		case html.StartTagToken:
			name, _ := z.TagName()
			tag := atom.Lookup(name)
			switch {
			case hiddenTags[tag]:
				skipDepth++
			case tag == atom.Title:
				inTitle = true
			case blockTags[tag]:
				b.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := atom.Lookup(name)
			switch {
			case hiddenTags[tag] && skipDepth > 0:
				skipDepth--
			case tag == atom.Title:
				inTitle = false
			case blockTags[tag]:
				b.WriteByte('\n')
			}

		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if tag := atom.Lookup(name); tag == atom.Br || tag == atom.Hr {
				b.WriteByte('\n')
			}

		case html.TextToken:
			switch {
			case inTitle:
				title += string(z.Text())
			case skipDepth == 0:
				b.Write(z.Text())
			}
		}
	}
}

var hiddenTags = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Svg: true, atom.Template: true,
}

var blockTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Table: true, atom.Section: true, atom.Article: true,
}

// tidyLines trims every line, collapses runs of blanks and drops empty lines.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// decodeText strips a UTF-8 BOM and replaces invalid byte sequences.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageExtractTimeout):
		return "", errors.New("page extraction timed out")
	}
}
