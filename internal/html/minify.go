package html

import (
	"bytes"
	"errors"
	"io"
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/parse/v2"
	parsehtml "github.com/tdewolff/parse/v2/html"
)

const mediaType = "text/html"

var scriptTypes = regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "source": true, "track": true, "wbr": true,
}

// Minify applies the named minification flags. With no flag set the document
// is returned unchanged.
//
// useShortDoctype, removeEmptyAttributes and removeStyleLinkTypeAttributes are
// not individually switchable: the minifier always shortens the doctype and
// drops empty and default type attributes once any flag enables minification.
// minifyURLs is likewise covered by the baseline attribute normalisation.
// The minifier strips the closing slash of void elements; keepClosingSlash
// writes it back, so <br/> stays <br/>.
func Minify(doc []byte, flags map[string]bool) ([]byte, error) {
	enabled := false
	for _, on := range flags {
		enabled = enabled || on
	}
	if !enabled {
		return doc, nil
	}

	m := minify.New()
	m.Add(mediaType, &minhtml.Minifier{
		KeepComments:        !flags["removeComments"],
		KeepWhitespace:      !flags["collapseWhitespace"],
		KeepDefaultAttrVals: !flags["removeRedundantAttributes"],
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
	})
	if flags["minifyCSS"] {
		m.AddFunc("text/css", css.Minify)
	}
	if flags["minifyJS"] {
		m.AddFuncRegexp(scriptTypes, js.Minify)
	}

	out, err := m.Bytes(mediaType, doc)
	if err != nil {
		return nil, err
	}
	if flags["keepClosingSlash"] {
		return closeVoidElements(out)
	}
	return out, nil
}

// closeVoidElements rewrites void start tags such as <br> as <br/>. Raw text
// in script and style elements passes through untouched.
func closeVoidElements(doc []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(doc) + len(doc)/32)

	l := parsehtml.NewLexer(parse.NewInputBytes(doc))
	void := false
	for {
		tt, data := l.Next()
		switch tt {
		case parsehtml.ErrorToken:
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			return buf.Bytes(), nil
		case parsehtml.StartTagToken:
			void = voidElements[string(l.Text())]
		case parsehtml.StartTagCloseToken:
			if void {
				buf.WriteString("/>")
				continue
			}
		}
		buf.Write(data)
	}
}
