package extract

import (
	"context"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// PlainText decodes text files to UTF-8 and cleans up whitespace. Non-UTF-8
// input is decoded with the sniffed charset, then Windows-1252.
type PlainText struct{}

func (PlainText) ExtractText(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := string(data)
	if !utf8.Valid(data) {
		text = decodeLegacy(data)
	}
	return normalizeWhitespace(strings.TrimPrefix(text, "\ufeff")), nil
}

func decodeLegacy(data []byte) string {
	for _, enc := range []encoding.Encoding{sniffedEncoding(data), charmap.Windows1252} {
		if enc == nil {
			continue
		}
		out, err := enc.NewDecoder().Bytes(data)
		if err == nil && utf8.Valid(out) {
			return string(out)
		}
	}
	return strings.ToValidUTF8(string(data), "")
}

func sniffedEncoding(data []byte) encoding.Encoding {
	_, params, err := mime.ParseMediaType(mimetype.Detect(data).String())
	if err != nil || params["charset"] == "" {
		return nil
	}
	enc, err := htmlindex.Get(params["charset"])
	if err != nil {
		return nil
	}
	return enc
}
