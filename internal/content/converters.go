package content

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// readabilityConverter extracts article text from HTML attachments using
// readability's content detection. First step of the html chain.
type readabilityConverter struct{}

func (readabilityConverter) Name() string { return "readability" }

func (readabilityConverter) Convert(_ context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read html file: %w", err)
	}

	pageURL, _ := url.Parse("file://" + path)

	article, err := readability.FromReader(bytes.NewReader(raw), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability parse: %w", err)
	}

	return article.TextContent, nil
}

// goqueryConverter is the html fallback: strip script/style and take the
// document text wholesale. Cruder than readability but never refuses a
// well-formed page.
type goqueryConverter struct{}

func (goqueryConverter) Name() string { return "goquery" }

func (goqueryConverter) Convert(_ context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read html file: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("goquery parse: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	return strings.TrimSpace(doc.Text()), nil
}

// plainTextConverter reads text attachments, re-decoding from EUC-KR and
// friends when the bytes are not valid UTF-8.
type plainTextConverter struct{}

func (plainTextConverter) Name() string { return "plaintext" }

func (plainTextConverter) Convert(_ context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}

	if utf8.Valid(raw) {
		return string(raw), nil
	}

	if decoded, ok := recoverEncoding(raw); ok {
		return decoded, nil
	}

	return "", fmt.Errorf("undecodable text file: %s", path)
}

// FuncConverter adapts a plain function to the Converter interface. The
// orchestration layer uses it to inject external PDF/HWP/OCR decoders.
type FuncConverter struct {
	ConverterName string
	Fn            func(ctx context.Context, path string) (string, error)
}

func (f FuncConverter) Name() string { return f.ConverterName }

func (f FuncConverter) Convert(ctx context.Context, path string) (string, error) {
	return f.Fn(ctx, path)
}
