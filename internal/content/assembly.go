package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bizscrape/grant-pipeline/internal/observability"
)

// Format families, ordered for combined-text concatenation: page-layout
// formats first, plain-text and html-like last.
const (
	FamilyPDF   = "pdf"
	FamilyHWP   = "hwp"
	FamilyHWPX  = "hwpx"
	FamilyImage = "image"
	FamilyText  = "text"
	FamilyHTML  = "html"
)

var familyOrder = map[string]int{
	FamilyPDF:   0,
	FamilyHWP:   1,
	FamilyHWPX:  2,
	FamilyImage: 3,
	FamilyText:  4,
	FamilyHTML:  5,
}

var extensionFamily = map[string]string{
	".pdf":  FamilyPDF,
	".hwp":  FamilyHWP,
	".hwpx": FamilyHWPX,
	".png":  FamilyImage,
	".jpg":  FamilyImage,
	".jpeg": FamilyImage,
	".gif":  FamilyImage,
	".txt":  FamilyText,
	".md":   FamilyText,
	".html": FamilyHTML,
	".htm":  FamilyHTML,
}

// Attachment names matching these are blank application forms, not
// announcement content.
var defaultTemplateKeywords = []string{"양식", "서식", "신청서", "동의서", "위임장", "별지"}

const (
	defaultPrimaryName    = "content.md"
	defaultAttachmentsDir = "attachments"

	cacheSuffix = ".txt"

	sectionDelimiter = "=== %s ==="
)

// ErrNoContent is returned when neither the primary artifact nor any
// attachment produced text.
var ErrNoContent = errors.New("no content produced for folder")

// Registry maps format families to their ranked converter chains.
type Registry struct {
	chains map[string]*Chain
}

// NewRegistry builds a registry with the built-in html and text chains.
// External decoders for binary formats are added via Register.
func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{chains: map[string]*Chain{
		FamilyHTML: NewChain(FamilyHTML, logger,
			Step{Converter: readabilityConverter{}},
			Step{Converter: goqueryConverter{}},
		),
		FamilyText: NewChain(FamilyText, logger,
			Step{Converter: plainTextConverter{}, Recover: true},
		),
	}}
}

// Register installs the chain for a family, replacing any existing one.
func (r *Registry) Register(family string, chain *Chain) {
	r.chains[family] = chain
}

// ChainFor returns the chain for a family, or nil when the family has no
// registered converters.
func (r *Registry) ChainFor(family string) *Chain {
	return r.chains[family]
}

// Assembly is the content triple produced for one announcement folder.
type Assembly struct {
	PrimaryText     string
	CombinedText    string
	AttachmentFiles []string
}

// Assembler produces Assembly values. One instance per worker; it holds no
// mutable state beyond configuration.
type Assembler struct {
	registry         *Registry
	logger           *zerolog.Logger
	primaryName      string
	attachmentsDir   string
	templateKeywords []string
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithPrimaryName overrides the primary artifact filename.
func WithPrimaryName(name string) Option {
	return func(a *Assembler) { a.primaryName = name }
}

// WithAttachmentsDir overrides the attachments sub-folder name.
func WithAttachmentsDir(name string) Option {
	return func(a *Assembler) { a.attachmentsDir = name }
}

// WithTemplateKeywords overrides the template/form skip list.
func WithTemplateKeywords(keywords []string) Option {
	return func(a *Assembler) { a.templateKeywords = keywords }
}

// NewAssembler builds an assembler over the given converter registry.
func NewAssembler(registry *Registry, logger *zerolog.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		registry:         registry,
		logger:           logger,
		primaryName:      defaultPrimaryName,
		attachmentsDir:   defaultAttachmentsDir,
		templateKeywords: defaultTemplateKeywords,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Assemble reads the folder's primary artifact and converts its
// attachments. Per-file failures are logged and skipped; only a folder
// that yields no text at all is an error.
func (a *Assembler) Assemble(ctx context.Context, dir string, attachForce bool) (*Assembly, error) {
	primary := a.readPrimary(dir)

	converted := a.convertAttachments(ctx, filepath.Join(dir, a.attachmentsDir), attachForce)

	combined, files := combine(converted)

	if primary == "" && combined == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, dir)
	}

	return &Assembly{
		PrimaryText:     primary,
		CombinedText:    combined,
		AttachmentFiles: files,
	}, nil
}

func (a *Assembler) readPrimary(dir string) string {
	raw, err := os.ReadFile(filepath.Join(dir, a.primaryName))
	if err != nil {
		a.logger.Warn().Err(err).Str("dir", dir).Msg("primary artifact missing")

		return ""
	}

	return NormalizePrimary(string(raw))
}

type converted struct {
	name   string
	family string
	text   string
}

func (a *Assembler) convertAttachments(ctx context.Context, attachDir string, force bool) []converted {
	entries, err := os.ReadDir(attachDir)
	if err != nil {
		a.logger.Debug().Err(err).Str("dir", attachDir).Msg("no attachments directory")

		return nil
	}

	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		present[entry.Name()] = true
	}

	var results []converted

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if a.skip(name, present) {
			continue
		}

		family := extensionFamily[strings.ToLower(filepath.Ext(name))]

		text, err := a.convertOne(ctx, filepath.Join(attachDir, name), family, force)
		if err != nil {
			a.logger.Warn().Err(err).Str("file", name).Msg("attachment conversion failed, skipping")

			continue
		}

		results = append(results, converted{name: name, family: family, text: text})
	}

	return results
}

// skip filters template/form attachments, unsupported extensions and
// sibling cache files of other attachments in the same directory.
func (a *Assembler) skip(name string, present map[string]bool) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := extensionFamily[ext]; !ok {
		return true
	}

	for _, keyword := range a.templateKeywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}

	if ext == cacheSuffix && present[strings.TrimSuffix(name, cacheSuffix)] {
		return true
	}

	return false
}

func (a *Assembler) convertOne(ctx context.Context, path, family string, force bool) (string, error) {
	cachePath := path + cacheSuffix

	if !force {
		if cached, err := os.ReadFile(cachePath); err == nil && len(cached) > 0 {
			observability.ConversionCacheHits.Inc()

			return string(cached), nil
		}
	}

	chain := a.registry.ChainFor(family)
	if chain == nil {
		return "", fmt.Errorf("no converter chain for family %q", family)
	}

	text, err := chain.Run(ctx, path)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(cachePath, []byte(text), 0o644); err != nil {
		a.logger.Warn().Err(err).Str("file", cachePath).Msg("failed to write conversion cache")
	}

	return text, nil
}

// combine concatenates attachment texts, document families first, each
// section prefixed with its filename.
func combine(items []converted) (string, []string) {
	sort.SliceStable(items, func(i, j int) bool {
		return familyOrder[items[i].family] < familyOrder[items[j].family]
	})

	var (
		sb    strings.Builder
		files []string
	)

	for _, item := range items {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}

		sb.WriteString(fmt.Sprintf(sectionDelimiter, item.name))
		sb.WriteString("\n")
		sb.WriteString(item.text)

		files = append(files, item.name)
	}

	return sb.String(), files
}
