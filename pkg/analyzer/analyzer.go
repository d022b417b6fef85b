package analyzer

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"DocForensics/pkg/config"
	"DocForensics/pkg/ela"
	"DocForensics/pkg/errs"
	"DocForensics/pkg/filehandler"
	"DocForensics/pkg/logging"
	"DocForensics/pkg/metadata"
	"DocForensics/pkg/models"
	"DocForensics/pkg/normalizer"
	"DocForensics/pkg/redflag"
)

/*
Analyzer.go contains the forensic engine that ties the pipeline together.
Engine: sniffs the document kind, runs metadata extraction in parallel with
normalization and ELA, classifies the metadata and assembles the report.
Option: functional options used to swap the rasterizer, registries or logger.
The engine keeps no per-request state, so one Engine may serve concurrent requests.
*/

// Engine runs the full forensic pipeline
type Engine struct {
	cfg         *config.Config
	logger      *slog.Logger
	rasterizer  normalizer.Rasterizer
	normalizers *normalizer.Registry
	extractors  *metadata.Registry
	classifier  *redflag.Classifier
	elaOpts     ela.Options
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRasterizer replaces the pdftoppm adapter used for PDF pages
func WithRasterizer(r normalizer.Rasterizer) Option {
	return func(e *Engine) {
		e.rasterizer = r
	}
}

// WithNormalizers replaces the normalizer registry
func WithNormalizers(r *normalizer.Registry) Option {
	return func(e *Engine) {
		e.normalizers = r
	}
}

// WithExtractors replaces the metadata extractor registry
func WithExtractors(r *metadata.Registry) Option {
	return func(e *Engine) {
		e.extractors = r
	}
}

// New creates an engine. A nil cfg uses config.Default().
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.KindInvalidArgument, "new engine", "invalid configuration", err)
	}

	e := &Engine{
		cfg:        cfg,
		classifier: redflag.New(cfg.Rules),
		elaOpts: ela.Options{
			Quality:         cfg.ELA.Quality,
			Amplification:   cfg.ELA.Amplification,
			BrightThreshold: uint8(cfg.ELA.BrightThreshold),
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.Discard()
	}
	if e.rasterizer == nil {
		e.rasterizer = normalizer.NewPdftoppm(cfg.Render.PdftoppmPath, cfg.Render.Timeout)
	}
	if e.normalizers == nil {
		e.normalizers = normalizer.NewDefaultRegistry(e.rasterizer, cfg.Render.DPI)
	}
	if e.extractors == nil {
		e.extractors = metadata.NewDefaultRegistry()
	}

	return e, nil
}

// Config returns the configuration the engine was built with
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Normalizers returns the normalizer registry
func (e *Engine) Normalizers() *normalizer.Registry {
	return e.normalizers
}

// AnalyzeDocument runs the full pipeline over one uploaded document.
// Normalization and ELA failures abort the request; metadata problems only add flags.
func (e *Engine) AnalyzeDocument(ctx context.Context, data []byte, filenameHint string) (*models.ForensicReport, error) {
	start := time.Now()

	if len(data) == 0 {
		return nil, errs.New(errs.KindUnsupportedFormat, "analyze", "empty document")
	}

	doc := models.RawDocument{
		Data:     data,
		Filename: filenameHint,
		Kind:     filehandler.DetectKind(data, filenameHint),
	}
	log := e.logger.With("filename", doc.Filename, "kind", doc.Kind)
	log.Debug("analyzing document", "size", len(data))

	var (
		meta     *models.MetadataRecord
		embedded *models.MetadataRecord
		norm     *normalizer.Normalized
		elaRes   *models.ELAResult
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		meta = e.extractors.Extract(doc)
		return nil
	})

	g.Go(func() error {
		var err error
		norm, err = e.normalizers.Normalize(gctx, doc.Data, doc.Kind)
		if err != nil {
			return err
		}

		elaRes, err = ela.Compute(norm.Image, e.elaOpts)
		if err != nil {
			return err
		}

		if doc.Kind != models.KindImage && len(norm.Source) > 0 {
			embedded = metadata.ExtractImage(norm.Source)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Warn("analysis failed", "error", err, "error_kind", errs.KindOf(err))
		return nil, err
	}

	for _, rec := range []*models.MetadataRecord{meta, embedded} {
		if rec != nil && len(rec.Errors) > 0 {
			log.Warn("metadata extracted with errors", "source", rec.Source, "errors", rec.Errors)
		}
	}

	flags := e.classifier.Classify(meta, embedded)
	notes := e.classifier.Notes(meta, embedded)

	report := Assemble(norm.Image, elaRes, meta, embedded, flags, notes)
	report.Filename = doc.Filename
	report.Kind = doc.Kind
	report.AnalysisTime = start
	report.AnalysisDuration = time.Since(start)

	log.Info("analysis complete",
		"id", report.ID,
		"red_flags", len(report.RedFlags),
		"bright_ratio", elaRes.Stats.BrightRatio,
		"duration", report.AnalysisDuration,
	)
	return report, nil
}

// AnalyzeFile reads path, bounded by the configured size limit, and analyzes it
func (e *Engine) AnalyzeFile(ctx context.Context, path string) (*models.ForensicReport, error) {
	data, err := filehandler.ReadFileBytes(path, e.cfg.Input.MaxFileSize)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "analyze file", path, err)
	}
	return e.AnalyzeDocument(ctx, data, filepath.Base(path))
}

// AnalyzeImageOnly decodes a plain image and computes its ELA heat map.
// A quality of zero uses the configured default.
func (e *Engine) AnalyzeImageOnly(ctx context.Context, data []byte, quality int) (*models.ELAResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := normalizer.DecodeImage(data)
	if err != nil {
		return nil, err
	}

	opts := e.elaOpts
	if quality != 0 {
		opts.Quality = quality
	}
	return ela.Compute(img, opts)
}

// AnalyzeImageFile is AnalyzeImageOnly for a file on disk
func (e *Engine) AnalyzeImageFile(ctx context.Context, path string, quality int) (*models.ELAResult, error) {
	data, err := filehandler.ReadFileBytes(path, e.cfg.Input.MaxFileSize)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "analyze image file", path, err)
	}
	return e.AnalyzeImageOnly(ctx, data, quality)
}

// ExtractImageMetadata returns the allow-listed EXIF fields of an image
func (e *Engine) ExtractImageMetadata(data []byte) *models.MetadataRecord {
	return metadata.ExtractImage(data)
}

// ExtractImageMetadataFile is ExtractImageMetadata for a file on disk
func (e *Engine) ExtractImageMetadataFile(path string) (*models.MetadataRecord, error) {
	data, err := filehandler.ReadFileBytes(path, e.cfg.Input.MaxFileSize)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "extract image metadata", path, err)
	}
	return e.ExtractImageMetadata(data), nil
}

// Classify runs the red-flag rules with the engine's configuration
func (e *Engine) Classify(records ...*models.MetadataRecord) []models.RedFlag {
	return e.classifier.Classify(records...)
}

// Assemble combines the pipeline outputs into a report with a fresh ID.
// A nil metadata record becomes an empty one and the flag list is never nil.
func Assemble(img image.Image, elaRes *models.ELAResult, meta, embedded *models.MetadataRecord, flags []models.RedFlag, notes []string) *models.ForensicReport {
	if meta == nil {
		meta = models.NewMetadataRecord(models.KindUnknown)
	}

	report := &models.ForensicReport{
		ID:               uuid.NewString(),
		Image:            img,
		ELA:              elaRes,
		Metadata:         meta,
		EmbeddedMetadata: embedded,
		RedFlags:         make([]models.RedFlag, 0, len(flags)),
		AnalysisTime:     time.Now(),
	}
	for _, f := range flags {
		report.AddRedFlag(f)
	}
	for _, n := range notes {
		report.AddNote(n)
	}
	return report
}

// Summary returns a one-line description of a report for logs and consoles
func Summary(r *models.ForensicReport) string {
	if r == nil {
		return "no report"
	}
	verdict := "no red flags"
	if r.HasRedFlags() {
		verdict = fmt.Sprintf("%d red flag(s)", len(r.RedFlags))
	}
	bright := 0.0
	if r.ELA != nil {
		bright = r.ELA.Stats.BrightRatio * 100
	}
	return fmt.Sprintf("%s [%s]: %s, %.2f%% bright ELA pixels", r.Filename, r.Kind, verdict, bright)
}
