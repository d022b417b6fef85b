package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"DocForensics/pkg/analyzer"
	"DocForensics/pkg/config"
	"DocForensics/pkg/filehandler"
	"DocForensics/pkg/grab"
	"DocForensics/pkg/logging"
	"DocForensics/pkg/normalizer"
)

const version = "1.0.0"

var (
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger

	analyzeDir       string
	analyzeRecursive bool
	analyzeURLFile   string
	analyzeWorkers   int
	analyzeOutDir    string
	analyzeJSON      bool

	elaQuality int
	elaOut     string
)

var rootCmd = &cobra.Command{
	Use:   "docforensics",
	Short: "Document forgery forensics",
	Long: `DocForensics inspects images, PDFs and Word documents for signs of tampering.
It renders the document to a raster image, computes an Error Level Analysis heat map
and checks the authoring metadata for editing tools and inconsistent timestamps.`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|url...]",
	Short: "Run the full forensic pipeline over documents",
	Example: `  docforensics analyze invoice.pdf
  docforensics analyze https://example.com/scans/receipt.jpg
  docforensics analyze --dir scans --recursive --workers 4 --out-dir results
  docforensics analyze --url-file urls.txt --json`,
	RunE: runAnalyze,
}

var elaCmd = &cobra.Command{
	Use:   "ela <image>",
	Short: "Compute the ELA heat map of a single image",
	Args:  cobra.ExactArgs(1),
	RunE:  runELA,
}

var metadataCmd = &cobra.Command{
	Use:   "metadata <image>",
	Short: "Show the EXIF fields of an image and check them for editing software",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetadata,
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported document kinds and their normalizers",
	Args:  cobra.NoArgs,
	RunE:  runFormats,
}

// setup loads .env, the config file and the logger before any subcommand runs
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		c.Log.Level = "debug"
	}

	l, err := logging.New(c.Log, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, logger = c, l
	return nil
}

func newEngine() (*analyzer.Engine, error) {
	return analyzer.New(cfg, analyzer.WithLogger(logger))
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	files, err := collectInputs(args, analyzeDir, analyzeRecursive)
	if err != nil {
		return err
	}
	if analyzeURLFile != "" {
		urls, err := grab.ReadURLList(analyzeURLFile)
		if err != nil {
			return err
		}
		files = append(files, urls...)
	}
	if len(files) == 0 {
		return errors.New("no inputs: pass file paths, URLs, --dir or --url-file")
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}

	if analyzeOutDir != "" {
		if err := os.MkdirAll(analyzeOutDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if !analyzeJSON {
		printInfo("Analyzing %d file(s) with %d worker(s)", len(files), workerCount(analyzeWorkers, len(files)))
	}

	grabber := grab.New(cfg.Input.FetchTimeout, cfg.Input.MaxFileSize)
	results := runBatch(cmd.Context(), engine, grabber, files, analyzeWorkers)
	names := newArtifactNames()

	for _, res := range results {
		if res.Err != nil {
			printError("%s: %v", res.Path, res.Err)
			continue
		}
		if !analyzeJSON {
			displayReport(res.Report, verbose)
		}
		if analyzeOutDir != "" {
			elaPath, reportPath, err := writeArtifacts(analyzeOutDir, names.stem(res.Report), res.Report)
			if err != nil {
				printError("Failed to write results for %s: %v", res.Path, err)
				continue
			}
			if !analyzeJSON {
				printSuccess("ELA heat map written to %s", elaPath)
				printSuccess("Report written to %s", reportPath)
			}
		}
	}

	if analyzeJSON {
		if err := printJSON(results); err != nil {
			return err
		}
	} else if len(results) > 1 {
		printSummary(results)
	}

	if failed := countFailed(results); failed > 0 {
		return fmt.Errorf("%d of %d file(s) could not be analyzed", failed, len(results))
	}
	return nil
}

func runELA(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}

	path := args[0]
	res, err := engine.AnalyzeImageFile(cmd.Context(), path, elaQuality)
	if err != nil {
		return err
	}

	out := elaOut
	if out == "" {
		out = baseName(path) + "_ela.png"
	}
	if err := writePNG(out, res.Image); err != nil {
		return err
	}

	displayELA(res)
	printSuccess("ELA heat map written to %s", out)
	return nil
}

func runMetadata(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}

	rec, err := engine.ExtractImageMetadataFile(args[0])
	if err != nil {
		return err
	}

	displayMetadata("EXIF", rec)
	for _, msg := range rec.Errors {
		printWarning("Metadata error: %s", msg)
	}

	flags := engine.Classify(rec)
	if len(flags) == 0 {
		printSuccess("No editing software detected")
		return nil
	}
	for _, f := range flags {
		printAlert("%s", f.Message)
	}
	return nil
}

func runFormats(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}

	registry := engine.Normalizers()
	fmt.Fprintln(stdout, "Supported document kinds:")
	for _, kind := range registry.SupportedKinds() {
		var names []string
		for _, n := range registry.ForKind(kind) {
			names = append(names, n.Name())
		}
		fmt.Fprintf(stdout, "- %s: %s\n", kind, strings.Join(names, ", "))
	}

	exts := make([]string, 0, len(filehandler.SupportedExtensions))
	for ext := range filehandler.SupportedExtensions {
		exts = append(exts, ext)
	}
	fmt.Fprintf(stdout, "Accepted extensions: %s\n", strings.Join(sortedStrings(exts), " "))

	rasterizer := normalizer.NewPdftoppm(cfg.Render.PdftoppmPath, cfg.Render.Timeout)
	if rasterizer.Available() {
		printSuccess("pdftoppm found, PDFs render at %d DPI", cfg.Render.DPI)
	} else {
		printWarning("pdftoppm not found (%s), PDF analysis will fail", cfg.Render.PdftoppmPath)
	}
	return nil
}

// collectInputs merges explicit paths with the supported files of dir
func collectInputs(args []string, dir string, recursive bool) ([]string, error) {
	files := append([]string(nil), args...)
	if dir == "" {
		return files, nil
	}

	var (
		found []string
		err   error
	)
	if recursive {
		found, err = filehandler.FilesInDirectory(dir)
	} else {
		found, err = filehandler.GatherFiles(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	return append(files, found...), nil
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./docforensics.yaml or ~/.docforensics/docforensics.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging and detailed output")

	analyzeCmd.Flags().StringVarP(&analyzeDir, "dir", "d", "", "analyze every supported file in a directory")
	analyzeCmd.Flags().BoolVarP(&analyzeRecursive, "recursive", "r", false, "descend into subdirectories of --dir")
	analyzeCmd.Flags().StringVarP(&analyzeURLFile, "url-file", "u", "", "file with one document URL per line")
	analyzeCmd.Flags().IntVarP(&analyzeWorkers, "workers", "w", 1, "number of documents analyzed in parallel")
	analyzeCmd.Flags().StringVarP(&analyzeOutDir, "out-dir", "o", "", "write <name>_ela.png and <name>_report.json here")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print reports as JSON instead of text")

	elaCmd.Flags().IntVarP(&elaQuality, "quality", "q", 0, "JPEG re-save quality (default from config)")
	elaCmd.Flags().StringVarP(&elaOut, "out", "o", "", "output path for the heat map (default <name>_ela.png)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(elaCmd)
	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(formatsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorColor("[-]"), err)
		stop()
		os.Exit(1)
	}
}
