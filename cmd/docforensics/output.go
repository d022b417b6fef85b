package main

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"DocForensics/pkg/analyzer"
	"DocForensics/pkg/models"
)

var (
	// Color printers
	infoColor    = color.New(color.FgBlue).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
	alertColor   = color.New(color.FgRed, color.Bold).SprintFunc()

	stdout io.Writer = color.Output
)

func printInfo(format string, args ...interface{}) {
	fmt.Fprintf(stdout, "%s %s\n", infoColor("[*]"), fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...interface{}) {
	fmt.Fprintf(stdout, "%s %s\n", successColor("[+]"), fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...interface{}) {
	fmt.Fprintf(stdout, "%s %s\n", warningColor("[!]"), fmt.Sprintf(format, args...))
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(stdout, "%s %s\n", errorColor("[-]"), fmt.Sprintf(format, args...))
}

func printAlert(format string, args ...interface{}) {
	fmt.Fprintf(stdout, "%s %s\n", alertColor("[!!!]"), fmt.Sprintf(format, args...))
}

func displayReport(r *models.ForensicReport, verbose bool) {
	fmt.Fprintln(stdout, "\n--- Forensic Report ---")

	fmt.Fprintf(stdout, "File: %s\n", r.Filename)
	fmt.Fprintf(stdout, "Kind: %s\n", r.Kind)
	if r.Image != nil {
		b := r.Image.Bounds()
		fmt.Fprintf(stdout, "Normalized image: %dx%d\n", b.Dx(), b.Dy())
	}
	if verbose {
		fmt.Fprintf(stdout, "Report ID: %s\n", r.ID)
		fmt.Fprintf(stdout, "Duration: %v\n", r.AnalysisDuration)
	}

	if r.ELA != nil {
		displayELA(r.ELA)
	}

	displayMetadata("Document metadata", r.Metadata)
	if r.EmbeddedMetadata != nil {
		displayMetadata("Embedded image EXIF", r.EmbeddedMetadata)
	}

	fmt.Fprintln(stdout)
	if !r.HasRedFlags() {
		printSuccess("No metadata red flags found")
	} else {
		fmt.Fprintln(stdout, "Red flags:")
		for _, f := range r.RedFlags {
			printAlert("%s", f.Message)
		}
	}

	if len(r.Notes) > 0 {
		fmt.Fprintln(stdout, "\nNotes:")
		for _, n := range r.Notes {
			printInfo("%s", n)
		}
	}

	fmt.Fprintln(stdout, "-----------------------")
}

func displayELA(res *models.ELAResult) {
	fmt.Fprintf(stdout, "ELA: quality %d, amplification x%g\n", res.Quality, res.Amplification)
	fmt.Fprintf(stdout, "  Max difference: %d, mean difference: %.2f\n", res.Stats.MaxDifference, res.Stats.MeanDifference)
	fmt.Fprintf(stdout, "  Bright pixels: %d (%.2f%%)\n", res.Stats.BrightPixels, res.Stats.BrightRatio*100)
}

func displayMetadata(title string, rec *models.MetadataRecord) {
	fmt.Fprintf(stdout, "\n%s:\n", title)
	keys := rec.Keys()
	if len(keys) == 0 {
		fmt.Fprintln(stdout, "  (none)")
		return
	}
	for _, k := range keys {
		v, _ := rec.Get(k)
		fmt.Fprintf(stdout, "  %-18s %s\n", string(k)+":", v.Text)
	}
}

func printSummary(results []batchResult) {
	var clean, flagged, failed int

	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
		case res.Report.HasRedFlags():
			flagged++
		default:
			clean++
		}
	}

	fmt.Fprintln(stdout, "\n=== Analysis Summary ===")
	fmt.Fprintf(stdout, "Total files analyzed: %d\n", len(results))
	fmt.Fprintf(stdout, "%s Clean files: %d\n", successColor("[+]"), clean)

	if failed > 0 {
		fmt.Fprintf(stdout, "%s Failed files: %d\n", errorColor("[-]"), failed)
	}

	if flagged > 0 {
		fmt.Fprintf(stdout, "%s Files with red flags: %d\n", alertColor("[!!!]"), flagged)

		fmt.Fprintln(stdout, "\nFlagged files:")
		for _, res := range results {
			if res.Err == nil && res.Report.HasRedFlags() {
				fmt.Fprintf(stdout, "- %s\n", analyzer.Summary(res.Report))
			}
		}
	}
}

// printJSON writes the successful reports, a single object for one file and an array otherwise
func printJSON(results []batchResult) error {
	reports := make([]*models.ForensicReport, 0, len(results))
	for _, res := range results {
		if res.Err == nil {
			reports = append(reports, res.Report)
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	var err error
	if len(results) == 1 && len(reports) == 1 {
		err = enc.Encode(reports[0])
	} else {
		err = enc.Encode(reports)
	}
	if err != nil {
		return fmt.Errorf("failed to encode reports: %w", err)
	}
	return nil
}

// artifactNames hands out file stems that are unique within one run.
// A stem already taken gets the start of the report ID appended.
type artifactNames struct {
	used map[string]bool
}

func newArtifactNames() *artifactNames {
	return &artifactNames{used: make(map[string]bool)}
}

func (a *artifactNames) stem(r *models.ForensicReport) string {
	name := baseName(r.Filename)
	if name == "" || name == "." {
		name = r.ID
	}

	candidate := name
	if a.used[strings.ToLower(candidate)] {
		id := strings.ReplaceAll(r.ID, "-", "")
		if len(id) > 8 {
			id = id[:8]
		}
		candidate = name + "_" + id
	}
	for i := 2; a.used[strings.ToLower(candidate)]; i++ {
		candidate = fmt.Sprintf("%s_%d", name, i)
	}

	a.used[strings.ToLower(candidate)] = true
	return candidate
}

// writeArtifacts stores <name>_ela.png and <name>_report.json in dir
func writeArtifacts(dir, name string, r *models.ForensicReport) (elaPath, reportPath string, err error) {
	elaPath = filepath.Join(dir, name+"_ela.png")
	reportPath = filepath.Join(dir, name+"_report.json")

	if r.ELA != nil && r.ELA.Image != nil {
		if err := writePNG(elaPath, r.ELA.Image); err != nil {
			return "", "", err
		}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write report: %w", err)
	}

	return elaPath, reportPath, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
