package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DocForensics/internal/testdocs"
	"DocForensics/pkg/analyzer"
	"DocForensics/pkg/config"
	"DocForensics/pkg/errs"
	"DocForensics/pkg/grab"
	"DocForensics/pkg/models"
	"DocForensics/pkg/normalizer"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prevOut, prevNoColor := stdout, color.NoColor
	stdout, color.NoColor = &buf, true
	t.Cleanup(func() {
		stdout, color.NoColor = prevOut, prevNoColor
	})
	return &buf
}

func testEngine(t *testing.T) *analyzer.Engine {
	t.Helper()

	raster := normalizer.RasterizerFunc(func(ctx context.Context, pdf []byte, dpi int) (image.Image, error) {
		return testdocs.Gradient(40, 52), nil
	})
	e, err := analyzer.New(config.Default(), analyzer.WithRasterizer(raster))
	require.NoError(t, err)
	return e
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func editedJPEG() []byte {
	exif := testdocs.EXIFBlock(testdocs.EXIF{Software: "Adobe Photoshop 24.0"})
	return testdocs.JPEG(testdocs.Gradient(32, 24), 90, exif, "")
}

func cleanPNG() []byte {
	return testdocs.PNG(testdocs.Gradient(32, 24))
}

func TestWorkerCount(t *testing.T) {
	tests := []struct {
		workers, files, want int
	}{
		{0, 5, 1},
		{-3, 5, 1},
		{4, 10, 4},
		{8, 3, 3},
		{2, 0, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, workerCount(tt.workers, tt.files), "workers=%d files=%d", tt.workers, tt.files)
	}
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scan.jpg", editedJPEG())
	writeFile(t, dir, "notes.txt", []byte("not a document"))
	writeFile(t, dir, filepath.Join("nested", "contract.pdf"), testdocs.Letter(nil).Bytes())

	files, err := collectInputs([]string{"explicit.png"}, dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"explicit.png", filepath.Join(dir, "scan.jpg")}, files)

	files, err = collectInputs(nil, dir, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "scan.jpg"),
		filepath.Join(dir, "nested", "contract.pdf"),
	}, files)

	_, err = collectInputs(nil, filepath.Join(dir, "missing"), false)
	assert.Error(t, err)
}

func TestRunBatchKeepsOrderAndIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "edited.jpg", editedJPEG()),
		filepath.Join(dir, "missing.png"),
		writeFile(t, dir, "clean.png", cleanPNG()),
		writeFile(t, dir, "letter.pdf", testdocs.Letter(map[string]string{"Creator": "Adobe Acrobat Pro"}).Bytes()),
	}

	results := runBatch(context.Background(), testEngine(t), grab.New(5*time.Second, 1<<20), files, 3)
	require.Len(t, results, len(files))

	for i, res := range results {
		assert.Equal(t, files[i], res.Path)
	}

	require.NoError(t, results[0].Err)
	assert.True(t, results[0].Report.HasRedFlags())

	assert.True(t, errs.IsKind(results[1].Err, errs.KindIO))
	assert.Nil(t, results[1].Report)

	require.NoError(t, results[2].Err)
	assert.False(t, results[2].Report.HasRedFlags())

	require.NoError(t, results[3].Err)
	assert.Equal(t, models.KindPDF, results[3].Report.Kind)
	assert.True(t, results[3].Report.HasRedFlags())

	assert.Equal(t, 1, countFailed(results))
}

func TestRunBatchDownloadsURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scans/receipt.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(editedJPEG())
	}))
	defer srv.Close()

	inputs := []string{srv.URL + "/scans/receipt.jpg", srv.URL + "/scans/gone.pdf"}
	results := runBatch(context.Background(), testEngine(t), grab.New(5*time.Second, 1<<20), inputs, 2)
	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	assert.Equal(t, "receipt.jpg", results[0].Report.Filename)
	assert.Equal(t, models.KindImage, results[0].Report.Kind)
	assert.True(t, results[0].Report.HasRedFlags())

	assert.True(t, errs.IsKind(results[1].Err, errs.KindIO))
}

func TestWriteArtifacts(t *testing.T) {
	src := writeFile(t, t.TempDir(), "edited.jpg", editedJPEG())
	report, err := testEngine(t).AnalyzeFile(context.Background(), src)
	require.NoError(t, err)

	out := t.TempDir()
	elaPath, reportPath, err := writeArtifacts(out, newArtifactNames().stem(report), report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "edited_ela.png"), elaPath)
	assert.Equal(t, filepath.Join(out, "edited_report.json"), reportPath)

	f, err := os.Open(elaPath)
	require.NoError(t, err)
	defer f.Close()
	heat, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, report.ELA.Image.Bounds().Size(), heat.Bounds().Size())

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var decoded struct {
		ID       string           `json:"id"`
		Filename string           `json:"filename"`
		RedFlags []models.RedFlag `json:"redFlags"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.ID, decoded.ID)
	assert.Equal(t, "edited.jpg", decoded.Filename)
	assert.Equal(t, report.RedFlags, decoded.RedFlags)
}

func TestArtifactNamesAreUniquePerRun(t *testing.T) {
	names := newArtifactNames()
	report := func(id, filename string) *models.ForensicReport {
		return &models.ForensicReport{ID: id, Filename: filename}
	}

	assert.Equal(t, "scan", names.stem(report("0f8fad5b-d9cb-469f-a165-70867728950e", "a/scan.jpg")))
	assert.Equal(t, "scan_7c9e6679", names.stem(report("7c9e6679-7425-40de-944b-e07fc1f90ae7", "b/scan.jpg")))
	assert.Equal(t, "x", names.stem(report("11111111-2222-3333-4444-555555555555", "x.pdf")))
	assert.Equal(t, "x_66666666", names.stem(report("66666666-7777-8888-9999-000000000000", "x.png")))
	assert.Equal(t, "Scan_2", names.stem(report("7c9e6679-0000-0000-0000-000000000000", "SCANS/Scan.tiff")))
	assert.Equal(t, "report-id", names.stem(report("report-id", "")))
}

func TestWriteArtifacts_SameFilenameTwice(t *testing.T) {
	dir := t.TempDir()
	engine := testEngine(t)
	first, err := engine.AnalyzeFile(context.Background(), writeFile(t, dir, filepath.Join("a", "scan.jpg"), editedJPEG()))
	require.NoError(t, err)
	second, err := engine.AnalyzeFile(context.Background(), writeFile(t, dir, filepath.Join("b", "scan.jpg"), editedJPEG()))
	require.NoError(t, err)

	out := t.TempDir()
	names := newArtifactNames()
	_, firstReport, err := writeArtifacts(out, names.stem(first), first)
	require.NoError(t, err)
	_, secondReport, err := writeArtifacts(out, names.stem(second), second)
	require.NoError(t, err)
	assert.NotEqual(t, firstReport, secondReport)

	for path, want := range map[string]string{firstReport: first.ID, secondReport: second.ID} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var decoded struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, want, decoded.ID)
	}

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestPrintSummary(t *testing.T) {
	buf := captureOutput(t)

	flagged := &models.ForensicReport{Filename: "forged.pdf", Kind: models.KindPDF}
	flagged.AddRedFlag(models.RedFlag{Rule: "keyword", Message: "Suspicious keyword 'gimp' found in Creator: 'GIMP 2.10'"})

	printSummary([]batchResult{
		{Path: "a.png", Report: &models.ForensicReport{Filename: "a.png", RedFlags: []models.RedFlag{}}},
		{Path: "forged.pdf", Report: flagged},
		{Path: "broken.docx", Err: errs.New(errs.KindNoContentFound, "normalize docx", "no pictures")},
	})

	out := buf.String()
	assert.Contains(t, out, "Total files analyzed: 3")
	assert.Contains(t, out, "[+] Clean files: 1")
	assert.Contains(t, out, "[-] Failed files: 1")
	assert.Contains(t, out, "[!!!] Files with red flags: 1")
	assert.Contains(t, out, "- forged.pdf [pdf]: 1 red flag(s)")
	assert.NotContains(t, out, "a.png [")
}

func TestPrintJSON(t *testing.T) {
	one := &models.ForensicReport{ID: "one", RedFlags: []models.RedFlag{}}
	two := &models.ForensicReport{ID: "two", RedFlags: []models.RedFlag{}}

	t.Run("single file prints an object", func(t *testing.T) {
		buf := captureOutput(t)
		require.NoError(t, printJSON([]batchResult{{Report: one}}))

		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "one", got["id"])
	})

	t.Run("batch prints an array of successes", func(t *testing.T) {
		buf := captureOutput(t)
		require.NoError(t, printJSON([]batchResult{
			{Report: one},
			{Err: errs.New(errs.KindIO, "analyze file", "missing")},
			{Report: two},
		}))

		var got []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "one", got[0]["id"])
		assert.Equal(t, "two", got[1]["id"])
	})
}

func TestDisplayReport(t *testing.T) {
	buf := captureOutput(t)

	src := writeFile(t, t.TempDir(), "edited.jpg", editedJPEG())
	report, err := testEngine(t).AnalyzeFile(context.Background(), src)
	require.NoError(t, err)

	displayReport(report, true)

	out := buf.String()
	assert.Contains(t, out, "File: edited.jpg")
	assert.Contains(t, out, "Kind: image")
	assert.Contains(t, out, "Report ID: "+report.ID)
	assert.Contains(t, out, "Software:")
	assert.Contains(t, out, "[!!!] Editing software 'photoshop' detected in EXIF Software: 'Adobe Photoshop 24.0'")
}
