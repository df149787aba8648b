package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// Parser extracts plain text from uploaded legal documents. Extraction
// never aborts ingestion: parse and conversion failures are returned as
// "[<FORMAT> ERROR] <message>" text so partial data is kept over none.
type Parser struct {
	sofficePath string
	timeout     time.Duration
}

// New creates a parser. sofficePath is the LibreOffice binary used to
// convert legacy .doc files; timeout is the wall-clock limit on that
// subprocess.
func New(sofficePath string, timeout time.Duration) *Parser {
	return &Parser{
		sofficePath: sofficePath,
		timeout:     timeout,
	}
}

// ParseFile extracts text from the file according to its extension.
// Unsupported extensions yield empty text.
func (p *Parser) ParseFile(ctx context.Context, path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := parsePDF(path)
		if err != nil {
			return fmt.Sprintf("[PDF ERROR] %v", err)
		}
		return text
	case ".docx":
		text, err := parseDOCX(path)
		if err != nil {
			return fmt.Sprintf("[DOCX ERROR] %v", err)
		}
		return text
	case ".doc":
		converted, err := p.convertToDocx(ctx, path)
		if err != nil {
			return fmt.Sprintf("[CONVERT ERROR] %v", err)
		}
		defer os.Remove(converted)
		text, err := parseDOCX(converted)
		if err != nil {
			return fmt.Sprintf("[DOCX ERROR] %v", err)
		}
		return text
	default:
		return ""
	}
}

func parsePDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// parseDOCX pulls the text runs out of word/document.xml.
func parseDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("no word/document.xml in archive")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	var out strings.Builder
	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}

	return strings.TrimSpace(out.String()), nil
}

// convertToDocx runs LibreOffice headless to convert a legacy .doc to
// .docx in the system temp dir. The subprocess is killed when the
// wall-clock limit expires so a hung conversion cannot pin a worker.
func (p *Parser) convertToDocx(ctx context.Context, path string) (string, error) {
	outDir := os.TempDir()
	outPath := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".docx")

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.sofficePath,
		"--headless",
		"--convert-to", "docx",
		"--outdir", outDir,
		path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("soffice: %v: %s", err, strings.TrimSpace(string(out)))
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("soffice produced no output file")
	}
	return outPath, nil
}
