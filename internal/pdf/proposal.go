package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"potencialize/internal/models"
)

// Generator is what the proposal service needs; easy to fake in tests.
type Generator interface {
	GenerateProposal(data ProposalData) (string, error)
}

// DocumentGenerator writes PDFs under RootDir. With an empty FontPath the
// core Helvetica font is used and text is translated to cp1252.
type DocumentGenerator struct {
	RootDir  string
	FontPath string
	fontName string
}

type ProposalData struct {
	DealID    int64
	Client    string
	Owner     string
	Products  []string
	Value     int64 // centavos
	Body      string
	CreatedAt time.Time
	Filename  string
}

func NewDocumentGenerator(rootDir, fontPath string) *DocumentGenerator {
	name := "Helvetica"
	if fontPath != "" {
		name = "DejaVu"
	}
	return &DocumentGenerator{
		RootDir:  filepath.Clean(rootDir),
		FontPath: fontPath,
		fontName: name,
	}
}

// GenerateProposal returns the stored file reference ("/<name>.pdf").
func (g *DocumentGenerator) GenerateProposal(data ProposalData) (string, error) {
	filename := data.Filename
	if filename == "" {
		filename = fmt.Sprintf("proposta_deal_%d_%s.pdf", data.DealID, data.CreatedAt.Format("20060102150405"))
	}
	absPath, err := g.ensureTarget(filename)
	if err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := g.setupFont(pdf)
	pdf.SetTitle(tr(fmt.Sprintf("Proposta Comercial - %s", data.Client)), false)
	pdf.SetAuthor("Potencialize Resultados", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, tr("PROPOSTA COMERCIAL"), "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 12)
	sub := fmt.Sprintf("Nº POT-%06d  de  %s", data.DealID, data.CreatedAt.Format("02/01/2006"))
	pdf.CellFormat(0, 7, tr(sub), "", 1, "C", false, 0, "")
	g.hr(pdf)
	pdf.Ln(3)

	g.sectionTitle(pdf, tr("Dados"))
	g.kvLine(pdf, tr("Cliente"), tr(data.Client))
	if data.Owner != "" {
		g.kvLine(pdf, tr("Responsável"), tr(data.Owner))
	}
	g.kvLine(pdf, tr("Soluções"), tr(strings.Join(data.Products, ", ")))
	g.kvLine(pdf, tr("Investimento"), tr(models.FormatBRL(data.Value)))
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, tr("Proposta"))
	pdf.SetFont(g.fontName, "", 11)
	for _, para := range strings.Split(data.Body, "\n") {
		if strings.TrimSpace(para) == "" {
			pdf.Ln(3)
			continue
		}
		pdf.MultiCell(0, 6, tr(para), "", "L", false)
	}

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Pág. %d/{nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	if err := pdf.OutputFileAndClose(absPath); err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(filepath.Base(absPath)), nil
}

func (g *DocumentGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *DocumentGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *DocumentGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func (g *DocumentGenerator) ensureTarget(filename string) (string, error) {
	if err := os.MkdirAll(g.RootDir, 0o755); err != nil {
		return "", fmt.Errorf("create files dir: %w", err)
	}
	filename = filepath.Base(filename)
	return filepath.Join(g.RootDir, filename), nil
}

func (g *DocumentGenerator) setupFont(pdf *gofpdf.Fpdf) func(string) string {
	if g.FontPath == "" {
		return pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddUTF8Font(g.fontName, "", g.FontPath)
	pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
	return func(s string) string { return s }
}
