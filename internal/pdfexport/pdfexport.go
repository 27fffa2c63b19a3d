// Package pdfexport renders a generated application pack (résumé draft plus
// cover letter) as a PDF. The renderer walks a goldmark markdown AST the same
// way a chat-export renderer would; the only thing that changed is what
// markdown gets built from — a tailored PackContent instead of a chat
// transcript.
package pdfexport

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/jobops/triage/internal/models"
)

// Renderer turns an application pack into a PDF document.
type Renderer interface {
	RenderPack(job *models.Job, profile models.ProfileJSON, pack models.PackContent) ([]byte, error)
}

// Default renders packs with fpdf, grounded on the same AST-walk approach the
// markdown-to-PDF chat exporter uses.
type Default struct {
	logger arbor.ILogger
}

func NewDefault(logger arbor.ILogger) *Default {
	return &Default{logger: logger}
}

var _ Renderer = (*Default)(nil)

// RenderPack builds a résumé markdown document from the pack content and the
// candidate's structured profile, then converts it to PDF bytes.
func (d *Default) RenderPack(job *models.Job, profile models.ProfileJSON, pack models.PackContent) ([]byte, error) {
	md := buildMarkdown(job, profile, pack)
	return d.convertMarkdownToPDF(md, resumeTitle(job, profile))
}

func resumeTitle(job *models.Job, profile models.ProfileJSON) string {
	name := profile.Basics.Name
	if name == "" {
		name = "Candidate"
	}
	if job != nil && job.RoleTitle != "" {
		return fmt.Sprintf("%s — %s", name, job.RoleTitle)
	}
	return name
}

// buildMarkdown assembles the tailored résumé as markdown: contact line,
// tailored summary (the profile summary when the pack has none), skills, the
// tailored bullets as a Highlights section, experience with the profile's own
// bullets, and the cover letter as a trailing section.
func buildMarkdown(job *models.Job, profile models.ProfileJSON, pack models.PackContent) string {
	var b strings.Builder

	name := profile.Basics.Name
	if name == "" {
		name = "Candidate"
	}
	fmt.Fprintf(&b, "# %s\n\n", name)

	contact := contactLine(profile.Basics)
	if contact != "" {
		fmt.Fprintf(&b, "%s\n\n", contact)
	}

	summary := pack.Summary
	if summary == "" {
		summary = profile.Summary
	}
	if summary != "" {
		b.WriteString("## Summary\n\n")
		fmt.Fprintf(&b, "%s\n\n", summary)
	}

	if len(profile.Skills) > 0 {
		b.WriteString("## Skills\n\n")
		fmt.Fprintf(&b, "%s\n\n", strings.Join(profile.Skills, ", "))
	}

	if len(pack.Bullets) > 0 {
		b.WriteString("## Highlights\n\n")
		for _, bullet := range pack.Bullets {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
		b.WriteString("\n")
	}

	if len(profile.Experience) > 0 {
		b.WriteString("## Experience\n\n")
		for _, exp := range profile.Experience {
			b.WriteString(experienceHeading(exp))
			for _, bullet := range exp.Bullets {
				fmt.Fprintf(&b, "- %s\n", bullet)
			}
			b.WriteString("\n")
		}
	}

	if pack.CoverLetter != "" {
		b.WriteString("## Cover Letter\n\n")
		fmt.Fprintf(&b, "%s\n\n", pack.CoverLetter)
	}

	return b.String()
}

func contactLine(basics models.ProfileBasics) string {
	parts := []string{}
	if basics.Email != "" {
		parts = append(parts, basics.Email)
	}
	if basics.Phone != "" {
		parts = append(parts, basics.Phone)
	}
	if basics.Location != "" {
		parts = append(parts, basics.Location)
	}
	return strings.Join(parts, " · ")
}

func experienceHeading(exp models.ProfileExperience) string {
	span := strings.TrimSpace(exp.StartDate + " – " + exp.EndDate)
	if span == "–" {
		span = ""
	}
	if span != "" {
		return fmt.Sprintf("### %s, %s (%s)\n\n", exp.Role, exp.Company, span)
	}
	return fmt.Sprintf("### %s, %s\n\n", exp.Role, exp.Company)
}

// convertMarkdownToPDF converts markdown content to a PDF byte slice.
func (d *Default) convertMarkdownToPDF(markdown, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 10)
	pdf.SetTitle(title, true)

	gm := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	source := []byte(markdown)
	doc := gm.Parser().Parse(text.NewReader(source))

	renderer := &pdfRenderer{pdf: pdf, source: source, font: "Arial", size: 10}
	if err := renderer.render(doc); err != nil {
		return nil, fmt.Errorf("failed to render application pack PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	font      string
	size      float64
	bold      bool
	italic    bool
	inList    bool
	listLevel int
}

func (r *pdfRenderer) render(node ast.Node) error {
	return ast.Walk(node, r.walk)
}

func (r *pdfRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, r.size)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		return r.handleHeading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		return r.handleParagraph(entering)
	case ast.KindText:
		return r.handleText(n.(*ast.Text), entering)
	case ast.KindEmphasis:
		return r.handleEmphasis(n.(*ast.Emphasis), entering)
	case ast.KindList:
		return r.handleList(entering)
	case ast.KindListItem:
		return r.handleListItem(entering)
	case ast.KindThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case extast.KindTable:
		return r.handleTable(n.(*extast.Table), entering)
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) handleHeading(n *ast.Heading, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.pdf.Ln(6)
		size := 14.0
		switch n.Level {
		case 1:
			size = 16
		case 2:
			size = 13
		case 3:
			size = 11
		default:
			size = 10
		}
		r.pdf.SetFont("Arial", "B", size)
	} else {
		r.pdf.Ln(6)
		r.updateFont()
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) handleParagraph(entering bool) (ast.WalkStatus, error) {
	if !entering {
		r.pdf.Ln(6)
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) handleText(n *ast.Text, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.pdf.Write(5, string(n.Text(r.source)))
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) handleEmphasis(n *ast.Emphasis, entering bool) (ast.WalkStatus, error) {
	if n.Level == 2 {
		r.bold = entering
	} else {
		r.italic = entering
	}
	r.updateFont()
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) handleList(entering bool) (ast.WalkStatus, error) {
	if entering {
		r.inList = true
		r.listLevel++
	} else {
		r.listLevel--
		if r.listLevel == 0 {
			r.inList = false
			r.pdf.Ln(2)
		}
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) handleListItem(entering bool) (ast.WalkStatus, error) {
	if entering {
		r.pdf.Ln(5)
		indent := float64(r.listLevel) * 5.0
		r.pdf.SetX(15 + indent)
		r.pdf.Write(5, "- ")
	}
	return ast.WalkContinue, nil
}

// handleTable renders simple skill-matrix style tables; résumé packs rarely
// use tables but the extension is enabled for markdown produced elsewhere.
func (r *pdfRenderer) handleTable(n *extast.Table, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	var rows [][]string
	var findRows func(node ast.Node)
	findRows = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			if tr, ok := child.(*extast.TableRow); ok {
				rows = append(rows, r.extractRow(tr))
			} else if _, ok := child.(*extast.TableHeader); ok {
				findRows(child)
			}
		}
	}
	findRows(n)
	r.renderTable(rows)
	return ast.WalkSkipChildren, nil
}

func (r *pdfRenderer) extractRow(n *extast.TableRow) []string {
	var row []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			row = append(row, string(cell.Text(r.source)))
		}
	}
	return row
}

func (r *pdfRenderer) renderTable(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	r.pdf.Ln(2)
	numCols := len(rows[0])
	if numCols == 0 {
		return
	}
	colWidth := 180.0 / float64(numCols)
	fontSize := 9.0
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont("Arial", "B", fontSize)
			r.pdf.SetFillColor(230, 230, 230)
		} else {
			r.pdf.SetFont("Arial", "", fontSize)
			r.pdf.SetFillColor(255, 255, 255)
		}
		for j := 0; j < numCols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			r.pdf.CellFormat(colWidth, 6, cell, "1", 0, "L", true, 0, "")
		}
		r.pdf.Ln(6)
	}
	r.pdf.Ln(3)
	r.updateFont()
}
