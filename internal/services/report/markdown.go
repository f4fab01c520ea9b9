package report

import (
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/marwane019/board-report-generator/internal/models"
)

// buildMarkdown assembles the narrative body of the board pack.
func buildMarkdown(pkg *models.MetricsPackage, narrative *models.NarrativePackage) string {
	var b strings.Builder

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(narrative.ExecutiveSummary)
	b.WriteString("\n\n## Financial Performance\n\n")
	b.WriteString(narrative.Financial)
	b.WriteString("\n\n## Commercial\n\n")
	b.WriteString(narrative.Commercial)
	b.WriteString("\n\n## Customers\n\n")
	b.WriteString(narrative.Customer)
	b.WriteString("\n\n## People\n\n")
	b.WriteString(narrative.Operational)
	b.WriteString("\n\n## Outlook\n\n")
	b.WriteString(narrative.Outlook)

	if len(narrative.Risks) > 0 {
		b.WriteString("\n\n### Risk Register\n\n")
		b.WriteString("| Risk | Likelihood | Impact | Mitigation |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, risk := range narrative.Risks {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				risk.Risk, risk.Likelihood, risk.Impact, risk.Mitigation)
		}
	}
	b.WriteString("\n")
	return b.String()
}

// renderMarkdown walks the goldmark AST and writes it into the PDF.
func renderMarkdown(pdf *fpdf.Fpdf, markdown string) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	r := &bodyRenderer{pdf: pdf, source: source, font: "Arial", size: 10}
	r.updateFont()
	return ast.Walk(doc, r.walk)
}

type bodyRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	font      string
	size      float64
	bold      bool
	italic    bool
	listLevel int
}

func (r *bodyRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, r.size)
}

func (r *bodyRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		r.handleHeading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			r.pdf.Ln(8)
		}
	case ast.KindText:
		if entering {
			r.pdf.Write(5, string(n.Text(r.source)))
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case ast.KindList:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(2)
			}
		}
	case ast.KindListItem:
		if entering {
			r.pdf.Ln(5)
			r.pdf.SetX(15 + float64(r.listLevel)*5)
			r.pdf.Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case extast.KindTable:
		if entering {
			r.renderTable(n.(*extast.Table))
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *bodyRenderer) handleHeading(n *ast.Heading, entering bool) {
	if entering {
		r.pdf.Ln(6)
		size := 13.0
		switch n.Level {
		case 2:
			size = 13
		case 3:
			size = 11
		default:
			size = 10
		}
		r.pdf.SetFont(r.font, "B", size)
	} else {
		r.pdf.Ln(7)
		r.updateFont()
	}
}

func (r *bodyRenderer) renderTable(table *extast.Table) {
	var rows [][]string
	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			if row, ok := child.(*extast.TableRow); ok {
				rows = append(rows, r.extractRow(row))
			} else if _, ok := child.(*extast.TableHeader); ok {
				collect(child)
			}
		}
	}
	collect(table)
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	const (
		pageWidth  = 180.0
		fontSize   = 8.0
		lineHeight = 4.0
	)
	numCols := len(rows[0])
	colWidth := pageWidth / float64(numCols)

	r.pdf.Ln(2)
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont(r.font, "B", fontSize)
			r.pdf.SetFillColor(230, 230, 230)
		} else {
			r.pdf.SetFont(r.font, "", fontSize)
			r.pdf.SetFillColor(255, 255, 255)
		}

		maxLines := 1
		for _, cell := range row {
			if lines := r.linesNeeded(cell, colWidth-2); lines > maxLines {
				maxLines = lines
			}
		}
		if maxLines > 8 {
			maxLines = 8
		}
		rowHeight := float64(maxLines)*lineHeight + 2

		startX, startY := r.pdf.GetX(), r.pdf.GetY()
		if startY+rowHeight > 282 {
			r.pdf.AddPage()
			startY = r.pdf.GetY()
		}

		for j, cell := range row {
			if j >= numCols {
				break
			}
			x := startX + float64(j)*colWidth
			fill := "D"
			if i == 0 {
				fill = "FD"
			}
			r.pdf.Rect(x, startY, colWidth, rowHeight, fill)
			r.pdf.SetXY(x+1, startY+1)
			r.writeWrapped(cell, colWidth-2, lineHeight, maxLines)
		}
		r.pdf.SetXY(startX, startY+rowHeight)
	}
	r.pdf.Ln(3)
	r.updateFont()
}

func (r *bodyRenderer) extractRow(n *extast.TableRow) []string {
	var row []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			row = append(row, string(cell.Text(r.source)))
		}
	}
	return row
}

func (r *bodyRenderer) linesNeeded(text string, width float64) int {
	if width <= 0 {
		return 1
	}
	lines := 1
	var lineWidth float64
	for _, word := range strings.Fields(text) {
		w := r.pdf.GetStringWidth(word + " ")
		if lineWidth+w > width {
			lines++
			lineWidth = w
		} else {
			lineWidth += w
		}
	}
	return lines
}

func (r *bodyRenderer) writeWrapped(text string, width, lineHeight float64, maxLines int) {
	startX := r.pdf.GetX()
	var lineWidth float64
	line := 1
	for _, word := range strings.Fields(text) {
		w := r.pdf.GetStringWidth(word + " ")
		if lineWidth+w > width {
			if line >= maxLines {
				return
			}
			line++
			lineWidth = 0
			r.pdf.SetXY(startX, r.pdf.GetY()+lineHeight)
		}
		r.pdf.Write(lineHeight, word+" ")
		lineWidth += w
	}
}
