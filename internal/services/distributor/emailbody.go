package distributor

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/models"
)

const emailBodyTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: {{.TextColor}}; margin: 0; padding: 24px;">
  <h1 style="color: {{.PrimaryColor}}; margin-top: 0;">{{.Title}} &mdash; {{.Period}}</h1>
  <p>{{.Summary}}</p>
  <table cellpadding="0" cellspacing="8" style="width: 100%; max-width: 640px;">
    {{range .Rows}}
    <tr>
      {{range .}}
      <td style="background: {{.Color}}; color: #ffffff; border-radius: 6px; padding: 12px 16px; width: 50%;">
        <div style="font-size: 12px; font-weight: 600;">{{.Title}}</div>
        <div style="font-size: 22px; font-weight: 700;">{{.Display}}</div>
        <div style="font-size: 11px; text-transform: uppercase;">{{.Status}}</div>
      </td>
      {{end}}
    </tr>
    {{end}}
  </table>
  <p style="font-size: 12px; color: #777;">Full board pack attached. This message was generated automatically.</p>
</body>
</html>`

type emailTile struct {
	Title   string
	Display string
	Status  string
	Color   string
}

type emailData struct {
	Title        string
	Period       string
	Summary      string
	PrimaryColor string
	TextColor    string
	Rows         [][]emailTile
}

// buildEmailBody renders the HTML summary that accompanies the attached
// artifacts: the executive summary plus a RAG tile per KPI.
func buildEmailBody(cfg *common.Config, pkg *models.MetricsPackage, narrative *models.NarrativePackage) (string, error) {
	brand := cfg.Report.Brand
	statusColor := func(s models.RAGStatus) string {
		switch s {
		case models.StatusGreen:
			return brand.Green
		case models.StatusAmber:
			return brand.Amber
		case models.StatusRed:
			return brand.Red
		default:
			return "#787878"
		}
	}

	var tiles []emailTile
	for _, name := range models.AllKPINames() {
		result, ok := pkg.KPIs[name]
		if !ok {
			continue
		}
		display := result.Display
		if result.NotComputable {
			display = "n/a"
		}
		tiles = append(tiles, emailTile{
			Title:   name.Title(),
			Display: display,
			Status:  string(result.Status),
			Color:   statusColor(result.Status),
		})
	}

	var rows [][]emailTile
	for start := 0; start < len(tiles); start += 2 {
		end := start + 2
		if end > len(tiles) {
			end = len(tiles)
		}
		rows = append(rows, tiles[start:end])
	}

	summary := ""
	if narrative != nil {
		summary = narrative.ExecutiveSummary
	}

	data := emailData{
		Title:        fmt.Sprintf("%s %s", pkg.Company, cfg.Report.Title),
		Period:       pkg.Period,
		Summary:      summary,
		PrimaryColor: brand.Primary,
		TextColor:    brand.Text,
		Rows:         rows,
	}

	tmpl, err := template.New("email").Parse(emailBodyTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing email template: %w", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering email body: %w", err)
	}
	return b.String(), nil
}
