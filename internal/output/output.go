// Package output печатает результаты прогона в консоль
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
	tw "github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header []string) *tw.Table {
	table := tw.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderLine(true)
	table.SetBorder(true)
	table.SetAutoWrapText(true)
	table.SetAutoFormatHeaders(true)
	return table
}

// TableOutput - итоговый отчёт: по строке на claim и сводка
func TableOutput(w io.Writer, report *models.FinalReport) error {
	if report == nil {
		return fmt.Errorf("nil report")
	}

	table := newTable(w, []string{"ID", "Title", "Severity", "Final Status", "Confidence", "Priority"})
	table.SetColMinWidth(1, 30)
	for _, v := range report.Vulnerabilities {
		table.Append([]string{
			string(v.VulnerabilityID),
			v.Title,
			v.OriginalSeverity,
			v.FinalStatus,
			v.ConfidenceLevel,
			v.Priority,
		})
	}
	table.Render()

	s := report.VulnerabilitySummary
	_, err := fmt.Fprintf(w, "Total: %d | Vulnerable: %d | Possible: %d | Not vulnerable: %d | High priority: %d\n",
		s.Total, s.Confirmed, s.Possible, s.NotVulnerable, s.HighPriorityCount)
	if err != nil {
		return err
	}
	if report.ReportMetadata.FallbackMode {
		_, err = fmt.Fprintln(w, "Note: rule-based fallback was used for triage")
	}
	return err
}

// ClaimsOutput - что вытащил reader
func ClaimsOutput(w io.Writer, result *models.ReaderResult) error {
	if result == nil {
		return fmt.Errorf("nil reader result")
	}
	if result.ParsingError {
		_, err := fmt.Fprintln(w, "Report could not be parsed, raw content was kept")
		return err
	}

	table := newTable(w, []string{"ID", "Title", "Type", "Severity", "Components"})
	for _, c := range result.Vulnerabilities {
		table.Append([]string{
			string(c.ID),
			c.Title,
			c.Type,
			c.Severity,
			strings.Join(c.AffectedComponents, ", "),
		})
	}
	table.Render()
	_, err := fmt.Fprintf(w, "Claims: %d\n", len(result.Vulnerabilities))
	return err
}

func StaticOutput(w io.Writer, result *models.StaticResult) error {
	if result == nil {
		return fmt.Errorf("nil static result")
	}

	table := newTable(w, []string{"ID", "Static Status", "Confidence", "Locations"})
	for _, v := range result.Assessments {
		table.Append([]string{
			string(v.VulnerabilityID),
			v.Status,
			v.Confidence,
			strings.Join(v.CodeLocations, ", "),
		})
	}
	table.Render()

	for _, e := range result.Errors {
		if _, err := fmt.Fprintf(w, "Scanner: %s\n", e); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Scanner findings: %d | Additional findings: %d\n",
		len(result.Findings), len(result.AdditionalFindings))
	return err
}

func DynamicOutput(w io.Writer, result *models.DynamicResult) error {
	if result == nil {
		return fmt.Errorf("nil dynamic result")
	}

	table := newTable(w, []string{"ID", "Title", "Dynamic Status", "Confidence", "Attempts"})
	for _, v := range result.Results {
		status := v.Status
		if v.Untestable {
			status += " (untestable)"
		}
		table.Append([]string{
			string(v.VulnerabilityID),
			v.Title,
			status,
			v.Confidence,
			fmt.Sprint(len(v.Attempts)),
		})
	}
	table.Render()

	s := result.Summary
	_, err := fmt.Fprintf(w, "Tested: %d | Confirmed: %d | Possible: %d | Not reproducible: %d | Untestable: %d\n",
		s.Tested, s.Confirmed, s.Possible, s.NotReproducible, s.Untestable)
	return err
}

// HistoryOutput - список прошлых оценок, новые сверху
func HistoryOutput(w io.Writer, items []models.AssessmentSummary) error {
	table := newTable(w, []string{"Document ID", "Created", "Mode", "Status", "Stage", "Done", "Vulns"})
	for _, it := range items {
		table.Append([]string{
			it.ID,
			it.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			it.ExecutionMode,
			it.Status,
			it.CurrentStage,
			fmt.Sprintf("%d%%", it.CompletionPercentage),
			fmt.Sprint(it.Vulnerabilities),
		})
	}
	table.Render()
	_, err := fmt.Fprintf(w, "Assessments: %d\n", len(items))
	return err
}
