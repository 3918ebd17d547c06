// Package report exports processed complaints to spreadsheets.
package report

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/Vini334/ReclamaAI/internal/model"
)

// Sheet names.
const (
	ComplaintsSheet = "Reclamacoes"
	SummarySheet    = "Resumo"
)

// ComplaintHeader is the first row of the complaints sheet.
var ComplaintHeader = []string{
	"ID", "ID Externo", "Fonte", "Status", "Categoria", "Sentimento", "Urgência",
	"Prioridade", "Time", "SLA (h)", "Ticket", "Link", "Notificado", "Erros",
}

// WriteXLSX writes one row per workflow state plus a summary sheet to path.
func WriteXLSX(path string, states []*model.WorkflowState) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(ComplaintsSheet)
	if err != nil {
		return eris.Wrap(err, "report: add complaints sheet")
	}
	addRow(sheet, ComplaintHeader)
	for _, st := range states {
		addRow(sheet, complaintRow(st))
	}

	summary, err := f.AddSheet(SummarySheet)
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	for _, row := range summaryRows(states) {
		addRow(summary, row)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "report: save xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

func complaintRow(st *model.WorkflowState) []string {
	row := make([]string, len(ComplaintHeader))
	row[0] = st.ComplaintID()
	row[1] = st.Raw.ExternalID
	row[2] = string(st.Raw.Source)
	row[3] = string(st.Status)
	if a := st.Analysis; a != nil {
		row[4] = string(a.Category)
		row[5] = string(a.Sentiment)
		row[6] = string(a.Urgency)
	}
	if r := st.Routing; r != nil {
		row[7] = string(r.Priority)
		row[8] = r.Team
		row[9] = strconv.Itoa(r.SLAHours)
	}
	if t := st.Ticket; t != nil {
		row[10] = t.JiraKey
		row[11] = t.JiraLink
	}
	if n := st.Notification; n != nil {
		row[12] = n.EmailTo
	}
	row[13] = strings.Join(st.Errors, " | ")
	return row
}

func summaryRows(states []*model.WorkflowState) [][]string {
	byStatus := make(map[string]int)
	success, failed := 0, 0
	for _, st := range states {
		byStatus[string(st.Status)]++
		switch {
		case st.Status == model.StatusCompleted:
			success++
		case st.IsFailed():
			failed++
		}
	}

	rows := [][]string{
		{"Métrica", "Valor"},
		{"Total", strconv.Itoa(len(states))},
		{"Concluídas", strconv.Itoa(success)},
		{"Falhas", strconv.Itoa(failed)},
	}

	statuses := make([]string, 0, len(byStatus))
	for s := range byStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		rows = append(rows, []string{"Status " + s, strconv.Itoa(byStatus[s])})
	}
	return rows
}
