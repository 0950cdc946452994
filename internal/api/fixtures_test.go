package api

import (
	"fmt"
	"strings"
)

const resultsHeader = `<tr><th>Date</th><th>Last trade price</th><th>Max</th><th>Min</th>` +
	`<th>Avg. Price</th><th>%chg.</th><th>Volume</th><th>Turnover in BEST in denars</th>` +
	`<th>Total turnover in denars</th></tr>`

// historyPage renders a symbol history page whose result table holds rows.
// Each row is a full set of nine cell texts.
func historyPage(rows ...[]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><form id="search"><select id="Code"><option value="ALK">ALK</option></select></form>`)
	b.WriteString(`<table id="resultsTable"><thead>` + resultsHeader + `</thead><tbody>`)
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			fmt.Fprintf(&b, "<td>%s</td>", cell)
		}
		b.WriteString("</tr>")
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

func fullRow(date, last string) []string {
	return []string{date, last, "24,100.00", "23,500.00", "23,800.00", "0.42", "1,215", "28,917,050", "28,917,050"}
}

const listingPage = `<html><body>
<table id="otherlisting-table">
  <thead><tr><th>Code</th><th>Name</th></tr></thead>
  <tbody>
    <tr><td>ALK</td><td>Alkaloid Skopje</td></tr>
    <tr><td> KMB </td><td>Komercijalna banka Skopje</td></tr>
    <tr><td>ALK</td><td>Alkaloid Skopje</td></tr>
    <tr><td>RMDEN21</td><td>Denationalization bond</td></tr>
  </tbody>
</table>
</body></html>`

const dropdownPage = `<html><body>
<select id="Code">
  <option value="ADIN">ADIN</option>
  <option value="ALK">ALK</option>
  <option value="KMB">KMB</option>
  <option value="ALK">ALK</option>
</select>
</body></html>`
