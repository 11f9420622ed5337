// Package payload extracts fields from the Records Provider's
// loosely-structured JSON. The provider's schema drifts between its own
// revisions, so every lookup is an ordered list of candidate paths evaluated
// first-match-wins. The path lists are the union of every field name seen
// across provider revisions.
package payload

import (
	"encoding/base64"
	"strings"

	"github.com/tidwall/gjson"
)

// MinDocumentBase64Len guards against empty or placeholder document strings:
// anything shorter cannot plausibly be a real encoded document.
const MinDocumentBase64Len = 512

var requestIDPaths = []string{
	"uuid",
	"data.uuid",
	"requestId",
	"request_id",
	"data.requestId",
	"data.request_id",
	"id",
	"data.id",
}

var documentPaths = []string{
	"pdf",
	"data.pdf",
	"pdfBase64",
	"pdf_base64",
	"document",
	"data.document",
	"archivo",
	"data.archivo",
	"file",
	"data.file",
}

var namePaths = []string{
	"nombre",
	"data.nombre",
	"name",
	"data.name",
}

var nssPaths = []string{"nss", "data.nss"}
var curpPaths = []string{"curp", "data.curp"}

var weeksTotalPaths = []string{
	"semanasCotizadas",
	"semanas_cotizadas",
	"data.semanasCotizadas",
	"data.semanas_cotizadas",
	"semanas.semanasCotizadas",
	"totalSemanas",
}

var weeksDiscountedPaths = []string{
	"semanasDescontadas",
	"semanas_descontadas",
	"data.semanasDescontadas",
	"semanas.semanasDescontadas",
}

var weeksReinstatedPaths = []string{
	"semanasReintegradas",
	"semanas_reintegradas",
	"data.semanasReintegradas",
	"semanas.semanasReintegradas",
}

var recordListPaths = []string{
	"historialLaboral",
	"historial_laboral",
	"data.historialLaboral",
	"data.historial_laboral",
	"registros",
	"data.registros",
	"records",
}

var employerPaths = []string{"nombrePatron", "nombre_patron", "patron", "empresa"}
var registrationPaths = []string{"registroPatronal", "registro_patronal"}
var startDatePaths = []string{"fechaAlta", "fecha_alta"}
var endDatePaths = []string{"fechaBaja", "fecha_baja"}
var salaryPaths = []string{"salarioBaseCotizacion", "salario_base_cotizacion", "salario"}

// EmploymentRecord is one itemized entry of a labor history.
type EmploymentRecord struct {
	Employer     string
	Registration string
	StartDate    string
	EndDate      string
	Salary       string
}

// Summary holds the structured fields extracted from a result payload.
type Summary struct {
	Name            string
	CURP            string
	NSS             string
	WeeksTotal      string
	WeeksDiscounted string
	WeeksReinstated string
	Records         []EmploymentRecord
}

func firstString(json gjson.Result, paths []string) string {
	for _, p := range paths {
		if v := json.Get(p); v.Exists() {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// RequestID extracts the correlation identifier from a provider body, "" if
// none of the known variants is present.
func RequestID(body []byte) string {
	return firstString(gjson.ParseBytes(body), requestIDPaths)
}

// Document locates an embedded base64 document. It returns the decoded bytes
// only when the encoded string exceeds the minimum plausible length and
// decodes cleanly.
func Document(body []byte) ([]byte, bool) {
	encoded := firstString(gjson.ParseBytes(body), documentPaths)
	if len(encoded) < MinDocumentBase64Len {
		return nil, false
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false
	}
	return decoded, true
}

// Summarize extracts whatever structured fields the payload carries, for
// the fallback report.
func Summarize(body []byte) Summary {
	root := gjson.ParseBytes(body)

	sum := Summary{
		Name:            firstString(root, namePaths),
		CURP:            firstString(root, curpPaths),
		NSS:             firstString(root, nssPaths),
		WeeksTotal:      firstString(root, weeksTotalPaths),
		WeeksDiscounted: firstString(root, weeksDiscountedPaths),
		WeeksReinstated: firstString(root, weeksReinstatedPaths),
	}

	for _, p := range recordListPaths {
		list := root.Get(p)
		if !list.IsArray() {
			continue
		}
		list.ForEach(func(_, item gjson.Result) bool {
			sum.Records = append(sum.Records, EmploymentRecord{
				Employer:     firstString(item, employerPaths),
				Registration: firstString(item, registrationPaths),
				StartDate:    firstString(item, startDatePaths),
				EndDate:      firstString(item, endDatePaths),
				Salary:       firstString(item, salaryPaths),
			})
			return true
		})
		break
	}

	return sum
}
