package importer

import "strings"

// field is a semantic target a spreadsheet column can map to.
type field string

const (
	fieldOrderNumber   field = "numero_orden"
	fieldShortText     field = "texto_breve"
	fieldEquipment     field = "equipo"
	fieldEquipmentDesc field = "descripcion_equipo"
	fieldLocation      field = "ubicacion_tecnica"
	fieldLocationDesc  field = "descripcion_ubicacion"
	fieldStartDate     field = "inicio_extremo"
	fieldEndDate       field = "fin_extremo"
	fieldPriority      field = "prioridad"
	fieldOpCode        field = "operacion"
	fieldOpShortText   field = "texto_breve_operacion"
	fieldWorkCenter    field = "puesto_trabajo"
)

// headerTargets maps a normalized column label to its targets in occurrence
// order. The planning export reuses the label "Descripción" for two distinct
// fields: the first occurrence is the equipment description, the second the
// technical-location description, and any further occurrence is ignored.
// Disambiguation is positional on purpose; do not collapse it into a
// smarter rule while the upstream export keeps duplicate labels.
var headerTargets = map[string][]field{
	"orden":                 {fieldOrderNumber},
	"texto breve":           {fieldShortText},
	"equipo":                {fieldEquipment},
	"descripcion":           {fieldEquipmentDesc, fieldLocationDesc},
	"ubicacion tecnica":     {fieldLocation},
	"inicio extremo":        {fieldStartDate},
	"fin extremo":           {fieldEndDate},
	"prioridad":             {fieldPriority},
	"operacion":             {fieldOpCode},
	"texto breve operacion": {fieldOpShortText},
	"puesto de trabajo":     {fieldWorkCenter},
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ü", "u", "Ñ", "n",
)

// normalizeLabel lowercases, trims and strips Spanish diacritics so
// "Descripción" and "Descripcion" count as occurrences of the same label.
func normalizeLabel(s string) string {
	return accentReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// mapHeader resolves each column index to a semantic field. Unknown labels
// and surplus occurrences of duplicated labels pass through unmapped.
func mapHeader(header []string) map[field]int {
	seen := map[string]int{}
	out := map[field]int{}
	for i, raw := range header {
		label := normalizeLabel(raw)
		targets, ok := headerTargets[label]
		if !ok {
			continue
		}
		occ := seen[label]
		seen[label] = occ + 1
		if occ >= len(targets) {
			continue
		}
		// first mapping wins if the same target somehow appears twice
		if _, dup := out[targets[occ]]; !dup {
			out[targets[occ]] = i
		}
	}
	return out
}

// cell returns the trimmed value of a mapped field for one row, or "" when
// the column is absent or the row is short.
func cell(row []string, cols map[field]int, f field) string {
	idx, ok := cols[f]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
