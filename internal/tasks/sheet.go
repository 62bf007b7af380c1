package tasks

import (
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

// columnMap normalizes spreadsheet headers to stable case-record keys.
var columnMap = map[string]string{
	"EGN-EIK":        "egn_or_eik",
	"No_ID":          "case_no",
	"NSSI_Assur":     "do_noi_assur",
	"Regix-NOI_Trud": "do_regix_noi_trud",
	"Regix-NOI_Pens": "do_regix_noi_pens",
	"GRAO":           "do_grao",
	"BNB":            "do_bnb",
	"IKAR":           "do_ikar",
	"NAP_art74":      "do_nap_art74",
	"NAP_art191":     "do_nap_art191",
	"DVIJEMI":        "do_dvijemi",
	"BEZ_ZAPORI":     "do_bez_zapori",
}

// flagColumns are the registry-check toggles, normalized to 0/1.
var flagColumns = func() []string {
	var flags []string
	for _, v := range columnMap {
		if strings.HasPrefix(v, "do_") {
			flags = append(flags, v)
		}
	}
	return flags
}()

// truthyText marks the spreadsheet spellings that count as an enabled flag.
var truthyText = map[string]bool{
	"1": true, "1.0": true, "да": true, "д": true,
	"yes": true, "y": true, "true": true, "t": true,
	"✓": true, "x": true,
}

// SheetGroup returns the spreadsheet parsing group.
func SheetGroup() *Group {
	return NewGroup("sheet", nil,
		NewFunc("read_cases", "Read and normalize a case list from a spreadsheet", readCases),
	)
}

// readCases loads the first (or named) sheet, normalizes headers and flag
// columns, and returns one record per data row. Rows whose ten-digit
// identifier fails the EGN checksum are reported by spreadsheet row number
// but still included.
func readCases(_ context.Context, in Input) (any, error) {
	path, ok := in.GetString("path")
	if !ok || path == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "read_cases requires a path kwarg")
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeTaskExecution,
			"cannot open spreadsheet %s: %s", path, err.Error()).WithCause(err)
	}
	defer f.Close()

	sheet, _ := in.GetString("sheet")
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeTaskExecution,
			"cannot read sheet %q: %s", sheet, err.Error()).WithCause(err)
	}
	if len(rows) == 0 {
		return map[string]any{"cases": []any{}, "cases_total": 0}, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if mapped, ok := columnMap[h]; ok {
			h = mapped
		}
		headers[i] = h
	}

	var (
		cases       []any
		invalidRows []any
	)
	for rowIdx, row := range rows[1:] {
		record := make(map[string]any, len(headers)+len(flagColumns))
		for i, header := range headers {
			if header == "" {
				continue
			}
			val := ""
			if i < len(row) {
				val = strings.TrimSpace(row[i])
			}
			record[header] = val
		}

		for _, flag := range flagColumns {
			record[flag] = normalizeFlag(record[flag])
		}

		if egn, ok := record["egn_or_eik"].(string); ok {
			if len(egn) == 10 && allDigits(egn) && !validEGN(egn) {
				// +2: one for the header row, one for 1-based numbering.
				invalidRows = append(invalidRows, rowIdx+2)
			}
		}

		cases = append(cases, record)
	}

	result := map[string]any{
		"cases":       cases,
		"cases_total": len(cases),
	}
	if len(invalidRows) > 0 {
		result["invalid_egn_rows"] = invalidRows
	}
	return result, nil
}

func normalizeFlag(v any) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	if truthyText[strings.ToLower(strings.TrimSpace(s))] {
		return 1
	}
	return 0
}

// egnWeights are the checksum weights for the first nine digits.
var egnWeights = [9]int{2, 4, 8, 5, 10, 9, 7, 3, 6}

// validEGN verifies the mod-11 checksum of a ten-digit personal identifier.
func validEGN(s string) bool {
	if len(s) != 10 || !allDigits(s) {
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(s[i]-'0') * egnWeights[i]
	}
	check := sum % 11
	if check == 10 {
		check = 0
	}
	return check == int(s[9]-'0')
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
