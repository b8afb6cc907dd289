// Package importer reads designs from spreadsheets and writes designs and
// analysis results back out.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/model"
)

const (
	SheetConditions = "Conditions"
	SheetJoints     = "Joints"
	SheetMembers    = "Members"
	SheetRatings    = "Ratings"
	SheetForces     = "Forces"
)

var (
	jointHead  = []string{"id", "x", "y", "support"}
	memberHead = []string{"id", "a", "b", "material", "section", "size"}
)

// columnsOf maps lower-cased header names to column indices and checks that
// every required header is present.
func columnsOf(sheet string, header []string, required []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, r := range required {
		if _, ok := cols[r]; !ok {
			return nil, fmt.Errorf("sheet %s: missing column %q", sheet, r)
		}
	}
	return cols, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func toFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

// ReadDesign parses a design workbook. Rows with an empty id are skipped.
func ReadDesign(r io.Reader) (model.Design, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return model.Design{}, err
	}
	defer f.Close()

	var d model.Design
	if err := readConditions(f, &d); err != nil {
		return model.Design{}, err
	}

	rows, err := f.GetRows(SheetJoints)
	if err != nil {
		return model.Design{}, fmt.Errorf("sheet %s: %w", SheetJoints, err)
	}
	if len(rows) < 2 {
		return model.Design{}, fmt.Errorf("sheet %s: no joints", SheetJoints)
	}
	cols, err := columnsOf(SheetJoints, rows[0], jointHead[:3])
	if err != nil {
		return model.Design{}, err
	}
	for n, row := range rows[1:] {
		if cell(row, cols["id"]) == "" {
			continue
		}
		j, err := parseJoint(row, cols)
		if err != nil {
			return model.Design{}, fmt.Errorf("sheet %s row %d: %w", SheetJoints, n+2, err)
		}
		d.Joints = append(d.Joints, j)
	}

	rows, err = f.GetRows(SheetMembers)
	if err != nil {
		return model.Design{}, fmt.Errorf("sheet %s: %w", SheetMembers, err)
	}
	if len(rows) == 0 {
		return d, nil
	}
	cols, err = columnsOf(SheetMembers, rows[0], memberHead)
	if err != nil {
		return model.Design{}, err
	}
	for n, row := range rows[1:] {
		if cell(row, cols["id"]) == "" {
			continue
		}
		m, err := parseMember(row, cols)
		if err != nil {
			return model.Design{}, fmt.Errorf("sheet %s row %d: %w", SheetMembers, n+2, err)
		}
		d.Members = append(d.Members, m)
	}
	return d, nil
}

func parseJoint(row []string, cols map[string]int) (model.Joint, error) {
	id, err := strconv.Atoi(cell(row, cols["id"]))
	if err != nil {
		return model.Joint{}, err
	}
	x, err := toFloat(cell(row, cols["x"]))
	if err != nil {
		return model.Joint{}, err
	}
	y, err := toFloat(cell(row, cols["y"]))
	if err != nil {
		return model.Joint{}, err
	}
	j := model.Joint{ID: id, X: x, Y: y}
	if i, ok := cols["support"]; ok {
		j.Support = model.Support(strings.ToLower(cell(row, i)))
	}
	return j, nil
}

func parseMember(row []string, cols map[string]int) (model.Member, error) {
	var v [4]int
	for k, name := range []string{"id", "a", "b", "size"} {
		n, err := strconv.Atoi(cell(row, cols[name]))
		if err != nil {
			return model.Member{}, fmt.Errorf("%s: %w", name, err)
		}
		v[k] = n
	}
	return model.Member{
		ID: v[0], A: v[1], B: v[2],
		Stock: model.Stock{Material: cell(row, cols["material"]), Section: cell(row, cols["section"]), Size: v[3]},
	}, nil
}

// readConditions reads optional key/value rows.
func readConditions(f *excelize.File, d *model.Design) error {
	if idx, err := f.GetSheetIndex(SheetConditions); err != nil || idx < 0 {
		return nil
	}
	rows, err := f.GetRows(SheetConditions)
	if err != nil {
		return err
	}
	c := &d.Conditions
	for _, row := range rows {
		key, val := strings.ToLower(cell(row, 0)), cell(row, 1)
		if val == "" {
			continue
		}
		var err error
		switch key {
		case "name":
			d.Name = val
		case "panel_count":
			c.PanelCount, err = strconv.Atoi(val)
		case "panel_length":
			c.PanelLength, err = toFloat(val)
		case "deck_elevation":
			c.DeckElevation, err = toFloat(val)
		case "allowable_slenderness":
			c.AllowableSlenderness, err = toFloat(val)
		case "load_type":
			c.LoadType = model.LoadType(strings.ToLower(val))
		case "deck_type":
			c.DeckType = model.DeckType(strings.ToLower(val))
		}
		if err != nil {
			return fmt.Errorf("sheet %s %s: %w", SheetConditions, key, err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	addr, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, addr, &values)
}

// WriteDesign fills the condition, joint and member sheets of f.
func WriteDesign(f *excelize.File, d model.Design) error {
	if err := f.SetSheetName(f.GetSheetName(0), SheetConditions); err != nil {
		return err
	}
	c := d.Conditions
	kv := [][]interface{}{
		{"name", d.Name},
		{"panel_count", c.PanelCount},
		{"panel_length", c.PanelLength},
		{"deck_elevation", c.DeckElevation},
		{"load_type", string(c.LoadType)},
		{"deck_type", string(c.DeckType)},
		{"allowable_slenderness", c.AllowableSlenderness},
	}
	for i, r := range kv {
		if err := setRow(f, SheetConditions, i+1, r); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetJoints); err != nil {
		return err
	}
	if err := setRow(f, SheetJoints, 1, []interface{}{"ID", "X", "Y", "Support"}); err != nil {
		return err
	}
	for i, j := range d.Joints {
		if err := setRow(f, SheetJoints, i+2, []interface{}{j.ID, j.X, j.Y, string(j.Support)}); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetMembers); err != nil {
		return err
	}
	if err := setRow(f, SheetMembers, 1, []interface{}{"ID", "A", "B", "Material", "Section", "Size"}); err != nil {
		return err
	}
	for i, m := range d.Members {
		row := []interface{}{m.ID, m.A, m.B, m.Stock.Material, m.Stock.Section, m.Stock.Size}
		if err := setRow(f, SheetMembers, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary adds the member ratings and, when the summary carries them,
// the member forces of every load case.
func WriteSummary(f *excelize.File, sum *analysis.Summary) error {
	if _, err := f.NewSheet(SheetRatings); err != nil {
		return err
	}
	head := []interface{}{"ID", "Material", "Section", "Shape", "Length (m)", "Slenderness",
		"Max compression (kN)", "Compressive strength (kN)", "Compression ratio",
		"Max tension (kN)", "Tensile strength (kN)", "Tension ratio", "Status"}
	if err := setRow(f, SheetRatings, 1, head); err != nil {
		return err
	}
	for i, m := range sum.Members {
		row := []interface{}{m.ID, m.Stock.Material, m.Stock.Section, m.Shape, m.Length, m.Slenderness,
			m.MaxCompressionKN, m.CompressiveStrengthKN, m.CompressionRatio,
			m.MaxTensionKN, m.TensileStrengthKN, m.TensionRatio, string(m.Status)}
		if err := setRow(f, SheetRatings, i+2, row); err != nil {
			return err
		}
	}
	status := len(sum.Members) + 3
	if err := setRow(f, SheetRatings, status, []interface{}{"Status", string(sum.Status)}); err != nil {
		return err
	}

	if len(sum.Results) == 0 || len(sum.Results[0].Forces) == 0 {
		return nil
	}
	if _, err := f.NewSheet(SheetForces); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(SheetForces)
	if err != nil {
		return err
	}
	head = []interface{}{"Position"}
	for _, m := range sum.Members {
		head = append(head, fmt.Sprintf("M%d", m.ID))
	}
	if err := sw.SetRow("A1", head); err != nil {
		return err
	}
	for i, r := range sum.Results {
		addr, _ := excelize.CoordinatesToCellName(1, i+2)
		row := make([]interface{}, 0, len(r.Forces)+1)
		row = append(row, r.Position)
		for _, v := range r.Forces {
			row = append(row, v)
		}
		if err := sw.SetRow(addr, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// Export builds a workbook with the design and, if sum is not nil, its
// analysis.
func Export(d model.Design, sum *analysis.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := WriteDesign(f, d); err != nil {
		f.Close()
		return nil, err
	}
	if sum != nil {
		if err := WriteSummary(f, sum); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}
