package column

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cpmech/gosl/chk"

	"Trestle/internal/calc/model"
)

func Test_strength01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("strength01. compressive strength curve")

	mat := model.Material{E: 200e6, Fy: 250000}
	sh := model.Shape{Area: 1e-3, Moment: 1e-6}

	// λ = L²·Fy·A / (π²·E·I)
	lambda := func(l float64) float64 { return l * l * 250000 * 1e-3 / (math.Pi * math.Pi * 200e6 * 1e-6) }

	short := 2.0
	chk.Float64(tst, "lambda", 1e-12, BucklingParameter(mat, sh, short), lambda(short))
	chk.Float64(tst, "inelastic", 1e-9, CompressiveStrength(mat, sh, short), 0.9*math.Pow(0.66, lambda(short))*250)

	long := 12.0
	if lambda(long) <= 2.25 {
		tst.Fatalf("expected elastic branch")
	}
	chk.Float64(tst, "elastic", 1e-9, CompressiveStrength(mat, sh, long), 0.9*0.88*250/lambda(long))
	chk.Float64(tst, "tension", 1e-12, TensileStrength(mat, sh), 0.95*250)

	// the two branches meet at λ = 2.25 closely enough to keep the curve monotone
	edge := math.Sqrt(2.25 * math.Pi * math.Pi * 200e6 * 1e-6 / (250000 * 1e-3))
	below := CompressiveStrength(mat, sh, edge*(1-1e-9))
	above := CompressiveStrength(mat, sh, edge*(1+1e-9))
	if above > below {
		tst.Errorf("strength increased across the branch change: %g > %g", above, below)
	}
}

func Test_ratio01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("ratio01. signed capacity ratio")

	chk.Float64(tst, "tension", 1e-15, Ratio(50, 200, 100), 0.5)
	chk.Float64(tst, "compression", 1e-15, Ratio(-50, 200, 100), -0.25)
	chk.Float64(tst, "zero", 0, Ratio(0, 200, 100), 0)
}

func Test_calc01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("calc01. standard stock rating")

	res, err := Calculate(Input{Material: "CS", Section: "Bar", Size: 0, LengthM: 20, ForceKN: -10})
	if err != nil {
		tst.Fatalf("calc: %v", err)
	}
	if res.SlendernessOK || res.OK {
		tst.Errorf("20 m of 30 mm bar must fail slenderness, L/r = %g", res.Slenderness)
	}

	res, err = Calculate(Input{Material: "HSS", Section: "Tube", Size: model.DefaultStockSize, LengthM: 4, ForceKN: 100})
	if err != nil {
		tst.Fatalf("calc: %v", err)
	}
	chk.String(tst, res.Shape, "120x120x6")
	chk.Float64(tst, "ratio", 1e-12, res.Ratio, 100/res.TensileStrengthKN)
	if !res.OK {
		tst.Errorf("tube should pass: %+v", res)
	}

	if _, err := Calculate(Input{Material: "CS", Section: "Bar", LengthM: 0}); err == nil {
		tst.Errorf("zero length accepted")
	}
}

func Test_handler01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("handler01. column endpoint")

	body, _ := json.Marshal(Input{Material: "CS", Section: "Tube", Size: 10, LengthM: 5, ForceKN: -20})
	rec := httptest.NewRecorder()
	h := &Handler{}
	h.Calc(rec, httptest.NewRequest(http.MethodPost, "/api/tools/column/calc", bytes.NewReader(body)))
	chk.Int(tst, "status", rec.Code, http.StatusOK)

	var res Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		tst.Fatalf("decode: %v", err)
	}
	if res.Ratio >= 0 {
		tst.Errorf("compression ratio must be negative, got %g", res.Ratio)
	}

	rec = httptest.NewRecorder()
	h.Calc(rec, httptest.NewRequest(http.MethodPost, "/api/tools/column/calc", bytes.NewReader([]byte("{"))))
	chk.Int(tst, "bad payload", rec.Code, http.StatusBadRequest)
}
