package batch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"

	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/model"
)

var tube = model.Stock{Material: "CS", Section: "Tube", Size: model.DefaultStockSize}

func Test_batch01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("batch01. results keep input order")

	open := model.PrattTruss("open", model.Conditions{PanelCount: 3}, 4, tube)
	open.Members = open.Members[:len(open.Members)-1]
	thin := model.PrattTruss("thin", model.Conditions{PanelCount: 4}, 4, model.Stock{Material: "CS", Section: "Bar", Size: 0})
	in := Input{Items: []model.Design{
		model.PrattTruss("pratt", model.Conditions{PanelCount: 2}, 4, tube),
		open,
		{Name: "broken", Joints: []model.Joint{{ID: 1}}, Members: []model.Member{{ID: 1, A: 1, B: 2, Stock: tube}}},
		thin,
	}}
	res, err := Analyze(context.Background(), in, nil, analysis.DefaultOptions(), 2)
	if err != nil {
		tst.Fatal(err)
	}
	chk.Int(tst, "items", len(res.Results), 4)
	names := []string{res.Results[0].Name, res.Results[1].Name, res.Results[2].Name, res.Results[3].Name}
	for i, want := range []string{"pratt", "open", "broken", "thin"} {
		chk.String(tst, names[i], want)
	}
	chk.String(tst, string(res.Results[1].Status), string(analysis.Unstable))
	if res.Results[2].Error == "" {
		tst.Errorf("broken design has no error")
	}
	if res.Results[3].Passing || len(res.Results[3].Failing) == 0 {
		tst.Errorf("30 mm bars passed: %+v", res.Results[3])
	}
	want := 0
	for _, it := range res.Results {
		if it.Passing {
			want++
		}
	}
	chk.Int(tst, "passing", res.Passing, want)

	for _, workers := range []int{0, 1} {
		again, err := Analyze(context.Background(), in, nil, analysis.DefaultOptions(), workers)
		if err != nil {
			tst.Fatal(err)
		}
		for i := range in.Items {
			chk.String(tst, again.Results[i].Name, res.Results[i].Name)
			chk.Float64(tst, "max ratio", 0, again.Results[i].MaxRatio, res.Results[i].MaxRatio)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Analyze(ctx, in, nil, analysis.DefaultOptions(), 1); !errors.Is(err, context.Canceled) {
		tst.Errorf("expected cancellation, got %v", err)
	}
	if _, err := Analyze(context.Background(), Input{}, nil, analysis.DefaultOptions(), 1); err == nil {
		tst.Errorf("empty batch accepted")
	}
}

func Test_handler01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("handler01. batch endpoint")

	rec := httptest.NewRecorder()
	(&Handler{}).Analyze(rec, httptest.NewRequest(http.MethodPost, "/api/tools/batch", strings.NewReader(`{"items":[]}`)))
	chk.Int(tst, "empty", rec.Code, http.StatusBadRequest)
}
