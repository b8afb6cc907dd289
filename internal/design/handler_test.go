package design

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/gorilla/mux"

	"Trestle/internal/auth"
	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/interp"
	"Trestle/internal/calc/model"
	"Trestle/internal/calc/premium/importer"
	"Trestle/internal/repo"
	"Trestle/internal/workspace"
)

type fixture struct {
	tst  *testing.T
	repo *repo.MemoryRepository
	mux  *mux.Router
}

func newFixture(tst *testing.T) *fixture {
	store := repo.NewMemoryRepository()
	h := &Handler{Repo: store, Workspaces: workspace.NewRegistry(nil, workspace.Options{})}
	r := mux.NewRouter()
	r.HandleFunc("/designs", h.List).Methods("GET")
	r.HandleFunc("/designs", h.Create).Methods("POST")
	r.HandleFunc("/designs/{id:[0-9]+}", h.Get).Methods("GET")
	r.HandleFunc("/designs/{id:[0-9]+}", h.Update).Methods("PUT")
	r.HandleFunc("/designs/{id:[0-9]+}/members", h.AddMember).Methods("POST")
	r.HandleFunc("/designs/{id:[0-9]+}/analyze", h.Analyze).Methods("POST")
	r.HandleFunc("/designs/{id:[0-9]+}/autofix", h.Autofix).Methods("POST")
	r.HandleFunc("/designs/{id:[0-9]+}/frame", h.Frame).Methods("GET")
	r.HandleFunc("/designs/{id:[0-9]+}/report", h.Report).Methods("GET")
	r.HandleFunc("/designs/{id:[0-9]+}/export", h.Export).Methods("GET")
	return &fixture{tst: tst, repo: store, mux: r}
}

func (f *fixture) do(user int, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			f.tst.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != 0 {
		req = req.WithContext(auth.WithUser(req.Context(), user, "ana"))
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decode(tst *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		tst.Fatalf("decode: %v", err)
	}
}

func Test_design01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("design01. create, analyze and play back")

	f := newFixture(tst)
	rec := f.do(1, "POST", "/designs", CreateRequest{Template: "pratt", Name: "p3", Conditions: model.Conditions{PanelCount: 3}})
	chk.Int(tst, "create", rec.Code, http.StatusCreated)
	var created DesignResponse
	decode(tst, rec, &created)
	chk.Int(tst, "id", created.ID, 1)
	chk.Int(tst, "members", len(created.Design.Members), 13)

	var list []repo.DesignInfo
	decode(tst, f.do(1, "GET", "/designs", nil), &list)
	chk.Int(tst, "listed", len(list), 1)

	rec = f.do(1, "GET", "/designs/1/frame?p=1", nil)
	chk.Int(tst, "frame before analysis", rec.Code, http.StatusConflict)

	rec = f.do(1, "POST", "/designs/1/analyze", nil)
	chk.Int(tst, "analyze", rec.Code, http.StatusOK)
	var analyzed DesignResponse
	decode(tst, rec, &analyzed)
	if analyzed.Analysis == nil || analyzed.Analysis.Status == analysis.Unstable {
		tst.Fatalf("pratt truss not stable: %+v", analyzed.Analysis)
	}
	if len(analyzed.Analysis.Results) != 0 {
		tst.Errorf("per-case results returned without ?results")
	}
	stored, err := f.repo.GetAnalysis(context.Background(), 1)
	if err != nil {
		tst.Fatalf("analysis not stored: %v", err)
	}
	chk.Int(tst, "stored ratios", len(stored.Members), 13)

	rec = f.do(1, "GET", "/designs/1/frame?p=1.5", nil)
	chk.Int(tst, "frame", rec.Code, http.StatusOK)
	var fs interp.FrameState
	decode(tst, rec, &fs)
	chk.Int(tst, "frame forces", len(fs.Forces), 13)
	chk.Float64(tst, "position", 0, fs.Position, 1.5)
	chk.Int(tst, "bad position", f.do(1, "GET", "/designs/1/frame?p=x", nil).Code, http.StatusBadRequest)
	chk.Int(tst, "NaN position", f.do(1, "GET", "/designs/1/frame?p=NaN", nil).Code, http.StatusBadRequest)
	chk.Int(tst, "infinite position", f.do(1, "GET", "/designs/1/frame?p=-Inf", nil).Code, http.StatusBadRequest)

	rec = f.do(1, "GET", "/designs/1/report", nil)
	chk.Int(tst, "report", rec.Code, http.StatusOK)
	chk.String(tst, rec.Header().Get("Content-Type"), "application/pdf")

	rec = f.do(1, "GET", "/designs/1/export", nil)
	chk.Int(tst, "export", rec.Code, http.StatusOK)
	d, err := importer.ReadDesign(rec.Body)
	if err != nil {
		tst.Fatalf("export unreadable: %v", err)
	}
	chk.Int(tst, "exported members", len(d.Members), 13)

	chk.Int(tst, "other user", f.do(2, "GET", "/designs/1", nil).Code, http.StatusNotFound)
	chk.Int(tst, "anonymous", f.do(0, "GET", "/designs/1", nil).Code, http.StatusUnauthorized)
}

func Test_design02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("design02. edits invalidate and autofix repairs")

	f := newFixture(tst)
	f.do(1, "POST", "/designs", CreateRequest{Template: "pratt", Name: "p3", Conditions: model.Conditions{PanelCount: 3}})
	f.do(1, "POST", "/designs/1/analyze", nil)

	open := model.PrattTruss("p3", model.Conditions{PanelCount: 3}, 4, model.StandardInventory().DefaultStock())
	open.Members = open.Members[:len(open.Members)-1]
	rec := f.do(1, "PUT", "/designs/1", open)
	chk.Int(tst, "update", rec.Code, http.StatusOK)
	var updated DesignResponse
	decode(tst, rec, &updated)
	chk.Int(tst, "version", int(updated.Version), 2)
	chk.Int(tst, "stale frame", f.do(1, "GET", "/designs/1/frame?p=1", nil).Code, http.StatusConflict)

	var got DesignResponse
	decode(tst, f.do(1, "GET", "/designs/1", nil), &got)
	if got.Analysis != nil || got.Stored != nil {
		tst.Errorf("analysis survived the edit")
	}

	var analyzed DesignResponse
	decode(tst, f.do(1, "POST", "/designs/1/analyze?results=1", nil), &analyzed)
	chk.String(tst, string(analyzed.Analysis.Status), string(analysis.Unstable))
	if len(analyzed.Analysis.UnstableJoints) == 0 {
		tst.Errorf("no unstable joints reported")
	}

	rec = f.do(1, "POST", "/designs/1/autofix", nil)
	chk.Int(tst, "autofix", rec.Code, http.StatusOK)
	var fixed DesignResponse
	decode(tst, rec, &fixed)
	if fixed.Autofix == nil || fixed.Autofix.MembersAdded != 1 || !fixed.Autofix.Success {
		tst.Fatalf("autofix outcome %+v", fixed.Autofix)
	}
	saved, _ := f.repo.GetDesign(context.Background(), 1, 1)
	chk.Int(tst, "persisted members", len(saved.Members), 13)

	rec = f.do(1, "POST", "/designs/1/members", MemberRequest{A: 1, B: 2})
	chk.Int(tst, "duplicate member", rec.Code, http.StatusConflict)
	rec = f.do(1, "POST", "/designs/1/members", MemberRequest{A: 1, B: 99})
	chk.Int(tst, "dangling member", rec.Code, http.StatusUnprocessableEntity)
	bad := model.Stock{Material: "XX", Section: "Tube", Size: 1}
	rec = f.do(1, "POST", "/designs/1/members", MemberRequest{A: 1, B: 7, Stock: &bad})
	chk.Int(tst, "unknown stock", rec.Code, http.StatusUnprocessableEntity)

	broken := open
	broken.Members = append(broken.Members[:0:0], open.Members...)
	broken.Members = append(broken.Members, model.Member{ID: 99, A: 1, B: 1, Stock: open.Members[0].Stock})
	chk.Int(tst, "invalid update", f.do(1, "PUT", "/designs/1", broken).Code, http.StatusUnprocessableEntity)
}
