// Package design serves the stored designs of a signed-in user. Each design
// is edited through a live workspace that keeps its analysis current.
package design

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"Trestle/internal/auth"
	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/autofix"
	"Trestle/internal/calc/interp"
	"Trestle/internal/calc/model"
	"Trestle/internal/calc/premium/importer"
	"Trestle/internal/calc/report"
	"Trestle/internal/repo"
	"Trestle/internal/workspace"
)

type Handler struct {
	Repo       repo.Repository
	Workspaces *workspace.Registry
	Inventory  *model.Inventory
}

// CreateRequest carries either a complete design or a template to start
// from: "deck" (supports and deck joints only) or "pratt".
type CreateRequest struct {
	Design     *model.Design    `json:"design,omitempty"`
	Template   string           `json:"template,omitempty"`
	Name       string           `json:"name"`
	Conditions model.Conditions `json:"conditions"`
	Height     float64          `json:"height,omitempty"`
	Stock      *model.Stock     `json:"stock,omitempty"`
}

type AutofixOutcome struct {
	autofix.Result
	Notes string `json:"notes"`
}

type MemberRequest struct {
	A     int          `json:"a"`
	B     int          `json:"b"`
	Stock *model.Stock `json:"stock,omitempty"`
}

type DesignResponse struct {
	ID       int                  `json:"id"`
	Version  uint64               `json:"version"`
	Design   model.Design         `json:"design"`
	Analysis *analysis.Summary    `json:"analysis,omitempty"`
	Stored   *repo.StoredAnalysis `json:"stored_analysis,omitempty"`
	Member   *model.Member        `json:"member,omitempty"`
	Autofix  *AutofixOutcome      `json:"autofix,omitempty"`
}

func (h *Handler) inventory() *model.Inventory {
	if h.Inventory == nil {
		return model.StandardInventory()
	}
	return h.Inventory
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// fail maps domain errors onto HTTP status codes.
func fail(w http.ResponseWriter, err error) {
	var me *model.ModelError
	switch {
	case errors.As(err, &me):
		http.Error(w, me.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, repo.ErrNotFound):
		http.Error(w, "Design not found", http.StatusNotFound)
	case errors.Is(err, interp.ErrNoSequence), errors.Is(err, interp.ErrUnstable):
		http.Error(w, "No stable analysis for the current design", http.StatusConflict)
	case errors.Is(err, context.Canceled):
		http.Error(w, "Request cancelled", http.StatusRequestTimeout)
	default:
		log.WithError(err).Error("design request failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) key(w http.ResponseWriter, r *http.Request) (workspace.Key, bool) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return workspace.Key{}, false
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		http.Error(w, "Invalid design id", http.StatusBadRequest)
		return workspace.Key{}, false
	}
	return workspace.Key{Owner: userID, Design: id}, true
}

func (h *Handler) load(ctx context.Context, k workspace.Key) (model.Design, error) {
	return h.Repo.GetDesign(ctx, k.Owner, k.Design)
}

func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, workspace.Key, bool) {
	k, ok := h.key(w, r)
	if !ok {
		return nil, k, false
	}
	ws, err := h.Workspaces.Get(r.Context(), k, h.load)
	if err != nil {
		fail(w, err)
		return nil, k, false
	}
	return ws, k, true
}

// persist stores the workspace design when it moved past the version the
// request started from.
func (h *Handler) persist(ctx context.Context, k workspace.Key, ws *workspace.Workspace, since uint64) error {
	if ws.Version() == since {
		return nil
	}
	return h.Repo.UpdateDesign(ctx, k.Owner, k.Design, ws.Design())
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.Repo.ListDesigns(r.Context(), userID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) fromRequest(req CreateRequest) model.Design {
	if req.Design != nil {
		return *req.Design
	}
	if req.Template == "pratt" {
		stock := h.inventory().DefaultStock()
		if req.Stock != nil {
			stock = *req.Stock
		}
		height := req.Height
		if height <= 0 {
			height = model.PanelLength
		}
		return model.PrattTruss(req.Name, req.Conditions, height, stock)
	}
	return model.NewDeck(req.Name, req.Conditions)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, d model.Design) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if _, err := model.Build(d, h.inventory()); err != nil {
		fail(w, err)
		return
	}
	id, err := h.Repo.CreateDesign(r.Context(), userID, d)
	if err != nil {
		fail(w, err)
		return
	}
	ws := h.Workspaces.Put(workspace.Key{Owner: userID, Design: id}, d)
	writeJSON(w, http.StatusCreated, DesignResponse{ID: id, Version: ws.Version(), Design: ws.Design()})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	h.create(w, r, h.fromRequest(req))
}

// Import creates a design from an uploaded workbook.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	d, ok := importer.ReadUpload(w, r)
	if !ok {
		return
	}
	h.create(w, r, d)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ws, k, ok := h.workspace(w, r)
	if !ok {
		return
	}
	out := DesignResponse{ID: k.Design, Version: ws.Version(), Design: ws.Design()}
	if sum := ws.Summary(); sum != nil {
		out.Analysis = sum.Lite()
	} else if stored, err := h.Repo.GetAnalysis(r.Context(), k.Design); err == nil {
		out.Stored = &stored
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ws, k, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var d model.Design
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if _, err := model.Build(d, h.inventory()); err != nil {
		fail(w, err)
		return
	}
	if err := h.Repo.UpdateDesign(r.Context(), k.Owner, k.Design, d); err != nil {
		fail(w, err)
		return
	}
	v := ws.SetDesign(d)
	writeJSON(w, http.StatusOK, DesignResponse{ID: k.Design, Version: v, Design: ws.Design()})
}

// AddMember connects two joints. The stock defaults to the design's most
// common stock.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	ws, k, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	stock, found := ws.Design().MostCommonStock()
	if req.Stock != nil {
		stock = *req.Stock
	} else if !found {
		stock = h.inventory().DefaultStock()
	}
	if _, _, err := h.inventory().Resolve(stock); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	since := ws.Version()
	m, err := ws.AddMember(req.A, req.B, stock)
	if err != nil {
		var me *model.ModelError
		if errors.As(err, &me) {
			fail(w, err)
			return
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err := h.persist(r.Context(), k, ws, since); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, DesignResponse{ID: k.Design, Version: ws.Version(), Design: ws.Design(), Member: &m})
}

// Analyze runs the load test on the current design and stores the rounded
// ratios. ?results=1 includes every load case.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ws, k, ok := h.workspace(w, r)
	if !ok {
		return
	}
	since := ws.Version()
	sum, err := ws.Analyze(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	if err := h.persist(r.Context(), k, ws, since); err != nil {
		fail(w, err)
		return
	}
	if err := h.Repo.SaveAnalysis(r.Context(), k.Design, repo.EncodeAnalysis(sum)); err != nil {
		log.WithError(err).WithField("design", k.Design).Warn("storing analysis failed")
	}
	out := DesignResponse{ID: k.Design, Version: sum.Version, Design: ws.Design(), Analysis: sum}
	if r.URL.Query().Get("results") == "" {
		out.Analysis = sum.Lite()
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Autofix(w http.ResponseWriter, r *http.Request) {
	ws, k, ok := h.workspace(w, r)
	if !ok {
		return
	}
	since := ws.Version()
	res, err := ws.Autofix(r.Context())
	notes, ok := autofix.Note(res, err)
	if !ok {
		fail(w, err)
		return
	}
	if err := h.persist(r.Context(), k, ws, since); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DesignResponse{ID: k.Design, Version: ws.Version(), Design: ws.Design(), Autofix: &AutofixOutcome{Result: res, Notes: notes}})
}

// Frame returns the interpolated state at load position ?p= (panels).
func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.workspace(w, r)
	if !ok {
		return
	}
	p, err := strconv.ParseFloat(r.URL.Query().Get("p"), 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		http.Error(w, "Invalid load position", http.StatusBadRequest)
		return
	}
	fs, err := ws.Interpolate(p)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

// current returns the summary of the current design, analyzing it if needed.
func current(ctx context.Context, ws *workspace.Workspace) (*analysis.Summary, model.Design, error) {
	sum := ws.Summary()
	if sum == nil {
		var err error
		if sum, err = ws.Analyze(ctx); err != nil {
			return nil, model.Design{}, err
		}
	}
	d := ws.Design()
	if sum.Snapshot != nil {
		name := d.Name
		d = sum.Snapshot.Design()
		d.Name = name
	}
	return sum, d, nil
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.workspace(w, r)
	if !ok {
		return
	}
	sum, d, err := current(r.Context(), ws)
	if err != nil {
		fail(w, err)
		return
	}
	q := r.URL.Query()
	report.Serve(w, d, sum, report.Meta{
		Project: q.Get("project"),
		Author:  auth.UserLogin(r.Context()),
		Title:   q.Get("title"),
	})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.workspace(w, r)
	if !ok {
		return
	}
	importer.Serve(w, ws.Design(), ws.Summary())
}
