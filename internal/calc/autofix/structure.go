package autofix

import (
	"fmt"

	"Trestle/internal/calc/model"
)

// DesignStructure adapts a plain design value to Structure.
type DesignStructure struct {
	D model.Design
}

func (s *DesignStructure) Design() model.Design { return s.D.Clone() }

func (s *DesignStructure) AddMember(a, b int, stock model.Stock) (model.Member, error) {
	if s.D.Connected(a, b) {
		return model.Member{}, fmt.Errorf("joints %d and %d already connected", a, b)
	}
	m := model.Member{ID: s.D.NextMemberID(), A: a, B: b, Stock: stock}
	s.D.Members = append(s.D.Members, m)
	return m, nil
}
