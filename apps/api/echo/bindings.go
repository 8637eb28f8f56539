package echoapi

import (
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/candidature/core"
	"github.com/trezcool/candidature/core/candidature"
)

var (
	noteOrderParam = "noteOrder"
	pageParam      = "page"

	pageSize = 10
)

const (
	noteOrderAsc  = "asc"
	noteOrderDesc = "desc"
)

// ListParams carries the presentation-level listing options: note ordering and
// the 1-indexed page.
type ListParams struct {
	NoteOrder string
	Page      int
}

func (p *ListParams) Bind(ctx echo.Context) {
	p.Page = 1

	switch ord := core.CleanString(ctx.QueryParam(noteOrderParam), true /* lower */); ord {
	case noteOrderAsc, noteOrderDesc:
		p.NoteOrder = ord
	}

	if page, err := strconv.Atoi(ctx.QueryParam(pageParam)); err == nil && page > 0 {
		p.Page = page
	}
}

// sortByNote orders candidatures by note; the sort is stable so the storage
// order (newest first) is preserved within equal notes.
func sortByNote(cands []candidature.Candidature, order string) {
	switch order {
	case noteOrderAsc:
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].Note < cands[j].Note })
	case noteOrderDesc:
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].Note > cands[j].Note })
	}
}

// CandidaturePage is one page of the admin listing.
type CandidaturePage struct {
	Items      []candidature.Candidature `json:"items"`
	Page       int                       `json:"page"`
	TotalPages int                       `json:"total_pages"`
	TotalItems int                       `json:"total_items"`
}

func paginate(cands []candidature.Candidature, page int) CandidaturePage {
	totalItems := len(cands)
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * pageSize
	if start > totalItems {
		start = totalItems
	}
	end := start + pageSize
	if end > totalItems {
		end = totalItems
	}

	return CandidaturePage{
		Items:      cands[start:end],
		Page:       page,
		TotalPages: totalPages,
		TotalItems: totalItems,
	}
}
