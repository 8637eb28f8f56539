package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/candidature/core"
	"github.com/trezcool/candidature/core/account"
	"github.com/trezcool/candidature/core/candidature"
)

func (d *testDeps) submitCandidature(t *testing.T, acct account.Account) candidature.Candidature {
	t.Helper()
	rec := d.do(t, newCVRequest(t, d.getToken(t, acct), validSubmissionFields(), []byte("%PDF-1.4")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cand candidature.Candidature
	decodeBody(t, rec, &cand)
	return cand
}

func Test_candidatureApi_submit(t *testing.T) {
	d := setup(t)
	cdt := d.createAccount(t, "Durand", "Alice", "alice@test.fr", core.RoleCandidate)
	adm := d.createAccount(t, "Martin", "Bob", "bob@test.fr", core.RoleAdmin)

	t.Run("requires authentication", func(t *testing.T) {
		rec := d.do(t, newCVRequest(t, "", validSubmissionFields(), []byte("%PDF-1.4")))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("admin is forbidden", func(t *testing.T) {
		rec := d.do(t, newCVRequest(t, d.getToken(t, adm), validSubmissionFields(), []byte("%PDF-1.4")))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("CV is required", func(t *testing.T) {
		rec := d.do(t, newCVRequest(t, d.getToken(t, cdt), validSubmissionFields(), nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var fldErrs map[string]string
		decodeBody(t, rec, &fldErrs)
		assert.Contains(t, fldErrs, "cv")
	})

	t.Run("invalid fields", func(t *testing.T) {
		fields := validSubmissionFields()
		fields["telephone"] = "123"
		fields["formation"] = "Basket weaving"
		rec := d.do(t, newCVRequest(t, d.getToken(t, cdt), fields, []byte("%PDF-1.4")))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var fldErrs map[string]string
		decodeBody(t, rec, &fldErrs)
		assert.Contains(t, fldErrs, "telephone")
		assert.Contains(t, fldErrs, "formation")
	})

	t.Run("success", func(t *testing.T) {
		cand := d.submitCandidature(t, cdt)
		assert.Equal(t, cdt.ID, cand.CandidateID)
		assert.Equal(t, candidature.StatutEnAttente, cand.Statut)
		assert.Contains(t, cand.CVRef, "/cv/")
	})

	t.Run("second submission is rejected", func(t *testing.T) {
		rec := d.do(t, newCVRequest(t, d.getToken(t, cdt), validSubmissionFields(), []byte("%PDF-1.4")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_candidatureApi_mine(t *testing.T) {
	d := setup(t)
	cdt := d.createAccount(t, "Durand", "Alice", "alice@test.fr", core.RoleCandidate)
	token := d.getToken(t, cdt)

	t.Run("empty before submission", func(t *testing.T) {
		rec := d.do(t, newAuthRequest(http.MethodGet, "/mes-candidatures", token))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("returns own candidature", func(t *testing.T) {
		cand := d.submitCandidature(t, cdt)
		rec := d.do(t, newAuthRequest(http.MethodGet, "/mes-candidatures", token))
		require.Equal(t, http.StatusOK, rec.Code)

		var cands []candidature.Candidature
		decodeBody(t, rec, &cands)
		require.Len(t, cands, 1)
		assert.Equal(t, cand.ID, cands[0].ID)
	})
}

func Test_candidatureApi_destroy(t *testing.T) {
	d := setup(t)
	cdt := d.createAccount(t, "Durand", "Alice", "alice@test.fr", core.RoleCandidate)
	other := d.createAccount(t, "Petit", "Chloé", "chloe@test.fr", core.RoleCandidate)
	cand := d.submitCandidature(t, cdt)

	t.Run("only the owner may delete", func(t *testing.T) {
		rec := d.do(t, newAuthRequest(http.MethodDelete, "/candidatures/"+cand.ID, d.getToken(t, other)))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner deletes", func(t *testing.T) {
		rec := d.do(t, newAuthRequest(http.MethodDelete, "/candidatures/"+cand.ID, d.getToken(t, cdt)))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = d.do(t, newAuthRequest(http.MethodDelete, "/candidatures/"+cand.ID, d.getToken(t, cdt)))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("slot is freed", func(t *testing.T) {
		d.submitCandidature(t, cdt)
	})
}

func Test_candidatureApi_updateStatus(t *testing.T) {
	d := setup(t)
	cdt := d.createAccount(t, "Durand", "Alice", "alice@test.fr", core.RoleCandidate)
	adm := d.createAccount(t, "Martin", "Bob", "bob@test.fr", core.RoleAdmin)
	cand := d.submitCandidature(t, cdt)
	admToken := d.getToken(t, adm)
	path := "/candidatures/" + cand.ID + "/status"

	t.Run("candidate is forbidden", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"statut": candidature.StatutEnEntretien})
		rec := d.do(t, newAuthRequest(http.MethodPatch, path, d.getToken(t, cdt), body))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown statut", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"statut": "archivée"})
		rec := d.do(t, newAuthRequest(http.MethodPatch, path, admToken, body))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var fldErrs map[string]string
		decodeBody(t, rec, &fldErrs)
		assert.Contains(t, fldErrs, "statut")
	})

	t.Run("refus requires a motif", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"statut": candidature.StatutRefusee})
		rec := d.do(t, newAuthRequest(http.MethodPatch, path, admToken, body))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var fldErrs map[string]string
		decodeBody(t, rec, &fldErrs)
		assert.Contains(t, fldErrs, "motif_refus")
	})

	t.Run("status change is recorded", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"statut": candidature.StatutEnEntretien})
		rec := d.do(t, newAuthRequest(http.MethodPatch, path, admToken, body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got candidature.Candidature
		decodeBody(t, rec, &got)
		assert.Equal(t, candidature.StatutEnEntretien, got.Statut)
		require.Len(t, got.Historique, 1)
		assert.Equal(t, candidature.ModifStatut, got.Historique[0].TypeModification)
	})

	t.Run("unknown candidature", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"statut": candidature.StatutEnEntretien})
		rec := d.do(t, newAuthRequest(http.MethodPatch, "/candidatures/nope/status", admToken, body))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_candidatureApi_updateNote(t *testing.T) {
	d := setup(t)
	cdt := d.createAccount(t, "Durand", "Alice", "alice@test.fr", core.RoleCandidate)
	adm := d.createAccount(t, "Martin", "Bob", "bob@test.fr", core.RoleAdmin)
	cand := d.submitCandidature(t, cdt)
	admToken := d.getToken(t, adm)
	path := "/candidatures/" + cand.ID + "/note"

	t.Run("out of range", func(t *testing.T) {
		for _, note := range []int{0, 6} {
			body := marshallObj(t, map[string]int{"note": note})
			rec := d.do(t, newAuthRequest(http.MethodPatch, path, admToken, body))
			assert.Equalf(t, http.StatusBadRequest, rec.Code, "note %d", note)
		}
	})

	t.Run("rating is recorded", func(t *testing.T) {
		body := marshallObj(t, map[string]int{"note": 4})
		rec := d.do(t, newAuthRequest(http.MethodPatch, path, admToken, body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got candidature.Candidature
		decodeBody(t, rec, &got)
		assert.Equal(t, 4, got.Note)
		require.Len(t, got.Historique, 1)
		assert.Equal(t, "0", got.Historique[0].AncienneValeur)
		assert.Equal(t, "4", got.Historique[0].NouvelleValeur)
	})
}

func Test_candidatureApi_addRemark(t *testing.T) {
	d := setup(t)
	cdt := d.createAccount(t, "Durand", "Alice", "alice@test.fr", core.RoleCandidate)
	adm := d.createAccount(t, "Martin", "Bob", "bob@test.fr", core.RoleAdmin)
	cand := d.submitCandidature(t, cdt)
	admToken := d.getToken(t, adm)
	path := "/candidatures/" + cand.ID + "/remarques"

	t.Run("blank remark", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"contenu": "  "})
		rec := d.do(t, newAuthRequest(http.MethodPost, path, admToken, body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("remark is attached", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"contenu": "bon profil"})
		rec := d.do(t, newAuthRequest(http.MethodPost, path, admToken, body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var rem candidature.Remarque
		decodeBody(t, rec, &rem)
		assert.Equal(t, "bon profil", rem.Contenu)
		assert.Equal(t, adm.Nom, rem.AuthorNom)
		assert.Equal(t, adm.Prenom, rem.AuthorPrenom)
	})
}

func Test_candidatureApi_query(t *testing.T) {
	d := setup(t)
	adm := d.createAccount(t, "Martin", "Bob", "bob@test.fr", core.RoleAdmin)
	admToken := d.getToken(t, adm)

	// a dozen candidatures, rated in reverse order
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		cdt := d.createAccount(t, "Durand", fmt.Sprintf("Alice%02d", i), fmt.Sprintf("alice%02d@test.fr", i), core.RoleCandidate)
		cand := d.submitCandidature(t, cdt)
		if i < 5 {
			_, err := d.candSvc.Rate(ctx, adm.Session(), cand.ID, candidature.RatingUpdate{Note: 5 - i})
			require.NoError(t, err)
		}
	}

	get := func(t *testing.T, path string) CandidaturePage {
		rec := d.do(t, newAuthRequest(http.MethodGet, path, admToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var page CandidaturePage
		decodeBody(t, rec, &page)
		return page
	}

	t.Run("candidate is forbidden", func(t *testing.T) {
		cdt := d.createAccount(t, "Petit", "Chloé", "chloe@test.fr", core.RoleCandidate)
		rec := d.do(t, newAuthRequest(http.MethodGet, "/admin/candidatures", d.getToken(t, cdt)))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("pages of ten", func(t *testing.T) {
		page := get(t, "/admin/candidatures")
		assert.Len(t, page.Items, 10)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 2, page.TotalPages)
		assert.Equal(t, 12, page.TotalItems)

		page = get(t, "/admin/candidatures?page=2")
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 2, page.Page)
	})

	t.Run("statut filter", func(t *testing.T) {
		page := get(t, "/admin/candidatures?statut=tous")
		assert.Equal(t, 12, page.TotalItems)

		page = get(t, "/admin/candidatures?statut=en+attente")
		assert.Equal(t, 12, page.TotalItems)
	})

	t.Run("note ordering", func(t *testing.T) {
		page := get(t, "/admin/candidatures?noteOrder=desc")
		require.NotEmpty(t, page.Items)
		assert.Equal(t, 5, page.Items[0].Note)
		for i := 1; i < len(page.Items); i++ {
			assert.GreaterOrEqual(t, page.Items[i-1].Note, page.Items[i].Note)
		}

		page = get(t, "/admin/candidatures?noteOrder=asc")
		require.NotEmpty(t, page.Items)
		assert.Equal(t, 0, page.Items[0].Note)
	})
}

func Test_candidatureApi_downloadCV(t *testing.T) {
	d := setup(t)
	cdt := d.createAccount(t, "Durand", "Alice", "alice@test.fr", core.RoleCandidate)
	other := d.createAccount(t, "Petit", "Chloé", "chloe@test.fr", core.RoleCandidate)
	adm := d.createAccount(t, "Martin", "Bob", "bob@test.fr", core.RoleAdmin)
	cand := d.submitCandidature(t, cdt)

	t.Run("owner downloads", func(t *testing.T) {
		rec := d.do(t, newAuthRequest(http.MethodGet, cand.CVRef, d.getToken(t, cdt)))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "%PDF-1.4", rec.Body.String())
	})

	t.Run("reviewer downloads", func(t *testing.T) {
		rec := d.do(t, newAuthRequest(http.MethodGet, cand.CVRef, d.getToken(t, adm)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("another candidate cannot", func(t *testing.T) {
		rec := d.do(t, newAuthRequest(http.MethodGet, cand.CVRef, d.getToken(t, other)))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown file", func(t *testing.T) {
		rec := d.do(t, newAuthRequest(http.MethodGet, "/cv/ghost.pdf", d.getToken(t, adm)))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
