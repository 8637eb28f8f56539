package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/candidature/core"
)

func Test_accountApi_register(t *testing.T) {
	d := setup(t)

	tests := []struct {
		name      string
		body      interface{}
		wantCode  int
		wantField string
	}{
		{
			name: "success",
			body: map[string]string{
				"nom": "Durand", "prenom": "Alice",
				"email": "alice@test.fr", "mot_de_passe": "s3cr3t-w0rd",
			},
			wantCode: http.StatusCreated,
		},
		{
			name: "duplicate email",
			body: map[string]string{
				"nom": "Durand", "prenom": "Alice",
				"email": "alice@test.fr", "mot_de_passe": "s3cr3t-w0rd",
			},
			wantCode:  http.StatusBadRequest,
			wantField: "email",
		},
		{
			name: "missing email",
			body: map[string]string{
				"nom": "Durand", "prenom": "Alice", "mot_de_passe": "s3cr3t-w0rd",
			},
			wantCode:  http.StatusBadRequest,
			wantField: "email",
		},
		{
			name: "weak password",
			body: map[string]string{
				"nom": "Petit", "prenom": "Chloé",
				"email": "chloe@test.fr", "mot_de_passe": "1234567890",
			},
			wantCode:  http.StatusBadRequest,
			wantField: "mot_de_passe",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := d.do(t, newRequest(http.MethodPost, "/register", marshallObj(t, tt.body)))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantField != "" {
				var fldErrs map[string]string
				decodeBody(t, rec, &fldErrs)
				assert.Contains(t, fldErrs, tt.wantField)
			}
		})
	}
}

func Test_accountApi_login(t *testing.T) {
	d := setup(t)
	cdt := d.createAccount(t, "Durand", "Alice", "alice@test.fr", core.RoleCandidate)
	adm := d.createAccount(t, "Martin", "Bob", "bob@test.fr", core.RoleAdmin)

	login := func(t *testing.T, email, pwd string) *LoginResponse {
		body := marshallObj(t, map[string]string{"email": email, "mot_de_passe": pwd})
		rec := d.do(t, newRequest(http.MethodPost, "/login", body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res LoginResponse
		decodeBody(t, rec, &res)
		return &res
	}

	t.Run("candidate logs in", func(t *testing.T) {
		res := login(t, cdt.Email, "s3cr3t-w0rd")
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, core.RoleCandidate, res.Role)
		assert.False(t, res.HasCandidature)
	})

	t.Run("admin logs in", func(t *testing.T) {
		res := login(t, adm.Email, "s3cr3t-w0rd")
		assert.Equal(t, core.RoleAdmin, res.Role)
	})

	t.Run("hasCandidature flips after submission", func(t *testing.T) {
		rec := d.do(t, newCVRequest(t, d.getToken(t, cdt), validSubmissionFields(), []byte("%PDF-1.4")))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		res := login(t, cdt.Email, "s3cr3t-w0rd")
		assert.True(t, res.HasCandidature)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"email": cdt.Email, "mot_de_passe": "nope"})
		rec := d.do(t, newRequest(http.MethodPost, "/login", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown account", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"email": "ghost@test.fr", "mot_de_passe": "s3cr3t-w0rd"})
		rec := d.do(t, newRequest(http.MethodPost, "/login", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_accountApi_changePassword(t *testing.T) {
	d := setup(t)
	cdt := d.createAccount(t, "Durand", "Alice", "alice@test.fr", core.RoleCandidate)
	token := d.getToken(t, cdt)

	t.Run("requires authentication", func(t *testing.T) {
		body := marshallObj(t, map[string]string{
			"ancien_mot_de_passe": "s3cr3t-w0rd", "nouveau_mot_de_passe": "n3w-s3cr3t",
		})
		rec := d.do(t, newRequest(http.MethodPatch, "/change-password", body))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong old password", func(t *testing.T) {
		body := marshallObj(t, map[string]string{
			"ancien_mot_de_passe": "nope", "nouveau_mot_de_passe": "n3w-s3cr3t",
		})
		rec := d.do(t, newAuthRequest(http.MethodPatch, "/change-password", token, body))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var fldErrs map[string]string
		decodeBody(t, rec, &fldErrs)
		assert.Contains(t, fldErrs, "ancien_mot_de_passe")
	})

	t.Run("success", func(t *testing.T) {
		body := marshallObj(t, map[string]string{
			"ancien_mot_de_passe": "s3cr3t-w0rd", "nouveau_mot_de_passe": "n3w-s3cr3t",
		})
		rec := d.do(t, newAuthRequest(http.MethodPatch, "/change-password", token, body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		loginBody := marshallObj(t, map[string]string{"email": cdt.Email, "mot_de_passe": "n3w-s3cr3t"})
		rec = d.do(t, newRequest(http.MethodPost, "/login", loginBody))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_accountApi_createAdmin(t *testing.T) {
	d := setup(t)
	cdt := d.createAccount(t, "Durand", "Alice", "alice@test.fr", core.RoleCandidate)
	adm := d.createAccount(t, "Martin", "Bob", "bob@test.fr", core.RoleAdmin)

	body := marshallObj(t, map[string]string{
		"nom": "Leroy", "prenom": "Emma",
		"email": "emma@test.fr", "mot_de_passe": "s3cr3t-w0rd",
	})

	t.Run("requires authentication", func(t *testing.T) {
		rec := d.do(t, newRequest(http.MethodPost, "/admin/create-admin", body))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("candidate is forbidden", func(t *testing.T) {
		rec := d.do(t, newAuthRequest(http.MethodPost, "/admin/create-admin", d.getToken(t, cdt), body))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin creates admin", func(t *testing.T) {
		rec := d.do(t, newAuthRequest(http.MethodPost, "/admin/create-admin", d.getToken(t, adm), body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created map[string]interface{}
		decodeBody(t, rec, &created)
		assert.Equal(t, core.RoleAdmin, created["role"])
	})
}
