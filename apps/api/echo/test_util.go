package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/candidature/core"
	"github.com/trezcool/candidature/core/account"
	"github.com/trezcool/candidature/core/candidature"
	"github.com/trezcool/candidature/storage/database/inmem"
	"github.com/trezcool/candidature/storage/filestore"
)

type testDeps struct {
	conf     *core.Config
	server   Server
	acctRepo account.Repository
	acctSvc  *account.Service
	candSvc  *candidature.Service
}

func setup(t *testing.T) *testDeps {
	t.Helper()

	conf := &core.Config{
		TestMode: true,
		Env:      "TEST",
		AppName:  "Candidature",
		SecretKey: "secret",
		Server: core.ServerConfig{
			Host:               "localhost",
			JWTExpirationDelta: 10 * time.Minute,
		},
		Storage: core.StorageConfig{
			MediaRoot: t.TempDir(),
			MaxCVSize: 1 << 20,
		},
	}

	db := inmemdb.NewDB()
	acctRepo := inmemdb.NewAccountRepository(db)
	acctSvc := account.NewService(acctRepo)
	candSvc := candidature.NewService(inmemdb.NewCandidatureRepository(db), acctRepo, nil)

	fileStore, err := filestore.NewLocalStore(conf.Storage.MediaRoot)
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	candidature.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         noopLogger{},
		AccountSvc:     acctSvc,
		CandidatureSvc: candSvc,
		FileStore:      fileStore,
		Validate:       validate,
		Translator:     translator,
	})

	return &testDeps{
		conf:     conf,
		server:   server,
		acctRepo: acctRepo,
		acctSvc:  acctSvc,
		candSvc:  candSvc,
	}
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...interface{}) {}
func (noopLogger) Info(msg string, args ...interface{})  {}
func (noopLogger) Warn(msg string, args ...interface{})  {}
func (noopLogger) Error(msg string, args ...interface{}) {}
func (noopLogger) Fatal(msg string, args ...interface{}) {}

func (d *testDeps) createAccount(t *testing.T, nom, prenom, email, role string) account.Account {
	t.Helper()
	now := time.Now().UTC()
	acct := account.Account{
		Nom:       nom,
		Prenom:    prenom,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acct.SetPassword("s3cr3t-w0rd"); err != nil {
		t.Fatalf("createAccount() failed: %v", err)
	}
	acct, err := d.acctRepo.CreateAccount(context.Background(), acct)
	if err != nil {
		t.Fatalf("createAccount() failed: %v", err)
	}
	return acct
}

func (d *testDeps) getToken(t *testing.T, acct account.Account) string {
	t.Helper()
	token, err := GenerateToken(GetAccountClaims(acct, d.conf), d.conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (d *testDeps) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	d.server.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

// newCVRequest builds a multipart candidature submission with an attached PDF.
func newCVRequest(t *testing.T, token string, fields map[string]string, cv []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for name, val := range fields {
		if err := w.WriteField(name, val); err != nil {
			t.Fatalf("newCVRequest() failed: %v", err)
		}
	}
	if cv != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="cv"; filename="cv.pdf"`)
		hdr.Set("Content-Type", "application/pdf")
		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatalf("newCVRequest() failed: %v", err)
		}
		if _, err = io.Copy(part, bytes.NewReader(cv)); err != nil {
			t.Fatalf("newCVRequest() failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newCVRequest() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/candidature", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decodeBody() failed: %v; body: %s", err, rec.Body.String())
	}
}

func validSubmissionFields() map[string]string {
	return map[string]string{
		"telephone":            "0612345678",
		"formation":            candidature.Formations[0],
		"date_naissance":       "1995-04-12",
		"statut_professionnel": candidature.StatutsProfessionnels[0],
		"motivation":           "Très motivé.",
	}
}
