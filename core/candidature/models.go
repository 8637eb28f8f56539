package candidature

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/candidature/core"
)

// Statuts
const (
	StatutEnAttente   = "en attente"
	StatutEnEntretien = "en entretien"
	StatutAcceptee    = "acceptée"
	StatutRefusee     = "refusée"

	// StatutTous is the query filter wildcard; it is not a persisted statut.
	StatutTous = "tous"
)

// History entry types
const (
	ModifStatut   = "statut"
	ModifNote     = "note"
	ModifRemarque = "remarque"
)

// Note bounds; 0 means unrated.
const (
	NoteMin = 1
	NoteMax = 5
)

var (
	Statuts = []string{StatutEnAttente, StatutEnEntretien, StatutAcceptee, StatutRefusee}

	Formations = []string{
		"Spécialiste en maîtrise d’ouvrage des SI",
		"Concepteur développeur informatique No-code",
		"Chef de projet de solutions Blockchain",
	}

	StatutsProfessionnels = []string{
		"Étudiant - Bac+3",
		"Étudiant - Bac+4",
		"Étudiant - Bac+5",
		"Salarié",
		"Entreprise",
	}
)

func isValidStatut(statut string) bool {
	for _, s := range Statuts {
		if s == statut {
			return true
		}
	}
	return false
}

type Candidature struct {
	ID                  string    `json:"id"`
	CandidateID         string    `json:"candidate_id"`
	Telephone           string    `json:"telephone"`
	Formation           string    `json:"formation"`
	DateNaissance       time.Time `json:"date_naissance"`
	StatutProfessionnel string    `json:"statut_professionnel"`
	Motivation          string    `json:"motivation,omitempty"`
	// CVRef is an opaque pointer to the stored CV document; it doubles as
	// the download path served by the API.
	CVRef        string    `json:"cv_url"`
	Statut       string    `json:"statut"`
	MotifRefus   string    `json:"motif_refus,omitempty"`
	Note         int       `json:"note"`
	DateCreation time.Time `json:"date_creation"` // UTC, immutable

	Remarques  []Remarque     `json:"remarques"`
	Historique []HistoryEntry `json:"historique"`
}

// Remarque is a reviewer comment; immutable once created.
type Remarque struct {
	ID            string    `json:"id"`
	CandidatureID string    `json:"candidature_id"`
	AuthorID      string    `json:"author_id"`
	AuthorNom     string    `json:"admin_nom,omitempty"`    // joined at read time
	AuthorPrenom  string    `json:"admin_prenom,omitempty"` // joined at read time
	Contenu       string    `json:"contenu"`
	DateCreation  time.Time `json:"date_creation"` // UTC
}

// HistoryEntry is the audit record of one mutation; append-only.
type HistoryEntry struct {
	ID               string    `json:"id"`
	CandidatureID    string    `json:"candidature_id"`
	AuthorID         string    `json:"author_id"`
	AuthorNom        string    `json:"admin_nom,omitempty"`    // joined at read time
	AuthorPrenom     string    `json:"admin_prenom,omitempty"` // joined at read time
	TypeModification string    `json:"type_modification"`
	AncienneValeur   string    `json:"ancienne_valeur"`
	NouvelleValeur   string    `json:"nouvelle_valeur"`
	DateModification time.Time `json:"date_modification"` // UTC
}

// NewCandidature contains information needed to submit a new Candidature.
// DateNaissance is the raw form value; BirthDate() returns it parsed.
type NewCandidature struct {
	Telephone           string `json:"telephone" validate:"required,frphone"`
	Formation           string `json:"formation" validate:"required,formation"`
	DateNaissance       string `json:"date_naissance" validate:"required,pastdate"`
	StatutProfessionnel string `json:"statut_professionnel" validate:"required,statutpro"`
	Motivation          string `json:"motivation"`
	CVRef               string `json:"-" validate:"required"`
}

func (nc *NewCandidature) Validate(validate *validator.Validate) error {
	nc.Telephone = core.CleanString(nc.Telephone)
	nc.Formation = core.CleanString(nc.Formation)
	nc.DateNaissance = core.CleanString(nc.DateNaissance)
	nc.StatutProfessionnel = core.CleanString(nc.StatutProfessionnel)
	nc.Motivation = core.CleanString(nc.Motivation)
	return validate.Struct(nc)
}

// BirthDate parses the submitted date; Validate must have passed.
func (nc NewCandidature) BirthDate() time.Time {
	t, _ := parseDate(nc.DateNaissance)
	return t
}

// StatusUpdate defines a reviewer's statut change request.
type StatusUpdate struct {
	Statut     string `json:"statut"`
	MotifRefus string `json:"motif_refus"`
}

// RatingUpdate defines a reviewer's note change request.
type RatingUpdate struct {
	Note int `json:"note"`
}

// NewRemarque defines a reviewer's comment on a Candidature.
type NewRemarque struct {
	Contenu string `json:"contenu"`
}

// QueryFilter narrows the admin listing; empty values (or "tous" for Statut)
// apply no filter. Note ordering is applied by the presentation layer after
// retrieval, not here.
type QueryFilter struct {
	Formation string `query:"formation"`
	Statut    string `query:"statut"`
}

func (qf *QueryFilter) Clean() {
	qf.Formation = core.CleanString(qf.Formation)
	qf.Statut = core.CleanString(qf.Statut, true /* lower */)
	if qf.Statut == StatutTous {
		qf.Statut = ""
	}
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Formation == "" && qf.Statut == ""
}

// Repository is implemented by the storage layer. Mutating operations that
// carry a HistoryEntry must persist the change and the entry atomically.
type Repository interface {
	CandidateHasCandidature(ctx context.Context, candidateID string) (bool, error)
	CreateCandidature(ctx context.Context, cand Candidature) (Candidature, error)
	GetCandidatureByID(ctx context.Context, id string) (Candidature, error)
	GetCandidatureByCandidate(ctx context.Context, candidateID string) (Candidature, error)
	// QueryCandidatures applies AND on the available QueryFilter fields
	// (exact match) and returns full records, newest first.
	QueryCandidatures(ctx context.Context, filter QueryFilter) ([]Candidature, error)
	UpdateStatus(ctx context.Context, id, statut, motifRefus string, entry HistoryEntry) (Candidature, error)
	UpdateNote(ctx context.Context, id string, note int, entry HistoryEntry) (Candidature, error)
	CreateRemarque(ctx context.Context, rem Remarque, entry HistoryEntry) (Remarque, error)
	DeleteCandidature(ctx context.Context, id string) error
}
