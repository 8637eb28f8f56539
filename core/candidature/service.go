package candidature

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/candidature/core"
	"github.com/trezcool/candidature/core/account"
)

var (
	// errors
	ErrNotFound             = errors.New("candidature not found")
	ErrDuplicateCandidature = errors.New("a candidature already exists for this candidate")
)

// Service is the candidature workflow engine: it enforces roles and statut
// rules and appends one HistoryEntry per successful mutation. Every operation
// receives the acting session explicitly.
type Service struct {
	repo     Repository
	accounts account.Repository
	mailSvc  core.EmailService
}

func NewService(repo Repository, accounts account.Repository, mailSvc core.EmailService) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		mailSvc:  mailSvc,
	}
}

// Submit creates the candidate's Candidature with statut "en attente" and no
// note. A candidate has at most one live Candidature; creation is not a
// modification so no history entry is written.
func (svc *Service) Submit(ctx context.Context, sess core.Session, nc NewCandidature) (Candidature, error) {
	if err := sess.RequireRole(core.RoleCandidate); err != nil {
		return Candidature{}, err
	}

	exists, err := svc.repo.CandidateHasCandidature(ctx, sess.AccountID)
	if err != nil {
		return Candidature{}, errors.Wrap(err, "checking existing candidature")
	}
	if exists {
		return Candidature{}, ErrDuplicateCandidature
	}

	cand := Candidature{
		CandidateID:         sess.AccountID,
		Telephone:           nc.Telephone,
		Formation:           nc.Formation,
		DateNaissance:       nc.BirthDate(),
		StatutProfessionnel: nc.StatutProfessionnel,
		Motivation:          nc.Motivation,
		CVRef:               nc.CVRef,
		Statut:              StatutEnAttente,
		DateCreation:        time.Now().UTC(),
	}
	cand, err = svc.repo.CreateCandidature(ctx, cand)
	if err != nil {
		return Candidature{}, err
	}

	svc.sendSubmittedMail(ctx, cand)
	return cand, nil
}

// DeleteOwn removes the candidate's own Candidature along with its remarks
// and history. Only the owner may delete it.
func (svc *Service) DeleteOwn(ctx context.Context, sess core.Session, id string) error {
	if err := sess.RequireRole(core.RoleCandidate); err != nil {
		return err
	}
	cand, err := svc.repo.GetCandidatureByID(ctx, id)
	if err != nil {
		return err
	}
	if cand.CandidateID != sess.AccountID {
		return core.ErrForbidden
	}
	return svc.repo.DeleteCandidature(ctx, id)
}

// ChangeStatus moves the Candidature to any statut (transitions are
// intentionally unrestricted). "refusée" requires a motif; any other statut
// clears it. The change and its history entry are persisted atomically —
// re-setting the current statut is still recorded.
func (svc *Service) ChangeStatus(ctx context.Context, sess core.Session, id string, su StatusUpdate) (Candidature, error) {
	if err := sess.RequireRole(core.RoleAdmin); err != nil {
		return Candidature{}, err
	}

	statut := core.CleanString(su.Statut)
	motif := core.CleanString(su.MotifRefus)
	if !isValidStatut(statut) {
		return Candidature{}, core.NewValidationError(
			errors.New("unknown statut"),
			core.FieldError{Field: "statut", Error: fmt.Sprintf("%q is not a valid statut", statut)},
		)
	}
	if statut == StatutRefusee && motif == "" {
		return Candidature{}, core.NewValidationError(
			errors.New("motif de refus is required"),
			core.FieldError{Field: "motif_refus", Error: "a motif is required to refuse a candidature"},
		)
	}
	if statut != StatutRefusee {
		motif = ""
	}

	cand, err := svc.repo.GetCandidatureByID(ctx, id)
	if err != nil {
		return Candidature{}, err
	}
	entry := HistoryEntry{
		CandidatureID:    cand.ID,
		AuthorID:         sess.AccountID,
		TypeModification: ModifStatut,
		AncienneValeur:   cand.Statut,
		NouvelleValeur:   statut,
		DateModification: time.Now().UTC(),
	}
	return svc.repo.UpdateStatus(ctx, cand.ID, statut, motif, entry)
}

// Rate sets the reviewer note (1..5) and records the change.
func (svc *Service) Rate(ctx context.Context, sess core.Session, id string, ru RatingUpdate) (Candidature, error) {
	if err := sess.RequireRole(core.RoleAdmin); err != nil {
		return Candidature{}, err
	}
	if ru.Note < NoteMin || ru.Note > NoteMax {
		return Candidature{}, core.NewValidationError(
			errors.New("invalid note"),
			core.FieldError{Field: "note", Error: fmt.Sprintf("note must be between %d and %d", NoteMin, NoteMax)},
		)
	}

	cand, err := svc.repo.GetCandidatureByID(ctx, id)
	if err != nil {
		return Candidature{}, err
	}
	entry := HistoryEntry{
		CandidatureID:    cand.ID,
		AuthorID:         sess.AccountID,
		TypeModification: ModifNote,
		AncienneValeur:   strconv.Itoa(cand.Note),
		NouvelleValeur:   strconv.Itoa(ru.Note),
		DateModification: time.Now().UTC(),
	}
	return svc.repo.UpdateNote(ctx, cand.ID, ru.Note, entry)
}

// AddRemark attaches a reviewer comment and records it in the history.
func (svc *Service) AddRemark(ctx context.Context, sess core.Session, id string, nr NewRemarque) (Remarque, error) {
	if err := sess.RequireRole(core.RoleAdmin); err != nil {
		return Remarque{}, err
	}
	contenu := core.CleanString(nr.Contenu)
	if contenu == "" {
		return Remarque{}, core.NewValidationError(
			errors.New("remarque cannot be empty"),
			core.FieldError{Field: "contenu", Error: "this field cannot be blank"},
		)
	}

	cand, err := svc.repo.GetCandidatureByID(ctx, id)
	if err != nil {
		return Remarque{}, err
	}
	now := time.Now().UTC()
	rem := Remarque{
		CandidatureID: cand.ID,
		AuthorID:      sess.AccountID,
		Contenu:       contenu,
		DateCreation:  now,
	}
	entry := HistoryEntry{
		CandidatureID:    cand.ID,
		AuthorID:         sess.AccountID,
		TypeModification: ModifRemarque,
		NouvelleValeur:   contenu,
		DateModification: now,
	}
	return svc.repo.CreateRemarque(ctx, rem, entry)
}

// Query returns candidatures matching the filter, with remarks and history
// embedded, newest first. Note ordering is left to the presentation layer.
func (svc *Service) Query(ctx context.Context, sess core.Session, filter QueryFilter) ([]Candidature, error) {
	if err := sess.RequireRole(core.RoleAdmin); err != nil {
		return nil, err
	}
	filter.Clean()
	return svc.repo.QueryCandidatures(ctx, filter)
}

// GetOwn returns the caller's zero-or-one Candidature.
func (svc *Service) GetOwn(ctx context.Context, sess core.Session) ([]Candidature, error) {
	if err := sess.RequireRole(core.RoleCandidate); err != nil {
		return nil, err
	}
	cand, err := svc.repo.GetCandidatureByCandidate(ctx, sess.AccountID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return []Candidature{}, nil
		}
		return nil, err
	}
	return []Candidature{cand}, nil
}

// HasCandidature reports whether the account currently has a Candidature;
// used by the login response.
func (svc *Service) HasCandidature(ctx context.Context, accountID string) (bool, error) {
	return svc.repo.CandidateHasCandidature(ctx, accountID)
}

func (svc *Service) sendSubmittedMail(ctx context.Context, cand Candidature) {
	if svc.mailSvc == nil || svc.accounts == nil {
		return
	}
	owner, err := svc.accounts.GetAccountByID(ctx, cand.CandidateID)
	if err != nil {
		return // best effort; submission already succeeded
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: owner.FullName(), Address: owner.Email}},
		Subject: "Candidature reçue",
		TextContent: fmt.Sprintf(
			"Bonjour %s,\n\nVotre candidature pour la formation %q a bien été reçue. "+
				"Elle est en attente d'examen par notre équipe.\n",
			owner.Prenom, cand.Formation,
		),
	})
}
