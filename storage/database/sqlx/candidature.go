package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/candidature/core/candidature"
)

const pqUniqueViolation = "23505"

type candidatureRepository struct {
	db *sqlx.DB
}

var _ candidature.Repository = (*candidatureRepository)(nil)

func NewCandidatureRepository(db *sqlx.DB) *candidatureRepository {
	return &candidatureRepository{db: db}
}

type candidatureRow struct {
	ID                  string    `db:"id"`
	CandidateID         string    `db:"candidate_id"`
	Telephone           string    `db:"telephone"`
	Formation           string    `db:"formation"`
	DateNaissance       time.Time `db:"date_naissance"`
	StatutProfessionnel string    `db:"statut_professionnel"`
	Motivation          string    `db:"motivation"`
	CVRef               string    `db:"cv_ref"`
	Statut              string    `db:"statut"`
	MotifRefus          string    `db:"motif_refus"`
	Note                int       `db:"note"`
	DateCreation        time.Time `db:"date_creation"`
}

func (row candidatureRow) toCandidature() candidature.Candidature {
	return candidature.Candidature{
		ID:                  row.ID,
		CandidateID:         row.CandidateID,
		Telephone:           row.Telephone,
		Formation:           row.Formation,
		DateNaissance:       row.DateNaissance,
		StatutProfessionnel: row.StatutProfessionnel,
		Motivation:          row.Motivation,
		CVRef:               row.CVRef,
		Statut:              row.Statut,
		MotifRefus:          row.MotifRefus,
		Note:                row.Note,
		DateCreation:        row.DateCreation,
		Remarques:           []candidature.Remarque{},
		Historique:          []candidature.HistoryEntry{},
	}
}

type remarqueRow struct {
	ID            string    `db:"id"`
	ApplicationID string    `db:"application_id"`
	AuthorID      string    `db:"author_id"`
	AuthorNom     string    `db:"author_nom"`
	AuthorPrenom  string    `db:"author_prenom"`
	Contenu       string    `db:"contenu"`
	DateCreation  time.Time `db:"date_creation"`
}

func (row remarqueRow) toRemarque() candidature.Remarque {
	return candidature.Remarque{
		ID:            row.ID,
		CandidatureID: row.ApplicationID,
		AuthorID:      row.AuthorID,
		AuthorNom:     row.AuthorNom,
		AuthorPrenom:  row.AuthorPrenom,
		Contenu:       row.Contenu,
		DateCreation:  row.DateCreation,
	}
}

type historyRow struct {
	ID               string    `db:"id"`
	ApplicationID    string    `db:"application_id"`
	AuthorID         string    `db:"author_id"`
	AuthorNom        string    `db:"author_nom"`
	AuthorPrenom     string    `db:"author_prenom"`
	TypeModification string    `db:"type_modification"`
	AncienneValeur   string    `db:"ancienne_valeur"`
	NouvelleValeur   string    `db:"nouvelle_valeur"`
	DateModification time.Time `db:"date_modification"`
}

func (row historyRow) toEntry() candidature.HistoryEntry {
	return candidature.HistoryEntry{
		ID:               row.ID,
		CandidatureID:    row.ApplicationID,
		AuthorID:         row.AuthorID,
		AuthorNom:        row.AuthorNom,
		AuthorPrenom:     row.AuthorPrenom,
		TypeModification: row.TypeModification,
		AncienneValeur:   row.AncienneValeur,
		NouvelleValeur:   row.NouvelleValeur,
		DateModification: row.DateModification,
	}
}

const selectApplication = `
	SELECT id, candidate_id, telephone, formation, date_naissance, statut_professionnel,
	       motivation, cv_ref, statut, motif_refus, note, date_creation
	FROM applications`

const selectRemarks = `
	SELECT r.id, r.application_id, r.author_id, a.nom AS author_nom, a.prenom AS author_prenom,
	       r.contenu, r.date_creation
	FROM remarks r
	INNER JOIN accounts a ON a.id = r.author_id`

const selectHistory = `
	SELECT h.id, h.application_id, h.author_id, a.nom AS author_nom, a.prenom AS author_prenom,
	       h.type_modification, h.ancienne_valeur, h.nouvelle_valeur, h.date_modification
	FROM history_entries h
	INNER JOIN accounts a ON a.id = h.author_id`

func (repo *candidatureRepository) CandidateHasCandidature(ctx context.Context, candidateID string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE candidate_id = $1)`, candidateID,
	)
	if err != nil {
		return false, errors.Wrap(err, "checking existing application")
	}
	return exists, nil
}

func (repo *candidatureRepository) CreateCandidature(ctx context.Context, cand candidature.Candidature) (candidature.Candidature, error) {
	cand.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO applications (id, candidate_id, telephone, formation, date_naissance,
		                          statut_professionnel, motivation, cv_ref, statut, motif_refus, note, date_creation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		cand.ID, cand.CandidateID, cand.Telephone, cand.Formation, cand.DateNaissance.UTC(),
		cand.StatutProfessionnel, cand.Motivation, cand.CVRef, cand.Statut, cand.MotifRefus,
		cand.Note, cand.DateCreation.UTC(),
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return candidature.Candidature{}, candidature.ErrDuplicateCandidature
		}
		return candidature.Candidature{}, errors.Wrap(err, "inserting application")
	}
	cand.Remarques = []candidature.Remarque{}
	cand.Historique = []candidature.HistoryEntry{}
	return cand, nil
}

func (repo *candidatureRepository) GetCandidatureByID(ctx context.Context, id string) (candidature.Candidature, error) {
	var row candidatureRow
	err := repo.db.GetContext(ctx, &row, selectApplication+` WHERE id = $1`, id)
	if err != nil {
		return candidature.Candidature{}, repo.trapNoRowsErr(err, "finding application by ID")
	}
	return repo.loadRelated(ctx, row.toCandidature())
}

func (repo *candidatureRepository) GetCandidatureByCandidate(ctx context.Context, candidateID string) (candidature.Candidature, error) {
	var row candidatureRow
	err := repo.db.GetContext(ctx, &row, selectApplication+` WHERE candidate_id = $1`, candidateID)
	if err != nil {
		return candidature.Candidature{}, repo.trapNoRowsErr(err, "finding application by candidate")
	}
	return repo.loadRelated(ctx, row.toCandidature())
}

func (repo *candidatureRepository) QueryCandidatures(ctx context.Context, filter candidature.QueryFilter) ([]candidature.Candidature, error) {
	query := selectApplication + ` WHERE 1=1`
	var args []interface{}
	if filter.Formation != "" {
		args = append(args, filter.Formation)
		query += ` AND formation = $` + strconv.Itoa(len(args))
	}
	if filter.Statut != "" {
		args = append(args, filter.Statut)
		query += ` AND statut = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY date_creation DESC`

	var rows []candidatureRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}

	cands := make([]candidature.Candidature, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		cands = append(cands, row.toCandidature())
		ids = append(ids, row.ID)
	}
	if len(cands) == 0 {
		return cands, nil
	}

	remarks, history, err := repo.fetchRelated(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range cands {
		if rems, ok := remarks[cands[i].ID]; ok {
			cands[i].Remarques = rems
		}
		if hist, ok := history[cands[i].ID]; ok {
			cands[i].Historique = hist
		}
	}
	return cands, nil
}

func (repo *candidatureRepository) UpdateStatus(
	ctx context.Context, id, statut, motifRefus string, entry candidature.HistoryEntry,
) (candidature.Candidature, error) {
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE applications SET statut = $2, motif_refus = $3 WHERE id = $1`,
			id, statut, motifRefus,
		)
		if err != nil {
			return errors.Wrap(err, "updating application statut")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return candidature.ErrNotFound
		}
		return repo.insertHistory(ctx, tx, entry)
	})
	if err != nil {
		return candidature.Candidature{}, err
	}
	return repo.GetCandidatureByID(ctx, id)
}

func (repo *candidatureRepository) UpdateNote(
	ctx context.Context, id string, note int, entry candidature.HistoryEntry,
) (candidature.Candidature, error) {
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE applications SET note = $2 WHERE id = $1`, id, note)
		if err != nil {
			return errors.Wrap(err, "updating application note")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return candidature.ErrNotFound
		}
		return repo.insertHistory(ctx, tx, entry)
	})
	if err != nil {
		return candidature.Candidature{}, err
	}
	return repo.GetCandidatureByID(ctx, id)
}

func (repo *candidatureRepository) CreateRemarque(
	ctx context.Context, rem candidature.Remarque, entry candidature.HistoryEntry,
) (candidature.Remarque, error) {
	rem.ID = uuid.New().String()
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO remarks (id, application_id, author_id, contenu, date_creation)
			VALUES ($1, $2, $3, $4, $5)`,
			rem.ID, rem.CandidatureID, rem.AuthorID, rem.Contenu, rem.DateCreation.UTC(),
		)
		if err != nil {
			return errors.Wrap(err, "inserting remark")
		}
		return repo.insertHistory(ctx, tx, entry)
	})
	if err != nil {
		return candidature.Remarque{}, err
	}

	var row remarqueRow
	err = repo.db.GetContext(ctx, &row, selectRemarks+` WHERE r.id = $1`, rem.ID)
	if err != nil {
		return candidature.Remarque{}, errors.Wrap(err, "reloading remark")
	}
	return row.toRemarque(), nil
}

func (repo *candidatureRepository) DeleteCandidature(ctx context.Context, id string) error {
	// remarks and history go with it via ON DELETE CASCADE
	res, err := repo.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting application")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return candidature.ErrNotFound
	}
	return nil
}

func (repo *candidatureRepository) loadRelated(ctx context.Context, cand candidature.Candidature) (candidature.Candidature, error) {
	remarks, history, err := repo.fetchRelated(ctx, []string{cand.ID})
	if err != nil {
		return candidature.Candidature{}, err
	}
	if rems, ok := remarks[cand.ID]; ok {
		cand.Remarques = rems
	}
	if hist, ok := history[cand.ID]; ok {
		cand.Historique = hist
	}
	return cand, nil
}

// fetchRelated loads remarks and history entries for the given application IDs,
// keyed by application ID and ordered oldest first.
func (repo *candidatureRepository) fetchRelated(
	ctx context.Context, ids []string,
) (map[string][]candidature.Remarque, map[string][]candidature.HistoryEntry, error) {
	query, args, err := sqlx.In(selectRemarks+` WHERE r.application_id IN (?) ORDER BY r.date_creation`, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "building remarks query")
	}
	var remRows []remarqueRow
	if err = repo.db.SelectContext(ctx, &remRows, repo.db.Rebind(query), args...); err != nil {
		return nil, nil, errors.Wrap(err, "querying remarks")
	}

	query, args, err = sqlx.In(selectHistory+` WHERE h.application_id IN (?) ORDER BY h.date_modification`, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "building history query")
	}
	var histRows []historyRow
	if err = repo.db.SelectContext(ctx, &histRows, repo.db.Rebind(query), args...); err != nil {
		return nil, nil, errors.Wrap(err, "querying history")
	}

	remarks := make(map[string][]candidature.Remarque, len(ids))
	for _, row := range remRows {
		remarks[row.ApplicationID] = append(remarks[row.ApplicationID], row.toRemarque())
	}
	history := make(map[string][]candidature.HistoryEntry, len(ids))
	for _, row := range histRows {
		history[row.ApplicationID] = append(history[row.ApplicationID], row.toEntry())
	}
	return remarks, history, nil
}

func (repo *candidatureRepository) insertHistory(ctx context.Context, tx *sqlx.Tx, entry candidature.HistoryEntry) error {
	entry.ID = uuid.New().String()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO history_entries (id, application_id, author_id, type_modification,
		                             ancienne_valeur, nouvelle_valeur, date_modification)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.CandidatureID, entry.AuthorID, entry.TypeModification,
		entry.AncienneValeur, entry.NouvelleValeur, entry.DateModification.UTC(),
	)
	return errors.Wrap(err, "inserting history entry")
}

func (repo *candidatureRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

func (repo *candidatureRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return candidature.ErrNotFound
	}
	return errors.Wrap(err, msg)
}
