package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/candidature/core/candidature"
)

type candidatureRepository struct {
	db *DB
}

var _ candidature.Repository = (*candidatureRepository)(nil)

func NewCandidatureRepository(db *DB) *candidatureRepository {
	return &candidatureRepository{db: db}
}

// load assembles a full record with remarks and history embedded;
// callers must hold at least a read lock.
func (repo *candidatureRepository) load(cand candidature.Candidature) candidature.Candidature {
	rems := make([]candidature.Remarque, len(repo.db.remarques[cand.ID]))
	copy(rems, repo.db.remarques[cand.ID])
	for i := range rems {
		if author, ok := repo.db.accounts[rems[i].AuthorID]; ok {
			rems[i].AuthorNom = author.Nom
			rems[i].AuthorPrenom = author.Prenom
		}
	}
	hist := make([]candidature.HistoryEntry, len(repo.db.historique[cand.ID]))
	copy(hist, repo.db.historique[cand.ID])
	for i := range hist {
		if author, ok := repo.db.accounts[hist[i].AuthorID]; ok {
			hist[i].AuthorNom = author.Nom
			hist[i].AuthorPrenom = author.Prenom
		}
	}

	cand.Remarques = rems
	cand.Historique = hist
	return cand
}

func (repo *candidatureRepository) CandidateHasCandidature(ctx context.Context, candidateID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cand := range repo.db.candidatures {
		if cand.CandidateID == candidateID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *candidatureRepository) CreateCandidature(ctx context.Context, cand candidature.Candidature) (candidature.Candidature, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range repo.db.candidatures {
		if c.CandidateID == cand.CandidateID {
			return candidature.Candidature{}, candidature.ErrDuplicateCandidature
		}
	}

	cand.ID = uuid.New().String()
	stored := cand
	stored.Remarques = nil
	stored.Historique = nil
	repo.db.candidatures[cand.ID] = &stored
	return repo.load(stored), nil
}

func (repo *candidatureRepository) GetCandidatureByID(ctx context.Context, id string) (candidature.Candidature, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cand, ok := repo.db.candidatures[id]; ok {
		return repo.load(*cand), nil
	}
	return candidature.Candidature{}, candidature.ErrNotFound
}

func (repo *candidatureRepository) GetCandidatureByCandidate(ctx context.Context, candidateID string) (candidature.Candidature, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cand := range repo.db.candidatures {
		if cand.CandidateID == candidateID {
			return repo.load(*cand), nil
		}
	}
	return candidature.Candidature{}, candidature.ErrNotFound
}

func (repo *candidatureRepository) QueryCandidatures(ctx context.Context, filter candidature.QueryFilter) ([]candidature.Candidature, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cands := make([]candidature.Candidature, 0, len(repo.db.candidatures))
	for _, cand := range repo.db.candidatures {
		if filter.Formation != "" && cand.Formation != filter.Formation {
			continue
		}
		if filter.Statut != "" && cand.Statut != filter.Statut {
			continue
		}
		cands = append(cands, repo.load(*cand))
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].DateCreation.After(cands[j].DateCreation) })
	return cands, nil
}

func (repo *candidatureRepository) UpdateStatus(
	ctx context.Context, id, statut, motifRefus string, entry candidature.HistoryEntry,
) (candidature.Candidature, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cand, ok := repo.db.candidatures[id]
	if !ok {
		return candidature.Candidature{}, candidature.ErrNotFound
	}
	cand.Statut = statut
	cand.MotifRefus = motifRefus
	repo.appendHistory(entry)
	return repo.load(*cand), nil
}

func (repo *candidatureRepository) UpdateNote(
	ctx context.Context, id string, note int, entry candidature.HistoryEntry,
) (candidature.Candidature, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cand, ok := repo.db.candidatures[id]
	if !ok {
		return candidature.Candidature{}, candidature.ErrNotFound
	}
	cand.Note = note
	repo.appendHistory(entry)
	return repo.load(*cand), nil
}

func (repo *candidatureRepository) CreateRemarque(
	ctx context.Context, rem candidature.Remarque, entry candidature.HistoryEntry,
) (candidature.Remarque, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.candidatures[rem.CandidatureID]; !ok {
		return candidature.Remarque{}, candidature.ErrNotFound
	}
	rem.ID = uuid.New().String()
	repo.db.remarques[rem.CandidatureID] = append(repo.db.remarques[rem.CandidatureID], rem)
	repo.appendHistory(entry)

	if author, ok := repo.db.accounts[rem.AuthorID]; ok {
		rem.AuthorNom = author.Nom
		rem.AuthorPrenom = author.Prenom
	}
	return rem, nil
}

func (repo *candidatureRepository) DeleteCandidature(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.candidatures[id]; !ok {
		return candidature.ErrNotFound
	}
	delete(repo.db.candidatures, id)
	delete(repo.db.remarques, id)
	delete(repo.db.historique, id)
	return nil
}

// appendHistory assigns an ID and stores the entry; callers must hold the write lock.
func (repo *candidatureRepository) appendHistory(entry candidature.HistoryEntry) {
	entry.ID = uuid.New().String()
	repo.db.historique[entry.CandidatureID] = append(repo.db.historique[entry.CandidatureID], entry)
}
