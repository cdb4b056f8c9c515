// Package service implements identity reconciliation: deciding whether an
// incoming (email, phone) fingerprint creates a new identity, attaches new
// information to an existing one, or merges two identities revealed to be
// the same customer.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"contactlink/internal/errs"
	"contactlink/internal/keymutex"
	"contactlink/internal/logging"
	"contactlink/internal/models"
	"contactlink/internal/normalize"
	"contactlink/internal/repository"
)

// DefaultTimeout bounds one reconciliation's store interaction.
const DefaultTimeout = 10 * time.Second

// ReconciliationService executes the reconciliation algorithm. All store
// reads and writes for one request run under the fingerprint's mutex and
// inside a single transaction, so concurrent overlapping requests observe
// each other's complete effects or none of them.
type ReconciliationService struct {
	repo    *repository.ContactRepository
	locks   *keymutex.KeyedMutex
	timeout time.Duration
}

// NewReconciliationService creates a new reconciliation service. A zero
// timeout falls back to DefaultTimeout.
func NewReconciliationService(repo *repository.ContactRepository, locks *keymutex.KeyedMutex, timeout time.Duration) *ReconciliationService {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ReconciliationService{repo: repo, locks: locks, timeout: timeout}
}

// Identify reconciles one request and returns the consolidated cluster.
// Requests whose normalized email and phone are both absent fail with
// errs.ErrValidation.
func (s *ReconciliationService) Identify(ctx context.Context, req models.IdentifyRequest) (*models.IdentifyResponse, error) {
	email := normalize.Email(req.Email)
	phone := normalize.Phone(req.PhoneValue())
	if email == nil && phone == nil {
		return nil, errs.ErrValidation
	}

	key := normalize.Fingerprint(email, phone)
	log := logging.FromContext(ctx)

	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		return nil, &errs.RetryableError{Key: key, Stage: "acquire", Err: err}
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var resp *models.IdentifyResponse
	err = s.repo.WithTx(ctx, func(tx *repository.ContactRepository) error {
		var txErr error
		resp, txErr = s.reconcile(ctx, tx, key, email, phone)
		return txErr
	})
	if err != nil {
		if errs.IsDataIntegrity(err) || errs.IsRetryable(err) {
			return nil, err
		}
		if repository.IsTransient(err) {
			return nil, &errs.RetryableError{Key: key, Stage: "store", Err: err}
		}
		return nil, fmt.Errorf("reconciliation for key %q: %w", key, err)
	}

	log.Debug().
		Str("key", key).
		Int64("primary_id", resp.Contact.PrimaryContactID).
		Int("secondaries", len(resp.Contact.SecondaryContactIDs)).
		Msg("Reconciliation complete")
	return resp, nil
}

// reconcile runs the match, merge, and attach stages inside one
// transaction.
func (s *ReconciliationService) reconcile(ctx context.Context, tx *repository.ContactRepository, key string, email, phone *string) (*models.IdentifyResponse, error) {
	log := logging.FromContext(ctx)

	// Stage 1: match on either normalized value.
	matches, err := tx.FindByEmailOrPhone(ctx, email, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to find matching contacts: %w", err)
	}

	// Stage 2: nothing previously seen, create a fresh primary.
	if len(matches) == 0 {
		primary, err := tx.Create(ctx, email, phone, nil, models.PrecedencePrimary)
		if err != nil {
			return nil, fmt.Errorf("failed to create primary contact: %w", err)
		}
		log.Info().Str("key", key).Int64("contact_id", primary.ID).Msg("Created new primary contact")
		return &models.IdentifyResponse{Contact: assemble(primary, nil)}, nil
	}

	// Stage 3: resolve every match to its cluster primary.
	primaryIDs := distinctPrimaryIDs(matches)

	// Stage 4: more than one cluster means the request connected them.
	// The oldest primary survives; each loser's subtree is absorbed in
	// ascending id order, relink before demote so linkage stays a star at
	// every step.
	survivorID := primaryIDs[0]
	for _, loserID := range primaryIDs[1:] {
		moved, err := tx.RelinkAll(ctx, loserID, survivorID)
		if err != nil {
			return nil, fmt.Errorf("failed to relink secondaries of contact %d: %w", loserID, err)
		}
		if err := tx.UpdateLink(ctx, loserID, &survivorID, models.PrecedenceSecondary); err != nil {
			return nil, fmt.Errorf("failed to demote contact %d: %w", loserID, err)
		}
		log.Info().
			Str("key", key).
			Int64("survivor_id", survivorID).
			Int64("demoted_id", loserID).
			Int64("relinked", moved).
			Msg("Merged identity clusters")
	}

	// Stage 5: gather the current cluster. A missing or non-primary
	// survivor means corrupted linkage, never a caller mistake.
	primary, err := tx.FindByID(ctx, survivorID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, &errs.DataIntegrityError{PrimaryID: survivorID, Key: key, Stage: "gather"}
		}
		return nil, fmt.Errorf("failed to load primary contact %d: %w", survivorID, err)
	}
	if !primary.IsPrimary() {
		return nil, &errs.DataIntegrityError{PrimaryID: survivorID, Key: key, Stage: "gather"}
	}

	secondaries, err := tx.FindSecondariesOf(ctx, survivorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load secondaries of contact %d: %w", survivorID, err)
	}

	// Stage 6: attach a secondary only when the request carries a value
	// the cluster has not seen. Exact duplicates write nothing.
	if hasNewInformation(primary, secondaries, email, phone) {
		secondary, err := tx.Create(ctx, email, phone, &survivorID, models.PrecedenceSecondary)
		if err != nil {
			return nil, fmt.Errorf("failed to create secondary contact: %w", err)
		}
		secondaries = append(secondaries, secondary)
		log.Info().Str("key", key).Int64("contact_id", secondary.ID).Int64("primary_id", survivorID).Msg("Attached secondary contact")
	}

	// Stage 7: assemble the consolidated view.
	return &models.IdentifyResponse{Contact: assemble(primary, secondaries)}, nil
}

// distinctPrimaryIDs collects the distinct cluster primaries of the matched
// contacts, ascending, so the smallest (oldest) id is first.
func distinctPrimaryIDs(matches []*models.Contact) []int64 {
	seen := make(map[int64]bool, len(matches))
	ids := make([]int64, 0, len(matches))
	for _, c := range matches {
		pid := c.PrimaryID()
		if !seen[pid] {
			seen[pid] = true
			ids = append(ids, pid)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// hasNewInformation reports whether the request's email or phone is absent
// from the cluster.
func hasNewInformation(primary *models.Contact, secondaries []*models.Contact, email, phone *string) bool {
	emails := make(map[string]bool)
	phones := make(map[string]bool)
	for _, c := range append([]*models.Contact{primary}, secondaries...) {
		if c.Email != nil {
			emails[*c.Email] = true
		}
		if c.PhoneNumber != nil {
			phones[*c.PhoneNumber] = true
		}
	}
	if email != nil && !emails[*email] {
		return true
	}
	if phone != nil && !phones[*phone] {
		return true
	}
	return false
}
