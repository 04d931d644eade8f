// Package memory implements the record-store contracts over process-local
// maps. It provides no cross-process durability; a single RWMutex guards all
// state so counter increments and unique-key checks stay atomic under
// concurrent requests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/check-vero/apiserver/internal/store"
	"github.com/check-vero/apiserver/types"
)

// Store holds all in-memory state. Zero value is not usable; use New.
type Store struct {
	mu sync.RWMutex

	users     map[string]types.User
	usernames map[string]string // username -> user id
	emails    map[string]string // email -> user id

	phones        map[string]types.PhoneNumber
	phoneOrder    []string          // insertion order of phone ids
	phoneByNumber map[string]string // active number -> phone id

	reports     map[string]types.Report
	reportOrder []string // insertion order of report ids

	logs []types.VerificationLog
}

func New() *Store {
	return &Store{
		users:         make(map[string]types.User),
		usernames:     make(map[string]string),
		emails:        make(map[string]string),
		phones:        make(map[string]types.PhoneNumber),
		phoneByNumber: make(map[string]string),
		reports:       make(map[string]types.Report),
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s} }

// PhoneNumbers returns the phone-number repository view of the store.
func (s *Store) PhoneNumbers() *PhoneNumberRepository { return &PhoneNumberRepository{s} }

// Reports returns the report repository view of the store.
func (s *Store) Reports() *ReportRepository { return &ReportRepository{s} }

// VerificationLogs returns the verification-log repository view of the store.
func (s *Store) VerificationLogs() *VerificationLogRepository { return &VerificationLogRepository{s} }

// UserRepository implements the user persistence contract over the store.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.usernames[user.Username]; exists {
		return types.User{}, store.ErrConflict
	}
	if _, exists := r.s.emails[user.Email]; exists {
		return types.User{}, store.ErrConflict
	}

	user.CreatedAt = time.Now().UTC()
	r.s.users[user.ID] = user
	r.s.usernames[user.Username] = user.ID
	r.s.emails[user.Email] = user.ID
	return user, nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.usernames[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return r.s.users[id], nil
}

func (r *UserRepository) AddPoints(_ context.Context, id string, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Points += delta
	r.s.users[id] = user
	return nil
}

func (r *UserRepository) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users), nil
}

// PhoneNumberRepository implements the phone-number persistence contract
// over the store.
type PhoneNumberRepository struct {
	s *Store
}

func (r *PhoneNumberRepository) Create(_ context.Context, phone types.PhoneNumber) (types.PhoneNumber, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.phoneByNumber[phone.Number]; exists {
		return types.PhoneNumber{}, store.ErrConflict
	}

	phone.CreatedAt = time.Now().UTC()
	r.s.phones[phone.ID] = phone
	r.s.phoneOrder = append(r.s.phoneOrder, phone.ID)
	if phone.IsActive {
		r.s.phoneByNumber[phone.Number] = phone.ID
	}
	return phone, nil
}

func (r *PhoneNumberRepository) GetByNumber(_ context.Context, number string) (types.PhoneNumber, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.phoneByNumber[number]
	if !ok {
		return types.PhoneNumber{}, store.ErrNotFound
	}
	return r.s.phones[id], nil
}

func (r *PhoneNumberRepository) ListByOwner(_ context.Context, ownerID string) ([]types.PhoneNumber, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.collect(func(p types.PhoneNumber) bool {
		return p.IsActive && p.RegisteredBy == ownerID
	}), nil
}

func (r *PhoneNumberRepository) ListAll(_ context.Context) ([]types.PhoneNumber, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.collect(func(p types.PhoneNumber) bool { return p.IsActive }), nil
}

func (r *PhoneNumberRepository) IncrementVerificationCount(_ context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	phone, ok := r.s.phones[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	phone.VerificationCount++
	now := time.Now().UTC()
	phone.LastVerified = &now
	r.s.phones[id] = phone
	return phone.VerificationCount, nil
}

func (r *PhoneNumberRepository) Deactivate(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	phone, ok := r.s.phones[id]
	if !ok || !phone.IsActive {
		return store.ErrNotFound
	}
	phone.IsActive = false
	r.s.phones[id] = phone
	delete(r.s.phoneByNumber, phone.Number)
	return nil
}

func (r *PhoneNumberRepository) CountByOwner(_ context.Context, ownerID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := 0
	for _, phone := range r.s.phones {
		if phone.IsActive && phone.RegisteredBy == ownerID {
			total++
		}
	}
	return total, nil
}

func (r *PhoneNumberRepository) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.phoneByNumber), nil
}

// collect walks insertion order backwards so results come back newest first.
// Callers must hold the lock.
func (r *PhoneNumberRepository) collect(keep func(types.PhoneNumber) bool) []types.PhoneNumber {
	phones := make([]types.PhoneNumber, 0)
	for i := len(r.s.phoneOrder) - 1; i >= 0; i-- {
		phone := r.s.phones[r.s.phoneOrder[i]]
		if keep(phone) {
			phones = append(phones, phone)
		}
	}
	return phones
}

// ReportRepository implements the report persistence contract over the store.
type ReportRepository struct {
	s *Store
}

func (r *ReportRepository) Create(_ context.Context, report types.Report) (types.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now
	r.s.reports[report.ID] = report
	r.s.reportOrder = append(r.s.reportOrder, report.ID)
	return report, nil
}

func (r *ReportRepository) GetByID(_ context.Context, id string) (types.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	report, ok := r.s.reports[id]
	if !ok {
		return types.Report{}, store.ErrNotFound
	}
	return report, nil
}

func (r *ReportRepository) ListByUser(_ context.Context, userID string) ([]types.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.collect(func(rep types.Report) bool { return rep.UserID == userID }), nil
}

func (r *ReportRepository) ListAll(_ context.Context) ([]types.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.collect(func(types.Report) bool { return true }), nil
}

func (r *ReportRepository) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.reports), nil
}

func (r *ReportRepository) CountByUser(_ context.Context, userID string) (int, error) {
	return r.countWhere(func(rep types.Report) bool { return rep.UserID == userID })
}

func (r *ReportRepository) CountByStatus(_ context.Context, status string) (int, error) {
	return r.countWhere(func(rep types.Report) bool { return rep.Status == status })
}

func (r *ReportRepository) CountHighRisk(_ context.Context, userID string) (int, error) {
	return r.countWhere(func(rep types.Report) bool {
		if rep.Analysis.RiskLevel != types.RiskHigh {
			return false
		}
		return userID == "" || rep.UserID == userID
	})
}

func (r *ReportRepository) CountMentioningNumbers(_ context.Context, numbers []string) (int, error) {
	mentioned := make(map[string]struct{}, len(numbers))
	for _, number := range numbers {
		mentioned[number] = struct{}{}
	}
	return r.countWhere(func(rep types.Report) bool {
		_, ok := mentioned[rep.PhoneNumber]
		return rep.PhoneNumber != "" && ok
	})
}

func (r *ReportRepository) countWhere(keep func(types.Report) bool) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := 0
	for _, report := range r.s.reports {
		if keep(report) {
			total++
		}
	}
	return total, nil
}

// collect walks insertion order backwards so results come back newest first.
// Callers must hold the lock.
func (r *ReportRepository) collect(keep func(types.Report) bool) []types.Report {
	reports := make([]types.Report, 0)
	for i := len(r.s.reportOrder) - 1; i >= 0; i-- {
		report := r.s.reports[r.s.reportOrder[i]]
		if keep(report) {
			reports = append(reports, report)
		}
	}
	return reports
}

// VerificationLogRepository implements the verification-log contract over
// the store.
type VerificationLogRepository struct {
	s *Store
}

func (r *VerificationLogRepository) Append(_ context.Context, log types.VerificationLog) (types.VerificationLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	log.CreatedAt = time.Now().UTC()
	r.s.logs = append(r.s.logs, log)
	return log, nil
}

func (r *VerificationLogRepository) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.logs), nil
}

func (r *VerificationLogRepository) ListRecent(_ context.Context, limit int) ([]types.VerificationLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	logs := make([]types.VerificationLog, 0)
	for i := len(r.s.logs) - 1; i >= 0; i-- {
		if limit > 0 && len(logs) == limit {
			break
		}
		logs = append(logs, r.s.logs[i])
	}
	return logs, nil
}
