package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yourorg/workforce/internal/domain"
)

// MemStore is an in-memory implementation of every repository interface.
// It backs local development (FLAG_MEMORY_STORE) and tests. A single
// mutex serializes all writes, which gives the same guarantee the
// Postgres store gets from the position row lock: no two concurrent
// reservations can both observe the last open seat.
type MemStore struct {
	mu sync.RWMutex

	departments map[int64]*domain.Department
	jobTitles   map[int64]*domain.JobTitle
	positions   map[int64]*domain.Position
	persons     map[int64]*domain.Person
	employments map[int64]*domain.Employment
	logs        []*domain.StatusLog
	roles       map[int64]*domain.PersonDepartmentRole
	users       map[int64]*domain.User

	nextID map[string]int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		departments: map[int64]*domain.Department{},
		jobTitles:   map[int64]*domain.JobTitle{},
		positions:   map[int64]*domain.Position{},
		persons:     map[int64]*domain.Person{},
		employments: map[int64]*domain.Employment{},
		roles:       map[int64]*domain.PersonDepartmentRole{},
		users:       map[int64]*domain.User{},
		nextID:      map[string]int64{},
	}
}

func (s *MemStore) id(kind string) int64 {
	s.nextID[kind]++
	return s.nextID[kind]
}

func copyEmployment(e *domain.Employment) *domain.Employment {
	c := *e
	if e.EndDate != nil {
		d := *e.EndDate
		c.EndDate = &d
	}
	if e.ExitReason != nil {
		r := *e.ExitReason
		c.ExitReason = &r
	}
	return &c
}

func (s *MemStore) occupiedLocked(positionID int64) int {
	count := 0
	for _, e := range s.employments {
		if e.PositionID == positionID && e.CurrentStatus.IsActive() {
			count++
		}
	}
	return count
}

func (s *MemStore) duplicateLocked(personID, positionID, excludeID int64) bool {
	for _, e := range s.employments {
		if e.ID != excludeID && e.PersonID == personID && e.PositionID == positionID && e.CurrentStatus.IsActive() {
			return true
		}
	}
	return false
}

// --- domain.SeatAccountant ---

// TryReserveSeat checks capacity under the store lock.
func (s *MemStore) TryReserveSeat(_ context.Context, positionID int64) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[positionID]
	if !ok {
		return false, 0, domain.NotFoundError("position", positionID)
	}
	remaining := p.Vacancies - s.occupiedLocked(positionID)
	if remaining <= 0 {
		return false, 0, nil
	}
	return true, remaining - 1, nil
}

// ReleaseSeat reports remaining capacity; it never goes negative.
func (s *MemStore) ReleaseSeat(_ context.Context, positionID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[positionID]
	if !ok {
		return 0, domain.NotFoundError("position", positionID)
	}
	remaining := p.Vacancies - s.occupiedLocked(positionID)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// --- domain.LedgerRepository ---

// Create persists a new contract under the store lock.
func (s *MemStore) Create(_ context.Context, e *domain.Employment, logReason string) (*domain.Employment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[e.PositionID]
	if !ok {
		return nil, domain.NotFoundError("position", e.PositionID)
	}
	if s.duplicateLocked(e.PersonID, e.PositionID, 0) {
		return nil, domain.DuplicateContractError(e.PersonID, e.PositionID)
	}
	if e.CurrentStatus.IsActive() && s.occupiedLocked(e.PositionID) >= p.Vacancies {
		return nil, domain.CapacityError(e.PositionID, p.Vacancies)
	}

	stored := copyEmployment(e)
	stored.ID = s.id("employment")
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.employments[stored.ID] = stored
	s.logs = append(s.logs, &domain.StatusLog{
		ID:           s.id("log"),
		EmploymentID: stored.ID,
		Status:       stored.CurrentStatus,
		StartDate:    stored.HireDate,
		Reason:       logReason,
		CreatedAt:    stored.CreatedAt,
	})
	return copyEmployment(stored), nil
}

// GetByID retrieves a contract.
func (s *MemStore) GetByID(_ context.Context, id int64) (*domain.Employment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employments[id]
	if !ok {
		return nil, domain.NotFoundError("employment", id)
	}
	return copyEmployment(e), nil
}

func (s *MemStore) listLocked(match func(*domain.Employment) bool) []*domain.Employment {
	var out []*domain.Employment
	for _, e := range s.employments {
		if match(e) {
			out = append(out, copyEmployment(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// List returns all contracts ordered by id.
func (s *MemStore) List(_ context.Context) ([]*domain.Employment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(*domain.Employment) bool { return true }), nil
}

// ListByPerson returns the person's contracts ordered by id.
func (s *MemStore) ListByPerson(_ context.Context, personID int64) ([]*domain.Employment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(e *domain.Employment) bool { return e.PersonID == personID }), nil
}

// ActiveByPosition returns active-like contracts on a position.
func (s *MemStore) ActiveByPosition(_ context.Context, positionID int64) ([]*domain.Employment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(e *domain.Employment) bool {
		return e.PositionID == positionID && e.CurrentStatus.IsActive()
	}), nil
}

// ActiveByDepartment returns active-like contracts within a department.
func (s *MemStore) ActiveByDepartment(_ context.Context, departmentID int64) ([]*domain.Employment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(e *domain.Employment) bool {
		if !e.CurrentStatus.IsActive() {
			return false
		}
		p, ok := s.positions[e.PositionID]
		return ok && p.DepartmentID == departmentID
	}), nil
}

// ActiveReportingTo returns active-like contracts reporting to a position.
func (s *MemStore) ActiveReportingTo(_ context.Context, positionID int64) ([]*domain.Employment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(e *domain.Employment) bool {
		if !e.CurrentStatus.IsActive() {
			return false
		}
		p, ok := s.positions[e.PositionID]
		if !ok {
			return false
		}
		for _, mid := range p.ManagerPositionIDs {
			if mid == positionID {
				return true
			}
		}
		return false
	}), nil
}

// UpdateStatus applies a transition under the store lock.
func (s *MemStore) UpdateStatus(_ context.Context, id int64, change domain.StatusChange) (*domain.Employment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.employments[id]
	if !ok {
		return nil, domain.NotFoundError("employment", id)
	}
	if change.NewStatus.IsActive() {
		if s.duplicateLocked(e.PersonID, e.PositionID, e.ID) {
			return nil, domain.DuplicateContractError(e.PersonID, e.PositionID)
		}
		if !e.CurrentStatus.IsActive() {
			p, ok := s.positions[e.PositionID]
			if !ok {
				return nil, domain.NotFoundError("position", e.PositionID)
			}
			if s.occupiedLocked(e.PositionID) >= p.Vacancies {
				return nil, domain.CapacityError(e.PositionID, p.Vacancies)
			}
		}
	}

	e.CurrentStatus = change.NewStatus
	e.EndDate = change.EndDate
	e.ExitReason = change.ExitReason
	e.ExitNotes = change.ExitNotes
	e.UpdatedAt = time.Now()
	s.logs = append(s.logs, &domain.StatusLog{
		ID:           s.id("log"),
		EmploymentID: e.ID,
		Status:       change.NewStatus,
		StartDate:    change.LogDate,
		Reason:       change.LogReason,
		CreatedAt:    e.UpdatedAt,
	})
	return copyEmployment(e), nil
}

// Delete removes a contract under the store lock.
func (s *MemStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employments[id]; !ok {
		return domain.NotFoundError("employment", id)
	}
	delete(s.employments, id)
	return nil
}

// Logs returns the contract's audit trail, oldest first.
func (s *MemStore) Logs(_ context.Context, employmentID int64) ([]*domain.StatusLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.StatusLog
	for _, l := range s.logs {
		if l.EmploymentID == employmentID {
			c := *l
			out = append(out, &c)
		}
	}
	return out, nil
}

// --- domain.PositionRepository ---

// GetPosition retrieves a position. (Method name differs from the ledger's
// GetByID because MemStore implements both interfaces; see Positions().)
func (s *MemStore) getPosition(id int64) (*domain.Position, error) {
	p, ok := s.positions[id]
	if !ok {
		return nil, domain.NotFoundError("position", id)
	}
	c := *p
	c.ManagerPositionIDs = append([]int64(nil), p.ManagerPositionIDs...)
	return &c, nil
}

// Positions exposes the store as a domain.PositionRepository.
func (s *MemStore) Positions() domain.PositionRepository { return (*memPositions)(s) }

// Ledger exposes the store as a domain.LedgerRepository.
func (s *MemStore) Ledger() domain.LedgerRepository { return s }

type memPositions MemStore

func (m *memPositions) store() *MemStore { return (*MemStore)(m) }

func (m *memPositions) GetByID(_ context.Context, id int64) (*domain.Position, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPosition(id)
}

func (m *memPositions) List(_ context.Context) ([]*domain.Position, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Position
	for id := range s.positions {
		p, _ := s.getPosition(id)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memPositions) ListByDepartment(_ context.Context, departmentID int64) ([]*domain.Position, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Position
	for id, p := range s.positions {
		if p.DepartmentID == departmentID {
			c, _ := s.getPosition(id)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memPositions) Create(_ context.Context, p *domain.Position) (*domain.Position, error) {
	s := m.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *p
	stored.ID = s.id("position")
	for _, managerID := range stored.ManagerPositionIDs {
		if managerID == stored.ID {
			return nil, domain.ErrSelfReportingPosition
		}
	}
	stored.CreatedAt = time.Now()
	stored.ManagerPositionIDs = append([]int64(nil), p.ManagerPositionIDs...)
	s.positions[stored.ID] = &stored
	return s.getPosition(stored.ID)
}

func (m *memPositions) SetManagerPositions(_ context.Context, positionID int64, managerIDs []int64) error {
	s := m.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[positionID]
	if !ok {
		return domain.NotFoundError("position", positionID)
	}
	for _, managerID := range managerIDs {
		if managerID == positionID {
			return domain.ErrSelfReportingPosition
		}
	}
	sorted := append([]int64(nil), managerIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	p.ManagerPositionIDs = sorted
	return nil
}

func (m *memPositions) ManagerPositions(_ context.Context, positionID int64) ([]*domain.Position, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[positionID]
	if !ok {
		return nil, domain.NotFoundError("position", positionID)
	}
	var out []*domain.Position
	for _, managerID := range p.ManagerPositionIDs {
		mp, err := s.getPosition(managerID)
		if err != nil {
			continue
		}
		out = append(out, mp)
	}
	return out, nil
}

func (m *memPositions) ManagerOfDepartment(_ context.Context, departmentID int64) (*domain.Position, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *domain.Position
	for id, p := range s.positions {
		if p.DepartmentID == departmentID && p.IsManager {
			if best == nil || id < best.ID {
				best, _ = s.getPosition(id)
			}
		}
	}
	if best == nil {
		return nil, domain.NotFoundError("department manager position", departmentID)
	}
	return best, nil
}

func (m *memPositions) VacancySummary(_ context.Context, positionID int64) (*domain.VacancySummary, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[positionID]
	if !ok {
		return nil, domain.NotFoundError("position", positionID)
	}
	occupied := s.occupiedLocked(positionID)
	remaining := p.Vacancies - occupied
	if remaining < 0 {
		remaining = 0
	}
	return &domain.VacancySummary{
		PositionID: positionID,
		Capacity:   p.Vacancies,
		Occupied:   occupied,
		Remaining:  remaining,
	}, nil
}

func (m *memPositions) JobTitle(_ context.Context, id int64) (*domain.JobTitle, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.jobTitles[id]
	if !ok {
		return nil, domain.NotFoundError("job title", id)
	}
	c := *t
	return &c, nil
}

func (m *memPositions) CreateJobTitle(_ context.Context, t *domain.JobTitle) (*domain.JobTitle, error) {
	s := m.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *t
	stored.ID = s.id("job_title")
	stored.CreatedAt = time.Now()
	s.jobTitles[stored.ID] = &stored
	c := stored
	return &c, nil
}

func (m *memPositions) Department(_ context.Context, id int64) (*domain.Department, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.departments[id]
	if !ok {
		return nil, domain.NotFoundError("department", id)
	}
	c := *d
	return &c, nil
}

func (m *memPositions) CreateDepartment(_ context.Context, d *domain.Department) (*domain.Department, error) {
	s := m.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *d
	stored.ID = s.id("department")
	stored.CreatedAt = time.Now()
	s.departments[stored.ID] = &stored
	c := stored
	return &c, nil
}

func (m *memPositions) Departments(_ context.Context) ([]*domain.Department, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Department
	for _, d := range s.departments {
		c := *d
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- domain.PersonRepository ---

// Persons exposes the store as a domain.PersonRepository.
func (s *MemStore) Persons() domain.PersonRepository { return (*memPersons)(s) }

type memPersons MemStore

func (m *memPersons) store() *MemStore { return (*MemStore)(m) }

func (m *memPersons) GetByID(_ context.Context, id int64) (*domain.Person, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[id]
	if !ok {
		return nil, domain.NotFoundError("person", id)
	}
	c := *p
	return &c, nil
}

func (m *memPersons) Create(_ context.Context, p *domain.Person) (*domain.Person, error) {
	s := m.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *p
	stored.ID = s.id("person")
	stored.CreatedAt = time.Now()
	s.persons[stored.ID] = &stored
	c := stored
	return &c, nil
}

func (m *memPersons) List(_ context.Context) ([]*domain.Person, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Person
	for _, p := range s.persons {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- domain.DepartmentRoleRepository ---

// Roles exposes the store as a domain.DepartmentRoleRepository.
func (s *MemStore) Roles() domain.DepartmentRoleRepository { return (*memRoles)(s) }

type memRoles MemStore

func (m *memRoles) store() *MemStore { return (*MemStore)(m) }

func (m *memRoles) Assign(_ context.Context, role *domain.PersonDepartmentRole) (*domain.PersonDepartmentRole, error) {
	s := m.store()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.departments[role.DepartmentID]; !ok {
		return nil, domain.NotFoundError("department", role.DepartmentID)
	}

	now := today()
	if role.Role == domain.RoleManager {
		for _, existing := range s.roles {
			if existing.DepartmentID == role.DepartmentID &&
				existing.Role == domain.RoleManager &&
				existing.PersonID != role.PersonID &&
				existing.Open(now) {
				return nil, domain.ManagerConflictError(role.DepartmentID, existing.PersonID)
			}
		}
	}

	supersedeEnd := role.StartDate.AddDate(0, 0, -1)
	for _, existing := range s.roles {
		if existing.PersonID == role.PersonID && existing.DepartmentID == role.DepartmentID && existing.EndDate == nil {
			d := supersedeEnd
			existing.EndDate = &d
		}
	}

	stored := *role
	stored.ID = s.id("role")
	stored.CreatedAt = time.Now()
	if role.EndDate != nil {
		d := *role.EndDate
		stored.EndDate = &d
	}
	s.roles[stored.ID] = &stored
	c := stored
	return &c, nil
}

func (m *memRoles) list(match func(*domain.PersonDepartmentRole) bool) []*domain.PersonDepartmentRole {
	s := m.store()
	var out []*domain.PersonDepartmentRole
	for _, r := range s.roles {
		if match(r) {
			c := *r
			if r.EndDate != nil {
				d := *r.EndDate
				c.EndDate = &d
			}
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartDate.After(out[j].StartDate)
	})
	return out
}

func (m *memRoles) ListByPerson(_ context.Context, personID int64) ([]*domain.PersonDepartmentRole, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return m.list(func(r *domain.PersonDepartmentRole) bool { return r.PersonID == personID }), nil
}

func (m *memRoles) ListByDepartment(_ context.Context, departmentID int64) ([]*domain.PersonDepartmentRole, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return m.list(func(r *domain.PersonDepartmentRole) bool { return r.DepartmentID == departmentID }), nil
}

func (m *memRoles) CurrentManagers(_ context.Context) ([]*domain.PersonDepartmentRole, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return m.list(func(r *domain.PersonDepartmentRole) bool {
		return r.Role == domain.RoleManager && r.EndDate == nil
	}), nil
}

// --- domain.UserRepository ---

// Users exposes the store as a domain.UserRepository.
func (s *MemStore) Users() domain.UserRepository { return (*memUsers)(s) }

type memUsers MemStore

func (m *memUsers) store() *MemStore { return (*MemStore)(m) }

func (m *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	s := m.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *u
	stored.ID = s.id("user")
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	if u.PersonID != nil {
		id := *u.PersonID
		stored.PersonID = &id
	}
	s.users[stored.ID] = &stored
	c := stored
	return &c, nil
}

func (m *memUsers) find(match func(*domain.User) bool) (*domain.User, error) {
	s := m.store()
	for _, u := range s.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return m.find(func(u *domain.User) bool { return u.ID == id })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return m.find(func(u *domain.User) bool { return u.Email == email && u.IsActive })
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return m.find(func(u *domain.User) bool { return u.Username == username && u.IsActive })
}

func (m *memUsers) GetByPerson(_ context.Context, personID int64) (*domain.User, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return m.find(func(u *domain.User) bool {
		return u.IsActive && u.PersonID != nil && *u.PersonID == personID
	})
}

func (m *memUsers) Update(_ context.Context, u *domain.User) error {
	s := m.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return domain.NotFoundError("user", u.ID)
	}
	stored := *u
	stored.UpdatedAt = time.Now()
	s.users[u.ID] = &stored
	return nil
}

func (m *memUsers) Deactivate(_ context.Context, id int64) error {
	s := m.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.NotFoundError("user", id)
	}
	u.IsActive = false
	u.UpdatedAt = time.Now()
	return nil
}

func (m *memUsers) PersonIDsWithAccounts(_ context.Context) (map[int64]bool, error) {
	s := m.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[int64]bool)
	for _, u := range s.users {
		if u.IsActive && u.PersonID != nil {
			ids[*u.PersonID] = true
		}
	}
	return ids, nil
}
