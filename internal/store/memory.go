package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/models"
)

// table keeps rows by id and remembers insertion order.
type table[T any] struct {
	next  int64
	order []int64
	rows  map[int64]T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[int64]T)}
}

func (t *table[T]) nextID() int64 {
	t.next++
	return t.next
}

func (t *table[T]) put(id int64, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) get(id int64) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) remove(id int64) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(x int64) bool { return x == id })
	return true
}

// find returns the first row in insertion order matching fn.
func (t *table[T]) find(fn func(T) bool) (T, bool) {
	for _, id := range t.order {
		if v := t.rows[id]; fn(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func (t *table[T]) filter(fn func(T) bool) []T {
	out := []T{}
	for _, id := range t.order {
		if v := t.rows[id]; fn == nil || fn(v) {
			out = append(out, v)
		}
	}
	return out
}

func (t *table[T]) clone(cp func(T) T) *table[T] {
	c := &table[T]{next: t.next, order: slices.Clone(t.order), rows: make(map[int64]T, len(t.rows))}
	for id, v := range t.rows {
		c.rows[id] = cp(v)
	}
	return c
}

type memState struct {
	clients   *table[models.Client]
	locations *table[models.Location]
	assets    *table[models.Asset]
	parts     *table[models.Part]
	suppliers *table[models.Supplier]
	jobs      *table[models.Job]
	templates *table[models.BomTemplate]
	users     *table[models.User]
}

func newMemState() *memState {
	return &memState{
		clients:   newTable[models.Client](),
		locations: newTable[models.Location](),
		assets:    newTable[models.Asset](),
		parts:     newTable[models.Part](),
		suppliers: newTable[models.Supplier](),
		jobs:      newTable[models.Job](),
		templates: newTable[models.BomTemplate](),
		users:     newTable[models.User](),
	}
}

func (s *memState) clone() *memState {
	return &memState{
		clients:   s.clients.clone(identity[models.Client]),
		locations: s.locations.clone(cloneLocation),
		assets:    s.assets.clone(cloneAsset),
		parts:     s.parts.clone(clonePart),
		suppliers: s.suppliers.clone(identity[models.Supplier]),
		jobs:      s.jobs.clone(cloneJob),
		templates: s.templates.clone(cloneTemplate),
		users:     s.users.clone(identity[models.User]),
	}
}

type memDB struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	st   *memState
	now  func() time.Time
}

// Memory is an in-process Store. It backs tests, the CLI's offline mode
// and STORE_DRIVER=memory.
type Memory struct {
	*memDB
	tx bool
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{memDB: &memDB{st: newMemState(), now: func() time.Time { return time.Now().UTC() }}}
}

// Snapshot is a deep copy of every collection in insertion order.
type Snapshot struct {
	Clients      []models.Client
	Locations    []models.Location
	Assets       []models.Asset
	Parts        []models.Part
	Suppliers    []models.Supplier
	Jobs         []models.Job
	BomTemplates []models.BomTemplate
	Users        []models.User
}

func (m *Memory) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.st.clone()
	return Snapshot{
		Clients:      st.clients.filter(nil),
		Locations:    st.locations.filter(nil),
		Assets:       st.assets.filter(nil),
		Parts:        st.parts.filter(nil),
		Suppliers:    st.suppliers.filter(nil),
		Jobs:         st.jobs.filter(nil),
		BomTemplates: st.templates.filter(nil),
		Users:        st.users.filter(nil),
	}
}

// InTx serializes transactions and restores the previous state when fn
// fails. Nested calls join the open transaction.
func (m *Memory) InTx(ctx context.Context, fn func(Store) error) error {
	if m.tx {
		return fn(m)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	saved := m.st.clone()
	m.mu.RUnlock()

	if err := fn(&Memory{memDB: m.memDB, tx: true}); err != nil {
		m.mu.Lock()
		m.st = saved
		m.mu.Unlock()
		return err
	}
	return nil
}

// lock takes the write lock. Outside a transaction it first waits for any
// open one, so a rollback cannot discard the write.
func (m *Memory) lock() (unlock func()) {
	if !m.tx {
		m.txMu.Lock()
	}
	m.mu.Lock()
	return func() {
		m.mu.Unlock()
		if !m.tx {
			m.txMu.Unlock()
		}
	}
}

// touch stamps an update strictly after creation so upsert callers can
// tell inserts from updates.
func (m *Memory) touch(createdAt time.Time) time.Time {
	now := m.now()
	if !now.After(createdAt) {
		now = createdAt.Add(time.Microsecond)
	}
	return now
}

func identity[T any](v T) T { return v }

func cloneIDPtr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneLocation(l models.Location) models.Location {
	l.ParentID = cloneIDPtr(l.ParentID)
	l.Path = slices.Clone(l.Path)
	if l.Path == nil {
		l.Path = []int64{}
	}
	return l
}

func cloneAsset(a models.Asset) models.Asset {
	a.BOM = slices.Clone(a.BOM)
	a.Attachments = slices.Clone(a.Attachments)
	return a
}

func clonePart(p models.Part) models.Part {
	p.SupplierOptions = slices.Clone(p.SupplierOptions)
	return p
}

func cloneJob(j models.Job) models.Job {
	j.LocationID = cloneIDPtr(j.LocationID)
	j.AssetID = cloneIDPtr(j.AssetID)
	j.StartDate = cloneTimePtr(j.StartDate)
	j.QuoteDueDate = cloneTimePtr(j.QuoteDueDate)
	j.Resources = slices.Clone(j.Resources)
	for i := range j.Resources {
		j.Resources[i].Date = cloneTimePtr(j.Resources[i].Date)
	}
	j.Attachments = slices.Clone(j.Attachments)
	return j
}

func cloneTemplate(t models.BomTemplate) models.BomTemplate {
	t.ClientID = cloneIDPtr(t.ClientID)
	t.Lines = slices.Clone(t.Lines)
	return t
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Clients

func (m *Memory) ListClients(ctx context.Context) ([]models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.clients.filter(nil), nil
}

func (m *Memory) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.st.clients.get(id)
	if !ok {
		return nil, apperr.NotFound("Client not found")
	}
	return &c, nil
}

func (m *Memory) GetClientByCode(ctx context.Context, code string) (*models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.st.clients.find(func(c models.Client) bool { return c.Code == code })
	if !ok {
		return nil, apperr.NotFound("Client not found")
	}
	return &c, nil
}

func (m *Memory) CreateClient(ctx context.Context, c *models.Client) error {
	defer m.lock()()
	if _, dup := m.st.clients.find(func(x models.Client) bool { return x.Code == c.Code }); dup {
		return apperr.Conflict("client code already exists", nil)
	}
	c.ID = m.st.clients.nextID()
	c.CreatedAt = m.now()
	c.UpdatedAt = c.CreatedAt
	m.st.clients.put(c.ID, *c)
	return nil
}

func (m *Memory) UpsertClient(ctx context.Context, c *models.Client) error {
	defer m.lock()()
	existing, ok := m.st.clients.find(func(x models.Client) bool { return x.Code == c.Code })
	if !ok {
		c.ID = m.st.clients.nextID()
		c.CreatedAt = m.now()
		c.UpdatedAt = c.CreatedAt
	} else {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
		c.UpdatedAt = m.touch(existing.CreatedAt)
	}
	m.st.clients.put(c.ID, *c)
	return nil
}

func (m *Memory) DeleteClient(ctx context.Context, id int64) error {
	defer m.lock()()
	if !m.st.clients.remove(id) {
		return apperr.NotFound("Client not found")
	}
	return nil
}

// Locations

func matchLocation(f LocationFilter) func(models.Location) bool {
	return func(l models.Location) bool {
		if f.ClientID != 0 && l.ClientID != f.ClientID {
			return false
		}
		if f.RootOnly && l.ParentID != nil {
			return false
		}
		if f.ParentID != nil && !sameParent(l.ParentID, f.ParentID) {
			return false
		}
		if f.Code != "" && l.Code != f.Code {
			return false
		}
		return true
	}
}

func (m *Memory) ListLocations(ctx context.Context, f LocationFilter) ([]models.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.st.locations.filter(matchLocation(f))
	for i := range out {
		out[i] = cloneLocation(out[i])
	}
	return out, nil
}

func (m *Memory) CountLocations(ctx context.Context, f LocationFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.st.locations.filter(matchLocation(f))), nil
}

func (m *Memory) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.st.locations.get(id)
	if !ok {
		return nil, apperr.NotFound("Location not found")
	}
	l = cloneLocation(l)
	return &l, nil
}

func (m *Memory) locationCodeTaken(l *models.Location) bool {
	_, dup := m.st.locations.find(func(x models.Location) bool {
		return x.ID != l.ID && x.ClientID == l.ClientID && x.Code == l.Code && sameParent(x.ParentID, l.ParentID)
	})
	return dup
}

func (m *Memory) CreateLocation(ctx context.Context, l *models.Location) error {
	defer m.lock()()
	if _, ok := m.st.clients.get(l.ClientID); !ok {
		return apperr.RefNotFound("client not found")
	}
	if m.locationCodeTaken(l) {
		return apperr.Conflict("location code already exists under this parent", nil)
	}
	l.ID = m.st.locations.nextID()
	l.CreatedAt = m.now()
	l.UpdatedAt = l.CreatedAt
	if l.Path == nil {
		l.Path = []int64{}
	}
	m.st.locations.put(l.ID, cloneLocation(*l))
	return nil
}

func (m *Memory) UpdateLocation(ctx context.Context, l *models.Location) error {
	defer m.lock()()
	existing, ok := m.st.locations.get(l.ID)
	if !ok {
		return apperr.NotFound("Location not found")
	}
	if m.locationCodeTaken(l) {
		return apperr.Conflict("location code already exists under this parent", nil)
	}
	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = m.touch(existing.CreatedAt)
	m.st.locations.put(l.ID, cloneLocation(*l))
	return nil
}

func (m *Memory) DeleteLocation(ctx context.Context, id int64) error {
	defer m.lock()()
	if !m.st.locations.remove(id) {
		return apperr.NotFound("Location not found")
	}
	return nil
}

// Assets

func matchAsset(f AssetFilter) func(models.Asset) bool {
	return func(a models.Asset) bool {
		if f.ClientID != 0 && a.ClientID != f.ClientID {
			return false
		}
		if f.LocationID != 0 && a.LocationID != f.LocationID {
			return false
		}
		if f.Tag != "" && a.Tag != f.Tag {
			return false
		}
		return true
	}
}

func (m *Memory) ListAssets(ctx context.Context, f AssetFilter) ([]models.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.st.assets.filter(matchAsset(f))
	for i := range out {
		out[i] = cloneAsset(out[i])
	}
	return out, nil
}

func (m *Memory) CountAssets(ctx context.Context, f AssetFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.st.assets.filter(matchAsset(f))), nil
}

func (m *Memory) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.st.assets.get(id)
	if !ok {
		return nil, apperr.NotFound("Asset not found")
	}
	a = cloneAsset(a)
	return &a, nil
}

func (m *Memory) serialTaken(a *models.Asset) bool {
	if a.Serial == "" {
		return false
	}
	_, dup := m.st.assets.find(func(x models.Asset) bool {
		return x.ID != a.ID && x.ClientID == a.ClientID && x.Serial == a.Serial
	})
	return dup
}

func (m *Memory) CreateAsset(ctx context.Context, a *models.Asset) error {
	defer m.lock()()
	if m.serialTaken(a) {
		return apperr.Conflict("asset serial already exists for client", nil)
	}
	a.ID = m.st.assets.nextID()
	a.CreatedAt = m.now()
	a.UpdatedAt = a.CreatedAt
	m.st.assets.put(a.ID, cloneAsset(*a))
	return nil
}

func (m *Memory) UpdateAsset(ctx context.Context, a *models.Asset) error {
	defer m.lock()()
	existing, ok := m.st.assets.get(a.ID)
	if !ok {
		return apperr.NotFound("Asset not found")
	}
	if m.serialTaken(a) {
		return apperr.Conflict("asset serial already exists for client", nil)
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = m.touch(existing.CreatedAt)
	m.st.assets.put(a.ID, cloneAsset(*a))
	return nil
}

func (m *Memory) UpsertAsset(ctx context.Context, a *models.Asset) error {
	defer m.lock()()
	existing, ok := m.st.assets.find(func(x models.Asset) bool {
		return x.ClientID == a.ClientID && x.LocationID == a.LocationID && x.Name == a.Name && x.Tag == a.Tag
	})
	if ok {
		a.ID = existing.ID
	} else {
		a.ID = 0
	}
	if m.serialTaken(a) {
		return apperr.Conflict("asset serial already exists for client", nil)
	}
	if !ok {
		a.ID = m.st.assets.nextID()
		a.CreatedAt = m.now()
		a.UpdatedAt = a.CreatedAt
	} else {
		a.BOM = existing.BOM
		a.Attachments = existing.Attachments
		a.MainPhoto = existing.MainPhoto
		a.CreatedAt = existing.CreatedAt
		a.UpdatedAt = m.touch(existing.CreatedAt)
	}
	m.st.assets.put(a.ID, cloneAsset(*a))
	return nil
}

// Parts

func (m *Memory) ListParts(ctx context.Context, f PartFilter) ([]models.Part, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.st.parts.filter(func(p models.Part) bool {
		if len(f.IDs) > 0 && !slices.Contains(f.IDs, p.ID) {
			return false
		}
		if f.LinkedTo != 0 && !p.SuppliedBy(f.LinkedTo) {
			return false
		}
		if f.NotLinkedTo != 0 && p.SuppliedBy(f.NotLinkedTo) {
			return false
		}
		return true
	})
	for i := range out {
		out[i] = clonePart(out[i])
	}
	return out, nil
}

func (m *Memory) GetPart(ctx context.Context, id int64) (*models.Part, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.st.parts.get(id)
	if !ok {
		return nil, apperr.NotFound("Part not found")
	}
	p = clonePart(p)
	return &p, nil
}

func (m *Memory) GetPartBySKU(ctx context.Context, sku string) (*models.Part, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.st.parts.find(func(p models.Part) bool { return p.InternalSKU == sku })
	if !ok {
		return nil, apperr.NotFound("Part not found")
	}
	p = clonePart(p)
	return &p, nil
}

func (m *Memory) CreatePart(ctx context.Context, p *models.Part) error {
	defer m.lock()()
	if _, dup := m.st.parts.find(func(x models.Part) bool { return x.InternalSKU == p.InternalSKU }); dup {
		return apperr.Conflict("part internalSku already exists", nil)
	}
	p.ID = m.st.parts.nextID()
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	m.st.parts.put(p.ID, clonePart(*p))
	return nil
}

func (m *Memory) UpdatePart(ctx context.Context, p *models.Part) error {
	defer m.lock()()
	existing, ok := m.st.parts.get(p.ID)
	if !ok {
		return apperr.NotFound("Part not found")
	}
	if _, dup := m.st.parts.find(func(x models.Part) bool { return x.ID != p.ID && x.InternalSKU == p.InternalSKU }); dup {
		return apperr.Conflict("part internalSku already exists", nil)
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = m.touch(existing.CreatedAt)
	m.st.parts.put(p.ID, clonePart(*p))
	return nil
}

func (m *Memory) UpsertPart(ctx context.Context, p *models.Part) error {
	defer m.lock()()
	existing, ok := m.st.parts.find(func(x models.Part) bool { return x.InternalSKU == p.InternalSKU })
	if !ok {
		p.ID = m.st.parts.nextID()
		p.CreatedAt = m.now()
		p.UpdatedAt = p.CreatedAt
	} else {
		p.ID = existing.ID
		p.SupplierOptions = existing.SupplierOptions
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = m.touch(existing.CreatedAt)
	}
	m.st.parts.put(p.ID, clonePart(*p))
	return nil
}

// Suppliers

func (m *Memory) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.suppliers.filter(nil), nil
}

func (m *Memory) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.st.suppliers.get(id)
	if !ok {
		return nil, apperr.NotFound("Supplier not found")
	}
	return &s, nil
}

func (m *Memory) GetSupplierByCode(ctx context.Context, code string) (*models.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.st.suppliers.find(func(s models.Supplier) bool { return s.Code == code })
	if !ok {
		return nil, apperr.NotFound("Supplier not found")
	}
	return &s, nil
}

func (m *Memory) CreateSupplier(ctx context.Context, s *models.Supplier) error {
	defer m.lock()()
	if _, dup := m.st.suppliers.find(func(x models.Supplier) bool { return x.Code == s.Code }); dup {
		return apperr.Conflict("supplier code already exists", nil)
	}
	s.ID = m.st.suppliers.nextID()
	s.CreatedAt = m.now()
	s.UpdatedAt = s.CreatedAt
	m.st.suppliers.put(s.ID, *s)
	return nil
}

func (m *Memory) UpsertSupplier(ctx context.Context, s *models.Supplier) error {
	defer m.lock()()
	existing, ok := m.st.suppliers.find(func(x models.Supplier) bool { return x.Code == s.Code })
	if !ok {
		s.ID = m.st.suppliers.nextID()
		s.CreatedAt = m.now()
		s.UpdatedAt = s.CreatedAt
	} else {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
		s.UpdatedAt = m.touch(existing.CreatedAt)
	}
	m.st.suppliers.put(s.ID, *s)
	return nil
}

// Jobs

func (m *Memory) ListJobs(ctx context.Context, f JobFilter) ([]models.Job, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.st.jobs.filter(func(j models.Job) bool {
		if f.ClientID != 0 && j.ClientID != f.ClientID {
			return false
		}
		if f.AssetID != 0 && (j.AssetID == nil || *j.AssetID != f.AssetID) {
			return false
		}
		if f.Status != "" && j.Status != f.Status {
			return false
		}
		return true
	})
	total := len(all)
	start := min(max(f.Offset, 0), total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	page := make([]models.Job, 0, end-start)
	for _, j := range all[start:end] {
		page = append(page, cloneJob(j))
	}
	return page, total, nil
}

func (m *Memory) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.st.jobs.get(id)
	if !ok {
		return nil, apperr.NotFound("Job not found")
	}
	j = cloneJob(j)
	return &j, nil
}

func (m *Memory) CreateJob(ctx context.Context, j *models.Job) error {
	defer m.lock()()
	if _, dup := m.st.jobs.find(func(x models.Job) bool { return x.JobNumber == j.JobNumber }); dup {
		return apperr.Conflict("job number already exists", nil)
	}
	j.ID = m.st.jobs.nextID()
	j.CreatedAt = m.now()
	j.UpdatedAt = j.CreatedAt
	m.st.jobs.put(j.ID, cloneJob(*j))
	return nil
}

func (m *Memory) UpdateJob(ctx context.Context, j *models.Job) error {
	defer m.lock()()
	existing, ok := m.st.jobs.get(j.ID)
	if !ok {
		return apperr.NotFound("Job not found")
	}
	if _, dup := m.st.jobs.find(func(x models.Job) bool { return x.ID != j.ID && x.JobNumber == j.JobNumber }); dup {
		return apperr.Conflict("job number already exists", nil)
	}
	j.CreatedAt = existing.CreatedAt
	j.UpdatedAt = m.touch(existing.CreatedAt)
	m.st.jobs.put(j.ID, cloneJob(*j))
	return nil
}

func (m *Memory) UpsertJob(ctx context.Context, j *models.Job) error {
	defer m.lock()()
	existing, ok := m.st.jobs.find(func(x models.Job) bool { return x.JobNumber == j.JobNumber })
	if !ok {
		j.ID = m.st.jobs.nextID()
		j.CreatedAt = m.now()
		j.UpdatedAt = j.CreatedAt
	} else {
		j.ID = existing.ID
		j.Resources = existing.Resources
		j.Attachments = existing.Attachments
		j.CreatedAt = existing.CreatedAt
		j.UpdatedAt = m.touch(existing.CreatedAt)
	}
	m.st.jobs.put(j.ID, cloneJob(*j))
	return nil
}

// BOM templates

func (m *Memory) ListBomTemplates(ctx context.Context, clientID *int64) ([]models.BomTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.st.templates.filter(func(t models.BomTemplate) bool {
		return clientID == nil || t.AvailableTo(*clientID)
	})
	for i := range out {
		out[i] = cloneTemplate(out[i])
	}
	return out, nil
}

func (m *Memory) GetBomTemplate(ctx context.Context, id int64) (*models.BomTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.st.templates.get(id)
	if !ok {
		return nil, apperr.NotFound("BOM template not found")
	}
	t = cloneTemplate(t)
	return &t, nil
}

func (m *Memory) CreateBomTemplate(ctx context.Context, t *models.BomTemplate) error {
	defer m.lock()()
	t.ID = m.st.templates.nextID()
	t.CreatedAt = m.now()
	t.UpdatedAt = t.CreatedAt
	m.st.templates.put(t.ID, cloneTemplate(*t))
	return nil
}

// Users

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.st.users.find(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return &u, nil
}

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	defer m.lock()()
	if _, dup := m.st.users.find(func(x models.User) bool { return strings.EqualFold(x.Email, u.Email) }); dup {
		return apperr.Conflict("email already exists", nil)
	}
	u.ID = m.st.users.nextID()
	u.CreatedAt = m.now()
	u.UpdatedAt = u.CreatedAt
	m.st.users.put(u.ID, *u)
	return nil
}
