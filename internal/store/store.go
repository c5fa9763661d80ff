// Package store persists the inventory entities. Lookups that miss return
// apperr.NotFound, uniqueness violations return apperr.Conflict and driver
// failures return apperr.Infrastructure.
package store

import (
	"context"
	"time"

	"assetdb-api/internal/models"
)

type LocationFilter struct {
	ClientID int64 // 0 matches every client
	ParentID *int64
	RootOnly bool
	Code     string
}

type AssetFilter struct {
	ClientID   int64
	LocationID int64
	Tag        string
}

type PartFilter struct {
	IDs         []int64
	LinkedTo    int64 // supplier id
	NotLinkedTo int64 // supplier id
}

type JobFilter struct {
	ClientID int64
	AssetID  int64
	Status   models.JobStatus
	Limit    int
	Offset   int
}

type ClientStore interface {
	ListClients(ctx context.Context) ([]models.Client, error)
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	GetClientByCode(ctx context.Context, code string) (*models.Client, error)
	CreateClient(ctx context.Context, c *models.Client) error
	UpsertClient(ctx context.Context, c *models.Client) error
	DeleteClient(ctx context.Context, id int64) error
}

// LocationStore returns locations in creation order.
type LocationStore interface {
	ListLocations(ctx context.Context, f LocationFilter) ([]models.Location, error)
	CountLocations(ctx context.Context, f LocationFilter) (int, error)
	GetLocation(ctx context.Context, id int64) (*models.Location, error)
	CreateLocation(ctx context.Context, l *models.Location) error
	UpdateLocation(ctx context.Context, l *models.Location) error
	DeleteLocation(ctx context.Context, id int64) error
}

type AssetStore interface {
	ListAssets(ctx context.Context, f AssetFilter) ([]models.Asset, error)
	CountAssets(ctx context.Context, f AssetFilter) (int, error)
	GetAsset(ctx context.Context, id int64) (*models.Asset, error)
	CreateAsset(ctx context.Context, a *models.Asset) error
	UpdateAsset(ctx context.Context, a *models.Asset) error
	// UpsertAsset is keyed by (client, location, name, tag).
	UpsertAsset(ctx context.Context, a *models.Asset) error
}

type PartStore interface {
	ListParts(ctx context.Context, f PartFilter) ([]models.Part, error)
	GetPart(ctx context.Context, id int64) (*models.Part, error)
	GetPartBySKU(ctx context.Context, sku string) (*models.Part, error)
	CreatePart(ctx context.Context, p *models.Part) error
	UpdatePart(ctx context.Context, p *models.Part) error
	// UpsertPart is keyed by internal SKU and leaves supplier options alone.
	UpsertPart(ctx context.Context, p *models.Part) error
}

type SupplierStore interface {
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	GetSupplier(ctx context.Context, id int64) (*models.Supplier, error)
	GetSupplierByCode(ctx context.Context, code string) (*models.Supplier, error)
	CreateSupplier(ctx context.Context, s *models.Supplier) error
	UpsertSupplier(ctx context.Context, s *models.Supplier) error
}

type JobStore interface {
	// ListJobs returns one page and the total number of matches.
	ListJobs(ctx context.Context, f JobFilter) ([]models.Job, int, error)
	GetJob(ctx context.Context, id int64) (*models.Job, error)
	CreateJob(ctx context.Context, j *models.Job) error
	UpdateJob(ctx context.Context, j *models.Job) error
	// UpsertJob is keyed by job number and leaves resources and
	// attachments alone.
	UpsertJob(ctx context.Context, j *models.Job) error
}

type BomTemplateStore interface {
	// ListBomTemplates returns global templates plus, when clientID is
	// set, that client's templates. A nil clientID returns all templates.
	ListBomTemplates(ctx context.Context, clientID *int64) ([]models.BomTemplate, error)
	GetBomTemplate(ctx context.Context, id int64) (*models.BomTemplate, error)
	CreateBomTemplate(ctx context.Context, t *models.BomTemplate) error
}

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
}

// Store is the full entity store. Upserts fill ID, CreatedAt and
// UpdatedAt; the two timestamps are equal only for a freshly inserted row.
type Store interface {
	ClientStore
	LocationStore
	AssetStore
	PartStore
	SupplierStore
	JobStore
	BomTemplateStore
	UserStore

	// InTx runs fn atomically. Calling InTx on the Store passed to fn runs
	// the nested function in the same transaction.
	InTx(ctx context.Context, fn func(Store) error) error
}

// Inserted reports whether an upsert created the row.
func Inserted(createdAt, updatedAt time.Time) bool {
	return createdAt.Equal(updatedAt)
}
