package store

import "context"

// StateTable is the subset of *db.DB used for state persistence
type StateTable interface {
	GetState(ctx context.Context, key string) ([]byte, bool, error)
	PutState(ctx context.Context, key string, value []byte) error
	DeleteState(ctx context.Context, key string) error
}

// Postgres is a Backend on the wizard_state table
type Postgres struct {
	table StateTable
}

// NewPostgres wraps a state table as a Backend
func NewPostgres(table StateTable) *Postgres {
	return &Postgres{table: table}
}

// Get implements Backend
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.table.GetState(ctx, key)
}

// Put implements Backend
func (p *Postgres) Put(ctx context.Context, key string, value []byte) error {
	return p.table.PutState(ctx, key, value)
}

// Delete implements Backend
func (p *Postgres) Delete(ctx context.Context, key string) error {
	return p.table.DeleteState(ctx, key)
}
