package standard

import "context"

// Store abstracts standard catalog persistence.
type Store interface {
	Create(ctx context.Context, s *Standard) error
	Update(ctx context.Context, s *Standard) error
	FindByID(ctx context.Context, id int64) (*Standard, error)
	FindByName(ctx context.Context, name string) (*Standard, error)
	List(ctx context.Context) ([]*Standard, error)
	Delete(ctx context.Context, id int64) error
}
