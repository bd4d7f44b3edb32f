package repositories

import (
	"gorm.io/gorm"
)

// GormTxManager runs units of work inside gorm transactions. Every repository
// handed to the callback is bound to the same transaction handle, so all
// writes commit or roll back together.
type GormTxManager struct {
	db *gorm.DB
}

// NewGormTxManager creates a TxManager on top of the given database handle.
func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{
		db: db,
	}
}

// Do executes fn inside a database transaction. An error from fn rolls the
// transaction back and is returned unchanged; commit errors surface as-is.
func (m *GormTxManager) Do(fn func(uow UnitOfWork) error) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormUnitOfWork{tx: tx})
	})
}

// gormUnitOfWork exposes repositories rebound to one transaction handle.
type gormUnitOfWork struct {
	tx *gorm.DB
}

func (u *gormUnitOfWork) Products() ProductRepository {
	return NewGORMProductRepository(u.tx)
}

func (u *gormUnitOfWork) Carts() CartRepository {
	return NewGORMCartRepository(u.tx)
}

func (u *gormUnitOfWork) Orders() OrderRepository {
	return NewGORMOrderRepository(u.tx)
}
