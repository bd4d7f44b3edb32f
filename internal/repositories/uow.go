package repositories

// UnitOfWork exposes the repositories bound to one atomic transaction. Every
// write performed through it becomes durable together at commit, or not at all.
type UnitOfWork interface {
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
}

// TxManager runs a function inside a single atomic transaction. If fn returns
// an error the transaction is rolled back and that error is returned; otherwise
// the transaction commits and Do returns the commit result.
type TxManager interface {
	Do(fn func(uow UnitOfWork) error) error
}
