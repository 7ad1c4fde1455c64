// Package catalog administers products and dining tables.
package catalog

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/inventory"
	"github.com/alocode/restopos/internal/repository"
	"github.com/alocode/restopos/pkg/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProductInput create (ID zero) or update a product. Stock is the opening
// stock of a new base product; later changes go through Restock.
type ProductInput struct {
	ID               int64           `json:"id,string"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	Stock            decimal.Decimal `json:"stock"`
	Active           *bool           `json:"active,omitempty"`
	BaseProductID    *int64          `json:"base_product_id,string,omitempty"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
}

// TableInput create (ID zero) or update a table
type TableInput struct {
	ID       int64  `json:"id,string"`
	Number   int    `json:"number"`
	Capacity int    `json:"capacity"`
	Location string `json:"location"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || utf8.RuneCountInString(in.Name) > 100 {
		return errors.Wrap(domain.ErrInvalidProduct, "name must have 1 to 100 characters")
	}
	if in.Price.IsNegative() {
		return errors.Wrapf(domain.ErrInvalidAmount, "price %s", in.Price)
	}
	if in.Stock.IsNegative() {
		return errors.Wrapf(domain.ErrInvalidAmount, "stock %s", in.Stock)
	}
	if in.ConversionFactor.IsZero() {
		in.ConversionFactor = decimal.NewFromInt(1)
	}
	if !in.ConversionFactor.IsPositive() {
		return errors.Wrapf(domain.ErrInvalidConversion, "conversion factor %s", in.ConversionFactor)
	}
	return nil
}

// SaveProduct creates or updates a product. A derived product must point to an
// existing base product that is not derived itself; its own counters stay at zero.
func (s *Service) SaveProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var product *domain.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewGormProductRepository(tx)
		if in.ID == 0 {
			product = &domain.Product{
				ID:       common.UUIDint64(),
				Stock:    in.Stock,
				Reserved: decimal.Zero,
				Active:   true,
			}
			if in.BaseProductID != nil {
				product.Stock = decimal.Zero
			}
		} else {
			var err error
			if product, err = repo.GetForUpdate(ctx, in.ID); err != nil {
				return err
			}
			if err := s.checkConversionChange(ctx, tx, product, in); err != nil {
				return err
			}
		}
		product.Name = in.Name
		product.Price = in.Price
		product.ConversionFactor = in.ConversionFactor
		product.BaseProductID = in.BaseProductID
		if in.Active != nil {
			product.Active = *in.Active
		}
		if product.IsDerived() {
			if err := s.checkDerived(ctx, repo, product); err != nil {
				return err
			}
			product.Stock = decimal.Zero
			product.Reserved = decimal.Zero
		} else {
			product.ConversionFactor = decimal.NewFromInt(1)
		}
		if in.ID == 0 {
			return errors.Wrap(repo.Create(ctx, product), "create product")
		}
		return errors.Wrap(repo.Save(ctx, product), "save product")
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("product saved",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name),
		zap.Bool("derived", product.IsDerived()),
		zap.String("namespace", "catalog"))
	return product, nil
}

func (s *Service) checkDerived(ctx context.Context, repo repository.ProductRepository, p *domain.Product) error {
	if *p.BaseProductID == p.ID {
		return errors.Wrapf(domain.ErrInvalidConversion, "%s cannot derive from itself", p.Name)
	}
	base, err := repo.GetByID(ctx, *p.BaseProductID)
	if err != nil {
		return err
	}
	if base.IsDerived() {
		return errors.Wrapf(domain.ErrInvalidConversion, "base %s is derived", base.Name)
	}
	dependents, err := repo.CountDerivedFrom(ctx, p.ID)
	if err != nil {
		return errors.Wrap(err, "count derived products")
	}
	if dependents > 0 {
		return errors.Wrapf(domain.ErrInvalidConversion, "%s is the base of %d products", p.Name, dependents)
	}
	if p.Reserved.IsPositive() {
		return errors.Wrapf(domain.ErrInvalidConversion, "%s has %s units reserved", p.Name, p.Reserved)
	}
	if !p.Stock.IsZero() {
		return errors.Wrapf(domain.ErrInvalidConversion, "%s still holds %s units of stock", p.Name, p.Stock)
	}
	return nil
}

// checkConversionChange refuses to move a derived product to another base or
// factor while active orders hold reservations made through the current one.
func (s *Service) checkConversionChange(ctx context.Context, tx *gorm.DB, current *domain.Product, in ProductInput) error {
	if !current.IsDerived() {
		return nil
	}
	sameBase := in.BaseProductID != nil && *in.BaseProductID == *current.BaseProductID
	if sameBase && in.ConversionFactor.Equal(current.ConversionFactor) {
		return nil
	}
	lines, err := repository.NewGormOrderRepository(tx).CountActiveLinesForProduct(ctx, current.ID)
	if err != nil {
		return errors.Wrap(err, "count active order lines")
	}
	if lines > 0 {
		return errors.Wrapf(domain.ErrInvalidConversion, "%s is on %d active order lines", current.Name, lines)
	}
	return nil
}

func (s *Service) SetProductActive(ctx context.Context, id int64, active bool) (*domain.Product, error) {
	var product *domain.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewGormProductRepository(tx)
		var err error
		if product, err = repo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		product.Active = active
		return errors.Wrap(repo.Save(ctx, product), "save product")
	})
	return product, err
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return repository.NewGormProductRepository(s.db).GetByID(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, activeOnly bool) ([]*domain.Product, error) {
	return repository.NewGormProductRepository(s.db).List(ctx, activeOnly)
}

// SearchProducts active products whose name contains q, case insensitive
func (s *Service) SearchProducts(ctx context.Context, q string) ([]*domain.Product, error) {
	return repository.NewGormProductRepository(s.db).Search(ctx, q)
}

// Restock adds stock to a base product and records the movement
func (s *Service) Restock(ctx context.Context, id int64, qty decimal.Decimal) (*domain.Product, error) {
	var product *domain.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		product, err = inventory.NewLedger(tx).Restock(ctx, id, qty)
		return err
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("product restocked",
		zap.Int64("product_id", id),
		zap.String("qty", qty.String()),
		zap.String("stock", product.Stock.String()),
		zap.String("namespace", "catalog"))
	return product, nil
}

// Availability sellable units of every active product
func (s *Service) Availability(ctx context.Context) ([]domain.ProductAvailability, error) {
	return inventory.NewLedger(s.db).Availability(ctx)
}

func (s *Service) Movements(ctx context.Context, productID int64, limit int) ([]*domain.StockMovement, error) {
	return inventory.NewLedger(s.db).Movements(ctx, productID, limit)
}

// SaveTable creates or updates a table; numbers are unique
func (s *Service) SaveTable(ctx context.Context, in TableInput) (*domain.DiningTable, error) {
	if in.Number < 1 {
		return nil, errors.Wrapf(domain.ErrInvalidTable, "number %d", in.Number)
	}
	if in.Capacity < 1 {
		return nil, errors.Wrapf(domain.ErrInvalidTable, "capacity %d", in.Capacity)
	}
	var table *domain.DiningTable
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewGormTableRepository(tx)
		existing, err := repo.GetByNumber(ctx, in.Number)
		if err != nil && !errors.Is(err, domain.ErrTableNotFound) {
			return err
		}
		if existing != nil && existing.ID != in.ID {
			return errors.Wrapf(domain.ErrDuplicateTable, "table %d", in.Number)
		}
		if in.ID == 0 {
			table = &domain.DiningTable{ID: common.UUIDint64(), State: domain.TableAvailable}
		} else if table, err = repo.GetForUpdate(ctx, in.ID); err != nil {
			return err
		}
		table.Number = in.Number
		table.Capacity = in.Capacity
		table.Location = strings.TrimSpace(in.Location)
		if in.ID == 0 {
			return errors.Wrap(repo.Create(ctx, table), "create table")
		}
		return errors.Wrap(repo.Save(ctx, table), "save table")
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("table saved",
		zap.Int64("table_id", table.ID),
		zap.Int("number", table.Number),
		zap.String("namespace", "catalog"))
	return table, nil
}

// SetTableActive toggles a table between INACTIVE and AVAILABLE. An occupied
// table cannot be deactivated.
func (s *Service) SetTableActive(ctx context.Context, id int64, active bool) (*domain.DiningTable, error) {
	var table *domain.DiningTable
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewGormTableRepository(tx)
		var err error
		if table, err = repo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		next := table.State
		switch {
		case active && table.State == domain.TableInactive:
			next = domain.TableAvailable
		case !active && table.State == domain.TableOccupied:
			return errors.Wrapf(domain.ErrTableUnavailable, "table %d is occupied", table.Number)
		case !active:
			next = domain.TableInactive
		}
		if next == table.State {
			return nil
		}
		table.State = next
		return errors.Wrap(repo.UpdateState(ctx, table.ID, next), "update table state")
	})
	return table, err
}

func (s *Service) ListTables(ctx context.Context) ([]*domain.DiningTable, error) {
	return repository.NewGormTableRepository(s.db).List(ctx)
}

func (s *Service) ListAvailableTables(ctx context.Context) ([]*domain.DiningTable, error) {
	return repository.NewGormTableRepository(s.db).ListByState(ctx, domain.TableAvailable)
}

// SearchTables matches the table number or its state
func (s *Service) SearchTables(ctx context.Context, q string) ([]*domain.DiningTable, error) {
	return repository.NewGormTableRepository(s.db).Search(ctx, q)
}
