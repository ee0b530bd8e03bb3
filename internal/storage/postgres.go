package storage

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
)

// Postgres is the gorm-backed Store.
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the tables and indexes when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(_tables...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}

func (p *Postgres) InsertTrade(ctx context.Context, rec TradeRecord) error {
	return p.create(ctx, &rec)
}

func (p *Postgres) InsertLiquidation(ctx context.Context, rec LiquidationRecord) error {
	return p.create(ctx, &rec)
}

func (p *Postgres) InsertClimacticMove(ctx context.Context, rec ClimacticRecord) error {
	return p.create(ctx, &rec)
}

func (p *Postgres) InsertVolume(ctx context.Context, rec VolumeRecord) error {
	return p.create(ctx, &rec)
}

func (p *Postgres) create(ctx context.Context, rec any) error {
	if err := p.db.WithContext(ctx).Create(rec).Error; err != nil {
		return errors.Wrapf(err, "insert %T", rec)
	}
	return nil
}

func (p *Postgres) RecentLiquidations(ctx context.Context, limit int) ([]LiquidationRecord, error) {
	var rows []LiquidationRecord
	err := p.db.WithContext(ctx).
		Where("amount > ?", _minLiquidationAmount).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query liquidations")
	}
	return rows, nil
}

func (p *Postgres) ClimacticMoves(ctx context.Context, limit int) ([]ClimacticRecord, error) {
	var rows []ClimacticRecord
	err := p.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query climactic moves")
	}
	return rows, nil
}

func (p *Postgres) VolumeAnalysis(ctx context.Context, limit int) ([]VolumeRecord, error) {
	var rows []VolumeRecord
	err := p.db.WithContext(ctx).
		Where("relative_volume > ?", _minRelativeVolume).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query volume analysis")
	}
	return rows, nil
}

func (p *Postgres) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range _tables {
			res := tx.Where("timestamp < ?", before).Delete(table)
			if res.Error != nil {
				return errors.Wrapf(res.Error, "cleanup %T", table)
			}
			total += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
