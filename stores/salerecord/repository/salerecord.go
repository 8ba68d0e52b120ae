package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/domain"
	"github.com/mintleaf/goapi/domain/settlement"
	"github.com/mintleaf/goapi/service/query"
)

type impl struct {
	q query.Mongo
}

func New(q query.Mongo) settlement.SaleRecordRepo {
	return &impl{q}
}

func (im *impl) Insert(c ctx.Ctx, record settlement.SaleRecord) error {
	if err := im.q.Insert(c, domain.TableSaleRecords, record); err != nil {
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (im *impl) FindById(c ctx.Ctx, id string) (*settlement.SaleRecord, error) {
	res := &settlement.SaleRecord{}
	if err := im.q.FindOne(c, domain.TableSaleRecords, bson.M{"id": id}, res); err != nil {
		if err == query.ErrNotFound {
			return nil, domain.ErrNotFound
		}
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) FindByCollection(c ctx.Ctx, id domain.CollectionId, offset, limit int32) ([]*settlement.SaleRecord, error) {
	res := []*settlement.SaleRecord{}

	qry := bson.M{"collectionId": id}

	if err := im.q.Search(c, domain.TableSaleRecords, int(offset), int(limit), "-soldAt", qry, &res); err != nil {
		c.WithField("err", err).Error("q.Search failed")
		return nil, err
	}

	return res, nil
}

func (im *impl) CountByCollection(c ctx.Ctx, id domain.CollectionId) (int64, error) {
	n, err := im.q.Count(c, domain.TableSaleRecords, bson.M{"collectionId": id})
	if err != nil {
		c.WithField("err", err).Error("q.Count failed")
		return 0, err
	}
	return int64(n), nil
}
