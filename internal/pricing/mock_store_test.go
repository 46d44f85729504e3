package pricing

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/kjannette/pse-price-backend/internal/models"
)

// MockStore is a testify mock of Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) record(args mock.Arguments) (*models.PriceRecord, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PriceRecord), args.Error(1)
}

func (m *MockStore) LatestComplete(ctx context.Context) (*models.PriceRecord, error) {
	return m.record(m.Called(ctx))
}

func (m *MockStore) NextForecast(ctx context.Context, from time.Time) (*models.PriceRecord, error) {
	return m.record(m.Called(ctx, from))
}

func (m *MockStore) LatestForecast(ctx context.Context) (*models.PriceRecord, error) {
	return m.record(m.Called(ctx))
}

func (m *MockStore) PreviousComplete(ctx context.Context, before time.Time) (*models.PriceRecord, error) {
	return m.record(m.Called(ctx, before))
}

func (m *MockStore) Window(ctx context.Context, from, to time.Time) ([]models.PriceRecord, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PriceRecord), args.Error(1)
}

func (m *MockStore) WindowStats(ctx context.Context, from, to time.Time) (*models.Stats, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Stats), args.Error(1)
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func f64(v float64) *float64 { return &v }

func str(v string) *string { return &v }

func completeRec(ts time.Time, cen, cor, ceb float64) *models.PriceRecord {
	return &models.PriceRecord{DTime: ts, CENCost: f64(cen), CORCost: f64(cor), CEBPPCost: f64(ceb)}
}

func forecastRec(ts time.Time, csdac float64) *models.PriceRecord {
	return &models.PriceRecord{DTime: ts, CSDACPLN: f64(csdac)}
}

var noRecord *models.PriceRecord
