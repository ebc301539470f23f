package treba

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapponejosh/parish-api/internal/database"
	"github.com/zapponejosh/parish-api/internal/logger"
)

func testService(t *testing.T) *Service {
	t.Helper()

	db, err := database.Open(database.DefaultConfig(":memory:"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Migrate(context.Background())
	require.NoError(t, err)
	return NewService(db, logger.Discard())
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name   string
		typ    database.TrebaType
		period database.TrebaPeriod
		count  int
		want   int64
		err    error
	}{
		{"health once", database.TrebaHealth, database.PeriodOnce, 3, 150, nil},
		{"repose year", database.TrebaRepose, database.PeriodYear, 1, 5000, nil},
		{"magpie forty days", database.TrebaMagpie, database.PeriodFortyDays, 10, 5000, nil},
		{"moleben once", database.TrebaMoleben, database.PeriodOnce, 2, 400, nil},
		{"magpie once not offered", database.TrebaMagpie, database.PeriodOnce, 1, 0, ErrUnavailable},
		{"unknown type", "BLESSING", database.PeriodOnce, 1, 0, ErrValidation},
		{"unknown period", database.TrebaHealth, "DECADE", 1, 0, ErrValidation},
		{"no names", database.TrebaHealth, database.PeriodOnce, 0, 0, ErrValidation},
		{"too many names", database.TrebaHealth, database.PeriodOnce, 11, 0, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Price(tt.typ, tt.period, tt.count)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeNames(t *testing.T) {
	got, err := NormalizeNames([]string{"  John ", "", "   ", "Mary  Magdalene"})
	require.NoError(t, err)
	assert.Equal(t, []string{"John", "Mary Magdalene"}, got)

	_, err = NormalizeNames([]string{" ", ""})
	assert.ErrorIs(t, err, ErrValidation)

	many := make([]string, MaxNames+1)
	for i := range many {
		many[i] = "Name"
	}
	_, err = NormalizeNames(many)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to database.TrebaStatus
		want     bool
	}{
		{database.TrebaPending, database.TrebaPaid, true},
		{database.TrebaPending, database.TrebaCancelled, true},
		{database.TrebaPending, database.TrebaCompleted, false},
		{database.TrebaPaid, database.TrebaInProgress, true},
		{database.TrebaPaid, database.TrebaCancelled, true},
		{database.TrebaInProgress, database.TrebaCompleted, true},
		{database.TrebaInProgress, database.TrebaCancelled, false},
		{database.TrebaCompleted, database.TrebaPending, false},
		{database.TrebaCancelled, database.TrebaPaid, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCreate(t *testing.T) {
	svc := testService(t)
	svc.now = func() time.Time { return time.Date(2024, 4, 5, 10, 0, 0, 0, time.UTC) }

	email := "parishioner@example.org"
	got, err := svc.Create(context.Background(), Order{
		Type:   database.TrebaHealth,
		Period: database.PeriodWeek,
		Names:  []string{"John", " ", "Anna"},
		Email:  &email,
	})
	require.NoError(t, err)

	assert.NotZero(t, got.ID)
	assert.Regexp(t, regexp.MustCompile(`^TR-20240405-[0-9A-F]{8}$`), got.OrderNumber)
	assert.Equal(t, []string{"John", "Anna"}, got.Names)
	assert.Equal(t, int64(600), got.Price)
	assert.Equal(t, database.TrebaPending, got.Status)

	byNumber, err := svc.GetByOrderNumber(context.Background(), got.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, got.ID, byNumber.ID)
}

func TestLifecycle(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	order, err := svc.Create(ctx, Order{Type: database.TrebaMagpie, Period: database.PeriodFortyDays, Names: []string{"Peter"}})
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, order.ID, database.TrebaInProgress)
	assert.ErrorIs(t, err, database.ErrInvalidTransition)

	_, err = svc.ChangeStatus(ctx, order.ID, database.TrebaPaid)
	assert.ErrorIs(t, err, database.ErrInvalidTransition, "payment goes through RecordPayment")

	paid, err := svc.RecordPayment(ctx, order.ID, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, database.TrebaPaid, paid.Status)
	require.NotNil(t, paid.PaymentID)
	assert.Equal(t, "pay_123", *paid.PaymentID)
	assert.NotNil(t, paid.PaidAt)

	_, err = svc.RecordPayment(ctx, order.ID, "pay_456")
	assert.ErrorIs(t, err, database.ErrInvalidTransition)

	started, err := svc.ChangeStatus(ctx, order.ID, database.TrebaInProgress)
	require.NoError(t, err)
	assert.Equal(t, database.TrebaInProgress, started.Status)

	done, err := svc.ChangeStatus(ctx, order.ID, database.TrebaCompleted)
	require.NoError(t, err)
	assert.Equal(t, database.TrebaCompleted, done.Status)

	_, err = svc.ChangeStatus(ctx, order.ID, database.TrebaCancelled)
	assert.ErrorIs(t, err, database.ErrInvalidTransition)

	_, err = svc.ChangeStatus(ctx, 999, database.TrebaCancelled)
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = svc.RecordPayment(ctx, 999, "pay")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestList(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, Order{Type: database.TrebaHealth, Period: database.PeriodOnce, Names: []string{"A"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Order{Type: database.TrebaRepose, Period: database.PeriodOnce, Names: []string{"B"}})
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, a.ID, database.TrebaCancelled)
	require.NoError(t, err)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cancelled, err := svc.List(ctx, database.TrebaCancelled)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, a.ID, cancelled[0].ID)

	_, err = svc.List(ctx, "LOST")
	assert.ErrorIs(t, err, ErrValidation)
}
