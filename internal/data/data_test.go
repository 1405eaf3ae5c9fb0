package data

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/data/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-kratos/kratos/v2/log"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func sqliteConfig() *conf.Bootstrap {
	c := &conf.Bootstrap{Data: &conf.Data{}, Order: &conf.Order{}}
	c.Data.Database.Driver = "sqlite"
	c.Data.Database.Source = ":memory:"
	c.Data.Database.MaxOpenConns = 1
	c.Data.Database.AutoMigrate = true
	return c
}

// newTestData opens a migrated in-memory database. A single connection keeps
// every statement on the same memory database.
func newTestData(t *testing.T) *Data {
	t.Helper()
	db, err := NewDB(sqliteConfig(), log.DefaultLogger)
	require.NoError(t, err)
	require.NotNil(t, db)
	d, cleanup, err := NewData(sqliteConfig(), log.DefaultLogger, db, nil, nil)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return d
}

// newMockData wires gorm's MySQL dialect to sqlmock.
func newMockData(t *testing.T) (*Data, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return &Data{db: db, log: log.NewHelper(log.DefaultLogger)}, mock
}

func sampleOrder(number string) *biz.Order {
	return &biz.Order{
		OrderNumber:    number,
		GuestEmail:     "asha@example.com",
		Status:         constants.OrderStatusPending,
		PaymentStatus:  constants.PaymentStatusAwaiting,
		PaymentMethod:  constants.PaymentMethodRazorpay,
		Subtotal:       decimal.NewFromInt(1000),
		ShippingAmount: decimal.Zero,
		TaxAmount:      decimal.NewFromInt(180),
		DiscountAmount: decimal.Zero,
		Total:          decimal.NewFromInt(1180),
		ShippingAddress: biz.ShippingAddress{
			FullName:     "Asha Rao",
			Phone:        "9876543210",
			AddressLine1: "12 MG Road",
			City:         "Bengaluru",
			State:        "Karnataka",
			PostalCode:   "560001",
			Country:      "India",
		},
		Items: []*biz.OrderItem{{
			ProductName: "Oud Noir 50ml",
			VariantSize: "50ml",
			Quantity:    2,
			UnitPrice:   decimal.NewFromInt(500),
			TotalPrice:  decimal.NewFromInt(1000),
		}},
	}
}

func TestDataDisabledWithoutSource(t *testing.T) {
	db, err := NewDB(&conf.Bootstrap{Data: &conf.Data{}}, log.DefaultLogger)
	require.NoError(t, err)
	assert.Nil(t, db)

	d, cleanup, err := NewData(&conf.Bootstrap{Data: &conf.Data{}}, log.DefaultLogger, nil, nil, nil)
	require.NoError(t, err)
	defer cleanup()
	assert.False(t, d.Enabled())

	called := false
	require.NoError(t, d.Exec(context.Background(), func(context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestGormLogsThroughKratosLogger(t *testing.T) {
	var buf bytes.Buffer
	db, err := NewDB(sqliteConfig(), log.NewStdLogger(&buf))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Order{}))

	err = db.First(&model.Order{}, "order_number = ?", "MYS-20260101-0404").Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "lookup miss is not logged")

	assert.Error(t, db.Exec("SELECT * FROM no_such_table").Error)
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "module=data/gorm")
	assert.Contains(t, out, "no_such_table")
	assert.NotContains(t, out, "\x1b[", "no terminal colours")
}

func TestOrderRepoCreateAndGet(t *testing.T) {
	d := newTestData(t)
	repo := NewOrderRepo(sqliteConfig(), d, log.DefaultLogger)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleOrder("MYS-20261016-0001"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	require.Len(t, created.Items, 1)
	assert.Equal(t, created.ID, created.Items[0].OrderID)

	got, err := repo.GetByNumber(ctx, "MYS-20261016-0001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(1180)))
	assert.Equal(t, "Bengaluru", got.ShippingAddress.City)
	assert.Equal(t, "asha@example.com", got.GuestEmail)
	assert.Empty(t, got.UserID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Oud Noir 50ml", got.Items[0].ProductName)
	assert.Equal(t, 2, got.Items[0].Quantity)

	_, err = repo.GetByNumber(ctx, "MYS-20261016-9999")
	assert.ErrorIs(t, err, biz.ErrOrderNotFound)
}

func TestOrderRepoDuplicateNumber(t *testing.T) {
	d := newTestData(t)
	repo := NewOrderRepo(sqliteConfig(), d, log.DefaultLogger)
	ctx := context.Background()

	_, err := repo.Create(ctx, sampleOrder("MYS-20261016-0002"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, sampleOrder("MYS-20261016-0002"))
	assert.ErrorIs(t, err, biz.ErrDuplicateOrderNumber)
}

func TestOrderRepoUpdateStatus(t *testing.T) {
	d := newTestData(t)
	repo := NewOrderRepo(sqliteConfig(), d, log.DefaultLogger)
	ctx := context.Background()

	_, err := repo.Create(ctx, sampleOrder("MYS-20261016-0003"))
	require.NoError(t, err)

	err = d.Exec(ctx, func(ctx context.Context) error {
		o, err := repo.LockByNumber(ctx, "MYS-20261016-0003")
		if err != nil {
			return err
		}
		assert.Equal(t, constants.PaymentStatusAwaiting, o.PaymentStatus)
		_, err = repo.UpdateStatus(ctx, o.OrderNumber, biz.StatusUpdate{
			Status:        constants.OrderStatusPaid,
			PaymentStatus: constants.PaymentStatusCompleted,
			PaymentID:     "pay_123",
		})
		return err
	})
	require.NoError(t, err)

	got, err := repo.GetByNumber(ctx, "MYS-20261016-0003")
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusPaid, got.Status)
	assert.Equal(t, constants.PaymentStatusCompleted, got.PaymentStatus)
	assert.Equal(t, "pay_123", got.PaymentID)
	assert.Equal(t, constants.PaymentMethodRazorpay, got.PaymentMethod)

	_, err = repo.UpdateStatus(ctx, "MYS-20261016-9999", biz.StatusUpdate{Status: constants.OrderStatusPaid})
	assert.ErrorIs(t, err, biz.ErrOrderNotFound)
}

func TestOrderRepoTransactionRollsBack(t *testing.T) {
	d := newTestData(t)
	repo := NewOrderRepo(sqliteConfig(), d, log.DefaultLogger)
	ctx := context.Background()

	_, err := repo.Create(ctx, sampleOrder("MYS-20261016-0004"))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = d.Exec(ctx, func(ctx context.Context) error {
		if _, err := repo.UpdateStatus(ctx, "MYS-20261016-0004", biz.StatusUpdate{PaymentStatus: constants.PaymentStatusFailed}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetByNumber(ctx, "MYS-20261016-0004")
	require.NoError(t, err)
	assert.Equal(t, constants.PaymentStatusAwaiting, got.PaymentStatus)
}

func TestOrderRepoListStale(t *testing.T) {
	d := newTestData(t)
	repo := NewOrderRepo(sqliteConfig(), d, log.DefaultLogger)
	ctx := context.Background()

	awaiting := sampleOrder("MYS-20261016-0005")
	_, err := repo.Create(ctx, awaiting)
	require.NoError(t, err)

	cod := sampleOrder("MYS-20261016-0006")
	cod.PaymentMethod = constants.PaymentMethodCOD
	cod.PaymentStatus = constants.PaymentStatusPending
	_, err = repo.Create(ctx, cod)
	require.NoError(t, err)

	stale, err := repo.ListStale(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "MYS-20261016-0005", stale[0].OrderNumber)

	stale, err = repo.ListStale(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestOrderRepoItemFailureRollsBackOrder(t *testing.T) {
	d, mock := newMockData(t)
	repo := &orderRepo{data: d, log: log.NewHelper(log.DefaultLogger)}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `orders`")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `order_items`")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), sampleOrder("MYS-20261016-0007"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, biz.ErrDuplicateOrderNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepoItemFailureKeepsOrderWhenNonTransactional(t *testing.T) {
	d, mock := newMockData(t)
	repo := &orderRepo{data: d, itemsOutsideTx: true, log: log.NewHelper(log.DefaultLogger)}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `orders`")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `order_items`")).WillReturnError(errors.New("disk full"))

	got, err := repo.Create(context.Background(), sampleOrder("MYS-20261016-0008"))
	require.NoError(t, err)
	assert.Equal(t, "MYS-20261016-0008", got.OrderNumber)
	assert.Empty(t, got.Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepoMySQLDuplicateKey(t *testing.T) {
	d, mock := newMockData(t)
	repo := &orderRepo{data: d, log: log.NewHelper(log.DefaultLogger)}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `orders`")).
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'MYS-20261016-0009' for key 'order_number'"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), sampleOrder("MYS-20261016-0009"))
	assert.ErrorIs(t, err, biz.ErrDuplicateOrderNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, isDuplicateKey(nil))
	assert.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKey(&mysqldriver.MySQLError{Number: 1062}))
	assert.True(t, isDuplicateKey(errors.New("UNIQUE constraint failed: orders.order_number")))
	assert.False(t, isDuplicateKey(&mysqldriver.MySQLError{Number: 1213}))
}
