package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"taproom-backend/database"
	"taproom-backend/models"
	"taproom-backend/notify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database per test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedDefaultSettings(db))
	return db
}

type mockPublisher struct {
	mock.Mock
	calls int32
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	defer atomic.AddInt32(&m.calls, 1)
	args := m.Called(ctx, routingKey, payload)
	return args.Error(0)
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) waitFor(t *testing.T, n int) {
	t.Helper()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&m.calls) >= int32(n) }, time.Second, 5*time.Millisecond)
}

func newMockPublisher() *mockPublisher {
	p := &mockPublisher{}
	p.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return p
}

type mockMailer struct {
	mock.Mock
	calls int32
}

func (m *mockMailer) Send(ctx context.Context, msg notify.Message) error {
	defer atomic.AddInt32(&m.calls, 1)
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockMailer) waitFor(t *testing.T, n int) {
	t.Helper()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&m.calls) >= int32(n) }, time.Second, 5*time.Millisecond)
}

func newMockMailer() *mockMailer {
	m := &mockMailer{}
	m.On("Send", mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

func seedUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	u := models.User{Email: email, Password: "x", Name: "Test Customer", Role: models.RoleCustomer}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// seedUserWithPoints credits points through the ledger so the cached balance
// and the ledger agree.
func seedUserWithPoints(t *testing.T, db *gorm.DB, email string, points int) models.User {
	t.Helper()
	u := seedUser(t, db, email)
	if points > 0 {
		require.NoError(t, applyPoints(db, &models.PointTransaction{
			UserID: u.ID, Points: points, Type: models.PointsAdjustment, Description: "seed",
		}))
	}
	require.NoError(t, db.First(&u, "id = ?", u.ID).Error)
	return u
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, points int, available bool) models.Product {
	t.Helper()
	p := models.Product{
		Name:        name,
		Category:    "beer",
		Price:       decimal.RequireFromString(price),
		Points:      points,
		IsAvailable: available,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedReward(t *testing.T, db *gorm.DB, name string, cost, stock int, active bool) models.Reward {
	t.Helper()
	r := models.Reward{Name: name, PointsCost: cost, Stock: stock, IsActive: active}
	require.NoError(t, db.Create(&r).Error)
	return r
}

func seedService(t *testing.T, db *gorm.DB, name string, capacity int, active bool) models.Service {
	t.Helper()
	s := models.Service{Name: name, Capacity: capacity, DurationMinutes: 60, Price: decimal.Zero, IsActive: active}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func reloadUser(t *testing.T, db *gorm.DB, id uuid.UUID) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, "id = ?", id).Error)
	return u
}

func assertLedgerMatchesBalance(t *testing.T, db *gorm.DB, userID uuid.UUID) {
	t.Helper()
	sum, err := LedgerBalance(db, userID)
	require.NoError(t, err)
	assert.Equal(t, reloadUser(t, db, userID).CurrentPoints, sum, "ledger sum must equal cached balance")
}
