package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/telecomservice/internal/clock"
	"github.com/smallbiznis/telecomservice/internal/company/domain"
	"github.com/smallbiznis/telecomservice/internal/company/repository"
	"github.com/smallbiznis/telecomservice/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) domain.Service {
	svc, _ := newTestServiceWithDB(t)
	return svc
}

func newTestServiceWithDB(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Company{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	return NewService(Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		GenID: node,
		Repo:  repository.NewRepository(conn),
	}), conn
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Create(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestEnsureByNameIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.EnsureByName(ctx, "Main")
	require.NoError(t, err)
	second, err := svc.EnsureByName(ctx, "Main")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestExistsAndNames(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	company, err := svc.Create(ctx, "Acme Telecom")
	require.NoError(t, err)

	ok, err := svc.Exists(ctx, company.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, company.ID+1)
	require.NoError(t, err)
	assert.False(t, ok)

	names, err := svc.Names(ctx, []snowflake.ID{company.ID})
	require.NoError(t, err)
	assert.Equal(t, "Acme Telecom", names[company.ID])

	_, err = svc.Get(ctx, 12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNamesFallsBackToDatabase(t *testing.T) {
	svc, conn := newTestServiceWithDB(t)
	ctx := context.Background()

	require.NoError(t, conn.Create(&domain.Company{ID: 900, Name: "Direct", Active: true}).Error)
	cached, err := svc.Create(ctx, "Cached")
	require.NoError(t, err)

	names, err := svc.Names(ctx, []snowflake.ID{900, cached.ID, 900, 901})
	require.NoError(t, err)
	assert.Equal(t, map[snowflake.ID]string{900: "Direct", cached.ID: "Cached"}, names)
}
