package repository

import (
	"context"
	"testing"

	plandomain "github.com/smallbiznis/streamhub/internal/plan/domain"
	"github.com/smallbiznis/streamhub/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertIfAbsentKeepsFirstRow(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&plandomain.SubscriptionPlan{}))

	r := Provide()
	ctx := context.Background()

	first, err := r.InsertIfAbsent(ctx, conn, &plandomain.SubscriptionPlan{ID: 1, OrganizationID: 10, Name: "Basic", MaxCredits: 50, PriceMonthlyCents: 990})
	require.NoError(t, err)
	second, err := r.InsertIfAbsent(ctx, conn, &plandomain.SubscriptionPlan{ID: 2, OrganizationID: 10, Name: "Basic", MaxCredits: 999})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 50, second.MaxCredits)

	_, err = r.InsertIfAbsent(ctx, conn, &plandomain.SubscriptionPlan{ID: 3, OrganizationID: 11, Name: "Basic", MaxCredits: 50})
	require.NoError(t, err)

	plans, err := r.ListByOrganization(ctx, conn, 10)
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	_, err = r.FindByID(ctx, conn, 42)
	assert.ErrorIs(t, err, plandomain.ErrPlanNotFound)
}
