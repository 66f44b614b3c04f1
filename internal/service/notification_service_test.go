package service_test

import (
	"context"
	"testing"

	"safevoice/internal/domain"
	"safevoice/internal/models"
	"safevoice/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestNotificationReadState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.fx.User(domain.RoleUser, domain.PlanFree)
	other := e.fx.User(domain.RoleUser, domain.PlanFree)
	p := testutil.Principal(u)

	var ids []uint
	for i := 0; i < 3; i++ {
		n := &models.Notification{UserID: u.ID, Type: domain.NotificationReportStatus, Message: "changed"}
		require.NoError(t, e.notifications.Record(ctx, e.repos, n))
		ids = append(ids, n.ID)
	}

	count, err := e.notifications.UnreadCount(ctx, p)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	require.NoError(t, e.notifications.MarkRead(ctx, p, ids[0]))
	require.NoError(t, e.notifications.MarkRead(ctx, p, ids[0]))
	requireKind(t, e.notifications.MarkRead(ctx, testutil.Principal(other), ids[1]), domain.KindNotFound)

	unread, err := e.notifications.List(ctx, p, true, 1, 20)
	require.NoError(t, err)
	require.Len(t, unread, 2)

	n, err := e.notifications.MarkAllRead(ctx, p)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	all, err := e.notifications.List(ctx, p, false, 1, 20)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, v := range all {
		require.True(t, v.IsRead)
		require.NotNil(t, v.ReadAt)
	}
}
