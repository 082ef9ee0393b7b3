package policy

import (
	"testing"
	"time"

	"prep_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestAllows(t *testing.T) {
	assert.True(t, Allows(model.SuperAdmin, ManageAdmins))
	assert.True(t, Allows(model.ContentAdmin, ManageContent))
	assert.True(t, Allows(model.ContentAdmin, ViewUsers))
	assert.False(t, Allows(model.ContentAdmin, ManageUsers))
	assert.False(t, Allows(model.ContentAdmin, ManageSubscriptions))
	assert.False(t, Allows(model.Student, ManageContent))
	assert.False(t, Allows(model.UserRole("unknown"), ViewUsers))
}

func TestActions(t *testing.T) {
	assert.Empty(t, Actions(model.Student))
	assert.ElementsMatch(t, []Action{ManageContent, ViewAnalytics, ViewUsers}, Actions(model.ContentAdmin))
	assert.Len(t, Actions(model.SuperAdmin), 8)
}

func TestCanWatch(t *testing.T) {
	now := time.Now()
	end := now.Add(24 * time.Hour)
	paidPlan := &model.SubscriptionPlan{Name: "Standard", Price: 2500}
	freePlan := &model.SubscriptionPlan{Name: "Free", Price: 0}
	active := &model.UserSubscription{Plan: paidPlan, StartDate: now.Add(-time.Hour), EndDate: &end, IsActive: true}
	inactive := &model.UserSubscription{Plan: paidPlan, StartDate: now.Add(-time.Hour), EndDate: &end, IsActive: false}
	future := &model.UserSubscription{Plan: paidPlan, StartDate: now.Add(time.Hour), EndDate: &end, IsActive: true}
	onFreePlan := &model.UserSubscription{Plan: freePlan, StartDate: now.Add(-time.Hour), EndDate: &end, IsActive: true}
	noPlan := &model.UserSubscription{StartDate: now.Add(-time.Hour), EndDate: &end, IsActive: true}

	free := &model.VideoLesson{IsFree: true}
	paid := &model.VideoLesson{IsFree: false}

	assert.True(t, CanWatch(free, nil, now))
	assert.False(t, CanWatch(paid, nil, now))
	assert.True(t, CanWatch(paid, active, now))
	assert.False(t, CanWatch(paid, inactive, now))
	assert.False(t, CanWatch(paid, future, now))
	assert.False(t, CanWatch(paid, onFreePlan, now))
	assert.False(t, CanWatch(paid, noPlan, now))
	assert.True(t, CanWatch(free, onFreePlan, now))
	assert.False(t, CanWatch(nil, active, now))
}
