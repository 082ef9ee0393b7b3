// Package policy 集中定义角色与操作权限，所有管理端路由和视频访问都经由这里判断。
package policy

import (
	"prep_backend/internal/model"
	"time"
)

type Action string

const (
	ManageContent       Action = "manage_content"
	ViewAnalytics       Action = "view_analytics"
	ViewUsers           Action = "view_users"
	ManageUsers         Action = "manage_users"
	ManageAdmins        Action = "manage_admins"
	ManageRewards       Action = "manage_rewards"
	ManageSubscriptions Action = "manage_subscriptions"
	ViewSettings        Action = "view_settings"
)

var grants = map[model.UserRole]map[Action]bool{
	model.ContentAdmin: {
		ManageContent: true,
		ViewAnalytics: true,
		ViewUsers:     true,
	},
}

// Allows 判断角色是否可以执行操作，super_admin 拥有全部权限
func Allows(role model.UserRole, action Action) bool {
	if role == model.SuperAdmin {
		return true
	}
	return grants[role][action]
}

// Actions 返回角色拥有的全部操作，管理端角色列表接口使用
func Actions(role model.UserRole) []Action {
	all := []Action{ManageContent, ViewAnalytics, ViewUsers, ManageUsers, ManageAdmins, ManageRewards, ManageSubscriptions, ViewSettings}
	var out []Action
	for _, a := range all {
		if Allows(role, a) {
			out = append(out, a)
		}
	}
	return out
}

// CanWatch 免费视频任何人可看；付费视频需要付费套餐的订阅，且当前时间处于订阅期内
func CanWatch(video *model.VideoLesson, sub *model.UserSubscription, now time.Time) bool {
	if video == nil {
		return false
	}
	if video.IsFree {
		return true
	}
	if sub == nil || sub.Plan == nil || sub.Plan.IsFree() {
		return false
	}
	return sub.CoversTime(now)
}
