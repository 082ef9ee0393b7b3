// Package testutil 提供测试用的内存数据库与数据构造方法
package testutil

import (
	"fmt"
	"prep_backend/internal/model"
	"prep_backend/pkg/database"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB 每个测试独立的 SQLite 内存库，已迁移并写入默认数据
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser 创建已激活的学生账号，同时建立连续天数和积分账户
func CreateUser(t *testing.T, db *gorm.DB, email, password string) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		Name:     strings.Split(email, "@")[0],
		Email:    &email,
		Password: string(hash),
		Role:     model.Student,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&model.UserStreak{UserID: user.ID}).Error)
	require.NoError(t, db.Create(&model.UserPoints{UserID: user.ID}).Error)
	return user
}

// Catalog 一组最小的目录数据
type Catalog struct {
	Education *model.EducationLevel
	Class     *model.ClassLevel
	Subject   *model.Subject
	Free      *model.VideoLesson
	Paid      *model.VideoLesson
}

func CreateCatalog(t *testing.T, db *gorm.DB) *Catalog {
	t.Helper()

	edu := &model.EducationLevel{Name: "Senior Secondary"}
	require.NoError(t, db.Create(edu).Error)
	class := &model.ClassLevel{Name: "SS1", EducationLevelID: edu.ID}
	require.NoError(t, db.Create(class).Error)
	subject := &model.Subject{Name: "Mathematics"}
	require.NoError(t, db.Create(subject).Error)

	free := &model.VideoLesson{
		Title: "Intro to Algebra", SubjectID: subject.ID, ClassLevelID: class.ID,
		VideoSource: model.SourceYouTube, VideoID: "abc123", Duration: 60, IsFree: true, OrderInSubject: 1,
	}
	require.NoError(t, db.Create(free).Error)
	paid := &model.VideoLesson{
		Title: "Quadratic Equations", SubjectID: subject.ID, ClassLevelID: class.ID,
		VideoSource: model.SourceYouTube, VideoID: "def456", Duration: 120, OrderInSubject: 2,
	}
	require.NoError(t, db.Create(paid).Error)

	return &Catalog{Education: edu, Class: class, Subject: subject, Free: free, Paid: paid}
}

// FindPlan 按类型查找默认套餐
func FindPlan(t *testing.T, db *gorm.DB, planType model.PlanType) *model.SubscriptionPlan {
	t.Helper()
	var plan model.SubscriptionPlan
	require.NoError(t, db.Where("plan_type = ?", planType).First(&plan).Error)
	return &plan
}
