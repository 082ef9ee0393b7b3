package service

import (
	"errors"
	"prep_backend/internal/model"
	"prep_backend/internal/policy"
	"prep_backend/internal/repository"
	"prep_backend/internal/util"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// VideoInput 管理端创建/修改视频
type VideoInput struct {
	Title          string
	Slug           string
	Description    string
	SubjectID      uint
	ClassLevelID   uint
	VideoSource    model.VideoSource
	VideoID        string
	AccessToken    string
	Thumbnail      string
	Duration       int
	IsFree         bool
	OrderInSubject int
}

// VideoAccess 视频访问检查结果
type VideoAccess struct {
	VideoID   uint   `json:"videoId"`
	CanWatch  bool   `json:"canWatch"`
	IsFree    bool   `json:"isFree"`
	VideoURL  string `json:"videoUrl,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ExpiresAt string `json:"subscriptionEndsAt,omitempty"`
}

// VideoView 对外展示的视频，只有免费视频附带播放地址，付费视频经 CheckAccess 获取
type VideoView struct {
	model.VideoLesson
	VideoURL string `json:"videoUrl,omitempty"`
}

func NewVideoView(v model.VideoLesson) VideoView {
	view := VideoView{VideoLesson: v}
	if v.IsFree {
		view.VideoURL = v.VideoURL()
	}
	return view
}

func NewVideoViews(videos []model.VideoLesson) []VideoView {
	out := make([]VideoView, 0, len(videos))
	for _, v := range videos {
		out = append(out, NewVideoView(v))
	}
	return out
}

type CatalogService struct {
	CatalogRepo *repository.CatalogRepository
	SubRepo     *repository.SubscriptionRepository
}

func NewCatalogService(catalogRepo *repository.CatalogRepository, subRepo *repository.SubscriptionRepository) *CatalogService {
	return &CatalogService{
		CatalogRepo: catalogRepo,
		SubRepo:     subRepo,
	}
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// isDuplicate 唯一索引冲突，兼容 mysql、postgres 与 sqlite 的错误信息
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

// ---- 公共浏览 ----

func (s *CatalogService) EducationLevels() ([]model.EducationLevel, error) {
	return s.CatalogRepo.ListEducationLevels()
}

func (s *CatalogService) ClassLevels(educationSlug string) ([]model.ClassLevel, error) {
	return s.CatalogRepo.ListClassLevels(educationSlug)
}

func (s *CatalogService) Subjects() ([]model.Subject, error) {
	return s.CatalogRepo.ListSubjects()
}

// Courses 所有科目及视频数量
func (s *CatalogService) Courses() ([]repository.SubjectSummary, error) {
	return s.CatalogRepo.SubjectSummaries(false)
}

// Featured 有免费视频的科目
func (s *CatalogService) Featured() ([]repository.SubjectSummary, error) {
	return s.CatalogRepo.SubjectSummaries(true)
}

func (s *CatalogService) FreeSamples() ([]VideoView, error) {
	videos, err := s.CatalogRepo.RandomFreeVideos(util.FreeSampleLimit)
	if err != nil {
		return nil, err
	}
	return NewVideoViews(videos), nil
}

func (s *CatalogService) Videos(filter repository.VideoFilter, page, limit int) ([]VideoView, int64, error) {
	videos, total, err := s.CatalogRepo.ListVideos(filter, util.Offset(page, limit), limit)
	if err != nil {
		return nil, 0, err
	}
	return NewVideoViews(videos), total, nil
}

// Video 按 slug 查找，slug 为纯数字时按 ID 查找
func (s *CatalogService) Video(slugOrID string) (*model.VideoLesson, error) {
	if id, err := strconv.ParseUint(slugOrID, 10, 64); err == nil {
		video, err := s.CatalogRepo.FindVideo(uint(id))
		if err == nil {
			return video, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	video, err := s.CatalogRepo.FindVideoBySlug(slugOrID)
	if err != nil {
		return nil, notFound(err, util.ErrVideoNotFound)
	}
	return video, nil
}

func (s *CatalogService) VideoByID(id uint) (*model.VideoLesson, error) {
	video, err := s.CatalogRepo.FindVideo(id)
	if err != nil {
		return nil, notFound(err, util.ErrVideoNotFound)
	}
	return video, nil
}

// CheckAccess 免费视频直接放行，付费视频需要当前有效订阅
func (s *CatalogService) CheckAccess(userID, videoID uint) (*VideoAccess, error) {
	video, err := s.VideoByID(videoID)
	if err != nil {
		return nil, err
	}
	sub, err := s.SubRepo.LatestActivePaid(userID)
	if err != nil {
		return nil, err
	}

	access := &VideoAccess{VideoID: video.ID, IsFree: video.IsFree}
	if policy.CanWatch(video, sub, time.Now()) {
		access.CanWatch = true
		access.VideoURL = video.VideoURL()
		if sub != nil && sub.EndDate != nil {
			access.ExpiresAt = sub.EndDate.Format(time.RFC3339)
		}
		return access, nil
	}
	access.Reason = util.ErrAccessDenied.Error()
	return access, nil
}

// ---- 管理端 ----

func (s *CatalogService) CreateEducationLevel(level *model.EducationLevel) error {
	if err := s.CatalogRepo.Create(level); err != nil {
		if isDuplicate(err) {
			return util.ErrSlugTaken
		}
		return err
	}
	return nil
}

func (s *CatalogService) UpdateEducationLevel(id uint, apply func(*model.EducationLevel)) (*model.EducationLevel, error) {
	level, err := s.CatalogRepo.FindEducationLevel(id)
	if err != nil {
		return nil, notFound(err, util.ErrNotFound)
	}
	apply(level)
	if err := s.CatalogRepo.Save(level); err != nil {
		if isDuplicate(err) {
			return nil, util.ErrSlugTaken
		}
		return nil, err
	}
	return level, nil
}

func (s *CatalogService) DeleteEducationLevel(id uint) error {
	return notFound(s.CatalogRepo.DeleteByID(&model.EducationLevel{}, id), util.ErrNotFound)
}

func (s *CatalogService) CreateClassLevel(level *model.ClassLevel) error {
	if _, err := s.CatalogRepo.FindEducationLevel(level.EducationLevelID); err != nil {
		return notFound(err, util.ErrNotFound)
	}
	if err := s.CatalogRepo.Create(level); err != nil {
		if isDuplicate(err) {
			return util.ErrSlugTaken
		}
		return err
	}
	return nil
}

func (s *CatalogService) UpdateClassLevel(id uint, apply func(*model.ClassLevel)) (*model.ClassLevel, error) {
	level, err := s.CatalogRepo.FindClassLevel(id)
	if err != nil {
		return nil, notFound(err, util.ErrNotFound)
	}
	apply(level)
	if err := s.CatalogRepo.Save(level); err != nil {
		if isDuplicate(err) {
			return nil, util.ErrSlugTaken
		}
		return nil, err
	}
	return level, nil
}

func (s *CatalogService) DeleteClassLevel(id uint) error {
	return notFound(s.CatalogRepo.DeleteByID(&model.ClassLevel{}, id), util.ErrNotFound)
}

func (s *CatalogService) CreateSubject(subject *model.Subject) error {
	if err := s.CatalogRepo.Create(subject); err != nil {
		if isDuplicate(err) {
			return util.ErrSlugTaken
		}
		return err
	}
	return nil
}

func (s *CatalogService) UpdateSubject(id uint, apply func(*model.Subject)) (*model.Subject, error) {
	subject, err := s.CatalogRepo.FindSubject(id)
	if err != nil {
		return nil, notFound(err, util.ErrSubjectNotFound)
	}
	apply(subject)
	if err := s.CatalogRepo.Save(subject); err != nil {
		if isDuplicate(err) {
			return nil, util.ErrSlugTaken
		}
		return nil, err
	}
	return subject, nil
}

func (s *CatalogService) DeleteSubject(id uint) error {
	return notFound(s.CatalogRepo.DeleteByID(&model.Subject{}, id), util.ErrSubjectNotFound)
}

func (s *CatalogService) validateVideo(v *model.VideoLesson) error {
	switch v.VideoSource {
	case model.SourceYouTube, model.SourceDrive, model.SourceUpload:
	default:
		return util.ErrInvalidSource
	}
	if _, err := s.CatalogRepo.FindSubject(v.SubjectID); err != nil {
		return notFound(err, util.ErrSubjectNotFound)
	}
	if _, err := s.CatalogRepo.FindClassLevel(v.ClassLevelID); err != nil {
		return notFound(err, util.ErrNotFound)
	}
	taken, err := s.CatalogRepo.OrderTaken(v.SubjectID, v.ClassLevelID, v.OrderInSubject, v.ID)
	if err != nil {
		return err
	}
	if taken {
		return util.ErrOrderConflict
	}
	return nil
}

func applyVideoInput(v *model.VideoLesson, in VideoInput) {
	v.Title = strings.TrimSpace(in.Title)
	v.Slug = strings.TrimSpace(in.Slug)
	v.Description = in.Description
	v.SubjectID = in.SubjectID
	v.ClassLevelID = in.ClassLevelID
	v.VideoSource = in.VideoSource
	v.VideoID = in.VideoID
	v.AccessToken = in.AccessToken
	v.Thumbnail = in.Thumbnail
	v.Duration = in.Duration
	v.IsFree = in.IsFree
	v.OrderInSubject = in.OrderInSubject
}

func (s *CatalogService) CreateVideo(in VideoInput) (*model.VideoLesson, error) {
	video := &model.VideoLesson{ProcessingStatus: model.ProcessingReady}
	applyVideoInput(video, in)
	if video.VideoSource == model.SourceUpload {
		// 文件通过上传接口补充
		video.ProcessingStatus = model.ProcessingPending
	}
	if err := s.validateVideo(video); err != nil {
		return nil, err
	}
	if err := s.CatalogRepo.Create(video); err != nil {
		if isDuplicate(err) {
			return nil, util.ErrSlugTaken
		}
		return nil, err
	}
	return s.VideoByID(video.ID)
}

func (s *CatalogService) UpdateVideo(id uint, in VideoInput) (*model.VideoLesson, error) {
	video, err := s.CatalogRepo.FindVideo(id)
	if err != nil {
		return nil, notFound(err, util.ErrVideoNotFound)
	}
	applyVideoInput(video, in)
	video.Subject = nil
	video.ClassLevel = nil
	if err := s.validateVideo(video); err != nil {
		return nil, err
	}
	if err := s.CatalogRepo.Save(video); err != nil {
		if isDuplicate(err) {
			return nil, util.ErrSlugTaken
		}
		return nil, err
	}
	return s.VideoByID(video.ID)
}

func (s *CatalogService) DeleteVideo(id uint) error {
	return notFound(s.CatalogRepo.DeleteByID(&model.VideoLesson{}, id), util.ErrVideoNotFound)
}
