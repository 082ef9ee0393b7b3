package model

import (
	"net/url"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

type VideoSource string

const (
	SourceYouTube VideoSource = "youtube"
	SourceDrive   VideoSource = "drive"
	SourceUpload  VideoSource = "upload"
)

type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingProcessing ProcessingStatus = "processing"
	ProcessingReady      ProcessingStatus = "ready"
	ProcessingFailed     ProcessingStatus = "failed"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify 将标题转换为 URL 友好的 slug
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// swagger:model EducationLevel
type EducationLevel struct {
	BaseModel
	Name        string       `gorm:"size:100;not null" json:"name"`
	Slug        string       `gorm:"size:120;uniqueIndex" json:"slug"`
	Description string       `gorm:"type:text" json:"description"`
	Order       int          `gorm:"column:sort_order;default:0" json:"order"`
	ClassLevels []ClassLevel `gorm:"foreignKey:EducationLevelID" json:"classLevels,omitempty"`
}

func (EducationLevel) TableName() string {
	return "education_levels"
}

func (e *EducationLevel) BeforeSave(tx *gorm.DB) error {
	if e.Slug == "" {
		e.Slug = Slugify(e.Name)
	}
	return nil
}

// swagger:model ClassLevel
type ClassLevel struct {
	BaseModel
	Name             string          `gorm:"size:100;not null" json:"name"`
	Slug             string          `gorm:"size:120;uniqueIndex" json:"slug"`
	EducationLevelID uint            `gorm:"index;not null" json:"educationLevelId"`
	EducationLevel   *EducationLevel `gorm:"foreignKey:EducationLevelID" json:"educationLevel,omitempty"`
	Description      string          `gorm:"type:text" json:"description"`
	Order            int             `gorm:"column:sort_order;default:0" json:"order"`
}

func (ClassLevel) TableName() string {
	return "class_levels"
}

func (c *ClassLevel) BeforeSave(tx *gorm.DB) error {
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	return nil
}

// swagger:model Subject
type Subject struct {
	BaseModel
	Name        string `gorm:"size:100;not null" json:"name"`
	Slug        string `gorm:"size:120;uniqueIndex" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Icon        string `gorm:"size:255" json:"icon"`
}

func (Subject) TableName() string {
	return "subjects"
}

func (s *Subject) BeforeSave(tx *gorm.DB) error {
	if s.Slug == "" {
		s.Slug = Slugify(s.Name)
	}
	return nil
}

// VideoLesson 视频课程，(subject, class_level, order_in_subject) 唯一
// swagger:model VideoLesson
type VideoLesson struct {
	BaseModel
	Title            string           `gorm:"size:200;not null" json:"title"`
	Slug             string           `gorm:"size:220;uniqueIndex" json:"slug"`
	Description      string           `gorm:"type:text" json:"description"`
	SubjectID        uint             `gorm:"not null;uniqueIndex:idx_subject_class_order" json:"subjectId"`
	Subject          *Subject         `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
	ClassLevelID     uint             `gorm:"not null;uniqueIndex:idx_subject_class_order" json:"classLevelId"`
	ClassLevel       *ClassLevel      `gorm:"foreignKey:ClassLevelID" json:"classLevel,omitempty"`
	VideoSource      VideoSource      `gorm:"size:20;default:'youtube'" json:"videoSource"`
	VideoID          string           `gorm:"size:100" json:"videoId"`
	VideoFile        string           `gorm:"size:500" json:"videoFile"`
	AccessToken      string           `gorm:"size:255" json:"-"`
	Thumbnail        string           `gorm:"size:500" json:"thumbnail"`
	Duration         int              `gorm:"default:0" json:"duration"`
	ProcessingStatus ProcessingStatus `gorm:"size:20;default:'ready'" json:"processingStatus"`
	ErrorMessage     string           `gorm:"type:text" json:"errorMessage,omitempty"`
	IsFree           bool             `gorm:"default:false" json:"isFree"`
	OrderInSubject   int              `gorm:"not null;default:0;uniqueIndex:idx_subject_class_order" json:"orderInSubject"`
}

func (VideoLesson) TableName() string {
	return "video_lessons"
}

func (v *VideoLesson) BeforeSave(tx *gorm.DB) error {
	if v.Slug == "" {
		v.Slug = Slugify(v.Title)
	}
	return nil
}

// VideoURL 根据视频来源生成播放地址
func (v *VideoLesson) VideoURL() string {
	switch v.VideoSource {
	case SourceYouTube:
		if v.VideoID == "" {
			return ""
		}
		u := "https://www.youtube.com/embed/" + v.VideoID
		if v.AccessToken != "" {
			u += "?access_token=" + url.QueryEscape(v.AccessToken)
		}
		return u
	case SourceDrive:
		if v.VideoID == "" {
			return ""
		}
		return "https://drive.google.com/file/d/" + v.VideoID + "/preview"
	case SourceUpload:
		return v.VideoFile
	}
	return ""
}
